package jsonstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstore/internal/config"
)

type rec struct {
	ID string `json:"id"`
	N  int    `json:"n"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(config.StoreConfig{
		DataDir:             t.TempDir(),
		LockTimeout:         2 * time.Second,
		BackupRetentionDays: 7,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestReadAll_MissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	got, err := ReadAll[rec](context.Background(), s, "things")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdate_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := Update(ctx, s, "things", func(records []rec) ([]rec, error) {
		return append(records, rec{ID: "a", N: 1}), nil
	})
	require.NoError(t, err)

	got, err := ReadAll[rec](ctx, s, "things")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec{ID: "a", N: 1}, got[0])
}

func TestUpdate_MutateErrorAborts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, Update(ctx, s, "things", func(records []rec) ([]rec, error) {
		return append(records, rec{ID: "a"}), nil
	}))

	boom := errors.New("boom")
	err := Update(ctx, s, "things", func(records []rec) ([]rec, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	got, err := ReadAll[rec](ctx, s, "things")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUpdate_NoChangeSkipsWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, Update(ctx, s, "things", func(records []rec) ([]rec, error) {
		return append(records, rec{ID: "a"}), nil
	}))
	before, err := os.ReadFile(s.Path("things"))
	require.NoError(t, err)

	err = Update(ctx, s, "things", func(records []rec) ([]rec, error) {
		return nil, ErrNoChange
	})
	require.NoError(t, err)

	after, err := os.ReadFile(s.Path("things"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// A no-change update of a collection that never existed must not
	// create its file either.
	require.NoError(t, Update(ctx, s, "ghost", func(records []rec) ([]rec, error) {
		return nil, ErrNoChange
	}))
	_, err = os.Stat(s.Path("ghost"))
	assert.True(t, os.IsNotExist(err))
}

func TestUpdate_ConcurrentAppends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := Update(ctx, s, "things", func(records []rec) ([]rec, error) {
				return append(records, rec{N: n}), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := ReadAll[rec](ctx, s, "things")
	require.NoError(t, err)
	assert.Len(t, got, workers)
}

func TestCorruptFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(s.Path("things"), []byte("{not json"), 0o644))

	_, err := ReadAll[rec](ctx, s, "things")
	assert.ErrorIs(t, err, ErrCorrupt)

	// A corrupt collection is never silently reset by a write either.
	err = Update(ctx, s, "things", func(records []rec) ([]rec, error) {
		return records, nil
	})
	assert.ErrorIs(t, err, ErrCorrupt)

	data, readErr := os.ReadFile(s.Path("things"))
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(data))
}

func TestEmptyFileIsEmptyCollection(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path("things"), nil, 0o644))

	got, err := ReadAll[rec](context.Background(), s, "things")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdate_LockTimeout(t *testing.T) {
	dir := t.TempDir()
	s, err := New(config.StoreConfig{
		DataDir:             dir,
		LockTimeout:         100 * time.Millisecond,
		BackupRetentionDays: 7,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	// Hold the collection lock from outside the store.
	fl := flock.New(filepath.Join(dir, ".things.lock"))
	require.NoError(t, fl.Lock())
	defer fl.Unlock()

	err = Update(context.Background(), s, "things", func(records []rec) ([]rec, error) {
		return records, nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)

	_, err = ReadAll[rec](context.Background(), s, "things")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestDailyBackup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, Update(ctx, s, "things", func(records []rec) ([]rec, error) {
		return append(records, rec{ID: "a"}), nil
	}))
	// First write of the day snapshots the pre-mutation state.
	require.NoError(t, Update(ctx, s, "things", func(records []rec) ([]rec, error) {
		return append(records, rec{ID: "b"}), nil
	}))

	day := time.Now().Format("2006-01-02")
	backup := filepath.Join(s.backupDir, day, "things.json")
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"a"`)
	assert.NotContains(t, string(data), `"b"`)
}

func TestPruneBackups(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "backup", "2020-01-01")
	require.NoError(t, os.MkdirAll(old, 0o755))

	_, err := New(config.StoreConfig{
		DataDir:             dir,
		LockTimeout:         time.Second,
		BackupRetentionDays: 7,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, statErr := os.Stat(old)
	assert.True(t, os.IsNotExist(statErr))
}
