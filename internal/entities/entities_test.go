package entities

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstore/internal/config"
	"docstore/internal/jsonstore"
	"docstore/internal/model"
)

func newResolver(t *testing.T) (*JSONResolver, *jsonstore.Store) {
	t.Helper()
	store, err := jsonstore.New(config.StoreConfig{
		DataDir:             t.TempDir(),
		LockTimeout:         2 * time.Second,
		BackupRetentionDays: 7,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return NewJSONResolver(store), store
}

func TestJSONResolver(t *testing.T) {
	r, store := newResolver(t)
	ctx := context.Background()

	// Fleet records carry more fields than the resolver cares about.
	drivers := `[{"id":"drv-1","name":"Ahmed","license_no":"L-100"}]`
	require.NoError(t, os.WriteFile(store.Path("drivers"), []byte(drivers), 0o644))

	ok, err := r.Exists(ctx, model.EntityDriver, "drv-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Exists(ctx, model.EntityDriver, "drv-2")
	require.NoError(t, err)
	assert.False(t, ok)

	// No vehicles collection at all: nothing can match.
	ok, err = r.Exists(ctx, model.EntityVehicle, "veh-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// "other" has no owning record to verify.
	ok, err = r.Exists(ctx, model.EntityOther, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowAll(t *testing.T) {
	ok, err := AllowAll{}.Exists(context.Background(), model.EntityDriver, "anything")
	require.NoError(t, err)
	assert.True(t, ok)
}
