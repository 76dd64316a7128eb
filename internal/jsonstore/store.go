// Package jsonstore provides thread- and process-safe access to JSON files
// acting as record collections. Writers serialize on a sidecar lock file and
// commit through a temp-file+rename so the collection on disk is always a
// fully parseable JSON document, even if the process dies mid-write.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"docstore/internal/config"
)

var (
	// ErrLockTimeout means the collection lock could not be acquired within
	// the bounded wait. Transient; callers may retry the whole operation.
	ErrLockTimeout = errors.New("jsonstore: lock acquisition timed out")
	// ErrCorrupt means the on-disk JSON could not be parsed. Fatal for that
	// collection: it is never auto-reset to empty, an operator must look.
	ErrCorrupt = errors.New("jsonstore: collection file is corrupt")
)

// ErrNoChange can be returned by an Update mutator to finish without error
// and without rewriting the collection file.
var ErrNoChange = errors.New("jsonstore: no change")

// lockRetryDelay is how often flock polls for the lock while waiting.
const lockRetryDelay = 25 * time.Millisecond

// Store manages a directory of JSON collection files.
type Store struct {
	dataDir   string
	backupDir string
	timeout   time.Duration
	retention int
	log       *slog.Logger
}

// New creates the data and backup directories and prunes expired backups.
func New(cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	s := &Store{
		dataDir:   cfg.DataDir,
		backupDir: filepath.Join(cfg.DataDir, "backup"),
		timeout:   cfg.LockTimeout,
		retention: cfg.BackupRetentionDays,
		log:       log,
	}
	for _, dir := range []string{s.dataDir, s.backupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
	}
	s.pruneBackups()
	return s, nil
}

// Path returns the file backing the named collection.
func (s *Store) Path(collection string) string {
	return filepath.Join(s.dataDir, collection+".json")
}

func (s *Store) lockPath(collection string) string {
	return filepath.Join(s.dataDir, "."+collection+".lock")
}

// ReadAll decodes the full collection into a fresh slice. The result is owned
// by the caller; mutating it cannot affect the store.
func ReadAll[T any](ctx context.Context, s *Store, collection string) ([]T, error) {
	fl := flock.New(s.lockPath(collection))
	lockCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := fl.TryRLockContext(lockCtx, lockRetryDelay)
	if err != nil || !ok {
		return nil, fmt.Errorf("read %s: %w", collection, ErrLockTimeout)
	}
	defer fl.Unlock()

	return decodeFile[T](s.Path(collection))
}

// Update applies mutate to the current on-disk state of the collection under
// an exclusive lock and commits the result atomically. The slice passed to
// mutate is re-read inside the locked section, so concurrent updates never
// act on stale state. Returning the (possibly modified) slice commits it;
// returning an error aborts with nothing written. ErrNoChange aborts without
// error, for mutators that found nothing to do.
func Update[T any](ctx context.Context, s *Store, collection string, mutate func([]T) ([]T, error)) error {
	fl := flock.New(s.lockPath(collection))
	lockCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !ok {
		return fmt.Errorf("update %s: %w", collection, ErrLockTimeout)
	}
	defer fl.Unlock()

	path := s.Path(collection)
	records, err := decodeFile[T](path)
	if err != nil {
		return err
	}
	records, err = mutate(records)
	if err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}
	// The file still holds the pre-mutation state here, so the backup taken
	// right before the commit is of that state.
	s.dailyBackup(path)
	return s.commit(path, records)
}

func decodeFile[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return []T{}, nil
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, ErrCorrupt)
	}
	return records, nil
}

// commit writes records to a temp file in the same directory, syncs it and
// renames it over the collection file.
func (s *Store) commit(path string, records any) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// dailyBackup copies the collection file into backup/YYYY-MM-DD once per day,
// before its first mutation of the day. Backup failures are logged, never
// fatal: losing a backup must not block writes.
func (s *Store) dailyBackup(path string) {
	src, err := os.Open(path)
	if err != nil {
		return // nothing to back up yet
	}
	defer src.Close()

	dayDir := filepath.Join(s.backupDir, time.Now().Format("2006-01-02"))
	dst := filepath.Join(dayDir, filepath.Base(path))
	if _, err := os.Stat(dst); err == nil {
		return // already backed up today
	}
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		s.log.Warn("backup directory creation failed", "dir", dayDir, "error", err)
		return
	}
	out, err := os.Create(dst)
	if err != nil {
		s.log.Warn("backup failed", "file", dst, "error", err)
		return
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		s.log.Warn("backup copy failed", "file", dst, "error", err)
	}
}

// pruneBackups removes daily backup directories older than the retention
// window. Directory names are dates, so age comes from the name rather than
// filesystem timestamps.
func (s *Store) pruneBackups() {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -s.retention)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		day, err := time.Parse("2006-01-02", e.Name())
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			dir := filepath.Join(s.backupDir, e.Name())
			if err := os.RemoveAll(dir); err != nil {
				s.log.Warn("backup prune failed", "dir", dir, "error", err)
			} else {
				s.log.Info("pruned old backup", "dir", dir)
			}
		}
	}
}
