// Package sweep reconciles metadata records with blob storage after partial
// failures leave them out of sync. Sweeps run on a schedule or by admin
// trigger, never inside a user-facing request.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"docstore/internal/audit"
	"docstore/internal/config"
	"docstore/internal/repository"
	"docstore/internal/storage"
)

// Report summarizes one sweep pass.
type Report struct {
	OrphanFilesRemoved   int      `json:"orphan_files_removed"`
	OrphanRecordsRemoved int      `json:"orphan_records_removed"`
	TempFilesRemoved     int      `json:"temp_files_removed"`
	Errors               []string `json:"errors,omitempty"`
}

// Sweeper holds the reconciliation passes.
type Sweeper struct {
	repo  repository.DocumentRepository
	store storage.Storage
	audit audit.Recorder
	log   *slog.Logger

	orphanGrace time.Duration
	tempMaxAge  time.Duration

	now func() time.Time
}

// New constructs a Sweeper.
func New(repo repository.DocumentRepository, store storage.Storage, rec audit.Recorder, log *slog.Logger, cfg config.SweepConfig) *Sweeper {
	return &Sweeper{
		repo:        repo,
		store:       store,
		audit:       rec,
		log:         log,
		orphanGrace: cfg.OrphanGrace,
		tempMaxAge:  cfg.TempMaxAge,
		now:         time.Now,
	}
}

// SweepOrphanFiles deletes stored files no metadata record references.
// Files younger than the grace period are left alone so an upload whose
// metadata commit has not happened yet is never raced.
func (s *Sweeper) SweepOrphanFiles(ctx context.Context) (int, error) {
	docs, err := s.repo.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}
	referenced := make(map[string]bool, len(docs))
	for _, d := range docs {
		referenced[d.FilePath] = true
	}

	cutoff := s.now().Add(-s.orphanGrace)
	var orphans []string
	err = s.store.Walk(ctx, func(info storage.ObjectInfo) error {
		if !referenced[info.Key] && info.ModTime.Before(cutoff) {
			orphans = append(orphans, info.Key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk storage: %w", err)
	}

	removed := 0
	for _, key := range orphans {
		if err := s.store.Delete(ctx, key); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				s.log.Warn("orphan file removal failed", "key", key, "error", err)
			}
			continue
		}
		s.log.Info("removed orphan file", "key", key)
		removed++
	}
	return removed, nil
}

// SweepOrphanRecords drops metadata records whose file no longer exists.
// The file is the ultimate source of truth for existence.
func (s *Sweeper) SweepOrphanRecords(ctx context.Context) (int, error) {
	docs, err := s.repo.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}
	removed := 0
	for _, d := range docs {
		if _, err := s.store.Stat(ctx, d.FilePath); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("orphan record check failed", "id", d.ID, "error", err)
			continue
		}
		if err := s.repo.Delete(ctx, d.ID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				s.log.Warn("orphan record removal failed", "id", d.ID, "error", err)
			}
			continue
		}
		s.log.Info("removed orphan record", "id", d.ID, "file_path", d.FilePath)
		removed++
	}
	return removed, nil
}

// SweepTempFiles removes stale staging files on backends that stage writes.
func (s *Sweeper) SweepTempFiles(ctx context.Context) (int, error) {
	ts, ok := s.store.(storage.TempSweeper)
	if !ok {
		return 0, nil
	}
	return ts.SweepTemp(ctx, s.tempMaxAge)
}

// SweepAll runs every pass and aggregates the outcome. Individual pass
// failures are reported, not fatal, so one broken pass cannot block the rest.
func (s *Sweeper) SweepAll(ctx context.Context) *Report {
	report := &Report{}
	var err error

	if report.TempFilesRemoved, err = s.SweepTempFiles(ctx); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("temp files: %v", err))
	}
	if report.OrphanFilesRemoved, err = s.SweepOrphanFiles(ctx); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("orphan files: %v", err))
	}
	if report.OrphanRecordsRemoved, err = s.SweepOrphanRecords(ctx); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("orphan records: %v", err))
	}

	s.audit.Record(ctx, audit.Event{
		Action:   "cleanup",
		Resource: "storage",
		Details: map[string]any{
			"orphan_files_removed":   report.OrphanFilesRemoved,
			"orphan_records_removed": report.OrphanRecordsRemoved,
			"temp_files_removed":     report.TempFilesRemoved,
			"errors":                 len(report.Errors),
		},
	})
	return report
}

// Schedule registers SweepAll on the given cron expression and starts the
// scheduler. The returned stop function blocks until a running sweep
// finishes.
func (s *Sweeper) Schedule(expr string) (stop func(), err error) {
	c := cron.New()
	_, err = c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		report := s.SweepAll(ctx)
		s.log.Info("scheduled sweep finished",
			"orphan_files", report.OrphanFilesRemoved,
			"orphan_records", report.OrphanRecordsRemoved,
			"temp_files", report.TempFilesRemoved,
			"errors", len(report.Errors))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
