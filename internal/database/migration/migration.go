// Package migration brings the documents schema up to date on startup.
// Steps are idempotent; a populated schema is detected and skipped.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                TEXT        PRIMARY KEY,
  entity_type       TEXT        NOT NULL,
  entity_id         TEXT        NOT NULL DEFAULT '',
  display_name      TEXT        NOT NULL,
  original_filename TEXT        NOT NULL,
  stored_filename   TEXT        NOT NULL,
  category          TEXT        NOT NULL,
  mime_type         TEXT        NOT NULL,
  size_bytes        BIGINT      NOT NULL CHECK (size_bytes >= 0),
  sha256            TEXT        NOT NULL,
  file_path         TEXT        NOT NULL UNIQUE,
  uploaded_by       TEXT        NOT NULL DEFAULT '',
  notes             TEXT        NOT NULL DEFAULT '',
  expiry_date       DATE,
  uploaded_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_entity",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_entity ON documents (entity_type, entity_id);`,
	},
	{
		Name: "create_index_documents_category",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_category ON documents (category);`,
	},
	{
		Name: "create_index_documents_expiry_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_expiry_date ON documents (expiry_date);`,
	},
	{
		Name: "create_index_documents_uploaded_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents (uploaded_at);`,
	},
}

// EnsureMigrated checks for the documents table and runs the steps if absent.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	start := time.Now()

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if exists {
		log.Info("schema already exists, skipping migration")
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("migration step applied",
			"step", step.Name,
			"duration", time.Since(stepStart).Round(time.Millisecond).String())
	}

	log.Info("schema migrated",
		"steps", len(steps),
		"duration", time.Since(start).Round(time.Millisecond).String())
	return nil
}
