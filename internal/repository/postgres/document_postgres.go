// Package postgres is the PostgreSQL implementation of the document
// repository, for deployments that outgrow file-backed metadata. It uses
// database/sql with parameterized queries and contains no business logic.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"docstore/internal/model"
	"docstore/internal/repository"
)

// DocumentPostgres implements repository.DocumentRepository over *sql.DB.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const docColumns = `id, entity_type, entity_id, display_name, original_filename,
	stored_filename, category, mime_type, size_bytes, sha256, file_path,
	uploaded_by, notes, expiry_date, uploaded_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (model.Document, error) {
	var (
		d      model.Document
		et     string
		cat    string
		expiry sql.NullTime
	)
	err := row.Scan(
		&d.ID, &et, &d.EntityID, &d.DisplayName, &d.OriginalFilename,
		&d.StoredFilename, &cat, &d.MimeType, &d.SizeBytes, &d.SHA256,
		&d.FilePath, &d.UploadedBy, &d.Notes, &expiry, &d.UploadedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return model.Document{}, err
	}
	d.EntityType = model.EntityType(et)
	d.Category = model.Category(cat)
	if expiry.Valid {
		ed := model.NewDate(expiry.Time.Year(), expiry.Time.Month(), expiry.Time.Day())
		d.ExpiryDate = &ed
	}
	return d, nil
}

func expiryArg(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.Time()
}

func (r *DocumentPostgres) Create(ctx context.Context, doc model.Document) (model.Document, error) {
	const q = `
		INSERT INTO documents (` + docColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, q,
		doc.ID, string(doc.EntityType), doc.EntityID, doc.DisplayName,
		doc.OriginalFilename, doc.StoredFilename, string(doc.Category),
		doc.MimeType, doc.SizeBytes, doc.SHA256, doc.FilePath,
		doc.UploadedBy, doc.Notes, expiryArg(doc.ExpiryDate),
		doc.UploadedAt, doc.UpdatedAt,
	)
	if err != nil {
		return model.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (model.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("find document %s: %w", id, err)
	}
	return doc, nil
}

func (r *DocumentPostgres) List(ctx context.Context, f repository.Filter) ([]model.Document, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.EntityType != "" {
		add("entity_type = $%d", string(f.EntityType))
	}
	if f.EntityID != "" {
		add("entity_id = $%d", f.EntityID)
	}
	if f.Category != "" {
		add("category = $%d", string(f.Category))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(display_name ILIKE $%d OR original_filename ILIKE $%d OR notes ILIKE $%d)", n, n, n))
	}

	q := `SELECT ` + docColumns + ` FROM documents`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY uploaded_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *DocumentPostgres) Update(ctx context.Context, id string, mutate func(*model.Document) error) (model.Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	q := `SELECT ` + docColumns + ` FROM documents WHERE id = $1 FOR UPDATE`
	doc, err := scanDocument(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("lock document %s: %w", id, err)
	}

	if err := mutate(&doc); err != nil {
		return model.Document{}, err
	}

	const upd = `
		UPDATE documents
		SET display_name = $2, category = $3, notes = $4, expiry_date = $5, updated_at = $6
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, upd,
		id, doc.DisplayName, string(doc.Category), doc.Notes,
		expiryArg(doc.ExpiryDate), doc.UpdatedAt,
	); err != nil {
		return model.Document{}, fmt.Errorf("update document %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Document{}, fmt.Errorf("commit update: %w", err)
	}
	return doc, nil
}

func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *DocumentPostgres) All(ctx context.Context) ([]model.Document, error) {
	return r.List(ctx, repository.Filter{})
}
