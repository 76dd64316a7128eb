// Package repository contains the metadata persistence abstraction for
// documents. Implementations live in subpackages (jsonfile, badger,
// postgres); no business logic here, strictly record access.
package repository

import (
	"context"
	"errors"

	"docstore/internal/model"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("repository: document not found")

// Filter narrows a List call. Zero values match everything. Status is not a
// repository concern: it is derived at read time by the service, which also
// owns pagination so status filtering can happen first.
type Filter struct {
	EntityType model.EntityType
	EntityID   string
	Category   model.Category
	// Search matches case-insensitively against display name, original
	// filename and notes.
	Search string
}

// DocumentRepository defines metadata access for documents.
// The service layer is the only caller that mutates records; that discipline
// is what keeps metadata and blob storage in agreement.
type DocumentRepository interface {
	// Create inserts a new record. The caller provides all fields including
	// the id.
	Create(ctx context.Context, doc model.Document) (model.Document, error)

	// FindByID returns the record or ErrNotFound.
	FindByID(ctx context.Context, id string) (model.Document, error)

	// List returns every record matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]model.Document, error)

	// Update applies mutate to the current stored record as a single
	// read-modify-write. Implementations guarantee concurrent updates do not
	// lose each other's writes. Returns the updated record or ErrNotFound.
	Update(ctx context.Context, id string, mutate func(*model.Document) error) (model.Document, error)

	// Delete removes the record. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error

	// All returns every record across all entity types. Used by sweeps and
	// stats, never on a hot request path with user-controlled size.
	All(ctx context.Context) ([]model.Document, error)
}

// MatchesFilter reports whether doc satisfies f. Shared by the backends that
// filter in memory.
func MatchesFilter(doc model.Document, f Filter) bool {
	if f.EntityType != "" && doc.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && doc.EntityID != f.EntityID {
		return false
	}
	if f.Category != "" && doc.Category != f.Category {
		return false
	}
	if f.Search != "" && !matchesSearch(doc, f.Search) {
		return false
	}
	return true
}
