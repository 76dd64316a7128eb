// Package badger persists document metadata in an embedded Badger key-value
// store, for deployments that want real transactional storage without an
// external database.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"docstore/internal/model"
	"docstore/internal/repository"
)

const keyPrefix = "doc:"

// DocumentBadger is the Badger-backed repository.DocumentRepository.
// Records are stored as JSON under "doc:<id>"; Badger transactions give the
// read-modify-write guarantee for Update.
type DocumentBadger struct {
	db *badger.DB
}

// NewDocumentBadger opens (or creates) the store directory.
func NewDocumentBadger(dir string) (*DocumentBadger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &DocumentBadger{db: db}, nil
}

var _ repository.DocumentRepository = (*DocumentBadger)(nil)

// Close releases the underlying store.
func (r *DocumentBadger) Close() error { return r.db.Close() }

func docKey(id string) []byte { return []byte(keyPrefix + id) }

func (r *DocumentBadger) Create(ctx context.Context, doc model.Document) (model.Document, error) {
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(doc.ID)); err == nil {
			return fmt.Errorf("duplicate document id %s", doc.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return txn.Set(docKey(doc.ID), data)
	})
	if err != nil {
		return model.Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (r *DocumentBadger) FindByID(ctx context.Context, id string) (model.Document, error) {
	var doc model.Document
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Document{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("find document %s: %w", id, err)
	}
	return doc, nil
}

func (r *DocumentBadger) List(ctx context.Context, f repository.Filter) ([]model.Document, error) {
	var out []model.Document
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var doc model.Document
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return err
			}
			if repository.MatchesFilter(doc, f) {
				out = append(out, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	repository.SortNewestFirst(out)
	return out, nil
}

func (r *DocumentBadger) Update(ctx context.Context, id string, mutate func(*model.Document) error) (model.Document, error) {
	var updated model.Document
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(id))
		if err != nil {
			return err
		}
		var doc model.Document
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		}); err != nil {
			return err
		}
		if err := mutate(&doc); err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		updated = doc
		return txn.Set(docKey(id), data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Document{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("update document %s: %w", id, err)
	}
	return updated, nil
}

func (r *DocumentBadger) Delete(ctx context.Context, id string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(id)); err != nil {
			return err
		}
		return txn.Delete(docKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func (r *DocumentBadger) All(ctx context.Context) ([]model.Document, error) {
	return r.List(ctx, repository.Filter{})
}
