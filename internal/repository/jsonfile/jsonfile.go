// Package jsonfile persists document metadata in per-entity-type JSON
// collection files through the locked jsonstore. This is the
// compatibility backend: its on-disk layout matches the original system
// (driver_documents.json, vehicle_documents.json, other_documents.json).
package jsonfile

import (
	"context"
	"fmt"

	"docstore/internal/jsonstore"
	"docstore/internal/model"
	"docstore/internal/repository"
)

// DocumentJSONFile is the jsonstore-backed repository.DocumentRepository.
// Every mutation funnels through jsonstore.Update, so concurrent writers are
// serialized on the collection's file lock and read-modify-write happens
// inside the locked section.
type DocumentJSONFile struct {
	store *jsonstore.Store
}

// NewDocumentJSONFile creates the repository over an initialized store.
func NewDocumentJSONFile(store *jsonstore.Store) *DocumentJSONFile {
	return &DocumentJSONFile{store: store}
}

var _ repository.DocumentRepository = (*DocumentJSONFile)(nil)

func collectionFor(t model.EntityType) string {
	return string(t) + "_documents"
}

func (r *DocumentJSONFile) Create(ctx context.Context, doc model.Document) (model.Document, error) {
	err := jsonstore.Update(ctx, r.store, collectionFor(doc.EntityType), func(docs []model.Document) ([]model.Document, error) {
		for _, d := range docs {
			if d.ID == doc.ID {
				return nil, fmt.Errorf("duplicate document id %s", doc.ID)
			}
		}
		return append(docs, doc.Clone()), nil
	})
	if err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

func (r *DocumentJSONFile) FindByID(ctx context.Context, id string) (model.Document, error) {
	for _, t := range model.EntityTypes() {
		docs, err := jsonstore.ReadAll[model.Document](ctx, r.store, collectionFor(t))
		if err != nil {
			return model.Document{}, err
		}
		for _, d := range docs {
			if d.ID == id {
				return d, nil
			}
		}
	}
	return model.Document{}, repository.ErrNotFound
}

func (r *DocumentJSONFile) List(ctx context.Context, f repository.Filter) ([]model.Document, error) {
	types := model.EntityTypes()
	if f.EntityType != "" {
		types = []model.EntityType{f.EntityType}
	}
	var out []model.Document
	for _, t := range types {
		docs, err := jsonstore.ReadAll[model.Document](ctx, r.store, collectionFor(t))
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if repository.MatchesFilter(d, f) {
				out = append(out, d)
			}
		}
	}
	repository.SortNewestFirst(out)
	return out, nil
}

func (r *DocumentJSONFile) Update(ctx context.Context, id string, mutate func(*model.Document) error) (model.Document, error) {
	var updated model.Document
	for _, t := range model.EntityTypes() {
		found := false
		err := jsonstore.Update(ctx, r.store, collectionFor(t), func(docs []model.Document) ([]model.Document, error) {
			for i := range docs {
				if docs[i].ID == id {
					if err := mutate(&docs[i]); err != nil {
						return nil, err
					}
					found = true
					updated = docs[i].Clone()
					return docs, nil
				}
			}
			// Not in this collection; leave its file untouched.
			return nil, jsonstore.ErrNoChange
		})
		if err != nil {
			return model.Document{}, err
		}
		if found {
			return updated, nil
		}
	}
	return model.Document{}, repository.ErrNotFound
}

func (r *DocumentJSONFile) Delete(ctx context.Context, id string) error {
	for _, t := range model.EntityTypes() {
		found := false
		err := jsonstore.Update(ctx, r.store, collectionFor(t), func(docs []model.Document) ([]model.Document, error) {
			kept := docs[:0]
			for _, d := range docs {
				if d.ID == id {
					found = true
					continue
				}
				kept = append(kept, d)
			}
			if !found {
				return nil, jsonstore.ErrNoChange
			}
			return kept, nil
		})
		if err != nil {
			return err
		}
		if found {
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *DocumentJSONFile) All(ctx context.Context) ([]model.Document, error) {
	return r.List(ctx, repository.Filter{})
}
