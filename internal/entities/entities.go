// Package entities answers "does this driver/vehicle exist?" for the
// document service. The driver and vehicle records themselves are owned by
// the fleet-management side of the system; this package only reads their
// collections.
package entities

import (
	"context"
	"encoding/json"
	"fmt"

	"docstore/internal/jsonstore"
	"docstore/internal/model"
)

// Resolver reports whether an entity id refers to a real record.
type Resolver interface {
	Exists(ctx context.Context, t model.EntityType, id string) (bool, error)
}

// record is the minimal shape shared by driver and vehicle records; only the
// id matters here.
type record struct {
	ID string `json:"id"`
}

// JSONResolver resolves entities against the jsonstore collections the fleet
// side maintains (drivers.json, vehicles.json).
type JSONResolver struct {
	store *jsonstore.Store
}

// NewJSONResolver creates a resolver over the shared data directory.
func NewJSONResolver(store *jsonstore.Store) *JSONResolver {
	return &JSONResolver{store: store}
}

var _ Resolver = (*JSONResolver)(nil)

func (r *JSONResolver) Exists(ctx context.Context, t model.EntityType, id string) (bool, error) {
	var collection string
	switch t {
	case model.EntityDriver:
		collection = "drivers"
	case model.EntityVehicle:
		collection = "vehicles"
	case model.EntityOther:
		// "other" documents have no owning record to check.
		return true, nil
	default:
		return false, fmt.Errorf("unknown entity type %q", t)
	}

	records, err := jsonstore.ReadAll[json.RawMessage](ctx, r.store, collection)
	if err != nil {
		return false, err
	}
	for _, raw := range records {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// AllowAll is a Resolver that accepts every entity id. Used when the fleet
// collections are not co-located with the document service (badger/postgres
// deployments) and existence is enforced upstream.
type AllowAll struct{}

func (AllowAll) Exists(ctx context.Context, t model.EntityType, id string) (bool, error) {
	return true, nil
}
