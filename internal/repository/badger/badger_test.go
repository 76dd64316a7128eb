package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstore/internal/model"
	"docstore/internal/repository"
)

func newRepo(t *testing.T) *DocumentBadger {
	t.Helper()
	r, err := NewDocumentBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func doc(id string, entityType model.EntityType, uploadedAt time.Time) model.Document {
	return model.Document{
		ID:          id,
		EntityType:  entityType,
		EntityID:    "e-" + id,
		DisplayName: "Doc " + id,
		Category:    model.CategoryLicense,
		UploadedAt:  uploadedAt,
	}
}

func TestCreateFindDelete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.Create(ctx, doc("a", model.EntityDriver, time.Now()))
	require.NoError(t, err)

	got, err := r.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Doc a", got.DisplayName)

	_, err = r.Create(ctx, doc("a", model.EntityDriver, time.Now()))
	assert.Error(t, err, "duplicate id must be rejected")

	require.NoError(t, r.Delete(ctx, "a"))
	_, err = r.FindByID(ctx, "a")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, "a"), repository.ErrNotFound)
}

func TestList(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := r.Create(ctx, doc("a", model.EntityDriver, base))
	require.NoError(t, err)
	_, err = r.Create(ctx, doc("b", model.EntityVehicle, base.Add(time.Hour)))
	require.NoError(t, err)

	all, err := r.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID, "newest first")

	drivers, err := r.List(ctx, repository.Filter{EntityType: model.EntityDriver})
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, "a", drivers[0].ID)
}

func TestUpdate(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.Create(ctx, doc("a", model.EntityDriver, time.Now()))
	require.NoError(t, err)

	updated, err := r.Update(ctx, "a", func(d *model.Document) error {
		d.Notes = "updated"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", updated.Notes)

	got, err := r.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Notes)

	_, err = r.Update(ctx, "missing", func(d *model.Document) error { return nil })
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
