package jsonfile

import (
	"context"
	"errors"
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
	"docstore/internal/repository"
)

func newRepo(t *testing.T) *DocumentJSONFile {
	t.Helper()
	store, err := jsonstore.New(config.StoreConfig{
		DataDir:             t.TempDir(),
		LockTimeout:         2 * time.Second,
		BackupRetentionDays: 7,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return NewDocumentJSONFile(store)
}

func doc(id string, t model.EntityType, entityID string, uploadedAt time.Time) model.Document {
	return model.Document{
		ID:               id,
		EntityType:       t,
		EntityID:         entityID,
		DisplayName:      "Doc " + id,
		OriginalFilename: id + ".pdf",
		Category:         model.CategoryLicense,
		UploadedAt:       uploadedAt,
	}
}

func TestCreateAndFindByID(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	d := doc("a", model.EntityDriver, "drv-1", time.Now())
	_, err := r.Create(ctx, d)
	require.NoError(t, err)

	got, err := r.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "drv-1", got.EntityID)
	assert.Equal(t, model.EntityDriver, got.EntityType)

	_, err = r.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreate_DuplicateID(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	d := doc("a", model.EntityDriver, "drv-1", time.Now())
	_, err := r.Create(ctx, d)
	require.NoError(t, err)

	_, err = r.Create(ctx, d)
	assert.Error(t, err)
}

func TestCollectionLayout(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.Create(ctx, doc("a", model.EntityDriver, "drv-1", time.Now()))
	require.NoError(t, err)
	_, err = r.Create(ctx, doc("b", model.EntityVehicle, "veh-1", time.Now()))
	require.NoError(t, err)

	// Records land in the per-entity-type collection file.
	_, err = os.Stat(r.store.Path("driver_documents"))
	assert.NoError(t, err)
	_, err = os.Stat(r.store.Path("vehicle_documents"))
	assert.NoError(t, err)
}

func TestList_FiltersAndOrder(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	older := doc("old", model.EntityDriver, "drv-1", base)
	newer := doc("new", model.EntityDriver, "drv-1", base.Add(time.Hour))
	other := doc("veh", model.EntityVehicle, "veh-1", base.Add(2*time.Hour))
	other.Category = model.CategoryInsurance
	for _, d := range []model.Document{older, newer, other} {
		_, err := r.Create(ctx, d)
		require.NoError(t, err)
	}

	all, err := r.List(ctx, repository.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"veh", "new", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})

	drivers, err := r.List(ctx, repository.Filter{EntityType: model.EntityDriver})
	require.NoError(t, err)
	assert.Len(t, drivers, 2)

	insurance, err := r.List(ctx, repository.Filter{Category: model.CategoryInsurance})
	require.NoError(t, err)
	require.Len(t, insurance, 1)
	assert.Equal(t, "veh", insurance[0].ID)

	byEntity, err := r.List(ctx, repository.Filter{EntityID: "veh-1"})
	require.NoError(t, err)
	assert.Len(t, byEntity, 1)
}

func TestList_Search(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	d := doc("a", model.EntityDriver, "drv-1", time.Now())
	d.DisplayName = "رخصة القيادة"
	d.Notes = "renewed in March"
	_, err := r.Create(ctx, d)
	require.NoError(t, err)

	hits, err := r.List(ctx, repository.Filter{Search: "رخصة"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = r.List(ctx, repository.Filter{Search: "MARCH"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = r.List(ctx, repository.Filter{Search: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUpdate(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.Create(ctx, doc("a", model.EntityVehicle, "veh-1", time.Now()))
	require.NoError(t, err)

	updated, err := r.Update(ctx, "a", func(d *model.Document) error {
		d.DisplayName = "Renamed"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.DisplayName)

	got, err := r.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.DisplayName)

	_, err = r.Update(ctx, "missing", func(d *model.Document) error { return nil })
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdate_MutateErrorLeavesRecord(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.Create(ctx, doc("a", model.EntityDriver, "drv-1", time.Now()))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = r.Update(ctx, "a", func(d *model.Document) error {
		d.DisplayName = "should not persist"
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := r.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Doc a", got.DisplayName)
}

func TestMutationsLeaveOtherCollectionsUntouched(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	// An "other" document forces Update and Delete to visit the driver and
	// vehicle collections first.
	_, err := r.Create(ctx, doc("a", model.EntityOther, "", time.Now()))
	require.NoError(t, err)

	_, err = r.Update(ctx, "a", func(d *model.Document) error {
		d.Notes = "updated"
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, "a"))

	// Collections the id was never in are not rewritten, not even as empty
	// files.
	_, err = os.Stat(r.store.Path("driver_documents"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(r.store.Path("vehicle_documents"))
	assert.True(t, os.IsNotExist(err))
}

func TestDelete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.Create(ctx, doc("a", model.EntityOther, "", time.Now()))
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, "a"))

	_, err = r.FindByID(ctx, "a")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, r.Delete(ctx, "a"), repository.ErrNotFound)
}
