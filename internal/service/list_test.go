package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docstore/internal/model"
	"docstore/internal/repository"
	repomocks "docstore/internal/repository/mocks"
	storagemocks "docstore/internal/storage/mocks"
)

func expiringDoc(id string, expiry *model.Date, uploadedAt time.Time) model.Document {
	return model.Document{
		ID:         id,
		EntityType: model.EntityDriver,
		EntityID:   "drv-1",
		Category:   model.CategoryLicense,
		SizeBytes:  100,
		ExpiryDate: expiry,
		UploadedAt: uploadedAt,
	}
}

func datePtr(year int, month time.Month, day int) *model.Date {
	d := model.NewDate(year, month, day)
	return &d
}

func TestList_StatusFilter(t *testing.T) {
	store := new(storagemocks.MockStorage)
	repo := new(repomocks.MockDocumentRepository)
	svc := newTestService(store, repo, stubResolver{exists: true})

	now := time.Now()
	past := now.AddDate(-1, 0, 0)
	future := now.AddDate(1, 0, 0)

	docs := []model.Document{
		expiringDoc("expired", datePtr(past.Year(), past.Month(), past.Day()), now),
		expiringDoc("active", datePtr(future.Year(), future.Month(), future.Day()), now),
		expiringDoc("missing", nil, now),
	}
	repo.On("List", mock.Anything, mock.Anything).Return(docs, nil)

	res, err := svc.List(context.Background(), ListQuery{Status: model.StatusExpired})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "expired", res.Items[0].ID)
	assert.Equal(t, model.StatusExpired, res.Items[0].Status)

	// Stats cover the status-filtered set, not the whole repository.
	assert.Equal(t, 1, res.Stats.TotalDocuments)
	assert.Equal(t, 1, res.Stats.ByStatus[model.StatusExpired])
}

func TestList_Pagination(t *testing.T) {
	store := new(storagemocks.MockStorage)
	repo := new(repomocks.MockDocumentRepository)
	svc := newTestService(store, repo, stubResolver{exists: true})

	now := time.Now()
	docs := make([]model.Document, 0, 45)
	for i := 0; i < 45; i++ {
		docs = append(docs, expiringDoc(string(rune('a'+i%26))+string(rune('0'+i/26)), nil, now))
	}
	repo.On("List", mock.Anything, mock.Anything).Return(docs, nil)

	res, err := svc.List(context.Background(), ListQuery{Page: 2, Limit: 20})
	require.NoError(t, err)

	assert.Len(t, res.Items, 20)
	assert.Equal(t, Pagination{
		Page:    2,
		Limit:   20,
		Total:   45,
		Pages:   3,
		HasNext: true,
		HasPrev: true,
	}, res.Pagination)

	// Page past the end comes back empty, not an error.
	res, err = svc.List(context.Background(), ListQuery{Page: 9, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.False(t, res.Pagination.HasNext)
}

func TestList_DefaultAndMaxLimit(t *testing.T) {
	store := new(storagemocks.MockStorage)
	repo := new(repomocks.MockDocumentRepository)
	svc := newTestService(store, repo, stubResolver{exists: true})

	repo.On("List", mock.Anything, mock.Anything).Return([]model.Document{}, nil)

	res, err := svc.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, defaultPageLimit, res.Pagination.Limit)

	res, err = svc.List(context.Background(), ListQuery{Limit: 10_000})
	require.NoError(t, err)
	assert.Equal(t, maxPageLimit, res.Pagination.Limit)
}

func TestStats(t *testing.T) {
	store := new(storagemocks.MockStorage)
	repo := new(repomocks.MockDocumentRepository)
	svc := newTestService(store, repo, stubResolver{exists: true})

	now := time.Now()
	docs := []model.Document{
		expiringDoc("a", nil, now.Add(-2*24*time.Hour)),
		expiringDoc("b", nil, now.Add(-20*24*time.Hour)),
		expiringDoc("c", nil, now.Add(-90*24*time.Hour)),
	}
	docs[2].EntityType = model.EntityVehicle
	docs[2].Category = model.CategoryInsurance

	repo.On("List", mock.Anything, repository.Filter{EntityType: model.EntityDriver}).Return(docs, nil)

	stats, err := svc.Stats(context.Background(), model.EntityDriver)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalDocuments)
	assert.Equal(t, int64(300), stats.TotalSizeBytes)
	assert.Equal(t, 2, stats.ByEntityType[model.EntityDriver])
	assert.Equal(t, 1, stats.ByEntityType[model.EntityVehicle])
	assert.Equal(t, 2, stats.ByCategory[model.CategoryLicense])
	assert.Equal(t, 3, stats.ByStatus[model.StatusMissing])
	assert.Equal(t, 1, stats.RecentUploads.Last7Days)
	assert.Equal(t, 2, stats.RecentUploads.Last30Days)
}

func TestSearch(t *testing.T) {
	store := new(storagemocks.MockStorage)
	repo := new(repomocks.MockDocumentRepository)
	svc := newTestService(store, repo, stubResolver{exists: true})

	docs := []model.Document{
		{ID: "both", DisplayName: "insurance papers", OriginalFilename: "insurance.pdf"},
		{ID: "name-only", DisplayName: "vehicle insurance"},
		{ID: "notes-only", DisplayName: "misc", Notes: "old insurance copy"},
		{ID: "none", DisplayName: "registration"},
	}
	repo.On("All", mock.Anything).Return(docs, nil)

	hits, err := svc.Search(context.Background(), "INSURANCE", 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// The document matching on two fields ranks first.
	assert.Equal(t, "both", hits[0].ID)
	assert.Equal(t, 2, hits[0].Relevance)
	require.Len(t, hits[0].Matches, 2)
}

func TestSearch_EmptyQueryAndLimit(t *testing.T) {
	store := new(storagemocks.MockStorage)
	repo := new(repomocks.MockDocumentRepository)
	svc := newTestService(store, repo, stubResolver{exists: true})

	hits, err := svc.Search(context.Background(), "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
	repo.AssertNotCalled(t, "All")

	docs := make([]model.Document, 15)
	for i := range docs {
		docs[i] = model.Document{ID: string(rune('a' + i)), DisplayName: "report"}
	}
	repo.On("All", mock.Anything).Return(docs, nil)

	hits, err = svc.Search(context.Background(), "report", 0)
	require.NoError(t, err)
	assert.Len(t, hits, defaultSearchLimit)

	hits, err = svc.Search(context.Background(), "report", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 5)
}
