package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"docstore/internal/model"
	"docstore/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ListQuery narrows and pages a document listing. Status filtering happens
// here rather than in the repository because status is derived at read time.
type ListQuery struct {
	Filter repository.Filter
	Status model.Status
	Page   int
	Limit  int
}

// Pagination describes the returned page.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// ListResult is one page of documents plus aggregate stats over the whole
// filtered set.
type ListResult struct {
	Items      []model.Document `json:"documents"`
	Pagination Pagination       `json:"pagination"`
	Stats      Stats            `json:"stats"`
}

// Stats aggregates counts and sizes. Purely derived; recomputed on each call.
type Stats struct {
	TotalDocuments int                      `json:"total_documents"`
	TotalSizeBytes int64                    `json:"total_size_bytes"`
	ByEntityType   map[model.EntityType]int `json:"by_entity_type"`
	ByCategory     map[model.Category]int   `json:"by_category"`
	ByStatus       map[model.Status]int     `json:"by_status"`
	RecentUploads  RecentUploads            `json:"recent_uploads"`
}

// RecentUploads counts uploads in trailing windows.
type RecentUploads struct {
	Last7Days  int `json:"last_7_days"`
	Last30Days int `json:"last_30_days"`
}

func (s *documentService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	docs, err := s.repo.List(ctx, q.Filter)
	if err != nil {
		return nil, err
	}

	filtered := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		d = s.withStatus(d)
		if q.Status != "" && d.Status != q.Status {
			continue
		}
		filtered = append(filtered, d)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	total := len(filtered)
	pages := (total + limit - 1) / limit
	offset := (page - 1) * limit
	var items []model.Document
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		items = filtered[offset:end]
	} else {
		items = []model.Document{}
	}

	return &ListResult{
		Items: items,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			Pages:   pages,
			HasNext: page < pages,
			HasPrev: page > 1 && total > 0,
		},
		Stats: s.computeStats(filtered),
	}, nil
}

func (s *documentService) Stats(ctx context.Context, t model.EntityType) (*Stats, error) {
	docs, err := s.repo.List(ctx, repository.Filter{EntityType: t})
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i] = s.withStatus(docs[i])
	}
	stats := s.computeStats(docs)
	return &stats, nil
}

func (s *documentService) computeStats(docs []model.Document) Stats {
	stats := Stats{
		TotalDocuments: len(docs),
		ByEntityType:   map[model.EntityType]int{},
		ByCategory:     map[model.Category]int{},
		ByStatus:       map[model.Status]int{},
	}
	now := s.now()
	for _, d := range docs {
		stats.TotalSizeBytes += d.SizeBytes
		stats.ByEntityType[d.EntityType]++
		stats.ByCategory[d.Category]++
		stats.ByStatus[d.Status]++
		age := now.Sub(d.UploadedAt)
		if age <= 7*24*time.Hour {
			stats.RecentUploads.Last7Days++
		}
		if age <= 30*24*time.Hour {
			stats.RecentUploads.Last30Days++
		}
	}
	return stats
}

// SearchHit is one search result with the fields that matched, ordered by
// how many of them did.
type SearchHit struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"display_name"`
	EntityType  model.EntityType `json:"entity_type"`
	EntityID    string           `json:"entity_id"`
	Category    model.Category   `json:"category"`
	Matches     []SearchMatch    `json:"matches"`
	Relevance   int              `json:"relevance"`
}

// SearchMatch names a matched field and its value.
type SearchMatch struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

const defaultSearchLimit = 10

func (s *documentService) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchHit{}, nil
	}
	if limit < 1 {
		limit = defaultSearchLimit
	}

	docs, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	hits := make([]SearchHit, 0)
	for _, d := range docs {
		var matches []SearchMatch
		for _, fv := range []SearchMatch{
			{Field: "display_name", Value: d.DisplayName},
			{Field: "original_filename", Value: d.OriginalFilename},
			{Field: "notes", Value: d.Notes},
		} {
			if fv.Value != "" && strings.Contains(strings.ToLower(fv.Value), q) {
				matches = append(matches, fv)
			}
		}
		if len(matches) == 0 {
			continue
		}
		hits = append(hits, SearchHit{
			ID:          d.ID,
			DisplayName: d.DisplayName,
			EntityType:  d.EntityType,
			EntityID:    d.EntityID,
			Category:    d.Category,
			Matches:     matches,
			Relevance:   len(matches),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Relevance > hits[j].Relevance })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
