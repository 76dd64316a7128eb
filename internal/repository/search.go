package repository

import (
	"sort"
	"strings"

	"docstore/internal/model"
)

func matchesSearch(doc model.Document, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(doc.DisplayName), q) ||
		strings.Contains(strings.ToLower(doc.OriginalFilename), q) ||
		strings.Contains(strings.ToLower(doc.Notes), q)
}

// SortNewestFirst orders docs by upload time descending, id as tiebreaker so
// the order is stable across backends.
func SortNewestFirst(docs []model.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].ID > docs[j].ID
	})
}
