package service

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"docstore/internal/audit"
	"docstore/internal/model"
	"docstore/internal/repository"
	"docstore/internal/storage"
)

var (
	// ErrTooManyDocuments means the bulk request exceeded the configured cap.
	ErrTooManyDocuments = errors.New("too many documents requested")
	// ErrEmptyArchive means no requested document could be included.
	ErrEmptyArchive = errors.New("no documents available for archive")
)

// SkippedDocument names a document that could not be added to an archive.
type SkippedDocument struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ArchiveReport summarizes a bulk download. A non-empty Skipped list is a
// partial success, not a failure.
type ArchiveReport struct {
	Included int               `json:"included"`
	Skipped  []SkippedDocument `json:"skipped,omitempty"`
}

// Archive is a resolved bulk download: the documents that will be streamed
// plus the ones that could not be included. Resolution happens before any
// archive byte is produced, so the HTTP layer can report the skip list in
// response headers and then stream the body.
type Archive struct {
	Report  *ArchiveReport
	entries []model.Document
}

// BulkDownload resolves the requested ids into an Archive. Documents whose
// record or file is missing are skipped and reported so one bad id does not
// abort the whole download. The file bytes are not touched here; call
// StreamArchive to produce the ZIP.
func (s *documentService) BulkDownload(ctx context.Context, ids []string) (*Archive, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyArchive
	}
	if len(ids) > s.bulkMax {
		return nil, fmt.Errorf("%w: %d requested, limit is %d", ErrTooManyDocuments, len(ids), s.bulkMax)
	}

	a := &Archive{Report: &ArchiveReport{}}
	for _, id := range ids {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		doc, err := s.repo.FindByID(ctx, id)
		if err != nil {
			reason := "record not found"
			if !errors.Is(err, repository.ErrNotFound) {
				reason = "metadata read failed"
				s.log.Warn("bulk download metadata read failed", "id", id, "error", err)
			}
			a.Report.Skipped = append(a.Report.Skipped, SkippedDocument{ID: id, Reason: reason})
			continue
		}

		if _, err := s.store.Stat(ctx, doc.FilePath); err != nil {
			reason := "file missing"
			if !errors.Is(err, storage.ErrNotFound) {
				reason = "file read failed"
			}
			s.log.Warn("bulk download skipping document", "id", id, "reason", reason, "error", err)
			a.Report.Skipped = append(a.Report.Skipped, SkippedDocument{ID: id, Reason: reason})
			continue
		}

		a.entries = append(a.entries, doc)
		a.Report.Included++
	}

	if a.Report.Included == 0 {
		return a, ErrEmptyArchive
	}

	s.audit.Record(ctx, audit.Event{
		Action:   "bulk_download",
		Resource: "documents",
		Details: map[string]any{
			"included": a.Report.Included,
			"skipped":  len(a.Report.Skipped),
		},
	})
	return a, nil
}

// StreamArchive writes the resolved documents into w as a ZIP, entry by
// entry, so the full archive never sits in memory. A file that disappears
// between resolution and streaming is logged and left out; the skip list has
// already been reported by then.
func (s *documentService) StreamArchive(ctx context.Context, w io.Writer, a *Archive) error {
	zw := zip.NewWriter(w)
	used := map[string]bool{}

	for _, doc := range a.entries {
		if ctx.Err() != nil {
			zw.Close()
			return ctx.Err()
		}
		rc, _, err := s.store.Get(ctx, doc.FilePath)
		if err != nil {
			s.log.Warn("archive entry vanished after resolution", "id", doc.ID, "error", err)
			continue
		}
		entry, err := zw.Create(archiveEntryName(used, doc.OriginalFilename))
		if err != nil {
			rc.Close()
			zw.Close()
			return fmt.Errorf("create archive entry: %w", err)
		}
		if _, err := io.Copy(entry, rc); err != nil {
			rc.Close()
			zw.Close()
			return fmt.Errorf("stream archive entry: %w", err)
		}
		rc.Close()
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// archiveEntryName returns name, or "name (n).ext" if name was already used,
// so two documents with the same original filename never overwrite each
// other inside the archive.
func archiveEntryName(used map[string]bool, name string) string {
	name = path.Base(name)
	if name == "" || name == "." || name == "/" {
		name = "document"
	}
	candidate := name
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
	used[candidate] = true
	return candidate
}
