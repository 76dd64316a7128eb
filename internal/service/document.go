package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"docstore/internal/audit"
	"docstore/internal/config"
	"docstore/internal/entities"
	"docstore/internal/model"
	"docstore/internal/repository"
	"docstore/internal/storage"
	"docstore/internal/validate"
)

var (
	ErrIDRequired          = errors.New("document id is required")
	ErrNotFound            = errors.New("document not found")
	ErrDisplayNameRequired = errors.New("display name is required")
	ErrDisplayNameTooLong  = errors.New("display name exceeds 200 characters")
	ErrBadCategory         = errors.New("unknown document category")
	ErrEntityIDRequired    = errors.New("entity id is required for drivers and vehicles")
	ErrEntityNotFound      = errors.New("owning entity does not exist")
)

const maxDisplayNameLen = 200

// UploadRequest carries one upload through the service.
type UploadRequest struct {
	File        io.ReadSeeker
	Filename    string
	EntityType  model.EntityType
	EntityID    string
	DisplayName string
	Category    model.Category
	Notes       string
	ExpiryDate  *model.Date
	UploadedBy  string
}

// UpdateRequest mutates metadata fields only. Identity, stored filename and
// file path are immutable after upload.
type UpdateRequest struct {
	DisplayName string
	Category    model.Category
	Notes       string
	ExpiryDate  *model.Date
	// ClearExpiry removes the expiry date when ExpiryDate is nil.
	ClearExpiry bool
}

// Download is a resolved document stream.
type Download struct {
	Document model.Document
	Content  io.ReadCloser
}

// BulkDeleteResult reports a bulk delete outcome per id.
type BulkDeleteResult struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// UsageReport summarizes physical storage consumption.
type UsageReport struct {
	ObjectCount    int   `json:"object_count"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
	DocumentCount  int   `json:"document_count"`
}

// DocumentService defines the document use cases. It is the only component
// allowed to mutate both blob storage and metadata, which is what keeps the
// two in agreement.
type DocumentService interface {
	Upload(ctx context.Context, req UploadRequest) (model.Document, error)
	List(ctx context.Context, q ListQuery) (*ListResult, error)
	Get(ctx context.Context, id string) (model.Document, error)
	Download(ctx context.Context, id string) (*Download, error)
	Update(ctx context.Context, id string, req UpdateRequest) (model.Document, error)
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) (*BulkDeleteResult, error)
	Stats(ctx context.Context, t model.EntityType) (*Stats, error)
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
	BulkDownload(ctx context.Context, ids []string) (*Archive, error)
	StreamArchive(ctx context.Context, w io.Writer, a *Archive) error
	Usage(ctx context.Context) (*UsageReport, error)
}

type documentService struct {
	store    storage.Storage
	repo     repository.DocumentRepository
	resolver entities.Resolver
	audit    audit.Recorder
	log      *slog.Logger

	policy     validate.Policy
	warnWindow time.Duration
	bulkMax    int

	now func() time.Time
}

// NewDocumentService constructs the service facade.
func NewDocumentService(
	store storage.Storage,
	repo repository.DocumentRepository,
	resolver entities.Resolver,
	rec audit.Recorder,
	log *slog.Logger,
	cfg *config.AppConfig,
) DocumentService {
	return &documentService{
		store:      store,
		repo:       repo,
		resolver:   resolver,
		audit:      rec,
		log:        log,
		policy:     validate.Documents(cfg.Upload.MaxSizeBytes),
		warnWindow: time.Duration(cfg.Upload.ExpiryWarningDays) * 24 * time.Hour,
		bulkMax:    cfg.BulkDownloadMax,
		now:        time.Now,
	}
}

// withStatus derives the read-time status; the stored record never carries one.
func (s *documentService) withStatus(doc model.Document) model.Document {
	doc.Status = model.DeriveStatus(doc.ExpiryDate, s.now(), s.warnWindow)
	return doc
}

func (s *documentService) Upload(ctx context.Context, req UploadRequest) (model.Document, error) {
	if err := validateUploadFields(req); err != nil {
		return model.Document{}, err
	}

	if req.EntityType.RequiresEntityID() {
		ok, err := s.resolver.Exists(ctx, req.EntityType, req.EntityID)
		if err != nil {
			return model.Document{}, fmt.Errorf("resolve entity: %w", err)
		}
		if !ok {
			return model.Document{}, ErrEntityNotFound
		}
	}

	// Policy validation happens before any storage I/O.
	res, err := validate.Check(req.File, req.Filename, s.policy)
	if err != nil {
		return model.Document{}, err
	}

	now := s.now().UTC()
	sanitized := storage.SanitizeFilename(req.Filename)
	stored := storage.NewStoredFilename(sanitized, now)
	key := storage.BuildKey(req.EntityType, req.EntityID, stored)

	// Disk write first; the metadata append is the commit step. A failed
	// write leaves no record, a failed append leaves an orphaned file for
	// the sweeper.
	if _, err := s.store.Put(ctx, key, req.File, res.SizeBytes); err != nil {
		return model.Document{}, fmt.Errorf("store upload: %w", err)
	}

	doc := model.Document{
		ID:               uuid.NewString(),
		EntityType:       req.EntityType,
		EntityID:         req.EntityID,
		DisplayName:      req.DisplayName,
		OriginalFilename: req.Filename,
		StoredFilename:   stored,
		Category:         req.Category,
		MimeType:         res.MimeType,
		SizeBytes:        res.SizeBytes,
		SHA256:           res.SHA256,
		FilePath:         key,
		UploadedBy:       req.UploadedBy,
		Notes:            req.Notes,
		ExpiryDate:       req.ExpiryDate,
		UploadedAt:       now,
		UpdatedAt:        now,
	}
	created, err := s.repo.Create(ctx, doc)
	if err != nil {
		s.log.Warn("metadata append failed after disk write; orphan left for sweeper",
			"file_path", key, "error", err)
		return model.Document{}, fmt.Errorf("save document metadata: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		Action:     "upload",
		Resource:   "document",
		ResourceID: created.ID,
		Actor:      req.UploadedBy,
		Details: map[string]any{
			"entity_type": created.EntityType,
			"entity_id":   created.EntityID,
			"filename":    created.OriginalFilename,
			"size_bytes":  created.SizeBytes,
			"category":    created.Category,
		},
	})
	return s.withStatus(created), nil
}

func validateUploadFields(req UploadRequest) error {
	if req.File == nil {
		return &validate.Error{Code: validate.CodeEmptyFile, Detail: "no file provided"}
	}
	if req.DisplayName == "" {
		return ErrDisplayNameRequired
	}
	if len([]rune(req.DisplayName)) > maxDisplayNameLen {
		return ErrDisplayNameTooLong
	}
	if !req.Category.Valid() {
		return ErrBadCategory
	}
	if req.EntityType.RequiresEntityID() && req.EntityID == "" {
		return ErrEntityIDRequired
	}
	return nil
}

func (s *documentService) Get(ctx context.Context, id string) (model.Document, error) {
	if id == "" {
		return model.Document{}, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Document{}, ErrNotFound
	}
	if err != nil {
		return model.Document{}, err
	}
	return s.withStatus(doc), nil
}

func (s *documentService) Download(ctx context.Context, id string) (*Download, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rc, _, err := s.store.Get(ctx, doc.FilePath)
	if errors.Is(err, storage.ErrNotFound) {
		// Metadata without a file is a detectable inconsistency; surface it
		// as not-found and leave the record for the sweeper.
		s.log.Error("document file missing on disk", "id", doc.ID, "file_path", doc.FilePath)
		return nil, fmt.Errorf("%s: %w", doc.FilePath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", id, err)
	}
	s.audit.Record(ctx, audit.Event{
		Action:     "download",
		Resource:   "document",
		ResourceID: doc.ID,
		Details:    map[string]any{"filename": doc.OriginalFilename},
	})
	return &Download{Document: doc, Content: rc}, nil
}

func (s *documentService) Update(ctx context.Context, id string, req UpdateRequest) (model.Document, error) {
	if id == "" {
		return model.Document{}, ErrIDRequired
	}
	if req.DisplayName == "" {
		return model.Document{}, ErrDisplayNameRequired
	}
	if len([]rune(req.DisplayName)) > maxDisplayNameLen {
		return model.Document{}, ErrDisplayNameTooLong
	}
	if req.Category != "" && !req.Category.Valid() {
		return model.Document{}, ErrBadCategory
	}

	doc, err := s.repo.Update(ctx, id, func(d *model.Document) error {
		d.DisplayName = req.DisplayName
		if req.Category != "" {
			d.Category = req.Category
		}
		d.Notes = req.Notes
		if req.ExpiryDate != nil {
			d.ExpiryDate = req.ExpiryDate
		} else if req.ClearExpiry {
			d.ExpiryDate = nil
		}
		d.UpdatedAt = s.now().UTC()
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return model.Document{}, ErrNotFound
	}
	if err != nil {
		return model.Document{}, err
	}
	return s.withStatus(doc), nil
}

func (s *documentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	// Unlink first, then remove metadata regardless of the unlink outcome:
	// the end state "no record, no file" is reached either way. A file that
	// is already gone is not a caller-visible error.
	if err := s.store.Delete(ctx, doc.FilePath); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Info("document file already gone", "id", id, "file_path", doc.FilePath)
		} else {
			s.log.Warn("document file unlink failed; metadata removed anyway",
				"id", id, "file_path", doc.FilePath, "error", err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		Action:     "delete",
		Resource:   "document",
		ResourceID: id,
		Details: map[string]any{
			"entity_type": doc.EntityType,
			"entity_id":   doc.EntityID,
			"filename":    doc.OriginalFilename,
		},
	})
	return nil
}

func (s *documentService) BulkDelete(ctx context.Context, ids []string) (*BulkDeleteResult, error) {
	res := &BulkDeleteResult{Failed: map[string]string{}}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			res.Failed[id] = err.Error()
			continue
		}
		res.Deleted = append(res.Deleted, id)
	}
	if len(res.Failed) == 0 {
		res.Failed = nil
	}
	return res, nil
}

func (s *documentService) Usage(ctx context.Context) (*UsageReport, error) {
	report := &UsageReport{}
	err := s.store.Walk(ctx, func(info storage.ObjectInfo) error {
		report.ObjectCount++
		report.TotalSizeBytes += info.Size
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk storage: %w", err)
	}
	docs, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	report.DocumentCount = len(docs)
	return report, nil
}
