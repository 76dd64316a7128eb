package mocks

import (
	"context"
	"io"

	"docstore/internal/model"
	"docstore/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, req service.UploadRequest) (model.Document, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, q service.ListQuery) (*service.ListResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id string) (model.Document, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Document), args.Error(1)
}

func (m *MockDocumentService) Download(ctx context.Context, id string) (*service.Download, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}

func (m *MockDocumentService) Update(ctx context.Context, id string, req service.UpdateRequest) (model.Document, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(model.Document), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentService) BulkDelete(ctx context.Context, ids []string) (*service.BulkDeleteResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BulkDeleteResult), args.Error(1)
}

func (m *MockDocumentService) Stats(ctx context.Context, t model.EntityType) (*service.Stats, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Stats), args.Error(1)
}

func (m *MockDocumentService) Search(ctx context.Context, query string, limit int) ([]service.SearchHit, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.SearchHit), args.Error(1)
}

func (m *MockDocumentService) BulkDownload(ctx context.Context, ids []string) (*service.Archive, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Archive), args.Error(1)
}

func (m *MockDocumentService) StreamArchive(ctx context.Context, w io.Writer, a *service.Archive) error {
	args := m.Called(ctx, w, a)
	return args.Error(0)
}

func (m *MockDocumentService) Usage(ctx context.Context) (*service.UsageReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UsageReport), args.Error(1)
}
