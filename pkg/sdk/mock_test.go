package tablens

import (
	"context"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/domain/column"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
	askuc "github.com/kailas-cloud/tablens/internal/usecase/ask"
	healthuc "github.com/kailas-cloud/tablens/internal/usecase/health"
	"github.com/kailas-cloud/tablens/internal/usecase/ingest"
)

// --- datasetUseCase mock ---

type mockDatasetUC struct {
	uploadFn  func(ctx context.Context, in ingest.Upload) (domds.Dataset, error)
	getFn     func(ctx context.Context, id uuid.UUID) (domds.Dataset, error)
	listFn    func(ctx context.Context) ([]domds.Dataset, error)
	columnsFn func(ctx context.Context, id uuid.UUID) ([]column.Column, error)
	retryFn   func(ctx context.Context, id uuid.UUID, stage domds.Stage) (domds.Dataset, error)
	deleteFn  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockDatasetUC) Upload(ctx context.Context, in ingest.Upload) (domds.Dataset, error) {
	return m.uploadFn(ctx, in)
}

func (m *mockDatasetUC) Get(ctx context.Context, id uuid.UUID) (domds.Dataset, error) {
	return m.getFn(ctx, id)
}

func (m *mockDatasetUC) List(ctx context.Context) ([]domds.Dataset, error) {
	return m.listFn(ctx)
}

func (m *mockDatasetUC) Columns(ctx context.Context, id uuid.UUID) ([]column.Column, error) {
	return m.columnsFn(ctx, id)
}

func (m *mockDatasetUC) Retry(ctx context.Context, id uuid.UUID, stage domds.Stage) (domds.Dataset, error) {
	return m.retryFn(ctx, id, stage)
}

func (m *mockDatasetUC) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, query string, topK int, datasetID *uuid.UUID) ([]dompoint.Ranked, error)
}

func (m *mockSearchUC) Search(
	ctx context.Context, query string, topK int, datasetID *uuid.UUID,
) ([]dompoint.Ranked, error) {
	return m.searchFn(ctx, query, topK, datasetID)
}

// --- askUseCase mock ---

type mockAskUC struct {
	askFn func(ctx context.Context, req askuc.Request) (askuc.Answer, error)
}

func (m *mockAskUC) Ask(ctx context.Context, req askuc.Request) (askuc.Answer, error) {
	return m.askFn(ctx, req)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthUC) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}

// --- embedder mock ---

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.embedFn(ctx, text)
}
