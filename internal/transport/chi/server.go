package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
	"github.com/kailas-cloud/tablens/internal/domain/column"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
	askuc "github.com/kailas-cloud/tablens/internal/usecase/ask"
	healthuc "github.com/kailas-cloud/tablens/internal/usecase/health"
	"github.com/kailas-cloud/tablens/internal/usecase/ingest"
)

// Paging and request limits.
const (
	defaultPageSize   = 50
	maxPageSize       = 200
	defaultSearchTopK = 10
	maxSearchTopK     = 100
	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
)

// Datasets is the ingestion surface used by the dataset routes.
type Datasets interface {
	Upload(ctx context.Context, in ingest.Upload) (domds.Dataset, error)
	Get(ctx context.Context, id uuid.UUID) (domds.Dataset, error)
	List(ctx context.Context) ([]domds.Dataset, error)
	Columns(ctx context.Context, id uuid.UUID) ([]column.Column, error)
	Retry(ctx context.Context, id uuid.UUID, stage domds.Stage) (domds.Dataset, error)
	MarkFailed(ctx context.Context, id uuid.UUID, stage domds.Stage, reason string) (domds.Dataset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ColumnSearcher runs similarity search over column descriptions.
type ColumnSearcher interface {
	Search(ctx context.Context, query string, topK int, datasetID *uuid.UUID) ([]dompoint.Ranked, error)
}

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, req askuc.Request) (askuc.Answer, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server implements ServerInterface.
type Server struct {
	datasets       Datasets
	search         ColumnSearcher
	ask            Asker
	health         HealthChecker
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. maxUploadBytes bounds the request
// body of an upload; 0 uses the ingest default.
func NewServer(
	datasets Datasets,
	search ColumnSearcher,
	ask Asker,
	health HealthChecker,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = ingest.DefaultMaxUploadBytes
	}
	return &Server{
		datasets:       datasets,
		search:         search,
		ask:            ask,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
		errorHandlers:  defaultErrorHandlers(),
	}
}

// --- Datasets ---

// UploadDataset handles POST /datasets (multipart: file, logical_name).
func (s *Server) UploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, CategoryFile,
				fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
		case errors.Is(err, http.ErrNotMultipart):
			writeError(w, http.StatusUnsupportedMediaType, CodeUnsupportedMediaType, CategoryFile,
				"upload must be multipart/form-data with a file field")
		default:
			writeError(w, http.StatusBadRequest, CodeBadRequest, CategoryFile, "Invalid multipart body: "+err.Error())
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, CategoryFile, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, CategoryFile, "Read upload: "+err.Error())
		return
	}

	ds, err := s.datasets.Upload(r.Context(), ingest.Upload{
		Filename:    header.Filename,
		LogicalName: r.FormValue("logical_name"),
		Data:        data,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/datasets/"+ds.ID.String())
	writeJSON(w, http.StatusAccepted, ds)
}

// DatasetListResponse is one page of datasets.
type DatasetListResponse struct {
	Items  []domds.Dataset `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ListDatasets handles GET /datasets.
func (s *Server) ListDatasets(w http.ResponseWriter, r *http.Request, params ListDatasetsParams) {
	limit := defaultPageSize
	if params.Limit != nil {
		limit = *params.Limit
	}
	offset := 0
	if params.Offset != nil {
		offset = *params.Offset
	}
	if limit <= 0 || limit > maxPageSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, CategoryUnknown,
			fmt.Sprintf("limit must be between 1 and %d", maxPageSize))
		return
	}
	if offset < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, CategoryUnknown, "offset must not be negative")
		return
	}

	all, err := s.datasets.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	start := min(offset, len(all))
	end := min(start+limit, len(all))
	writeJSON(w, http.StatusOK, DatasetListResponse{
		Items:  all[start:end],
		Total:  len(all),
		Limit:  limit,
		Offset: offset,
	})
}

// GetDataset handles GET /datasets/{id}.
func (s *Server) GetDataset(w http.ResponseWriter, r *http.Request, id DatasetID) {
	ds, err := s.datasets.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// DeleteDataset handles DELETE /datasets/{id}.
func (s *Server) DeleteDataset(w http.ResponseWriter, r *http.Request, id DatasetID) {
	if err := s.datasets.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ColumnListResponse lists the inferred columns of a dataset.
type ColumnListResponse struct {
	DatasetID uuid.UUID       `json:"dataset_id"`
	Columns   []column.Column `json:"columns"`
}

// ListColumns handles GET /datasets/{id}/columns.
func (s *Server) ListColumns(w http.ResponseWriter, r *http.Request, id DatasetID) {
	cols, err := s.datasets.Columns(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if cols == nil {
		cols = []column.Column{}
	}
	writeJSON(w, http.StatusOK, ColumnListResponse{DatasetID: id, Columns: cols})
}

// RetryStage handles POST /datasets/{id}/stages/{stage}/retry.
func (s *Server) RetryStage(w http.ResponseWriter, r *http.Request, id DatasetID, stage StageName) {
	st, err := domds.ParseStage(stage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	ds, err := s.datasets.Retry(r.Context(), id, st)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ds)
}

// FailStageRequest is the optional body of the fail route.
type FailStageRequest struct {
	Reason string `json:"reason"`
}

// FailStage handles POST /datasets/{id}/stages/{stage}/fail.
func (s *Server) FailStage(w http.ResponseWriter, r *http.Request, id DatasetID, stage StageName) {
	st, err := domds.ParseStage(stage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	var req FailStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, CategoryUnknown, "Invalid request body: "+err.Error())
		return
	}
	ds, err := s.datasets.MarkFailed(r.Context(), id, st, req.Reason)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// --- Retrieval ---

// SearchColumnsRequest is the body of POST /search/columns.
type SearchColumnsRequest struct {
	Query     string     `json:"query"`
	TopK      *int       `json:"top_k,omitempty"`
	DatasetID *uuid.UUID `json:"dataset_id,omitempty"`
}

// ColumnHit is one search result.
type ColumnHit struct {
	DatasetID   uuid.UUID   `json:"dataset_id"`
	Column      string      `json:"column"`
	Label       string      `json:"label,omitempty"`
	Type        column.Type `json:"type"`
	Description string      `json:"description"`
	Score       float64     `json:"score"`
	Collection  string      `json:"collection"`
}

// SearchColumnsResponse lists the hits best first.
type SearchColumnsResponse struct {
	Hits []ColumnHit `json:"hits"`
}

// SearchColumns handles POST /search/columns.
func (s *Server) SearchColumns(w http.ResponseWriter, r *http.Request) {
	var req SearchColumnsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, CategoryUnknown, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, CategoryUnknown, "query is required")
		return
	}
	topK := defaultSearchTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK <= 0 || topK > maxSearchTopK {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, CategoryUnknown,
			fmt.Sprintf("top_k must be between 1 and %d", maxSearchTopK))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ranked, err := s.search.Search(ctx, req.Query, topK, req.DatasetID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hits := make([]ColumnHit, len(ranked))
	for i, h := range ranked {
		hits[i] = ColumnHit{
			DatasetID:   h.DatasetID,
			Column:      h.Column.Name,
			Label:       h.Column.Label,
			Type:        h.Column.Type,
			Description: h.Description,
			Score:       h.Score,
			Collection:  h.Collection,
		}
	}
	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchColumnsResponse{Hits: hits})
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question   string      `json:"question"`
	DatasetIDs []uuid.UUID `json:"dataset_ids,omitempty"`
}

// Ask handles POST /ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, CategoryUnknown, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	answer, err := s.ask.Ask(ctx, askuc.Request{Question: req.Question, DatasetIDs: req.DatasetIDs})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, answer)
}

// --- Operations ---

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  healthuc.Status                 `json:"status"`
	Version string                          `json:"version"`
	Checks  map[string]healthuc.CheckResult `json:"checks"`
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: report.Status, Version: report.Version, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.ModelUsage) {
	if n := usage.EmbeddingTokens(); n > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(n))
	}
	if n := usage.CompletionCalls(); n > 0 {
		w.Header().Set("X-Completion-Calls", strconv.Itoa(n))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
