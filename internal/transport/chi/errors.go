package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
)

// Error codes.
const (
	CodeBadRequest           = "bad_request"
	CodeValidationFailed     = "validation_failed"
	CodeNotFound             = "not_found"
	CodeDuplicateDataset     = "duplicate_dataset"
	CodeAlreadyExists        = "already_exists"
	CodeStageBusy            = "stage_busy"
	CodeStagePrecondition    = "stage_precondition_failed"
	CodeParseFailed          = "parse_failed"
	CodeColumnCoercion       = "column_coercion_failed"
	CodeDimensionConflict    = "dimension_conflict"
	CodeDraftRejected        = "draft_rejected"
	CodeExecutionFailed      = "execution_failed"
	CodeTransient            = "transient_service_error"
	CodeEmbeddingProvider    = "embedding_provider_error"
	CodeCompletionProvider   = "completion_provider_error"
	CodeInternalError        = "internal_error"
	CodePayloadTooLarge      = "payload_too_large"
	CodeUnsupportedMediaType = "unsupported_media_type"
)

// ErrorResponse is the user-visible error body.
type ErrorResponse struct {
	Code        string   `json:"code"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
	ExistingID  string   `json:"existing_id,omitempty"`
}

// newErrorResponse fills the catalogue copy of category and replaces the
// message when detail is non-empty.
func newErrorResponse(code string, category Category, detail string) ErrorResponse {
	remedy := Lookup(category)
	msg := remedy.Message
	if detail != "" {
		msg = detail
	}
	return ErrorResponse{
		Code:        code,
		Category:    category,
		Title:       remedy.Title,
		Message:     msg,
		Suggestions: remedy.Suggestions,
	}
}

func writeError(w http.ResponseWriter, status int, code string, category Category, detail string) {
	writeJSON(w, status, newErrorResponse(code, category, detail))
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// exposeDetail controls whether err.Error() reaches the client.
// Wrapped messages of user-facing errors carry no internals.
func sentinelHandler(sentinel error, status int, code string, exposeDetail bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		detail := ""
		if exposeDetail {
			detail = err.Error()
		}
		writeError(w, status, code, Classify(err), detail)
		return true
	}
}

// duplicateHandler reports the dataset that already holds the uploaded content.
func duplicateHandler(w http.ResponseWriter, err error) bool {
	var dup *domain.DuplicateDatasetError
	if !errors.As(err, &dup) {
		return false
	}
	resp := newErrorResponse(CodeDuplicateDataset, CategoryDataset, err.Error())
	resp.ExistingID = dup.ExistingID
	writeJSON(w, http.StatusConflict, resp)
	return true
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		duplicateHandler,
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed, true),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound, true),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists, true),
		sentinelHandler(domain.ErrStageBusy, http.StatusConflict, CodeStageBusy, true),
		sentinelHandler(domain.ErrStagePrecondition, http.StatusConflict, CodeStagePrecondition, true),
		sentinelHandler(domain.ErrParse, http.StatusUnprocessableEntity, CodeParseFailed, true),
		sentinelHandler(domain.ErrColumnCoercion, http.StatusUnprocessableEntity, CodeColumnCoercion, true),
		sentinelHandler(domain.ErrDimensionConflict, http.StatusConflict, CodeDimensionConflict, true),
		sentinelHandler(domain.ErrDraftRejected, http.StatusUnprocessableEntity, CodeDraftRejected, false),
		sentinelHandler(domain.ErrExecution, http.StatusUnprocessableEntity, CodeExecutionFailed, false),
		sentinelHandler(domain.ErrTransient, http.StatusServiceUnavailable, CodeTransient, false),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProvider, false),
		sentinelHandler(domain.ErrCompletionProviderError, http.StatusBadGateway, CodeCompletionProvider, false),
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Warn("Domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, Classify(err), "")
}
