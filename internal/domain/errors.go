package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput signals a request that cannot be processed as given.
	ErrInvalidInput = errors.New("invalid input")

	// ErrParse signals that every parse strategy failed for an input file.
	ErrParse = errors.New("parse failed")
	// ErrDimensionConflict signals a non-empty collection bound to another dimension.
	ErrDimensionConflict = errors.New("vector dimension conflict")
	// ErrTransient signals a retryable network fault.
	ErrTransient = errors.New("transient service error")
	// ErrDraftRejected signals an unusable model-drafted query.
	ErrDraftRejected = errors.New("draft query rejected")
	// ErrExecution signals a query failure against a columnar file.
	ErrExecution = errors.New("query execution failed")
	// ErrColumnCoercion signals a column that could not be made columnar-safe.
	ErrColumnCoercion = errors.New("column coercion failed")

	// ErrStageBusy signals a pipeline stage already running for the dataset.
	ErrStageBusy = errors.New("stage is busy")
	// ErrStagePrecondition signals a stage whose upstream stage is not completed.
	ErrStagePrecondition = errors.New("stage precondition not met")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a chat-completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
)

// AttemptFailure is one failed parse strategy.
type AttemptFailure struct {
	Strategy string
	Err      error
}

// ParseError is returned when no strategy produced a table.
type ParseError struct {
	Filename string
	Attempts []AttemptFailure
}

func (e *ParseError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: %s", ErrParse.Error(), e.Filename)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Strategy+": "+a.Err.Error())
	}
	return fmt.Sprintf("%s: %s: %s", ErrParse.Error(), e.Filename, strings.Join(parts, "; "))
}

func (e *ParseError) Unwrap() error { return ErrParse }

// DimensionConflictError reports a collection that holds points of another dimension.
type DimensionConflictError struct {
	Collection string
	Existing   int
	Requested  int
	Points     int
}

func (e *DimensionConflictError) Error() string {
	return fmt.Sprintf("%s: collection %s has dimension %d with %d points, got %d",
		ErrDimensionConflict.Error(), e.Collection, e.Existing, e.Points, e.Requested)
}

func (e *DimensionConflictError) Unwrap() error { return ErrDimensionConflict }

// TransientServiceError is the terminal form of a retryable fault after retries ran out.
type TransientServiceError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransientServiceError) Error() string {
	return fmt.Sprintf("%s: %s failed after %d attempts: %v", ErrTransient.Error(), e.Op, e.Attempts, e.Err)
}

// Unwrap exposes both the sentinel and the last underlying error.
func (e *TransientServiceError) Unwrap() []error { return []error{ErrTransient, e.Err} }

// DraftRejectedError reports why a drafted query was not used.
type DraftRejectedError struct {
	Reason string
}

func (e *DraftRejectedError) Error() string {
	return ErrDraftRejected.Error() + ": " + e.Reason
}

func (e *DraftRejectedError) Unwrap() error { return ErrDraftRejected }

// ExecutionError reports a failed query against one dataset.
type ExecutionError struct {
	DatasetID string
	Query     string
	Err       error
}

func (e *ExecutionError) Error() string {
	if e.DatasetID == "" {
		return fmt.Sprintf("%s: %v", ErrExecution.Error(), e.Err)
	}
	return fmt.Sprintf("%s: dataset %s: %v", ErrExecution.Error(), e.DatasetID, e.Err)
}

// Unwrap exposes both the sentinel and the underlying error.
func (e *ExecutionError) Unwrap() []error { return []error{ErrExecution, e.Err} }

// ColumnCoercionError names the column that broke the columnar-safety pass.
type ColumnCoercionError struct {
	Column string
	Err    error
}

func (e *ColumnCoercionError) Error() string {
	return fmt.Sprintf("%s: column %q: %v", ErrColumnCoercion.Error(), e.Column, e.Err)
}

// Unwrap exposes both the sentinel and the underlying error.
func (e *ColumnCoercionError) Unwrap() []error { return []error{ErrColumnCoercion, e.Err} }

// DuplicateDatasetError is returned when an upload matches an existing content hash.
type DuplicateDatasetError struct {
	ExistingID string
}

func (e *DuplicateDatasetError) Error() string {
	return fmt.Sprintf("dataset %s: identical file already uploaded as %s", ErrAlreadyExists.Error(), e.ExistingID)
}

func (e *DuplicateDatasetError) Unwrap() error { return ErrAlreadyExists }
