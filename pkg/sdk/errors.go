package tablens

import (
	"errors"

	"github.com/kailas-cloud/tablens/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrAlreadyExists     = domain.ErrAlreadyExists
	ErrInvalidInput      = domain.ErrInvalidInput
	ErrParse             = domain.ErrParse
	ErrDimensionConflict = domain.ErrDimensionConflict
	ErrTransient         = domain.ErrTransient
	ErrExecution         = domain.ErrExecution
	ErrStageBusy         = domain.ErrStageBusy
	ErrStagePrecondition = domain.ErrStagePrecondition
)

// ErrStageFailed is returned by Wait when a pipeline stage ends failed.
var ErrStageFailed = errors.New("tablens: pipeline stage failed")
