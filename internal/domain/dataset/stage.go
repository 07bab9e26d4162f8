package dataset

import (
	"fmt"

	"github.com/kailas-cloud/tablens/internal/domain"
)

// Stage names one of the three pipeline stages.
type Stage string

const (
	// StageParse reads the raw file into a table and schema.
	StageParse Stage = "parse"
	// StageChunk builds per-column descriptions.
	StageChunk Stage = "chunk"
	// StageVectorize embeds descriptions into the vector index.
	StageVectorize Stage = "vectorize"
)

// Stages lists the stages in pipeline order.
var Stages = []Stage{StageParse, StageChunk, StageVectorize}

// ParseStage converts a path segment into a Stage.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageParse, StageChunk, StageVectorize:
		return Stage(s), nil
	default:
		return "", fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidInput, s)
	}
}

// Downstream returns the stage itself followed by every later stage.
func (s Stage) Downstream() []Stage {
	for i, st := range Stages {
		if st == s {
			return Stages[i:]
		}
	}
	return nil
}

// State is the lifecycle state of a stage.
type State string

const (
	// StatePending means the stage has not started.
	StatePending State = "pending"
	// StateRunning means a background task owns the stage.
	StateRunning State = "running"
	// StateCompleted means the stage finished.
	StateCompleted State = "completed"
	// StateFailed means the stage stopped with an error.
	StateFailed State = "failed"
)

// IsValid checks if the state is known.
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateRunning, StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}

// Status is the tracked status of one stage.
type Status struct {
	State    State  `json:"state"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

// Pending returns a fresh status.
func Pending() Status { return Status{State: StatePending} }
