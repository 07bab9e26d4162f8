package selector

import (
	"github.com/kailas-cloud/tablens/internal/domain/column"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
)

// Candidate is a dataset the question may be answered from.
type Candidate struct {
	Dataset domds.Dataset
	Columns []column.Column
}

// Draft is the query compiled for one candidate.
type Draft struct {
	Query    string `json:"query"`
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
}
