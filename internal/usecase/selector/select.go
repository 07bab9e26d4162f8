// Package selector picks the datasets relevant to a question and drafts a
// query per dataset.
package selector

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
	"github.com/kailas-cloud/tablens/internal/domain/column"
)

const (
	digestColumns = 10
	draftColumns  = 20
	draftSamples  = 3
)

var digitRunRe = regexp.MustCompile(`\d+`)

// Service selects datasets and drafts queries with a completion model.
type Service struct {
	completer domain.Completer
	logger    *zap.Logger
}

// New creates a selector.
func New(completer domain.Completer, logger *zap.Logger) *Service {
	return &Service{completer: completer, logger: logger}
}

// Select returns the ids of the candidates relevant to question, in the
// order the model named them. A single candidate is returned without a
// model call; a model failure or an unusable answer selects the first one.
func (s *Service) Select(ctx context.Context, question string, candidates []Candidate) ([]uuid.UUID, error) {
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: no candidate datasets", domain.ErrInvalidInput)
	case 1:
		return []uuid.UUID{candidates[0].Dataset.ID}, nil
	}

	answer, err := s.completer.Complete(ctx, selectionPrompt(candidates), question)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("Dataset selection failed, using first candidate", zap.Error(err))
		return []uuid.UUID{candidates[0].Dataset.ID}, nil
	}

	picked := ParseSelection(answer, len(candidates))
	if len(picked) == 0 {
		s.logger.Warn("Model selected no dataset, using first candidate", zap.String("answer", answer))
		return []uuid.UUID{candidates[0].Dataset.ID}, nil
	}

	ids := make([]uuid.UUID, len(picked))
	for i, n := range picked {
		ids[i] = candidates[n-1].Dataset.ID
	}
	s.logger.Info("Datasets selected", zap.Ints("numbers", picked), zap.Int("candidates", len(candidates)))
	return ids, nil
}

// ParseSelection keeps the digit runs of answer that fall in 1..n,
// de-duplicated in first-seen order.
func ParseSelection(answer string, n int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, run := range digitRunRe.FindAllString(answer, -1) {
		v, err := strconv.Atoi(run)
		if err != nil || v < 1 || v > n || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func selectionPrompt(candidates []Candidate) string {
	var b strings.Builder
	b.WriteString("You select the datasets that can answer the user's question.\n\nAvailable datasets:\n")
	for i, c := range candidates {
		d := c.Dataset
		names := column.Names(c.Columns)
		if len(names) > digestColumns {
			names = names[:digestColumns]
		}
		fmt.Fprintf(&b, "Dataset %d: %s\n- ID: %s\n- Rows: %d\n- Columns: %d\n- Main columns: %s\n\n",
			i+1, d.LogicalName, d.ID, d.RowCount, d.ColumnCount, strings.Join(names, ", "))
	}
	b.WriteString("Answer only with the dataset numbers, separated by commas. ")
	b.WriteString("For example: 1 or 1,2. Do not explain.")
	return b.String()
}
