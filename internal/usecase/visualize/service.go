// Package visualize decides how a result set is presented.
package visualize

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
	"github.com/kailas-cloud/tablens/internal/domain/result"
	"github.com/kailas-cloud/tablens/internal/domain/viz"
)

const (
	// ruleShortCircuit is the rule confidence that skips the model.
	ruleShortCircuit = 0.9
	// modelThreshold is the minimum model confidence accepted.
	modelThreshold = 0.7
	// defaultModelConfidence applies when the model omits a confidence.
	defaultModelConfidence = 0.8
	sampleRows             = 3
)

var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Service is the hybrid rule and model classifier.
type Service struct {
	completer domain.Completer
	logger    *zap.Logger
}

// New creates a classifier. A nil completer disables the model pass.
func New(completer domain.Completer, logger *zap.Logger) *Service {
	return &Service{completer: completer, logger: logger}
}

// Classify returns the presentation decision for set.
func (s *Service) Classify(ctx context.Context, question string, set *result.Set) (viz.Decision, error) {
	if set == nil {
		set = &result.Set{}
	}
	rule := Rules(set)
	if rule.Confidence >= ruleShortCircuit || s.completer == nil {
		return rule, nil
	}

	answer, err := s.completer.Complete(ctx, systemPrompt, userPrompt(question, set))
	if err != nil {
		if ctx.Err() != nil {
			return viz.Decision{}, ctx.Err()
		}
		s.logger.Warn("Visualization model failed, using rules", zap.Error(err))
		return rule, nil
	}

	model, err := ParseModelDecision(answer)
	if err != nil {
		s.logger.Warn("Unusable visualization answer, using rules", zap.Error(err))
		return rule, nil
	}
	if model.Confidence < modelThreshold {
		s.logger.Info("Low model confidence, using rules",
			zap.Float64("confidence", model.Confidence), zap.String("mode", string(model.Mode)))
		return rule, nil
	}
	return model, nil
}

type modelAnswer struct {
	Mode       string         `json:"visualization_type"`
	Reason     string         `json:"reason"`
	Confidence *float64       `json:"confidence"`
	Metadata   map[string]any `json:"metadata"`
}

// ParseModelDecision reads the model JSON, optionally inside a fence.
// Confidence is clamped to [0,1] and defaults to 0.8.
func ParseModelDecision(answer string) (viz.Decision, error) {
	raw := strings.TrimSpace(answer)
	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(m[1])
	}

	var a modelAnswer
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return viz.Decision{}, fmt.Errorf("decode model answer: %w", err)
	}
	mode := viz.Mode(strings.ToLower(strings.TrimSpace(a.Mode)))
	if !mode.IsValid() {
		return viz.Decision{}, fmt.Errorf("unknown visualization type %q", a.Mode)
	}

	conf := defaultModelConfidence
	if a.Confidence != nil {
		conf = min(max(*a.Confidence, 0), 1)
	}
	meta := map[string]any{}
	if ct, ok := a.Metadata["suggested_chart_type"]; ok {
		meta["suggested_chart_type"] = ct
	}
	return viz.Decision{Mode: mode, Confidence: conf, Reason: a.Reason, Metadata: meta, Source: viz.SourceModel}, nil
}

const systemPrompt = `You decide how a query result is shown to the user.

Options:
1. chart: numeric data with trends, comparisons or shares (bar, line or pie)
2. table: structured lists of many rows and columns
3. card: one or a few records with long descriptive text
4. text: a short plain answer

Answer with JSON only, optionally inside a json code fence:
{"visualization_type": "chart|table|card|text", "reason": "...", "confidence": 0.0-1.0, "metadata": {"suggested_chart_type": "bar|line|pie"}}`

func userPrompt(question string, set *result.Set) string {
	sh := Describe(set)
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nShape: %d rows x %d columns\nColumns:\n", question, sh.Rows, sh.Columns)
	for _, c := range set.Columns {
		fmt.Fprintf(&b, "- %s (%s)\n", c, sh.Types[c])
	}
	b.WriteString("Sample rows:\n")
	for i, row := range set.Rows {
		if i == sampleRows {
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = truncate(fmt.Sprint(displayValue(v)), 50)
		}
		b.WriteString(strings.Join(cells, " | ") + "\n")
	}
	return b.String()
}

func displayValue(v any) any {
	if v == nil {
		return "NULL"
	}
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
