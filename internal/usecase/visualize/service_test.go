package visualize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain/result"
	"github.com/kailas-cloud/tablens/internal/domain/viz"
)

// --- Helpers ---

type scriptedCompleter struct {
	answer string
	err    error
	calls  int
	user   string
}

func (s *scriptedCompleter) Complete(_ context.Context, _, user string) (string, error) {
	s.calls++
	s.user = user
	return s.answer, s.err
}

func rows(n int, row func(i int) []any) [][]any {
	out := make([][]any, n)
	for i := range out {
		out[i] = row(i)
	}
	return out
}

// byRegion has one categorical and one numeric column.
func byRegion(n int) *result.Set {
	return &result.Set{
		Columns: []string{"region", "total"},
		Rows:    rows(n, func(i int) []any { return []any{"r" + string(rune('a'+i%26)), int64(i)} }),
	}
}

// --- Rules ---

func TestRules_Empty(t *testing.T) {
	d := Rules(&result.Set{Columns: []string{"a"}})
	if d.Mode != viz.ModeText || d.Confidence != 1.0 || d.Source != viz.SourceRules {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestRules_CardForLongText(t *testing.T) {
	set := &result.Set{
		Columns: []string{"title", "author", "body"},
		Rows:    [][]any{{"Q3 report", "ops", strings.Repeat("x", 100)}},
	}
	d := Rules(set)
	if d.Mode != viz.ModeCard || d.Confidence != 0.95 {
		t.Fatalf("unexpected decision: %+v", d)
	}
	fields, ok := d.Metadata["fields"].([]string)
	if !ok || len(fields) != 3 {
		t.Fatalf("unexpected fields: %v", d.Metadata["fields"])
	}
}

func TestRules_ShortTextIsNotCard(t *testing.T) {
	set := &result.Set{
		Columns: []string{"title", "author", "body"},
		Rows:    [][]any{{"Q3 report", "ops", strings.Repeat("x", 99)}},
	}
	if d := Rules(set); d.Mode == viz.ModeCard {
		t.Fatalf("99 characters must not produce a card: %+v", d)
	}
}

func TestRules_CategoricalChart(t *testing.T) {
	cases := []struct {
		rows  int
		chart string
	}{
		{2, "bar"},
		{5, "bar"},
		{12, "bar"},
		{21, "line"},
		{100, "line"},
	}
	for _, tc := range cases {
		d := Rules(byRegion(tc.rows))
		if d.Mode != viz.ModeChart || d.Confidence != 0.85 {
			t.Fatalf("rows=%d: unexpected decision: %+v", tc.rows, d)
		}
		if got := d.Metadata["suggested_chart_type"]; got != tc.chart {
			t.Errorf("rows=%d: expected %s, got %v", tc.rows, tc.chart, got)
		}
	}
}

func TestRules_NumericChart(t *testing.T) {
	set := &result.Set{
		Columns: []string{"x", "y"},
		Rows:    rows(11, func(i int) []any { return []any{int64(i), float64(i) * 1.5} }),
	}
	d := Rules(set)
	if d.Mode != viz.ModeChart || d.Confidence != 0.8 || d.Metadata["suggested_chart_type"] != "line" {
		t.Fatalf("unexpected decision: %+v", d)
	}

	set.Rows = set.Rows[:3]
	if d := Rules(set); d.Metadata["suggested_chart_type"] != "bar" {
		t.Fatalf("expected bar for 3 rows, got %+v", d)
	}
}

func TestRules_WideOrLongTable(t *testing.T) {
	d := Rules(byRegion(101))
	if d.Mode != viz.ModeTable || d.Confidence != 0.9 {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestRules_NoNumericTable(t *testing.T) {
	set := &result.Set{Columns: []string{"name", "city"}, Rows: [][]any{{"a", "b"}, {"c", "d"}}}
	d := Rules(set)
	if d.Mode != viz.ModeTable || d.Confidence != 0.85 {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestRules_DefaultTable(t *testing.T) {
	set := &result.Set{Columns: []string{"row_count"}, Rows: [][]any{{int64(42)}}}
	d := Rules(set)
	if d.Mode != viz.ModeTable || d.Confidence != 0.6 {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestDescribe_NullsIgnored(t *testing.T) {
	set := &result.Set{Columns: []string{"v", "empty"}, Rows: [][]any{{nil, nil}, {int64(1), nil}}}
	sh := Describe(set)
	if len(sh.Numeric) != 1 || sh.Numeric[0] != "v" {
		t.Fatalf("unexpected numeric columns: %v", sh.Numeric)
	}
	if sh.Types["empty"] != "null" {
		t.Errorf("unexpected type: %s", sh.Types["empty"])
	}
}

// --- ParseModelDecision ---

func TestParseModelDecision_Fenced(t *testing.T) {
	answer := "Sure.\n```json\n{\"visualization_type\": \"Chart\", \"reason\": \"trend\", \"confidence\": 1.4, \"metadata\": {\"suggested_chart_type\": \"pie\"}}\n```"
	d, err := ParseModelDecision(answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Mode != viz.ModeChart || d.Confidence != 1 || d.Source != viz.SourceModel {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.Metadata["suggested_chart_type"] != "pie" {
		t.Errorf("unexpected metadata: %v", d.Metadata)
	}
}

func TestParseModelDecision_DefaultConfidence(t *testing.T) {
	d, err := ParseModelDecision(`{"visualization_type": "table"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Confidence != defaultModelConfidence {
		t.Errorf("expected default confidence, got %v", d.Confidence)
	}
}

func TestParseModelDecision_Rejects(t *testing.T) {
	for _, answer := range []string{"not json", `{"visualization_type": "map"}`, ""} {
		if _, err := ParseModelDecision(answer); err == nil {
			t.Errorf("expected error for %q", answer)
		}
	}
}

// --- Classify ---

func TestClassify_HighRuleConfidenceSkipsModel(t *testing.T) {
	c := &scriptedCompleter{}
	svc := New(c, zap.NewNop())

	d, err := svc.Classify(context.Background(), "q", &result.Set{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Mode != viz.ModeText || c.calls != 0 {
		t.Fatalf("expected text without model call, got %+v after %d calls", d, c.calls)
	}
}

func TestClassify_ModelOverridesLowConfidence(t *testing.T) {
	c := &scriptedCompleter{answer: `{"visualization_type": "table", "reason": "list", "confidence": 0.75}`}
	svc := New(c, zap.NewNop())

	d, err := svc.Classify(context.Background(), "sales by region", byRegion(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Mode != viz.ModeTable || d.Source != viz.SourceModel {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if !strings.Contains(c.user, "4 rows x 2 columns") || !strings.Contains(c.user, "- total (number)") {
		t.Errorf("prompt lacks shape: %s", c.user)
	}
}

func TestClassify_FallsBackToRules(t *testing.T) {
	cases := map[string]*scriptedCompleter{
		"low confidence": {answer: `{"visualization_type": "text", "confidence": 0.5}`},
		"bad mode":       {answer: `{"visualization_type": "map", "confidence": 0.95}`},
		"malformed":      {answer: "I think a chart"},
		"model error":    {err: errors.New("upstream 500")},
	}
	for name, c := range cases {
		d, err := New(c, zap.NewNop()).Classify(context.Background(), "q", byRegion(4))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if d.Mode != viz.ModeChart || d.Source != viz.SourceRules {
			t.Errorf("%s: expected rule chart, got %+v", name, d)
		}
	}
}

func TestClassify_NilCompleter(t *testing.T) {
	d, err := New(nil, zap.NewNop()).Classify(context.Background(), "q", byRegion(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Source != viz.SourceRules {
		t.Fatalf("unexpected decision: %+v", d)
	}
}
