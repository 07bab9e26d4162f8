package visualize

import (
	"fmt"

	"github.com/kailas-cloud/tablens/internal/domain/result"
	"github.com/kailas-cloud/tablens/internal/domain/viz"
)

const longTextChars = 100

// Shape summarizes the column kinds of a result set.
type Shape struct {
	Rows        int
	Columns     int
	Numeric     []string
	Categorical []string
	Types       map[string]string
}

// Describe classifies every column as numeric, categorical or other.
// A column with no non-null values is neither.
func Describe(set *result.Set) Shape {
	sh := Shape{Rows: len(set.Rows), Columns: len(set.Columns), Types: make(map[string]string, len(set.Columns))}
	for j, name := range set.Columns {
		typ := columnType(set.ColumnValues(j))
		sh.Types[name] = typ
		switch typ {
		case "number":
			sh.Numeric = append(sh.Numeric, name)
		case "string":
			sh.Categorical = append(sh.Categorical, name)
		}
	}
	return sh
}

func columnType(vals []any) string {
	typ := "null"
	for _, v := range vals {
		var k string
		switch v.(type) {
		case nil:
			continue
		case int64, float64, int, float32, int32:
			k = "number"
		case string:
			k = "string"
		case bool:
			k = "bool"
		default:
			k = "other"
		}
		switch typ {
		case "null":
			typ = k
		case k:
		default:
			return "mixed"
		}
	}
	return typ
}

// Rules applies the deterministic rule table.
func Rules(set *result.Set) viz.Decision {
	if set.Empty() {
		return decide(viz.ModeText, 1.0, "the result is empty", nil)
	}
	sh := Describe(set)

	if sh.Rows == 1 && sh.Columns >= 3 && hasLongText(set.Rows[0]) {
		return decide(viz.ModeCard, 0.95, "a single record with long text fits a card",
			map[string]any{"fields": append([]string(nil), set.Columns...)})
	}

	if sh.Rows >= 2 && sh.Rows <= 100 && len(sh.Numeric) >= 1 && len(sh.Categorical) >= 1 {
		return decide(viz.ModeChart, 0.85,
			fmt.Sprintf("%d numeric and %d categorical columns fit a chart", len(sh.Numeric), len(sh.Categorical)),
			map[string]any{
				"numeric_columns":      sh.Numeric,
				"categorical_columns":  sh.Categorical,
				"suggested_chart_type": categoricalChartType(sh.Rows),
			})
	}

	if sh.Rows >= 2 && len(sh.Numeric) >= 2 {
		chart := "bar"
		if sh.Rows > 10 {
			chart = "line"
		}
		return decide(viz.ModeChart, 0.8, "several numeric columns fit a trend or comparison chart",
			map[string]any{"suggested_chart_type": chart})
	}

	if sh.Columns > 10 || sh.Rows > 100 {
		return decide(viz.ModeTable, 0.9, fmt.Sprintf("%d rows by %d columns fit a table", sh.Rows, sh.Columns), nil)
	}

	if len(sh.Numeric) == 0 {
		return decide(viz.ModeTable, 0.85, "the result has no numeric column", nil)
	}

	return decide(viz.ModeTable, 0.6, "a table is the default presentation", nil)
}

func categoricalChartType(rows int) string {
	switch {
	case rows <= 5:
		return "bar"
	case rows > 20:
		return "line"
	default:
		return "bar"
	}
}

func hasLongText(row []any) bool {
	for _, v := range row {
		if s, ok := v.(string); ok && len([]rune(s)) >= longTextChars {
			return true
		}
	}
	return false
}

func decide(mode viz.Mode, confidence float64, reason string, meta map[string]any) viz.Decision {
	if meta == nil {
		meta = map[string]any{}
	}
	return viz.Decision{Mode: mode, Confidence: confidence, Reason: reason, Metadata: meta, Source: viz.SourceRules}
}
