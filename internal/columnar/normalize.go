// Package columnar persists tables as parquet files.
package columnar

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/tablens/internal/domain"
	"github.com/kailas-cloud/tablens/internal/domain/table"
)

// Normalize makes every column single-kinded so the writer accepts it.
// Text and mixed columns become numeric when more than half of their values
// convert, otherwise text. Non-finite numbers become null.
func Normalize(t *table.Table) (*table.Table, []table.Kind, error) {
	out := t.Clone()
	kinds := make([]table.Kind, len(t.Columns))
	for j, name := range t.Columns {
		col := out.Column(j)
		kind, err := normalizeColumn(col)
		if err != nil {
			return nil, nil, &domain.ColumnCoercionError{Column: name, Err: err}
		}
		out.SetColumn(j, col)
		kinds[j] = kind
	}
	return out, kinds, nil
}

func normalizeColumn(col []table.Cell) (table.Kind, error) {
	kind, homogeneous := table.Dominant(col)
	switch {
	case kind == table.KindNull:
		return table.KindString, nil
	case !homogeneous, kind == table.KindString:
		return coerceObject(col), nil
	case kind == table.KindFloat:
		for i, c := range col {
			switch {
			case c.IsNull():
			case c.Kind() == table.KindInt:
				col[i] = table.Float(c.Float64())
			case math.IsInf(c.Float64(), 0) || math.IsNaN(c.Float64()):
				col[i] = table.Null()
			}
		}
		return table.KindFloat, nil
	case kind == table.KindTime:
		for i, c := range col {
			if !c.IsNull() && c.Timestamp().IsZero() {
				col[i] = table.Null()
			}
		}
		return table.KindTime, nil
	case kind == table.KindInt, kind == table.KindBool:
		return kind, nil
	default:
		return 0, fmt.Errorf("unsupported cell kind %s", kind)
	}
}

// coerceObject rewrites a mixed column in place and returns its new kind.
func coerceObject(col []table.Cell) table.Kind {
	converted := make([]table.Cell, len(col))
	ok, failed := 0, 0
	integral := true
	for i, c := range col {
		if c.IsNull() {
			continue
		}
		f, good := toNumber(c)
		if !good {
			failed++
			continue
		}
		ok++
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			integral = false
		}
		converted[i] = table.Float(f)
	}

	if float64(ok) > 0.5*float64(len(col)) {
		asInt := integral && failed == 0
		for i, c := range converted {
			switch {
			case c.IsNull():
				col[i] = table.Null()
			case asInt:
				col[i] = table.Int(int64(c.Float64()))
			default:
				col[i] = c
			}
		}
		if asInt {
			return table.KindInt
		}
		return table.KindFloat
	}

	for i, c := range col {
		if !c.IsNull() {
			col[i] = table.String(c.Text())
		}
	}
	return table.KindString
}

func toNumber(c table.Cell) (float64, bool) {
	switch c.Kind() {
	case table.KindInt, table.KindFloat:
		f := c.Float64()
		return f, !math.IsInf(f, 0) && !math.IsNaN(f)
	case table.KindBool:
		if c.Boolean() {
			return 1, true
		}
		return 0, true
	case table.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.Str()), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// timeFromMillis restores a stored timestamp.
func timeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
