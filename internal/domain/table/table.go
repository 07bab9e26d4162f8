// Package table holds the in-memory tabular model shared by the parser,
// the columnar codec and the query engine.
package table

import (
	"strconv"
	"time"
)

// Kind is the physical type of a cell.
type Kind uint8

const (
	// KindNull is an absent value.
	KindNull Kind = iota
	// KindString is text.
	KindString
	// KindInt is a signed 64-bit integer.
	KindInt
	// KindFloat is a 64-bit float.
	KindFloat
	// KindBool is a boolean.
	KindBool
	// KindTime is a timestamp.
	KindTime
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// IsNumeric reports int or float.
func (k Kind) IsNumeric() bool { return k == KindInt || k == KindFloat }

// TimeLayout is the canonical text rendering of time cells.
const TimeLayout = "2006-01-02 15:04:05"

// Cell is one typed value.
type Cell struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// Null returns an absent cell.
func Null() Cell { return Cell{} }

// String returns a text cell.
func String(s string) Cell { return Cell{kind: KindString, s: s} }

// Int returns an integer cell.
func Int(i int64) Cell { return Cell{kind: KindInt, i: i} }

// Float returns a float cell.
func Float(f float64) Cell { return Cell{kind: KindFloat, f: f} }

// Bool returns a boolean cell.
func Bool(b bool) Cell { return Cell{kind: KindBool, b: b} }

// Time returns a timestamp cell.
func Time(t time.Time) Cell { return Cell{kind: KindTime, t: t} }

// Kind returns the physical type.
func (c Cell) Kind() Kind { return c.kind }

// IsNull reports whether the cell is absent.
func (c Cell) IsNull() bool { return c.kind == KindNull }

// Str returns the text payload.
func (c Cell) Str() string { return c.s }

// Int64 returns the integer payload.
func (c Cell) Int64() int64 { return c.i }

// Float64 returns the numeric payload; ints are widened.
func (c Cell) Float64() float64 {
	if c.kind == KindInt {
		return float64(c.i)
	}
	return c.f
}

// Boolean returns the boolean payload.
func (c Cell) Boolean() bool { return c.b }

// Timestamp returns the time payload.
func (c Cell) Timestamp() time.Time { return c.t }

// Text renders the cell as text. Null renders as the empty string.
func (c Cell) Text() string {
	switch c.kind {
	case KindString:
		return c.s
	case KindInt:
		return strconv.FormatInt(c.i, 10)
	case KindFloat:
		return strconv.FormatFloat(c.f, 'f', -1, 64)
	case KindBool:
		if c.b {
			return "True"
		}
		return "False"
	case KindTime:
		return c.t.Format(TimeLayout)
	default:
		return ""
	}
}

// Value returns the payload as a plain Go value (nil for null).
func (c Cell) Value() any {
	switch c.kind {
	case KindString:
		return c.s
	case KindInt:
		return c.i
	case KindFloat:
		return c.f
	case KindBool:
		return c.b
	case KindTime:
		return c.t
	default:
		return nil
	}
}

// Table is a rectangular grid of cells with named columns.
type Table struct {
	Columns []string
	Rows    [][]Cell
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.Columns) }

// Column returns a copy of column j.
func (t *Table) Column(j int) []Cell {
	out := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		if j < len(row) {
			out[i] = row[j]
		}
	}
	return out
}

// SetColumn replaces column j in place. len(cells) must equal NumRows.
func (t *Table) SetColumn(j int, cells []Cell) {
	for i := range t.Rows {
		t.Rows[i][j] = cells[i]
	}
}

// Clone returns a deep copy of the grid.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]Cell, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]Cell(nil), row...)
	}
	return out
}

// Dominant returns the shared kind of all non-null cells, KindNull when every
// cell is null, or KindString when kinds are mixed. Int mixed with float is float.
func Dominant(cells []Cell) (Kind, bool) {
	kind := KindNull
	for _, c := range cells {
		if c.kind == KindNull {
			continue
		}
		switch {
		case kind == KindNull:
			kind = c.kind
		case kind == c.kind:
		case kind.IsNumeric() && c.kind.IsNumeric():
			kind = KindFloat
		default:
			return KindString, false
		}
	}
	return kind, true
}
