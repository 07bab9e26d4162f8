package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/tablens/internal/domain/table"
)

// Grid is the raw cell matrix produced by a strategy, before header handling.
type Grid struct {
	Rows     [][]table.Cell
	Encoding string
}

// Width returns the widest row.
func (g Grid) Width() int {
	w := 0
	for _, r := range g.Rows {
		w = max(w, len(r))
	}
	return w
}

var nullTokens = map[string]bool{
	"": true, "NA": true, "N/A": true, "n/a": true, "NaN": true, "nan": true, "-nan": true, "-NaN": true,
	"null": true, "NULL": true, "None": true, "none": true, "#N/A": true, "#NA": true, "<NA>": true,
}

// IsNullToken reports whether a text cell stands for a missing value.
func IsNullToken(s string) bool {
	return nullTokens[strings.TrimSpace(s)]
}

// textCell maps a raw text value to a string or null cell.
func textCell(s string) table.Cell {
	if IsNullToken(s) {
		return table.Null()
	}
	return table.String(s)
}

// normalize nulls out NA tokens, drops all-null rows and pads every row to the grid width.
func normalize(g Grid) Grid {
	width := g.Width()
	rows := make([][]table.Cell, 0, len(g.Rows))
	for _, r := range g.Rows {
		row := make([]table.Cell, width)
		empty := true
		for j, c := range r {
			if c.Kind() == table.KindString && IsNullToken(c.Str()) {
				c = table.Null()
			}
			if !c.IsNull() {
				empty = false
			}
			row[j] = c
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	// trailing all-null columns come from ragged rows and formatting-only cells
	for width > 0 && columnEmpty(rows, width-1) {
		width--
	}
	for i := range rows {
		rows[i] = rows[i][:width]
	}
	return Grid{Rows: rows, Encoding: g.Encoding}
}

func columnEmpty(rows [][]table.Cell, j int) bool {
	for _, r := range rows {
		if !r[j].IsNull() {
			return false
		}
	}
	return true
}

// typeTextColumns converts all-text columns into int, float or bool cells
// when every non-null value is a literal of that type.
func typeTextColumns(t *table.Table) {
	for j := range t.Columns {
		col := t.Column(j)
		kind, homogeneous := table.Dominant(col)
		if !homogeneous || kind != table.KindString {
			continue
		}
		if typed, ok := convertColumn(col, parseIntLiteral); ok {
			t.SetColumn(j, typed)
			continue
		}
		if typed, ok := convertColumn(col, parseFloatLiteral); ok {
			t.SetColumn(j, typed)
			continue
		}
		if typed, ok := convertColumn(col, parseBoolLiteral); ok {
			t.SetColumn(j, typed)
		}
	}
}

func convertColumn(col []table.Cell, conv func(string) (table.Cell, bool)) ([]table.Cell, bool) {
	out := make([]table.Cell, len(col))
	for i, c := range col {
		if c.IsNull() {
			continue
		}
		v, ok := conv(c.Str())
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseIntLiteral(s string) (table.Cell, bool) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return table.Cell{}, false
	}
	return table.Int(i), true
}

func parseFloatLiteral(s string) (table.Cell, bool) {
	f, ok := parseNumber(s)
	if !ok {
		return table.Cell{}, false
	}
	return table.Float(f), true
}

func parseBoolLiteral(s string) (table.Cell, bool) {
	switch strings.TrimSpace(s) {
	case "True", "TRUE", "true":
		return table.Bool(true), true
	case "False", "FALSE", "false":
		return table.Bool(false), true
	default:
		return table.Cell{}, false
	}
}

// parseNumber accepts decimal, exponent and signed infinity notation.
// NaN is not a number here since NaN tokens are already null.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") || strings.Contains(s, "_") {
		return 0, false
	}
	return f, true
}

// isNumericCell reports numeric cells and text that reads as a number.
func isNumericCell(c table.Cell) bool {
	if c.Kind().IsNumeric() {
		return true
	}
	if c.Kind() == table.KindString {
		_, ok := parseNumber(c.Str())
		return ok
	}
	return false
}
