package parser

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/tablens/internal/domain/table"
)

// MaxHeaderRows bounds header-depth detection.
const MaxHeaderRows = 10

type rowProfile struct {
	nullRatio    float64
	uniqueRatio  float64
	stringRatio  float64
	numericRatio float64
}

func profileRow(row []table.Cell) rowProfile {
	if len(row) == 0 {
		return rowProfile{nullRatio: 1}
	}
	var nulls, strs, nums int
	distinct := make(map[string]struct{}, len(row))
	for _, c := range row {
		switch {
		case c.IsNull():
			nulls++
			continue
		case isNumericCell(c):
			nums++
		case c.Kind() == table.KindString:
			strs++
		}
		distinct[c.Text()] = struct{}{}
	}
	p := rowProfile{nullRatio: float64(nulls) / float64(len(row))}
	if nonNull := len(row) - nulls; nonNull > 0 {
		p.uniqueRatio = float64(len(distinct)) / float64(nonNull)
		p.stringRatio = float64(strs) / float64(nonNull)
		p.numericRatio = float64(nums) / float64(nonNull)
	}
	return p
}

func (p rowProfile) headerLike(prev rowProfile) bool {
	return p.nullRatio > 0.3 ||
		p.uniqueRatio < 0.5 ||
		(p.stringRatio > 0.8 && p.numericRatio < 0.2) ||
		(p.nullRatio > 0.2 && prev.nullRatio > 0.2)
}

// DetectHeaderDepth returns how many leading rows form the header (at least 1).
func DetectHeaderDepth(rows [][]table.Cell) int {
	n := min(len(rows), MaxHeaderRows)
	depth := 1
	if n <= 1 {
		return depth
	}
	prev := profileRow(rows[0])
	for i := 1; i < n; i++ {
		p := profileRow(rows[i])
		if p.numericRatio > 0.7 {
			break
		}
		if !p.headerLike(prev) {
			break
		}
		depth = i + 1
		prev = p
	}
	return depth
}

// MergeHeader joins header rows top-to-bottom per column.
func MergeHeader(rows [][]table.Cell, width int) []string {
	names := make([]string, width)
	for j := range width {
		var parts []string
		for _, row := range rows {
			if j >= len(row) || row[j].IsNull() {
				continue
			}
			tok := strings.TrimSpace(row[j].Text())
			if IsNullToken(tok) {
				continue
			}
			parts = append(parts, tok)
		}
		if len(parts) == 0 {
			names[j] = fmt.Sprintf("Column_%d", j)
			continue
		}
		names[j] = strings.Join(parts, "_")
	}
	return names
}
