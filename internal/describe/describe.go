// Package describe renders column summaries as short text for embedding.
package describe

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/tablens/internal/domain/column"
)

// Column builds the embedding input for one column, e.g.
//
//	name: sales_amount, type: float, stats: min100 max50000 unique42, samples: [1250.5, 3400.2]
func Column(c column.Column) string {
	var b strings.Builder
	b.WriteString("name: ")
	b.WriteString(c.Name)
	if c.Label != "" && c.Label != c.Name {
		b.WriteString(" (label: ")
		b.WriteString(c.Label)
		b.WriteString(")")
	}
	if c.Type != "" {
		b.WriteString(", type: ")
		b.WriteString(string(c.Type))
	}

	if stats := statsPart(c.Stats); stats != "" {
		b.WriteString(", stats: ")
		b.WriteString(stats)
	}

	if samples := c.Samples; len(samples) > 0 {
		if len(samples) > column.MaxSamples {
			samples = samples[:column.MaxSamples]
		}
		b.WriteString(", samples: [")
		b.WriteString(strings.Join(samples, ", "))
		b.WriteString("]")
	}
	return b.String()
}

// Columns describes every column in order.
func Columns(cols []column.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = Column(c)
	}
	return out
}

func statsPart(s column.Stats) string {
	var parts []string
	if s.Min != nil {
		parts = append(parts, "min"+formatNumber(*s.Min))
	}
	if s.Max != nil {
		parts = append(parts, "max"+formatNumber(*s.Max))
	}
	if s.TotalCount > 0 {
		parts = append(parts, "unique"+strconv.Itoa(s.UniqueCount))
	}
	return strings.Join(parts, " ")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
