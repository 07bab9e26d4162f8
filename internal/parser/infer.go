package parser

import (
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/tablens/internal/domain/column"
	"github.com/kailas-cloud/tablens/internal/domain/table"
)

// InferSchema infers every column of t. labels holds the original header text.
func InferSchema(t *table.Table, labels []string) []column.Column {
	cols := make([]column.Column, len(t.Columns))
	for j, name := range t.Columns {
		label := ""
		if j < len(labels) && labels[j] != name {
			label = labels[j]
		}
		cols[j] = InferColumn(name, label, j, t.Column(j))
	}
	return cols
}

// InferColumn infers the type, statistics and samples of one column.
func InferColumn(name, label string, index int, cells []table.Cell) column.Column {
	col := column.Column{Name: name, Label: label, Index: index, Samples: samples(cells)}

	nonNull := make([]table.Cell, 0, len(cells))
	for _, c := range cells {
		if !c.IsNull() {
			nonNull = append(nonNull, c)
		}
	}
	col.Stats = baseStats(cells, nonNull)

	kind, homogeneous := table.Dominant(nonNull)
	switch {
	case len(nonNull) == 0:
		col.Type = column.TypeString
	case homogeneous && kind == table.KindBool:
		col.Type = column.TypeBool
	case homogeneous && kind == table.KindTime:
		col.Type = column.TypeDate
		times := make([]time.Time, len(nonNull))
		for i, c := range nonNull {
			times[i] = c.Timestamp()
		}
		addDateStats(&col.Stats, times)
	case homogeneous && kind == table.KindInt:
		col.Type = column.TypeInt
		addNumericStats(&col.Stats, numericValues(nonNull))
	case homogeneous && kind == table.KindFloat:
		col.Type = column.TypeFloat
		addNumericStats(&col.Stats, numericValues(nonNull))
	default:
		inferObject(&col, nonNull)
	}
	return col
}

func inferObject(col *column.Column, nonNull []table.Cell) {
	if nums, ok := coerceNumbers(nonNull); ok {
		col.Type = column.TypeFloat
		if allIntegral(nums) {
			col.Type = column.TypeInt
		}
		addNumericStats(&col.Stats, nums)
		return
	}
	if times, ok := coerceDates(nonNull); ok {
		col.Type = column.TypeDate
		addDateStats(&col.Stats, times)
		return
	}
	col.Type = column.TypeString
	addLengthStats(&col.Stats, nonNull)
}

func coerceNumbers(cells []table.Cell) ([]float64, bool) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		if c.Kind().IsNumeric() {
			out[i] = c.Float64()
			continue
		}
		f, ok := parseNumber(c.Text())
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func coerceDates(cells []table.Cell) ([]time.Time, bool) {
	out := make([]time.Time, len(cells))
	for i, c := range cells {
		if c.Kind() == table.KindTime {
			out[i] = c.Timestamp()
			continue
		}
		if c.Kind() != table.KindString {
			return nil, false
		}
		t, ok := parseDate(c.Str())
		if !ok {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

func allIntegral(nums []float64) bool {
	for _, f := range nums {
		if math.IsInf(f, 0) || f != math.Trunc(f) {
			return false
		}
	}
	return true
}

func numericValues(cells []table.Cell) []float64 {
	out := make([]float64, len(cells))
	for i, c := range cells {
		out[i] = c.Float64()
	}
	return out
}

func samples(cells []table.Cell) []string {
	out := make([]string, 0, column.MaxSamples)
	seen := make(map[string]bool, column.MaxSamples)
	for _, c := range cells {
		if c.IsNull() {
			continue
		}
		s := c.Text()
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == column.MaxSamples {
			break
		}
	}
	return out
}

func baseStats(cells, nonNull []table.Cell) column.Stats {
	distinct := make(map[string]struct{}, len(nonNull))
	for _, c := range nonNull {
		distinct[c.Text()] = struct{}{}
	}
	return column.Stats{
		NullCount:   len(cells) - len(nonNull),
		UniqueCount: len(distinct),
		TotalCount:  len(cells),
	}
}

func addNumericStats(st *column.Stats, nums []float64) {
	finite := make([]float64, 0, len(nums))
	for _, f := range nums {
		if !math.IsInf(f, 0) && !math.IsNaN(f) {
			finite = append(finite, f)
		}
	}
	if len(finite) == 0 {
		return
	}
	sort.Float64s(finite)
	n := float64(len(finite))

	var sum float64
	for _, f := range finite {
		sum += f
	}
	mean := sum / n

	minV, maxV := finite[0], finite[len(finite)-1]
	st.Min, st.Max, st.Mean = &minV, &maxV, &mean

	var median float64
	if mid := len(finite) / 2; len(finite)%2 == 0 {
		median = (finite[mid-1] + finite[mid]) / 2
	} else {
		median = finite[mid]
	}
	st.Median = &median

	if len(finite) > 1 {
		var sq float64
		for _, f := range finite {
			sq += (f - mean) * (f - mean)
		}
		std := math.Sqrt(sq / (n - 1))
		st.Std = &std
	}
}

func addLengthStats(st *column.Stats, nonNull []table.Cell) {
	if len(nonNull) == 0 {
		return
	}
	minL, maxL, total := math.MaxInt, 0, 0
	for _, c := range nonNull {
		l := utf8.RuneCountInString(c.Text())
		minL = min(minL, l)
		maxL = max(maxL, l)
		total += l
	}
	avg := float64(total) / float64(len(nonNull))
	st.MinLength, st.MaxLength, st.AvgLength = &minL, &maxL, &avg
}

func addDateStats(st *column.Stats, times []time.Time) {
	if len(times) == 0 {
		return
	}
	lo, hi := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}
	minD, maxD := lo.Format(table.TimeLayout), hi.Format(table.TimeLayout)
	st.MinDate, st.MaxDate = &minD, &maxD
}
