package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/tablens/internal/domain/table"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// CSVStrategy reads delimited text. As a spreadsheet fallback it handles
// "Excel" files that are really exported text.
type CSVStrategy struct {
	name     string
	fallback bool
}

// NewCSVStrategy returns the primary reader for delimited files.
func NewCSVStrategy() *CSVStrategy { return &CSVStrategy{name: "csv"} }

// NewCSVFallbackStrategy returns the reader used as the last spreadsheet strategy.
func NewCSVFallbackStrategy() *CSVStrategy { return &CSVStrategy{name: "csv-fallback", fallback: true} }

// Name implements Strategy.
func (s *CSVStrategy) Name() string { return s.name }

// Accepts implements Strategy.
func (s *CSVStrategy) Accepts(ext string) bool {
	if s.fallback {
		return true
	}
	return isTextExt(ext)
}

// Attempt implements Strategy.
func (s *CSVStrategy) Attempt(ctx context.Context, data []byte) (Grid, error) {
	if s.fallback {
		if bytes.HasPrefix(data, zipMagic) || bytes.HasPrefix(data, oleMagic) {
			return Grid{}, errors.New("binary workbook container, not delimited text")
		}
		if bytes.IndexByte(data, 0) >= 0 {
			return Grid{}, errors.New("binary content")
		}
	}

	text, enc, err := decodeText(data)
	if err != nil {
		return Grid{}, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]table.Cell
	for {
		if err := ctx.Err(); err != nil {
			return Grid{}, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Grid{}, fmt.Errorf("read record: %w", err)
		}
		row := make([]table.Cell, len(record))
		for j, v := range record {
			row[j] = textCell(v)
		}
		rows = append(rows, row)
	}
	return Grid{Rows: rows, Encoding: enc}, nil
}

var delimiters = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate occurring most often on the first line.
func sniffDelimiter(text string) rune {
	line, _, _ := strings.Cut(text, "\n")
	best, bestCount := ',', 0
	for _, d := range delimiters {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
