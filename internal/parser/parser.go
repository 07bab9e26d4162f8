// Package parser turns raw tabular files into typed tables with an inferred schema.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
	"github.com/kailas-cloud/tablens/internal/domain/column"
	"github.com/kailas-cloud/tablens/internal/domain/table"
)

// Strategy is one way of reading bytes into a raw grid.
type Strategy interface {
	Name() string
	Accepts(ext string) bool
	Attempt(ctx context.Context, data []byte) (Grid, error)
}

// etAdvisory is attached to results read from WPS spreadsheets.
const etAdvisory = "WPS .et files are read on a best-effort basis; re-save as .xlsx or .csv for reliable parsing"

// Result is a parsed table with its schema.
type Result struct {
	Table       *table.Table
	Columns     []column.Column
	Labels      []string
	HeaderDepth int
	Strategy    string
	Encoding    string
	Advisory    string
}

// Parser runs the text or spreadsheet strategy chain for a file.
type Parser struct {
	text        []Strategy
	spreadsheet []Strategy
	logger      *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithSpreadsheetStrategies replaces the spreadsheet chain.
func WithSpreadsheetStrategies(s ...Strategy) Option {
	return func(p *Parser) { p.spreadsheet = s }
}

// WithTextStrategies replaces the delimited-text chain.
func WithTextStrategies(s ...Strategy) Option {
	return func(p *Parser) { p.text = s }
}

// New creates a parser with the default chains.
func New(logger *zap.Logger, opts ...Option) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Parser{
		text: []Strategy{NewCSVStrategy()},
		spreadsheet: []Strategy{
			NewExcelizeStrategy(),
			NewOOXMLStrategy(),
			NewLegacyXLSStrategy(),
			NewCSVFallbackStrategy(),
		},
		logger: logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// SupportedExtensions lists the file extensions Parse accepts.
func SupportedExtensions() []string {
	return []string{".csv", ".tsv", ".txt", ".xlsx", ".xlsm", ".xls", ".et"}
}

func isTextExt(ext string) bool {
	return ext == ".csv" || ext == ".tsv" || ext == ".txt"
}

func isSpreadsheetExt(ext string) bool {
	switch ext {
	case ".xlsx", ".xlsm", ".xls", ".et":
		return true
	default:
		return false
	}
}

// Parse reads data according to the filename extension.
func (p *Parser) Parse(ctx context.Context, data []byte, filename string) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	perr := &domain.ParseError{Filename: filename}

	if len(data) == 0 {
		perr.Attempts = append(perr.Attempts, domain.AttemptFailure{Strategy: "input", Err: errors.New("file is empty")})
		return nil, perr
	}

	var chain []Strategy
	detectHeader := false
	switch {
	case isTextExt(ext):
		chain = p.text
	case isSpreadsheetExt(ext):
		chain = p.spreadsheet
		detectHeader = true
	default:
		perr.Attempts = append(perr.Attempts, domain.AttemptFailure{
			Strategy: "format", Err: fmt.Errorf("unsupported file extension %q", ext),
		})
		return nil, perr
	}

	for _, s := range chain {
		if !s.Accepts(ext) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		grid, err := s.Attempt(ctx, data)
		if err == nil {
			grid = normalize(grid)
			if grid.Width() == 0 {
				err = errors.New("no cells found")
			}
		}
		if err != nil {
			p.logger.Debug("Parse strategy failed",
				zap.String("file", filename), zap.String("strategy", s.Name()), zap.Error(err))
			perr.Attempts = append(perr.Attempts, domain.AttemptFailure{Strategy: s.Name(), Err: err})
			continue
		}

		res := build(grid, detectHeader)
		res.Strategy = s.Name()
		if ext == ".et" {
			res.Advisory = etAdvisory
		}
		if len(perr.Attempts) > 0 {
			p.logger.Info("Parse succeeded after fallback",
				zap.String("file", filename), zap.String("strategy", s.Name()), zap.Int("failed", len(perr.Attempts)))
		}
		return res, nil
	}
	return nil, perr
}

func build(grid Grid, detectHeader bool) *Result {
	depth := 1
	if detectHeader {
		depth = DetectHeaderDepth(grid.Rows)
	}
	depth = min(depth, len(grid.Rows))
	width := grid.Width()

	labels := MergeHeader(grid.Rows[:depth], width)
	tbl := &table.Table{
		Columns: SanitizeNames(labels),
		Rows:    grid.Rows[depth:],
	}
	typeTextColumns(tbl)

	return &Result{
		Table:       tbl,
		Columns:     InferSchema(tbl, labels),
		Labels:      labels,
		HeaderDepth: depth,
		Encoding:    grid.Encoding,
	}
}
