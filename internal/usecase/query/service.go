// Package query executes drafted queries against dataset columnar files.
package query

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	"github.com/kailas-cloud/tablens/internal/domain/result"
	logpkg "github.com/kailas-cloud/tablens/internal/logger"
	"github.com/kailas-cloud/tablens/internal/metrics"
	"github.com/kailas-cloud/tablens/internal/queryengine"
)

// DefaultRowCap is appended as LIMIT when a query has none.
const DefaultRowCap = 1000

var (
	placeholderRe = regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+("dataset"|dataset\b)`)
	limitRe       = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
)

// Target pairs a dataset with the query drafted for it.
type Target struct {
	Dataset domds.Dataset
	Query   string
}

// Failure records a dataset skipped during a multi-dataset run.
type Failure struct {
	DatasetID string `json:"dataset_id"`
	Error     string `json:"error"`
}

// Service executes queries.
type Service struct {
	blobs  BlobReader
	engine Engine
	decode Decoder
	rowCap int
	logger *zap.Logger
}

// New creates a query service. A non-positive rowCap uses DefaultRowCap.
func New(blobs BlobReader, engine Engine, decode Decoder, rowCap int, logger *zap.Logger) *Service {
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	return &Service{blobs: blobs, engine: engine, decode: decode, rowCap: rowCap, logger: logger}
}

// Rewrite points the placeholder relation at the dataset table, strips a
// trailing semicolon and appends the row cap when no LIMIT is present.
func Rewrite(query, tableName string, rowCap int) string {
	q := strings.TrimSpace(query)
	for strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	}
	q = placeholderRe.ReplaceAllString(q, "${1} "+queryengine.QuoteIdent(tableName))
	if !limitRe.MatchString(topLevel(q)) {
		q += " LIMIT " + strconv.Itoa(rowCap)
	}
	return q
}

// topLevel blanks quoted spans and parenthesised groups, leaving only the
// clauses of the outermost statement.
func topLevel(q string) string {
	out := []byte(q)
	var quote byte
	depth := 0
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			out[i] = ' '
		case c == '\'' || c == '"':
			quote = c
			out[i] = ' '
		case c == '(':
			depth++
			out[i] = ' '
		case c == ')':
			if depth > 0 {
				depth--
			}
			out[i] = ' '
		case depth > 0:
			out[i] = ' '
		}
	}
	return string(out)
}

// Execute runs one query against one dataset.
func (s *Service) Execute(ctx context.Context, d *domds.Dataset, query string) (*result.Set, error) {
	fail := func(err error) error {
		return &domain.ExecutionError{DatasetID: d.ID.String(), Query: query, Err: err}
	}
	if !d.Ready() {
		return nil, fail(fmt.Errorf("%w: dataset is not parsed", domain.ErrStagePrecondition))
	}

	data, err := s.blobs.Get(ctx, d.ColumnarKey)
	if err != nil {
		return nil, fail(fmt.Errorf("load columnar file: %w", err))
	}
	tbl, kinds, err := s.decode(data)
	if err != nil {
		return nil, fail(fmt.Errorf("decode columnar file: %w", err))
	}

	name := d.TableName()
	sql := Rewrite(query, name, s.rowCap)
	logpkg.FromContext(ctx, s.logger).Info("Executing query",
		zap.String("dataset_id", d.ID.String()), zap.String("sql", sql))

	set, err := s.engine.Run(ctx, name, tbl, kinds, sql)
	if err != nil {
		return nil, &domain.ExecutionError{DatasetID: d.ID.String(), Query: sql, Err: err}
	}
	return set, nil
}

// ExecuteMany queries each target independently. With more than one target,
// rows are tagged with the dataset logical name and concatenated over the
// union of columns. A failed dataset is skipped; if every dataset fails the
// result is an *domain.ExecutionError.
func (s *Service) ExecuteMany(ctx context.Context, targets []Target) (*result.Set, []Failure, error) {
	if len(targets) == 0 {
		return nil, nil, &domain.ExecutionError{Err: fmt.Errorf("%w: no datasets to query", domain.ErrInvalidInput)}
	}

	var (
		sets     []*result.Set
		failures []Failure
		errs     []error
	)
	for i := range targets {
		t := &targets[i]
		set, err := s.Execute(ctx, &t.Dataset, t.Query)
		if err != nil {
			logpkg.FromContext(ctx, s.logger).Warn("Dataset query failed, skipping",
				zap.String("dataset_id", t.Dataset.ID.String()), zap.Error(err))
			metrics.QueryExecutionsTotal.WithLabelValues("failed").Inc()
			failures = append(failures, Failure{DatasetID: t.Dataset.ID.String(), Error: err.Error()})
			errs = append(errs, err)
			continue
		}
		metrics.QueryExecutionsTotal.WithLabelValues("succeeded").Inc()
		if len(targets) > 1 {
			set = result.WithSource(set, t.Dataset.LogicalName)
		}
		sets = append(sets, set)
	}

	if len(sets) == 0 {
		if len(errs) == 1 {
			return nil, failures, errs[0]
		}
		return nil, failures, &domain.ExecutionError{Err: errors.Join(errs...)}
	}
	if len(sets) == 1 {
		return sets[0], failures, nil
	}
	return result.Concat(sets...), failures, nil
}
