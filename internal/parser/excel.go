package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kailas-cloud/tablens/internal/domain/table"
)

// ExcelizeStrategy reads OOXML workbooks with excelize.
type ExcelizeStrategy struct{}

// NewExcelizeStrategy returns the high-level workbook reader.
func NewExcelizeStrategy() *ExcelizeStrategy { return &ExcelizeStrategy{} }

// Name implements Strategy.
func (s *ExcelizeStrategy) Name() string { return "excelize" }

// Accepts implements Strategy.
func (s *ExcelizeStrategy) Accepts(ext string) bool {
	return ext == ".xlsx" || ext == ".xlsm" || ext == ".et"
}

// Attempt implements Strategy.
func (s *ExcelizeStrategy) Attempt(ctx context.Context, data []byte) (grid Grid, err error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Grid{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Grid{}, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	raw, err := f.GetRows(sheet)
	if err != nil {
		return Grid{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if err := ctx.Err(); err != nil {
		return Grid{}, err
	}

	rows := make([][]table.Cell, len(raw))
	for i, r := range raw {
		row := make([]table.Cell, len(r))
		for j, v := range r {
			row[j] = textCell(v)
		}
		rows[i] = row
	}
	return Grid{Rows: rows}, nil
}
