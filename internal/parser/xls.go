package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/extrame/xls"

	"github.com/kailas-cloud/tablens/internal/domain/table"
)

// LegacyXLSStrategy reads BIFF8 workbooks.
type LegacyXLSStrategy struct {
	charset string
}

// NewLegacyXLSStrategy returns the legacy-binary reader.
func NewLegacyXLSStrategy() *LegacyXLSStrategy { return &LegacyXLSStrategy{charset: "utf-8"} }

// Name implements Strategy.
func (s *LegacyXLSStrategy) Name() string { return "legacy-xls" }

// Accepts implements Strategy.
func (s *LegacyXLSStrategy) Accepts(ext string) bool {
	return ext == ".xls" || ext == ".xlsx" || ext == ".et"
}

// Attempt implements Strategy. The reader panics on some corrupt records,
// so a panic is reported as an ordinary failure.
func (s *LegacyXLSStrategy) Attempt(ctx context.Context, data []byte) (grid Grid, err error) {
	if !bytes.HasPrefix(data, oleMagic) {
		return Grid{}, errors.New("not an OLE2 compound document")
	}
	defer func() {
		if r := recover(); r != nil {
			grid, err = Grid{}, fmt.Errorf("corrupt workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), s.charset)
	if err != nil {
		return Grid{}, fmt.Errorf("open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return Grid{}, errors.New("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return Grid{}, errors.New("first sheet is unreadable")
	}

	rows := make([][]table.Cell, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return Grid{}, err
			}
		}
		r := sheet.Row(i)
		if r == nil {
			rows = append(rows, nil)
			continue
		}
		row := make([]table.Cell, r.LastCol())
		for j := range row {
			if j < r.FirstCol() {
				row[j] = table.Null()
				continue
			}
			row[j] = textCell(r.Col(j))
		}
		rows = append(rows, row)
	}
	return Grid{Rows: rows}, nil
}
