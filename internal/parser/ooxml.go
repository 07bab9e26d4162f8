package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/tablens/internal/domain/table"
)

// OOXMLStrategy walks the workbook package directly. It reads cell values only
// and never touches styles, data validation or defined names, so it survives
// workbooks whose metadata a full reader rejects.
type OOXMLStrategy struct{}

// NewOOXMLStrategy returns the low-level read-only workbook walker.
func NewOOXMLStrategy() *OOXMLStrategy { return &OOXMLStrategy{} }

// Name implements Strategy.
func (s *OOXMLStrategy) Name() string { return "ooxml-walk" }

// Accepts implements Strategy.
func (s *OOXMLStrategy) Accepts(ext string) bool {
	return ext == ".xlsx" || ext == ".xlsm" || ext == ".et"
}

// Attempt implements Strategy.
func (s *OOXMLStrategy) Attempt(ctx context.Context, data []byte) (Grid, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Grid{}, fmt.Errorf("open package: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[strings.TrimPrefix(f.Name, "/")] = f
	}

	sheetPath, err := firstSheetPath(files)
	if err != nil {
		return Grid{}, err
	}

	var shared []string
	if f, ok := files["xl/sharedStrings.xml"]; ok {
		if shared, err = readSharedStrings(f); err != nil {
			return Grid{}, fmt.Errorf("shared strings: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return Grid{}, err
	}
	rows, err := readSheet(files[sheetPath], shared)
	if err != nil {
		return Grid{}, fmt.Errorf("sheet %s: %w", sheetPath, err)
	}
	return Grid{Rows: rows}, nil
}

// firstSheetPath resolves the first sheet through the workbook relationships,
// falling back to the lowest-numbered worksheet part.
func firstSheetPath(files map[string]*zip.File) (string, error) {
	if p, err := sheetFromRels(files); err == nil {
		if _, ok := files[p]; ok {
			return p, nil
		}
	}
	var candidates []string
	for name := range files {
		if strings.HasPrefix(name, "xl/worksheets/") && strings.HasSuffix(name, ".xml") {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("package has no worksheets")
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) < len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0], nil
}

func sheetFromRels(files map[string]*zip.File) (string, error) {
	wb, ok := files["xl/workbook.xml"]
	if !ok {
		return "", errors.New("missing workbook part")
	}
	var relID string
	err := walkXML(wb, func(d *xml.Decoder, se xml.StartElement) (bool, error) {
		if se.Name.Local != "sheet" {
			return false, nil
		}
		for _, a := range se.Attr {
			if a.Name.Local == "id" {
				relID = a.Value
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return "", err
	}
	rels, ok := files["xl/_rels/workbook.xml.rels"]
	if !ok || relID == "" {
		return "", errors.New("missing workbook relationships")
	}
	var target string
	err = walkXML(rels, func(d *xml.Decoder, se xml.StartElement) (bool, error) {
		if se.Name.Local != "Relationship" {
			return false, nil
		}
		var id, t string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				t = a.Value
			}
		}
		if id == relID {
			target = t
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return "", err
	}
	if target == "" {
		return "", fmt.Errorf("relationship %s not found", relID)
	}
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/"), nil
	}
	return path.Join("xl", target), nil
}

// walkXML streams start elements to fn until it reports done.
func walkXML(f *zip.File, fn func(*xml.Decoder, xml.StartElement) (bool, error)) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	d := xml.NewDecoder(rc)
	d.Strict = false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		done, err := fn(d, se)
		if err != nil || done {
			return err
		}
	}
}

func readSharedStrings(f *zip.File) ([]string, error) {
	var out []string
	err := walkXML(f, func(d *xml.Decoder, se xml.StartElement) (bool, error) {
		if se.Name.Local != "si" {
			return false, nil
		}
		text, err := collectText(d, "si")
		if err != nil {
			return true, err
		}
		out = append(out, text)
		return false, nil
	})
	return out, err
}

// collectText concatenates <t> runs until the closing element, skipping phonetic runs.
func collectText(d *xml.Decoder, closing string) (string, error) {
	var b strings.Builder
	inText, inPhonetic := false, false
	for {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "rPh":
				inPhonetic = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "rPh":
				inPhonetic = false
			case closing:
				return b.String(), nil
			}
		case xml.CharData:
			if inText && !inPhonetic {
				b.Write(el)
			}
		}
	}
}

type rawCell struct {
	ref  string
	kind string
	val  string
}

func readSheet(f *zip.File, shared []string) ([][]table.Cell, error) {
	var rows [][]table.Cell
	err := walkXML(f, func(d *xml.Decoder, se xml.StartElement) (bool, error) {
		if se.Name.Local != "row" {
			return false, nil
		}
		if n, err := strconv.Atoi(attr(se, "r")); err == nil && n > len(rows)+1 {
			for len(rows) < n-1 {
				rows = append(rows, nil)
			}
		}
		row, err := readRow(d, shared)
		if err != nil {
			return true, err
		}
		rows = append(rows, row)
		return false, nil
	})
	return rows, err
}

func readRow(d *xml.Decoder, shared []string) ([]table.Cell, error) {
	var row []table.Cell
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local != "c" {
				continue
			}
			rc := rawCell{ref: attr(el, "r"), kind: attr(el, "t")}
			if rc.val, err = cellValue(d, rc.kind); err != nil {
				return nil, err
			}
			j := len(row)
			if col, ok := columnIndex(rc.ref); ok {
				j = col
			}
			for len(row) <= j {
				row = append(row, table.Null())
			}
			row[j] = convertRawCell(rc, shared)
		case xml.EndElement:
			if el.Name.Local == "row" {
				return row, nil
			}
		}
	}
}

func cellValue(d *xml.Decoder, kind string) (string, error) {
	if kind == "inlineStr" {
		return collectText(d, "c")
	}
	var b strings.Builder
	inV := false
	for {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			inV = el.Name.Local == "v"
		case xml.EndElement:
			if el.Name.Local == "v" {
				inV = false
			}
			if el.Name.Local == "c" {
				return b.String(), nil
			}
		case xml.CharData:
			if inV {
				b.Write(el)
			}
		}
	}
}

func convertRawCell(rc rawCell, shared []string) table.Cell {
	switch rc.kind {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(rc.val))
		if err != nil || i < 0 || i >= len(shared) {
			return table.Null()
		}
		return textCell(shared[i])
	case "b":
		return table.Bool(strings.TrimSpace(rc.val) == "1")
	case "str", "inlineStr":
		return textCell(rc.val)
	case "e":
		return table.Null()
	case "d":
		if t, err := time.Parse(time.RFC3339, rc.val); err == nil {
			return table.Time(t)
		}
		return textCell(rc.val)
	default:
		v := strings.TrimSpace(rc.val)
		if v == "" {
			return table.Null()
		}
		if !strings.ContainsAny(v, ".eE") {
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return table.Int(i)
			}
		}
		if f, ok := parseNumber(v); ok {
			return table.Float(f)
		}
		return textCell(v)
	}
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// columnIndex converts the letters of an A1 reference to a zero-based column.
func columnIndex(ref string) (int, bool) {
	n := 0
	letters := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		n = n*26 + int(r-'A'+1)
		letters++
	}
	if letters == 0 {
		return 0, false
	}
	return n - 1, true
}
