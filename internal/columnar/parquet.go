package columnar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/tablens/internal/domain/table"
)

// schemaKey holds the ordered column list in the file footer. Parquet groups
// order fields by name, so the original order travels in metadata.
const schemaKey = "tablens.schema"

const readBatch = 256

type fieldMeta struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

var kindNames = map[table.Kind]string{
	table.KindString: "string",
	table.KindInt:    "int",
	table.KindFloat:  "float",
	table.KindBool:   "bool",
	table.KindTime:   "time",
}

func kindFromName(s string) (table.Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown column kind %q", s)
}

func leafNode(k table.Kind) (parquet.Node, error) {
	switch k {
	case table.KindString:
		return parquet.Optional(parquet.String()), nil
	case table.KindInt:
		return parquet.Optional(parquet.Int(64)), nil
	case table.KindFloat:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType)), nil
	case table.KindBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType)), nil
	case table.KindTime:
		return parquet.Optional(parquet.Timestamp(parquet.Millisecond)), nil
	default:
		return nil, fmt.Errorf("no parquet type for kind %s", k)
	}
}

func leafIndex(schema *parquet.Schema) map[string]int {
	out := make(map[string]int)
	for i, path := range schema.Columns() {
		if len(path) > 0 {
			out[path[0]] = i
		}
	}
	return out
}

// Marshal normalizes t and encodes it.
func Marshal(t *table.Table) ([]byte, error) {
	norm, kinds, err := Normalize(t)
	if err != nil {
		return nil, err
	}
	return Encode(norm, kinds)
}

// Encode writes a normalized table. kinds[j] is the storage kind of column j.
func Encode(t *table.Table, kinds []table.Kind) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, errors.New("table has no columns")
	}
	if len(kinds) != len(t.Columns) {
		return nil, fmt.Errorf("got %d kinds for %d columns", len(kinds), len(t.Columns))
	}

	group := make(parquet.Group, len(t.Columns))
	meta := make([]fieldMeta, len(t.Columns))
	for j, name := range t.Columns {
		node, err := leafNode(kinds[j])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		group[name] = node
		meta[j] = fieldMeta{Name: name, Kind: kindNames[kinds[j]]}
	}
	schema := parquet.NewSchema("dataset", group)
	leaves := leafIndex(schema)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	rows := make([]parquet.Row, len(t.Rows))
	for i, r := range t.Rows {
		row := make(parquet.Row, len(t.Columns))
		for j, name := range t.Columns {
			idx := leaves[name]
			row[idx], err = cellValue(r[j], kinds[j], idx)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, name, err)
			}
		}
		rows[i] = row
	}

	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, schema,
		parquet.Compression(&parquet.Snappy),
		parquet.KeyValueMetadata(schemaKey, string(metaJSON)),
	)
	if _, err := w.WriteRows(rows); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(c table.Cell, k table.Kind, idx int) (parquet.Value, error) {
	if c.IsNull() {
		return parquet.NullValue().Level(0, 0, idx), nil
	}
	if c.Kind() != k {
		return parquet.Value{}, fmt.Errorf("cell kind %s in %s column", c.Kind(), k)
	}
	var v parquet.Value
	switch k {
	case table.KindString:
		v = parquet.ByteArrayValue([]byte(c.Str()))
	case table.KindInt:
		v = parquet.Int64Value(c.Int64())
	case table.KindFloat:
		v = parquet.DoubleValue(c.Float64())
	case table.KindBool:
		v = parquet.BooleanValue(c.Boolean())
	case table.KindTime:
		v = parquet.Int64Value(c.Timestamp().UnixMilli())
	}
	return v.Level(0, 1, idx), nil
}

// Decode reads a file written by Encode.
func Decode(data []byte) (*table.Table, []table.Kind, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet: %w", err)
	}
	raw, ok := f.Lookup(schemaKey)
	if !ok {
		return nil, nil, errors.New("parquet file has no column metadata")
	}
	var meta []fieldMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	t := &table.Table{Columns: make([]string, len(meta))}
	kinds := make([]table.Kind, len(meta))
	leaves := leafIndex(f.Schema())
	byLeaf := make(map[int]int, len(meta))
	for j, m := range meta {
		k, err := kindFromName(m.Kind)
		if err != nil {
			return nil, nil, err
		}
		idx, ok := leaves[m.Name]
		if !ok {
			return nil, nil, fmt.Errorf("column %q missing from parquet schema", m.Name)
		}
		t.Columns[j] = m.Name
		kinds[j] = k
		byLeaf[idx] = j
	}

	r := parquet.NewReader(bytes.NewReader(data))
	defer r.Close()

	batch := make([]parquet.Row, readBatch)
	for {
		n, err := r.ReadRows(batch)
		for _, pr := range batch[:n] {
			row := make([]table.Cell, len(meta))
			for _, v := range pr {
				j, ok := byLeaf[v.Column()]
				if !ok {
					continue
				}
				row[j] = decodeValue(v, kinds[j])
			}
			t.Rows = append(t.Rows, row)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return t, kinds, nil
}

func decodeValue(v parquet.Value, k table.Kind) table.Cell {
	if v.IsNull() {
		return table.Null()
	}
	switch k {
	case table.KindString:
		return table.String(string(v.ByteArray()))
	case table.KindInt:
		return table.Int(v.Int64())
	case table.KindFloat:
		return table.Float(v.Double())
	case table.KindBool:
		return table.Bool(v.Boolean())
	case table.KindTime:
		return table.Time(timeFromMillis(v.Int64()))
	default:
		return table.Null()
	}
}
