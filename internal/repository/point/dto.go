package point

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/domain/column"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
	colrepo "github.com/kailas-cloud/tablens/internal/repository/collection"
)

// pointToHash converts a point into a flat map for HSET.
func pointToHash(p *dompoint.Point) (map[string]string, error) {
	colJSON, err := json.Marshal(p.Column)
	if err != nil {
		return nil, fmt.Errorf("marshal column %s: %w", p.Column.Name, err)
	}
	return map[string]string{
		colrepo.FieldDatasetID:   p.DatasetID.String(),
		colrepo.FieldColumnName:  p.Column.Name,
		colrepo.FieldColumnIndex: strconv.Itoa(p.Column.Index),
		colrepo.FieldColumn:      string(colJSON),
		colrepo.FieldDescription: p.Description,
		colrepo.FieldVector:      vectorToBytes(p.Vector),
	}, nil
}

// pointFromHash rebuilds a point from a search entry. The vector is
// restored only when the field was returned.
func pointFromHash(collection, key string, m map[string]string) (dompoint.Point, error) {
	id, err := uuid.Parse(strings.TrimPrefix(key, colrepo.KeyPrefix(collection)))
	if err != nil {
		return dompoint.Point{}, fmt.Errorf("parse point id from %s: %w", key, err)
	}
	datasetID, err := uuid.Parse(m[colrepo.FieldDatasetID])
	if err != nil {
		return dompoint.Point{}, fmt.Errorf("parse dataset id of %s: %w", key, err)
	}

	var col column.Column
	if raw := m[colrepo.FieldColumn]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &col); err != nil {
			return dompoint.Point{}, fmt.Errorf("unmarshal column of %s: %w", key, err)
		}
	} else {
		col.Name = m[colrepo.FieldColumnName]
		col.Index, _ = strconv.Atoi(m[colrepo.FieldColumnIndex])
	}

	p := dompoint.Point{
		ID:          id,
		DatasetID:   datasetID,
		Column:      col,
		Description: m[colrepo.FieldDescription],
	}
	if raw, ok := m[colrepo.FieldVector]; ok {
		p.Vector = bytesToVector(raw)
	}
	return p, nil
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
