package vectorindex

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
	domcol "github.com/kailas-cloud/tablens/internal/domain/collection"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
	"github.com/kailas-cloud/tablens/internal/retry"
)

// --- Embedder ---

// hashEmbedder maps each word to a bucket, so equal texts get equal vectors.
type hashEmbedder struct {
	mu    sync.Mutex
	dim   int
	calls []string
	errFn func(text string) error
}

func (e *hashEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, text)
	if e.errFn != nil {
		if err := e.errFn(text); err != nil {
			return domain.EmbeddingResult{}, err
		}
	}
	vec := make([]float32, e.dim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[int(h.Sum32())%e.dim]++
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: len(text)}, nil
}

func (e *hashEmbedder) setDim(d int) {
	e.mu.Lock()
	e.dim = d
	e.mu.Unlock()
}

func (e *hashEmbedder) probes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == ProbeText {
			n++
		}
	}
	return n
}

// --- Collections ---

type memCollections struct {
	mu        sync.Mutex
	cols      map[string]domcol.Collection
	points    *memPoints
	createErr []error // consumed per Create call
	onCreate  func(col domcol.Collection)
	deleted   []string
}

func (m *memCollections) Create(_ context.Context, col domcol.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErr) > 0 {
		err := m.createErr[0]
		m.createErr = m.createErr[1:]
		if m.onCreate != nil {
			m.onCreate(col)
		}
		return err
	}
	if _, ok := m.cols[col.Name()]; ok {
		return domain.ErrAlreadyExists
	}
	m.cols[col.Name()] = col
	return nil
}

func (m *memCollections) Get(_ context.Context, name string) (domcol.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.cols[name]
	if !ok {
		return domcol.Collection{}, domain.ErrNotFound
	}
	return col, nil
}

func (m *memCollections) List(_ context.Context) ([]domcol.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domcol.Collection, 0, len(m.cols))
	for _, c := range m.cols {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (m *memCollections) Count(_ context.Context, name string) (int, error) {
	return m.points.count(name), nil
}

func (m *memCollections) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cols[name]; !ok {
		return domain.ErrNotFound
	}
	delete(m.cols, name)
	m.deleted = append(m.deleted, name)
	return nil
}

// --- Points ---

type memPoints struct {
	mu        sync.Mutex
	byCol     map[string]map[uuid.UUID]dompoint.Point
	searchErr map[string]error
	upsertErr func(p dompoint.Point) error
	// searchFaults fails that many Search calls with a connection reset.
	searchFaults int
}

var errConnReset = errors.New("dial tcp 127.0.0.1:6379: connection reset by peer")

func (m *memPoints) Upsert(_ context.Context, collection string, points []dompoint.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		if m.upsertErr != nil {
			if err := m.upsertErr(p); err != nil {
				return err
			}
		}
		if m.byCol[collection] == nil {
			m.byCol[collection] = map[uuid.UUID]dompoint.Point{}
		}
		m.byCol[collection][p.ID] = p
	}
	return nil
}

func (m *memPoints) Search(
	_ context.Context, collection string, vector []float32, k int, datasetID *uuid.UUID,
) ([]dompoint.Ranked, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.searchErr[collection]; err != nil {
		return nil, err
	}
	if m.searchFaults > 0 {
		m.searchFaults--
		return nil, errConnReset
	}
	var hits []dompoint.Ranked
	for _, p := range m.byCol[collection] {
		if datasetID != nil && p.DatasetID != *datasetID {
			continue
		}
		hits = append(hits, dompoint.Ranked{Point: p, Collection: collection, Score: cosine(vector, p.Vector)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *memPoints) ListByDataset(_ context.Context, collection string, datasetID uuid.UUID) ([]dompoint.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dompoint.Point
	for _, p := range m.byCol[collection] {
		if p.DatasetID == datasetID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Column.Index < out[j].Column.Index })
	return out, nil
}

func (m *memPoints) DeleteByDataset(_ context.Context, collection string, datasetID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, p := range m.byCol[collection] {
		if p.DatasetID == datasetID {
			delete(m.byCol[collection], id)
			n++
		}
	}
	return n, nil
}

func (m *memPoints) count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byCol[collection])
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// --- Fixture ---

type fixture struct {
	svc    *Service
	emb    *hashEmbedder
	cols   *memCollections
	pts    *memPoints
	sleeps int
}

func newFixture(dim int) *fixture {
	pts := &memPoints{byCol: map[string]map[uuid.UUID]dompoint.Point{}, searchErr: map[string]error{}}
	cols := &memCollections{cols: map[string]domcol.Collection{}, points: pts}
	emb := &hashEmbedder{dim: dim}
	f := &fixture{emb: emb, cols: cols, pts: pts}
	policy := retry.Policy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		Sleep: func(_ context.Context, _ time.Duration) error {
			f.sleeps++
			return nil
		},
	}
	svc, err := New(emb, cols, pts, "", policy, zap.NewNop())
	if err != nil {
		panic(err)
	}
	f.svc = svc
	return f
}

var errBoom = errors.New("boom")
