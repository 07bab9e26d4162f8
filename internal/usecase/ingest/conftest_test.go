package ingest

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
	"github.com/kailas-cloud/tablens/internal/domain/column"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	"github.com/kailas-cloud/tablens/internal/parser"
	"github.com/kailas-cloud/tablens/internal/repository/lock"
	"github.com/kailas-cloud/tablens/internal/usecase/vectorindex"
)

// --- Dataset repository ---

type memDatasets struct {
	mu       sync.Mutex
	datasets map[uuid.UUID]domds.Dataset
	columns  map[uuid.UUID][]column.Column
	statuses int
	gets     int
	// afterGet edits the copy returned by the n-th Get (1-based).
	afterGet func(n int, d *domds.Dataset)
}

func newMemDatasets() *memDatasets {
	return &memDatasets{datasets: map[uuid.UUID]domds.Dataset{}, columns: map[uuid.UUID][]column.Column{}}
}

func (m *memDatasets) Create(_ context.Context, d *domds.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[d.ID] = *d
	return nil
}

func (m *memDatasets) Get(_ context.Context, id uuid.UUID) (domds.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.datasets[id]
	if !ok {
		return domds.Dataset{}, domain.ErrNotFound
	}
	m.gets++
	if m.afterGet != nil {
		m.afterGet(m.gets, &d)
	}
	return d, nil
}

func (m *memDatasets) FindByHash(_ context.Context, hash string) (domds.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.datasets {
		if d.ContentHash == hash {
			return d, nil
		}
	}
	return domds.Dataset{}, domain.ErrNotFound
}

func (m *memDatasets) List(_ context.Context) ([]domds.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domds.Dataset, 0, len(m.datasets))
	for _, d := range m.datasets {
		out = append(out, d)
	}
	return out, nil
}

func (m *memDatasets) Update(_ context.Context, d *domds.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[d.ID]; !ok {
		return domain.ErrNotFound
	}
	m.datasets[d.ID] = *d
	return nil
}

func (m *memDatasets) SaveStatus(_ context.Context, id uuid.UUID, stage domds.Stage, st domds.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.datasets[id]
	if !ok {
		return domain.ErrNotFound
	}
	switch stage {
	case domds.StageParse:
		d.Parse = st
	case domds.StageChunk:
		d.Chunk = st
	case domds.StageVectorize:
		d.Vectorize = st
	}
	d.UpdatedAt = at
	m.datasets[id] = d
	m.statuses++
	return nil
}

func (m *memDatasets) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.datasets, id)
	delete(m.columns, id)
	return nil
}

func (m *memDatasets) ReplaceColumns(_ context.Context, id uuid.UUID, cols []column.Column) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.columns[id] = append([]column.Column(nil), cols...)
	return nil
}

func (m *memDatasets) Columns(_ context.Context, id uuid.UUID) ([]column.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.columns[id], nil
}

// --- Blobs ---

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memBlobs) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(data)
	return "objects/" + key, nil
}

func (m *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *memBlobs) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	delete(m.objects, key)
	return ok, nil
}

func (m *memBlobs) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// --- Indexer ---

type indexCall struct {
	datasetID uuid.UUID
	columns   int
	mode      vectorindex.Mode
}

type fakeIndexer struct {
	mu       sync.Mutex
	calls    []indexCall
	deleted  []uuid.UUID
	indexErr error
	panicMsg string
}

func (f *fakeIndexer) Index(
	_ context.Context, id uuid.UUID, cols []column.Column, mode vectorindex.Mode, progress vectorindex.ProgressFunc,
) error {
	f.mu.Lock()
	f.calls = append(f.calls, indexCall{datasetID: id, columns: len(cols), mode: mode})
	err := f.indexErr
	msg := f.panicMsg
	f.mu.Unlock()
	if msg != "" {
		panic(msg)
	}
	for i := range cols {
		progress(i+1, len(cols))
	}
	return err
}

func (f *fakeIndexer) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndexer) lastCall() indexCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// --- Lock store ---

type memLockStore struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

func (m *memLockStore) SetNX(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = string(value)
	return true, nil
}

func (m *memLockStore) CompareAndDelete(_ context.Context, key string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] != string(value) {
		return false, nil
	}
	delete(m.keys, key)
	return true, nil
}

// --- Fixture ---

type fixture struct {
	svc      *Service
	datasets *memDatasets
	blobs    *memBlobs
	index    *fakeIndexer
	locks    *lock.Locker
	lockDB   *memLockStore
	runner   *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		datasets: newMemDatasets(),
		blobs:    &memBlobs{objects: map[string][]byte{}},
		index:    &fakeIndexer{},
		lockDB:   &memLockStore{keys: map[string]string{}},
		runner:   NewRunner(context.Background(), zap.NewNop()),
	}
	f.locks = lock.New(f.lockDB, time.Minute)
	f.svc = New(f.datasets, f.blobs, parser.New(zap.NewNop()), f.index, f.locks, f.runner, Limits{}, zap.NewNop())
	return f
}

// wait blocks until every background run finished and reopens the runner.
func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := f.runner.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	f.runner.mu.Lock()
	f.runner.closed = false
	f.runner.mu.Unlock()
}

func (f *fixture) upload(t *testing.T, name, content string) domds.Dataset {
	t.Helper()
	d, err := f.svc.Upload(context.Background(), Upload{Filename: name, Data: []byte(content)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.wait(t)
	got, err := f.svc.Get(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return got
}

const salesCSV = "region,amount,order_date\nnorth,10.5,2024-01-02\nsouth,20,2024-02-03\neast,7.25,2024-03-04\n"
