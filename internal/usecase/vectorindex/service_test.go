package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/describe"
	"github.com/kailas-cloud/tablens/internal/domain"
	domcol "github.com/kailas-cloud/tablens/internal/domain/collection"
	"github.com/kailas-cloud/tablens/internal/domain/column"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
	"github.com/kailas-cloud/tablens/internal/retry"
)

var salesColumns = []column.Column{
	{Name: "region", Index: 0, Type: column.TypeString, Samples: []string{"north", "south"}},
	{Name: "amount", Index: 1, Type: column.TypeFloat, Samples: []string{"12.5", "40"}},
	{Name: "order_date", Index: 2, Type: column.TypeDate, Samples: []string{"2024-01-02 00:00:00"}},
	{Name: "customer_email", Index: 3, Type: column.TypeString, Samples: []string{"a@example.com"}},
}

// --- Collection resolution ---

func TestCollection_CreatesVersionedNameAndCaches(t *testing.T) {
	f := newFixture(8)
	ctx := context.Background()

	col, err := f.svc.Collection(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Name() != "columns_8" || col.VectorDim() != 8 {
		t.Fatalf("unexpected collection: %s/%d", col.Name(), col.VectorDim())
	}
	if _, err := f.svc.Collection(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.emb.probes() != 1 {
		t.Errorf("expected a single probe, got %d", f.emb.probes())
	}

	f.svc.Refresh()
	f.emb.setDim(16)
	col, err = f.svc.Collection(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Name() != "columns_16" || f.emb.probes() != 2 {
		t.Fatalf("expected re-probe into columns_16, got %s after %d probes", col.Name(), f.emb.probes())
	}
}

func TestCollection_UsesExisting(t *testing.T) {
	f := newFixture(8)
	f.cols.cols["columns_8"] = domcol.Reconstruct("columns_8", 8, 1)

	col, err := f.svc.Collection(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.CreatedAt() != 1 {
		t.Errorf("expected existing collection to be reused")
	}
}

func TestCollection_RecreatesEmptyMismatch(t *testing.T) {
	f := newFixture(8)
	f.cols.cols["columns_8"] = domcol.Reconstruct("columns_8", 4, 1)

	col, err := f.svc.Collection(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.VectorDim() != 8 {
		t.Fatalf("expected recreated dimension 8, got %d", col.VectorDim())
	}
	if len(f.cols.deleted) != 1 || f.cols.deleted[0] != "columns_8" {
		t.Errorf("expected stale collection drop, got %v", f.cols.deleted)
	}
}

func TestCollection_NonEmptyMismatchConflicts(t *testing.T) {
	f := newFixture(8)
	f.cols.cols["columns_8"] = domcol.Reconstruct("columns_8", 4, 1)
	f.pts.byCol["columns_8"] = map[uuid.UUID]dompoint.Point{uuid.New(): {}}

	_, err := f.svc.Collection(context.Background())
	var conflict *domain.DimensionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected DimensionConflictError, got %v", err)
	}
	if conflict.Existing != 4 || conflict.Requested != 8 || conflict.Points != 1 {
		t.Errorf("unexpected conflict: %+v", conflict)
	}
	if !errors.Is(err, domain.ErrDimensionConflict) {
		t.Error("expected sentinel in chain")
	}
	if len(f.cols.deleted) != 0 {
		t.Error("non-empty collection must not be dropped")
	}
}

func TestCollection_LostCreationRaceRevalidates(t *testing.T) {
	f := newFixture(8)
	f.cols.createErr = []error{domain.ErrAlreadyExists}
	f.cols.onCreate = func(col domcol.Collection) {
		f.cols.cols[col.Name()] = domcol.Reconstruct(col.Name(), 8, 42)
	}

	col, err := f.svc.Collection(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.CreatedAt() != 42 {
		t.Errorf("expected the winner's collection, got created_at %d", col.CreatedAt())
	}
}

func TestCollection_ProbeFailure(t *testing.T) {
	f := newFixture(8)
	f.emb.errFn = func(string) error { return errBoom }

	if _, err := f.svc.Collection(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected probe error, got %v", err)
	}
}

// --- Index ---

func TestIndex_RoundTripTopOne(t *testing.T) {
	f := newFixture(64)
	ctx := context.Background()
	ds := uuid.New()

	if err := f.svc.Index(ctx, ds, salesColumns, Strict, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range salesColumns {
		hits, err := f.svc.Search(ctx, describe.Column(c), 1, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hits) != 1 || hits[0].Column.Name != c.Name {
			t.Fatalf("expected %s as top hit, got %+v", c.Name, hits)
		}
		if hits[0].DatasetID != ds || hits[0].Collection != "columns_64" {
			t.Errorf("unexpected hit payload: %+v", hits[0])
		}
	}
}

func TestIndex_ReportsProgress(t *testing.T) {
	f := newFixture(16)
	var seen [][2]int
	err := f.svc.Index(context.Background(), uuid.New(), salesColumns, BestEffort, func(done, total int) {
		seen = append(seen, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != len(salesColumns) || seen[len(seen)-1] != [2]int{4, 4} {
		t.Fatalf("unexpected progress: %v", seen)
	}
}

func TestIndex_ReplacesPreviousPoints(t *testing.T) {
	f := newFixture(16)
	ctx := context.Background()
	ds := uuid.New()

	if err := f.svc.Index(ctx, ds, salesColumns, Strict, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.Index(ctx, ds, salesColumns[:2], Strict, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pts, err := f.svc.Columns(ctx, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pts) != 2 || pts[0].Column.Name != "region" || pts[1].Column.Name != "amount" {
		t.Fatalf("unexpected points: %+v", pts)
	}
}

func TestIndex_BestEffortSkipsFailingColumn(t *testing.T) {
	f := newFixture(16)
	f.pts.upsertErr = func(p dompoint.Point) error {
		if p.Column.Name == "amount" {
			return errBoom
		}
		return nil
	}
	ds := uuid.New()

	if err := f.svc.Index(context.Background(), ds, salesColumns, BestEffort, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pts, _ := f.svc.Columns(context.Background(), ds)
	if len(pts) != 3 {
		t.Fatalf("expected 3 points, got %d", len(pts))
	}
}

func TestIndex_StrictAbortsOnFailure(t *testing.T) {
	f := newFixture(16)
	f.pts.upsertErr = func(p dompoint.Point) error {
		if p.Column.Name == "amount" {
			return errBoom
		}
		return nil
	}

	err := f.svc.Index(context.Background(), uuid.New(), salesColumns, Strict, nil)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected abort, got %v", err)
	}
}

func TestIndex_NoColumnsIsNoop(t *testing.T) {
	f := newFixture(16)
	if err := f.svc.Index(context.Background(), uuid.New(), nil, Strict, nil); err != nil {
		t.Fatalf("an empty column list is not a failure: %v", err)
	}
}

func TestIndex_RetriesTransientEmbedding(t *testing.T) {
	f := newFixture(16)
	failures := map[string]int{}
	f.emb.errFn = func(text string) error {
		if text == ProbeText || failures[text] > 0 {
			return nil
		}
		failures[text]++
		return domain.ErrTransient
	}

	if err := f.svc.Index(context.Background(), uuid.New(), salesColumns, Strict, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.sleeps != len(salesColumns) {
		t.Errorf("expected one backoff per column, got %d", f.sleeps)
	}
}

func TestIndex_RetriesTransientUpsert(t *testing.T) {
	f := newFixture(16)
	var calls int
	f.pts.upsertErr = func(p dompoint.Point) error {
		if p.Column.Name != "region" {
			return nil
		}
		calls++
		if calls == 1 {
			return errConnReset
		}
		return nil
	}
	ds := uuid.New()

	if err := f.svc.Index(context.Background(), ds, salesColumns, Strict, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 upsert attempts, got %d", calls)
	}
	if f.sleeps != 1 {
		t.Errorf("expected 1 backoff, got %d", f.sleeps)
	}
	pts, _ := f.svc.Columns(context.Background(), ds)
	if len(pts) != len(salesColumns) {
		t.Errorf("expected %d points, got %d", len(salesColumns), len(pts))
	}
}

func TestIndex_ExhaustedUpsertRetryAborts(t *testing.T) {
	f := newFixture(16)
	f.pts.upsertErr = func(dompoint.Point) error { return errConnReset }

	err := f.svc.Index(context.Background(), uuid.New(), salesColumns, Strict, nil)
	var tse *domain.TransientServiceError
	if !errors.As(err, &tse) {
		t.Fatalf("expected TransientServiceError, got %v", err)
	}
	if tse.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", tse.Attempts)
	}
}

func TestIndex_ExhaustedRetryIsTransientServiceError(t *testing.T) {
	f := newFixture(16)
	f.emb.errFn = func(text string) error {
		if text == ProbeText {
			return nil
		}
		return domain.ErrTransient
	}

	err := f.svc.Index(context.Background(), uuid.New(), salesColumns, Strict, nil)
	var tse *domain.TransientServiceError
	if !errors.As(err, &tse) {
		t.Fatalf("expected TransientServiceError, got %v", err)
	}
	if tse.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", tse.Attempts)
	}
}

func TestIndex_DimensionChangeOnNonEmptyIsFatal(t *testing.T) {
	f := newFixture(16)
	ctx := context.Background()
	if err := f.svc.Index(ctx, uuid.New(), salesColumns, Strict, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the model changes without a Refresh
	f.emb.setDim(32)
	err := f.svc.Index(ctx, uuid.New(), salesColumns, BestEffort, nil)
	if !errors.Is(err, domain.ErrDimensionConflict) {
		t.Fatalf("expected dimension conflict even in best-effort mode, got %v", err)
	}
}

func TestIndex_DimensionChangeOnEmptySwitches(t *testing.T) {
	f := newFixture(16)
	ctx := context.Background()
	if _, err := f.svc.Collection(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.emb.setDim(32)
	ds := uuid.New()
	if err := f.svc.Index(ctx, ds, salesColumns, Strict, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.pts.count("columns_32") != len(salesColumns) {
		t.Fatalf("expected points in columns_32, got %d", f.pts.count("columns_32"))
	}
}

// --- Search ---

func TestSearch_FiltersByDimensionAndFamily(t *testing.T) {
	f := newFixture(16)
	ctx := context.Background()
	ds := uuid.New()
	if err := f.svc.Index(ctx, ds, salesColumns, Strict, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.cols.cols["columns_32"] = domcol.Reconstruct("columns_32", 32, 2)
	f.cols.cols["docs_16"] = domcol.Reconstruct("docs_16", 16, 3)
	f.pts.searchErr["columns_32"] = errors.New("must not be queried")
	f.pts.searchErr["docs_16"] = errors.New("must not be queried")

	hits, err := f.svc.Search(ctx, "amount", 10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != len(salesColumns) {
		t.Fatalf("expected %d hits, got %d", len(salesColumns), len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i-1].Score < hits[i].Score {
			t.Fatalf("hits not sorted by score: %v", hits)
		}
	}
}

func TestSearch_TruncatesAndFiltersDataset(t *testing.T) {
	f := newFixture(16)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	if err := f.svc.Index(ctx, a, salesColumns, Strict, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.Index(ctx, b, salesColumns, Strict, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hits, err := f.svc.Search(ctx, "region", 3, &b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	for _, h := range hits {
		if h.DatasetID != b {
			t.Fatalf("unexpected dataset %s", h.DatasetID)
		}
	}
}

func TestSearch_SkipsFailingCollection(t *testing.T) {
	f := newFixture(16)
	if _, err := f.svc.Collection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.pts.searchErr["columns_16"] = errBoom

	hits, err := f.svc.Search(context.Background(), "anything", 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestSearch_RetriesTransientFailure(t *testing.T) {
	f := newFixture(16)
	ds := uuid.New()
	if err := f.svc.Index(context.Background(), ds, salesColumns, Strict, nil); err != nil {
		t.Fatalf("index: %v", err)
	}
	f.pts.searchFaults = 1

	hits, err := f.svc.Search(context.Background(), describe.Column(salesColumns[0]), 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].Column.Name != "region" {
		t.Fatalf("expected region after retry, got %+v", hits)
	}
	if f.sleeps != 1 {
		t.Errorf("expected 1 backoff, got %d", f.sleeps)
	}
}

func TestSearch_InvalidTopK(t *testing.T) {
	f := newFixture(16)
	if _, err := f.svc.Search(context.Background(), "q", 0, nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// --- Delete ---

func TestDelete_RemovesFromEveryFamilyCollection(t *testing.T) {
	f := newFixture(16)
	ctx := context.Background()
	ds := uuid.New()
	if err := f.svc.Index(ctx, ds, salesColumns, Strict, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.cols.cols["columns_8"] = domcol.Reconstruct("columns_8", 8, 0)
	f.pts.byCol["columns_8"] = map[uuid.UUID]dompoint.Point{uuid.New(): {DatasetID: ds}}

	if err := f.svc.Delete(ctx, ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.pts.count("columns_16") != 0 || f.pts.count("columns_8") != 0 {
		t.Fatal("expected every point of the dataset removed")
	}
}

// --- New ---

func TestNew_InvalidBase(t *testing.T) {
	_, err := New(&hashEmbedder{dim: 4}, nil, nil, "bad base!", retry.Policy{}, zap.NewNop())
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
