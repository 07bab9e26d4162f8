package blob

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/tablens/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "blobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	path, err := s.Put(ctx, "uploads/a.csv", []byte("a,b\n1,2\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "objects/uploads/a.csv", path)

	data, err := s.Get(ctx, "uploads/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	info, err := s.Stat(ctx, "uploads/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", info.ContentType)
	assert.Equal(t, 8, info.Size)
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Put(ctx, "k", []byte("one"), "")
	require.NoError(t, err)
	_, err = s.Put(ctx, "k", []byte("two"), "")
	require.NoError(t, err)

	data, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "absent")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_ExistsDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Put(ctx, "parquet/x.parquet", []byte{1, 2, 3}, "application/vnd.apache.parquet")
	require.NoError(t, err)

	ok, err := s.Exists(ctx, "parquet/x.parquet")
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := s.Delete(ctx, "parquet/x.parquet")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, "parquet/x.parquet")
	require.NoError(t, err)
	assert.False(t, deleted)

	ok, err = s.Exists(ctx, "parquet/x.parquet")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Stat(ctx, "parquet/x.parquet")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_EmptyKey(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Put(context.Background(), "", []byte("x"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_Ping(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	assert.Equal(t, "uploads/0f8fad5b-d9cb-469f-a165-70867728950e_20240506_070809_sales_report.csv",
		UploadKey(id, "sales report.csv", at))
	assert.Equal(t, "uploads/0f8fad5b-d9cb-469f-a165-70867728950e_20240506_070809_b.xlsx", UploadKey(id, "../a/b.xlsx", at))
	assert.Equal(t, "parquet/0f8fad5b-d9cb-469f-a165-70867728950e.parquet", ColumnarKey(id))
}
