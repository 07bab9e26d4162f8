package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/domain"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
)

const datasetColumns = `id, name, logical_name, content_hash, byte_size, row_count, column_count,
	raw_key, columnar_key, content_type,
	parse_state, parse_progress, parse_error,
	chunk_state, chunk_progress, chunk_error,
	vectorize_state, vectorize_progress, vectorize_error,
	created_at, updated_at`

// Create inserts a new dataset row.
func (r *Repo) Create(ctx context.Context, d *domds.Dataset) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO datasets (`+datasetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.Name, d.LogicalName, d.ContentHash, d.ByteSize, d.RowCount, d.ColumnCount,
		d.RawKey, d.ColumnarKey, d.ContentType,
		string(d.Parse.State), d.Parse.Progress, d.Parse.Error,
		string(d.Chunk.State), d.Chunk.Progress, d.Chunk.Error,
		string(d.Vectorize.State), d.Vectorize.Progress, d.Vectorize.Error,
		d.CreatedAt.UnixMilli(), d.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert dataset %s: %w", d.ID, err)
	}
	return nil
}

// Get returns a dataset by id.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (domds.Dataset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id.String())
	d, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domds.Dataset{}, fmt.Errorf("dataset %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domds.Dataset{}, fmt.Errorf("get dataset %s: %w", id, err)
	}
	return d, nil
}

// FindByHash returns the oldest dataset with the given content hash.
func (r *Repo) FindByHash(ctx context.Context, hash string) (domds.Dataset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE content_hash = ? ORDER BY created_at LIMIT 1`, hash)
	d, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domds.Dataset{}, domain.ErrNotFound
	}
	if err != nil {
		return domds.Dataset{}, fmt.Errorf("find dataset by hash: %w", err)
	}
	return d, nil
}

// List returns every dataset, newest first.
func (r *Repo) List(ctx context.Context) ([]domds.Dataset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+datasetColumns+` FROM datasets ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	out := []domds.Dataset{}
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetMany returns the datasets with the given ids in the requested order.
// Unknown ids are skipped.
func (r *Repo) GetMany(ctx context.Context, ids []uuid.UUID) ([]domds.Dataset, error) {
	out := make([]domds.Dataset, 0, len(ids))
	for _, id := range ids {
		d, err := r.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Update overwrites the mutable attributes of a dataset.
func (r *Repo) Update(ctx context.Context, d *domds.Dataset) error {
	res, err := r.db.ExecContext(ctx, `UPDATE datasets SET
		logical_name = ?, row_count = ?, column_count = ?,
		raw_key = ?, columnar_key = ?, content_type = ?,
		parse_state = ?, parse_progress = ?, parse_error = ?,
		chunk_state = ?, chunk_progress = ?, chunk_error = ?,
		vectorize_state = ?, vectorize_progress = ?, vectorize_error = ?,
		updated_at = ?
		WHERE id = ?`,
		d.LogicalName, d.RowCount, d.ColumnCount,
		d.RawKey, d.ColumnarKey, d.ContentType,
		string(d.Parse.State), d.Parse.Progress, d.Parse.Error,
		string(d.Chunk.State), d.Chunk.Progress, d.Chunk.Error,
		string(d.Vectorize.State), d.Vectorize.Progress, d.Vectorize.Error,
		d.UpdatedAt.UnixMilli(), d.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update dataset %s: %w", d.ID, err)
	}
	return requireOne(res, d.ID)
}

// SaveStatus writes the status of one stage.
func (r *Repo) SaveStatus(ctx context.Context, id uuid.UUID, stage domds.Stage, st domds.Status, at time.Time) error {
	if _, err := domds.ParseStage(string(stage)); err != nil {
		return err
	}
	prefix := string(stage)
	query := fmt.Sprintf(`UPDATE datasets SET %[1]s_state = ?, %[1]s_progress = ?, %[1]s_error = ?, updated_at = ?
		WHERE id = ?`, prefix)
	res, err := r.db.ExecContext(ctx, query, string(st.State), st.Progress, st.Error, at.UnixMilli(), id.String())
	if err != nil {
		return fmt.Errorf("save %s status of %s: %w", stage, id, err)
	}
	return requireOne(res, id)
}

// Delete removes a dataset and, by cascade, its columns.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}
	return requireOne(res, id)
}

func requireOne(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("dataset %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (domds.Dataset, error) {
	var (
		d                                domds.Dataset
		id                               string
		parseState, chunkState, vecState string
		createdAt, updatedAt             int64
	)
	err := row.Scan(&id, &d.Name, &d.LogicalName, &d.ContentHash, &d.ByteSize, &d.RowCount, &d.ColumnCount,
		&d.RawKey, &d.ColumnarKey, &d.ContentType,
		&parseState, &d.Parse.Progress, &d.Parse.Error,
		&chunkState, &d.Chunk.Progress, &d.Chunk.Error,
		&vecState, &d.Vectorize.Progress, &d.Vectorize.Error,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return domds.Dataset{}, err
	}
	if d.ID, err = uuid.Parse(id); err != nil {
		return domds.Dataset{}, fmt.Errorf("parse dataset id %q: %w", id, err)
	}
	d.Parse.State = domds.State(parseState)
	d.Chunk.State = domds.State(chunkState)
	d.Vectorize.State = domds.State(vecState)
	d.CreatedAt = time.UnixMilli(createdAt).UTC()
	d.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return d, nil
}
