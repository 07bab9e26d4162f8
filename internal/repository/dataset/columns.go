package dataset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/domain/column"
)

// ReplaceColumns swaps the column set of a dataset in one transaction.
func (r *Repo) ReplaceColumns(ctx context.Context, id uuid.UUID, cols []column.Column) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM dataset_columns WHERE dataset_id = ?`, id.String()); err != nil {
		return fmt.Errorf("clear columns of %s: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO dataset_columns
		(dataset_id, column_index, name, label, type, stats, samples) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare column insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cols {
		stats, mErr := json.Marshal(c.Stats)
		if mErr != nil {
			return fmt.Errorf("marshal stats of %s: %w", c.Name, mErr)
		}
		samples := c.Samples
		if samples == nil {
			samples = []string{}
		}
		rawSamples, mErr := json.Marshal(samples)
		if mErr != nil {
			return fmt.Errorf("marshal samples of %s: %w", c.Name, mErr)
		}
		if _, err = stmt.ExecContext(ctx, id.String(), c.Index, c.Name, c.Label, string(c.Type),
			string(stats), string(rawSamples)); err != nil {
			return fmt.Errorf("insert column %s of %s: %w", c.Name, id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit columns of %s: %w", id, err)
	}
	return nil
}

// Columns returns the columns of a dataset ordered by index.
func (r *Repo) Columns(ctx context.Context, id uuid.UUID) ([]column.Column, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT column_index, name, label, type, stats, samples
		FROM dataset_columns WHERE dataset_id = ? ORDER BY column_index`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", id, err)
	}
	defer rows.Close()

	out := []column.Column{}
	for rows.Next() {
		var (
			c              column.Column
			typ            string
			stats, samples string
		)
		if err := rows.Scan(&c.Index, &c.Name, &c.Label, &typ, &stats, &samples); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if c.Type, err = column.ParseType(typ); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(stats), &c.Stats); err != nil {
			return nil, fmt.Errorf("unmarshal stats of %s: %w", c.Name, err)
		}
		if err := json.Unmarshal([]byte(samples), &c.Samples); err != nil {
			return nil, fmt.Errorf("unmarshal samples of %s: %w", c.Name, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
