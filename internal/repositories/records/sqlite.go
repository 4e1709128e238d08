package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/dbx"
	"github.com/ekamanam/studysync/internal/models"
)

// Tables that hold records.
const (
	TableItems = "items"
	TableHubs  = "hubs"
)

type SQLiteRepository[T models.Record] struct {
	db    dbx.DBTX
	table string
}

// NewSQLiteRepository returns a repository over table, which must be one of
// TableItems or TableHubs.
func NewSQLiteRepository[T models.Record](db dbx.DBTX, table string) *SQLiteRepository[T] {
	switch table {
	case TableItems, TableHubs:
	default:
		panic(fmt.Sprintf("records: unknown table %q", table))
	}
	return &SQLiteRepository[T]{db: db, table: table}
}

func (r *SQLiteRepository[T]) Put(ctx context.Context, rec T, pending bool) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", r.table, err)
	}

	query := `INSERT INTO ` + r.table + ` (id, data, updated_at, deleted, pending)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at,
			deleted = 0,
			pending = excluded.pending`
	_, err = r.db.ExecContext(ctx, query, rec.RecordID(), data, rec.RecordUpdatedAt().UnixNano(), pending)
	if err != nil {
		return fmt.Errorf("failed to upsert %s record %s: %w", r.table, rec.RecordID(), err)
	}
	return nil
}

func (r *SQLiteRepository[T]) decode(data []byte) (T, error) {
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode %s record: %w", r.table, err)
	}
	return rec, nil
}

func (r *SQLiteRepository[T]) Get(ctx context.Context, id string) (T, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM `+r.table+` WHERE id = ? AND deleted = 0`, id).Scan(&data)
	if dbx.IsNoRows(err) {
		var zero T
		return zero, fmt.Errorf("%s record %s: %w", r.table, id, common.ErrNotFound)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to get %s record %s: %w", r.table, id, err)
	}
	return r.decode(data)
}

func (r *SQLiteRepository[T]) query(ctx context.Context, where string) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM `+r.table+` WHERE `+where+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s records: %w", r.table, err)
	}
	defer rows.Close()

	var result []T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.table, err)
		}
		rec, err := r.decode(data)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", r.table, err)
	}
	return result, nil
}

func (r *SQLiteRepository[T]) List(ctx context.Context) ([]T, error) {
	return r.query(ctx, `deleted = 0`)
}

func (r *SQLiteRepository[T]) ListPending(ctx context.Context) ([]T, error) {
	return r.query(ctx, `deleted = 0 AND pending = 1`)
}

func (r *SQLiteRepository[T]) Tombstones(ctx context.Context) ([]T, error) {
	return r.query(ctx, `deleted = 1`)
}

func (r *SQLiteRepository[T]) MarkSynced(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		_, err := r.db.ExecContext(ctx, `UPDATE `+r.table+` SET pending = 0 WHERE id = ? AND deleted = 0`, id)
		if err != nil {
			return fmt.Errorf("failed to mark %s record %s synced: %w", r.table, id, err)
		}
	}
	return nil
}

func (r *SQLiteRepository[T]) Tombstone(ctx context.Context, id string) (T, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return rec, err
	}

	result, err := r.db.ExecContext(ctx, `UPDATE `+r.table+` SET deleted = 1, pending = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return rec, fmt.Errorf("failed to delete %s record %s: %w", r.table, id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return rec, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return rec, fmt.Errorf("%s record %s: %w", r.table, id, common.ErrNotFound)
	}
	return rec, nil
}

func (r *SQLiteRepository[T]) Purge(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM `+r.table+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to purge %s record %s: %w", r.table, id, err)
	}
	return nil
}
