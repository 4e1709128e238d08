package payloads

import (
	"context"
	"fmt"
	"time"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payloads (key, data, size, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			size = excluded.size,
			updated_at = excluded.updated_at
	`, key, data, len(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store payload[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM payloads WHERE key = ?`, key).Scan(&data)
	if dbx.IsNoRows(err) {
		return nil, fmt.Errorf("payload[%s]: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payload[%s]: %w", key, err)
	}
	return data, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payloads WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check payload[%s]: %w", key, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payloads WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete payload[%s]: %w", key, err)
	}
	return nil
}
