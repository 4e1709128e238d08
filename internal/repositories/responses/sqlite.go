package responses

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/dbx"
	"github.com/ekamanam/studysync/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, e *models.CacheEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO responses (item_id, page, data, last_accessed) VALUES (?, ?, ?, ?)
		ON CONFLICT(item_id, page) DO UPDATE SET
			data = excluded.data,
			last_accessed = excluded.last_accessed
	`, e.ItemID, e.Page, data, e.LastAccessed.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry %s: %w", common.CacheKey(e.ItemID, e.Page), err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, itemID string, page int) (*models.CacheEntry, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM responses WHERE item_id = ? AND page = ?`, itemID, page).Scan(&data)
	if dbx.IsNoRows(err) {
		return nil, fmt.Errorf("cache entry %s: %w", common.CacheKey(itemID, page), common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry %s: %w", common.CacheKey(itemID, page), err)
	}

	e := &models.CacheEntry{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry %s: %w", common.CacheKey(itemID, page), err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListByItem(ctx context.Context, itemID string) ([]*models.CacheEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM responses WHERE item_id = ? ORDER BY page`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to select cache entries: %w", err)
	}
	defer rows.Close()

	var result []*models.CacheEntry
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		e := &models.CacheEntry{}
		if err := json.Unmarshal(data, e); err != nil {
			return nil, fmt.Errorf("failed to decode cache entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache entries: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByItem(ctx context.Context, itemID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM responses WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("failed to delete cache entries of %s: %w", itemID, err)
	}
	return nil
}
