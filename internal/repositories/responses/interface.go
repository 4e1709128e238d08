// Package responses mirrors per-page AI response cache entries in the local
// store so answers survive restarts and can be served without the remote.
package responses

import (
	"context"

	"github.com/ekamanam/studysync/internal/models"
)

type Repository interface {
	// Put stores the whole entry for (entry.ItemID, entry.Page).
	Put(ctx context.Context, entry *models.CacheEntry) error

	// Get returns the entry for (itemID, page) or common.ErrNotFound.
	Get(ctx context.Context, itemID string, page int) (*models.CacheEntry, error)

	// ListByItem returns every cached page of itemID ordered by page.
	ListByItem(ctx context.Context, itemID string) ([]*models.CacheEntry, error)

	// DeleteByItem drops every cached page of itemID.
	DeleteByItem(ctx context.Context, itemID string) error
}
