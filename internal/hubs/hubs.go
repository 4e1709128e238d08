// Package hubs keeps Learning Hubs, named collections of library items, in
// sync with the remote "hubs index" manifest. Hubs reference items by id
// only: removing a hub never touches its items, and ids that no longer
// resolve are skipped.
package hubs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/localdb"
	"github.com/ekamanam/studysync/internal/logging"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/provision"
	"github.com/ekamanam/studysync/internal/repositories/records"
	"github.com/ekamanam/studysync/internal/session"
	"github.com/ekamanam/studysync/internal/syncer"
)

// ItemLookup resolves library items by id.
type ItemLookup interface {
	Get(ctx context.Context, id string) (*models.LibraryItem, error)
}

// NewHub describes a hub being created.
type NewHub struct {
	Name        string
	Description string
	Icon        string
	Color       string
}

type Hubs struct {
	repo records.Repository[*models.HubRecord]
	rec  *syncer.Reconciler[*models.HubRecord]
	log  logging.Logger
	now  func() time.Time
}

func New(repos *localdb.Repositories, sess *session.Session, prov *provision.Provisioner, log logging.Logger) *Hubs {
	if log == nil {
		log = logging.Nop()
	}
	manifest := syncer.NewManifestFile[*models.HubRecord](common.HubsIndexFile, models.FolderRoot, prov, log)
	return &Hubs{
		repo: repos.Hubs,
		rec:  syncer.New(repos.Hubs, manifest, sess, repos.Metadata, syncer.Hooks[*models.HubRecord]{}, log),
		log:  log.With("component", "hubs"),
		now:  time.Now,
	}
}

// LoadAll returns every hub, most recently accessed first.
func (h *Hubs) LoadAll(ctx context.Context) ([]*models.HubRecord, error) {
	hubs, err := h.rec.LoadAll(ctx)
	models.SortByLastAccessed(hubs)
	return hubs, err
}

func (h *Hubs) Get(ctx context.Context, id string) (*models.HubRecord, error) {
	return h.repo.Get(ctx, id)
}

// Save stores the hub locally and pushes it to the manifest. Duplicate item
// ids are dropped.
func (h *Hubs) Save(ctx context.Context, hub *models.HubRecord) error {
	if hub == nil || hub.ID == "" {
		return fmt.Errorf("%w: hub id is required", common.ErrInvalidArgument)
	}
	hub = hub.Clone()
	hub.DedupItems()

	now := h.now().UTC()
	if hub.CreatedAt.IsZero() {
		if prev, err := h.repo.Get(ctx, hub.ID); err == nil {
			hub.CreatedAt = prev.CreatedAt
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}
	}
	if hub.CreatedAt.IsZero() {
		hub.CreatedAt = now
	}
	hub.UpdatedAt = now

	return h.rec.Save(ctx, hub)
}

// Remove deletes the hub. Referenced items are left alone.
func (h *Hubs) Remove(ctx context.Context, id string) error {
	_, err := h.rec.Remove(ctx, id)
	return err
}

func (h *Hubs) Create(ctx context.Context, n NewHub) (*models.HubRecord, error) {
	if strings.TrimSpace(n.Name) == "" {
		return nil, fmt.Errorf("%w: hub name is required", common.ErrInvalidArgument)
	}
	now := h.now().UTC()
	hub := &models.HubRecord{
		ID:             common.NewID(),
		Name:           n.Name,
		Description:    n.Description,
		Icon:           n.Icon,
		Color:          n.Color,
		ItemIDs:        []string{},
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if err := h.Save(ctx, hub); err != nil {
		return nil, err
	}
	return h.repo.Get(ctx, hub.ID)
}

// AddItem appends itemID to the hub; common.ErrDuplicateItem if present.
func (h *Hubs) AddItem(ctx context.Context, hubID, itemID string) (*models.HubRecord, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id is required", common.ErrInvalidArgument)
	}
	return h.update(ctx, hubID, func(hub *models.HubRecord) error {
		if hub.HasItem(itemID) {
			return fmt.Errorf("%w: %s already in hub %s", common.ErrDuplicateItem, itemID, hubID)
		}
		hub.ItemIDs = append(hub.ItemIDs, itemID)
		return nil
	})
}

// RemoveItem drops itemID from the hub.
func (h *Hubs) RemoveItem(ctx context.Context, hubID, itemID string) (*models.HubRecord, error) {
	return h.update(ctx, hubID, func(hub *models.HubRecord) error {
		i := slices.Index(hub.ItemIDs, itemID)
		if i < 0 {
			return fmt.Errorf("item %s in hub %s: %w", itemID, hubID, common.ErrNotFound)
		}
		hub.ItemIDs = slices.Delete(hub.ItemIDs, i, i+1)
		return nil
	})
}

// Touch records that the hub was opened.
func (h *Hubs) Touch(ctx context.Context, hubID string) (*models.HubRecord, error) {
	return h.update(ctx, hubID, func(hub *models.HubRecord) error {
		hub.LastAccessedAt = h.now().UTC()
		return nil
	})
}

func (h *Hubs) update(ctx context.Context, hubID string, fn func(*models.HubRecord) error) (*models.HubRecord, error) {
	hub, err := h.repo.Get(ctx, hubID)
	if err != nil {
		return nil, err
	}
	if err := fn(hub); err != nil {
		return nil, err
	}
	if err := h.Save(ctx, hub); err != nil {
		return nil, err
	}
	return h.repo.Get(ctx, hubID)
}

// Resolve returns the hub's items in hub order. Ids that no longer resolve
// are skipped.
func (h *Hubs) Resolve(ctx context.Context, hub *models.HubRecord, items ItemLookup) ([]*models.LibraryItem, error) {
	out := make([]*models.LibraryItem, 0, len(hub.ItemIDs))
	for _, id := range hub.ItemIDs {
		item, err := items.Get(ctx, id)
		if errors.Is(err, common.ErrNotFound) {
			h.log.Debug(ctx, "hub references missing item", "hub", hub.ID, "item", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
