package models

import (
	"slices"
	"sort"
	"time"
)

// HubRecord is a named collection ("Learning Hub") referencing library items
// by id. A hub does not own its items.
type HubRecord struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Icon           string    `json:"icon,omitempty"`
	Color          string    `json:"color,omitempty"`
	ItemIDs        []string  `json:"itemIds"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}

func (h *HubRecord) RecordID() string           { return h.ID }
func (h *HubRecord) RecordUpdatedAt() time.Time { return h.UpdatedAt }

// HasItem reports whether id is referenced by the hub.
func (h *HubRecord) HasItem(id string) bool {
	return slices.Contains(h.ItemIDs, id)
}

// DedupItems drops repeated ids, keeping first occurrences in order.
func (h *HubRecord) DedupItems() {
	seen := make(map[string]struct{}, len(h.ItemIDs))
	out := h.ItemIDs[:0]
	for _, id := range h.ItemIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	h.ItemIDs = out
}

// Normalize drops duplicate and empty item ids.
func (h *HubRecord) Normalize() { h.DedupItems() }

// Clone returns a deep copy of h.
func (h *HubRecord) Clone() *HubRecord {
	c := *h
	c.ItemIDs = slices.Clone(h.ItemIDs)
	return &c
}

// SortByLastAccessed orders hubs most recently used first.
func SortByLastAccessed(hubs []*HubRecord) {
	sort.SliceStable(hubs, func(a, b int) bool {
		x, y := hubs[a], hubs[b]
		if !x.LastAccessedAt.Equal(y.LastAccessedAt) {
			return x.LastAccessedAt.After(y.LastAccessedAt)
		}
		return x.Name < y.Name
	})
}
