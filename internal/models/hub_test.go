package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHubRecord_DedupItems(t *testing.T) {
	h := &HubRecord{ItemIDs: []string{"a", "b", "a", "", "c", "b"}}
	h.DedupItems()
	require.Equal(t, []string{"a", "b", "c"}, h.ItemIDs)
	require.True(t, h.HasItem("c"))
	require.False(t, h.HasItem("z"))
}

func TestHubRecord_Clone(t *testing.T) {
	h := &HubRecord{ID: "h", ItemIDs: []string{"a"}}
	c := h.Clone()
	c.ItemIDs = append(c.ItemIDs, "b")
	c.ItemIDs[0] = "z"
	require.Equal(t, []string{"a"}, h.ItemIDs)
}

func TestSortByLastAccessed(t *testing.T) {
	now := time.Now()
	hubs := []*HubRecord{
		{ID: "1", Name: "b", LastAccessedAt: now.Add(-time.Minute)},
		{ID: "2", Name: "a", LastAccessedAt: now},
	}
	SortByLastAccessed(hubs)
	require.Equal(t, "2", hubs[0].ID)
}

func TestFolderManifest_Handle(t *testing.T) {
	m := FolderManifest{FolderRoot: "Ekamanam/", FolderNotes: ""}
	h, ok := m.Handle(FolderRoot)
	require.True(t, ok)
	require.Equal(t, "Ekamanam/", h)
	_, ok = m.Handle(FolderNotes)
	require.False(t, ok)
	_, ok = m.Handle(FolderCache)
	require.False(t, ok)
}

func TestHubRecord_Normalize(t *testing.T) {
	var rec Normalizer = &HubRecord{ItemIDs: []string{"x", "x", "y"}}
	rec.Normalize()
	require.Equal(t, []string{"x", "y"}, rec.(*HubRecord).ItemIDs)
}
