package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/remote"
)

func TestManifestFile_CreatesEmptyOnFirstRead(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})

	m, err := d.manifest.Read(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, m.Items)
	assert.Equal(t, common.ManifestVersion, m.Version)
	assert.False(t, m.LastSync.IsZero())
	assert.Equal(t, 1, store.Calls(remote.OpUploadFile))

	lists := store.Calls(remote.OpListFiles)
	_, err = d.manifest.Read(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Calls(remote.OpUploadFile))
	assert.Equal(t, lists, store.Calls(remote.OpListFiles), "handle is cached")
}

func TestManifestFile_WriteThenRead(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})

	require.NoError(t, d.manifest.Write(ctx, store, []*models.HubRecord{hub("a", "A", t0), hub("b", "B", t0)}))
	require.NoError(t, d.manifest.Write(ctx, store, []*models.HubRecord{hub("a", "A2", t0)}))

	other := newDevice(t, store, Hooks[*models.HubRecord]{})
	items := other.manifestItems(t, store)
	assert.Equal(t, []string{"A2"}, names(items))

	root, err := other.prov.Folder(ctx, models.FolderRoot)
	require.NoError(t, err)
	assert.Equal(t, 1, store.FileCount(root), "manifest is replaced in place")
}

func TestManifestFile_Corrupt(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})

	root, err := d.prov.Folder(ctx, models.FolderRoot)
	require.NoError(t, err)
	_, err = store.UploadFile(ctx, []byte("{not json"), root, common.HubsIndexFile, common.JSONMimeType)
	require.NoError(t, err)

	m, err := d.manifest.Read(ctx, store)
	require.ErrorIs(t, err, common.ErrCorruptManifest)
	assert.Empty(t, m.Items)
}

func TestManifestFile_SkipsNullAndDuplicateItems(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})

	root, err := d.prov.Folder(ctx, models.FolderRoot)
	require.NoError(t, err)
	doc := `{"version":1,"items":[null,{"id":"a","name":"old","updatedAt":"2026-01-01T00:00:00Z"},{"id":"a","name":"new","updatedAt":"2026-02-01T00:00:00Z"},{"name":"no id"}]}`
	_, err = store.UploadFile(ctx, []byte(doc), root, common.HubsIndexFile, common.JSONMimeType)
	require.NoError(t, err)

	m, err := d.manifest.Read(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, names(m.Items))
}

func TestManifestFile_StaleHandle(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})

	require.NoError(t, d.manifest.Write(ctx, store, []*models.HubRecord{hub("a", "A", t0)}))
	stale := d.manifest.cached()
	require.NoError(t, store.DeleteFile(ctx, stale))

	// another device recreated the manifest under a new handle
	other := newDevice(t, store, Hooks[*models.HubRecord]{})
	require.NoError(t, other.manifest.Write(ctx, store, []*models.HubRecord{hub("b", "B", t0)}))

	m, err := d.manifest.Read(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names(m.Items))
	assert.NotEqual(t, stale, d.manifest.cached())

	require.NoError(t, store.DeleteFile(ctx, d.manifest.cached()))
	require.NoError(t, d.manifest.Write(ctx, store, []*models.HubRecord{hub("c", "C", t0)}))
	assert.Equal(t, []string{"C"}, names(other.manifestItems(t, store)))
}

func TestManifestFile_NormalizesDecodedRecords(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})

	root, err := d.prov.Folder(ctx, models.FolderRoot)
	require.NoError(t, err)
	doc := `{"version":1,"items":[{"id":"h","name":"Exam","itemIds":["a","b","a",""],"updatedAt":"2026-01-01T00:00:00Z"}]}`
	_, err = store.UploadFile(ctx, []byte(doc), root, common.HubsIndexFile, common.JSONMimeType)
	require.NoError(t, err)

	m, err := d.manifest.Read(ctx, store)
	require.NoError(t, err)
	require.Len(t, m.Items, 1)
	assert.Equal(t, []string{"a", "b"}, m.Items[0].ItemIDs)
}
