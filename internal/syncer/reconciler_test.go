package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/remote"
	"github.com/ekamanam/studysync/internal/repositories/metadata"
	"github.com/ekamanam/studysync/internal/session"
)

func TestLoadAll_OfflineReturnsLocal(t *testing.T) {
	ctx := context.Background()
	d := newDevice(t, nil, Hooks[*models.HubRecord]{})
	require.NoError(t, d.rec.Save(ctx, hub("a", "A", t0)))
	require.NoError(t, d.rec.Save(ctx, hub("b", "B", t0)))

	got, err := d.rec.LoadAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, names(got))
	assert.Equal(t, session.StateOffline, d.sess.Status().State)
}

func TestLoadAll_RevokedRemoteReturnsLocal(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})
	d.sess.Revoke()
	require.NoError(t, d.rec.Save(ctx, hub("a", "A", t0)))

	got, err := d.rec.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(got))
	assert.Zero(t, store.Calls(remote.OpFindFolder))
}

func TestLoadAll_MergesAcrossDevices(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	phone := newDevice(t, store, Hooks[*models.HubRecord]{})
	laptop := newDevice(t, store, Hooks[*models.HubRecord]{})

	require.NoError(t, phone.rec.Save(ctx, hub("shared", "phone version", t0)))
	require.NoError(t, phone.rec.Save(ctx, hub("p", "phone only", t0)))

	// laptop has a newer copy of shared and one offline record
	require.NoError(t, laptop.repos.Hubs.Put(ctx, hub("shared", "laptop version", t0.Add(time.Minute)), true))
	require.NoError(t, laptop.repos.Hubs.Put(ctx, hub("l", "laptop only", t0), true))

	got, err := laptop.rec.LoadAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"laptop version", "phone only", "laptop only"}, names(got))

	// remote winner was written locally, local changes reached the manifest
	p, err := laptop.repos.Hubs.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "phone only", p.Name)
	assert.ElementsMatch(t, []string{"laptop version", "phone only", "laptop only"}, names(laptop.manifestItems(t, store)))

	pending, err := laptop.rec.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	st := laptop.sess.Status()
	assert.Equal(t, session.StateSynced, st.State)
	last, err := metadata.GetTime(ctx, laptop.repos.Metadata, metadata.LastSyncKey(common.HubsIndexFile))
	require.NoError(t, err)
	assert.False(t, last.IsZero())

	// phone picks up the laptop's newer copy
	got, err = phone.rec.LoadAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"laptop version", "phone only", "laptop only"}, names(got))
}

func TestLoadAll_NoWriteWhenInSync(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})
	require.NoError(t, d.rec.Save(ctx, hub("a", "A", t0)))

	replaces := store.Calls(remote.OpReplaceFile)
	_, err := d.rec.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, replaces, store.Calls(remote.OpReplaceFile))
}

func TestSave_TransientFailureDegrades(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})
	_, err := d.prov.EnsureHierarchy(ctx)
	require.NoError(t, err)

	store.FailAlways(remote.OpUploadFile, common.ErrTransientNetwork)
	require.NoError(t, d.rec.Save(ctx, hub("a", "A", t0)))

	got, err := d.repos.Hubs.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)

	st := d.sess.Status()
	assert.Equal(t, session.StatePending, st.State)
	assert.ErrorIs(t, st.LastError, common.ErrTransientNetwork)

	pending, err := d.rec.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// the next successful sync picks the record up
	store.ClearFaults()
	_, err = d.rec.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(d.manifestItems(t, store)))
	pending, err = d.rec.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSave_UnauthorizedSurfaces(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})
	store.FailAlways(remote.OpFindFolder, common.ErrUnauthorized)

	err := d.rec.Save(ctx, hub("a", "A", t0))
	require.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = d.repos.Hubs.Get(ctx, "a")
	require.NoError(t, err, "local write survives")

	got, err := d.rec.LoadAll(ctx)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, []string{"A"}, names(got))
}

func TestLoadAll_CorruptManifestRebuilt(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})
	require.NoError(t, d.repos.Hubs.Put(ctx, hub("a", "A", t0), false))

	root, err := d.prov.Folder(ctx, models.FolderRoot)
	require.NoError(t, err)
	_, err = store.UploadFile(ctx, []byte("<html>"), root, common.HubsIndexFile, common.JSONMimeType)
	require.NoError(t, err)

	got, err := d.rec.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(got))
	assert.Equal(t, []string{"A"}, names(d.manifestItems(t, store)))
}

func TestSave_CorruptManifestKeepsLocalRecords(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})
	require.NoError(t, d.repos.Hubs.Put(ctx, hub("a", "A", t0), false))

	root, err := d.prov.Folder(ctx, models.FolderRoot)
	require.NoError(t, err)
	_, err = store.UploadFile(ctx, []byte("[1,2"), root, common.HubsIndexFile, common.JSONMimeType)
	require.NoError(t, err)

	require.NoError(t, d.rec.Save(ctx, hub("b", "B", t0)))
	assert.ElementsMatch(t, []string{"A", "B"}, names(d.manifestItems(t, store)))
}

func TestRemove_DeletionSafety(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()

	var cleaned []string
	hooks := Hooks[*models.HubRecord]{
		Cleanup: func(ctx context.Context, s remote.Store, rec *models.HubRecord) error {
			if _, err := s.ListFilesByNamePattern(ctx, "*", ""); err != nil {
				return err
			}
			cleaned = append(cleaned, rec.ID)
			return nil
		},
	}
	d := newDevice(t, store, hooks)
	require.NoError(t, d.rec.Save(ctx, hub("a", "A", t0)))
	require.NoError(t, d.rec.Save(ctx, hub("b", "B", t0)))

	// the manifest write fails during removal
	store.FailAlways(remote.OpReplaceFile, common.ErrTransientNetwork)
	removed, err := d.rec.Remove(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", removed.Name)

	_, err = d.repos.Hubs.Get(ctx, "a")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ElementsMatch(t, []string{"A", "B"}, names(d.manifestItems(t, store)), "manifest still lists the orphan")

	// a sync that still cannot write does not bring the record back
	got, err := d.rec.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names(got))

	store.ClearFaults()
	got, err = d.rec.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names(got))
	assert.Equal(t, []string{"B"}, names(d.manifestItems(t, store)))

	tombs, err := d.repos.Hubs.Tombstones(ctx)
	require.NoError(t, err)
	assert.Empty(t, tombs)
	assert.Contains(t, cleaned, "a")
}

func TestRemove_Offline(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	d := newDevice(t, store, Hooks[*models.HubRecord]{})
	require.NoError(t, d.rec.Save(ctx, hub("a", "A", t0)))

	d.sess.Revoke()
	_, err := d.rec.Remove(ctx, "a")
	require.NoError(t, err)
	observer := newDevice(t, store, Hooks[*models.HubRecord]{})
	assert.Equal(t, []string{"A"}, names(observer.manifestItems(t, store)))

	d.sess.Grant()
	got, err := d.rec.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, d.manifestItems(t, store))
}

func TestRemove_Missing(t *testing.T) {
	d := newDevice(t, nil, Hooks[*models.HubRecord]{})
	_, err := d.rec.Remove(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPrepareHook(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	fail := true
	hooks := Hooks[*models.HubRecord]{
		Prepare: func(ctx context.Context, s remote.Store, rec *models.HubRecord) (*models.HubRecord, error) {
			if fail {
				return rec, errors.New("upload failed")
			}
			out := rec.Clone()
			out.Icon = "uploaded"
			return out, nil
		},
	}
	d := newDevice(t, store, hooks)

	require.NoError(t, d.rec.Save(ctx, hub("a", "A", t0)))
	assert.Empty(t, d.manifestItems(t, store))
	assert.Equal(t, session.StatePending, d.sess.Status().State)

	fail = false
	_, err := d.rec.LoadAll(ctx)
	require.NoError(t, err)

	got, err := d.repos.Hubs.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "uploaded", got.Icon)
	items := d.manifestItems(t, store)
	require.Len(t, items, 1)
	assert.Equal(t, "uploaded", items[0].Icon)
}
