package pageindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/logging"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/provision"
	"github.com/ekamanam/studysync/internal/remote"
	"github.com/ekamanam/studysync/internal/session"
)

const (
	page1 = "Chlorophyll absorbs light. Light drives the reactions; light energy becomes chemical energy."
	page2 = "Mitochondria release energy from glucose during cellular respiration."
)

func newIndex(t *testing.T, store remote.Store) (*Index, *provision.Provisioner, *session.Session) {
	t.Helper()
	sess := session.New(store, logging.Nop())
	sess.Init(context.Background())
	prov := provision.New(sess, remote.NoRetry(), logging.Nop())
	return New(sess, prov, 0, logging.Nop()), prov, sess
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"light", "energy", "chlorophyll"}, Keywords(page1, 3))
	assert.NotContains(t, Terms(page1), "the")
	assert.Empty(t, Keywords("the of a", 5))
}

func TestUpdateAndSearch(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	ix, prov, _ := newIndex(t, store)

	require.NoError(t, ix.Update(ctx, "bio", 1, page1))
	require.NoError(t, ix.Update(ctx, "bio", 2, page2))

	folder, err := prov.Folder(ctx, models.FolderIndex)
	require.NoError(t, err)
	assert.Equal(t, 1, store.FileCount(folder))
	_, found, err := remote.FindFile(ctx, store, "bio_index.json", folder)
	require.NoError(t, err)
	assert.True(t, found)

	hits, err := ix.Search(ctx, "bio", "Where does light energy come from?")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].Page)
	assert.Equal(t, []string{"light", "energy"}, hits[0].Matched)
	assert.Equal(t, 2, hits[1].Page)
	assert.Equal(t, 1, hits[1].Score)

	hits, err = ix.Search(ctx, "bio", "glucose")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, hits[0].Page)

	hits, err = ix.Search(ctx, "other", "glucose")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUpdate_ReplacesPage(t *testing.T) {
	ctx := context.Background()
	ix, _, _ := newIndex(t, remote.NewMemoryStore())

	require.NoError(t, ix.Update(ctx, "bio", 1, page1))
	require.NoError(t, ix.Update(ctx, "bio", 1, page2))

	doc, err := ix.Document(ctx, "bio")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Contains(t, doc.Pages[1], "glucose")
	assert.NotContains(t, doc.Pages[1], "chlorophyll")
	assert.False(t, doc.UpdatedAt.IsZero())
}

func TestUpdate_RemoteUnavailable(t *testing.T) {
	ix, _, _ := newIndex(t, nil)
	err := ix.Update(context.Background(), "bio", 1, page1)
	assert.ErrorIs(t, err, common.ErrRemoteUnavailable)

	_, err = ix.Search(context.Background(), "bio", "light")
	assert.ErrorIs(t, err, common.ErrRemoteUnavailable)
}

func TestRead_CorruptIndexIsRebuilt(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	ix, prov, _ := newIndex(t, store)

	folder, err := prov.Folder(ctx, models.FolderIndex)
	require.NoError(t, err)
	_, err = store.UploadFile(ctx, []byte("[]"), folder, "bio_index.json", common.JSONMimeType)
	require.NoError(t, err)

	require.NoError(t, ix.Update(ctx, "bio", 3, page2))
	doc, err := ix.Document(ctx, "bio")
	require.NoError(t, err)
	assert.Len(t, doc.Pages, 1)
	assert.Equal(t, 1, store.FileCount(folder))
}
