package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/localdb"
	"github.com/ekamanam/studysync/internal/logging"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/provision"
	"github.com/ekamanam/studysync/internal/remote"
	"github.com/ekamanam/studysync/internal/session"
)

// device is one process with its own local database, sharing a remote store
// with other devices.
type device struct {
	repos    *localdb.Repositories
	sess     *session.Session
	prov     *provision.Provisioner
	manifest *ManifestFile[*models.HubRecord]
	rec      *Reconciler[*models.HubRecord]
}

func newDevice(t *testing.T, store remote.Store, hooks Hooks[*models.HubRecord]) *device {
	t.Helper()
	ctx := context.Background()

	repos, err := localdb.InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	sess := session.New(store, logging.Nop())
	sess.Init(ctx)

	prov := provision.New(sess, remote.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}, logging.Nop())
	mf := NewManifestFile[*models.HubRecord](common.HubsIndexFile, models.FolderRoot, prov, logging.Nop())
	return &device{
		repos:    repos,
		sess:     sess,
		prov:     prov,
		manifest: mf,
		rec:      New(repos.Hubs, mf, sess, repos.Metadata, hooks, logging.Nop()),
	}
}

func (d *device) manifestItems(t *testing.T, store remote.Store) []*models.HubRecord {
	t.Helper()
	m, err := d.manifest.Read(context.Background(), store)
	require.NoError(t, err)
	return m.Items
}
