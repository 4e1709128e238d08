// Package provision establishes the fixed remote folder hierarchy:
//
//	Ekamanam/
//	  PDFs/
//	  Cache/
//	    AI_Responses/
//	    Page_Index/
//	    Embeddings/
//	  Notes/
//	  Progress/
//
// Every folder is found before it is created, so repeated runs reuse what is
// already there. Two processes racing on an empty account may still create
// duplicates; the oldest folder wins on later lookups.
package provision

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/logging"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/remote"
	"github.com/ekamanam/studysync/internal/session"
)

type folder struct {
	logical string
	name    string
	parent  string
}

// hierarchy lists folders so that every parent precedes its children.
var hierarchy = []folder{
	{models.FolderRoot, common.RootFolderName, ""},
	{models.FolderDocuments, "PDFs", models.FolderRoot},
	{models.FolderCache, "Cache", models.FolderRoot},
	{models.FolderNotes, "Notes", models.FolderRoot},
	{models.FolderProgress, "Progress", models.FolderRoot},
	{models.FolderResponses, "AI_Responses", models.FolderCache},
	{models.FolderIndex, "Page_Index", models.FolderCache},
	{models.FolderEmbeddings, "Embeddings", models.FolderCache},
}

// LogicalNames returns the logical folder names in provisioning order.
func LogicalNames() []string {
	names := make([]string, len(hierarchy))
	for i, f := range hierarchy {
		names[i] = f.logical
	}
	return names
}

type Provisioner struct {
	sess  *session.Session
	retry remote.RetryPolicy
	log   logging.Logger
	group singleflight.Group
}

// New returns a Provisioner that caches its result in sess. Each folder step
// is retried on transient errors according to retry.
func New(sess *session.Session, retry remote.RetryPolicy, log logging.Logger) *Provisioner {
	if log == nil {
		log = logging.Nop()
	}
	return &Provisioner{sess: sess, retry: retry, log: log.With("component", "provision")}
}

// EnsureHierarchy returns the folder manifest, building it on first use.
// Concurrent callers share a single build. It returns
// common.ErrRemoteUnavailable when the session has no usable remote store and
// surfaces common.ErrUnauthorized unchanged.
func (p *Provisioner) EnsureHierarchy(ctx context.Context) (models.FolderManifest, error) {
	if m, ok := p.sess.Folders(); ok {
		return m, nil
	}

	store, err := p.sess.RequireRemote()
	if err != nil {
		return nil, err
	}

	v, err, _ := p.group.Do("hierarchy", func() (any, error) {
		if m, ok := p.sess.Folders(); ok {
			return m, nil
		}
		m, err := p.build(ctx, store)
		if err != nil {
			return nil, err
		}
		p.sess.SetFolders(m)
		p.log.Info(ctx, "folder hierarchy ready", "folders", len(m))
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	m, _ := v.(models.FolderManifest)
	out := make(models.FolderManifest, len(m))
	for k, h := range m {
		out[k] = h
	}
	return out, nil
}

// Folder returns the handle of one logical folder.
func (p *Provisioner) Folder(ctx context.Context, logical string) (remote.Handle, error) {
	m, err := p.EnsureHierarchy(ctx)
	if err != nil {
		return "", err
	}
	h, ok := m.Handle(logical)
	if !ok {
		return "", fmt.Errorf("%w: unknown folder %q", common.ErrInvalidArgument, logical)
	}
	return h, nil
}

// Invalidate forgets the cached manifest.
func (p *Provisioner) Invalidate() {
	p.sess.Invalidate()
}

func (p *Provisioner) build(ctx context.Context, store remote.Store) (models.FolderManifest, error) {
	m := make(models.FolderManifest, len(hierarchy))
	for _, f := range hierarchy {
		parent := ""
		if f.parent != "" {
			parent = m[f.parent]
		}

		var h remote.Handle
		err := p.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			h, err = ensureFolder(ctx, store, f.name, parent)
			if common.IsRetryable(err) {
				p.log.Debug(ctx, "folder step failed, retrying", "folder", f.logical, "error", err)
			}
			return err
		})
		if err != nil {
			p.log.Warn(ctx, "folder hierarchy build aborted", "folder", f.logical, "error", err)
			return nil, fmt.Errorf("provision %s: %w", f.logical, err)
		}
		m[f.logical] = h
	}
	return m, nil
}

func ensureFolder(ctx context.Context, store remote.Store, name string, parent remote.Handle) (remote.Handle, error) {
	h, found, err := store.FindFolder(ctx, name, parent)
	if err != nil {
		return "", err
	}
	if found {
		return h, nil
	}
	return store.CreateFolder(ctx, name, parent)
}
