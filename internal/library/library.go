// Package library keeps the user's document library in sync between the
// local store and the remote "library index" manifest. Item metadata goes
// through the manifest; PDF payloads are stored as individual files in the
// documents folder, one per item.
package library

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/localdb"
	"github.com/ekamanam/studysync/internal/logging"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/provision"
	"github.com/ekamanam/studysync/internal/remote"
	"github.com/ekamanam/studysync/internal/repositories/metadata"
	"github.com/ekamanam/studysync/internal/repositories/payloads"
	"github.com/ekamanam/studysync/internal/repositories/records"
	"github.com/ekamanam/studysync/internal/session"
	"github.com/ekamanam/studysync/internal/syncer"
)

// NewItem describes a document being ingested.
type NewItem struct {
	Name             string
	OriginalFileName string
	TotalPages       int
	Subject          string
	ClassLevel       string
	CollectionName   string
	ChapterNumber    string
	Workspace        string
	Tags             []string
}

type Library struct {
	repos     *localdb.Repositories
	items     records.Repository[*models.LibraryItem]
	payloads  payloads.Repository
	meta      metadata.Repository
	sess      *session.Session
	prov      *provision.Provisioner
	rec       *syncer.Reconciler[*models.LibraryItem]
	log       logging.Logger
	now       func() time.Time
}

func New(repos *localdb.Repositories, sess *session.Session, prov *provision.Provisioner, log logging.Logger) *Library {
	if log == nil {
		log = logging.Nop()
	}
	l := &Library{
		repos:     repos,
		items:     repos.Items,
		payloads:  repos.Payloads,
		meta:      repos.Metadata,
		sess:      sess,
		prov:      prov,
		log:       log.With("component", "library"),
		now:       time.Now,
	}
	manifest := syncer.NewManifestFile[*models.LibraryItem](common.LibraryIndexFile, models.FolderRoot, prov, log)
	l.rec = syncer.New(repos.Items, manifest, sess, repos.Metadata, syncer.Hooks[*models.LibraryItem]{
		Prepare: l.uploadPayload,
		Cleanup: l.deleteRemote,
	}, log)
	return l
}

// ContentHash returns the hex BLAKE2b-256 digest of data.
func ContentHash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func dirtyKey(id string) string {
	return "payload_dirty:" + id
}

func remoteFileName(id string) string {
	return id + ".pdf"
}

// LoadAll returns the library merged with the remote manifest, most
// recently opened first. It falls back to local items when the remote store
// is unavailable.
func (l *Library) LoadAll(ctx context.Context) ([]*models.LibraryItem, error) {
	items, err := l.rec.LoadAll(ctx)
	models.SortByLastOpened(items)
	return items, err
}

// Get returns the local copy of an item.
func (l *Library) Get(ctx context.Context, id string) (*models.LibraryItem, error) {
	return l.items.Get(ctx, id)
}

// Add ingests a new document with its payload.
func (l *Library) Add(ctx context.Context, n NewItem, payload []byte) (*models.LibraryItem, error) {
	if strings.TrimSpace(n.Name) == "" {
		return nil, fmt.Errorf("%w: item name is required", common.ErrInvalidArgument)
	}
	now := l.now().UTC()
	id := common.NewID()
	item := &models.LibraryItem{
		ID:               id,
		Name:             n.Name,
		OriginalFileName: n.OriginalFileName,
		DateAdded:        now,
		LastOpened:       now,
		TotalPages:       n.TotalPages,
		Subject:          n.Subject,
		ClassLevel:       n.ClassLevel,
		CollectionName:   n.CollectionName,
		ChapterNumber:    n.ChapterNumber,
		Workspace:        n.Workspace,
		Tags:             n.Tags,
		LocalDataKey:     common.PayloadKey(id),
	}
	if err := l.Save(ctx, item, payload); err != nil {
		return nil, err
	}
	return l.items.Get(ctx, id)
}

// Save stores item locally and pushes it to the remote manifest. A non-nil
// payload replaces the item's document; it is uploaded on first save and
// replaced in place afterwards. Remote failures leave the item pending;
// only Unauthorized is returned.
func (l *Library) Save(ctx context.Context, item *models.LibraryItem, payload []byte) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: item id is required", common.ErrInvalidArgument)
	}
	item = item.Clone()

	prev, err := l.items.Get(ctx, item.ID)
	switch {
	case err == nil:
		// the remote file id is assigned once and never dropped
		if item.RemoteFileID == "" {
			item.RemoteFileID = prev.RemoteFileID
		}
		if item.DateAdded.IsZero() {
			item.DateAdded = prev.DateAdded
		}
		if item.LocalDataKey == "" {
			item.LocalDataKey = prev.LocalDataKey
		}
	case errors.Is(err, common.ErrNotFound):
	default:
		return err
	}

	now := l.now().UTC()
	if item.DateAdded.IsZero() {
		item.DateAdded = now
	}
	if item.LocalDataKey == "" {
		item.LocalDataKey = common.PayloadKey(item.ID)
	}
	item.UpdatedAt = now
	item.Normalize()

	if payload != nil {
		if err := l.payloads.Put(ctx, item.LocalDataKey, payload); err != nil {
			return err
		}
		item.SizeBytes = int64(len(payload))
		item.ContentHash = ContentHash(payload)
		if err := l.meta.Set(ctx, dirtyKey(item.ID), []byte{1}); err != nil {
			return err
		}
	}

	return l.rec.Save(ctx, item)
}

// Remove deletes an item locally (metadata, payload and cached answers) and,
// when reachable, its remote file and manifest entry.
func (l *Library) Remove(ctx context.Context, id string) error {
	item, err := l.rec.Remove(ctx, id)
	if item == nil {
		return err
	}

	terr := l.repos.Tx(ctx, func(ctx context.Context, tx *localdb.Repositories) error {
		if err := tx.Payloads.Delete(ctx, item.LocalDataKey); err != nil {
			return err
		}
		if err := tx.Responses.DeleteByItem(ctx, id); err != nil {
			return err
		}
		return tx.Metadata.Delete(ctx, dirtyKey(id))
	})
	if terr != nil {
		return terr
	}
	return err
}

// RecordPageTurn updates reading progress.
func (l *Library) RecordPageTurn(ctx context.Context, id string, page int) (*models.LibraryItem, error) {
	item, err := l.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if item.TotalPages > 0 && page > item.TotalPages {
		page = item.TotalPages
	}
	item.LastPage = page
	item.LastOpened = l.now().UTC()
	if err := l.Save(ctx, item, nil); err != nil {
		return nil, err
	}
	return l.items.Get(ctx, id)
}

// UpdateDetails edits the user-facing metadata of an item.
func (l *Library) UpdateDetails(ctx context.Context, id string, d models.ItemDetails) (*models.LibraryItem, error) {
	item, err := l.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Apply(item)
	if strings.TrimSpace(item.Name) == "" {
		return nil, fmt.Errorf("%w: item name is required", common.ErrInvalidArgument)
	}
	if err := l.Save(ctx, item, nil); err != nil {
		return nil, err
	}
	return l.items.Get(ctx, id)
}

// Payload returns the document bytes, downloading and caching them when only
// the remote copy exists. Downloaded bytes are checked against ContentHash.
func (l *Library) Payload(ctx context.Context, id string) ([]byte, error) {
	item, err := l.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := l.payloads.Get(ctx, item.LocalDataKey)
	if err == nil || !errors.Is(err, common.ErrNotFound) {
		return data, err
	}
	if item.RemoteFileID == "" {
		return nil, err
	}

	store, err := l.sess.RequireRemote()
	if err != nil {
		return nil, err
	}
	data, err = store.DownloadFile(ctx, item.RemoteFileID)
	if err != nil {
		return nil, fmt.Errorf("download payload of %s: %w", id, err)
	}
	if item.ContentHash != "" && ContentHash(data) != item.ContentHash {
		return nil, fmt.Errorf("%w: payload of %s", common.ErrChecksumMismatch, id)
	}

	if err := l.payloads.Put(ctx, item.LocalDataKey, data); err != nil {
		l.log.Warn(ctx, "failed to cache downloaded payload", "id", id, "error", err)
	}
	return data, nil
}

// Pending returns items with changes that have not reached the remote store.
func (l *Library) Pending(ctx context.Context) ([]*models.LibraryItem, error) {
	return l.rec.Pending(ctx)
}

// uploadPayload uploads a new payload or replaces a changed one. Items
// without a local payload sync as metadata only.
func (l *Library) uploadPayload(ctx context.Context, store remote.Store, item *models.LibraryItem) (*models.LibraryItem, error) {
	dirty, err := l.meta.Get(ctx, dirtyKey(item.ID))
	if err != nil {
		return item, err
	}
	if item.RemoteFileID != "" && dirty == nil {
		return item, nil
	}

	data, err := l.payloads.Get(ctx, item.LocalDataKey)
	if errors.Is(err, common.ErrNotFound) {
		return item, nil
	}
	if err != nil {
		return item, err
	}

	out := item.Clone()
	if item.RemoteFileID == "" {
		folder, err := l.prov.Folder(ctx, models.FolderDocuments)
		if err != nil {
			return item, err
		}
		res, err := store.UploadFile(ctx, data, folder, remoteFileName(item.ID), common.PDFMimeType)
		if err != nil {
			return item, err
		}
		out.RemoteFileID = res.Handle
		l.log.Info(ctx, "payload uploaded", "id", item.ID, "bytes", res.Size)
	} else {
		if err := store.ReplaceFile(ctx, item.RemoteFileID, data); err != nil {
			return item, err
		}
		l.log.Info(ctx, "payload replaced", "id", item.ID, "bytes", len(data))
	}

	if err := l.meta.Delete(ctx, dirtyKey(item.ID)); err != nil {
		return out, err
	}
	return out, nil
}

// deleteRemote removes an item's remote file and its remote cache entries.
func (l *Library) deleteRemote(ctx context.Context, store remote.Store, item *models.LibraryItem) error {
	if item.RemoteFileID != "" {
		if err := store.DeleteFile(ctx, item.RemoteFileID); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
	}

	l.deleteCached(ctx, store, item.ID, models.FolderResponses, item.ID+"_page_*.json")
	l.deleteCached(ctx, store, item.ID, models.FolderIndex, common.PageIndexFileName(item.ID))
	return nil
}

// deleteCached removes derived cache files of an item. Failures only leave
// orphans behind, so they are logged.
func (l *Library) deleteCached(ctx context.Context, store remote.Store, id, logical, pattern string) {
	folder, err := l.prov.Folder(ctx, logical)
	if err != nil {
		l.log.Warn(ctx, "skipping remote cache cleanup", "id", id, "folder", logical, "error", err)
		return
	}
	handles, err := store.ListFilesByNamePattern(ctx, pattern, folder)
	if err != nil {
		l.log.Warn(ctx, "skipping remote cache cleanup", "id", id, "folder", logical, "error", err)
		return
	}
	for _, h := range handles {
		if err := store.DeleteFile(ctx, h); err != nil && !errors.Is(err, common.ErrNotFound) {
			l.log.Warn(ctx, "failed to delete cached file", "id", id, "folder", logical, "error", err)
		}
	}
}
