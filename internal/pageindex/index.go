// Package pageindex keeps a small keyword index per item in the remote
// Page_Index folder, so pages can be found by topic without reparsing the
// document.
package pageindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/logging"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/provision"
	"github.com/ekamanam/studysync/internal/remote"
	"github.com/ekamanam/studysync/internal/session"
)

const DefaultKeywordsPerPage = 20

// Document is the stored index of one item.
type Document struct {
	ItemID    string           `json:"itemId"`
	Pages     map[int][]string `json:"pages"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// PageHit is a page matching a search.
type PageHit struct {
	Page    int
	Score   int
	Matched []string
}

type Index struct {
	sess     *session.Session
	prov     *provision.Provisioner
	log      logging.Logger
	keywords int
	now      func() time.Time

	mu sync.Mutex
}

func New(sess *session.Session, prov *provision.Provisioner, keywordsPerPage int, log logging.Logger) *Index {
	if keywordsPerPage <= 0 {
		keywordsPerPage = DefaultKeywordsPerPage
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Index{
		sess:     sess,
		prov:     prov,
		log:      log.With("component", "pageindex"),
		keywords: keywordsPerPage,
		now:      time.Now,
	}
}

// Update replaces the keywords of one page. It needs the remote store.
func (ix *Index) Update(ctx context.Context, itemID string, page int, text string) error {
	if itemID == "" {
		return fmt.Errorf("%w: item id is required", common.ErrInvalidArgument)
	}
	store, err := ix.sess.RequireRemote()
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	folder, err := ix.prov.Folder(ctx, models.FolderIndex)
	if err != nil {
		return err
	}
	doc, err := ix.read(ctx, store, folder, itemID)
	if err != nil {
		return err
	}

	kw := Keywords(text, ix.keywords)
	if len(kw) == 0 {
		delete(doc.Pages, page)
	} else {
		doc.Pages[page] = kw
	}
	doc.UpdatedAt = ix.now().UTC()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode page index: %w", err)
	}
	if _, err := remote.PutFile(ctx, store, data, common.PageIndexFileName(itemID), folder, common.JSONMimeType); err != nil {
		return fmt.Errorf("write page index: %w", err)
	}
	ix.log.Debug(ctx, "page indexed", "item", itemID, "page", page, "keywords", len(kw))
	return nil
}

// Search ranks the item's pages by how many query terms appear among their
// keywords. Pages without a match are omitted.
func (ix *Index) Search(ctx context.Context, itemID, query string) ([]PageHit, error) {
	doc, err := ix.Document(ctx, itemID)
	if err != nil {
		return nil, err
	}

	terms := Terms(query)
	var hits []PageHit
	for page, kws := range doc.Pages {
		set := make(map[string]struct{}, len(kws))
		for _, k := range kws {
			set[k] = struct{}{}
		}
		hit := PageHit{Page: page}
		for _, t := range terms {
			if _, ok := set[t]; ok && !slices.Contains(hit.Matched, t) {
				hit.Matched = append(hit.Matched, t)
			}
		}
		if hit.Score = len(hit.Matched); hit.Score > 0 {
			hits = append(hits, hit)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Page < hits[j].Page
	})
	return hits, nil
}

// Document returns the item's stored index, empty if none exists.
func (ix *Index) Document(ctx context.Context, itemID string) (*Document, error) {
	store, err := ix.sess.RequireRemote()
	if err != nil {
		return nil, err
	}
	folder, err := ix.prov.Folder(ctx, models.FolderIndex)
	if err != nil {
		return nil, err
	}
	return ix.read(ctx, store, folder, itemID)
}

func (ix *Index) read(ctx context.Context, store remote.Store, folder remote.Handle, itemID string) (*Document, error) {
	empty := &Document{ItemID: itemID, Pages: map[int][]string{}}

	h, found, err := remote.FindFile(ctx, store, common.PageIndexFileName(itemID), folder)
	if err != nil {
		return nil, err
	}
	if !found {
		return empty, nil
	}
	data, err := store.DownloadFile(ctx, h)
	if errors.Is(err, common.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		ix.log.Warn(ctx, "rebuilding unreadable page index", "item", itemID, "error", err)
		return empty, nil
	}
	if doc.Pages == nil {
		doc.Pages = map[int][]string{}
	}
	doc.ItemID = itemID
	return &doc, nil
}
