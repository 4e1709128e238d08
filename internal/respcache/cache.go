// Package respcache stores answered questions per (item, page) in the remote
// store and serves similar questions from it, so the AI layer is only called
// on a miss. Every entry is mirrored in the local store.
package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/logging"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/provision"
	"github.com/ekamanam/studysync/internal/remote"
	"github.com/ekamanam/studysync/internal/repositories/responses"
	"github.com/ekamanam/studysync/internal/session"
)

const DefaultThreshold = 0.7

// Query is a lookup request. A zero Threshold uses the cache default.
type Query struct {
	ItemID    string
	Page      int
	Question  string
	Context   string
	Threshold float64
}

// Answer is a freshly generated response to record.
type Answer struct {
	ItemID      string
	Page        int
	PageContent string
	Question    string
	Mode        string
	Context     string
	Response    string
}

// Hit is a cached query that matched a lookup.
type Hit struct {
	models.CachedQuery
	Score float64
}

// PageIndexer receives page text after an answer is stored.
type PageIndexer interface {
	Update(ctx context.Context, itemID string, page int, text string) error
}

type Options struct {
	Threshold float64
	// LocalFallback serves lookups from the local mirror when the remote
	// store cannot be reached.
	LocalFallback bool
	Scorer        SimilarityScorer
	Index         PageIndexer
}

type Cache struct {
	local responses.Repository
	sess  *session.Session
	prov  *provision.Provisioner
	opts  Options
	log   logging.Logger
	now   func() time.Time

	mu sync.Mutex
}

func New(local responses.Repository, sess *session.Session, prov *provision.Provisioner, opts Options, log logging.Logger) *Cache {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Scorer == nil {
		opts.Scorer = JaccardScorer{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Cache{
		local: local,
		sess:  sess,
		prov:  prov,
		opts:  opts,
		log:   log.With("component", "respcache"),
		now:   time.Now,
	}
}

// Lookup returns the best scoring cached query for the page, or nil when no
// entry reaches the threshold. A missing entry or an unreachable remote is a
// miss; only Unauthorized and cancellation are returned as errors.
func (c *Cache) Lookup(ctx context.Context, q Query) (*Hit, error) {
	if q.ItemID == "" {
		return nil, fmt.Errorf("%w: item id is required", common.ErrInvalidArgument)
	}
	threshold := q.Threshold
	if threshold <= 0 {
		threshold = c.opts.Threshold
	}

	entry, err := c.load(ctx, q.ItemID, q.Page, c.opts.LocalFallback)
	if err != nil || entry == nil {
		return nil, err
	}

	var best *Hit
	for _, cq := range entry.Queries {
		score := c.opts.Scorer.Score(q.Question, q.Context, cq)
		if best == nil || score > best.Score {
			best = &Hit{CachedQuery: cq, Score: score}
		}
	}
	if best == nil || best.Score < threshold {
		c.log.Debug(ctx, "cache miss", "item", q.ItemID, "page", q.Page)
		return nil, nil
	}
	c.log.Debug(ctx, "cache hit", "item", q.ItemID, "page", q.Page, "score", best.Score)
	return best, nil
}

// Store appends an answer to the page's entry and persists the whole entry,
// locally first and then remotely. Remote failures other than Unauthorized
// leave the answer in the local mirror and are not returned.
func (c *Cache) Store(ctx context.Context, a Answer) (*models.CachedQuery, error) {
	if a.ItemID == "" || strings.TrimSpace(a.Question) == "" {
		return nil, fmt.Errorf("%w: item id and question are required", common.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UTC()
	cq := models.CachedQuery{
		QueryID:            common.NewID(),
		Question:           a.Question,
		Mode:               a.Mode,
		Context:            a.Context,
		Response:           a.Response,
		Timestamp:          now,
		TokensUsedEstimate: common.EstimateTokens(a.Question, a.Context, a.Response),
	}

	entry, err := c.localEntry(ctx, a.ItemID, a.Page)
	if err != nil {
		return nil, err
	}

	store, online := c.sess.Remote()
	var folder remote.Handle
	if online {
		folder, err = c.prov.Folder(ctx, models.FolderResponses)
		if err == nil {
			var remoteEntry *models.CacheEntry
			remoteEntry, err = c.fetch(ctx, store, folder, a.ItemID, a.Page)
			if err == nil && remoteEntry != nil {
				entry = mergeEntries(remoteEntry, entry)
			}
		}
		if err != nil {
			if err = c.degrade(ctx, "store", err); err != nil {
				return nil, err
			}
			online = false
		}
	}

	if entry == nil {
		entry = &models.CacheEntry{ItemID: a.ItemID, Page: a.Page}
	}
	if a.PageContent != "" {
		entry.PageContent = a.PageContent
	}
	entry.Queries = append(entry.Queries, cq)
	entry.LastAccessed = now

	if err := c.local.Put(ctx, entry); err != nil {
		return nil, err
	}
	if online {
		if err := c.push(ctx, store, folder, entry); err != nil {
			if err = c.degrade(ctx, "store", err); err != nil {
				return nil, err
			}
		}
	}

	c.index(ctx, a)
	return &cq, nil
}

// Entry returns the whole cache entry of a page, from the remote store when
// reachable and from the local mirror otherwise.
func (c *Cache) Entry(ctx context.Context, itemID string, page int) (*models.CacheEntry, error) {
	entry, err := c.load(ctx, itemID, page, true)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("cache entry %s: %w", common.CacheKey(itemID, page), common.ErrNotFound)
	}
	return entry, nil
}

// load reads the entry from the remote store and refreshes the local mirror.
// The mirror alone is consulted only if fallback is set.
func (c *Cache) load(ctx context.Context, itemID string, page int, fallback bool) (*models.CacheEntry, error) {
	store, ok := c.sess.Remote()
	if !ok {
		if fallback {
			return c.localEntry(ctx, itemID, page)
		}
		return nil, nil
	}

	folder, err := c.prov.Folder(ctx, models.FolderResponses)
	var entry *models.CacheEntry
	if err == nil {
		entry, err = c.fetch(ctx, store, folder, itemID, page)
	}
	if err != nil {
		if err = c.degrade(ctx, "lookup", err); err != nil {
			return nil, err
		}
		if fallback {
			return c.localEntry(ctx, itemID, page)
		}
		return nil, nil
	}
	if entry == nil {
		if fallback {
			return c.localEntry(ctx, itemID, page)
		}
		return nil, nil
	}

	// answers stored while offline exist only in the mirror
	mirror, err := c.localEntry(ctx, itemID, page)
	if err != nil {
		return nil, err
	}
	entry = mergeEntries(entry, mirror)
	if err := c.local.Put(ctx, entry); err != nil {
		c.log.Warn(ctx, "failed to mirror cache entry", "item", itemID, "page", page, "error", err)
	}
	return entry, nil
}

func (c *Cache) localEntry(ctx context.Context, itemID string, page int) (*models.CacheEntry, error) {
	entry, err := c.local.Get(ctx, itemID, page)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return entry, err
}

// fetch downloads the page's entry. An absent or unreadable object yields nil.
func (c *Cache) fetch(ctx context.Context, store remote.Store, folder remote.Handle, itemID string, page int) (*models.CacheEntry, error) {
	name := common.CacheFileName(itemID, page)
	h, found, err := remote.FindFile(ctx, store, name, folder)
	if err != nil || !found {
		return nil, err
	}
	data, err := store.DownloadFile(ctx, h)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.log.Warn(ctx, "ignoring unreadable cache entry", "name", name, "error", err)
		return nil, nil
	}
	entry.ItemID, entry.Page = itemID, page
	return &entry, nil
}

func (c *Cache) push(ctx context.Context, store remote.Store, folder remote.Handle, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	_, err = remote.PutFile(ctx, store, data, common.CacheFileName(entry.ItemID, entry.Page), folder, common.JSONMimeType)
	return err
}

func (c *Cache) degrade(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	c.sess.ReportPending(ctx, err)
	if errors.Is(err, common.ErrUnauthorized) {
		return err
	}
	c.log.Warn(ctx, op+": remote cache unavailable", "error", err)
	return nil
}

func (c *Cache) index(ctx context.Context, a Answer) {
	if c.opts.Index == nil || strings.TrimSpace(a.PageContent) == "" {
		return
	}
	if err := c.opts.Index.Update(ctx, a.ItemID, a.Page, a.PageContent); err != nil {
		c.log.Debug(ctx, "page index not updated", "item", a.ItemID, "page", a.Page, "error", err)
	}
}

// mergeEntries returns r extended with the queries only l holds, ordered by
// timestamp.
func mergeEntries(r, l *models.CacheEntry) *models.CacheEntry {
	if l == nil {
		return r
	}
	seen := make(map[string]struct{}, len(r.Queries))
	for _, q := range r.Queries {
		seen[q.QueryID] = struct{}{}
	}
	for _, q := range l.Queries {
		if _, ok := seen[q.QueryID]; !ok {
			r.Queries = append(r.Queries, q)
		}
	}
	sort.SliceStable(r.Queries, func(i, j int) bool {
		return r.Queries[i].Timestamp.Before(r.Queries[j].Timestamp)
	})
	if r.PageContent == "" {
		r.PageContent = l.PageContent
	}
	if l.LastAccessed.After(r.LastAccessed) {
		r.LastAccessed = l.LastAccessed
	}
	return r
}
