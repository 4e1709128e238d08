package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/logging"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/remote"
	"github.com/ekamanam/studysync/internal/repositories/metadata"
	"github.com/ekamanam/studysync/internal/repositories/records"
	"github.com/ekamanam/studysync/internal/session"
)

// Hooks plug collection specific remote work into a Reconciler.
type Hooks[T models.Record] struct {
	// Prepare runs for a record with local changes before it is written to
	// the manifest. It may upload payloads and return the record with new
	// remote references.
	Prepare func(ctx context.Context, store remote.Store, rec T) (T, error)

	// Cleanup deletes the remote artefacts of a removed record. A NotFound
	// error counts as success.
	Cleanup func(ctx context.Context, store remote.Store, rec T) error
}

// Reconciler keeps a local record repository and a remote manifest in step.
// Remote work is serialised within the process; across processes the last
// manifest write wins.
type Reconciler[T models.Record] struct {
	repo     records.Repository[T]
	manifest *ManifestFile[T]
	sess     *session.Session
	meta     metadata.Repository
	hooks    Hooks[T]
	log      logging.Logger
	now      func() time.Time

	mu sync.Mutex
}

func New[T models.Record](
	repo records.Repository[T],
	manifest *ManifestFile[T],
	sess *session.Session,
	meta metadata.Repository,
	hooks Hooks[T],
	log logging.Logger,
) *Reconciler[T] {
	if log == nil {
		log = logging.Nop()
	}
	return &Reconciler[T]{
		repo:     repo,
		manifest: manifest,
		sess:     sess,
		meta:     meta,
		hooks:    hooks,
		log:      log.With("manifest", manifest.Name()),
		now:      time.Now,
	}
}

// localError marks failures of the local store, which are never degraded.
type localError struct{ err error }

func (e localError) Error() string { return e.err.Error() }
func (e localError) Unwrap() error { return e.err }

func local(err error) error {
	if err == nil {
		return nil
	}
	return localError{err}
}

// degrade turns a remote failure into local success with a pending sync
// status. Unauthorized, cancellation and local store errors are returned.
func (r *Reconciler[T]) degrade(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var le localError
	if errors.As(err, &le) {
		return le.err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	r.sess.ReportPending(ctx, err)
	if errors.Is(err, common.ErrUnauthorized) {
		return err
	}
	r.log.Warn(ctx, op+": remote write pending", "error", err)
	return nil
}

// LoadAll returns the merged record set. Without a usable remote store the
// local records are returned unchanged. Remote failures other than
// Unauthorized also fall back to the local records; on Unauthorized the
// local records are returned together with the error.
func (r *Reconciler[T]) LoadAll(ctx context.Context) ([]T, error) {
	localRecs, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	store, ok := r.sess.Remote()
	if !ok {
		return localRecs, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	merged, err := r.sync(ctx, store)
	if err == nil {
		return merged, nil
	}

	// a failed sync may already have applied remote wins locally
	if recs, lerr := r.repo.List(ctx); lerr == nil {
		localRecs = recs
	}
	return localRecs, r.degrade(ctx, "load", err)
}

func (r *Reconciler[T]) sync(ctx context.Context, store remote.Store) ([]T, error) {
	m, err := r.manifest.Read(ctx, store)
	dirty := false
	if errors.Is(err, common.ErrCorruptManifest) {
		r.log.Warn(ctx, "manifest unreadable, rebuilding from local records", "error", err)
		dirty, err = true, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	tombs, err := r.repo.Tombstones(ctx)
	if err != nil {
		return nil, local(err)
	}
	removed := make(map[string]struct{}, len(tombs))
	for _, rec := range tombs {
		removed[rec.RecordID()] = struct{}{}
	}
	for _, rec := range m.Items {
		if _, ok := removed[rec.RecordID()]; ok {
			dirty = true
		}
	}
	cleaned, err := r.cleanup(ctx, store, tombs)
	if err != nil {
		return nil, err
	}

	localRecs, err := r.repo.List(ctx)
	if err != nil {
		return nil, local(err)
	}

	res := Merge(localRecs, m.Items, removed)
	for _, rec := range res.RemoteWins {
		if err := r.repo.Put(ctx, rec, false); err != nil {
			return nil, local(err)
		}
	}

	items := res.Items
	failed := make(map[string]struct{})
	var pending error
	for _, rec := range res.LocalAhead {
		dirty = true
		prepared, err := r.prepare(ctx, store, rec)
		if err != nil {
			if errors.Is(err, common.ErrUnauthorized) || errors.As(err, new(localError)) {
				return nil, err
			}
			r.log.Warn(ctx, "record upload pending", "id", rec.RecordID(), "error", err)
			failed[rec.RecordID()] = struct{}{}
			pending = err
			continue
		}
		items = upsert(items, prepared)
	}

	if dirty {
		if err := r.manifest.Write(ctx, store, items); err != nil {
			return nil, fmt.Errorf("write manifest: %w", err)
		}
	}

	synced := make([]string, 0, len(items))
	for _, rec := range items {
		if _, ok := failed[rec.RecordID()]; !ok {
			synced = append(synced, rec.RecordID())
		}
	}
	if err := r.repo.MarkSynced(ctx, synced...); err != nil {
		return nil, local(err)
	}
	for _, id := range cleaned {
		if err := r.repo.Purge(ctx, id); err != nil {
			return nil, local(err)
		}
	}

	r.finish(ctx, pending)
	r.log.Debug(ctx, "sync complete",
		"items", len(items), "remote_wins", len(res.RemoteWins),
		"local_ahead", len(res.LocalAhead), "removed", len(cleaned))
	return items, nil
}

// finish records the sync outcome in the session and the metadata store.
func (r *Reconciler[T]) finish(ctx context.Context, pending error) {
	if pending != nil {
		r.sess.ReportPending(ctx, pending)
		return
	}
	now := r.now()
	r.sess.ReportSynced(now)
	if r.meta != nil {
		if err := metadata.SetTime(ctx, r.meta, metadata.LastSyncKey(r.manifest.Name()), now); err != nil {
			r.log.Warn(ctx, "failed to record sync time", "error", err)
		}
	}
}

// cleanup removes remote artefacts of tombstoned records and returns the ids
// that are gone remotely.
func (r *Reconciler[T]) cleanup(ctx context.Context, store remote.Store, tombs []T) ([]string, error) {
	cleaned := make([]string, 0, len(tombs))
	for _, rec := range tombs {
		if err := r.cleanupOne(ctx, store, rec); err != nil {
			if errors.Is(err, common.ErrUnauthorized) {
				return nil, err
			}
			r.log.Warn(ctx, "remote cleanup pending", "id", rec.RecordID(), "error", err)
			continue
		}
		cleaned = append(cleaned, rec.RecordID())
	}
	return cleaned, nil
}

func (r *Reconciler[T]) cleanupOne(ctx context.Context, store remote.Store, rec T) error {
	if r.hooks.Cleanup == nil {
		return nil
	}
	err := r.hooks.Cleanup(ctx, store, rec)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

func (r *Reconciler[T]) prepare(ctx context.Context, store remote.Store, rec T) (T, error) {
	if r.hooks.Prepare == nil {
		return rec, nil
	}
	out, err := r.hooks.Prepare(ctx, store, rec)
	if err != nil {
		return rec, err
	}
	if err := r.repo.Put(ctx, out, true); err != nil {
		return rec, local(err)
	}
	return out, nil
}

// Save writes rec locally first and then pushes it to the manifest. A remote
// failure leaves the record pending for the next sync; only Unauthorized is
// returned.
func (r *Reconciler[T]) Save(ctx context.Context, rec T) error {
	if err := r.repo.Put(ctx, rec, true); err != nil {
		return err
	}

	store, ok := r.sess.Remote()
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degrade(ctx, "save", r.push(ctx, store, rec))
}

// base returns the manifest items to modify, rebuilt from local records when
// the manifest is corrupt, and without tombstoned ids.
func (r *Reconciler[T]) base(ctx context.Context, store remote.Store) ([]T, error) {
	m, err := r.manifest.Read(ctx, store)
	items := m.Items
	if errors.Is(err, common.ErrCorruptManifest) {
		r.log.Warn(ctx, "manifest unreadable, rebuilding from local records", "error", err)
		if items, err = r.repo.List(ctx); err != nil {
			return nil, local(err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	tombs, err := r.repo.Tombstones(ctx)
	if err != nil {
		return nil, local(err)
	}
	for _, rec := range tombs {
		items, _ = without(items, rec.RecordID())
	}
	return items, nil
}

func (r *Reconciler[T]) push(ctx context.Context, store remote.Store, rec T) error {
	items, err := r.base(ctx, store)
	if err != nil {
		return err
	}

	prepared, err := r.prepare(ctx, store, rec)
	if err != nil {
		return err
	}

	if err := r.manifest.Write(ctx, store, upsert(items, prepared)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := r.repo.MarkSynced(ctx, rec.RecordID()); err != nil {
		return local(err)
	}
	r.finish(ctx, nil)
	return nil
}

// Remove tombstones the record locally, then deletes its remote artefacts
// and manifest entry. The tombstone outlives remote failures so the next
// successful sync completes the removal. The removed record is returned.
func (r *Reconciler[T]) Remove(ctx context.Context, id string) (T, error) {
	rec, err := r.repo.Tombstone(ctx, id)
	if err != nil {
		return rec, err
	}

	store, ok := r.sess.Remote()
	if !ok {
		return rec, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return rec, r.degrade(ctx, "remove", r.pushRemoval(ctx, store, rec))
}

func (r *Reconciler[T]) pushRemoval(ctx context.Context, store remote.Store, rec T) error {
	if err := r.cleanupOne(ctx, store, rec); err != nil {
		return fmt.Errorf("remove remote artefacts: %w", err)
	}

	items, err := r.base(ctx, store)
	if err != nil {
		return err
	}
	if err := r.manifest.Write(ctx, store, items); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := r.repo.Purge(ctx, rec.RecordID()); err != nil {
		return local(err)
	}
	r.finish(ctx, nil)
	return nil
}

// Pending returns records with local changes the remote has not seen.
func (r *Reconciler[T]) Pending(ctx context.Context) ([]T, error) {
	return r.repo.ListPending(ctx)
}
