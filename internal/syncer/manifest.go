package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/logging"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/provision"
	"github.com/ekamanam/studysync/internal/remote"
)

// Manifest is the JSON document stored in the remote store.
type Manifest[T models.Record] struct {
	Version  int       `json:"version"`
	LastSync time.Time `json:"lastSync"`
	Items    []T       `json:"items"`
}

// ManifestFile reads and writes one manifest object in a provisioned folder.
// The object's handle is cached after the first lookup and dropped when the
// store reports it missing.
type ManifestFile[T models.Record] struct {
	name   string
	folder string
	prov   *provision.Provisioner
	log    logging.Logger
	now    func() time.Time

	mu     sync.Mutex
	handle remote.Handle
}

// NewManifestFile returns the manifest called name inside the logical folder.
func NewManifestFile[T models.Record](name, folder string, prov *provision.Provisioner, log logging.Logger) *ManifestFile[T] {
	if log == nil {
		log = logging.Nop()
	}
	return &ManifestFile[T]{
		name:   name,
		folder: folder,
		prov:   prov,
		log:    log.With("manifest", name),
		now:    time.Now,
	}
}

func (f *ManifestFile[T]) Name() string { return f.name }

func (f *ManifestFile[T]) cached() remote.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle
}

func (f *ManifestFile[T]) remember(h remote.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handle = h
}

// Forget drops the cached handle.
func (f *ManifestFile[T]) Forget() {
	f.remember("")
}

func (f *ManifestFile[T]) locate(ctx context.Context, store remote.Store) (remote.Handle, remote.Handle, bool, error) {
	parent, err := f.prov.Folder(ctx, f.folder)
	if err != nil {
		return "", "", false, err
	}
	if h := f.cached(); h != "" {
		return parent, h, true, nil
	}
	h, found, err := remote.FindFile(ctx, store, f.name, parent)
	if err != nil {
		return "", "", false, err
	}
	if found {
		f.remember(h)
	}
	return parent, h, found, nil
}

// Read fetches the manifest, creating an empty one when the object does not
// exist. A manifest that cannot be decoded is returned empty together with
// an error wrapping common.ErrCorruptManifest; callers decide whether to
// treat it as empty.
func (f *ManifestFile[T]) Read(ctx context.Context, store remote.Store) (Manifest[T], error) {
	m, err := f.read(ctx, store)
	if errors.Is(err, common.ErrNotFound) && f.cached() != "" {
		// stale handle, look the object up again
		f.Forget()
		m, err = f.read(ctx, store)
	}
	return m, err
}

func (f *ManifestFile[T]) read(ctx context.Context, store remote.Store) (Manifest[T], error) {
	parent, h, found, err := f.locate(ctx, store)
	if err != nil {
		return Manifest[T]{}, err
	}

	if !found {
		m := f.empty()
		if err := f.create(ctx, store, parent, m); err != nil {
			return Manifest[T]{}, err
		}
		f.log.Info(ctx, "created empty manifest")
		return m, nil
	}

	data, err := store.DownloadFile(ctx, h)
	if err != nil {
		return Manifest[T]{}, err
	}
	return f.decode(data)
}

func (f *ManifestFile[T]) empty() Manifest[T] {
	return Manifest[T]{Version: common.ManifestVersion, LastSync: f.now().UTC(), Items: []T{}}
}

func (f *ManifestFile[T]) decode(data []byte) (Manifest[T], error) {
	var m Manifest[T]
	if err := json.Unmarshal(data, &m); err != nil {
		return f.empty(), fmt.Errorf("%w: %s: %v", common.ErrCorruptManifest, f.name, err)
	}
	items := m.Items[:0]
	for _, rec := range m.Items {
		if isNil(rec) || rec.RecordID() == "" {
			continue
		}
		if n, ok := any(rec).(models.Normalizer); ok {
			n.Normalize()
		}
		items = append(items, rec)
	}
	m.Items = dedupe(items)
	return m, nil
}

func (f *ManifestFile[T]) encode(items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	m := Manifest[T]{Version: common.ManifestVersion, LastSync: f.now().UTC(), Items: items}
	return json.MarshalIndent(m, "", "  ")
}

func (f *ManifestFile[T]) create(ctx context.Context, store remote.Store, parent remote.Handle, m Manifest[T]) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	res, err := store.UploadFile(ctx, data, parent, f.name, common.JSONMimeType)
	if err != nil {
		return err
	}
	f.remember(res.Handle)
	return nil
}

// Write replaces the manifest content with items and a fresh lastSync.
func (f *ManifestFile[T]) Write(ctx context.Context, store remote.Store, items []T) error {
	data, err := f.encode(items)
	if err != nil {
		return fmt.Errorf("encode manifest %s: %w", f.name, err)
	}

	parent, h, found, err := f.locate(ctx, store)
	if err != nil {
		return err
	}
	if found {
		err = store.ReplaceFile(ctx, h, data)
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		f.Forget()
		if parent, h, found, err = f.locate(ctx, store); err != nil {
			return err
		}
		if found {
			return store.ReplaceFile(ctx, h, data)
		}
	}

	res, err := store.UploadFile(ctx, data, parent, f.name, common.JSONMimeType)
	if err != nil {
		return err
	}
	f.remember(res.Handle)
	return nil
}

func isNil[T any](v T) bool {
	rv := reflect.ValueOf(any(v))
	return !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil())
}
