// Package session holds the per-process sync state shared by the
// reconcilers and the response cache: whether the remote store may be used,
// the resolved folder manifest, and the passive sync status shown to users.
//
// A Session is created once by the application and passed to every component
// constructor. It replaces module-level globals with an explicit lifecycle:
// Init, Invalidate and Teardown.
package session

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/logging"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/remote"
)

// State is the passive sync state.
type State string

const (
	StateOffline State = "offline"
	StateSynced  State = "synced"
	StatePending State = "pending"
)

// Status is a snapshot of the sync state. LastError is informational and is
// never meant to be shown as an error dialog.
type Status struct {
	State     State
	LastError error
	LastSync  time.Time
}

type Session struct {
	mu      sync.RWMutex
	store   remote.Store
	granted bool
	closed  bool
	folders models.FolderManifest
	status  Status
	log     logging.Logger
}

// New returns a session over store. A nil store means no remote is
// configured and every component runs local-only.
func New(store remote.Store, log logging.Logger) *Session {
	if log == nil {
		log = logging.Nop()
	}
	return &Session{
		store:  store,
		log:    log,
		status: Status{State: StateOffline},
	}
}

// Init grants remote access when a store is configured.
func (s *Session) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = false
	s.granted = s.store != nil
	if !s.granted {
		s.log.Info(ctx, "remote store not configured, running local-only")
	}
}

// Grant enables the remote store. It is a no-op without a store.
func (s *Session) Grant() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted = s.store != nil && !s.closed
}

// Revoke disables the remote store and drops the folder cache.
func (s *Session) Revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted = false
	s.folders = nil
	s.status.State = StateOffline
}

// Remote returns the store when it is configured and granted.
func (s *Session) Remote() (remote.Store, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil || !s.granted || s.closed {
		return nil, false
	}
	return s.store, true
}

// RequireRemote is Remote as an error: common.ErrRemoteUnavailable when the
// remote store cannot be used.
func (s *Session) RequireRemote() (remote.Store, error) {
	st, ok := s.Remote()
	if !ok {
		return nil, common.ErrRemoteUnavailable
	}
	return st, nil
}

// Folders returns a copy of the cached folder manifest.
func (s *Session) Folders() (models.FolderManifest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.folders == nil {
		return nil, false
	}
	return maps.Clone(s.folders), true
}

func (s *Session) SetFolders(m models.FolderManifest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.folders = maps.Clone(m)
}

// Invalidate clears the folder cache so the next caller re-resolves it, e.g.
// after a credential refresh or a NotFound on a cached handle.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = nil
}

// Teardown drops the remote handle and every cache.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.granted = false
	s.folders = nil
	s.status = Status{State: StateOffline}
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	if s.store == nil || !s.granted || s.closed {
		st.State = StateOffline
	}
	return st
}

// ReportSynced records a successful round-trip with the remote store.
func (s *Session) ReportSynced(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = Status{State: StateSynced, LastSync: t}
}

// ReportPending records that local changes did not reach the remote store.
// A NotFound error also invalidates the folder cache, since a cached handle
// may be stale.
func (s *Session) ReportPending(ctx context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = StatePending
	s.status.LastError = err
	if errors.Is(err, common.ErrNotFound) {
		s.folders = nil
	}
	s.log.Warn(ctx, "remote sync pending", "error", err)
}
