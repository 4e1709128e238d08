package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ekamanam/studysync/internal/config"
	"github.com/ekamanam/studysync/internal/filex"
	"github.com/ekamanam/studysync/internal/hubs"
	"github.com/ekamanam/studysync/internal/library"
	"github.com/ekamanam/studysync/internal/localdb"
	"github.com/ekamanam/studysync/internal/logging"
	"github.com/ekamanam/studysync/internal/pageindex"
	"github.com/ekamanam/studysync/internal/provision"
	"github.com/ekamanam/studysync/internal/remote"
	"github.com/ekamanam/studysync/internal/respcache"
	"github.com/ekamanam/studysync/internal/session"
)

type App struct {
	cfg *config.Config
	log logging.Logger

	repos   *localdb.Repositories
	sess    *session.Session
	prov    *provision.Provisioner
	library *library.Library
	hubs    *hubs.Hubs
	cache   *respcache.Cache
	index   *pageindex.Index

	reader *bufio.Reader
	out    io.Writer

	// bg tracks the sync watcher so Close never shuts the store under it.
	bg sync.WaitGroup
}

// NewApp opens the local store under cfg.DataDir, connects the remote store
// selected by cfg.RemoteMode and wires the services.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	store, err := newStore(ctx, cfg, os.Stdout)
	if err != nil {
		return nil, err
	}

	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, log, filepath.Join(dir, cfg.DatabaseFile), store, os.Stdin, os.Stdout)
}

func newApp(ctx context.Context, cfg *config.Config, log logging.Logger, dsn string, store remote.Store, in io.Reader, out io.Writer) (*App, error) {
	repos, err := localdb.InitDatabase(ctx, dsn)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	retry := remote.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, BaseDelay: cfg.RetryBaseDelay}
	sess := session.New(store, log)
	sess.Init(ctx)
	prov := provision.New(sess, retry, log)
	index := pageindex.New(sess, prov, 0, log)

	a := &App{
		cfg:     cfg,
		log:     log,
		repos:   repos,
		sess:    sess,
		prov:    prov,
		library: library.New(repos, sess, prov, log),
		hubs:    hubs.New(repos, sess, prov, log),
		index:   index,
		cache: respcache.New(repos.Responses, sess, prov, respcache.Options{
			Threshold:     cfg.SimilarityThreshold,
			LocalFallback: cfg.CacheLocalFallback,
			Index:         index,
		}, log),
		reader: bufio.NewReader(in),
		out:    out,
	}
	return a, nil
}

// newStore builds the remote store for cfg.RemoteMode. A nil store means
// the remote is off. For S3 a missing secret key is read from the terminal.
func newStore(ctx context.Context, cfg *config.Config, w io.Writer) (remote.Store, error) {
	switch cfg.RemoteMode {
	case "", "off":
		return nil, nil

	case "memory":
		return remote.NewMemoryStore(), nil

	case "s3":
		secret := cfg.S3SecretKey
		if secret == "" && cfg.S3AccessKey != "" {
			b, err := GetSecret(w, "Enter S3 secret key")
			if err != nil {
				return nil, fmt.Errorf("read secret key: %w", err)
			}
			secret = string(b)
			wipe(b)
		}
		return remote.NewS3Store(ctx, remote.S3Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccountPath:  cfg.S3AccountPath,
			Credentials:  remote.NewTokenCredentials(cfg.S3AccessKey, secret, cfg.S3SessionToken),
			Timeout:      cfg.RemoteTimeout,
			Retry:        remote.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, BaseDelay: cfg.RetryBaseDelay},
		})

	default:
		return nil, fmt.Errorf("unknown remote mode %q", cfg.RemoteMode)
	}
}

// Run starts the background sync watcher, syncs once and blocks in the REPL
// until the user exits or ctx is done and the next line arrives.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		a.bg.Wait()
	}()

	if a.cfg.SyncInterval > 0 {
		a.bg.Add(1)
		go func() {
			defer a.bg.Done()
			a.StartSyncWatcher(ctx, a.cfg.SyncInterval)
		}()
	}

	fmt.Fprintln(a.out, "Welcome to studysync (type 'help' for commands)")
	if err := a.Sync(ctx); err != nil {
		a.log.Warn(ctx, "initial sync failed", "error", err)
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// Close waits for the sync watcher to stop, then tears down the session and
// closes the local store. The context given to Run must be done by then.
func (a *App) Close() error {
	a.bg.Wait()
	a.sess.Teardown()
	return a.repos.Close()
}

func (a *App) getStatus() string {
	st := a.sess.Status()
	return fmt.Sprintf("(%s)", st.State)
}

// StartSyncWatcher reconciles the library and hubs every interval while
// the remote is available, so process local caches never go stale for long.
func (a *App) StartSyncWatcher(ctx context.Context, interval time.Duration) {
	ctx = logging.ContextWith(ctx, "trigger", "watcher")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, ok := a.sess.Remote(); !ok {
				continue
			}
			if err := a.reconcile(ctx); err != nil {
				a.log.Warn(ctx, "background sync failed", "error", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) reconcile(ctx context.Context) error {
	if _, err := a.library.LoadAll(ctx); err != nil {
		return err
	}
	_, err := a.hubs.LoadAll(ctx)
	return err
}
