// Package localdb opens the embedded SQLite store and wires the repositories
// the reconcilers and the response cache persist through.
package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/ekamanam/studysync/internal/dbx"
	"github.com/ekamanam/studysync/internal/localdb/migrations"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/repositories/metadata"
	"github.com/ekamanam/studysync/internal/repositories/payloads"
	"github.com/ekamanam/studysync/internal/repositories/records"
	"github.com/ekamanam/studysync/internal/repositories/responses"
)

// Repositories groups every local repository over one database.
type Repositories struct {
	DB        *sql.DB
	Items     records.Repository[*models.LibraryItem]
	Hubs      records.Repository[*models.HubRecord]
	Payloads  payloads.Repository
	Responses responses.Repository
	Metadata  metadata.Repository
}

// Close closes the underlying database.
func (r *Repositories) Close() error {
	return r.DB.Close()
}

// Tx runs fn with repositories bound to a single transaction. Everything fn
// writes through tx lands together or not at all.
func (r *Repositories) Tx(ctx context.Context, fn func(ctx context.Context, tx *Repositories) error) error {
	return dbx.WithTx(ctx, r.DB, func(ctx context.Context, q dbx.DBTX) error {
		return fn(ctx, bind(r.DB, q))
	})
}

func bind(db *sql.DB, q dbx.DBTX) *Repositories {
	return &Repositories{
		DB:        db,
		Items:     records.NewSQLiteRepository[*models.LibraryItem](q, records.TableItems),
		Hubs:      records.NewSQLiteRepository[*models.HubRecord](q, records.TableHubs),
		Payloads:  payloads.NewSQLiteRepository(q),
		Responses: responses.NewSQLiteRepository(q),
		Metadata:  metadata.NewSQLiteRepository(q),
	}
}

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

func RunMigrations(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Open opens the SQLite database at dsn. The pool is limited to a single
// connection: SQLite serialises writers anyway and ":memory:" databases are
// per connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// InitDatabase opens dsn, applies migrations and returns the repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return bind(db, db), nil
}
