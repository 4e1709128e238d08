package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openPages(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE pages (item_id TEXT NOT NULL, page INTEGER NOT NULL, PRIMARY KEY (item_id, page))`)
	require.NoError(t, err)
	return db
}

func pageCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM pages`).Scan(&n))
	return n
}

func addPage(ctx context.Context, tx DBTX, page int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO pages (item_id, page) VALUES ('book', ?)`, page)
	return err
}

func TestWithTx_Commit(t *testing.T) {
	db := openPages(t)

	err := WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		for p := 1; p <= 3; p++ {
			if err := addPage(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, pageCount(t, db))
}

func TestWithTx_ErrorRollsBack(t *testing.T) {
	db := openPages(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, addPage(ctx, tx, 1))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, pageCount(t, db))
}

func TestWithTx_ConstraintViolationRollsBackEarlierWrites(t *testing.T) {
	db := openPages(t)

	err := WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, addPage(ctx, tx, 1))
		return addPage(ctx, tx, 1)
	})
	require.Error(t, err)
	assert.Equal(t, 0, pageCount(t, db))
}

func TestWithTx_PanicRollsBack(t *testing.T) {
	db := openPages(t)

	assert.PanicsWithValue(t, "page out of range", func() {
		_ = WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, addPage(ctx, tx, 1))
			panic("page out of range")
		})
	})
	assert.Equal(t, 0, pageCount(t, db))
}

func TestWithTx_BeginFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	called := false
	err = WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	err = WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error { return nil })
	require.EqualError(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsNoRows(t *testing.T) {
	db := openPages(t)
	var page int
	err := db.QueryRow(`SELECT page FROM pages WHERE item_id = 'missing'`).Scan(&page)

	assert.True(t, IsNoRows(err))
	assert.True(t, IsNoRows(fmt.Errorf("lookup: %w", err)))
	assert.False(t, IsNoRows(errors.New("other")))
	assert.False(t, IsNoRows(nil))
}
