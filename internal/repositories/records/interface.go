package records

import (
	"context"

	"github.com/ekamanam/studysync/internal/models"
)

// Repository stores records of type T keyed by RecordID.
type Repository[T models.Record] interface {
	// Put inserts or replaces rec and clears any tombstone for its id.
	Put(ctx context.Context, rec T, pending bool) error

	// Get returns the live record with id, or common.ErrNotFound.
	Get(ctx context.Context, id string) (T, error)

	// List returns all live records.
	List(ctx context.Context) ([]T, error)

	// ListPending returns live records not yet written to the remote manifest.
	ListPending(ctx context.Context) ([]T, error)

	// MarkSynced clears the pending flag of the given live records.
	MarkSynced(ctx context.Context, ids ...string) error

	// Tombstone soft-deletes the record and returns its last stored value.
	Tombstone(ctx context.Context, id string) (T, error)

	// Tombstones returns soft-deleted records awaiting remote cleanup.
	Tombstones(ctx context.Context) ([]T, error)

	// Purge removes the row for id, tombstone or not.
	Purge(ctx context.Context, id string) error
}
