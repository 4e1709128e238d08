// Package payloads stores binary item payloads (PDF bytes, thumbnails) in
// the local store, keyed by LibraryItem.LocalDataKey.
package payloads

import "context"

type Repository interface {
	// Put stores data under key, replacing any previous payload.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the payload under key or common.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether a payload is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the payload. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
