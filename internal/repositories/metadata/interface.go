// Package metadata is a small key/value store in the local database for
// sync bookkeeping such as the last successful sync time of each manifest.
package metadata

import (
	"context"
	"time"
)

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

// LastSyncKey is the metadata key holding the last sync time of a manifest.
func LastSyncKey(manifest string) string {
	return "last_sync:" + manifest
}

// GetTime reads an RFC 3339 timestamp. A missing key yields the zero time.
func GetTime(ctx context.Context, r Repository, key string) (time.Time, error) {
	v, err := r.Get(ctx, key)
	if err != nil || v == nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, string(v))
}

// SetTime stores t as an RFC 3339 timestamp.
func SetTime(ctx context.Context, r Repository, key string, t time.Time) error {
	return r.Set(ctx, key, []byte(t.UTC().Format(time.RFC3339Nano)))
}
