// Package syncer reconciles a local record collection with one JSON manifest
// object in the remote store.
//
// The consistency model is last-writer-wins: per record, the copy with the
// newer UpdatedAt replaces the other whole (ties go to the remote copy), and
// whole-manifest writes from different devices overwrite each other. Remote
// absence is a supported offline mode, not an error. Removals are kept as
// local tombstones until they reach the remote store, so a stale manifest
// can never bring a deleted record back.
package syncer
