// Package models defines the records kept in the local store and mirrored to
// the remote manifests: library items, hubs, per-page response cache entries
// and the resolved remote folder manifest.
package models
