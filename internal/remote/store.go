// Package remote is the thin client over the account-scoped cloud object
// store. It exposes folder and file primitives, classifies every failure into
// the common error kinds, and retries idempotent reads with a bounded backoff.
package remote

import "context"

// Handle identifies a remote folder or file. Handles are opaque to callers.
type Handle = string

// UploadResult describes a freshly created remote file.
type UploadResult struct {
	Handle Handle
	Size   int64
}

// Store is the remote object store contract.
//
// Errors are *OpError values whose kind can be matched with errors.Is against
// common.ErrUnauthorized, common.ErrNotFound, common.ErrQuotaExceeded and
// common.ErrTransientNetwork. An upload that did not fully land is never
// reported as a success.
type Store interface {
	CreateFolder(ctx context.Context, name string, parent Handle) (Handle, error)
	// FindFolder returns found=false, err=nil when no such folder exists.
	FindFolder(ctx context.Context, name string, parent Handle) (h Handle, found bool, err error)
	UploadFile(ctx context.Context, data []byte, parent Handle, name, mimeType string) (UploadResult, error)
	ReplaceFile(ctx context.Context, h Handle, data []byte) error
	DownloadFile(ctx context.Context, h Handle) ([]byte, error)
	// ListFilesByNamePattern matches file names in parent with path.Match syntax.
	ListFilesByNamePattern(ctx context.Context, pattern string, parent Handle) ([]Handle, error)
	DeleteFile(ctx context.Context, h Handle) error
}
