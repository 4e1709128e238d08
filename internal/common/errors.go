// Package common defines sentinel errors shared by the local store, the remote
// object store and the reconcilers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Remote store error kinds.
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrTransientNetwork  = errors.New("transient network error")
	ErrIncompleteUpload  = errors.New("incomplete upload")
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// Manifest errors.
	ErrCorruptManifest = errors.New("corrupt manifest")

	// Validation errors.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrDuplicateItem   = errors.New("duplicate item")

	// ErrChecksumMismatch means downloaded bytes differ from the recorded hash.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// IsRetryable reports whether err is worth retrying with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientNetwork)
}

// IsOfflineSignal reports whether err means the remote store cannot be used
// right now and the caller should continue in local-only mode.
func IsOfflineSignal(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable) || errors.Is(err, ErrTransientNetwork)
}
