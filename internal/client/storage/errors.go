package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no session data exists
	ErrAuthNotFound = errors.New("session data not found")

	// ErrMutationNotFound indicates that queued mutation was not found
	ErrMutationNotFound = errors.New("queued mutation not found")

	// ErrCacheEntryNotFound indicates that no cache entry exists for URL
	ErrCacheEntryNotFound = errors.New("cache entry not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
