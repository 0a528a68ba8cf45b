package storage

import (
	"context"

	"github.com/plantit/plantit/internal/models"
)

// CacheStorage defines interface for cached GET responses.
// Единственный писатель - Cache Proxy.
type CacheStorage interface {
	// PutEntry stores or replaces the cache entry for its URL
	PutEntry(ctx context.Context, entry *models.CacheEntry) error

	// GetEntry retrieves the cache entry for URL
	// Returns ErrCacheEntryNotFound if nothing is cached
	GetEntry(ctx context.Context, url string) (*models.CacheEntry, error)

	// DeleteEntry removes the cache entry for URL
	DeleteEntry(ctx context.Context, url string) error

	// ListEntries returns all cache entries (any order)
	ListEntries(ctx context.Context) ([]*models.CacheEntry, error)

	// ClearCache drops all cache entries
	// Used on cache generation bump
	ClearCache(ctx context.Context) error
}
