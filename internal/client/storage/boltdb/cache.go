package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/plantit/plantit/internal/client/storage"
	"github.com/plantit/plantit/internal/models"
)

// PutEntry stores or replaces the cache entry for its URL
func (s *Storage) PutEntry(ctx context.Context, entry *models.CacheEntry) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCache)
		if bucket == nil {
			return fmt.Errorf("cache bucket not found")
		}
		if err := bucket.Put([]byte(entry.URL), data); err != nil {
			return fmt.Errorf("failed to save cache entry: %w", err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetEntry retrieves the cache entry for URL
func (s *Storage) GetEntry(ctx context.Context, url string) (*models.CacheEntry, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entry *models.CacheEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCache)
		if bucket == nil {
			return storage.ErrCacheEntryNotFound
		}

		data := bucket.Get([]byte(url))
		if data == nil {
			return storage.ErrCacheEntryNotFound
		}

		entry = &models.CacheEntry{}
		if err := json.Unmarshal(data, entry); err != nil {
			return fmt.Errorf("failed to unmarshal cache entry: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return entry, nil
}

// DeleteEntry removes the cache entry for URL
func (s *Storage) DeleteEntry(ctx context.Context, url string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCache)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(url))
	})

	if err != nil {
		return fmt.Errorf("delete transaction failed: %w", err)
	}

	return nil
}

// ListEntries returns all cache entries
func (s *Storage) ListEntries(ctx context.Context) ([]*models.CacheEntry, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entries []*models.CacheEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCache)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var entry models.CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal cache entry: %w", err)
			}
			entries = append(entries, &entry)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}

	return entries, nil
}

// ClearCache drops all cache entries
func (s *Storage) ClearCache(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		// Удаляем bucket полностью и создаем заново пустой
		if err := tx.DeleteBucket(bucketCache); err != nil && err != bbolt.ErrBucketNotFound {
			return fmt.Errorf("failed to delete bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketCache); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("clear transaction failed: %w", err)
	}

	return nil
}
