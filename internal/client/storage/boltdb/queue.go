package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/plantit/plantit/internal/client/storage"
	"github.com/plantit/plantit/internal/models"
)

// SaveMutation stores or updates a queued mutation.
// Ключ записи включает CreatedAt.UnixNano, поэтому порядок итерации
// по bucket совпадает с порядком создания.
func (s *Storage) SaveMutation(ctx context.Context, m *models.QueuedMutation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal mutation: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}
		if err := bucket.Put(m.QueueKey(), data); err != nil {
			return fmt.Errorf("failed to save mutation: %w", err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetMutation retrieves a queued mutation by queue id
func (s *Storage) GetMutation(ctx context.Context, id string) (*models.QueuedMutation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var found *models.QueuedMutation

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return storage.ErrMutationNotFound
		}

		// Ключи имеют вид "<nanos>-<id>", ищем по суффиксу
		return bucket.ForEach(func(k, v []byte) error {
			if !strings.HasSuffix(string(k), "-"+id) {
				return nil
			}
			var m models.QueuedMutation
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal mutation: %w", err)
			}
			if m.ID == id {
				found = &m
			}
			return nil
		})
	})

	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, storage.ErrMutationNotFound
	}

	return found, nil
}

// ListMutations returns all queued mutations in creation order
func (s *Storage) ListMutations(ctx context.Context) ([]*models.QueuedMutation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var mutations []*models.QueuedMutation

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return nil
		}

		// bbolt итерирует в byte-порядке ключей = порядок создания
		return bucket.ForEach(func(k, v []byte) error {
			var m models.QueuedMutation
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal mutation: %w", err)
			}
			mutations = append(mutations, &m)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list mutations: %w", err)
	}

	return mutations, nil
}

// DeleteMutation removes a settled mutation from the store
func (s *Storage) DeleteMutation(ctx context.Context, m *models.QueuedMutation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return storage.ErrMutationNotFound
		}
		if err := bucket.Delete(m.QueueKey()); err != nil {
			return fmt.Errorf("failed to delete mutation: %w", err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("delete transaction failed: %w", err)
	}

	return nil
}

// CountByStatus returns the number of entries with the given status
func (s *Storage) CountByStatus(ctx context.Context, status string) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var count int

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var m models.QueuedMutation
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal mutation: %w", err)
			}
			if m.Status == status {
				count++
			}
			return nil
		})
	})

	if err != nil {
		return 0, fmt.Errorf("failed to count mutations: %w", err)
	}

	return count, nil
}
