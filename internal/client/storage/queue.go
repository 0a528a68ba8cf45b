package storage

import (
	"context"

	"github.com/plantit/plantit/internal/models"
)

// QueueStorage defines interface for the persisted mutation store.
// Единственный писатель - Mutation Queue; Reconciliation Layer читает
// состояние очереди только через сигналы.
type QueueStorage interface {
	// SaveMutation stores or updates a queued mutation
	SaveMutation(ctx context.Context, m *models.QueuedMutation) error

	// GetMutation retrieves a queued mutation by queue id
	// Returns ErrMutationNotFound if it doesn't exist
	GetMutation(ctx context.Context, id string) (*models.QueuedMutation, error)

	// ListMutations returns all queued mutations in creation order
	ListMutations(ctx context.Context) ([]*models.QueuedMutation, error)

	// DeleteMutation removes a settled mutation from the store
	DeleteMutation(ctx context.Context, m *models.QueuedMutation) error

	// CountByStatus returns the number of entries with the given status
	CountByStatus(ctx context.Context, status string) (int, error)
}
