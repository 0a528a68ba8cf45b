package storage

import (
	"context"

	"github.com/plantit/plantit/pkg/api"
)

// GardenStorage defines interface for villages, plants, tasks and photos
// persistence. Все записи принадлежат одному пользователю (owner).
type GardenStorage interface {
	// CreateVillage creates a new village
	CreateVillage(ctx context.Context, ownerID string, v *api.Village) error

	// GetVillage retrieves village by ID
	// Returns ErrVillageNotFound if village doesn't exist
	GetVillage(ctx context.Context, ownerID, id string) (*api.Village, error)

	// ListVillages retrieves all villages ordered by creation time
	ListVillages(ctx context.Context, ownerID string) ([]*api.Village, error)

	// UpdateVillage replaces mutable village fields
	// Returns ErrVillageNotFound if village doesn't exist
	UpdateVillage(ctx context.Context, ownerID string, v *api.Village) error

	// DeleteVillage removes village and everything inside it
	// Returns ErrVillageNotFound if village doesn't exist
	DeleteVillage(ctx context.Context, ownerID, id string) error

	// CreatePlant creates a new plant
	// Returns ErrVillageNotFound if parent village doesn't exist
	CreatePlant(ctx context.Context, ownerID string, p *api.Plant) error

	// GetPlant retrieves plant by ID
	// Returns ErrPlantNotFound if plant doesn't exist
	GetPlant(ctx context.Context, ownerID, id string) (*api.Plant, error)

	// ListPlantsByVillage retrieves plants of a village ordered by creation time
	ListPlantsByVillage(ctx context.Context, ownerID, villageID string) ([]*api.Plant, error)

	// ListRecentPlants retrieves the most recently created plants
	ListRecentPlants(ctx context.Context, ownerID string, limit int) ([]*api.Plant, error)

	// CountPlants returns the total number of plants
	CountPlants(ctx context.Context, ownerID string) (int, error)

	// UpdatePlant replaces mutable plant fields
	// Returns ErrPlantNotFound if plant doesn't exist
	UpdatePlant(ctx context.Context, ownerID string, p *api.Plant) error

	// DeletePlant removes plant together with its tasks and photos
	// Returns ErrPlantNotFound if plant doesn't exist
	DeletePlant(ctx context.Context, ownerID, id string) error

	// CreateTask creates a new care task
	// Returns ErrPlantNotFound if plant doesn't exist
	CreateTask(ctx context.Context, ownerID string, t *api.Task) error

	// GetTask retrieves task by ID
	// Returns ErrTaskNotFound if task doesn't exist
	GetTask(ctx context.Context, ownerID, id string) (*api.Task, error)

	// ListTasks retrieves all tasks ordered by due date
	ListTasks(ctx context.Context, ownerID string) ([]*api.Task, error)

	// ListTasksByPlant retrieves tasks of a plant ordered by due date
	ListTasksByPlant(ctx context.Context, ownerID, plantID string) ([]*api.Task, error)

	// UpdateTask replaces mutable task fields
	// Returns ErrTaskNotFound if task doesn't exist
	UpdateTask(ctx context.Context, ownerID string, t *api.Task) error

	// DeleteTask removes task
	// Returns ErrTaskNotFound if task doesn't exist
	DeleteTask(ctx context.Context, ownerID, id string) error

	// CreatePhoto creates a photo record
	// Returns ErrPlantNotFound if plant doesn't exist
	CreatePhoto(ctx context.Context, ownerID string, p *api.Photo) error

	// ListPhotosByPlant retrieves photo records of a plant
	ListPhotosByPlant(ctx context.Context, ownerID, plantID string) ([]*api.Photo, error)

	// DeletePhoto removes photo record
	// Returns ErrPhotoNotFound if photo doesn't exist
	DeletePhoto(ctx context.Context, ownerID, id string) error
}
