package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrVillageNotFound indicates that village was not found
	ErrVillageNotFound = errors.New("village not found")

	// ErrPlantNotFound indicates that plant was not found
	ErrPlantNotFound = errors.New("plant not found")

	// ErrTaskNotFound indicates that task was not found
	ErrTaskNotFound = errors.New("task not found")

	// ErrPhotoNotFound indicates that photo was not found
	ErrPhotoNotFound = errors.New("photo not found")
)
