package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/plantit/plantit/internal/server/storage"
	"github.com/plantit/plantit/pkg/api"
)

// CreateVillage creates a new village
func (s *Storage) CreateVillage(ctx context.Context, ownerID string, v *api.Village) error {
	query := `
		INSERT INTO villages (id, owner_id, name, location, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		v.ID, ownerID, v.Name, v.Location, v.Description, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert village: %w", err)
	}
	return nil
}

// GetVillage retrieves village by ID
func (s *Storage) GetVillage(ctx context.Context, ownerID, id string) (*api.Village, error) {
	query := `
		SELECT id, name, location, description, created_at, updated_at
		FROM villages
		WHERE owner_id = ? AND id = ?
	`

	v := &api.Village{}
	err := s.db.QueryRowContext(ctx, query, ownerID, id).Scan(
		&v.ID, &v.Name, &v.Location, &v.Description, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrVillageNotFound
		}
		return nil, fmt.Errorf("failed to get village: %w", err)
	}
	return v, nil
}

// ListVillages retrieves all villages ordered by creation time
func (s *Storage) ListVillages(ctx context.Context, ownerID string) ([]*api.Village, error) {
	query := `
		SELECT id, name, location, description, created_at, updated_at
		FROM villages
		WHERE owner_id = ?
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list villages: %w", err)
	}
	defer rows.Close()

	var villages []*api.Village
	for rows.Next() {
		v := &api.Village{}
		if err := rows.Scan(&v.ID, &v.Name, &v.Location, &v.Description, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan village: %w", err)
		}
		villages = append(villages, v)
	}
	return villages, rows.Err()
}

// UpdateVillage replaces mutable village fields
func (s *Storage) UpdateVillage(ctx context.Context, ownerID string, v *api.Village) error {
	query := `
		UPDATE villages
		SET name = ?, location = ?, description = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		v.Name, v.Location, v.Description, v.UpdatedAt, ownerID, v.ID)
	if err != nil {
		return fmt.Errorf("failed to update village: %w", err)
	}
	return checkAffected(result, storage.ErrVillageNotFound)
}

// DeleteVillage removes village, растения и задачи уходят каскадом
func (s *Storage) DeleteVillage(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM villages WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete village: %w", err)
	}
	return checkAffected(result, storage.ErrVillageNotFound)
}

// CreatePlant creates a new plant
func (s *Storage) CreatePlant(ctx context.Context, ownerID string, p *api.Plant) error {
	if _, err := s.GetVillage(ctx, ownerID, p.VillageID); err != nil {
		return err
	}

	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		INSERT INTO plants (id, owner_id, village_id, name, species, variety, kind,
		                    notes, acquired_on, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		p.ID, ownerID, p.VillageID, p.Name, p.Species, p.Variety, p.Kind,
		p.Notes, p.AcquiredOn, string(tags), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert plant: %w", err)
	}
	return nil
}

const plantColumns = `id, village_id, name, species, variety, kind, notes, acquired_on, tags, created_at, updated_at`

func scanPlant(scan func(...any) error) (*api.Plant, error) {
	p := &api.Plant{}
	var tags string
	err := scan(&p.ID, &p.VillageID, &p.Name, &p.Species, &p.Variety, &p.Kind,
		&p.Notes, &p.AcquiredOn, &tags, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return p, nil
}

// GetPlant retrieves plant by ID
func (s *Storage) GetPlant(ctx context.Context, ownerID, id string) (*api.Plant, error) {
	query := `SELECT ` + plantColumns + ` FROM plants WHERE owner_id = ? AND id = ?`

	row := s.db.QueryRowContext(ctx, query, ownerID, id)
	p, err := scanPlant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrPlantNotFound
		}
		return nil, fmt.Errorf("failed to get plant: %w", err)
	}
	return p, nil
}

func (s *Storage) queryPlants(ctx context.Context, query string, args ...any) ([]*api.Plant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plants: %w", err)
	}
	defer rows.Close()

	var plants []*api.Plant
	for rows.Next() {
		p, err := scanPlant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plant: %w", err)
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

// ListPlantsByVillage retrieves plants of a village ordered by creation time
func (s *Storage) ListPlantsByVillage(ctx context.Context, ownerID, villageID string) ([]*api.Plant, error) {
	query := `SELECT ` + plantColumns + ` FROM plants WHERE owner_id = ? AND village_id = ? ORDER BY created_at`
	return s.queryPlants(ctx, query, ownerID, villageID)
}

// ListRecentPlants retrieves the most recently created plants
func (s *Storage) ListRecentPlants(ctx context.Context, ownerID string, limit int) ([]*api.Plant, error) {
	query := `SELECT ` + plantColumns + ` FROM plants WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`
	return s.queryPlants(ctx, query, ownerID, limit)
}

// CountPlants returns the total number of plants
func (s *Storage) CountPlants(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM plants WHERE owner_id = ?`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count plants: %w", err)
	}
	return count, nil
}

// UpdatePlant replaces mutable plant fields
func (s *Storage) UpdatePlant(ctx context.Context, ownerID string, p *api.Plant) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		UPDATE plants
		SET name = ?, species = ?, variety = ?, kind = ?, notes = ?, tags = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		p.Name, p.Species, p.Variety, p.Kind, p.Notes, string(tags), p.UpdatedAt, ownerID, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update plant: %w", err)
	}
	return checkAffected(result, storage.ErrPlantNotFound)
}

// DeletePlant removes plant, задачи и фото уходят каскадом
func (s *Storage) DeletePlant(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM plants WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete plant: %w", err)
	}
	return checkAffected(result, storage.ErrPlantNotFound)
}

// CreateTask creates a new care task
func (s *Storage) CreateTask(ctx context.Context, ownerID string, t *api.Task) error {
	if _, err := s.GetPlant(ctx, ownerID, t.PlantID); err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, owner_id, plant_id, title, notes, due_date, status,
		                   completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		t.ID, ownerID, t.PlantID, t.Title, t.Notes, t.DueDate, t.Status,
		t.CompletedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

const taskColumns = `id, plant_id, title, notes, due_date, status, completed_at, created_at, updated_at`

func scanTask(scan func(...any) error) (*api.Task, error) {
	t := &api.Task{}
	var completedAt sql.NullTime
	err := scan(&t.ID, &t.PlantID, &t.Title, &t.Notes, &t.DueDate, &t.Status,
		&completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

// GetTask retrieves task by ID
func (s *Storage) GetTask(ctx context.Context, ownerID, id string) (*api.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ? AND id = ?`

	row := s.db.QueryRowContext(ctx, query, ownerID, id)
	t, err := scanTask(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*api.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*api.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListTasks retrieves all tasks ordered by due date
func (s *Storage) ListTasks(ctx context.Context, ownerID string) ([]*api.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ? ORDER BY due_date, created_at`
	return s.queryTasks(ctx, query, ownerID)
}

// ListTasksByPlant retrieves tasks of a plant ordered by due date
func (s *Storage) ListTasksByPlant(ctx context.Context, ownerID, plantID string) ([]*api.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ? AND plant_id = ? ORDER BY due_date, created_at`
	return s.queryTasks(ctx, query, ownerID, plantID)
}

// UpdateTask replaces mutable task fields
func (s *Storage) UpdateTask(ctx context.Context, ownerID string, t *api.Task) error {
	query := `
		UPDATE tasks
		SET title = ?, notes = ?, due_date = ?, status = ?, completed_at = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		t.Title, t.Notes, t.DueDate, t.Status, t.CompletedAt, t.UpdatedAt, ownerID, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return checkAffected(result, storage.ErrTaskNotFound)
}

// DeleteTask removes task
func (s *Storage) DeleteTask(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return checkAffected(result, storage.ErrTaskNotFound)
}

// CreatePhoto creates a photo record
func (s *Storage) CreatePhoto(ctx context.Context, ownerID string, p *api.Photo) error {
	if _, err := s.GetPlant(ctx, ownerID, p.PlantID); err != nil {
		return err
	}

	query := `
		INSERT INTO photos (id, owner_id, plant_id, file_name, alt_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, ownerID, p.PlantID, p.FileName, p.AltText, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

// ListPhotosByPlant retrieves photo records of a plant
func (s *Storage) ListPhotosByPlant(ctx context.Context, ownerID, plantID string) ([]*api.Photo, error) {
	query := `
		SELECT id, plant_id, file_name, alt_text, created_at
		FROM photos
		WHERE owner_id = ? AND plant_id = ?
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, plantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	var photos []*api.Photo
	for rows.Next() {
		p := &api.Photo{}
		if err := rows.Scan(&p.ID, &p.PlantID, &p.FileName, &p.AltText, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// DeletePhoto removes photo record
func (s *Storage) DeletePhoto(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM photos WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return checkAffected(result, storage.ErrPhotoNotFound)
}

// checkAffected возвращает notFound если запрос не затронул ни одной строки
func checkAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
