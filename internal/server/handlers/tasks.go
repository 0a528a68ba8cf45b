package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/plantit/plantit/internal/server/storage"
	"github.com/plantit/plantit/pkg/api"
)

func validISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// CreateTask обрабатывает POST /api/v1/tasks
func (h *GardenHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TaskCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, api.ErrCodeValidation, "invalid request body", "")
		return
	}
	if req.Title == "" || len(req.Title) > maxNameLen {
		sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
			"title must be 1-200 characters", "title")
		return
	}
	if req.PlantID == "" {
		sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
			"plant_id is required", "plant_id")
		return
	}
	if !validISODate(req.DueDate) {
		sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
			"due_date must be an ISO date (YYYY-MM-DD)", "due_date")
		return
	}

	now := time.Now().UTC()
	task := &api.Task{
		ID:        uuid.New().String(),
		PlantID:   req.PlantID,
		Title:     req.Title,
		Notes:     req.Notes,
		DueDate:   req.DueDate,
		Status:    api.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.garden.CreateTask(ctx, RequestUserID(r), task); err != nil {
		if errors.Is(err, storage.ErrPlantNotFound) {
			sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
				"plant does not exist", "plant_id")
			return
		}
		h.logger.ErrorContext(ctx, "failed to create task", "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
		return
	}

	respondWithETag(w, r, h.logger, task, http.StatusCreated)
}

// GetTask обрабатывает GET /api/v1/tasks/{id}
func (h *GardenHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.garden.GetTask(r.Context(), RequestUserID(r), r.PathValue("id"))
	if err != nil {
		h.notFound(w, r, err, "task not found")
		return
	}
	respondWithETag(w, r, h.logger, task, http.StatusOK)
}

// UpdateTask обрабатывает PATCH /api/v1/tasks/{id}.
// Задачи обновляются без If-Match: побеждает последняя запись,
// завершение задачи не конфликтует с правкой полей.
func (h *GardenHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := RequestUserID(r)

	task, err := h.garden.GetTask(ctx, ownerID, r.PathValue("id"))
	if err != nil {
		h.notFound(w, r, err, "task not found")
		return
	}

	var req api.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, api.ErrCodeValidation, "invalid request body", "")
		return
	}

	if req.Title != nil {
		if *req.Title == "" || len(*req.Title) > maxNameLen {
			sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
				"title must be 1-200 characters", "title")
			return
		}
		task.Title = *req.Title
	}
	if req.Notes != nil {
		task.Notes = *req.Notes
	}
	if req.DueDate != nil {
		if !validISODate(*req.DueDate) {
			sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
				"due_date must be an ISO date (YYYY-MM-DD)", "due_date")
			return
		}
		task.DueDate = *req.DueDate
	}

	now := time.Now().UTC()
	if req.Status != nil {
		switch *req.Status {
		case api.TaskStatusCompleted:
			// повторное завершение идемпотентно, completed_at не сдвигается
			if task.Status != api.TaskStatusCompleted {
				task.Status = api.TaskStatusCompleted
				task.CompletedAt = &now
			}
		case api.TaskStatusPending:
			task.Status = api.TaskStatusPending
			task.CompletedAt = nil
		default:
			sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
				"status must be pending or completed", "status")
			return
		}
	}
	task.UpdatedAt = now

	if err := h.garden.UpdateTask(ctx, ownerID, task); err != nil {
		h.notFound(w, r, err, "task not found")
		return
	}

	respondWithETag(w, r, h.logger, task, http.StatusOK)
}

// DeleteTask обрабатывает DELETE /api/v1/tasks/{id}
func (h *GardenHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.garden.DeleteTask(r.Context(), RequestUserID(r), r.PathValue("id")); err != nil {
		h.notFound(w, r, err, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
