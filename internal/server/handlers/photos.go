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

// AttachPhoto обрабатывает POST /api/v1/photos.
// Регистрирует метаданные фотографии, байты файла загружаются
// в media-хранилище отдельно.
func (h *GardenHandler) AttachPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.PhotoCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, api.ErrCodeValidation, "invalid request body", "")
		return
	}
	if req.PlantID == "" {
		sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
			"plant_id is required", "plant_id")
		return
	}
	if req.FileName == "" {
		sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
			"file_name is required", "file_name")
		return
	}

	photo := &api.Photo{
		ID:        uuid.New().String(),
		PlantID:   req.PlantID,
		FileName:  req.FileName,
		AltText:   req.AltText,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.garden.CreatePhoto(ctx, RequestUserID(r), photo); err != nil {
		if errors.Is(err, storage.ErrPlantNotFound) {
			sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
				"plant does not exist", "plant_id")
			return
		}
		h.logger.ErrorContext(ctx, "failed to attach photo", "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
		return
	}

	respondWithETag(w, r, h.logger, photo, http.StatusCreated)
}

// DeletePhoto обрабатывает DELETE /api/v1/photos/{id}
func (h *GardenHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	if err := h.garden.DeletePhoto(r.Context(), RequestUserID(r), r.PathValue("id")); err != nil {
		h.notFound(w, r, err, "photo not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
