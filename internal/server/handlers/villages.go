package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/plantit/plantit/internal/server/storage"
	"github.com/plantit/plantit/pkg/api"
)

const maxNameLen = 200

// GardenHandler обрабатывает CRUD ресурсов сада:
// villages, растения, задачи и записи о фото
type GardenHandler struct {
	logger *slog.Logger
	garden storage.GardenStorage
}

// NewGardenHandler создает handler ресурсов сада
func NewGardenHandler(logger *slog.Logger, garden storage.GardenStorage) *GardenHandler {
	return &GardenHandler{
		logger: logger,
		garden: garden,
	}
}

// notFound отвечает envelope-ом NOT_FOUND для известных sentinel ошибок,
// прочее логируется и уходит как 500
func (h *GardenHandler) notFound(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, storage.ErrVillageNotFound),
		errors.Is(err, storage.ErrPlantNotFound),
		errors.Is(err, storage.ErrTaskNotFound),
		errors.Is(err, storage.ErrPhotoNotFound):
		sendError(w, h.logger, http.StatusNotFound, api.ErrCodeNotFound, message, "")
	default:
		h.logger.ErrorContext(r.Context(), "storage error", "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
	}
}

// CreateVillage обрабатывает POST /api/v1/villages
func (h *GardenHandler) CreateVillage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.VillageCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, api.ErrCodeValidation, "invalid request body", "")
		return
	}
	if req.Name == "" || len(req.Name) > maxNameLen {
		sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
			"name must be 1-200 characters", "name")
		return
	}

	now := time.Now().UTC()
	village := &api.Village{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.garden.CreateVillage(ctx, RequestUserID(r), village); err != nil {
		h.logger.ErrorContext(ctx, "failed to create village", "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
		return
	}

	respondWithETag(w, r, h.logger, village, http.StatusCreated)
}

// GetVillage обрабатывает GET /api/v1/villages/{id}
func (h *GardenHandler) GetVillage(w http.ResponseWriter, r *http.Request) {
	village, err := h.garden.GetVillage(r.Context(), RequestUserID(r), r.PathValue("id"))
	if err != nil {
		h.notFound(w, r, err, "village not found")
		return
	}
	respondWithETag(w, r, h.logger, village, http.StatusOK)
}

// ListVillages обрабатывает GET /api/v1/villages
func (h *GardenHandler) ListVillages(w http.ResponseWriter, r *http.Request) {
	villages, err := h.garden.ListVillages(r.Context(), RequestUserID(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list villages", "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
		return
	}
	if villages == nil {
		villages = []*api.Village{}
	}
	respondWithETag(w, r, h.logger, villages, http.StatusOK)
}

// UpdateVillage обрабатывает PATCH /api/v1/villages/{id}.
// If-Match со staleness token, снятым при загрузке, ловит конфликт.
func (h *GardenHandler) UpdateVillage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := RequestUserID(r)

	village, err := h.garden.GetVillage(ctx, ownerID, r.PathValue("id"))
	if err != nil {
		h.notFound(w, r, err, "village not found")
		return
	}
	if !checkIfMatch(w, r, h.logger, village) {
		return
	}

	var req api.VillageUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, api.ErrCodeValidation, "invalid request body", "")
		return
	}

	if req.Name != nil {
		if *req.Name == "" || len(*req.Name) > maxNameLen {
			sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
				"name must be 1-200 characters", "name")
			return
		}
		village.Name = *req.Name
	}
	if req.Location != nil {
		village.Location = *req.Location
	}
	if req.Description != nil {
		village.Description = *req.Description
	}
	village.UpdatedAt = time.Now().UTC()

	if err := h.garden.UpdateVillage(ctx, ownerID, village); err != nil {
		h.notFound(w, r, err, "village not found")
		return
	}

	respondWithETag(w, r, h.logger, village, http.StatusOK)
}

// DeleteVillage обрабатывает DELETE /api/v1/villages/{id}
func (h *GardenHandler) DeleteVillage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := RequestUserID(r)

	village, err := h.garden.GetVillage(ctx, ownerID, r.PathValue("id"))
	if err != nil {
		h.notFound(w, r, err, "village not found")
		return
	}
	if !checkIfMatch(w, r, h.logger, village) {
		return
	}

	if err := h.garden.DeleteVillage(ctx, ownerID, village.ID); err != nil {
		h.notFound(w, r, err, "village not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
