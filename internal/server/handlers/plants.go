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

func validPlantKind(kind string) bool {
	switch kind {
	case "", api.PlantKindVegetable, api.PlantKindHerb, api.PlantKindFlower,
		api.PlantKindSucculent, api.PlantKindTree:
		return true
	}
	return false
}

// CreatePlant обрабатывает POST /api/v1/plants
func (h *GardenHandler) CreatePlant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.PlantCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, api.ErrCodeValidation, "invalid request body", "")
		return
	}
	if req.Name == "" || len(req.Name) > maxNameLen {
		sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
			"name must be 1-200 characters", "name")
		return
	}
	if req.VillageID == "" {
		sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
			"village_id is required", "village_id")
		return
	}
	if !validPlantKind(req.Kind) {
		sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
			"unknown plant kind", "kind")
		return
	}

	now := time.Now().UTC()
	plant := &api.Plant{
		ID:         uuid.New().String(),
		VillageID:  req.VillageID,
		Name:       req.Name,
		Species:    req.Species,
		Variety:    req.Variety,
		Kind:       req.Kind,
		Notes:      req.Notes,
		AcquiredOn: req.AcquiredOn,
		Tags:       req.Tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if plant.Tags == nil {
		plant.Tags = []string{}
	}

	if err := h.garden.CreatePlant(ctx, RequestUserID(r), plant); err != nil {
		if errors.Is(err, storage.ErrVillageNotFound) {
			sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
				"village does not exist", "village_id")
			return
		}
		h.logger.ErrorContext(ctx, "failed to create plant", "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
		return
	}

	respondWithETag(w, r, h.logger, plant, http.StatusCreated)
}

// GetPlant обрабатывает GET /api/v1/plants/{id}
func (h *GardenHandler) GetPlant(w http.ResponseWriter, r *http.Request) {
	plant, err := h.garden.GetPlant(r.Context(), RequestUserID(r), r.PathValue("id"))
	if err != nil {
		h.notFound(w, r, err, "plant not found")
		return
	}
	respondWithETag(w, r, h.logger, plant, http.StatusOK)
}

// UpdatePlant обрабатывает PATCH /api/v1/plants/{id}
func (h *GardenHandler) UpdatePlant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := RequestUserID(r)

	plant, err := h.garden.GetPlant(ctx, ownerID, r.PathValue("id"))
	if err != nil {
		h.notFound(w, r, err, "plant not found")
		return
	}
	if !checkIfMatch(w, r, h.logger, plant) {
		return
	}

	var req api.PlantUpdate
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
		plant.Name = *req.Name
	}
	if req.Species != nil {
		plant.Species = *req.Species
	}
	if req.Variety != nil {
		plant.Variety = *req.Variety
	}
	if req.Kind != nil {
		if !validPlantKind(*req.Kind) {
			sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
				"unknown plant kind", "kind")
			return
		}
		plant.Kind = *req.Kind
	}
	if req.Notes != nil {
		plant.Notes = *req.Notes
	}
	if req.Tags != nil {
		plant.Tags = *req.Tags
	}
	plant.UpdatedAt = time.Now().UTC()

	if err := h.garden.UpdatePlant(ctx, ownerID, plant); err != nil {
		h.notFound(w, r, err, "plant not found")
		return
	}

	respondWithETag(w, r, h.logger, plant, http.StatusOK)
}

// DeletePlant обрабатывает DELETE /api/v1/plants/{id}
func (h *GardenHandler) DeletePlant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := RequestUserID(r)

	plant, err := h.garden.GetPlant(ctx, ownerID, r.PathValue("id"))
	if err != nil {
		h.notFound(w, r, err, "plant not found")
		return
	}
	if !checkIfMatch(w, r, h.logger, plant) {
		return
	}

	if err := h.garden.DeletePlant(ctx, ownerID, plant.ID); err != nil {
		h.notFound(w, r, err, "plant not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
