package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/plantit/plantit/internal/etag"
	"github.com/plantit/plantit/internal/server/storage"
	"github.com/plantit/plantit/pkg/api"
)

const recentPlantsLimit = 5

// VMHandler собирает view-model payload-ы для экранов клиента.
// Каждый ответ уходит с ETag, клиент ревалидирует через If-None-Match.
type VMHandler struct {
	logger *slog.Logger
	garden storage.GardenStorage
	now    func() time.Time
}

// NewVMHandler создает handler view-model endpoint-ов
func NewVMHandler(logger *slog.Logger, garden storage.GardenStorage) *VMHandler {
	return &VMHandler{
		logger: logger,
		garden: garden,
		now:    time.Now,
	}
}

func (h *VMHandler) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.logger.ErrorContext(r.Context(), msg, "error", err)
	sendError(w, h.logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
}

// Home обрабатывает GET /api/v1/vm/home
func (h *VMHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := RequestUserID(r)

	summaries, err := h.villageSummaries(ctx, ownerID)
	if err != nil {
		h.internalError(w, r, err, "failed to build village summaries")
		return
	}

	recent, err := h.garden.ListRecentPlants(ctx, ownerID, recentPlantsLimit)
	if err != nil {
		h.internalError(w, r, err, "failed to list recent plants")
		return
	}
	total, err := h.garden.CountPlants(ctx, ownerID)
	if err != nil {
		h.internalError(w, r, err, "failed to count plants")
		return
	}
	tasks, err := h.garden.ListTasks(ctx, ownerID)
	if err != nil {
		h.internalError(w, r, err, "failed to list tasks")
		return
	}

	var vm api.HomeVM
	vm.Villages.Summaries = summaries
	vm.Villages.Total = len(summaries)
	vm.Plants.Recent = make([]api.PlantSummary, 0, len(recent))
	for _, p := range recent {
		vm.Plants.Recent = append(vm.Plants.Recent, api.PlantSummary{
			ID:        p.ID,
			VillageID: p.VillageID,
			Name:      p.Name,
			Species:   p.Species,
		})
	}
	vm.Plants.Total = total
	vm.Tasks = h.tasksOverview(tasks)

	respondWithETag(w, r, h.logger, vm, http.StatusOK)
}

// Villages обрабатывает GET /api/v1/vm/villages
func (h *VMHandler) Villages(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.villageSummaries(r.Context(), RequestUserID(r))
	if err != nil {
		h.internalError(w, r, err, "failed to build village summaries")
		return
	}
	respondWithETag(w, r, h.logger, api.VillagesVM{Villages: summaries}, http.StatusOK)
}

// VillageDetail обрабатывает GET /api/v1/vm/village/{id}
func (h *VMHandler) VillageDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := RequestUserID(r)

	village, err := h.garden.GetVillage(ctx, ownerID, r.PathValue("id"))
	if err != nil {
		if errorIsNotFound(err) {
			sendError(w, h.logger, http.StatusNotFound, api.ErrCodeNotFound, "village not found", "")
			return
		}
		h.internalError(w, r, err, "failed to get village")
		return
	}

	plants, err := h.garden.ListPlantsByVillage(ctx, ownerID, village.ID)
	if err != nil {
		h.internalError(w, r, err, "failed to list plants")
		return
	}

	cards := make([]api.PlantCard, 0, len(plants))
	for _, p := range plants {
		card := api.PlantCard{
			ID:      p.ID,
			Name:    p.Name,
			Species: p.Species,
			Notes:   p.Notes,
			Tags:    p.Tags,
		}
		if card.Tags == nil {
			card.Tags = []string{}
		}
		photos, err := h.garden.ListPhotosByPlant(ctx, ownerID, p.ID)
		if err != nil {
			h.internalError(w, r, err, "failed to list photos")
			return
		}
		if len(photos) > 0 {
			card.HasPhoto = true
			card.ThumbnailURL = mediaURL(photos[0].FileName)
		}
		cards = append(cards, card)
	}

	recordToken, err := etag.Compute(village)
	if err != nil {
		h.internalError(w, r, err, "failed to compute record etag")
		return
	}

	vm := api.VillageVM{
		Village:     *village,
		VillageETag: recordToken,
		Plants:      cards,
	}
	respondWithETag(w, r, h.logger, vm, http.StatusOK)
}

// PlantDetail обрабатывает GET /api/v1/vm/plant/{id}
func (h *VMHandler) PlantDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := RequestUserID(r)

	plant, err := h.garden.GetPlant(ctx, ownerID, r.PathValue("id"))
	if err != nil {
		if errorIsNotFound(err) {
			sendError(w, h.logger, http.StatusNotFound, api.ErrCodeNotFound, "plant not found", "")
			return
		}
		h.internalError(w, r, err, "failed to get plant")
		return
	}

	village, err := h.garden.GetVillage(ctx, ownerID, plant.VillageID)
	if err != nil {
		h.internalError(w, r, err, "failed to get parent village")
		return
	}
	tasks, err := h.garden.ListTasksByPlant(ctx, ownerID, plant.ID)
	if err != nil {
		h.internalError(w, r, err, "failed to list tasks")
		return
	}
	photos, err := h.garden.ListPhotosByPlant(ctx, ownerID, plant.ID)
	if err != nil {
		h.internalError(w, r, err, "failed to list photos")
		return
	}

	open := 0
	taskVals := make([]api.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == api.TaskStatusPending {
			open++
		}
		taskVals = append(taskVals, *t)
	}
	photoVals := make([]api.Photo, 0, len(photos))
	for _, p := range photos {
		photoVals = append(photoVals, *p)
	}

	recordToken, err := etag.Compute(plant)
	if err != nil {
		h.internalError(w, r, err, "failed to compute record etag")
		return
	}

	vm := api.PlantVM{
		Plant:      *plant,
		PlantETag:  recordToken,
		Village:    *village,
		Tasks:      taskVals,
		Photos:     photoVals,
		OpenTasks:  open,
		PhotoCount: len(photoVals),
	}
	respondWithETag(w, r, h.logger, vm, http.StatusOK)
}

// Tasks обрабатывает GET /api/v1/vm/tasks
func (h *VMHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.garden.ListTasks(r.Context(), RequestUserID(r))
	if err != nil {
		h.internalError(w, r, err, "failed to list tasks")
		return
	}

	today := h.now().UTC().Format("2006-01-02")
	vm := api.TasksVM{
		Overdue:  []api.Task{},
		Today:    []api.Task{},
		Upcoming: []api.Task{},
	}
	for _, t := range tasks {
		if t.Status != api.TaskStatusPending {
			continue
		}
		// ISO даты сравниваются лексикографически
		switch {
		case t.DueDate < today:
			vm.Overdue = append(vm.Overdue, *t)
		case t.DueDate == today:
			vm.Today = append(vm.Today, *t)
		default:
			vm.Upcoming = append(vm.Upcoming, *t)
		}
	}

	respondWithETag(w, r, h.logger, vm, http.StatusOK)
}

func (h *VMHandler) villageSummaries(ctx context.Context, ownerID string) ([]api.VillageSummary, error) {
	villages, err := h.garden.ListVillages(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list villages: %w", err)
	}

	summaries := make([]api.VillageSummary, 0, len(villages))
	for _, v := range villages {
		plants, err := h.garden.ListPlantsByVillage(ctx, ownerID, v.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list plants of village %s: %w", v.ID, err)
		}
		summaries = append(summaries, api.VillageSummary{
			ID:         v.ID,
			Name:       v.Name,
			Location:   v.Location,
			PlantCount: len(plants),
		})
	}
	return summaries, nil
}

func (h *VMHandler) tasksOverview(tasks []*api.Task) api.TasksOverview {
	today := h.now().UTC().Format("2006-01-02")
	var overview api.TasksOverview
	for _, t := range tasks {
		if t.Status == api.TaskStatusCompleted {
			overview.Completed++
			continue
		}
		switch {
		case t.DueDate < today:
			overview.Overdue++
		case t.DueDate == today:
			overview.DueToday++
		default:
			overview.Upcoming++
		}
	}
	return overview
}

func mediaURL(fileName string) string {
	return "/media/" + fileName
}
