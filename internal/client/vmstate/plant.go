package vmstate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/plantit/plantit/internal/bus"
	"github.com/plantit/plantit/internal/client/cache"
	"github.com/plantit/plantit/internal/client/queue"
	"github.com/plantit/plantit/internal/models"
	"github.com/plantit/plantit/pkg/api"
)

// PhotoItem запись о фотографии на экране plant detail
type PhotoItem struct {
	api.Photo
	Pending bool
}

// PlantSnapshot снапшот экрана plant detail
type PlantSnapshot struct {
	Plant      api.Plant
	Village    api.Village
	Tasks      []api.Task
	Photos     []PhotoItem
	OpenTasks  int
	PhotoCount int
	Token      string
	// Pending локальные изменения растения еще не на сервере
	Pending bool
	// Deleted optimistic удаление: экран закрывается сразу,
	// DELETE доезжает до сервера когда сможет
	Deleted bool
}

func clonePlantSnapshot(s PlantSnapshot) PlantSnapshot {
	s.Plant.Tags = append([]string(nil), s.Plant.Tags...)
	s.Tasks = append([]api.Task(nil), s.Tasks...)
	s.Photos = append([]PhotoItem(nil), s.Photos...)
	return s
}

// PlantStore хранит снапшот экрана plant detail
type PlantStore struct {
	plantID string
	core    *Store[PlantSnapshot]
	proxy   *cache.Proxy
	queue   *queue.Queue
	logger  *slog.Logger
	sub     *bus.Subscription
}

// NewPlantStore создает store экрана plant detail
func NewPlantStore(plantID string, proxy *cache.Proxy, q *queue.Queue, settled *bus.Bus[queue.SettledEvent], logger *slog.Logger) *PlantStore {
	s := &PlantStore{
		plantID: plantID,
		core:    NewStore(PlantSnapshot{}, clonePlantSnapshot, logger),
		proxy:   proxy,
		queue:   q,
		logger:  logger,
	}
	s.sub = s.core.WatchSettled(settled, s.relevantSettle, s.fetch)
	return s
}

// relevantSettle отбирает settled сигналы, касающиеся этого экрана.
// В метаданных фото и задач нет id растения, поэтому такие settle
// принимаются все: лишний refresh дешевле пропущенного.
func (s *PlantStore) relevantSettle(md models.MutationMetadata) bool {
	switch md.Resource {
	case "plant":
		return md.ResourceID == s.plantID
	case "photo", "task":
		return true
	}
	return false
}

// Close отписывает store от сигналов очереди
func (s *PlantStore) Close() {
	s.sub.Unsubscribe()
}

// Get возвращает копию текущего снапшота
func (s *PlantStore) Get() PlantSnapshot {
	return s.core.Get()
}

// Subscribe подписывает на изменения снапшота
func (s *PlantStore) Subscribe(fn func(PlantSnapshot)) *bus.Subscription {
	return s.core.Subscribe(fn)
}

// Load загружает view-model через кеширующий прокси
func (s *PlantStore) Load(ctx context.Context) error {
	snap, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.core.Replace(snap)
	return nil
}

func (s *PlantStore) fetch(ctx context.Context) (PlantSnapshot, error) {
	res, err := s.proxy.Fetch(ctx, "/api/v1/vm/plant/"+s.plantID)
	if err != nil {
		return PlantSnapshot{}, err
	}

	var vm api.PlantVM
	if err := json.Unmarshal(res.Body, &vm); err != nil {
		return PlantSnapshot{}, fmt.Errorf("failed to decode plant view-model: %w", err)
	}

	snap := PlantSnapshot{
		Plant:      vm.Plant,
		Village:    vm.Village,
		Tasks:      vm.Tasks,
		OpenTasks:  vm.OpenTasks,
		PhotoCount: vm.PhotoCount,
		Token:      vm.PlantETag,
	}
	for _, p := range vm.Photos {
		snap.Photos = append(snap.Photos, PhotoItem{Photo: p})
	}

	if err := s.overlayPending(ctx, &snap); err != nil {
		return PlantSnapshot{}, err
	}
	return snap, nil
}

func (s *PlantStore) overlayPending(ctx context.Context, snap *PlantSnapshot) error {
	entries, err := s.queue.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending mutations: %w", err)
	}

	for _, m := range entries {
		if m.Status != models.MutationStatusPending {
			continue
		}
		switch m.Metadata.Action {
		case "plant.update":
			if m.Metadata.ResourceID == s.plantID {
				snap.Pending = true
			}
		case "plant.delete":
			if m.Metadata.ResourceID == s.plantID {
				snap.Deleted = true
				snap.Pending = true
			}
		case "photo.attach":
			// Optimistic payload несет ту же запись, что была наложена
			// на экран при AttachPhoto, включая временный id
			var photo api.Photo
			if err := json.Unmarshal(m.OptimisticPayload, &photo); err != nil || photo.PlantID != s.plantID {
				continue
			}
			snap.Photos = append(snap.Photos, PhotoItem{Photo: photo, Pending: true})
			snap.PhotoCount++
		}
	}
	return nil
}

// UpdatePlant применяет частичное обновление растения optimistic
func (s *PlantStore) UpdatePlant(ctx context.Context, upd api.PlantUpdate) error {
	body, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("failed to encode plant update: %w", err)
	}

	snap := s.core.Get()
	token := s.core.Apply(func(v *PlantSnapshot) {
		if upd.Name != nil {
			v.Plant.Name = *upd.Name
		}
		if upd.Species != nil {
			v.Plant.Species = *upd.Species
		}
		if upd.Variety != nil {
			v.Plant.Variety = *upd.Variety
		}
		if upd.Kind != nil {
			v.Plant.Kind = *upd.Kind
		}
		if upd.Notes != nil {
			v.Plant.Notes = *upd.Notes
		}
		if upd.Tags != nil {
			v.Plant.Tags = append([]string(nil), *upd.Tags...)
		}
		v.Pending = true
	})

	m := queue.NewMutation(http.MethodPatch, "/api/v1/plants/"+s.plantID, body, nil,
		models.MutationMetadata{Action: "plant.update", Resource: "plant", ResourceID: s.plantID},
		snap.Token)

	res, err := s.queue.EnqueueOrSend(ctx, m)
	if err != nil {
		if rbErr := s.core.Rollback(token); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if res.Queued {
		return s.core.Commit(token, nil)
	}

	var plant api.Plant
	if err := json.Unmarshal(res.Response.Body, &plant); err != nil {
		return fmt.Errorf("failed to decode plant: %w", err)
	}
	return s.core.Commit(token, func(v *PlantSnapshot) {
		v.Plant = plant
		v.Pending = false
		v.Token = res.Response.ETag
	})
}

// DeletePlant удаляет растение optimistic: снапшот сразу помечается
// Deleted, DELETE отправляется или становится в очередь
func (s *PlantStore) DeletePlant(ctx context.Context) error {
	snap := s.core.Get()
	token := s.core.Apply(func(v *PlantSnapshot) {
		v.Deleted = true
		v.Pending = true
	})

	m := queue.NewMutation(http.MethodDelete, "/api/v1/plants/"+s.plantID, nil, nil,
		models.MutationMetadata{Action: "plant.delete", Resource: "plant", ResourceID: s.plantID},
		snap.Token)

	res, err := s.queue.EnqueueOrSend(ctx, m)
	if err != nil {
		if rbErr := s.core.Rollback(token); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if res.Queued {
		return s.core.Commit(token, nil)
	}
	return s.core.Commit(token, func(v *PlantSnapshot) {
		v.Pending = false
	})
}

// AttachPhoto добавляет запись о фотографии optimistic
func (s *PlantStore) AttachPhoto(ctx context.Context, in api.PhotoCreate) (string, error) {
	in.PlantID = s.plantID
	body, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to encode photo: %w", err)
	}

	tmpID := "tmp-" + uuid.New().String()
	photo := PhotoItem{
		Photo: api.Photo{
			ID:       tmpID,
			PlantID:  s.plantID,
			FileName: in.FileName,
			AltText:  in.AltText,
		},
		Pending: true,
	}
	optimistic, err := json.Marshal(photo.Photo)
	if err != nil {
		return "", fmt.Errorf("failed to encode optimistic photo: %w", err)
	}

	token := s.core.Apply(func(v *PlantSnapshot) {
		v.Photos = append(v.Photos, photo)
		v.PhotoCount++
	})

	m := queue.NewMutation(http.MethodPost, "/api/v1/photos", body, optimistic,
		models.MutationMetadata{Action: "photo.attach", Resource: "photo", ResourceID: tmpID}, "")

	res, err := s.queue.EnqueueOrSend(ctx, m)
	if err != nil {
		if rbErr := s.core.Rollback(token); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return "", err
	}
	if res.Queued {
		return tmpID, s.core.Commit(token, nil)
	}

	var created api.Photo
	if err := json.Unmarshal(res.Response.Body, &created); err != nil {
		return "", fmt.Errorf("failed to decode photo: %w", err)
	}
	err = s.core.Commit(token, func(v *PlantSnapshot) {
		for i := range v.Photos {
			if v.Photos[i].ID == tmpID {
				v.Photos[i].Photo = created
				v.Photos[i].Pending = false
				break
			}
		}
	})
	return created.ID, err
}
