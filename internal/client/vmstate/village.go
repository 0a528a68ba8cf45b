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

// PlantItem карточка растения на экране village detail.
// Pending помечает локальные данные, еще не подтвержденные сервером.
type PlantItem struct {
	api.PlantCard
	Pending bool
}

// VillageSnapshot снапшот экрана village detail
type VillageSnapshot struct {
	Village api.Village
	Plants  []PlantItem
	// Token staleness token записи village на момент загрузки
	Token string
	// Pending локальное изменение village еще не на сервере
	Pending bool
}

func cloneVillageSnapshot(s VillageSnapshot) VillageSnapshot {
	plants := make([]PlantItem, len(s.Plants))
	copy(plants, s.Plants)
	for i := range plants {
		plants[i].Tags = append([]string(nil), plants[i].Tags...)
	}
	s.Plants = plants
	return s
}

// VillageStore хранит снапшот экрана village detail и проводит
// optimistic команды через очередь мутаций
type VillageStore struct {
	villageID string
	core      *Store[VillageSnapshot]
	proxy     *cache.Proxy
	queue     *queue.Queue
	logger    *slog.Logger
	sub       *bus.Subscription
}

// NewVillageStore создает store экрана village detail
// и подписывает его на settled сигналы очереди
func NewVillageStore(villageID string, proxy *cache.Proxy, q *queue.Queue, settled *bus.Bus[queue.SettledEvent], logger *slog.Logger) *VillageStore {
	s := &VillageStore{
		villageID: villageID,
		core:      NewStore(VillageSnapshot{}, cloneVillageSnapshot, logger),
		proxy:     proxy,
		queue:     q,
		logger:    logger,
	}
	s.sub = s.core.WatchSettled(settled, s.relevantSettle, s.fetch)
	return s
}

// relevantSettle отбирает settled сигналы, касающиеся этого экрана:
// сама village по id плюс любые растения. В метаданных растения нет
// id его village, поэтому plant settle принимаются все.
func (s *VillageStore) relevantSettle(md models.MutationMetadata) bool {
	if md.Resource == "village" {
		return md.ResourceID == s.villageID
	}
	return md.Resource == "plant"
}

// Close отписывает store от сигналов очереди
func (s *VillageStore) Close() {
	s.sub.Unsubscribe()
}

// Get возвращает копию текущего снапшота
func (s *VillageStore) Get() VillageSnapshot {
	return s.core.Get()
}

// Subscribe подписывает на изменения снапшота
func (s *VillageStore) Subscribe(fn func(VillageSnapshot)) *bus.Subscription {
	return s.core.Subscribe(fn)
}

// Load загружает view-model через кеширующий прокси
func (s *VillageStore) Load(ctx context.Context) error {
	snap, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.core.Replace(snap)
	return nil
}

func (s *VillageStore) vmPath() string {
	return "/api/v1/vm/village/" + s.villageID
}

// fetch собирает снапшот: view-model с сервера (или из кеша)
// плюс overlay из pending мутаций очереди
func (s *VillageStore) fetch(ctx context.Context) (VillageSnapshot, error) {
	res, err := s.proxy.Fetch(ctx, s.vmPath())
	if err != nil {
		return VillageSnapshot{}, err
	}

	var vm api.VillageVM
	if err := json.Unmarshal(res.Body, &vm); err != nil {
		return VillageSnapshot{}, fmt.Errorf("failed to decode village view-model: %w", err)
	}

	snap := VillageSnapshot{Village: vm.Village, Token: vm.VillageETag}
	for _, p := range vm.Plants {
		snap.Plants = append(snap.Plants, PlantItem{PlantCard: p})
	}

	if err := s.overlayPending(ctx, &snap); err != nil {
		return VillageSnapshot{}, err
	}
	return snap, nil
}

// overlayPending накладывает на серверный снапшот мутации,
// которые еще ждут replay: пользователь не должен терять
// свои offline изменения при каждом refresh
func (s *VillageStore) overlayPending(ctx context.Context, snap *VillageSnapshot) error {
	entries, err := s.queue.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending mutations: %w", err)
	}

	for _, m := range entries {
		if m.Status != models.MutationStatusPending {
			continue
		}
		switch {
		case m.Metadata.Resource == "village" && m.Metadata.ResourceID == s.villageID:
			snap.Pending = true
			var upd api.VillageUpdate
			if err := json.Unmarshal(m.Body, &upd); err != nil {
				continue
			}
			applyVillageUpdate(&snap.Village, upd)

		case m.Metadata.Action == "plant.create":
			// Принадлежность village видна только в теле запроса,
			// сама карточка восстанавливается из optimistic payload
			var in api.PlantCreate
			if err := json.Unmarshal(m.Body, &in); err != nil || in.VillageID != s.villageID {
				continue
			}
			var card api.PlantCard
			if err := json.Unmarshal(m.OptimisticPayload, &card); err != nil {
				continue
			}
			snap.Plants = append(snap.Plants, PlantItem{PlantCard: card, Pending: true})

		case m.Metadata.Action == "plant.delete":
			for i, p := range snap.Plants {
				if p.ID == m.Metadata.ResourceID {
					snap.Plants = append(snap.Plants[:i], snap.Plants[i+1:]...)
					break
				}
			}

		case m.Metadata.Resource == "plant":
			for i := range snap.Plants {
				if snap.Plants[i].ID == m.Metadata.ResourceID {
					snap.Plants[i].Pending = true
				}
			}
		}
	}
	return nil
}

func applyVillageUpdate(v *api.Village, upd api.VillageUpdate) {
	if upd.Name != nil {
		v.Name = *upd.Name
	}
	if upd.Location != nil {
		v.Location = *upd.Location
	}
	if upd.Description != nil {
		v.Description = *upd.Description
	}
}

// UpdateVillage применяет частичное обновление village optimistic:
// экран меняется сразу, мутация уходит на сервер или в очередь
func (s *VillageStore) UpdateVillage(ctx context.Context, upd api.VillageUpdate) error {
	body, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("failed to encode village update: %w", err)
	}

	snap := s.core.Get()
	token := s.core.Apply(func(v *VillageSnapshot) {
		applyVillageUpdate(&v.Village, upd)
		v.Pending = true
	})

	m := queue.NewMutation(http.MethodPatch, "/api/v1/villages/"+s.villageID, body, nil,
		models.MutationMetadata{Action: "village.update", Resource: "village", ResourceID: s.villageID},
		snap.Token)

	res, err := s.queue.EnqueueOrSend(ctx, m)
	if err != nil {
		if rbErr := s.core.Rollback(token); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if res.Queued {
		// Изменение остается на экране с тегом Pending до replay
		return s.core.Commit(token, nil)
	}

	var village api.Village
	if err := json.Unmarshal(res.Response.Body, &village); err != nil {
		return fmt.Errorf("failed to decode village: %w", err)
	}
	return s.core.Commit(token, func(v *VillageSnapshot) {
		v.Village = village
		v.Pending = false
		v.Token = res.Response.ETag
	})
}

// CreatePlant создает растение optimistic: карточка появляется сразу
// с временным id, после подтверждения сервером id подменяется настоящим.
// Возвращает id карточки: временный если мутация ушла в очередь.
func (s *VillageStore) CreatePlant(ctx context.Context, in api.PlantCreate) (string, error) {
	in.VillageID = s.villageID
	body, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to encode plant: %w", err)
	}

	tmpID := "tmp-" + uuid.New().String()
	card := PlantItem{
		PlantCard: api.PlantCard{
			ID:      tmpID,
			Name:    in.Name,
			Species: in.Species,
			Notes:   in.Notes,
			Tags:    in.Tags,
		},
		Pending: true,
	}
	optimistic, err := json.Marshal(card.PlantCard)
	if err != nil {
		return "", fmt.Errorf("failed to encode optimistic card: %w", err)
	}

	token := s.core.Apply(func(v *VillageSnapshot) {
		v.Plants = append(v.Plants, card)
	})

	m := queue.NewMutation(http.MethodPost, "/api/v1/plants", body, optimistic,
		models.MutationMetadata{Action: "plant.create", Resource: "plant", ResourceID: tmpID}, "")

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

	var plant api.Plant
	if err := json.Unmarshal(res.Response.Body, &plant); err != nil {
		return "", fmt.Errorf("failed to decode plant: %w", err)
	}
	// Подмена временного id настоящим серверным
	err = s.core.Commit(token, func(v *VillageSnapshot) {
		for i := range v.Plants {
			if v.Plants[i].ID == tmpID {
				v.Plants[i].ID = plant.ID
				v.Plants[i].Pending = false
				break
			}
		}
	})
	return plant.ID, err
}
