package vmstate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/plantit/plantit/internal/bus"
	"github.com/plantit/plantit/internal/client/cache"
	"github.com/plantit/plantit/internal/client/queue"
	"github.com/plantit/plantit/internal/models"
	"github.com/plantit/plantit/pkg/api"
)

// HomeSnapshot снапшот главного экрана. Команд у него нет:
// dashboard только читает и обновляется после settled сигналов.
type HomeSnapshot struct {
	VM api.HomeVM
	// Stale true если данные пришли из кеша, а не из свежего ответа
	Stale bool
	// PendingMutations количество мутаций, ожидающих replay
	PendingMutations int
}

func cloneHomeSnapshot(s HomeSnapshot) HomeSnapshot {
	s.VM.Villages.Summaries = append([]api.VillageSummary(nil), s.VM.Villages.Summaries...)
	s.VM.Plants.Recent = append([]api.PlantSummary(nil), s.VM.Plants.Recent...)
	return s
}

// HomeStore хранит снапшот главного экрана
type HomeStore struct {
	core   *Store[HomeSnapshot]
	proxy  *cache.Proxy
	queue  *queue.Queue
	logger *slog.Logger
	sub    *bus.Subscription
}

// NewHomeStore создает store главного экрана
func NewHomeStore(proxy *cache.Proxy, q *queue.Queue, settled *bus.Bus[queue.SettledEvent], logger *slog.Logger) *HomeStore {
	s := &HomeStore{
		core:   NewStore(HomeSnapshot{}, cloneHomeSnapshot, logger),
		proxy:  proxy,
		queue:  q,
		logger: logger,
	}
	// Dashboard агрегирует все ресурсы, фильтровать settle нечем
	s.sub = s.core.WatchSettled(settled, func(models.MutationMetadata) bool { return true }, s.fetch)
	return s
}

// Close отписывает store от сигналов очереди
func (s *HomeStore) Close() {
	s.sub.Unsubscribe()
}

// Get возвращает копию текущего снапшота
func (s *HomeStore) Get() HomeSnapshot {
	return s.core.Get()
}

// Subscribe подписывает на изменения снапшота
func (s *HomeStore) Subscribe(fn func(HomeSnapshot)) *bus.Subscription {
	return s.core.Subscribe(fn)
}

// Load загружает view-model главного экрана через кеширующий прокси
func (s *HomeStore) Load(ctx context.Context) error {
	snap, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.core.Replace(snap)
	return nil
}

func (s *HomeStore) fetch(ctx context.Context) (HomeSnapshot, error) {
	res, err := s.proxy.Fetch(ctx, "/api/v1/vm/home")
	if err != nil {
		return HomeSnapshot{}, err
	}

	var vm api.HomeVM
	if err := json.Unmarshal(res.Body, &vm); err != nil {
		return HomeSnapshot{}, fmt.Errorf("failed to decode home view-model: %w", err)
	}

	pending, err := s.queue.PendingCount(ctx)
	if err != nil {
		return HomeSnapshot{}, err
	}

	return HomeSnapshot{
		VM:               vm,
		Stale:            res.FromCache,
		PendingMutations: pending,
	}, nil
}
