// Package vmstate хранит снапшоты экранных view-model и согласует
// optimistic изменения с авторитетными ответами сервера.
package vmstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plantit/plantit/internal/bus"
	"github.com/plantit/plantit/internal/client/queue"
	"github.com/plantit/plantit/internal/models"
)

// ErrUnknownToken возвращается при Commit/Rollback с неизвестным токеном
var ErrUnknownToken = errors.New("unknown patch token")

// settleDebounce пауза перед refresh после settled сигнала:
// пачка переигранных мутаций дает один refresh, а не шторм запросов
const settleDebounce = 250 * time.Millisecond

// seenRetention сколько помнить id уже обработанных settled сигналов.
// Дубликат приходит в пределах одного replay прохода, минуты хватает
// с запасом, а память не растет бесконечно.
const seenRetention = time.Minute

// openPatch запись журнала незавершенных optimistic патчей:
// pre-patch копия плюс сам патч для переигрывания при откате соседа
type openPatch[T any] struct {
	token string
	base  T
	patch func(*T)
}

// Store generic хранилище снапшота одного экрана.
// Все мутации снапшота проходят через Apply/Commit/Rollback,
// подписчики получают независимые копии.
type Store[T any] struct {
	mu      sync.Mutex
	current T
	clone   func(T) T
	// open журнал in-flight патчей в порядке наложения
	open    []openPatch[T]
	updates *bus.Bus[T]
	// seen подавляет повторные settled сигналы по id мутации
	seen   map[string]time.Time
	timer  *time.Timer
	logger *slog.Logger
}

// NewStore создает хранилище снапшота. clone обязан возвращать
// глубокую копию: от этого зависит точность Rollback.
func NewStore[T any](initial T, clone func(T) T, logger *slog.Logger) *Store[T] {
	return &Store[T]{
		current: clone(initial),
		clone:   clone,
		updates: bus.New[T](),
		seen:    make(map[string]time.Time),
		logger:  logger,
	}
}

// Get возвращает копию текущего снапшота
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone(s.current)
}

// Subscribe подписывает на изменения снапшота.
// Каждый подписчик получает собственную копию.
func (s *Store[T]) Subscribe(fn func(T)) *bus.Subscription {
	return s.updates.Subscribe(fn)
}

// Apply накладывает optimistic патч и возвращает токен для
// последующего Commit или Rollback. Патчи не сериализуются:
// несколько незавершенных патчей могут жить одновременно.
func (s *Store[T]) Apply(patch func(*T)) string {
	s.mu.Lock()
	token := uuid.New().String()
	s.open = append(s.open, openPatch[T]{
		token: token,
		base:  s.clone(s.current),
		patch: patch,
	})
	patch(&s.current)
	snapshot := s.clone(s.current)
	s.mu.Unlock()

	s.updates.Publish(snapshot)
	return token
}

func (s *Store[T]) findOpen(token string) int {
	for i := range s.open {
		if s.open[i].token == token {
			return i
		}
	}
	return -1
}

// Commit подтверждает патч. merge, если задан, накладывает
// авторитетный результат сервера поверх optimistic состояния.
func (s *Store[T]) Commit(token string, merge func(*T)) error {
	s.mu.Lock()
	i := s.findOpen(token)
	if i < 0 {
		s.mu.Unlock()
		return ErrUnknownToken
	}
	s.open = append(s.open[:i], s.open[i+1:]...)
	if merge == nil {
		s.mu.Unlock()
		return nil
	}
	merge(&s.current)
	snapshot := s.clone(s.current)
	s.mu.Unlock()

	s.updates.Publish(snapshot)
	return nil
}

// Rollback откатывает патч к его pre-patch состоянию. Патчи, наложенные
// позже отмененного, переигрываются поверх восстановленного состояния:
// их optimistic дельты остаются на экране, пока их мутации в полете.
func (s *Store[T]) Rollback(token string) error {
	s.mu.Lock()
	i := s.findOpen(token)
	if i < 0 {
		s.mu.Unlock()
		return ErrUnknownToken
	}
	s.current = s.open[i].base
	s.open = append(s.open[:i], s.open[i+1:]...)
	for j := i; j < len(s.open); j++ {
		s.open[j].base = s.clone(s.current)
		s.open[j].patch(&s.current)
	}
	snapshot := s.clone(s.current)
	s.mu.Unlock()

	s.updates.Publish(snapshot)
	return nil
}

// Replace целиком заменяет снапшот (после refresh с сервера)
func (s *Store[T]) Replace(next T) {
	s.mu.Lock()
	s.current = s.clone(next)
	snapshot := s.clone(s.current)
	s.mu.Unlock()

	s.updates.Publish(snapshot)
}

// WatchSettled подписывает хранилище на settled сигналы очереди.
// relevant отбирает сигналы по метаданным мутации: экран обновляется
// только когда settle затронул его ресурсы. Сигналы дедуплицируются
// по id мутации, refresh дебаунсится: replay пачки мутаций приводит
// к одному обращению за свежей view-model.
func (s *Store[T]) WatchSettled(settled *bus.Bus[queue.SettledEvent], relevant func(models.MutationMetadata) bool, refresh func(ctx context.Context) (T, error)) *bus.Subscription {
	return settled.Subscribe(func(e queue.SettledEvent) {
		if !relevant(e.Metadata) {
			return
		}

		s.mu.Lock()
		now := time.Now()
		if _, ok := s.seen[e.MutationID]; ok {
			s.mu.Unlock()
			return
		}
		s.seen[e.MutationID] = now
		for id, at := range s.seen {
			if now.Sub(at) > seenRetention {
				delete(s.seen, id)
			}
		}

		if s.timer != nil {
			s.timer.Stop()
		}
		s.timer = time.AfterFunc(settleDebounce, func() {
			next, err := refresh(context.Background())
			if err != nil {
				s.logger.Warn("view-model refresh after settle failed", "error", err)
				return
			}
			s.Replace(next)
		})
		s.mu.Unlock()
	})
}
