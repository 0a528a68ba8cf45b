// Package queue владеет persisted mutation store и решает, выполняется ли
// мутация сразу или уходит в durable очередь до восстановления связи.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/plantit/plantit/internal/bus"
	clientapi "github.com/plantit/plantit/internal/client/api"
	"github.com/plantit/plantit/internal/client/storage"
	"github.com/plantit/plantit/internal/models"
)

// ErrQueueExhausted означает, что запись исчерпала лимит попыток replay
// и требует ручного решения пользователя
var ErrQueueExhausted = errors.New("mutation retry limit reached")

// ConflictError означает, что целевой ресурс изменился на сервере
// с момента снятия optimistic snapshot. Запись не переигрывается:
// пользователь должен перечитать состояние и повторить изменение.
type ConflictError struct {
	Err        error
	Resource   string
	ResourceID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s %s: %v", e.Resource, e.ResourceID, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// SettledEvent публикуется после успешного replay мутации
type SettledEvent struct {
	Metadata   models.MutationMetadata
	MutationID string
	// Body авторитетный ответ сервера (может быть nil для DELETE)
	Body []byte
}

// FailedEvent публикуется когда мутация перешла в статус failed
type FailedEvent struct {
	Err        error
	Metadata   models.MutationMetadata
	MutationID string
}

// Result результат EnqueueOrSend
type Result struct {
	// Response ответ сервера, nil если мутация ушла в очередь
	Response *clientapi.Response
	// MutationID id записи очереди, пустой если мутация выполнилась сразу
	MutationID string
	// Queued true если мутация сохранена для последующего replay
	Queued bool
}

// ReplayResult итоги одного прохода replay
type ReplayResult struct {
	Settled  int // успешно переиграно
	Failed   int // переведено в failed
	Deferred int // осталось pending (offline или пропущено из-за соседа)
}

// Queue реализует durable очередь мутаций с последовательным replay.
// Единственный писатель QueueStorage.
type Queue struct {
	client  clientapi.ClientAPI
	store   storage.QueueStorage
	settled *bus.Bus[SettledEvent]
	failed  *bus.Bus[FailedEvent]
	logger  *slog.Logger

	maxAttempts     int
	perPassAttempts int
	backoffBase     time.Duration
	backoffCap      time.Duration

	// replayMu сериализует replay: очередь переигрывается строго
	// последовательно, даже если сигнал о восстановлении связи
	// пришел несколько раз подряд
	replayMu sync.Mutex
}

// Option настраивает Queue
type Option func(*Queue)

// WithMaxAttempts задает потолок попыток replay на запись
func WithMaxAttempts(n int) Option {
	return func(q *Queue) { q.maxAttempts = n }
}

// WithPerPassAttempts задает сколько попыток разрешено на запись
// за один проход replay. Потолок maxAttempts расходуется между проходами:
// оффлайн проход не должен сжечь весь лимит записи в одиночку.
func WithPerPassAttempts(n int) Option {
	return func(q *Queue) { q.perPassAttempts = n }
}

// WithBackoff задает базу и cap экспоненциальной задержки между попытками
func WithBackoff(base, capDuration time.Duration) Option {
	return func(q *Queue) {
		q.backoffBase = base
		q.backoffCap = capDuration
	}
}

// New создает очередь мутаций
func New(client clientapi.ClientAPI, store storage.QueueStorage, settled *bus.Bus[SettledEvent], failed *bus.Bus[FailedEvent], logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		client:          client,
		store:           store,
		settled:         settled,
		failed:          failed,
		logger:          logger,
		maxAttempts:     5,
		perPassAttempts: 3,
		backoffBase:     500 * time.Millisecond,
		backoffCap:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// NewMutation собирает запись очереди для мутации
func NewMutation(method, path string, body, optimistic []byte, meta models.MutationMetadata, stalenessToken string) *models.QueuedMutation {
	return &models.QueuedMutation{
		ID:                uuid.New().String(),
		Method:            method,
		Path:              path,
		Body:              body,
		Metadata:          meta,
		OptimisticPayload: optimistic,
		StalenessToken:    stalenessToken,
		Status:            models.MutationStatusPending,
		CreatedAt:         time.Now().UTC(),
	}
}

// EnqueueOrSend пытается выполнить мутацию сразу, если сервер достижим.
// На NetworkError мутация сохраняется durable и возвращается Queued=true
// без ошибки - UI показывает "will sync" вместо тоста об ошибке.
// HTTP ошибки (валидация, конфликт) возвращаются как есть: они постоянные,
// очередь их не спасет.
func (q *Queue) EnqueueOrSend(ctx context.Context, m *models.QueuedMutation) (*Result, error) {
	if q.client.Online() {
		resp, err := q.send(ctx, m)
		if err == nil {
			q.settled.Publish(SettledEvent{
				MutationID: m.ID,
				Metadata:   m.Metadata,
				Body:       resp.Body,
			})
			return &Result{Response: resp}, nil
		}

		if !clientapi.IsNetworkError(err) {
			return nil, err
		}
		// NetworkError проваливается в очередь ниже
	}

	if err := q.store.SaveMutation(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to persist mutation: %w", err)
	}

	q.logger.Info("mutation queued for replay",
		"mutation_id", m.ID,
		"action", m.Metadata.Action,
		"resource_id", m.Metadata.ResourceID)

	return &Result{Queued: true, MutationID: m.ID}, nil
}

// Replay последовательно переигрывает все pending записи в порядке создания.
// Параллельный replay запрещен: create/update/delete одного ресурса
// должны применяться в исходном порядке.
func (q *Queue) Replay(ctx context.Context) (*ReplayResult, error) {
	q.replayMu.Lock()
	defer q.replayMu.Unlock()

	entries, err := q.store.ListMutations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mutations: %w", err)
	}

	result := &ReplayResult{}

	// Ресурсы, по которым уже была неудача в этом проходе:
	// их последующие записи пропускаем, чтобы сохранить FIFO по ресурсу
	skippedResources := make(map[string]bool)

	for i, m := range entries {
		if m.Status != models.MutationStatusPending {
			continue
		}
		if skippedResources[m.Metadata.ResourceID] {
			result.Deferred++
			continue
		}

		offline, err := q.replayOne(ctx, m, result)
		if err != nil {
			return result, err
		}
		if offline {
			// Сервер снова недоступен - нет смысла пробовать остальные,
			// текущая и все последующие pending записи остаются в очереди
			result.Deferred++
			for _, rest := range entries[i+1:] {
				if rest.Status == models.MutationStatusPending {
					result.Deferred++
				}
			}
			break
		}
		if m.Status == models.MutationStatusFailed {
			// Неудача по ресурсу: не применяем его более поздние мутации,
			// иначе update может лечь поверх несостоявшегося create
			skippedResources[m.Metadata.ResourceID] = true
		}
	}

	q.logger.Info("replay pass finished",
		"settled", result.Settled,
		"failed", result.Failed,
		"deferred", result.Deferred)

	return result, nil
}

// replayOne переигрывает одну запись с экспоненциальным backoff.
// Возвращает offline=true если попытки закончились сетевой ошибкой,
// но потолок attempts еще не достигнут.
func (q *Queue) replayOne(ctx context.Context, m *models.QueuedMutation, result *ReplayResult) (offline bool, err error) {
	m.Status = models.MutationStatusInFlight
	if err := q.store.SaveMutation(ctx, m); err != nil {
		return false, fmt.Errorf("failed to mark mutation in-flight: %w", err)
	}

	remaining := q.maxAttempts - m.Attempts
	if remaining <= 0 {
		return false, q.markFailed(ctx, m, result, ErrQueueExhausted)
	}
	tries := remaining
	if tries > q.perPassAttempts {
		tries = q.perPassAttempts
	}

	backoff := retry.WithCappedDuration(q.backoffCap, retry.NewExponential(q.backoffBase))
	backoff = retry.WithMaxRetries(uint64(tries-1), backoff)

	var resp *clientapi.Response
	attemptErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		m.Attempts++

		r, sendErr := q.send(ctx, m)
		if sendErr == nil {
			resp = r
			return nil
		}

		m.LastErr = sendErr.Error()
		if saveErr := q.store.SaveMutation(ctx, m); saveErr != nil {
			return saveErr
		}

		if clientapi.IsNetworkError(sendErr) {
			// Временная ошибка - попробуем снова после задержки
			return retry.RetryableError(sendErr)
		}
		// Постоянная ошибка (конфликт или валидация) - не ретраим
		return sendErr
	})

	if attemptErr == nil {
		if err := q.store.DeleteMutation(ctx, m); err != nil {
			return false, fmt.Errorf("failed to delete settled mutation: %w", err)
		}
		result.Settled++
		q.settled.Publish(SettledEvent{
			MutationID: m.ID,
			Metadata:   m.Metadata,
			Body:       resp.Body,
		})
		return false, nil
	}

	if clientapi.IsNetworkError(attemptErr) {
		if m.Attempts >= q.maxAttempts {
			return false, q.markFailed(ctx, m, result, ErrQueueExhausted)
		}
		// Возвращаем в pending, attempts уже сохранены
		m.Status = models.MutationStatusPending
		if err := q.store.SaveMutation(ctx, m); err != nil {
			return false, fmt.Errorf("failed to save mutation: %w", err)
		}
		return true, nil
	}

	if clientapi.IsConflict(attemptErr) {
		conflict := &ConflictError{
			Resource:   m.Metadata.Resource,
			ResourceID: m.Metadata.ResourceID,
			Err:        attemptErr,
		}
		return false, q.markFailed(ctx, m, result, conflict)
	}

	// Валидация и прочие постоянные ошибки
	return false, q.markFailed(ctx, m, result, attemptErr)
}

// markFailed переводит запись в статус failed и публикует сигнал.
// Failed записи не переигрываются автоматически - только вручную.
func (q *Queue) markFailed(ctx context.Context, m *models.QueuedMutation, result *ReplayResult, cause error) error {
	m.Status = models.MutationStatusFailed
	m.LastErr = cause.Error()
	if err := q.store.SaveMutation(ctx, m); err != nil {
		return fmt.Errorf("failed to mark mutation failed: %w", err)
	}

	result.Failed++
	q.logger.Warn("mutation failed permanently",
		"mutation_id", m.ID,
		"action", m.Metadata.Action,
		"attempts", m.Attempts,
		"error", cause)

	q.failed.Publish(FailedEvent{
		MutationID: m.ID,
		Metadata:   m.Metadata,
		Err:        cause,
	})
	return nil
}

// RetryFailed сбрасывает failed запись обратно в pending и запускает replay.
// Используется для ручного повтора после вмешательства пользователя.
func (q *Queue) RetryFailed(ctx context.Context, mutationID string) (*ReplayResult, error) {
	m, err := q.store.GetMutation(ctx, mutationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mutation: %w", err)
	}
	if m.Status != models.MutationStatusFailed {
		return nil, fmt.Errorf("mutation %s is not failed (status %s)", mutationID, m.Status)
	}

	m.Status = models.MutationStatusPending
	m.Attempts = 0
	m.LastErr = ""
	if err := q.store.SaveMutation(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to reset mutation: %w", err)
	}

	return q.Replay(ctx)
}

// Discard удаляет failed запись без повтора (пользователь отказался от изменения)
func (q *Queue) Discard(ctx context.Context, mutationID string) error {
	m, err := q.store.GetMutation(ctx, mutationID)
	if err != nil {
		return fmt.Errorf("failed to get mutation: %w", err)
	}
	if err := q.store.DeleteMutation(ctx, m); err != nil {
		return fmt.Errorf("failed to discard mutation: %w", err)
	}
	return nil
}

// List возвращает все записи очереди в порядке создания
func (q *Queue) List(ctx context.Context) ([]*models.QueuedMutation, error) {
	return q.store.ListMutations(ctx)
}

// PendingCount возвращает количество записей, ожидающих replay
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	return q.store.CountByStatus(ctx, models.MutationStatusPending)
}

// FailedCount возвращает количество записей, требующих ручного решения
func (q *Queue) FailedCount(ctx context.Context) (int, error) {
	return q.store.CountByStatus(ctx, models.MutationStatusFailed)
}

// WatchConnectivity подписывает очередь на переходы offline->online.
// Replay запускается в отдельной goroutine, чтобы не блокировать
// публикацию события внутри HTTP клиента.
func (q *Queue) WatchConnectivity(connectivity *bus.Bus[clientapi.ConnectivityEvent]) *bus.Subscription {
	return connectivity.Subscribe(func(e clientapi.ConnectivityEvent) {
		if !e.Online {
			return
		}
		go func() {
			if _, err := q.Replay(context.Background()); err != nil {
				q.logger.Error("replay after reconnect failed", "error", err)
			}
		}()
	})
}

// send выполняет один HTTP вызов для мутации
func (q *Queue) send(ctx context.Context, m *models.QueuedMutation) (*clientapi.Response, error) {
	switch m.Method {
	case http.MethodPost:
		return q.client.Post(ctx, m.Path, m.Body)
	case http.MethodPatch:
		return q.client.Patch(ctx, m.Path, m.Body, &clientapi.RequestOptions{IfMatch: m.StalenessToken})
	case http.MethodDelete:
		return q.client.Delete(ctx, m.Path, &clientapi.RequestOptions{IfMatch: m.StalenessToken})
	default:
		return nil, fmt.Errorf("unsupported mutation method: %s", m.Method)
	}
}
