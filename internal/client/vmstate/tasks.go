package vmstate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/plantit/plantit/internal/bus"
	"github.com/plantit/plantit/internal/client/cache"
	"github.com/plantit/plantit/internal/client/queue"
	"github.com/plantit/plantit/internal/models"
	"github.com/plantit/plantit/pkg/api"
)

// TaskItem задача на экране списка задач
type TaskItem struct {
	api.Task
	Pending bool
}

// TasksSnapshot снапшот экрана задач, сгруппированного по срокам
type TasksSnapshot struct {
	Overdue  []TaskItem
	Today    []TaskItem
	Upcoming []TaskItem
	// Completed счетчик выполненных: не должен задваиваться
	// при двойном клике по той же задаче
	Completed int
}

func cloneTasksSnapshot(s TasksSnapshot) TasksSnapshot {
	s.Overdue = append([]TaskItem(nil), s.Overdue...)
	s.Today = append([]TaskItem(nil), s.Today...)
	s.Upcoming = append([]TaskItem(nil), s.Upcoming...)
	return s
}

// TasksStore хранит снапшот экрана задач
type TasksStore struct {
	core   *Store[TasksSnapshot]
	proxy  *cache.Proxy
	queue  *queue.Queue
	logger *slog.Logger
	sub    *bus.Subscription

	// today подменяется в тестах
	today func() string
}

// NewTasksStore создает store экрана задач
func NewTasksStore(proxy *cache.Proxy, q *queue.Queue, settled *bus.Bus[queue.SettledEvent], logger *slog.Logger) *TasksStore {
	s := &TasksStore{
		core:   NewStore(TasksSnapshot{}, cloneTasksSnapshot, logger),
		proxy:  proxy,
		queue:  q,
		logger: logger,
		today:  func() string { return time.Now().UTC().Format("2006-01-02") },
	}
	s.sub = s.core.WatchSettled(settled, func(md models.MutationMetadata) bool {
		return md.Resource == "task"
	}, s.fetch)
	return s
}

// Close отписывает store от сигналов очереди
func (s *TasksStore) Close() {
	s.sub.Unsubscribe()
}

// Get возвращает копию текущего снапшота
func (s *TasksStore) Get() TasksSnapshot {
	return s.core.Get()
}

// Subscribe подписывает на изменения снапшота
func (s *TasksStore) Subscribe(fn func(TasksSnapshot)) *bus.Subscription {
	return s.core.Subscribe(fn)
}

// Load загружает view-model задач через кеширующий прокси
func (s *TasksStore) Load(ctx context.Context) error {
	snap, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	completed := s.core.Get().Completed
	snap.Completed = completed
	s.core.Replace(snap)
	return nil
}

func (s *TasksStore) fetch(ctx context.Context) (TasksSnapshot, error) {
	res, err := s.proxy.Fetch(ctx, "/api/v1/vm/tasks")
	if err != nil {
		return TasksSnapshot{}, err
	}

	var vm api.TasksVM
	if err := json.Unmarshal(res.Body, &vm); err != nil {
		return TasksSnapshot{}, fmt.Errorf("failed to decode tasks view-model: %w", err)
	}

	snap := TasksSnapshot{}
	for _, t := range vm.Overdue {
		snap.Overdue = append(snap.Overdue, TaskItem{Task: t})
	}
	for _, t := range vm.Today {
		snap.Today = append(snap.Today, TaskItem{Task: t})
	}
	for _, t := range vm.Upcoming {
		snap.Upcoming = append(snap.Upcoming, TaskItem{Task: t})
	}

	if err := s.overlayPending(ctx, &snap); err != nil {
		return TasksSnapshot{}, err
	}
	return snap, nil
}

// overlayPending переносит в снапшот задачи, созданные или выполненные
// offline и еще не переигранные очередью
func (s *TasksStore) overlayPending(ctx context.Context, snap *TasksSnapshot) error {
	entries, err := s.queue.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending mutations: %w", err)
	}

	for _, m := range entries {
		if m.Status != models.MutationStatusPending || m.Metadata.Resource != "task" {
			continue
		}
		switch m.Metadata.Action {
		case "task.create":
			var task api.Task
			if err := json.Unmarshal(m.OptimisticPayload, &task); err != nil {
				continue
			}
			s.placeByDue(snap, TaskItem{Task: task, Pending: true})

		case "task.complete":
			removeTask(snap, m.Metadata.ResourceID)
		}
	}
	return nil
}

// placeByDue раскладывает задачу в группу по сроку.
// ISO даты сравниваются лексикографически.
func (s *TasksStore) placeByDue(snap *TasksSnapshot, item TaskItem) {
	today := s.today()
	switch {
	case item.DueDate < today:
		snap.Overdue = append(snap.Overdue, item)
	case item.DueDate == today:
		snap.Today = append(snap.Today, item)
	default:
		snap.Upcoming = append(snap.Upcoming, item)
	}
}

func removeTask(snap *TasksSnapshot, id string) bool {
	for _, group := range []*[]TaskItem{&snap.Overdue, &snap.Today, &snap.Upcoming} {
		for i, t := range *group {
			if t.ID == id {
				*group = append((*group)[:i], (*group)[i+1:]...)
				return true
			}
		}
	}
	return false
}

func findTask(snap *TasksSnapshot, id string) *TaskItem {
	for _, group := range []*[]TaskItem{&snap.Overdue, &snap.Today, &snap.Upcoming} {
		for i := range *group {
			if (*group)[i].ID == id {
				return &(*group)[i]
			}
		}
	}
	return nil
}

// CompleteTask выполняет задачу optimistic. Повторный вызов по уже
// выполненной задаче (двойной клик) не делает ничего: задача исчезла
// из снапшота вместе с первым вызовом.
func (s *TasksStore) CompleteTask(ctx context.Context, taskID string) error {
	snap := s.core.Get()
	if findTask(&snap, taskID) == nil {
		// Уже выполнена или не существует - идемпотентный no-op
		return nil
	}

	status := api.TaskStatusCompleted
	body, err := json.Marshal(api.TaskUpdate{Status: &status})
	if err != nil {
		return fmt.Errorf("failed to encode task update: %w", err)
	}

	token := s.core.Apply(func(v *TasksSnapshot) {
		if removeTask(v, taskID) {
			v.Completed++
		}
	})

	// Выполнение задачи - last-write-wins, If-Match не нужен
	m := queue.NewMutation(http.MethodPatch, "/api/v1/tasks/"+taskID, body, nil,
		models.MutationMetadata{Action: "task.complete", Resource: "task", ResourceID: taskID}, "")

	if _, err := s.queue.EnqueueOrSend(ctx, m); err != nil {
		if rbErr := s.core.Rollback(token); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	// Queued или подтверждено - optimistic состояние уже верное
	return s.core.Commit(token, nil)
}

// QuickAdd создает задачу optimistic: она сразу появляется
// в группе по сроку с временным id
func (s *TasksStore) QuickAdd(ctx context.Context, in api.TaskCreate) (string, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to encode task: %w", err)
	}

	tmpID := "tmp-" + uuid.New().String()
	item := TaskItem{Pending: true}
	item.ID = tmpID
	item.PlantID = in.PlantID
	item.Title = in.Title
	item.Notes = in.Notes
	item.DueDate = in.DueDate
	item.Status = api.TaskStatusPending

	optimistic, err := json.Marshal(item.Task)
	if err != nil {
		return "", fmt.Errorf("failed to encode optimistic task: %w", err)
	}

	token := s.core.Apply(func(v *TasksSnapshot) {
		s.placeByDue(v, item)
	})

	m := queue.NewMutation(http.MethodPost, "/api/v1/tasks", body, optimistic,
		models.MutationMetadata{Action: "task.create", Resource: "task", ResourceID: tmpID}, "")

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

	var task api.Task
	if err := json.Unmarshal(res.Response.Body, &task); err != nil {
		return "", fmt.Errorf("failed to decode task: %w", err)
	}
	err = s.core.Commit(token, func(v *TasksSnapshot) {
		if item := findTask(v, tmpID); item != nil {
			item.Task = task
			item.Pending = false
		}
	})
	return task.ID, err
}
