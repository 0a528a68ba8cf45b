package vmstate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientapi "github.com/plantit/plantit/internal/client/api"
	"github.com/plantit/plantit/pkg/api"
)

func tasksVM(vm api.TasksVM) []byte {
	body, _ := json.Marshal(vm)
	return body
}

// TestCompleteTask_DoubleClick: повторное выполнение той же задачи
// не задваивает счетчик и не плодит мутации
func TestCompleteTask_DoubleClick(t *testing.T) {
	var patches int
	client := &clientAPIMock{
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			return &clientapi.Response{Status: 200, Body: tasksVM(api.TasksVM{
				Today: []api.Task{{ID: "t1", Title: "Water basil", Status: api.TaskStatusPending}},
			}), ETag: "vm-1"}, nil
		},
		PatchFunc: func(ctx context.Context, path string, body []byte, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			patches++
			task := api.Task{ID: "t1", Title: "Water basil", Status: api.TaskStatusCompleted}
			data, _ := json.Marshal(task)
			return &clientapi.Response{Status: 200, Body: data}, nil
		},
	}
	h := newHarness(t, client)
	s := NewTasksStore(h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))

	require.NoError(t, s.CompleteTask(ctx, "t1"))
	// Двойной клик
	require.NoError(t, s.CompleteTask(ctx, "t1"))

	snap := s.Get()
	assert.Equal(t, 1, snap.Completed)
	assert.Empty(t, snap.Today)
	assert.Equal(t, 1, patches)
}

// TestCompleteTask_Offline: задача исчезает из списка сразу,
// мутация ждет replay в очереди
func TestCompleteTask_Offline(t *testing.T) {
	online := true
	client := &clientAPIMock{
		OnlineFunc: func() bool { return online },
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			return &clientapi.Response{Status: 200, Body: tasksVM(api.TasksVM{
				Overdue: []api.Task{{ID: "t1", Title: "Repot fern", Status: api.TaskStatusPending}},
			}), ETag: "vm-1"}, nil
		},
	}
	h := newHarness(t, client)
	s := NewTasksStore(h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))

	online = false
	require.NoError(t, s.CompleteTask(ctx, "t1"))

	snap := s.Get()
	assert.Empty(t, snap.Overdue)
	assert.Equal(t, 1, snap.Completed)

	pending, err := h.queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

// TestQuickAdd_GroupsByDueDate: задача попадает в группу по сроку
func TestQuickAdd_GroupsByDueDate(t *testing.T) {
	client := &clientAPIMock{
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			return &clientapi.Response{Status: 200, Body: tasksVM(api.TasksVM{}), ETag: "vm-1"}, nil
		},
		PostFunc: func(ctx context.Context, path string, body []byte) (*clientapi.Response, error) {
			var in api.TaskCreate
			_ = json.Unmarshal(body, &in)
			task := api.Task{ID: "t-new", PlantID: in.PlantID, Title: in.Title, DueDate: in.DueDate, Status: api.TaskStatusPending}
			data, _ := json.Marshal(task)
			return &clientapi.Response{Status: 201, Body: data}, nil
		},
	}
	h := newHarness(t, client)
	s := NewTasksStore(h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()
	s.today = func() string { return "2026-03-10" }
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))

	id, err := s.QuickAdd(ctx, api.TaskCreate{PlantID: "p1", Title: "Fertilize", DueDate: "2026-03-15"})
	require.NoError(t, err)
	assert.Equal(t, "t-new", id)

	snap := s.Get()
	require.Len(t, snap.Upcoming, 1)
	assert.Equal(t, "t-new", snap.Upcoming[0].ID)
	assert.False(t, snap.Upcoming[0].Pending)
	assert.Empty(t, snap.Overdue)
	assert.Empty(t, snap.Today)
}

// TestQuickAdd_OfflinePendingTag: offline задача появляется с временным id
func TestQuickAdd_OfflinePendingTag(t *testing.T) {
	online := true
	client := &clientAPIMock{
		OnlineFunc: func() bool { return online },
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			return &clientapi.Response{Status: 200, Body: tasksVM(api.TasksVM{}), ETag: "vm-1"}, nil
		},
	}
	h := newHarness(t, client)
	s := NewTasksStore(h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()
	s.today = func() string { return "2026-03-10" }
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))

	online = false
	id, err := s.QuickAdd(ctx, api.TaskCreate{PlantID: "p1", Title: "Fertilize", DueDate: "2026-03-09"})
	require.NoError(t, err)

	snap := s.Get()
	require.Len(t, snap.Overdue, 1)
	assert.Equal(t, id, snap.Overdue[0].ID)
	assert.True(t, snap.Overdue[0].Pending)
}
