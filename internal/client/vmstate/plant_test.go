package vmstate

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientapi "github.com/plantit/plantit/internal/client/api"
	"github.com/plantit/plantit/internal/client/queue"
	"github.com/plantit/plantit/internal/models"
	"github.com/plantit/plantit/pkg/api"
)

func plantVM() []byte {
	vm := api.PlantVM{
		Plant:     api.Plant{ID: "p1", VillageID: "v1", Name: "Basil"},
		PlantETag: "plant-rec-7",
		Village:   api.Village{ID: "v1", Name: "Balcony"},
	}
	body, _ := json.Marshal(vm)
	return body
}

// TestDeletePlant_Offline: optimistic удаление помечает снапшот Deleted,
// DELETE несет staleness token записи, снятый при загрузке
func TestDeletePlant_Offline(t *testing.T) {
	online := true
	client := &clientAPIMock{
		OnlineFunc: func() bool { return online },
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			return &clientapi.Response{Status: 200, Body: plantVM(), ETag: "vm-7"}, nil
		},
	}
	h := newHarness(t, client)
	s := NewPlantStore("p1", h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))

	online = false
	require.NoError(t, s.DeletePlant(ctx))

	snap := s.Get()
	assert.True(t, snap.Deleted)
	assert.True(t, snap.Pending)

	entries, err := h.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "plant.delete", entries[0].Metadata.Action)
	assert.Equal(t, "plant-rec-7", entries[0].StalenessToken)
}

// TestPlantStore_IgnoresUnrelatedSettle: settle по чужой village
// не вызывает повторной загрузки view-model растения
func TestPlantStore_IgnoresUnrelatedSettle(t *testing.T) {
	var fetches atomic.Int32
	client := &clientAPIMock{
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			fetches.Add(1)
			return &clientapi.Response{Status: 200, Body: plantVM(), ETag: "vm-7"}, nil
		},
	}
	h := newHarness(t, client)
	s := NewPlantStore("p1", h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()

	require.NoError(t, s.Load(context.Background()))
	require.Equal(t, int32(1), fetches.Load())

	h.settled.Publish(queue.SettledEvent{
		MutationID: "m1",
		Metadata:   models.MutationMetadata{Action: "village.update", Resource: "village", ResourceID: "v42"},
	})
	time.Sleep(2 * settleDebounce)
	assert.Equal(t, int32(1), fetches.Load())

	// Settle своего растения обновляет экран
	h.settled.Publish(queue.SettledEvent{
		MutationID: "m2",
		Metadata:   models.MutationMetadata{Action: "plant.update", Resource: "plant", ResourceID: "p1"},
	})
	assert.Eventually(t, func() bool {
		return fetches.Load() == 2
	}, time.Second, 10*time.Millisecond)
}

// TestAttachPhoto_Online: запись о фото получает серверный id,
// счетчик растет на единицу
func TestAttachPhoto_Online(t *testing.T) {
	client := &clientAPIMock{
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			return &clientapi.Response{Status: 200, Body: plantVM(), ETag: "vm-7"}, nil
		},
		PostFunc: func(ctx context.Context, path string, body []byte) (*clientapi.Response, error) {
			photo := api.Photo{ID: "ph1", PlantID: "p1", FileName: "basil.jpg"}
			data, _ := json.Marshal(photo)
			return &clientapi.Response{Status: 201, Body: data}, nil
		},
	}
	h := newHarness(t, client)
	s := NewPlantStore("p1", h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))

	id, err := s.AttachPhoto(ctx, api.PhotoCreate{FileName: "basil.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "ph1", id)

	snap := s.Get()
	require.Len(t, snap.Photos, 1)
	assert.False(t, snap.Photos[0].Pending)
	assert.Equal(t, 1, snap.PhotoCount)
}

// TestAttachPhoto_RollbackOnError: при постоянной ошибке фото и счетчик
// откатываются
func TestAttachPhoto_RollbackOnError(t *testing.T) {
	client := &clientAPIMock{
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			return &clientapi.Response{Status: 200, Body: plantVM(), ETag: "vm-7"}, nil
		},
		PostFunc: func(ctx context.Context, path string, body []byte) (*clientapi.Response, error) {
			return nil, &clientapi.HTTPError{
				Status: 422,
				Detail: api.ErrorDetail{Code: api.ErrCodeValidation, Message: "file_name is required", Field: "file_name"},
			}
		},
	}
	h := newHarness(t, client)
	s := NewPlantStore("p1", h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))
	before := s.Get()

	_, err := s.AttachPhoto(ctx, api.PhotoCreate{FileName: ""})
	require.Error(t, err)

	after := s.Get()
	assert.Equal(t, before.PhotoCount, after.PhotoCount)
	assert.Empty(t, after.Photos)
}
