package vmstate

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientapi "github.com/plantit/plantit/internal/client/api"
	"github.com/plantit/plantit/pkg/api"
)

func villageVM(plants ...api.PlantCard) []byte {
	vm := api.VillageVM{
		Village:     api.Village{ID: "v1", Name: "Balcony"},
		VillageETag: "village-rec-1",
		Plants:      plants,
	}
	body, _ := json.Marshal(vm)
	return body
}

// TestCreatePlant_Online: карточка сразу получает серверный id
func TestCreatePlant_Online(t *testing.T) {
	client := &clientAPIMock{
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			return &clientapi.Response{Status: 200, Body: villageVM(), ETag: "vm-1"}, nil
		},
		PostFunc: func(ctx context.Context, path string, body []byte) (*clientapi.Response, error) {
			plant := api.Plant{ID: "p1", VillageID: "v1", Name: "Basil"}
			data, _ := json.Marshal(plant)
			return &clientapi.Response{Status: 201, Body: data, ETag: "plant-1"}, nil
		},
	}
	h := newHarness(t, client)
	s := NewVillageStore("v1", h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))

	id, err := s.CreatePlant(ctx, api.PlantCreate{Name: "Basil", Species: "Ocimum"})
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	snap := s.Get()
	require.Len(t, snap.Plants, 1)
	assert.Equal(t, "p1", snap.Plants[0].ID)
	assert.False(t, snap.Plants[0].Pending)
}

// TestCreatePlant_OfflineTempIDSwap: offline создание дает временный id
// с тегом Pending, после replay id подменяется серверным
func TestCreatePlant_OfflineTempIDSwap(t *testing.T) {
	var (
		online   = true
		serverVM = villageVM()
	)
	client := &clientAPIMock{
		OnlineFunc: func() bool { return online },
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			if !online {
				return nil, networkErr()
			}
			return &clientapi.Response{Status: 200, Body: serverVM, ETag: "vm"}, nil
		},
		PostFunc: func(ctx context.Context, path string, body []byte) (*clientapi.Response, error) {
			if !online {
				return nil, networkErr()
			}
			plant := api.Plant{ID: "p1", VillageID: "v1", Name: "Basil"}
			data, _ := json.Marshal(plant)
			// Следующий refresh уже видит растение на сервере
			serverVM = villageVM(api.PlantCard{ID: "p1", Name: "Basil"})
			return &clientapi.Response{Status: 201, Body: data}, nil
		},
	}
	h := newHarness(t, client)
	s := NewVillageStore("v1", h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))

	online = false
	id, err := s.CreatePlant(ctx, api.PlantCreate{Name: "Basil", Species: "Ocimum"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "tmp-"))

	snap := s.Get()
	require.Len(t, snap.Plants, 1)
	assert.Equal(t, id, snap.Plants[0].ID)
	assert.True(t, snap.Plants[0].Pending)

	pending, err := h.queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	// Связь вернулась: replay подтверждает мутацию, settled сигнал
	// приводит к refresh с подменой временного id
	online = true
	_, err = h.queue.Replay(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		snap := s.Get()
		return len(snap.Plants) == 1 && snap.Plants[0].ID == "p1" && !snap.Plants[0].Pending
	}, 2*time.Second, 20*time.Millisecond)
}

// TestUpdateVillage_RollbackOnValidation: постоянная ошибка откатывает
// optimistic изменение к точному прежнему состоянию
func TestUpdateVillage_RollbackOnValidation(t *testing.T) {
	client := &clientAPIMock{
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			return &clientapi.Response{Status: 200, Body: villageVM(), ETag: "vm-1"}, nil
		},
		PatchFunc: func(ctx context.Context, path string, body []byte, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			return nil, &clientapi.HTTPError{
				Status: http.StatusUnprocessableEntity,
				Detail: api.ErrorDetail{Code: api.ErrCodeValidation, Message: "name too long", Field: "name"},
			}
		},
	}
	h := newHarness(t, client)
	s := NewVillageStore("v1", h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))
	before := s.Get()

	name := strings.Repeat("x", 500)
	err := s.UpdateVillage(ctx, api.VillageUpdate{Name: &name})
	require.Error(t, err)
	assert.True(t, clientapi.IsValidation(err))

	assert.Equal(t, before, s.Get())
}

// TestUpdateVillage_OfflineKeepsPendingTag: offline изменение остается
// на экране с тегом Pending
func TestUpdateVillage_OfflineKeepsPendingTag(t *testing.T) {
	online := true
	client := &clientAPIMock{
		OnlineFunc: func() bool { return online },
		GetFunc: func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
			return &clientapi.Response{Status: 200, Body: villageVM(), ETag: "vm-1"}, nil
		},
	}
	h := newHarness(t, client)
	s := NewVillageStore("v1", h.proxy, h.queue, h.settled, h.logger)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))

	online = false
	name := "Rooftop"
	require.NoError(t, s.UpdateVillage(ctx, api.VillageUpdate{Name: &name}))

	snap := s.Get()
	assert.Equal(t, "Rooftop", snap.Village.Name)
	assert.True(t, snap.Pending)
}
