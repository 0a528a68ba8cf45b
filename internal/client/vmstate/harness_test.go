package vmstate

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/plantit/plantit/internal/bus"
	clientapi "github.com/plantit/plantit/internal/client/api"
	"github.com/plantit/plantit/internal/client/cache"
	"github.com/plantit/plantit/internal/client/queue"
	"github.com/plantit/plantit/internal/client/storage/boltdb"
)

// clientAPIMock мок ClientAPI в стиле moq
type clientAPIMock struct {
	GetFunc         func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error)
	PostFunc        func(ctx context.Context, path string, body []byte) (*clientapi.Response, error)
	PatchFunc       func(ctx context.Context, path string, body []byte, opts *clientapi.RequestOptions) (*clientapi.Response, error)
	DeleteFunc      func(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error)
	OnlineFunc      func() bool
	CheckHealthFunc func(ctx context.Context) bool
}

func (m *clientAPIMock) Get(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
	return m.GetFunc(ctx, path, opts)
}

func (m *clientAPIMock) Post(ctx context.Context, path string, body []byte) (*clientapi.Response, error) {
	return m.PostFunc(ctx, path, body)
}

func (m *clientAPIMock) Patch(ctx context.Context, path string, body []byte, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
	return m.PatchFunc(ctx, path, body, opts)
}

func (m *clientAPIMock) Delete(ctx context.Context, path string, opts *clientapi.RequestOptions) (*clientapi.Response, error) {
	return m.DeleteFunc(ctx, path, opts)
}

func (m *clientAPIMock) Online() bool {
	if m.OnlineFunc == nil {
		return true
	}
	return m.OnlineFunc()
}

func (m *clientAPIMock) CheckHealth(ctx context.Context) bool {
	return m.CheckHealthFunc(ctx)
}

func networkErr() error {
	return &clientapi.NetworkError{Err: errors.New("connection refused")}
}

// harness собирает клиентский стек целиком: очередь, кеш и шины
type harness struct {
	client  *clientAPIMock
	queue   *queue.Queue
	proxy   *cache.Proxy
	settled *bus.Bus[queue.SettledEvent]
	failed  *bus.Bus[queue.FailedEvent]
	logger  *slog.Logger
}

func newHarness(t *testing.T, client *clientAPIMock) *harness {
	t.Helper()
	ctx := context.Background()

	store, err := boltdb.New(ctx, t.TempDir()+"/client.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	h := &harness{
		client:  client,
		settled: bus.New[queue.SettledEvent](),
		failed:  bus.New[queue.FailedEvent](),
		logger:  logger,
	}
	h.queue = queue.New(client, store, h.settled, h.failed, logger,
		queue.WithBackoff(time.Millisecond, 5*time.Millisecond))

	missed := bus.New[cache.MissOfflineEvent]()
	h.proxy, err = cache.New(ctx, client, store, missed, logger)
	require.NoError(t, err)

	return h
}
