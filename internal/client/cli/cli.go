// Package cli реализует команды терминального клиента plantit.
package cli

import (
	"log/slog"

	"github.com/plantit/plantit/internal/bus"
	clientapi "github.com/plantit/plantit/internal/client/api"
	"github.com/plantit/plantit/internal/client/auth"
	"github.com/plantit/plantit/internal/client/cache"
	"github.com/plantit/plantit/internal/client/iocli"
	"github.com/plantit/plantit/internal/client/queue"
)

type Cli struct {
	io      iocli.IO
	client  clientapi.ClientAPI
	session *auth.Service
	queue   *queue.Queue
	proxy   *cache.Proxy
	settled *bus.Bus[queue.SettledEvent]
	logger  *slog.Logger
}

func New(
	io iocli.IO,
	client clientapi.ClientAPI,
	session *auth.Service,
	q *queue.Queue,
	proxy *cache.Proxy,
	settled *bus.Bus[queue.SettledEvent],
	logger *slog.Logger,
) *Cli {
	return &Cli{
		io:      io,
		client:  client,
		session: session,
		queue:   q,
		proxy:   proxy,
		settled: settled,
		logger:  logger,
	}
}
