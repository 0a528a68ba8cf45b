package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/plantit/plantit/internal/bus"
	"github.com/plantit/plantit/internal/client/api"
	"github.com/plantit/plantit/internal/client/auth"
	"github.com/plantit/plantit/internal/client/cache"
	"github.com/plantit/plantit/internal/client/cli"
	"github.com/plantit/plantit/internal/client/iocli"
	"github.com/plantit/plantit/internal/client/queue"
	"github.com/plantit/plantit/internal/client/storage/boltdb"
	"github.com/plantit/plantit/internal/config"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "plantit-client.db", "Path to local database")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg := config.LoadClient(*serverURL, *dbPath)

	// Логи клиента уходят в stderr, чтобы не мешаться с выводом команд
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	args := flag.Args()
	command := ""
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	ctx := context.Background()

	store, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	connectivity := bus.New[api.ConnectivityEvent]()
	apiClient := api.NewClient(cfg.ServerURL, connectivity, logger)

	settled := bus.New[queue.SettledEvent]()
	failed := bus.New[queue.FailedEvent]()
	q := queue.New(apiClient, store, settled, failed, logger)

	// Когда сервер снова доступен, очередь переигрывается сама
	connSub := q.WatchConnectivity(connectivity)
	defer connSub.Unsubscribe()

	missed := bus.New[cache.MissOfflineEvent]()
	proxy, err := cache.New(ctx, apiClient, store, missed, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open cache: %v\n", err)
		os.Exit(1)
	}

	session := auth.NewService(apiClient, apiClient, store, logger)

	// Поднимаем сохраненную сессию, если она есть.
	// Команды login/register обойдутся и без нее.
	if _, err := session.Restore(ctx); err != nil {
		logger.Debug("no stored session", "error", err)
	}

	c := cli.New(iocli.NewStdio(), apiClient, session, q, proxy, settled, logger)
	if err := c.Run(ctx, command, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("plantit client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
