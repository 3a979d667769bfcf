package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/GruborIvan/taskmanager/internal/config"
	"github.com/GruborIvan/taskmanager/internal/database"
	"github.com/GruborIvan/taskmanager/internal/handler"
	"github.com/GruborIvan/taskmanager/internal/middleware"
	"github.com/GruborIvan/taskmanager/internal/repository"
	"github.com/GruborIvan/taskmanager/internal/repository/memory"
	"github.com/GruborIvan/taskmanager/internal/service"
	"github.com/GruborIvan/taskmanager/internal/sink"
	"github.com/GruborIvan/taskmanager/internal/telemetry"
	"github.com/GruborIvan/taskmanager/internal/transport"
	"github.com/GruborIvan/taskmanager/internal/webhook"
)

const serviceName = "taskmanager"

// store is what both the consumer and the query API need from persistence.
type store interface {
	service.TaskStore
	handler.TaskReader
}

// redisPinger adapts a Redis client to handler.Pinger.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// openStore selects the task store named by --store. The returned pinger is
// nil for the memory store.
func openStore(c *cli.Context, cfg config.Runtime) (store, handler.Pinger, func(), error) {
	ctx := c.Context

	switch c.String("store") {
	case config.StoreMemory:
		slog.Warn("using in-memory task store; tasks are lost on exit")
		return memory.New(), nil, func() {}, nil

	case config.StorePostgres, "":
		databaseURL := c.String("database-url")
		if databaseURL == "" {
			return nil, nil, nil, errors.New("database-url is required for the postgres store")
		}

		db, err := database.New(ctx, databaseURL, database.WithMaxConns(cfg.DBMaxConns))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(ctx, db.Pool()); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return repository.NewTaskRepository(db.Pool()), db.Pool(), db.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q, must be: %s, %s", c.String("store"), config.StorePostgres, config.StoreMemory)
	}
}

func openRedis(c *cli.Context, cfg config.Runtime) (*redis.Client, error) {
	client, err := database.NewRedis(c.Context, c.String("redis-addr"), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Error("failed to flush traces", "error", err)
		}
	}()

	tasks, dbPinger, closeStore, err := openStore(c, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb, err := openRedis(c, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	publisher := sink.NewFanOut(
		sink.NewStream(rdb, cfg.EventStream, cfg.EventStreamMaxLen),
		sink.NewPubSub(rdb, cfg.NotifyChannel),
	)
	callbacks := webhook.New(nil, cfg.WebhookTimeout)
	defer callbacks.Wait()

	dispatcher := service.NewDispatcher(
		service.NewTaskService(tasks, time.Now),
		publisher,
		service.WithNotifier(callbacks),
		service.WithDeduplicator(transport.NewDeduplicator(rdb, cfg.DedupTTL)),
	)

	consumer := transport.NewConsumer(rdb, dispatcher, transport.Config{
		Stream:           cfg.CommandStream,
		Group:            cfg.ConsumerGroup,
		Name:             cfg.ConsumerName,
		RetryKey:         cfg.RetryKey,
		DeadLetterStream: cfg.DeadLetterStream,
		Workers:          cfg.Workers,
		BatchSize:        cfg.BatchSize,
		PollInterval:     cfg.PollInterval,
		ClaimIdle:        cfg.ClaimIdle,
		Retry: transport.RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     cfg.RetryBackoff,
			MaxDelay:    cfg.RetryMaxDelay,
		},
	})

	pingers := []handler.Pinger{redisPinger{client: rdb}}
	if dbPinger != nil {
		pingers = append(pingers, dbPinger)
	}
	auth := middleware.NewAuthMiddleware(cfg.APITokens)
	if !auth.Enabled() {
		slog.Warn("query API authentication disabled; set TASKS_API_TOKENS to enable")
	}
	h := handler.New(tasks, auth, pingers...)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "server_addr", "http://localhost:"+port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- consumer.Run(ctx)
	}()

	var runErr error
	select {
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
		stop()
		<-consumerErr
	case err := <-consumerErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = fmt.Errorf("consumer error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		<-consumerErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return runErr
}
