package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/GruborIvan/taskmanager/internal/command"
	"github.com/GruborIvan/taskmanager/internal/config"
	"github.com/GruborIvan/taskmanager/internal/database"
	"github.com/GruborIvan/taskmanager/internal/domain"
	"github.com/GruborIvan/taskmanager/internal/report"
	"github.com/GruborIvan/taskmanager/internal/transport"
)

func runSend(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	body := []byte(c.String("body"))
	if path, ok := strings.CutPrefix(c.String("body"), "@"); ok {
		if body, err = os.ReadFile(path); err != nil {
			return fmt.Errorf("read body: %w", err)
		}
	}
	if !json.Valid(body) {
		return errors.New("body is not valid JSON")
	}

	headers := command.Headers{}
	for _, kv := range c.StringSlice("header") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("invalid header %q, must be key=value", kv)
		}
		headers[strings.TrimSpace(key)] = value
	}

	rdb, err := openRedis(c, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	id, err := transport.NewProducer(rdb, cfg.CommandStream).Send(c.Context, command.Message{
		Type:    c.String("type"),
		Version: command.Version(c.Int("version")),
		Body:    body,
		Headers: headers,
	})
	if err != nil {
		return err
	}

	slog.Info("command sent", "stream", cfg.CommandStream, "entry_id", id, "type", c.String("type"), "version", c.Int("version"))
	return nil
}

func runExportReport(c *cli.Context) error {
	ctx := c.Context

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.String("store") == config.StoreMemory {
		return errors.New("export-report needs the postgres store")
	}

	period := domain.Period{From: *c.Timestamp("from"), To: *c.Timestamp("to")}

	tasks, _, closeStore, err := openStore(c, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	bucket, err := report.NewGCSBucket(ctx, c.String("bucket"), c.String("credentials"))
	if err != nil {
		return err
	}
	defer bucket.Close()

	summary, err := report.NewExporter(tasks, bucket).Export(ctx, period)
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}

	fmt.Printf("gs://%s/%s: %d tasks, %d comments, %d relations\n",
		c.String("bucket"), summary.Prefix, summary.Tasks, summary.Comments, summary.Relations)
	return nil
}

func openDatabase(c *cli.Context) (*database.DB, error) {
	databaseURL := c.String("database-url")
	if databaseURL == "" {
		return nil, errors.New("database-url is required")
	}
	db, err := database.New(c.Context, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func runMigrateUp(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(c.Context, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return printVersion(c, db)
}

func runMigrateDown(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RollbackMigration(c.Context, db.Pool()); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return printVersion(c, db)
}

func runMigrateStatus(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	return printVersion(c, db)
}

func printVersion(c *cli.Context, db *database.DB) error {
	version, err := database.MigrationVersion(c.Context, db.Pool())
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	fmt.Printf("schema version %d\n", version)
	return nil
}

func runDeadLetters(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	rdb, err := openRedis(c, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	letters, err := transport.ListDeadLetters(c.Context, rdb, cfg.DeadLetterStream, c.Int64("count"))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, l := range letters {
		if err := enc.Encode(struct {
			ID       string                 `json:"id"`
			OriginID string                 `json:"originId,omitempty"`
			Type     string                 `json:"type"`
			Version  command.Version        `json:"version"`
			Headers  command.Headers        `json:"headers"`
			Body     json.RawMessage        `json:"body"`
			Error    transport.ErrorDetails `json:"error"`
		}{
			ID:       l.ID,
			OriginID: l.OriginID,
			Type:     l.Message.Type,
			Version:  l.Message.Version,
			Headers:  l.Message.Headers,
			Body:     rawBody(l.Message.Body),
			Error:    l.Details,
		}); err != nil {
			return err
		}
	}
	return nil
}

// rawBody keeps JSON bodies readable and quotes anything else.
func rawBody(b []byte) json.RawMessage {
	if json.Valid(b) {
		return b
	}
	quoted, _ := json.Marshal(string(b))
	return quoted
}
