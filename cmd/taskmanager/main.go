package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/GruborIvan/taskmanager/internal/config"
	"github.com/GruborIvan/taskmanager/internal/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "taskmanager",
		Usage: "Task command handler and query API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Aliases: []string{"d"},
				Value:   config.DefaultDatabaseURL,
				Usage:   "PostgreSQL database URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Aliases: []string{"r"},
				Value:   config.DefaultRedisAddr,
				Usage:   "Redis address (host:port)",
				EnvVars: []string{"REDIS_ADDR"},
			},
			&cli.StringFlag{
				Name:    "store",
				Value:   config.DefaultStore,
				Usage:   "Task store (postgres, memory)",
				EnvVars: []string{"TASKS_STORE"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Consume commands and serve the query API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
				},
				Action: runServe,
			},
			{
				Name:  "send",
				Usage: "Publish a command message to the command stream",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Message type, e.g. CreateTask", Required: true},
					&cli.IntFlag{Name: "version", Aliases: []string{"v"}, Value: 1, Usage: "Message version"},
					&cli.StringFlag{Name: "body", Aliases: []string{"b"}, Usage: "JSON body, or @file to read it from a file", Required: true},
					&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: "Header as key=value (repeatable)"},
				},
				Action: runSend,
			},
			{
				Name:  "export-report",
				Usage: "Export tasks, comments and relations for a date range to GCS",
				Flags: []cli.Flag{
					&cli.TimestampFlag{Name: "from", Layout: "2006-01-02", Timezone: time.UTC, Usage: "Start date, inclusive (YYYY-MM-DD)", Required: true},
					&cli.TimestampFlag{Name: "to", Layout: "2006-01-02", Timezone: time.UTC, Usage: "End date, exclusive (YYYY-MM-DD)", Required: true},
					&cli.StringFlag{Name: "bucket", Usage: "GCS bucket name", EnvVars: []string{"REPORT_BUCKET"}, Required: true},
					&cli.StringFlag{Name: "credentials", Usage: "Service account JSON file", EnvVars: []string{"GOOGLE_APPLICATION_CREDENTIALS"}},
				},
				Action: runExportReport,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "Apply pending migrations", Action: runMigrateUp},
					{Name: "down", Usage: "Roll back the latest migration", Action: runMigrateDown},
					{Name: "status", Usage: "Print the current schema version", Action: runMigrateStatus},
				},
			},
			{
				Name:  "dead-letters",
				Usage: "List commands that exhausted their attempts",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "count", Aliases: []string{"n"}, Value: 20, Usage: "Maximum entries to list"},
				},
				Action: runDeadLetters,
			},
		},
		Action: runServe,
	}
}
