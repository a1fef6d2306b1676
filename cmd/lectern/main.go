// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/lectern"
	"github.com/poiesic/lectern/config"
	"github.com/poiesic/lectern/generate"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func ownerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "owner",
		Aliases:  []string{"o"},
		Usage:    "Owner of the content",
		EnvVars:  []string{"LECTERN_OWNER"},
		Required: true,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "lectern",
		Usage: "Turn documents, web pages and videos into study material",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LECTERN_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"LECTERN_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file; ignored when missing",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides configuration)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "worker",
				Usage:  "Run extraction workers until interrupted",
				Action: workerCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of concurrent extractions (0 uses the configured value)",
					},
					&cli.DurationFlag{
						Name:  "drain-timeout",
						Usage: "How long to wait for running jobs on shutdown",
						Value: 30 * time.Second,
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Register content and queue its extraction",
				ArgsUsage: "<locator>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.StringFlag{
						Name:     "type",
						Aliases:  []string{"t"},
						Usage:    "Source type (file, webpage, video)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Content title (defaults to the locator)",
					},
					&cli.StringSliceFlag{
						Name:  "meta",
						Usage: "Metadata as key=value, repeatable",
					},
				},
			},
			{
				Name:      "status",
				Usage:     "Show the state of a content record",
				ArgsUsage: "<content-id>",
				Action:    statusCommand,
				Flags:     []cli.Flag{ownerFlag()},
			},
			{
				Name:   "list",
				Usage:  "List an owner's content, newest first",
				Action: listCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number, starting at 1",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Records per page",
						Value: 20,
					},
				},
			},
			{
				Name:      "resubmit",
				Usage:     "Start a new extraction attempt for a content record",
				ArgsUsage: "<content-id>",
				Action:    resubmitCommand,
				Flags:     []cli.Flag{ownerFlag()},
			},
			{
				Name:      "delete",
				Usage:     "Delete a content record",
				ArgsUsage: "<content-id>",
				Action:    deleteCommand,
				Flags:     []cli.Flag{ownerFlag()},
			},
			{
				Name:   "reprocess-failed",
				Usage:  "Re-submit every failed content record",
				Action: reprocessFailedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Only re-submit content of this owner",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:      "generate",
				Usage:     "Generate study material from completed content",
				ArgsUsage: "<content-id>",
				Action:    generateCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.StringFlag{
						Name:     "task",
						Usage:    "What to generate (flashcards, quiz, summary, concepts)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of flashcards or questions (0 uses the default)",
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Summary length (short, detailed)",
						Value: string(generate.SummaryShort),
					},
				},
			},
		},
	}
}

// openEngine loads configuration and opens the database it names.
func openEngine(c *cli.Context) (*lectern.Engine, *config.Config, error) {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}

	engine, err := lectern.Open(cfg.DBPath, lectern.WithConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, cfg, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
