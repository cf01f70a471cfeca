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

	"github.com/urfave/cli/v2"

	"github.com/poiesic/sessionrag/config"
	"github.com/poiesic/sessionrag/reembed"
)

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	defaults := reembed.DefaultConfig()

	return &cli.App{
		Name:  "sessionrag",
		Usage: "Session-scoped hybrid retrieval over conversation history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "sessionrag.yaml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to .env file with SESSIONRAG_* overrides",
				Value: ".env",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Listen address (overrides config)",
					},
				},
			},
			{
				Name:  "session",
				Usage: "Manage sessions",
				Subcommands: []*cli.Command{
					{
						Name:   "create",
						Usage:  "Create a session",
						Action: sessionCreateCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "name",
								Aliases:  []string{"n"},
								Usage:    "Session name",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "description",
								Usage: "Session description",
							},
						},
					},
					{
						Name:   "list",
						Usage:  "List sessions",
						Action: sessionListCommand,
					},
					{
						Name:      "delete",
						Usage:     "Delete a session and its conversations",
						ArgsUsage: "<session-id>",
						Action:    sessionDeleteCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "all",
								Usage: "Delete every session",
							},
						},
					},
				},
			},
			{
				Name:      "save",
				Usage:     "Save a conversation fragment to a session",
				ArgsUsage: "<text>",
				Action:    saveCommand,
				Flags:     []cli.Flag{sessionFlag()},
			},
			{
				Name:      "search",
				Usage:     "Run hybrid retrieval and print fused scores",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					sessionFlag(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results (0 uses the configured default)",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from a session's history",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags:     []cli.Flag{sessionFlag()},
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate every document embedding",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch",
						Value: defaults.BatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: defaults.ReportInterval,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: defaults.MaxRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: defaults.RetryDelay,
					},
				},
			},
		},
	}
}

func sessionFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "session",
		Aliases:  []string{"s"},
		Usage:    "Session identifier",
		Required: true,
	}
}

func setup(c *cli.Context) error {
	if err := setupLogger(c); err != nil {
		return err
	}

	if err := config.LoadEnvFile(c.String("env-file")); err != nil {
		return err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func appConfig(c *cli.Context) *config.AppConfig {
	if cfg, ok := c.App.Metadata[configKey].(*config.AppConfig); ok {
		return cfg
	}
	return config.Default()
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
