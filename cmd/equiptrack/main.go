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

	"github.com/poiesic/equiptrack"
	"github.com/poiesic/equiptrack/config"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "equiptrack",
		Usage: "Equipment problem tracker with bulk CSV ingestion and similarity search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file (default: config.yaml in . or ./config)",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides log.level",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import problems from a delimited text file",
				ArgsUsage: "FILE",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "fail-on-error",
						Usage: "Abort the import at the first rejected row",
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "Write rejected rows to this .csv or .xlsx file",
					},
					&cli.BoolFlag{
						Name:  "save-failed",
						Usage: "Write rejected rows to a timestamped report in import.report_dir",
					},
					&cli.StringFlag{
						Name:  "imported-by",
						Usage: "Name recorded on the import run",
						Value: currentUser(),
					},
				},
			},
			{
				Name:      "validate",
				Usage:     "Check a file's encoding, delimiter and header without importing it",
				ArgsUsage: "FILE",
				Action:    validateCommand,
			},
			{
				Name:   "history",
				Usage:  "List recent import runs",
				Action: historyCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to list",
						Value: 20,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Find problems similar to a description",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of hits",
						Value: 10,
					},
				},
			},
			{
				Name:      "suggest",
				Usage:     "Ask for design suggestions informed by similar past problems",
				ArgsUsage: "QUERY",
				Action:    suggestCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the similarity index from the problem store",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "Empty the index before rebuilding it",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of problems to index in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of batches indexed concurrently (default: half the CPUs)",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N problems",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for each batch",
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
				Name:   "serve",
				Usage:  "Serve the JSON HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides server.addr)",
					},
				},
			},
		},
	}
}

// setup loads the configuration and installs the default logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = strings.ToLower(c.String("log-level"))
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", cfg.Log.Level)
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func loadedConfig(c *cli.Context) (*config.Config, error) {
	cfg, ok := c.App.Metadata[configKey].(*config.Config)
	if !ok {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// openApp opens the application described by the loaded configuration.
func openApp(c *cli.Context) (*equiptrack.App, error) {
	cfg, err := loadedConfig(c)
	if err != nil {
		return nil, err
	}
	app, err := equiptrack.NewApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open equiptrack: %w", err)
	}
	return app, nil
}

func currentUser() string {
	for _, key := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "cli"
}
