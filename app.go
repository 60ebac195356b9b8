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

// Package equiptrack wires configuration, storage, the AI provider and the
// similarity index into the services the CLI and HTTP server use.
package equiptrack

import (
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/ai/mock"
	"github.com/poiesic/equiptrack/ai/openai"
	"github.com/poiesic/equiptrack/config"
	"github.com/poiesic/equiptrack/index"
	"github.com/poiesic/equiptrack/ingestion"
	"github.com/poiesic/equiptrack/reindex"
	"github.com/poiesic/equiptrack/search"
	"github.com/poiesic/equiptrack/server"
	"github.com/poiesic/equiptrack/storage"
	"github.com/poiesic/equiptrack/storage/badger"
	"github.com/poiesic/equiptrack/storage/gormstore"
)

// App holds the long-lived resources of one equiptrack process.
type App struct {
	config        *config.Config
	store         storage.Store
	storeBackend  *badger.Backend // nil unless the badger driver is used
	vectorBackend *badger.Backend
	provider      ai.AIProvider
	index         *index.VectorIndex
	logger        *slog.Logger
}

// AppOption configures an App.
type AppOption func(*appOptions)

type appOptions struct {
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithProvider supplies the AI provider instead of building one from config.
// The App takes ownership and closes it.
func WithProvider(provider ai.AIProvider) AppOption {
	return func(o *appOptions) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) AppOption {
	return func(o *appOptions) {
		o.logger = logger
	}
}

// NewApp opens the store, the similarity index and the AI provider described by cfg.
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &appOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	app := &App{config: cfg, logger: options.logger}
	if err := app.open(options); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) open(options *appOptions) error {
	switch a.config.Storage.Driver {
	case config.DriverBadger:
		backend, err := badger.OpenBackend(a.config.Storage.Path, false)
		if err != nil {
			return err
		}
		a.storeBackend = backend
		store, err := badger.NewStore(backend)
		if err != nil {
			return err
		}
		a.store = store
	default:
		store, err := gormstore.Open(a.config.Storage.Driver, a.config.Storage.DSN, a.logger)
		if err != nil {
			return err
		}
		a.store = store
	}

	backend, err := badger.OpenBackend(a.config.Index.Path, false)
	if err != nil {
		return err
	}
	a.vectorBackend = backend

	a.provider = options.provider
	if a.provider == nil {
		a.provider, err = newProvider(a.config.AI.Config())
		if err != nil {
			return err
		}
	}

	a.index, err = index.NewVectorIndex(a.provider.Embedder(), badger.NewVectorRepository(backend), index.WithLogger(a.logger))
	return err
}

func newProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Provider == ai.ProviderMock {
		return mock.NewMockProvider(), nil
	}
	return openai.NewProvider(cfg)
}

// Close releases every resource, reporting all failures.
func (a *App) Close() error {
	var errs []error
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("error closing store", "err", err)
			errs = append(errs, err)
		}
	}
	for _, backend := range []*badger.Backend{a.vectorBackend, a.storeBackend} {
		if backend == nil {
			continue
		}
		if err := backend.Close(); err != nil {
			a.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Store() storage.Store {
	return a.store
}

func (a *App) Index() index.Index {
	return a.index
}

func (a *App) Provider() ai.AIProvider {
	return a.provider
}

// NewImporter creates an importer configured from the import section.
// opts are applied after the configured ones.
func (a *App) NewImporter(opts ...ingestion.Option) (*ingestion.Importer, error) {
	base := []ingestion.Option{
		ingestion.WithBaseDir(a.config.Import.BaseDir),
		ingestion.WithLimits(a.config.Import.Limits()),
		ingestion.WithIndex(a.index),
		ingestion.WithLogger(a.logger),
	}
	if a.config.Import.ReportDir != "" {
		base = append(base, ingestion.WithReportDir(a.config.Import.ReportDir))
	}
	return ingestion.NewImporter(a.store, a.provider.Classifier(), append(base, opts...)...)
}

// NewSearcher creates a searcher using the configured similarity floor.
func (a *App) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{
		search.WithLogger(a.logger),
		search.WithMinSimilarity(a.config.Index.MinSimilarity),
	}
	return search.NewSearcher(a.store, a.index, a.provider.Advisor(), append(base, opts...)...)
}

// NewReindexer creates a reindexer that writes progress to w.
func (a *App) NewReindexer(cfg *reindex.Config, w io.Writer) (*reindex.Reindexer, error) {
	return reindex.NewReindexer(a.store, a.index, cfg, w, reindex.WithLogger(a.logger))
}

// NewServer creates the HTTP server from the server and import sections.
func (a *App) NewServer() (*server.Server, error) {
	searcher, err := a.NewSearcher()
	if err != nil {
		return nil, err
	}
	return server.New(a.store, a.index, a.provider.Classifier(), searcher, server.Config{
		Mode:           a.config.Server.Mode,
		UploadDir:      a.config.Server.UploadDir,
		ReportDir:      a.config.Import.ReportDir,
		AllowedOrigins: a.config.Server.AllowedOrigins,
		Limits:         a.config.Import.Limits(),
	}, server.WithLogger(a.logger))
}
