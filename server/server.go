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

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/index"
	"github.com/poiesic/equiptrack/ingestion"
	"github.com/poiesic/equiptrack/search"
	"github.com/poiesic/equiptrack/storage"
	"github.com/rs/cors"
)

const shutdownTimeout = 30 * time.Second

// Config holds the HTTP settings.
type Config struct {
	Mode           string // gin mode: debug, release or test; empty leaves it unchanged
	UploadDir      string
	ReportDir      string // failed-record reports; empty keeps the importer default
	AllowedOrigins []string
	Limits         ingestion.Limits
}

// Server serves the JSON API.
type Server struct {
	store      storage.Store
	index      index.Index
	classifier ai.Classifier
	searcher   *search.Searcher
	config     Config
	engine     *gin.Engine
	handler    http.Handler
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server over the given services.
func New(store storage.Store, idx index.Index, classifier ai.Classifier, searcher *search.Searcher, config Config, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if config.UploadDir == "" {
		config.UploadDir = "uploads"
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}
	if config.Limits.MaxFileSize <= 0 {
		config.Limits.MaxFileSize = ingestion.DefaultLimits().MaxFileSize
	}

	s := &Server{
		store:      store,
		index:      idx,
		classifier: classifier,
		searcher:   searcher,
		config:     config,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()

	s.handler = cors.New(cors.Options{
		AllowedOrigins: config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(s.engine)

	return s, nil
}

func (s *Server) routes() {
	api := s.engine.Group("/api")

	api.POST("/import-csv", s.importCSV)
	api.POST("/validate-csv", s.validateCSV)
	api.GET("/import-history", s.listImportRuns)
	api.GET("/import-history/:id", s.getImportRun)

	api.GET("/problems", s.listProblems)
	api.GET("/problems/:id", s.getProblem)
	api.GET("/equipment-types", s.listEquipmentTypes)
	api.GET("/problem-categories", s.listProblemCategories)
	api.GET("/solution-categories", s.listSolutionCategories)

	api.POST("/search-similar-problems", s.searchSimilar)
	api.POST("/design-suggestions", s.designSuggestions)

	api.GET("/health", s.health)
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"remote", c.ClientIP())
	}
}

func (s *Server) newImporter() (*ingestion.Importer, error) {
	opts := []ingestion.Option{
		ingestion.WithBaseDir(s.config.UploadDir),
		ingestion.WithIndex(s.index),
		ingestion.WithLimits(s.config.Limits),
		ingestion.WithLogger(s.logger),
	}
	if s.config.ReportDir != "" {
		opts = append(opts, ingestion.WithReportDir(s.config.ReportDir))
	}
	return ingestion.NewImporter(s.store, s.classifier, opts...)
}
