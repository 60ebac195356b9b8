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

// Package config loads equiptrack settings from a YAML file, a .env file and
// EQUIPTRACK_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/ingestion"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. EQUIPTRACK_STORAGE_DRIVER.
const EnvPrefix = "EQUIPTRACK"

// Storage drivers.
const (
	DriverBadger   = "badger"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Index   IndexConfig   `mapstructure:"index"`
	AI      AIConfig      `mapstructure:"ai"`
	Import  ImportConfig  `mapstructure:"import"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

// StorageConfig selects the system of record. The badger driver keeps it in
// the embedded store at Path; the others connect to DSN through gorm.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Path   string `mapstructure:"path"`
}

// IndexConfig locates the similarity index, which is always embedded.
type IndexConfig struct {
	Path          string  `mapstructure:"path"`
	MinSimilarity float32 `mapstructure:"min_similarity"`
}

type AIConfig struct {
	Provider        string  `mapstructure:"provider"`
	Host            string  `mapstructure:"host"`
	EmbeddingHost   string  `mapstructure:"embedding_host"`
	ClassifierHost  string  `mapstructure:"classifier_host"`
	EmbeddingModel  string  `mapstructure:"embedding_model"`
	ClassifierModel string  `mapstructure:"classifier_model"`
	APIKey          string  `mapstructure:"api_key"`
	Temperature     float64 `mapstructure:"temperature"`
	TopP            float64 `mapstructure:"top_p"`
}

type ImportConfig struct {
	BaseDir            string  `mapstructure:"base_dir"`
	ReportDir          string  `mapstructure:"report_dir"`
	MaxFileSize        int64   `mapstructure:"max_file_size"`
	MaxRows            int     `mapstructure:"max_rows"`
	BatchSize          int     `mapstructure:"batch_size"`
	PollutionThreshold float64 `mapstructure:"pollution_threshold"`
}

type ServerConfig struct {
	Addr            string   `mapstructure:"addr"`
	Mode            string   `mapstructure:"mode"`
	UploadDir       string   `mapstructure:"upload_dir"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	ReindexSchedule string   `mapstructure:"reindex_schedule"` // cron expression; empty disables
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

func setDefaults(v *viper.Viper) {
	limits := ingestion.DefaultLimits()
	aiDefaults := ai.DefaultConfig()

	v.SetDefault("storage.driver", DriverBadger)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.path", "data/problems")

	v.SetDefault("index.path", "data/index")
	v.SetDefault("index.min_similarity", 0.0)

	v.SetDefault("ai.provider", aiDefaults.Provider)
	v.SetDefault("ai.host", "")
	v.SetDefault("ai.embedding_host", aiDefaults.EmbeddingHost)
	v.SetDefault("ai.classifier_host", aiDefaults.ClassifierHost)
	v.SetDefault("ai.embedding_model", aiDefaults.EmbeddingModel)
	v.SetDefault("ai.classifier_model", aiDefaults.ClassifierModel)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.temperature", aiDefaults.Temperature)
	v.SetDefault("ai.top_p", aiDefaults.TopP)

	v.SetDefault("import.base_dir", ".")
	v.SetDefault("import.report_dir", "")
	v.SetDefault("import.max_file_size", limits.MaxFileSize)
	v.SetDefault("import.max_rows", limits.MaxRows)
	v.SetDefault("import.batch_size", limits.BatchSize)
	v.SetDefault("import.pollution_threshold", limits.PollutionThreshold)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.upload_dir", "uploads")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.reindex_schedule", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	return &cfg, nil
}

// Load reads configuration from path, or from config.yaml in . or ./config
// when path is empty. A missing default file and a missing .env are not errors.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading configuration: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no component could use.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverBadger:
		if c.Storage.Path == "" {
			return invalid("storage.path is required for the %s driver", DriverBadger)
		}
	case DriverSQLite, DriverPostgres, DriverMySQL:
		if c.Storage.DSN == "" {
			return invalid("storage.dsn is required for the %s driver", c.Storage.Driver)
		}
	default:
		return invalid("unknown storage.driver %q", c.Storage.Driver)
	}

	if c.Index.Path == "" {
		return invalid("index.path is required")
	}
	if c.Storage.Driver == DriverBadger && c.Index.Path == c.Storage.Path {
		return invalid("index.path and storage.path must differ")
	}
	if c.Index.MinSimilarity < 0 || c.Index.MinSimilarity > 1 {
		return invalid("index.min_similarity %v out of range [0, 1]", c.Index.MinSimilarity)
	}

	if c.Import.MaxFileSize <= 0 {
		return invalid("import.max_file_size must be positive")
	}
	if c.Import.MaxRows <= 0 {
		return invalid("import.max_rows must be positive")
	}
	if c.Import.BatchSize <= 0 {
		return invalid("import.batch_size must be positive")
	}
	if c.Import.PollutionThreshold <= 0 || c.Import.PollutionThreshold > 1 {
		return invalid("import.pollution_threshold %v out of range (0, 1]", c.Import.PollutionThreshold)
	}

	if c.Server.ReindexSchedule != "" {
		if _, err := cron.ParseStandard(c.Server.ReindexSchedule); err != nil {
			return invalid("server.reindex_schedule: %v", err)
		}
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return invalid("log.level: %v", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}

	if err := c.AI.Config().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Config maps the section onto ai.Config. Host, when set, applies to both services.
func (a AIConfig) Config() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithProvider(a.Provider),
		ai.WithEmbeddingHost(a.EmbeddingHost),
		ai.WithClassifierHost(a.ClassifierHost),
		ai.WithEmbeddingModel(a.EmbeddingModel),
		ai.WithClassifierModel(a.ClassifierModel),
		ai.WithAPIKey(a.APIKey),
		ai.WithSampling(a.Temperature, a.TopP),
	}
	if a.Host != "" {
		opts = append(opts, ai.WithHost(a.Host))
	}
	return ai.NewConfig(opts...)
}

// Limits maps the section onto the importer limits. Unset limits keep their defaults.
func (i ImportConfig) Limits() ingestion.Limits {
	return ingestion.Limits{
		MaxFileSize:        i.MaxFileSize,
		MaxRows:            i.MaxRows,
		BatchSize:          i.BatchSize,
		PollutionThreshold: i.PollutionThreshold,
	}
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(l.Level))
	return level, err
}
