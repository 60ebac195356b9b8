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

package ingestion

import (
	"log/slog"

	"github.com/poiesic/equiptrack/index"
)

// Limits bounds the work done by one import run.
type Limits struct {
	MaxFileSize          int64   // bytes
	MaxRows              int     // data rows streamed before truncation
	BatchSize            int     // rows per transaction
	MaxTitleLength       int     // characters
	MaxDescriptionLength int     // characters
	MaxEquipmentLength   int     // characters
	PollutionThreshold   float64 // fraction of special characters that triggers a warning
	EncodingSampleSize   int     // bytes read when resolving the encoding
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:          10 * 1024 * 1024,
		MaxRows:              10000,
		BatchSize:            100,
		MaxTitleLength:       500,
		MaxDescriptionLength: 2000,
		MaxEquipmentLength:   100,
		PollutionThreshold:   0.5,
		EncodingSampleSize:   8192,
	}
}

// withDefaults replaces non-positive values with their defaults.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = d.MaxFileSize
	}
	if l.MaxRows <= 0 {
		l.MaxRows = d.MaxRows
	}
	if l.BatchSize <= 0 {
		l.BatchSize = d.BatchSize
	}
	if l.MaxTitleLength <= 0 {
		l.MaxTitleLength = d.MaxTitleLength
	}
	if l.MaxDescriptionLength <= 0 {
		l.MaxDescriptionLength = d.MaxDescriptionLength
	}
	if l.MaxEquipmentLength <= 0 {
		l.MaxEquipmentLength = d.MaxEquipmentLength
	}
	if l.PollutionThreshold <= 0 {
		l.PollutionThreshold = d.PollutionThreshold
	}
	if l.EncodingSampleSize <= 0 {
		l.EncodingSampleSize = d.EncodingSampleSize
	}
	return l
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithLimits overrides the default limits. Zero fields keep their defaults.
func WithLimits(limits Limits) Option {
	return func(i *Importer) {
		i.limits = limits.withDefaults()
	}
}

// WithBaseDir sets the directory relative paths are resolved against.
// Default is the working directory.
func WithBaseDir(dir string) Option {
	return func(i *Importer) {
		i.baseDir = dir
	}
}

// WithIndex sets the similarity index that committed problems are pushed to.
// Without an index, problems are only written to the store.
func WithIndex(idx index.Index) Option {
	return func(i *Importer) {
		i.index = idx
	}
}

// WithSeverityFunc replaces the fatal/warning classifier for row issues.
func WithSeverityFunc(fn SeverityFunc) Option {
	return func(i *Importer) {
		if fn != nil {
			i.severity = fn
		}
	}
}

// ImportOptions holds per-run parameters.
type ImportOptions struct {
	FailOnError bool   // abort the run on the first row with a fatal issue
	ImportedBy  string // recorded on the ImportRun
}

// WithReportDir sets where failed-record reports go by default.
// Default is the base directory.
func WithReportDir(dir string) Option {
	return func(i *Importer) {
		i.reportDir = dir
	}
}
