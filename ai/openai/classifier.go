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

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const parseAttempts = 3

// ErrEmptyResponse is returned when the model produces no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Classifier implements ai.Classifier using OpenAI-compatible chat APIs.
type Classifier struct {
	client      llms.Model
	temperature float64
	topP        float64
	logger      *slog.Logger
}

// classification is the JSON shape requested from the model.
type classification struct {
	Analysis           string  `json:"analysis"`
	ProblemCategoryID  int     `json:"problem_category_id"`
	SolutionCategoryID int     `json:"solution_category_id"`
	Priority           string  `json:"priority"`
	Confidence         float64 `json:"confidence"`
}

// newClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newClassifier(config *ai.Config) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken(token(config)),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}
	return newClassifierWithModel(client, config), nil
}

func newClassifierWithModel(client llms.Model, config *ai.Config) *Classifier {
	return &Classifier{
		client:      client,
		temperature: config.Temperature,
		topP:        config.TopP,
		logger:      slog.Default().With("component", "openai-classifier"),
	}
}

// NewClassifier creates a new classifier using the provided configuration.
//
// Returns ai.Classifier interface to enforce abstraction.
func NewClassifier(config *ai.Config) (ai.Classifier, error) {
	return newClassifier(config)
}

// Classify asks the model for a JSON classification of one problem.
// Malformed JSON is retried; if every attempt fails to parse, the categories
// are extracted from the raw text by keyword.
func (c *Classifier) Classify(ctx context.Context, req ai.ClassificationRequest) (*ai.Classification, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, buildClassificationPrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, truncateRunes(buildClassificationInput(req), maxInputRunes)),
	}

	var raw string
	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		response, err := c.client.GenerateContent(ctx, content,
			llms.WithTemperature(c.temperature),
			llms.WithTopP(c.topP),
			llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}
		if len(response.Choices) < 1 {
			return nil, ErrEmptyResponse
		}

		raw = response.Choices[0].Content
		responseText := repairJSON(stripCodeFences(raw))

		var parsed classification
		if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
			lastErr = err
			c.logger.Warn("error parsing classifier response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		return parsed.toClassification(), nil
	}

	c.logger.Warn("falling back to keyword classification", "err", lastErr)
	return ai.ExtractCategories(strings.TrimSpace(raw)), nil
}

// toClassification drops out-of-table IDs and unknown priorities.
func (p *classification) toClassification() *ai.Classification {
	result := &ai.Classification{
		AnalysisText: strings.TrimSpace(p.Analysis),
		Confidence:   p.Confidence,
	}
	if _, ok := ai.CategoryByID(ai.ProblemCategories, p.ProblemCategoryID); ok {
		id := p.ProblemCategoryID
		result.ProblemCategoryID = &id
	}
	if _, ok := ai.CategoryByID(ai.SolutionCategories, p.SolutionCategoryID); ok {
		id := p.SolutionCategoryID
		result.SolutionCategoryID = &id
	}
	if priority, ok := core.ParsePriority(p.Priority); ok {
		result.Priority = priority
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		result.Confidence = ai.DefaultConfidence
	}
	return result
}
