package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/equiptrack/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// adviceTemperature is lower than the analysis default to keep advice technical.
const adviceTemperature = 0.4

// Advisor implements ai.DesignAdvisor using OpenAI-compatible chat APIs.
type Advisor struct {
	client llms.Model
	logger *slog.Logger
}

func newAdvisor(config *ai.Config) (*Advisor, error) {
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
	return &Advisor{
		client: client,
		logger: slog.Default().With("component", "openai-advisor"),
	}, nil
}

// NewAdvisor creates a new design advisor using the provided configuration.
func NewAdvisor(config *ai.Config) (ai.DesignAdvisor, error) {
	return newAdvisor(config)
}

// SuggestDesign asks the model for design advice grounded on history.
func (a *Advisor) SuggestDesign(ctx context.Context, query string, history []ai.HistoricalProblem) (string, error) {
	a.logger.Debug("requesting design advice", "history", len(history))

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, buildAdvicePrompt(query, history)),
	}
	response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(adviceTemperature))
	if err != nil {
		a.logger.Error("failed to generate advice", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
