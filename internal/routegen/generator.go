// Package routegen turns a completed input snapshot into a walking route
// and supervises the background tasks doing so.
package routegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/dataset"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/domain"
)

// ErrGeneration wraps every failure of the remote model call. The flow
// layer converts it into a fixed apology; it is never retried.
var ErrGeneration = errors.New("route generation failed")

// Generator produces a route text for a trip request.
type Generator interface {
	GenerateRoute(ctx context.Context, req domain.TripRequest) (string, error)
}

// OllamaConfig holds the model endpoint settings.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float32
}

// OllamaGenerator calls a local Ollama server through its
// OpenAI-compatible chat completion endpoint.
type OllamaGenerator struct {
	client  *openai.Client
	model   string
	temp    float32
	catalog *dataset.Catalog
	logger  *slog.Logger
}

// NewOllamaGenerator creates a generator bound to the given catalog.
func NewOllamaGenerator(cfg OllamaConfig, catalog *dataset.Catalog, logger *slog.Logger) *OllamaGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	// Ollama ignores the API key but the client requires one.
	clientCfg := openai.DefaultConfig("ollama")
	clientCfg.BaseURL = cfg.BaseURL
	return &OllamaGenerator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		temp:    cfg.Temperature,
		catalog: catalog,
		logger:  logger,
	}
}

// GenerateRoute builds the prompt from the catalog and the snapshot and
// runs a single chat completion. Any failure, including an empty
// response, is reported as ErrGeneration.
func (g *OllamaGenerator) GenerateRoute(ctx context.Context, req domain.TripRequest) (string, error) {
	prompt := BuildPrompt(g.catalog, req)
	g.logger.Debug("generating route", "model", g.model, "prompt_len", len(prompt))

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temp,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices", ErrGeneration)
	}
	route := strings.TrimSpace(resp.Choices[0].Message.Content)
	if route == "" {
		return "", fmt.Errorf("%w: model returned empty content", ErrGeneration)
	}
	return route, nil
}
