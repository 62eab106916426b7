package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

const DefaultModel = "gpt-4o-mini"

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	HTTPTimeout time.Duration
}

// Client generates text through an OpenAI-compatible chat completions API.
type Client struct {
	cli         *goopenai.Client
	model       string
	temperature float32
	maxTokens   int
	log         *logger.Logger
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing OPENAI_API_KEY", types.ErrConfiguration)
	}
	clientConfig := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		clientConfig.BaseURL = base
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		cli:         goopenai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		log:         log.With("service", "OpenAIClient"),
	}, nil
}

func (c *Client) Model() string { return c.model }

// WithModel returns a client that uses model for generation calls.
func (c *Client) WithModel(model string) *Client {
	model = strings.TrimSpace(model)
	if model == "" || model == c.model {
		return c
	}
	clone := *c
	clone.model = model
	return &clone
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: c.temperature,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.cli.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			c.log.Warn("OpenAI request failed", "model", c.model, "status", apiErr.HTTPStatusCode, "error", apiErr.Message)
		} else {
			c.log.Warn("OpenAI request failed", "model", c.model, "error", err)
		}
		return "", fmt.Errorf("%w: %w", types.ErrGenerationFailure, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", types.ErrGenerationFailure)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", types.ErrGenerationFailure)
	}
	c.log.Debug("OpenAI usage",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
	)
	return text, nil
}

func (c *Client) GenerateWithModel(ctx context.Context, model, prompt string) (string, error) {
	return c.WithModel(model).Generate(ctx, prompt)
}
