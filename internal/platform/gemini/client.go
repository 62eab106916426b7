package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/sync/semaphore"
	"google.golang.org/api/option"

	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

const DefaultModel = "gemini-2.0-flash"

// AllowedModels are the models callers may select explicitly.
var AllowedModels = []string{
	"gemini-1.5-flash",
	"gemini-2.0-flash-lite",
	"gemini-2.0-flash",
	"gemini-2.0-flash-exp",
	"gemini-1.5-flash-8b",
}

func IsAllowedModel(model string) bool {
	for _, m := range AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}

type Config struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	// MaxConcurrent caps in-flight requests across all model views. 0 means unlimited.
	MaxConcurrent int64
}

// handle is the process-wide genai client, created on first use.
type handle struct {
	apiKey string
	once   sync.Once
	client *genai.Client
	err    error
	sem    *semaphore.Weighted

	closeMu sync.Mutex
	closed  bool
}

var errClosed = errors.New("gemini client closed")

func (h *handle) get() (*genai.Client, error) {
	h.once.Do(func() {
		// not tied to a request context; the client outlives the first caller
		h.client, h.err = genai.NewClient(context.Background(), option.WithAPIKey(h.apiKey))
	})
	return h.client, h.err
}

type Client struct {
	h           *handle
	model       string
	temperature float32
	maxTokens   int32
	log         *logger.Logger
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing GEMINI_API_KEY", types.ErrConfiguration)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	h := &handle{apiKey: apiKey}
	if cfg.MaxConcurrent > 0 {
		h.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return &Client{
		h:           h,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		log:         log.With("service", "GeminiClient"),
	}, nil
}

func (c *Client) Model() string { return c.model }

// WithModel returns a view of c bound to model. The underlying client and
// concurrency limit are shared.
func (c *Client) WithModel(model string) *Client {
	model = strings.TrimSpace(model)
	if model == "" || model == c.model {
		return c
	}
	clone := *c
	clone.model = model
	clone.log = c.log.With("model", model)
	return &clone
}

// Generate sends prompt as a single text part and returns the first
// candidate's text. Any failure wraps ErrGenerationFailure.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := c.h.get()
	if err != nil {
		return "", fmt.Errorf("%w: init gemini client: %w", types.ErrGenerationFailure, err)
	}
	if c.h.sem != nil {
		if err := c.h.sem.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("%w: %w", types.ErrGenerationFailure, err)
		}
		defer c.h.sem.Release(1)
	}

	m := client.GenerativeModel(c.model)
	m.SetTemperature(c.temperature)
	if c.maxTokens > 0 {
		m.SetMaxOutputTokens(c.maxTokens)
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.log.Warn("Gemini request failed", "model", c.model, "error", err)
		return "", fmt.Errorf("%w: %w", types.ErrGenerationFailure, err)
	}
	text, err := responseText(resp)
	if err != nil {
		c.log.Warn("Gemini returned no usable text", "model", c.model, "error", err)
		return "", err
	}
	if resp.UsageMetadata != nil {
		c.log.Debug("Gemini usage",
			"model", c.model,
			"prompt_tokens", resp.UsageMetadata.PromptTokenCount,
			"output_tokens", resp.UsageMetadata.CandidatesTokenCount,
		)
	}
	return text, nil
}

// Close releases the shared client. It shares the handle's once with get,
// so a client is either never created or fully created before it is closed.
// Generate after Close fails with ErrGenerationFailure.
func (c *Client) Close() error {
	c.h.once.Do(func() { c.h.err = errClosed })
	c.h.closeMu.Lock()
	defer c.h.closeMu.Unlock()
	if c.h.client == nil || c.h.closed {
		return nil
	}
	c.h.closed = true
	return c.h.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", types.ErrGenerationFailure)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: prompt blocked: %s", types.ErrGenerationFailure, fb.BlockReason)
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("%w: no text candidates", types.ErrGenerationFailure)
}

func (c *Client) GenerateWithModel(ctx context.Context, model, prompt string) (string, error) {
	return c.WithModel(model).Generate(ctx, prompt)
}
