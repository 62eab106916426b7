package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

var (
	ErrAnalyzeInput = errors.New("model and query are required")
	ErrInvalidModel = errors.New("invalid model selected")
)

// ModelGenerator generates text with a caller-selected model.
type ModelGenerator interface {
	GenerateWithModel(ctx context.Context, model, prompt string) (string, error)
}

// Analyzer forwards a free-form query to the generation service using one
// of the allowed models.
type Analyzer struct {
	gen     ModelGenerator
	allowed map[string]bool
	models  []string
	timeout time.Duration
	log     *logger.Logger
}

func NewAnalyzer(log *logger.Logger, gen ModelGenerator, allowedModels []string, timeout time.Duration) *Analyzer {
	allowed := make(map[string]bool, len(allowedModels))
	for _, m := range allowedModels {
		allowed[m] = true
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Analyzer{
		gen:     gen,
		allowed: allowed,
		models:  append([]string(nil), allowedModels...),
		timeout: timeout,
		log:     log.With("service", "Analyzer"),
	}
}

func (a *Analyzer) Models() []string { return append([]string(nil), a.models...) }

func (a *Analyzer) Analyze(ctx context.Context, model, query string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" || strings.TrimSpace(query) == "" {
		return "", ErrAnalyzeInput
	}
	if !a.allowed[model] {
		return "", fmt.Errorf("%w: %s", ErrInvalidModel, model)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	out, err := a.gen.GenerateWithModel(callCtx, model, query)
	if err != nil {
		a.log.Warn("Analyze failed", "model", model, "error", err)
		if timedOut(callCtx, err) {
			return "", &StageError{Stage: StageGenerateStrict, Timeout: true, Kind: ErrGenerationFailure, Err: err}
		}
		if errors.Is(err, ErrGenerationFailure) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	return out, nil
}
