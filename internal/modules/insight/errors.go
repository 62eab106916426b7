package insight

import (
	"errors"
	"net/http"

	"github.com/yungbote/video-insight-backend/internal/data/repos"
	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
	"github.com/yungbote/video-insight-backend/internal/platform/apierr"
)

var (
	ErrInvalidIdentifier  = types.ErrInvalidIdentifier
	ErrCaptionUnavailable = types.ErrCaptionUnavailable
	ErrGenerationFailure  = types.ErrGenerationFailure
	ErrAnalysisFailed     = types.ErrAnalysisFailed
	ErrPersistence        = types.ErrPersistence
	ErrDuplicateKey       = repos.ErrDuplicateKey
)

type Stage string

const (
	StageValidateInput    Stage = "validate_input"
	StageAcquireLock      Stage = "acquire_lock"
	StageCheckCache       Stage = "check_cache"
	StageFetchCaptions    Stage = "fetch_captions"
	StageGenerateStrict   Stage = "generate_strict"
	StageValidateStrict   Stage = "validate_strict"
	StageGenerateFallback Stage = "generate_fallback"
	StageValidateFallback Stage = "validate_fallback"
	StagePersist          Stage = "persist"
)

// StageError records where a run stopped. Kind is the taxonomy sentinel
// (ErrCaptionUnavailable, ErrAnalysisFailed, ...) and Err the cause.
type StageError struct {
	Stage   Stage
	Timeout bool
	Kind    error
	Err     error
}

func (e *StageError) Error() string {
	msg := string(e.Stage) + ": " + e.Kind.Error()
	if e.Timeout {
		msg += " (timeout)"
	}
	if e.Err != nil && e.Err != e.Kind {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// toAPIError maps a pipeline failure to the HTTP status and message returned
// to callers. Causes stay in logs only.
func toAPIError(err error) *apierr.Error {
	switch {
	case errors.Is(err, ErrInvalidIdentifier):
		return apierr.New(http.StatusBadRequest, "invalid_video_url", err)
	case errors.Is(err, ErrCaptionUnavailable):
		return apierr.New(http.StatusInternalServerError, "captions_unavailable", err)
	case errors.Is(err, ErrAnalysisFailed):
		return apierr.New(http.StatusInternalServerError, "analysis_failed", err)
	case errors.Is(err, ErrGenerationFailure):
		return apierr.New(http.StatusInternalServerError, "generation_failed", err)
	case errors.Is(err, ErrPersistence):
		return apierr.New(http.StatusInternalServerError, "persistence_failed", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal_error", err)
	}
}

var userMessages = map[string]string{
	"invalid_video_url":    "A valid YouTube video URL is required",
	"captions_unavailable": "Captions are unavailable for this video",
	"analysis_failed":      "Failed to parse analysis result",
	"generation_failed":    "The analysis service is unavailable",
	"persistence_failed":   "Failed to save analysis result",
	"internal_error":       "Internal server error",
}

func messageFor(e *apierr.Error) string {
	if m, ok := userMessages[e.Code]; ok {
		return m
	}
	return "Internal server error"
}
