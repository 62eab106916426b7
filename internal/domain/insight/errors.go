package insight

import "errors"

var (
	ErrInvalidIdentifier  = errors.New("invalid video identifier")
	ErrCaptionUnavailable = errors.New("captions unavailable")
	ErrGenerationFailure  = errors.New("generation failed")
	ErrAnalysisFailed     = errors.New("analysis failed")
	ErrPersistence        = errors.New("persistence failed")
	ErrConfiguration      = errors.New("invalid configuration")
)
