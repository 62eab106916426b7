package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	kkyoutube "github.com/kkdai/youtube/v2"

	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

type Caption = types.Caption

// transcriptClient is the subset of the kkdai client used here.
type transcriptClient interface {
	GetVideoContext(ctx context.Context, url string) (*kkyoutube.Video, error)
	GetTranscriptCtx(ctx context.Context, video *kkyoutube.Video, lang string) (kkyoutube.VideoTranscript, error)
}

type CaptionConfig struct {
	Language    string
	HTTPTimeout time.Duration
}

type CaptionSource struct {
	client transcriptClient
	lang   string
	log    *logger.Logger
}

func NewCaptionSource(log *logger.Logger, cfg CaptionConfig) *CaptionSource {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return newCaptionSource(log, &kkyoutube.Client{
		HTTPClient: &http.Client{Timeout: timeout},
	}, cfg.Language)
}

func newCaptionSource(log *logger.Logger, client transcriptClient, lang string) *CaptionSource {
	if strings.TrimSpace(lang) == "" {
		lang = "en"
	}
	return &CaptionSource{
		client: client,
		lang:   lang,
		log:    log.With("service", "CaptionSource"),
	}
}

// Fetch returns the caption track for a video id ordered by offset.
// Every upstream failure, including private or deleted videos and disabled
// transcripts, is reported as ErrCaptionUnavailable.
func (s *CaptionSource) Fetch(ctx context.Context, videoKey string) ([]Caption, error) {
	if !videoIDPattern.MatchString(videoKey) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, videoKey)
	}

	video, err := s.client.GetVideoContext(ctx, videoKey)
	if err != nil {
		return nil, s.unavailable(ctx, videoKey, "video lookup failed", err)
	}
	segments, err := s.client.GetTranscriptCtx(ctx, video, s.lang)
	if err != nil {
		return nil, s.unavailable(ctx, videoKey, "transcript fetch failed", err)
	}

	out := make([]Caption, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		offset := int64(seg.StartMs)
		if offset < 0 {
			offset = 0
		}
		out = append(out, Caption{OffsetMs: offset, Text: text})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty caption track for %s", ErrCaptionUnavailable, videoKey)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OffsetMs < out[j].OffsetMs })

	s.log.Debug("Fetched captions", "video_key", videoKey, "fragments", len(out))
	return out, nil
}

func (s *CaptionSource) unavailable(ctx context.Context, videoKey, msg string, err error) error {
	// keep deadline errors visible so callers can tag timeouts
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrCaptionUnavailable, msg, ctxErr)
	}
	s.log.Warn("Captions unavailable", "video_key", videoKey, "reason", msg, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrCaptionUnavailable, msg, err)
}
