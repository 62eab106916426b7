package insight

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
	"github.com/yungbote/video-insight-backend/internal/platform/ctxutil"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

// Response is the envelope returned for both pipeline kinds.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Service is the pipeline boundary. It never returns an error: every
// failure becomes a Response with Success=false and an HTTP status.
type Service struct {
	orch *Orchestrator
	log  *logger.Logger
}

func NewService(log *logger.Logger, orch *Orchestrator) *Service {
	return &Service{orch: orch, log: log.With("service", "InsightService")}
}

func (s *Service) Summary(ctx context.Context, videoURL string) (Response, int) {
	return s.Handle(ctx, types.KindSummary, videoURL)
}

func (s *Service) Topics(ctx context.Context, videoURL string) (Response, int) {
	return s.Handle(ctx, types.KindTopics, videoURL)
}

func (s *Service) Handle(ctx context.Context, kind types.Kind, videoURL string) (resp Response, status int) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("Pipeline panic", "kind", kind.String(), "panic", fmt.Sprint(rec))
			resp, status = Response{Success: false, Message: "Internal server error"}, http.StatusInternalServerError
		}
	}()

	if strings.TrimSpace(videoURL) == "" {
		return Response{Success: false, Message: "Video URL is required"}, http.StatusBadRequest
	}

	res, err := s.orch.Run(ctx, kind, videoURL)
	if err != nil {
		ae := toAPIError(err)
		s.log.Warn("Pipeline failed", append(ctxutil.LogFields(ctx),
			"kind", kind.String(),
			"code", ae.Code,
			"status", ae.Status,
			"error", err,
		)...)
		return Response{Success: false, Message: messageFor(ae)}, ae.Status
	}
	return Response{Success: true, Data: res.Data()}, http.StatusOK
}
