package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/video-insight-backend/internal/http/response"
	insightmod "github.com/yungbote/video-insight-backend/internal/modules/insight"
)

// InsightService is satisfied by *insightmod.Service.
type InsightService interface {
	Summary(ctx context.Context, videoURL string) (insightmod.Response, int)
	Topics(ctx context.Context, videoURL string) (insightmod.Response, int)
}

type InsightHandler struct {
	svc InsightService
}

func NewInsightHandler(svc InsightService) *InsightHandler {
	return &InsightHandler{svc: svc}
}

type videoRequest struct {
	VideoURL string `json:"videoUrl"`
}

// POST /api/video-analysis
func (h *InsightHandler) Summary(c *gin.Context) {
	var req videoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFailure(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, status := h.svc.Summary(c.Request.Context(), req.VideoURL)
	c.JSON(status, resp)
}

// POST /api/video-transcript
func (h *InsightHandler) Topics(c *gin.Context) {
	var req videoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFailure(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, status := h.svc.Topics(c.Request.Context(), req.VideoURL)
	c.JSON(status, resp)
}
