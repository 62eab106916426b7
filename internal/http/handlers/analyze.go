package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	insightmod "github.com/yungbote/video-insight-backend/internal/modules/insight"
)

type Analyzer interface {
	Models() []string
	Analyze(ctx context.Context, model, query string) (string, error)
}

type AnalyzeHandler struct {
	analyzer Analyzer
}

func NewAnalyzeHandler(a Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: a}
}

type analyzeRequest struct {
	Model string `json:"model"`
	Query string `json:"query"`
}

// POST /api/analyze
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	out, err := h.analyzer.Analyze(c.Request.Context(), req.Model, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, insightmod.ErrAnalyzeInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Model and query are required"})
		case errors.Is(err, insightmod.ErrInvalidModel):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid model selected"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": out})
}

// GET /api/analyze/models
func (h *AnalyzeHandler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.analyzer.Models()})
}
