package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/video-insight-backend/internal/http/response"
	"github.com/yungbote/video-insight-backend/internal/platform/youtube"
)

type DeepLinkHandler struct{}

func NewDeepLinkHandler() *DeepLinkHandler { return &DeepLinkHandler{} }

// GET /api/deeplink?videoUrl=...&timestamp=mm:ss
func (h *DeepLinkHandler) DeepLink(c *gin.Context) {
	link, err := youtube.DeepLink(c.Query("videoUrl"), c.Query("timestamp"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_deeplink", err)
		return
	}
	response.RespondOK(c, gin.H{"url": link})
}
