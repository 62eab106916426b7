package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/video-insight-backend/internal/http/handlers"
	"github.com/yungbote/video-insight-backend/internal/http/middleware"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	HealthHandler   *handlers.HealthHandler
	InsightHandler  *handlers.InsightHandler
	AnalyzeHandler  *handlers.AnalyzeHandler
	DeepLinkHandler *handlers.DeepLinkHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(middleware.AttachTraceContext())
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.InsightHandler != nil {
			api.POST("/video-analysis", cfg.InsightHandler.Summary)
			api.POST("/video-transcript", cfg.InsightHandler.Topics)
		}
		if cfg.AnalyzeHandler != nil {
			api.POST("/analyze", cfg.AnalyzeHandler.Analyze)
			api.GET("/analyze/models", cfg.AnalyzeHandler.Models)
		}
		if cfg.DeepLinkHandler != nil {
			api.GET("/deeplink", cfg.DeepLinkHandler.DeepLink)
		}
	}

	return r
}
