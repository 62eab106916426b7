package app

import (
	"github.com/gin-gonic/gin"

	httpapi "github.com/yungbote/video-insight-backend/internal/http"
	"github.com/yungbote/video-insight-backend/internal/http/handlers"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Insight  *handlers.InsightHandler
	Analyze  *handlers.AnalyzeHandler
	DeepLink *handlers.DeepLinkHandler
}

func wireHandlers(svcs Services) Handlers {
	return Handlers{
		Health:   handlers.NewHealthHandler(),
		Insight:  handlers.NewInsightHandler(svcs.Insight),
		Analyze:  handlers.NewAnalyzeHandler(svcs.Analyzer),
		DeepLink: handlers.NewDeepLinkHandler(),
	}
}

func wireRouter(log *logger.Logger, cfg Config, h Handlers) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return httpapi.NewRouter(httpapi.RouterConfig{
		Log:             log,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSOrigins,
		HealthHandler:   h.Health,
		InsightHandler:  h.Insight,
		AnalyzeHandler:  h.Analyze,
		DeepLinkHandler: h.DeepLink,
	})
}
