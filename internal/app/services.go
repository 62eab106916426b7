package app

import (
	"github.com/yungbote/video-insight-backend/internal/data/repos"
	insightmod "github.com/yungbote/video-insight-backend/internal/modules/insight"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

type Services struct {
	Insight  *insightmod.Service
	Analyzer *insightmod.Analyzer
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients *Clients) Services {
	orch := insightmod.NewOrchestrator(insightmod.OrchestratorDeps{
		Log:      log,
		Records:  reposet.Records,
		Captions: clients.Captions,
		Gen:      clients.Gen,
		Locker:   clients.Locker,
	}, cfg.Pipeline)

	return Services{
		Insight:  insightmod.NewService(log, orch),
		Analyzer: insightmod.NewAnalyzer(log, clients.Gen, clients.AllowedModels, cfg.Pipeline.GenerationTimeout),
	}
}

type Repos struct {
	Records repos.InsightRecordRepo
}
