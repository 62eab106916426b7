package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/video-insight-backend/internal/data/db"
	"github.com/yungbote/video-insight-backend/internal/data/repos"
	httpapi "github.com/yungbote/video-insight-backend/internal/http"
	"github.com/yungbote/video-insight-backend/internal/observability"
	"github.com/yungbote/video-insight-backend/internal/platform/envutil"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Router   *gin.Engine
	Repos    Repos
	Services Services

	db           db.Service
	clients      *Clients
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)

	store, err := openDatabase(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init %s: %w", cfg.DBDriver, err)
	}
	if err := store.AutoMigrateAll(); err != nil {
		store.Close()
		log.Sync()
		return nil, fmt.Errorf("%s automigrate: %w", cfg.DBDriver, err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		store.Close()
		log.Sync()
		return nil, err
	}

	reposet := Repos{Records: repos.NewInsightRecordRepo(store.DB(), log)}
	serviceset := wireServices(log, cfg, reposet, clients)
	router := wireRouter(log, cfg, wireHandlers(serviceset))

	return &App{
		Log:          log,
		Cfg:          cfg,
		Router:       router,
		Repos:        reposet,
		Services:     serviceset,
		db:           store,
		clients:      clients,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	srv := &httpapi.Server{Engine: a.Router}
	a.Log.Info("Server listening", "port", a.Cfg.Port)
	return srv.Run(ctx, ":"+a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.clients != nil {
		a.clients.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
