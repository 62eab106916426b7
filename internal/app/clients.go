package app

import (
	"context"
	"fmt"

	"github.com/yungbote/video-insight-backend/internal/data/db"
	insightmod "github.com/yungbote/video-insight-backend/internal/modules/insight"
	"github.com/yungbote/video-insight-backend/internal/platform/gemini"
	"github.com/yungbote/video-insight-backend/internal/platform/keylock"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
	"github.com/yungbote/video-insight-backend/internal/platform/openai"
	"github.com/yungbote/video-insight-backend/internal/platform/youtube"
)

// generator is what both pipeline and analyzer need from a provider.
type generator interface {
	insightmod.Generator
	insightmod.ModelGenerator
}

type Clients struct {
	Captions      *youtube.CaptionSource
	Gen           generator
	AllowedModels []string
	Locker        keylock.Locker

	closers []func()
}

func (c *Clients) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func openDatabase(ctx context.Context, log *logger.Logger, cfg Config) (db.Service, error) {
	if cfg.DBDriver == DriverSQLite {
		svc, err := db.NewSQLiteService(log, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
	svc, err := db.NewPostgresService(ctx, log, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func wireClients(log *logger.Logger, cfg Config) (*Clients, error) {
	out := &Clients{
		Captions: youtube.NewCaptionSource(log, cfg.Captions),
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		cli, err := openai.New(log, cfg.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("init openai: %w", err)
		}
		out.Gen = cli
		out.AllowedModels = []string{cli.Model()}
	default:
		cli, err := gemini.New(log, cfg.Gemini)
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		out.Gen = cli
		out.AllowedModels = gemini.AllowedModels
		out.closers = append(out.closers, func() { _ = cli.Close() })
	}

	if cfg.Redis.Addr != "" {
		rl, err := keylock.NewRedis(log, cfg.Redis)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("init redis lock: %w", err)
		}
		out.Locker = rl
		out.closers = append(out.closers, func() { _ = rl.Close() })
		log.Info("Using redis key lock", "addr", cfg.Redis.Addr)
	} else {
		out.Locker = keylock.NewLocal()
		log.Info("Using in-process key lock")
	}
	return out, nil
}
