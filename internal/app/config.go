package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/video-insight-backend/internal/data/db"
	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
	insightmod "github.com/yungbote/video-insight-backend/internal/modules/insight"
	"github.com/yungbote/video-insight-backend/internal/observability"
	"github.com/yungbote/video-insight-backend/internal/platform/envutil"
	"github.com/yungbote/video-insight-backend/internal/platform/gemini"
	"github.com/yungbote/video-insight-backend/internal/platform/keylock"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
	"github.com/yungbote/video-insight-backend/internal/platform/openai"
	"github.com/yungbote/video-insight-backend/internal/platform/youtube"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	LogMode string
	Port    string

	DBDriver   string
	Postgres   db.PostgresConfig
	SQLitePath string

	// Redis.Addr empty means an in-process lock.
	Redis keylock.RedisConfig

	Provider string
	Gemini   gemini.Config
	OpenAI   openai.Config

	Captions youtube.CaptionConfig
	Pipeline insightmod.Config

	CORSOrigins []string
	Otel        observability.OtelConfig
}

// seedFromFile loads a flat YAML mapping of variable names to values and
// sets every variable that the environment leaves empty. ${VAR} references
// in the file are expanded against the environment first.
func seedFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	for k, v := range values {
		k = strings.TrimSpace(k)
		if k == "" || strings.TrimSpace(os.Getenv(k)) != "" {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("seed %s: %w", k, err)
		}
	}
	return nil
}

func LoadConfig(log *logger.Logger) (Config, error) {
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := seedFromFile(path); err != nil {
			return Config{}, fmt.Errorf("%w: %v", types.ErrConfiguration, err)
		}
		if log != nil {
			log.Info("Seeded environment from config file", "path", path)
		}
	}

	cfg := Config{
		LogMode: envutil.String("LOG_MODE", "development"),
		Port:    envutil.String("PORT", "8080"),

		DBDriver: strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres)),
		Postgres: db.PostgresConfig{
			DSN:      envutil.String("DATABASE_URL", ""),
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "video_insight"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			MaxConns: int32(envutil.Int("POSTGRES_MAX_CONNS", 10)),
		},
		SQLitePath: envutil.String("SQLITE_PATH", ""),

		Redis: keylock.RedisConfig{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Lease:    envutil.Seconds("LOCK_LEASE", 2*time.Minute),
		},

		Provider: strings.ToLower(envutil.String("GENERATION_PROVIDER", ProviderGemini)),
		Gemini: gemini.Config{
			APIKey:          envutil.String("GEMINI_API_KEY", ""),
			Model:           envutil.String("GEMINI_MODEL", gemini.DefaultModel),
			MaxOutputTokens: int32(envutil.Int("GEMINI_MAX_OUTPUT_TOKENS", 0)),
			MaxConcurrent:   int64(envutil.Int("GEMINI_MAX_CONCURRENCY", 4)),
		},
		OpenAI: openai.Config{
			APIKey:  envutil.String("OPENAI_API_KEY", ""),
			BaseURL: envutil.String("OPENAI_BASE_URL", ""),
			Model:   envutil.String("OPENAI_MODEL", openai.DefaultModel),
		},

		Captions: youtube.CaptionConfig{
			Language: envutil.String("CAPTION_LANG", "en"),
		},
		Pipeline: insightmod.Config{
			CaptionTimeout:    envutil.Seconds("CAPTION_TIMEOUT", 30*time.Second),
			GenerationTimeout: envutil.Seconds("GENERATION_TIMEOUT", 90*time.Second),
		},

		CORSOrigins: splitList(envutil.String("CORS_ALLOW_ORIGINS", "")),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "video-insight-backend"),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", ""),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
	}
	cfg.Captions.HTTPTimeout = cfg.Pipeline.CaptionTimeout

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing or unknown setting at once.
func (c Config) Validate() error {
	var problems []error
	switch c.Provider {
	case ProviderGemini:
		if strings.TrimSpace(c.Gemini.APIKey) == "" {
			problems = append(problems, errors.New("missing GEMINI_API_KEY"))
		}
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAI.APIKey) == "" {
			problems = append(problems, errors.New("missing OPENAI_API_KEY"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown GENERATION_PROVIDER %q", c.Provider))
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		problems = append(problems, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", types.ErrConfiguration, errors.Join(problems...))
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
