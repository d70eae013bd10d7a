package app

import (
	"strings"
	"time"

	"github.com/dagra27407/spinalith-site-sub000/internal/data/db"
	"github.com/dagra27407/spinalith-site-sub000/internal/jobs/sweeper"
	"github.com/dagra27407/spinalith-site-sub000/internal/modules/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/observability"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/envutil"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
	"github.com/dagra27407/spinalith-site-sub000/internal/temporalx"
)

const (
	RouterModeHTTP     = "http"
	RouterModeTemporal = "temporal"
)

type Config struct {
	Port    string
	LogMode string

	DB db.Config

	JWTSecretKey    string
	ServiceTokenTTL time.Duration

	StageBaseURL     string
	ParseResponseURL string
	RouterMode       string
	RouterTimeout    time.Duration

	Poll            assistant.PollConfig
	ProviderTimeout time.Duration
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AzureAPIKey     string
	AnthropicAPIKey string
	LogicKey        string
	SeedMappings    bool
	RecorderQueue   int

	RegistryPath string

	RedisAddr    string
	RedisChannel string

	Temporal  temporalx.Config
	RunWorker bool

	SweeperEnabled bool
	Sweeper        sweeper.Config

	CORSOrigins []string
	MetricsAddr string
	ServiceName string
	Environment string
	Otel        observability.OtelConfig
	Metrics     observability.MetricsConfig
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:    envutil.String("PORT", "8080"),
		LogMode: envutil.String("LOG_MODE", "development"),

		DB: db.Config{
			Driver:     envutil.String("DB_DRIVER", "postgres"),
			Host:       envutil.String("POSTGRES_HOST", "localhost"),
			Port:       envutil.String("POSTGRES_PORT", "5432"),
			User:       envutil.String("POSTGRES_USER", "postgres"),
			Password:   envutil.String("POSTGRES_PASSWORD", ""),
			Name:       envutil.String("POSTGRES_NAME", "spinalith"),
			SQLitePath: envutil.String("SQLITE_PATH", "spinalith.db"),
		},

		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", ""),
		ServiceTokenTTL: envutil.Seconds("SERVICE_TOKEN_TTL_SECONDS", 5*time.Minute),

		StageBaseURL:     envutil.String("STAGE_BASE_URL", ""),
		ParseResponseURL: envutil.String("PARSE_RESPONSE_URL", ""),
		RouterMode:       strings.ToLower(envutil.String("ROUTER_MODE", RouterModeHTTP)),
		RouterTimeout:    envutil.Seconds("ROUTER_TIMEOUT_SECONDS", 10*time.Minute),

		Poll: assistant.PollConfig{
			Interval:    envutil.Millis("POLL_INTERVAL_MS", 2*time.Second),
			MaxAttempts: envutil.Int("POLL_MAX_ATTEMPTS", 20),
			Timeout:     envutil.Seconds("POLL_TIMEOUT_SECONDS", 60*time.Second),
		},
		ProviderTimeout: envutil.Seconds("PROVIDER_TIMEOUT_SECONDS", 60*time.Second),
		OpenAIAPIKey:    envutil.String("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   strings.TrimRight(envutil.String("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
		AzureAPIKey:     envutil.String("AZURE_OPENAI_API_KEY", ""),
		AnthropicAPIKey: envutil.String("ANTHROPIC_API_KEY", ""),
		LogicKey:        envutil.String("ASSISTANT_LOGIC_KEY", assistant.DefaultLogicKey),
		SeedMappings:    envutil.Bool("SEED_PHASE_MAPPINGS", true),
		RecorderQueue:   envutil.Int("ACTIVITY_QUEUE_SIZE", 1024),

		RegistryPath: envutil.String("ASSISTANT_REGISTRY_PATH", ""),

		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		RedisChannel: envutil.String("REDIS_CHANNEL", ""),

		Temporal:  temporalx.LoadConfig(),
		RunWorker: envutil.Bool("RUN_WORKER", true),

		SweeperEnabled: envutil.Bool("SWEEPER_ENABLED", false),
		Sweeper: sweeper.Config{
			Interval:    envutil.Seconds("SWEEPER_INTERVAL_SECONDS", 30*time.Second),
			StaleAfter:  envutil.Seconds("SWEEPER_STALE_SECONDS", 5*time.Minute),
			Concurrency: envutil.Int("SWEEPER_CONCURRENCY", 4),
			BatchSize:   envutil.Int("SWEEPER_BATCH_SIZE", 100),
		},

		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		MetricsAddr: envutil.String("METRICS_ADDR", ""),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "spinalith-assistant"),
		Environment: envutil.String("APP_ENV", "development"),
	}
	cfg.Metrics = observability.MetricsConfig{
		Enabled:             envutil.Bool("METRICS_ENABLED", false),
		SLOLatencyThreshold: envutil.Float("SLO_API_LATENCY_THRESHOLD_SECONDS", 0.5),
	}
	cfg.Otel = observability.OtelConfig{
		Enabled:     envutil.Bool("OTEL_ENABLED", false),
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     envutil.String("APP_VERSION", ""),
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Headers:     envutil.Pairs("OTEL_EXPORTER_OTLP_HEADERS"),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
	}

	if cfg.RouterMode != RouterModeHTTP && cfg.RouterMode != RouterModeTemporal {
		if log != nil {
			log.Warn("unknown ROUTER_MODE; using http", "router_mode", cfg.RouterMode)
		}
		cfg.RouterMode = RouterModeHTTP
	}
	if cfg.RouterMode == RouterModeHTTP && cfg.StageBaseURL == "" {
		cfg.StageBaseURL = "http://localhost:" + cfg.Port
	}
	if log != nil {
		if cfg.JWTSecretKey == "" {
			log.Warn("JWT_SECRET_KEY not set; every stage call will be rejected")
		}
		if cfg.ParseResponseURL == "" {
			log.Warn("PARSE_RESPONSE_URL not set; parse-response hops will fail to dispatch")
		}
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
