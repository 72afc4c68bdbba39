package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/smallbiznis/followup/pkg/db"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	NodeID      int64

	HTTPAddr string

	LogLevel  string
	LogFormat string

	// OTelEnabled defaults to true in production.
	OTelEnabled       bool
	OTLPEndpoint      string
	OTLPProtocol      string
	OTelSamplingRatio float64

	DB db.Config

	// SchedulerConfigPath overrides the search path for scheduler.yml.
	SchedulerConfigPath string
	// SchedulerEnabled turns the recurring call loop off for API-only replicas.
	SchedulerEnabled bool

	RedisURL     string
	TickLockTTL  time.Duration
	FacilityFile string
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(func(cfg Config) db.Config { return cfg.DB }),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	return Config{
		AppName:     getenv("APP_SERVICE", "followup"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		NodeID:      getenvInt64("NODE_ID", 1),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		LogLevel:  strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat: strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),

		OTelEnabled:       getenvBool("OTEL_ENABLED", strings.EqualFold(environment, "production")),
		OTLPEndpoint:      strings.TrimSpace(getenv("OTLP_ENDPOINT", "localhost:4318")),
		OTLPProtocol:      strings.ToLower(strings.TrimSpace(getenv("OTLP_PROTOCOL", "http"))),
		OTelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),

		DB: db.Config{
			Type:            getenv("DATABASE_TYPE", db.TypePostgres),
			Host:            getenv("DATABASE_HOST", "localhost"),
			Port:            getenv("DATABASE_PORT", "5432"),
			Name:            getenv("DATABASE_NAME", "followup"),
			User:            getenv("DATABASE_USER", "postgres"),
			Password:        getenv("DATABASE_PASSWORD", ""),
			SSLMode:         getenv("DATABASE_SSLMODE", "disable"),
			Path:            getenv("DATABASE_PATH", "followup.db"),
			MaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
			MaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
			ConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
			ConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		},

		SchedulerConfigPath: strings.TrimSpace(getenv("SCHEDULER_CONFIG_PATH", "")),
		SchedulerEnabled:    getenvBool("SCHEDULER_ENABLED", true),

		RedisURL:     strings.TrimSpace(getenv("REDIS_URL", "")),
		TickLockTTL:  getenvDuration("SCHEDULER_TICK_LOCK_TTL", 30*time.Second),
		FacilityFile: strings.TrimSpace(getenv("FACILITY_CONFIG_PATH", "")),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
