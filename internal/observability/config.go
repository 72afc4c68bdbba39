package observability

import (
	"strings"

	"github.com/smallbiznis/followup/internal/config"
)

// Config is the slice of the daemon configuration the logger, tracer and
// meter providers share.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "followup"
	}
	ratio := cfg.OTelSamplingRatio
	if ratio < 0 || ratio > 1 {
		ratio = 1
	}
	return Config{
		ServiceName:          name,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             cfg.LogLevel,
		LogFormat:            cfg.LogFormat,
		OtelEnabled:          cfg.OTelEnabled && cfg.OTLPEndpoint != "",
		OtelExporterEndpoint: cfg.OTLPEndpoint,
		OtelExporterProtocol: cfg.OTLPProtocol,
		OtelSamplingRatio:    ratio,
	}
}

// Debug turns on stack traces on error logs and gin debug mode.
func (c Config) Debug() bool {
	if strings.EqualFold(c.LogLevel, "debug") {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
