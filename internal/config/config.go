package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config aggregates the service configuration.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Addr is derived from Port.
	Addr string
}

// StorageConfig selects the repository. An empty DatabasePath keeps
// everything in memory.
type StorageConfig struct {
	DatabasePath string `env:"DATABASE_PATH"`
}

// InMemory reports whether no database file is configured.
func (c StorageConfig) InMemory() bool {
	return strings.TrimSpace(c.DatabasePath) == ""
}

// AuthConfig configures bearer-token verification.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET,required,notEmpty"`
	Audience  string `env:"AUTH_JWT_AUDIENCE" envDefault:"authenticated"`
	Issuer    string `env:"AUTH_JWT_ISSUER"`
}

// DefaultAllowedOrigins is used when CORS_ALLOWED_ORIGINS is unset or empty:
// local dev servers plus the hosted frontend and its preview subdomains.
var DefaultAllowedOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
	"https://lovable.app",
	"https://*.lovable.app",
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string `env:"OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"interview-journey"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	addr, err := listenAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	cfg.CORS.AllowedOrigins = trimList(cfg.CORS.AllowedOrigins)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT value: %q", cfg.Log.Format)
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT value: %s", cfg.Server.ShutdownTimeout)
	}

	return &cfg, nil
}

// listenAddr turns PORT into a listen address. ":8080" or "127.0.0.1:8080"
// pass through unchanged; a bare port gets a ":" prefix.
func listenAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}
	if strings.Contains(port, ":") {
		return port, nil
	}
	return ":" + port, nil
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
