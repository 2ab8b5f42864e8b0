package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Report        ReportConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
	MaxUploadMB        int
}

type ReportConfig struct {
	// ReferenceYear completes month/day sales dates that carry no year.
	ReferenceYear  int
	TopProducts    int
	ProgramToken   string
	ProgramChannel string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	ServiceName    string
}

// Load reads configuration from environment variables. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 20),
			AllowedOrigins:     getEnvAsList("SERVER_ALLOWED_ORIGINS", []string{"*"}),
			MaxUploadMB:        getEnvAsInt("SERVER_MAX_UPLOAD_MB", 32),
		},
		Report: ReportConfig{
			ReferenceYear:  getEnvAsInt("REPORT_REFERENCE_YEAR", 0),
			TopProducts:    getEnvAsInt("REPORT_TOP_PRODUCTS", 10),
			ProgramToken:   getEnv("REPORT_PROGRAM_TOKEN", "그로스"),
			ProgramChannel: getEnv("REPORT_PROGRAM_CHANNEL", "쿠팡 로켓그로스"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "channel-profit"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if c.Report.ReferenceYear < 1900 || c.Report.ReferenceYear > 9999 {
		return errors.New("REPORT_REFERENCE_YEAR is required (four-digit year)")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("SERVER_MAX_UPLOAD_MB must be positive")
	}
	if c.Server.RateLimitPerSecond <= 0 || c.Server.RateLimitBurst <= 0 {
		return errors.New("rate limit and burst must be positive")
	}
	return nil
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MaxUploadBytes returns the request body limit
func (c *ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
