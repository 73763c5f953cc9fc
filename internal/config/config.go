// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	AppEnv         string
	LogLevel       slog.Level
	AllowedOrigins []string
	// TrustProxyHeaders enables X-Forwarded-For / X-Real-IP; only set it
	// behind a proxy that overwrites them.
	TrustProxyHeaders bool

	GroqAPIKey  string
	GroqBaseURL string
	Model       string // overrides the agent profile's model when set
	MaxTurns    int

	SessionTTL    time.Duration
	SweepInterval time.Duration

	RateLimit RateLimitConfig
	Tools     ToolsConfig

	MaxRequestBodySize int64
}

// RateLimitConfig bounds analysis submissions per session.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
	// PeerRequestsPerMinute caps all sessions from one client address.
	PeerRequestsPerMinute int
}

// ToolsConfig controls the outbound data clients used by agent tools.
type ToolsConfig struct {
	Timeout           time.Duration
	RequestsPerMinute int
	YahooBaseURL       string
	YahooCookieURL     string
	DuckDuckGoBaseURL  string
	DuckDuckGoSiteURL  string
	DuckDuckGoLinksURL string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       level,
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		GroqAPIKey:  getEnv("GROQ_API_KEY", ""),
		GroqBaseURL: getEnv("GROQ_BASE_URL", ""),
		Model:       getEnv("GROQ_MODEL", ""),
		MaxTurns:    getEnvInt("AGENT_MAX_TURNS", 10),

		SessionTTL:    getEnvDuration("SESSION_TTL", 60*time.Minute),
		SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),

		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 3),

			PeerRequestsPerMinute: getEnvInt("RATE_LIMIT_PER_PEER_PER_MINUTE", 30),
		},
		Tools: ToolsConfig{
			Timeout:            getEnvDuration("TOOL_TIMEOUT", 20*time.Second),
			RequestsPerMinute:  getEnvInt("TOOL_RATE_LIMIT_PER_MINUTE", 60),
			YahooBaseURL:       getEnv("YAHOO_BASE_URL", ""),
			YahooCookieURL:     getEnv("YAHOO_COOKIE_URL", ""),
			DuckDuckGoBaseURL:  getEnv("DUCKDUCKGO_BASE_URL", ""),
			DuckDuckGoSiteURL:  getEnv("DUCKDUCKGO_SITE_URL", ""),
			DuckDuckGoLinksURL: getEnv("DUCKDUCKGO_LINKS_URL", ""),
		},

		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
// GROQ_API_KEY is not required here: without it the UI still loads and
// reports the missing credential on submission.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.MaxTurns <= 0 {
		return fmt.Errorf("AGENT_MAX_TURNS must be > 0")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be > 0")
	}
	if c.RateLimit.PeerRequestsPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_PEER_PER_MINUTE must be > 0")
	}
	if c.Tools.Timeout <= 0 {
		return fmt.Errorf("TOOL_TIMEOUT must be > 0")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "" || c.AppEnv == "development"
}

// HasCredentials reports whether the model API key is configured.
func (c *Config) HasCredentials() bool {
	return strings.TrimSpace(c.GroqAPIKey) != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
