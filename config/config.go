package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Fetch      FetchConfig
	Browser    BrowserConfig
	Screenshot ScreenshotConfig
	Cache      CacheConfig
	Log        LogConfig
	Domains    DomainConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8000
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls static token authentication.
type AuthConfig struct {
	// Enabled toggles token authentication.
	Enabled bool // default: true

	// Tokens are the accepted bearer tokens. Empty means open access.
	Tokens []string
}

// RateLimitConfig controls per-token rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per token.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per token.
	Burst int // default: 5
}

// FetchConfig controls plain fetches and escalation.
type FetchConfig struct {
	// HTTPTimeout bounds a plain fetch. Clamped to 10s..20s.
	HTTPTimeout time.Duration // default: 15s

	// RequestTimeout bounds one whole extraction (fetch, render, screenshots).
	RequestTimeout time.Duration // default: 90s

	// EnableRendering allows escalation from plain to rendered mode.
	EnableRendering bool // default: true

	// LowContentThreshold is the rendered-text length below which the
	// trace records a possible block.
	LowContentThreshold int // default: 1000

	// DomainMemoryTTL is how long a host stays marked as needing rendering.
	DomainMemoryTTL time.Duration // default: 24h
}

// BrowserConfig controls the disposable browser sessions.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxSessions caps concurrent rendered sessions.
	MaxSessions int // default: 2

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is an optional proxy for the browser.
	Proxy string

	// PageLoadTimeout bounds navigation + DOMContentLoaded. Clamped to 10s..15s.
	PageLoadTimeout time.Duration // default: 15s

	// SettleDelay is the pause after load before reading the DOM. Clamped to 1s..3s.
	SettleDelay time.Duration // default: 2s

	// ScrollSettle is the pause after each scroll before a viewport capture.
	ScrollSettle time.Duration // default: 1s

	// BlockAds drops requests to known ad/tracking hosts.
	BlockAds bool // default: true
}

// ScreenshotConfig controls where captures go.
type ScreenshotConfig struct {
	// Mode is "file" or "base64".
	Mode string // default: "file"

	// Dir is the file-mode output directory.
	Dir string // default: "screenshots"

	// Retention is the age after which stored files are removed.
	Retention time.Duration // default: 168h

	// CleanupSchedule is the cron schedule of the retention sweep.
	// "off" disables it; files are still swept after each extraction.
	CleanupSchedule string // default: "@hourly"
}

// CacheConfig controls the scrape response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 500

	// RedisAddr switches the cache to a shared Redis instance
	// (host:port). Empty keeps the in-memory cache.
	RedisAddr     string
	RedisPassword string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DomainConfig restricts which hosts may be scraped through the API.
type DomainConfig struct {
	// Allowed is a list of host suffixes. Empty means any host.
	Allowed []string // default: ["mercadolivre.com.br"]
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching
// any .env file.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SHELFSCAN_HOST", "0.0.0.0"),
			Port: envIntOr("SHELFSCAN_PORT", 8000),
			Mode: envOr("SHELFSCAN_MODE", "release"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SHELFSCAN_AUTH_ENABLED", true),
			Tokens:  envSliceOr("SHELFSCAN_API_TOKENS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SHELFSCAN_RATE_RPS", 2.0),
			Burst:             envIntOr("SHELFSCAN_RATE_BURST", 5),
		},
		Fetch: FetchConfig{
			HTTPTimeout:         clamp(envDurationOr("SHELFSCAN_HTTP_TIMEOUT", 15*time.Second), 10*time.Second, 20*time.Second),
			RequestTimeout:      envDurationOr("SHELFSCAN_REQUEST_TIMEOUT", 90*time.Second),
			EnableRendering:     envBoolOr("SHELFSCAN_ENABLE_RENDERING", true),
			LowContentThreshold: envIntOr("SHELFSCAN_LOW_CONTENT_THRESHOLD", 1000),
			DomainMemoryTTL:     envDurationOr("SHELFSCAN_DOMAIN_MEMORY_TTL", 24*time.Hour),
		},
		Browser: BrowserConfig{
			Headless:        envBoolOr("SHELFSCAN_HEADLESS", true),
			MaxSessions:     envIntOr("SHELFSCAN_MAX_BROWSERS", 2),
			NoSandbox:       envBoolOr("SHELFSCAN_NO_SANDBOX", false),
			BrowserBin:      os.Getenv("SHELFSCAN_BROWSER_BIN"),
			Proxy:           os.Getenv("SHELFSCAN_PROXY"),
			PageLoadTimeout: clamp(envDurationOr("SHELFSCAN_PAGE_LOAD_TIMEOUT", 15*time.Second), 10*time.Second, 15*time.Second),
			SettleDelay:     clamp(envDurationOr("SHELFSCAN_SETTLE_DELAY", 2*time.Second), time.Second, 3*time.Second),
			ScrollSettle:    envDurationOr("SHELFSCAN_SCROLL_SETTLE", time.Second),
			BlockAds:        envBoolOr("SHELFSCAN_BLOCK_ADS", true),
		},
		Screenshot: ScreenshotConfig{
			Mode:            envOr("SHELFSCAN_SCREENSHOT_MODE", "file"),
			Dir:             envOr("SHELFSCAN_SCREENSHOT_DIR", "screenshots"),
			Retention:       envDurationOr("SHELFSCAN_SCREENSHOT_RETENTION", 7*24*time.Hour),
			CleanupSchedule: envOr("SHELFSCAN_SCREENSHOT_CLEANUP_SCHEDULE", "@hourly"),
		},
		Cache: CacheConfig{
			MaxEntries:    envIntOr("SHELFSCAN_CACHE_MAX_ENTRIES", 500),
			RedisAddr:     os.Getenv("SHELFSCAN_REDIS_ADDR"),
			RedisPassword: os.Getenv("SHELFSCAN_REDIS_PASSWORD"),
		},
		Log: LogConfig{
			Level:  envOr("SHELFSCAN_LOG_LEVEL", "info"),
			Format: envOr("SHELFSCAN_LOG_FORMAT", "json"),
		},
		Domains: DomainConfig{
			Allowed: envSliceOr("SHELFSCAN_ALLOWED_DOMAINS", []string{"mercadolivre.com.br"}),
		},
	}
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
