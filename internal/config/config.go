package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis。空の場合スヌーズはPostgreSQLに保存する
	RedisURL string

	// Session
	SessionCookieName string

	// Subscription
	FreePlanSubscriptionLimit int
	SnoozeDefaultDays         int

	// Rescan
	RescanInterval      time.Duration
	RescanMaxConcurrent int

	// Snooze cleanup
	SnoozeCleanupInterval time.Duration

	// Link probe
	LinkProbeTimeout time.Duration
	LinkProbeMaxSize int64

	// Rate Limit
	RateLimitGeneral  int
	RateLimitFeedback int

	// Logging
	LogLevel string

	// Server
	ServerPort        string
	BaseURL           string
	WorkerMetricsPort string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.SessionCookieName = getEnvString("SESSION_COOKIE_NAME", "session_id")
	cfg.FreePlanSubscriptionLimit = getEnvInt("FREE_PLAN_SUBSCRIPTION_LIMIT", 5)
	cfg.SnoozeDefaultDays = getEnvInt("SNOOZE_DEFAULT_DAYS", 7)
	cfg.RescanInterval = getEnvDuration("RESCAN_INTERVAL", time.Hour)
	cfg.RescanMaxConcurrent = getEnvInt("RESCAN_MAX_CONCURRENT", 10)
	cfg.SnoozeCleanupInterval = getEnvDuration("SNOOZE_CLEANUP_INTERVAL", 24*time.Hour)
	cfg.LinkProbeTimeout = getEnvDuration("LINK_PROBE_TIMEOUT", 10*time.Second)
	cfg.LinkProbeMaxSize = getEnvInt64("LINK_PROBE_MAX_SIZE", 1048576)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitFeedback = getEnvInt("RATE_LIMIT_FEEDBACK", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.WorkerMetricsPort = getEnvString("WORKER_METRICS_PORT", "9091")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.RescanMaxConcurrent <= 0 {
		return nil, fmt.Errorf("RESCAN_MAX_CONCURRENT must be positive: %d", cfg.RescanMaxConcurrent)
	}
	if cfg.RateLimitGeneral <= 0 || cfg.RateLimitFeedback <= 0 {
		return nil, fmt.Errorf("rate limits must be positive: general=%d feedback=%d", cfg.RateLimitGeneral, cfg.RateLimitFeedback)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
