package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// minSessionSecretLen はHS256署名鍵として受け付ける最小バイト長。
const minSessionSecretLen = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	BackendURL       string
	BackendTimeout   time.Duration
	AIBackendTimeout time.Duration

	// Session
	SessionSecret string
	SessionMaxAge int

	// Rate Limit (req/min/user)
	RateLimitGeneral int
	RateLimitAI      int

	// Image proxy
	ImageProxyTimeout time.Duration
	ImageProxyMaxSize int64

	// Revocation
	RedisURL            string
	RevocationSweepSpec string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既存の環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(cfg.SessionSecret) < minSessionSecretLen {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLen)
	}

	// Optional fields with defaults
	cfg.BackendURL = strings.TrimRight(getEnvString("BACKEND_URL", "http://localhost:8000"), "/")
	cfg.BackendTimeout = getEnvDuration("BACKEND_TIMEOUT", 15*time.Second)
	cfg.AIBackendTimeout = getEnvDuration("AI_BACKEND_TIMEOUT", 90*time.Second)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 2592000)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAI = getEnvInt("RATE_LIMIT_AI", 10)
	cfg.ImageProxyTimeout = getEnvDuration("IMAGE_PROXY_TIMEOUT", 10*time.Second)
	cfg.ImageProxyMaxSize = getEnvInt64("IMAGE_PROXY_MAX_SIZE", 5242880)
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.RevocationSweepSpec = getEnvString("REVOCATION_SWEEP_SPEC", "@every 10m")
	cfg.ServerPort = getEnvString("SERVER_PORT", "3000")
	cfg.BaseURL = strings.TrimRight(getEnvString("BASE_URL", "http://localhost:3000"), "/")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.BaseURL)

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
