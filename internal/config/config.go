// Package config は環境変数からアプリケーション設定を読み込む。
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

// DefaultEnvFile は起動時に読み込む.envファイルのパス。
const DefaultEnvFile = ".env"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Generation
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// Settings document (/api/get-settings)
	SettingsGistID    string
	SettingsGistFile  string
	SettingsGistToken string
	GistAPIBaseURL    string

	// Storage
	DatabaseURL string
	CacheFile   string

	// Session
	SessionMaxAge int

	// Remote fetch
	RemoteFetchTimeout time.Duration
	RemoteMaxSize      int64

	// Rate Limit (req/min)
	RateLimitGeneral  int
	RateLimitGenerate int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は.envファイル（存在する場合）と環境変数からConfigを読み込む。
func Load() (*Config, error) {
	return LoadFrom(DefaultEnvFile)
}

// LoadFrom は指定した.envファイルを読み込んだうえで環境変数からConfigを読み込む。
// 既に設定されている環境変数は.envの値で上書きしない。ファイルが存在しない場合は無視する。
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getEnvString("GEMINI_MODEL", "gemini-2.5-flash")
	cfg.GeminiBaseURL = getEnvString("GEMINI_BASE_URL", "")
	cfg.SettingsGistID = getEnvString("SETTINGS_GIST_ID", "")
	cfg.SettingsGistFile = getEnvString("SETTINGS_GIST_FILE", "")
	cfg.SettingsGistToken = getEnvString("SETTINGS_GIST_TOKEN", "")
	cfg.GistAPIBaseURL = getEnvString("GIST_API_BASE_URL", "https://api.github.com")
	cfg.DatabaseURL = getEnvString("DATABASE_URL", "")
	cfg.CacheFile = getEnvString("CACHE_FILE", "data/cache.json")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.RemoteFetchTimeout = getEnvDuration("REMOTE_FETCH_TIMEOUT", 10*time.Second)
	cfg.RemoteMaxSize = getEnvInt64("REMOTE_MAX_SIZE", 5242880)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitGenerate = getEnvInt("RATE_LIMIT_GENERATE", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var invalid []string
	if c.SessionMaxAge <= 0 {
		invalid = append(invalid, "SESSION_MAX_AGE")
	}
	if c.RateLimitGeneral <= 0 {
		invalid = append(invalid, "RATE_LIMIT_GENERAL")
	}
	if c.RateLimitGenerate <= 0 {
		invalid = append(invalid, "RATE_LIMIT_GENERATE")
	}
	if c.RemoteMaxSize <= 0 {
		invalid = append(invalid, "REMOTE_MAX_SIZE")
	}
	if c.RemoteFetchTimeout <= 0 {
		invalid = append(invalid, "REMOTE_FETCH_TIMEOUT")
	}
	if len(invalid) > 0 {
		return fmt.Errorf("environment variables must be positive: %v", invalid)
	}
	return nil
}

// UsesDatabase はPostgreSQLを使う構成かどうかを返す。
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
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
