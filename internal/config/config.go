package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 4つのサービス（auth, user, post, like）は同じConfigを共有し、
// 待ち受けポートだけをサービスごとに切り替える。
type Config struct {
	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxLife  time.Duration

	// Token
	TokenSecret      string
	TokenTTL         time.Duration
	TokenRefreshHint time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitLike    int
	RedisURL         string

	// Server
	AuthPort string
	LikePort string
	PostPort string
	UserPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.TokenSecret = os.Getenv("SECRET_KEY_JWT")
	if cfg.TokenSecret == "" {
		missing = append(missing, "SECRET_KEY_JWT")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLife = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 420*time.Minute)
	cfg.TokenRefreshHint = getEnvDuration("TOKEN_REFRESH_HINT", 425*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLike = getEnvInt("RATE_LIMIT_LIKE", 30)
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.loadPorts()
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	if cfg.TokenRefreshHint < cfg.TokenTTL {
		return nil, fmt.Errorf("TOKEN_REFRESH_HINT (%s) must not be shorter than TOKEN_TTL (%s)", cfg.TokenRefreshHint, cfg.TokenTTL)
	}

	return cfg, nil
}

func (c *Config) loadPorts() {
	c.AuthPort = getEnvString("AUTH_PORT", "3001")
	c.LikePort = getEnvString("LIKE_PORT", "3002")
	c.PostPort = getEnvString("POST_PORT", "3003")
	c.UserPort = getEnvString("USER_PORT", "3004")
}

// ServicePort は必須変数を検証せずに、サービスの待ち受けポートだけを環境変数から読む。
func ServicePort(service string) string {
	cfg := &Config{}
	cfg.loadPorts()
	return cfg.PortFor(service)
}

// PortFor はサービス名に対応する待ち受けポートを返す。
// 未知のサービス名の場合は空文字を返す。
func (c *Config) PortFor(service string) string {
	switch service {
	case "auth":
		return c.AuthPort
	case "like":
		return c.LikePort
	case "post":
		return c.PostPort
	case "user":
		return c.UserPort
	default:
		return ""
	}
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
