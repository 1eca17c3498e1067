// Package config defines the top-level configuration for the wingo engine
// and provides validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by WINGO_* environment variables.
type Config struct {
	Game     GameConfig     `toml:"game"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// GameConfig holds round timing and settlement parameters.
type GameConfig struct {
	// RoundSeconds is the total round duration T.
	RoundSeconds int `toml:"round_seconds"`
	// WindowSeconds is the betting window duration B; must be below
	// RoundSeconds.
	WindowSeconds int `toml:"window_seconds"`
	// SettleAttempts caps full settlement attempts per round.
	SettleAttempts int `toml:"settle_attempts"`
	// SettleBackoffMs is the base retry delay between attempts.
	SettleBackoffMs int `toml:"settle_backoff_ms"`
	// SettleTimeoutSeconds bounds one round's settlement including retries.
	SettleTimeoutSeconds int `toml:"settle_timeout_seconds"`
}

// RoundDuration returns the total round duration.
func (g GameConfig) RoundDuration() time.Duration {
	return time.Duration(g.RoundSeconds) * time.Second
}

// WindowDuration returns the betting window duration.
func (g GameConfig) WindowDuration() time.Duration {
	return time.Duration(g.WindowSeconds) * time.Second
}

// SettleBackoff returns the base retry delay.
func (g GameConfig) SettleBackoff() time.Duration {
	return time.Duration(g.SettleBackoffMs) * time.Millisecond
}

// SettleTimeout returns the per-round settlement deadline.
func (g GameConfig) SettleTimeout() time.Duration {
	return time.Duration(g.SettleTimeoutSeconds) * time.Second
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds the HTTP API parameters.
type ServerConfig struct {
	Port           int      `toml:"port"`
	CORSOrigins    []string `toml:"cors_origins"`
	APIKey         string   `toml:"api_key"`
	RateLimit      int      `toml:"rate_limit"`
	RateWindowSecs int      `toml:"rate_window_seconds"`
}

// RateWindow returns the rate-limit window duration.
func (s ServerConfig) RateWindow() time.Duration {
	return time.Duration(s.RateWindowSecs) * time.Second
}

// NotifyConfig holds operator alerting parameters.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	DiscordWebhook string   `toml:"discord_webhook"`
	Events         []string `toml:"events"`
}

// Defaults returns a Config with sensible development defaults: one-minute
// rounds with a 45-second betting window, local Postgres and Redis.
func Defaults() Config {
	return Config{
		Game: GameConfig{
			RoundSeconds:         60,
			WindowSeconds:        45,
			SettleAttempts:       3,
			SettleBackoffMs:      500,
			SettleTimeoutSeconds: 120,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "wingo",
			User:          "wingo",
			SSLMode:       "disable",
			PoolMaxConns:  8,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 8,
		},
		Server: ServerConfig{
			Port:           8080,
			RateLimit:      20,
			RateWindowSecs: 1,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies that would prevent
// the engine from operating correctly.
func (c *Config) Validate() error {
	if c.Game.RoundSeconds <= 0 {
		return fmt.Errorf("config: game.round_seconds must be positive")
	}
	if c.Game.WindowSeconds <= 0 {
		return fmt.Errorf("config: game.window_seconds must be positive")
	}
	if c.Game.WindowSeconds >= c.Game.RoundSeconds {
		return fmt.Errorf("config: game.window_seconds (%d) must be below game.round_seconds (%d)",
			c.Game.WindowSeconds, c.Game.RoundSeconds)
	}
	if c.Game.SettleAttempts < 1 {
		return fmt.Errorf("config: game.settle_attempts must be at least 1")
	}
	if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
		return fmt.Errorf("config: postgres requires either dsn or host/database/user")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
