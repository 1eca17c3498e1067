package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WINGO_* environment variable overrides, and
// returns the final Config. A missing file is not an error; defaults plus
// environment overrides apply. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WINGO_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Game ──
	setInt(&cfg.Game.RoundSeconds, "WINGO_GAME_ROUND_SECONDS")
	setInt(&cfg.Game.WindowSeconds, "WINGO_GAME_WINDOW_SECONDS")
	setInt(&cfg.Game.SettleAttempts, "WINGO_GAME_SETTLE_ATTEMPTS")
	setInt(&cfg.Game.SettleBackoffMs, "WINGO_GAME_SETTLE_BACKOFF_MS")
	setInt(&cfg.Game.SettleTimeoutSeconds, "WINGO_GAME_SETTLE_TIMEOUT_SECONDS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "WINGO_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "WINGO_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "WINGO_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "WINGO_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "WINGO_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "WINGO_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "WINGO_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "WINGO_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "WINGO_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "WINGO_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "WINGO_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WINGO_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WINGO_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "WINGO_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "WINGO_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "WINGO_REDIS_TLS_ENABLED")

	// ── Server ──
	setInt(&cfg.Server.Port, "WINGO_SERVER_PORT")
	setStrSlice(&cfg.Server.CORSOrigins, "WINGO_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "WINGO_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "WINGO_SERVER_RATE_LIMIT")
	setInt(&cfg.Server.RateWindowSecs, "WINGO_SERVER_RATE_WINDOW_SECONDS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "WINGO_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WINGO_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "WINGO_NOTIFY_DISCORD_WEBHOOK")
	setStrSlice(&cfg.Notify.Events, "WINGO_NOTIFY_EVENTS")

	setStr(&cfg.LogLevel, "WINGO_LOG_LEVEL")
}

func setStr(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStrSlice(dst *[]string, env string) {
	if v := os.Getenv(env); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}
