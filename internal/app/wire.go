package app

import (
	"context"
	"fmt"
	"log/slog"

	redisc "github.com/luckypick/wingo/internal/cache/redis"
	"github.com/luckypick/wingo/internal/config"
	"github.com/luckypick/wingo/internal/domain"
	"github.com/luckypick/wingo/internal/notify"
	"github.com/luckypick/wingo/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application needs.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	WagerStore      domain.WagerStore
	ResultStore     domain.ResultStore
	UserStore       domain.UserStore
	SettlementStore domain.SettlementStore

	// Caches and messaging
	ResultCache domain.ResultCache
	EventBus    domain.EventBus
	RateLimiter domain.RateLimiter

	// Alerting
	Notifier *notify.Notifier

	// Raw clients, for health checks.
	Postgres *postgres.Client
	Redis    *redisc.Client
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pg, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pg.Close)

	if cfg.Postgres.RunMigrations {
		if err := pg.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: migrations: %w", err)
		}
	}

	rds, err := redisc.New(ctx, redisc.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = rds.Close() })

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}

	pool := pg.Pool()
	deps := &Dependencies{
		WagerStore:      postgres.NewWagerStore(pool),
		ResultStore:     postgres.NewResultStore(pool),
		UserStore:       postgres.NewUserStore(pool),
		SettlementStore: postgres.NewSettlementStore(pool),
		ResultCache:     redisc.NewResultCache(rds),
		EventBus:        redisc.NewEventBus(rds),
		RateLimiter:     redisc.NewRateLimiter(rds),
		Notifier:        notify.NewNotifier(senders, cfg.Notify.Events, logger),
		Postgres:        pg,
		Redis:           rds,
	}

	return deps, cleanup, nil
}
