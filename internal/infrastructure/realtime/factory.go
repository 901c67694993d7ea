package realtime

import (
	"context"
	"fmt"

	"github.com/irdash/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FeedFactory creates the change feed selected by configuration
type FeedFactory struct {
	realtime config.RealtimeConfig
	gateway  config.GatewayConfig
	redis    config.RedisConfig
	logger   *zap.Logger

	// overridable in tests
	newPostgres func(PostgresFeedConfig, *zap.Logger) (Feed, error)
	newRedis    func(context.Context, *redis.Options, ...RedisFeedOption) (Feed, error)
}

// NewFeedFactory creates a factory from configuration
func NewFeedFactory(cfg *config.Config, logger *zap.Logger) *FeedFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedFactory{
		realtime: cfg.Realtime,
		gateway:  cfg.Gateway,
		redis:    cfg.Redis,
		logger:   logger.Named("realtime"),
		newPostgres: func(c PostgresFeedConfig, l *zap.Logger) (Feed, error) {
			return NewPostgresFeed(c, l)
		},
		newRedis: func(ctx context.Context, o *redis.Options, opts ...RedisFeedOption) (Feed, error) {
			return NewRedisFeed(ctx, o, opts...)
		},
	}
}

// Create builds the configured feed. When it cannot be reached and
// FallbackToMemory is set, an in-process feed is returned instead.
func (f *FeedFactory) Create(ctx context.Context) (Feed, error) {
	feed, err := f.create(ctx)
	if err == nil {
		return feed, nil
	}
	if !f.realtime.FallbackToMemory {
		return nil, err
	}
	f.logger.Warn("change feed unavailable, using in-memory feed",
		zap.String("driver", f.realtime.Driver),
		zap.Error(err),
	)
	return NewMemoryFeed(f.logger), nil
}

func (f *FeedFactory) create(ctx context.Context) (Feed, error) {
	switch f.realtime.Driver {
	case "memory":
		return NewMemoryFeed(f.logger), nil
	case "postgres":
		if !f.gateway.IsConfigured() {
			return nil, fmt.Errorf("postgres change feed requires a configured gateway")
		}
		return f.newPostgres(PostgresFeedConfig{
			DSN:                  f.gateway.DSN(),
			Channel:              f.realtime.Channel,
			MinReconnectInterval: f.realtime.MinReconnectInterval,
			MaxReconnectInterval: f.realtime.MaxReconnectInterval,
		}, f.logger)
	case "redis":
		return f.newRedis(ctx, &redis.Options{
			Addr:     f.redis.Addr(),
			Password: f.redis.Password,
			DB:       f.redis.DB,
		}, WithRedisChannel(f.realtime.Channel), WithRedisLogger(f.logger))
	default:
		return nil, fmt.Errorf("unknown realtime driver %q", f.realtime.Driver)
	}
}
