// Package bootstrap assembles the gateway, authenticator and dashboard from
// configuration. The server and the CLI share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/investor"
	"github.com/irdash/backend/internal/infrastructure/auth"
	"github.com/irdash/backend/internal/infrastructure/config"
	"github.com/irdash/backend/internal/infrastructure/logger"
	"github.com/irdash/backend/internal/infrastructure/persistence"
	"github.com/irdash/backend/internal/infrastructure/realtime"
	"github.com/irdash/backend/internal/infrastructure/telemetry"
)

// Runtime is the connected backend of one process.
type Runtime struct {
	Gateway       gateway.Gateway
	Authenticator gateway.Authenticator
	// Store and Users are nil when the gateway is not configured.
	Store *persistence.GormGateway
	Users *auth.PasswordAuthenticator

	closers []func() error
}

// Configured reports whether a real gateway is attached.
func (r *Runtime) Configured() bool {
	return r.Store != nil
}

// Close releases connections in reverse order of opening.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Open connects the gateway described by cfg. An unconfigured gateway is
// not an error: every data operation then fails with a configuration error
// and sessions read as signed out. mp and tp may be nil.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger, mp *telemetry.MeterProvider, tp *telemetry.TracerProvider) (*Runtime, error) {
	if !cfg.Gateway.IsConfigured() {
		log.Warn("gateway is not configured; serving without data",
			zap.String("hint", "set IRDASH_GATEWAY_URL and IRDASH_GATEWAY_KEY"))
		return &Runtime{Gateway: gateway.Unconfigured{}, Authenticator: gateway.Unconfigured{}}, nil
	}

	rt := &Runtime{}
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	var dbOpts []persistence.DatabaseOption
	if tp.IsEnabled() {
		dbOpts = append(dbOpts, persistence.WithTracing(tp.Provider()))
	}
	db, err := persistence.NewDatabase(&cfg.Gateway, gormLog, dbOpts...)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, db.Close)
	log.Info("gateway database connected")

	feed, err := realtime.NewFeedFactory(cfg, log).Create(ctx)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("failed to create change feed: %w", err)
	}
	rt.closers = append(rt.closers, feed.Close)

	rt.Store = persistence.NewGormGateway(db.DB, feed, persistence.WithGatewayLogger(log))
	rt.Gateway = rt.Store
	if mp != nil && mp.IsEnabled() {
		instrumented, err := telemetry.NewInstrumentedGateway(rt.Store, mp)
		if err != nil {
			log.Warn("gateway metrics disabled", zap.Error(err))
		} else {
			rt.Gateway = instrumented
		}
	}

	rt.Users = auth.NewPasswordAuthenticator(db.DB, auth.NewSessionTokens(cfg.JWT), blacklist(ctx, rt, cfg, log), log)
	rt.Authenticator = rt.Users
	return rt, nil
}

// blacklist shares revoked tokens through redis when redis already carries
// the change feed, and keeps them in memory otherwise.
func blacklist(ctx context.Context, rt *Runtime, cfg *config.Config, log *zap.Logger) auth.TokenBlacklist {
	if cfg.Realtime.Driver != "redis" {
		return auth.NewInMemoryTokenBlacklist()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, revoked sessions are kept in memory", zap.Error(err))
		_ = client.Close()
		return auth.NewInMemoryTokenBlacklist()
	}
	rt.closers = append(rt.closers, client.Close)
	return auth.NewRedisTokenBlacklist(client)
}

// DashboardOptions translates the dashboard section of cfg.
func DashboardOptions(cfg *config.Config, log *zap.Logger) []dashboard.Option {
	return []dashboard.Option{
		dashboard.WithLogger(log),
		dashboard.WithFetchTimeout(cfg.Dashboard.FetchTimeout),
		dashboard.WithFetchOrdering(dashboard.ParseFetchOrdering(cfg.Dashboard.FetchOrdering)),
		dashboard.WithMemberTypePolicy(investor.MemberTypePolicy{
			Default: investor.DefaultMemberTypePolicy.Parse(cfg.Dashboard.DefaultMemberType),
		}),
		dashboard.WithSessionIdle(cfg.Dashboard.SessionIdle),
	}
}

// NewDashboard creates a dashboard from cfg and starts it on rt.Gateway.
// Start errors are not returned: each cache records its own failure and a
// later change notification may still recover it.
func NewDashboard(ctx context.Context, rt *Runtime, cfg *config.Config, log *zap.Logger) *dashboard.Dashboard {
	opts := DashboardOptions(cfg, log)
	dash := dashboard.NewDashboard(dashboard.NewVolumeStreamRegistry(opts...), opts...)
	_ = dash.Start(ctx, rt.Gateway)
	return dash
}
