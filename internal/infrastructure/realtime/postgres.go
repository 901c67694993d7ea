package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultPingInterval = 90 * time.Second

// PostgresFeedConfig configures a PostgresFeed
type PostgresFeedConfig struct {
	DSN                  string
	Channel              string
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
	PingInterval         time.Duration
}

// PostgresFeed listens on a LISTEN/NOTIFY channel fed by row triggers. The
// notification payload is the table name.
type PostgresFeed struct {
	hub      *hub
	listener *pq.Listener
	channel  string
	logger   *zap.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewPostgresFeed connects a listener and starts dispatching notifications
// until Close.
func NewPostgresFeed(cfg PostgresFeedConfig, logger *zap.Logger) (*PostgresFeed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.MinReconnectInterval == 0 {
		cfg.MinReconnectInterval = 10 * time.Second
	}
	if cfg.MaxReconnectInterval == 0 {
		cfg.MaxReconnectInterval = time.Minute
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = defaultPingInterval
	}
	logger = logger.With(zap.String("channel", cfg.Channel))

	listener := pq.NewListener(cfg.DSN, cfg.MinReconnectInterval, cfg.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			switch ev {
			case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
				logger.Warn("change listener connection problem", zap.Error(err))
			case pq.ListenerEventReconnected:
				logger.Info("change listener reconnected")
			}
		})
	if err := listener.Listen(cfg.Channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to listen on %q: %w", cfg.Channel, err)
	}

	f := newPostgresFeed(cfg.Channel, logger)
	f.listener = listener
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.run(ctx, listener.NotificationChannel(), cfg.PingInterval, listener.Ping)

	logger.Info("listening for row changes")
	return f, nil
}

func newPostgresFeed(channel string, logger *zap.Logger) *PostgresFeed {
	return &PostgresFeed{
		hub:     newHub(logger),
		channel: channel,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (f *PostgresFeed) run(ctx context.Context, notify <-chan *pq.Notification, pingEvery time.Duration, ping func() error) {
	defer close(f.done)

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notify:
			if !ok {
				return
			}
			f.handle(n)
		case <-ticker.C:
			if err := ping(); err != nil {
				f.logger.Warn("change listener ping failed", zap.Error(err))
			}
		}
	}
}

// handle dispatches one notification. A nil notification follows a
// reconnect, so every collection is refreshed.
func (f *PostgresFeed) handle(n *pq.Notification) {
	if n == nil {
		f.logger.Debug("refreshing all collections after reconnect")
		f.hub.dispatchAll()
		return
	}
	collection, _, _ := strings.Cut(n.Extra, ":")
	collection = strings.TrimSpace(collection)
	if collection == "" {
		f.logger.Warn("ignoring notification without table name")
		return
	}
	f.logger.Debug("row change", zap.String("collection", collection))
	f.hub.dispatch(collection)
}

// SubscribeToChanges implements gateway.ChangeFeed
func (f *PostgresFeed) SubscribeToChanges(collection string, onChange func()) (gateway.Subscription, error) {
	return f.hub.subscribe(collection, onChange), nil
}

// Publish is a no-op: the row triggers emit the notification in the same
// transaction as the write.
func (f *PostgresFeed) Publish(context.Context, string) error { return nil }

// Close stops the dispatch loop and the listener
func (f *PostgresFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		if f.cancel != nil {
			f.cancel()
			<-f.done
		}
		if f.listener != nil {
			err = f.listener.Close()
		}
	})
	return err
}

var _ Feed = (*PostgresFeed)(nil)
