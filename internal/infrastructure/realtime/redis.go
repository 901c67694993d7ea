package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultCloseTimeout = 5 * time.Second

// RedisFeed fans change announcements out to every instance subscribed to the
// same Redis channel. A publishing instance also receives its own message.
type RedisFeed struct {
	hub        *hub
	client     *redis.Client
	ownsClient bool
	channel    string
	logger     *zap.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// RedisFeedOption configures a RedisFeed
type RedisFeedOption func(*RedisFeed)

// WithRedisChannel sets the Pub/Sub channel name
func WithRedisChannel(channel string) RedisFeedOption {
	return func(f *RedisFeed) {
		if channel != "" {
			f.channel = channel
		}
	}
}

// WithRedisLogger sets the logger
func WithRedisLogger(logger *zap.Logger) RedisFeedOption {
	return func(f *RedisFeed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewRedisFeed connects to Redis and subscribes to the channel. The feed owns
// the client.
func NewRedisFeed(ctx context.Context, opt *redis.Options, opts ...RedisFeedOption) (*RedisFeed, error) {
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	f, err := NewRedisFeedWithClient(ctx, client, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	f.ownsClient = true
	return f, nil
}

// NewRedisFeedWithClient subscribes with an existing client. The caller keeps
// ownership of the client.
func NewRedisFeedWithClient(ctx context.Context, client *redis.Client, opts ...RedisFeedOption) (*RedisFeed, error) {
	f := newRedisFeed(client, opts...)

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	pubsub := client.Subscribe(subCtx, f.channel)
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %q: %w", f.channel, err)
	}
	f.cancel = cancel
	go f.run(subCtx, pubsub)

	f.logger.Info("subscribed to change channel", zap.String("channel", f.channel))
	return f, nil
}

func newRedisFeed(client *redis.Client, opts ...RedisFeedOption) *RedisFeed {
	f := &RedisFeed{
		client:  client,
		channel: DefaultChannel,
		logger:  zap.NewNop(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.hub = newHub(f.logger)
	return f
}

func (f *RedisFeed) run(ctx context.Context, pubsub *redis.PubSub) {
	defer close(f.done)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				f.logger.Warn("change channel closed")
				return
			}
			f.handle(msg.Payload)
		}
	}
}

func (f *RedisFeed) handle(collection string) {
	if collection == "" {
		return
	}
	f.logger.Debug("row change", zap.String("collection", collection))
	f.hub.dispatch(collection)
}

// SubscribeToChanges implements gateway.ChangeFeed
func (f *RedisFeed) SubscribeToChanges(collection string, onChange func()) (gateway.Subscription, error) {
	return f.hub.subscribe(collection, onChange), nil
}

// Publish sends the collection name on the channel
func (f *RedisFeed) Publish(ctx context.Context, collection string) error {
	if err := f.client.Publish(ctx, f.channel, collection).Err(); err != nil {
		return fmt.Errorf("failed to publish change for %s: %w", collection, err)
	}
	return nil
}

// Close stops the subscription and, when owned, the client
func (f *RedisFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		if f.cancel != nil {
			f.cancel()
			select {
			case <-f.done:
			case <-time.After(defaultCloseTimeout):
				f.logger.Warn("timeout waiting for change subscription to stop")
			}
		}
		if f.ownsClient {
			err = f.client.Close()
		}
	})
	return err
}

var _ Feed = (*RedisFeed)(nil)
