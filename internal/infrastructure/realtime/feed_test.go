package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMemoryFeed_PublishNotifiesInOrder(t *testing.T) {
	feed := NewMemoryFeed(zap.NewNop())

	var calls []string
	_, err := feed.SubscribeToChanges("person", func() { calls = append(calls, "first") })
	require.NoError(t, err)
	_, err = feed.SubscribeToChanges("person", func() { calls = append(calls, "second") })
	require.NoError(t, err)
	_, err = feed.SubscribeToChanges("item", func() { calls = append(calls, "item") })
	require.NoError(t, err)

	require.NoError(t, feed.Publish(context.Background(), "person"))

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestMemoryFeed_Unsubscribe(t *testing.T) {
	feed := NewMemoryFeed(nil)
	called := 0
	sub, err := feed.SubscribeToChanges("item", func() { called++ })
	require.NoError(t, err)
	assert.Equal(t, 1, feed.SubscriberCount("item"))

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, feed.Publish(context.Background(), "item"))

	assert.Zero(t, called)
	assert.Zero(t, feed.SubscriberCount("item"))
}

func TestHub_RecoversSubscriberPanic(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	feed := NewMemoryFeed(zap.New(core))

	reached := false
	_, _ = feed.SubscribeToChanges("commitment", func() { panic("boom") })
	_, _ = feed.SubscribeToChanges("commitment", func() { reached = true })

	require.NoError(t, feed.Publish(context.Background(), "commitment"))

	assert.True(t, reached)
	assert.Equal(t, 1, recorded.FilterMessage("change subscriber panicked").Len())
}

func TestPostgresFeed_Handle(t *testing.T) {
	feed := newPostgresFeed(DefaultChannel, zap.NewNop())
	got := map[string]int{}
	_, _ = feed.SubscribeToChanges("person", func() { got["person"]++ })
	_, _ = feed.SubscribeToChanges("item", func() { got["item"]++ })

	feed.handle(&pq.Notification{Channel: DefaultChannel, Extra: "person"})
	feed.handle(&pq.Notification{Channel: DefaultChannel, Extra: "item:UPDATE"})
	feed.handle(&pq.Notification{Channel: DefaultChannel, Extra: ""})
	assert.Equal(t, map[string]int{"person": 1, "item": 1}, got)

	feed.handle(nil)
	assert.Equal(t, map[string]int{"person": 2, "item": 2}, got)
}

func TestPostgresFeed_RunLoop(t *testing.T) {
	feed := newPostgresFeed(DefaultChannel, zap.NewNop())
	notified := make(chan struct{}, 1)
	_, _ = feed.SubscribeToChanges("commitment", func() { notified <- struct{}{} })

	notify := make(chan *pq.Notification)
	ctx, cancel := context.WithCancel(context.Background())
	feed.cancel = cancel
	go feed.run(ctx, notify, time.Hour, func() error { return nil })

	notify <- &pq.Notification{Extra: "commitment"}
	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("subscriber not notified")
	}

	require.NoError(t, feed.Close())
	require.NoError(t, feed.Close())
}

func TestPostgresFeed_PublishIsNoop(t *testing.T) {
	feed := newPostgresFeed(DefaultChannel, zap.NewNop())
	called := false
	_, _ = feed.SubscribeToChanges("person", func() { called = true })

	require.NoError(t, feed.Publish(context.Background(), "person"))
	assert.False(t, called)
}

func TestRedisFeed_Handle(t *testing.T) {
	feed := newRedisFeed(nil, WithRedisChannel("irdash_changes"))
	assert.Equal(t, "irdash_changes", feed.channel)

	called := 0
	_, _ = feed.SubscribeToChanges("item", func() { called++ })
	feed.handle("item")
	feed.handle("")
	feed.handle("person")

	assert.Equal(t, 1, called)
}

func TestRedisFeed_Interface(t *testing.T) {
	var _ Feed = (*RedisFeed)(nil)
	var _ Feed = (*PostgresFeed)(nil)
	var _ Feed = (*MemoryFeed)(nil)
}
