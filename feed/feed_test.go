package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/quantfeed/model"
)

func newTestFeed(t *testing.T, handler *fakeHandler) (*LiveFeed, *ManualTimeProvider) {
	t.Helper()
	feed := NewLiveFeed()
	t.Cleanup(feed.Exit)

	frontier := NewManualTimeProvider(time.Date(2020, 8, 31, 9, 31, 0, 0, time.UTC))
	settings := model.DefaultSettings()
	settings.CustomExchangeSleep = 2 * time.Millisecond

	err := feed.Initialize(&model.LiveJob{ID: "deploy-1", Live: true}, settings, Dependencies{
		Algorithm:    &fakeAlgorithm{},
		QueueHandler: handler,
		Channels:     fakeChannels{stream: true},
		Frontier:     frontier,
		Clock:        frontier,
	})
	require.NoError(t, err)
	return feed, frontier
}

func TestFeedInitializeRejectsNonLiveJob(t *testing.T) {
	feed := NewLiveFeed()
	err := feed.Initialize(&model.LiveJob{ID: "backtest"}, model.DefaultSettings(), Dependencies{QueueHandler: newFakeHandler()})
	assert.ErrorIs(t, err, ErrInvalidJob)

	err = feed.Initialize(nil, model.DefaultSettings(), Dependencies{QueueHandler: newFakeHandler()})
	assert.ErrorIs(t, err, ErrInvalidJob)
	assert.False(t, feed.IsActive())
}

func TestFeedInitializeExactlyOnce(t *testing.T) {
	handler := newFakeHandler()
	feed, _ := newTestFeed(t, handler)

	err := feed.Initialize(&model.LiveJob{ID: "again", Live: true}, model.DefaultSettings(), Dependencies{QueueHandler: handler})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.True(t, feed.IsActive())
}

func TestFeedCreateSubscriptionRequiresActive(t *testing.T) {
	feed := NewLiveFeed()
	_, err := feed.CreateSubscription(model.SubscriptionRequest{})
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestFeedCreateAndLookupSubscription(t *testing.T) {
	handler := newFakeHandler()
	feed, _ := newTestFeed(t, handler)

	config := equityConfig("AAPL", model.RegularEquityHours(time.UTC))
	sub, err := feed.CreateSubscription(model.SubscriptionRequest{Config: config, StartUTC: time.Now().UTC()})
	require.NoError(t, err)
	require.NotNil(t, sub)

	found, ok := feed.Subscription(config)
	assert.True(t, ok)
	assert.Same(t, sub, found)
	assert.Len(t, feed.Subscriptions(), 1)
}

func TestFeedRemoveSubscriptionStopsEmission(t *testing.T) {
	handler := newFakeHandler()
	feed, frontier := newTestFeed(t, handler)

	hours := model.AlwaysOpen(time.UTC)
	config := equityConfig("AAPL", hours)
	sub, err := feed.CreateSubscription(model.SubscriptionRequest{Config: config, StartUTC: frontier.NowUTC()})
	require.NoError(t, err)

	queue := handler.queue(config)
	require.NotNil(t, queue)
	queue.Enqueue(minuteBar("AAPL", frontier.NowUTC().Add(-2*time.Minute), 104))
	require.Len(t, pullReady(sub, 3), 1)

	feed.RemoveSubscription(sub)

	// The producer side is unsubscribed, including the derived aux feeds.
	assert.Len(t, handler.unsubscribed, 3)
	assert.Empty(t, feed.Subscriptions())

	// Zero further points after removal.
	queue.Enqueue(minuteBar("AAPL", frontier.NowUTC().Add(-time.Minute), 105))
	assert.False(t, sub.MoveNext())
	assert.Nil(t, sub.Current())
}

func TestFeedRemoveSubscriptionTwiceIsSafe(t *testing.T) {
	handler := newFakeHandler()
	feed, _ := newTestFeed(t, handler)

	config := equityConfig("AAPL", model.RegularEquityHours(time.UTC))
	sub, err := feed.CreateSubscription(model.SubscriptionRequest{Config: config})
	require.NoError(t, err)

	feed.RemoveSubscription(sub)
	unsubscribes := len(handler.unsubscribed)
	feed.RemoveSubscription(sub)
	assert.Equal(t, unsubscribes, len(handler.unsubscribed), "second removal is a no-op")
}

func TestFeedExitIsIdempotent(t *testing.T) {
	handler := newFakeHandler()
	feed, _ := newTestFeed(t, handler)

	config := equityConfig("AAPL", model.RegularEquityHours(time.UTC))
	sub, err := feed.CreateSubscription(model.SubscriptionRequest{Config: config})
	require.NoError(t, err)

	feed.Exit()
	feed.Exit()

	assert.False(t, feed.IsActive())
	assert.False(t, sub.MoveNext())
	assert.Empty(t, feed.Subscriptions())

	_, err = feed.CreateSubscription(model.SubscriptionRequest{Config: config})
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestFeedExitBeforeInitialize(t *testing.T) {
	feed := NewLiveFeed()
	feed.Exit()
	assert.False(t, feed.IsActive())
}

func TestFeedSubscriptionNotifierFires(t *testing.T) {
	handler := newFakeHandler()
	feed, frontier := newTestFeed(t, handler)

	config := equityConfig("AAPL", model.AlwaysOpen(time.UTC))
	sub, err := feed.CreateSubscription(model.SubscriptionRequest{Config: config})
	require.NoError(t, err)

	notified := make(chan struct{}, 4)
	sub.SetOnNewDataAvailable(func() { notified <- struct{}{} })

	handler.queue(config).Enqueue(minuteBar("AAPL", frontier.NowUTC().Add(-time.Minute), 104))

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("notifier did not fire on enqueue")
	}
}
