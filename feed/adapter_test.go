package feed

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/quantfeed/model"
)

func TestAdapterEquitySubscribesAuxiliaryStreams(t *testing.T) {
	loc := time.UTC
	hours := model.RegularEquityHours(loc)
	config := equityConfig("AAPL", hours)

	handler := newFakeHandler()
	adapter := NewQueueHandlerAdapter(handler)

	enum, err := adapter.Subscribe(config, nil)
	require.NoError(t, err)
	require.NotNil(t, enum)

	assert.Len(t, handler.queues, 3, "main + split + dividend")

	// The merged stream orders the split ahead of the same-bar trade.
	end := time.Date(2020, 8, 31, 9, 30, 0, 0, loc)
	trade := &model.DataPoint{Symbol: "AAPL", StartTime: end.Add(-time.Minute), EndTime: end, Value: model.TradeBar{Close: 499}}
	split := &model.DataPoint{Symbol: "AAPL", StartTime: end, EndTime: end, Value: model.Split{Factor: 0.25}}

	handler.queue(config).Enqueue(trade)
	splitConfig := auxConfigs(config)[0]
	handler.queue(splitConfig).Enqueue(split)

	require.True(t, enum.MoveNext())
	assert.Same(t, split, enum.Current())
	require.True(t, enum.MoveNext())
	assert.Same(t, trade, enum.Current())
}

func TestAdapterInternalFeedSkipsAuxiliary(t *testing.T) {
	config := equityConfig("AAPL", model.RegularEquityHours(time.UTC))
	config.IsInternalFeed = true

	handler := newFakeHandler()
	adapter := NewQueueHandlerAdapter(handler)

	_, err := adapter.Subscribe(config, nil)
	require.NoError(t, err)
	assert.Len(t, handler.queues, 1)
}

func TestAdapterNonEquitySkipsAuxiliary(t *testing.T) {
	config := model.SubscriptionConfig{
		Symbol:       "BTCUSD",
		SecurityType: model.SecurityTypeCrypto,
		DataType:     model.DataTypeTradeBar,
		Resolution:   model.ResolutionMinute,
	}

	handler := newFakeHandler()
	adapter := NewQueueHandlerAdapter(handler)

	_, err := adapter.Subscribe(config, nil)
	require.NoError(t, err)
	assert.Len(t, handler.queues, 1)
}

func TestAdapterRollsBackOnAuxiliaryFailure(t *testing.T) {
	config := equityConfig("AAPL", model.RegularEquityHours(time.UTC))
	handler := newFakeHandler()
	handler.failFor[auxConfigs(config)[0].Key()] = errors.New("split feed unavailable")
	adapter := NewQueueHandlerAdapter(handler)

	_, err := adapter.Subscribe(config, nil)
	require.Error(t, err)
	assert.Contains(t, handler.unsubscribed, config.Key())
}

func TestAdapterUnsubscribeRemovesDerivedConfigs(t *testing.T) {
	config := equityConfig("AAPL", model.RegularEquityHours(time.UTC))
	handler := newFakeHandler()
	adapter := NewQueueHandlerAdapter(handler)

	_, err := adapter.Subscribe(config, nil)
	require.NoError(t, err)
	require.NoError(t, adapter.Unsubscribe(config))

	assert.Len(t, handler.unsubscribed, 3)
	assert.Contains(t, handler.unsubscribed, config.Key())
	for _, aux := range auxConfigs(config) {
		assert.Contains(t, handler.unsubscribed, aux.Key())
	}
}

func TestAdapterUniverseCapability(t *testing.T) {
	plain := NewQueueHandlerAdapter(newFakeHandler())
	_, ok := plain.UniverseProvider()
	assert.False(t, ok)

	capable := NewQueueHandlerAdapter(&fakeUniverseHandler{fakeHandler: newFakeHandler()})
	_, ok = capable.UniverseProvider()
	assert.True(t, ok)
}
