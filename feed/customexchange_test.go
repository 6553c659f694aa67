package feed

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/quantfeed/model"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestCustomExchangeDeliversPoints(t *testing.T) {
	start := time.Date(2020, 8, 31, 9, 30, 0, 0, time.UTC)
	source := NewSliceEnumerator([]*model.DataPoint{
		minuteBar("SPY", start, 1),
		minuteBar("SPY", start.Add(time.Minute), 2),
	})

	exchange := NewCustomExchange(5 * time.Millisecond)
	defer exchange.Stop()

	var received atomic.Int32
	var finished atomic.Int32
	exchange.Add("SPY", source, func(*model.DataPoint) { received.Add(1) }, func() { finished.Add(1) })
	exchange.Start()

	waitFor(t, time.Second, func() bool { return received.Load() == 2 && finished.Load() == 1 })
}

// Scenario: two polled subscriptions are live when the feed exits. The
// worker stops promptly and each bridge queue receives exactly one stop.
func TestCustomExchangeStopFiresFinishedOnce(t *testing.T) {
	exchange := NewCustomExchange(5 * time.Millisecond)

	first := NewEnumerableQueue(4, nil)  // never-ending polled sources
	second := NewEnumerableQueue(4, nil) // (empty queues yield nil ticks forever)
	firstBridge := NewEnumerableQueue(4, nil)
	secondBridge := NewEnumerableQueue(4, nil)

	var firstStops, secondStops atomic.Int32
	exchange.Add("A", first, func(p *model.DataPoint) { firstBridge.Enqueue(p) }, func() { firstStops.Add(1); firstBridge.Stop() })
	exchange.Add("B", second, func(p *model.DataPoint) { secondBridge.Enqueue(p) }, func() { secondStops.Add(1); secondBridge.Stop() })
	exchange.Start()

	done := make(chan struct{})
	go func() {
		exchange.Stop()
		exchange.Stop() // idempotent
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("exchange did not stop in time")
	}

	assert.Equal(t, int32(1), firstStops.Load())
	assert.Equal(t, int32(1), secondStops.Load())
	assert.False(t, firstBridge.MoveNext())
	assert.False(t, secondBridge.MoveNext())
}

func TestCustomExchangeRemoveKeepsFinishedUnfired(t *testing.T) {
	exchange := NewCustomExchange(5 * time.Millisecond)
	defer exchange.Stop()

	var finished atomic.Int32
	exchange.Add("SPY", NewEnumerableQueue(4, nil), nil, func() { finished.Add(1) })
	exchange.Remove("SPY")
	exchange.Start()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), finished.Load())
}

// panickingEnumerator blows up on its first pulls, then recovers.
type panickingEnumerator struct {
	panics  int
	point   *model.DataPoint
	current *model.DataPoint
}

func (p *panickingEnumerator) MoveNext() bool {
	if p.panics > 0 {
		p.panics--
		panic("transient source error")
	}
	p.current = p.point
	p.point = nil
	return true
}

func (p *panickingEnumerator) Current() *model.DataPoint { return p.current }
func (p *panickingEnumerator) Close() error              { return nil }

func TestCustomExchangeRetainsPanickingEntry(t *testing.T) {
	exchange := NewCustomExchange(time.Millisecond)
	defer exchange.Stop()

	source := &panickingEnumerator{panics: 1, point: minuteBar("SPY", time.Now(), 1)}
	var received atomic.Int32
	exchange.Add("SPY", source, func(*model.DataPoint) { received.Add(1) }, nil)
	exchange.Start()

	waitFor(t, time.Second, func() bool { return received.Load() == 1 })
}

func TestCustomExchangeLogsTerminalProducerError(t *testing.T) {
	exchange := NewCustomExchange(time.Millisecond)
	defer exchange.Stop()

	failing := NewEnumerableQueue(4, nil)
	failing.Fail(assert.AnError)

	var finished atomic.Int32
	exchange.Add("SPY", failing, nil, func() { finished.Add(1) })
	exchange.Start()

	waitFor(t, time.Second, func() bool { return finished.Load() == 1 })
	require.Error(t, failing.Err())
}
