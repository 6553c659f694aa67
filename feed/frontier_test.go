package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario: the frontier is frozen at T while the producer delivers a bar
// ending at T+1s. The consumer sees "no data" until the frontier moves
// past the bar's end time.
func TestFrontierGateHoldsFutureData(t *testing.T) {
	frontier := NewManualTimeProvider(time.Date(2020, 8, 31, 9, 31, 0, 0, time.UTC))
	q := NewEnumerableQueue(4, nil)
	gate := NewFrontierGate(q, frontier)

	point := minuteBar("AAPL", time.Date(2020, 8, 31, 9, 30, 1, 0, time.UTC), 104) // ends T+1s
	q.Enqueue(point)

	for i := 0; i < 3; i++ {
		require.True(t, gate.MoveNext())
		assert.Nil(t, gate.Current(), "no data while the frontier lags")
	}

	frontier.Advance(2 * time.Second)
	require.True(t, gate.MoveNext())
	assert.Same(t, point, gate.Current())

	// Exactly once.
	require.True(t, gate.MoveNext())
	assert.Nil(t, gate.Current())
}

func TestFrontierGateNeverEmitsFuturePoints(t *testing.T) {
	frontier := NewManualTimeProvider(time.Date(2020, 8, 31, 9, 35, 0, 0, time.UTC))
	start := time.Date(2020, 8, 31, 9, 30, 0, 0, time.UTC)

	q := NewEnumerableQueue(16, nil)
	for i := 0; i < 10; i++ {
		q.Enqueue(minuteBar("AAPL", start.Add(time.Duration(i)*time.Minute), float64(i)))
	}
	gate := NewFrontierGate(q, frontier)

	for i := 0; i < 20; i++ {
		require.True(t, gate.MoveNext())
		if p := gate.Current(); p != nil {
			assert.False(t, p.EndTimeUTC().After(frontier.NowUTC()))
		}
	}
}

func TestFrontierGatePropagatesEndOfStream(t *testing.T) {
	frontier := NewManualTimeProvider(time.Now())
	q := NewEnumerableQueue(4, nil)
	gate := NewFrontierGate(q, frontier)

	q.Stop()
	assert.False(t, gate.MoveNext())
}
