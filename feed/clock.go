package feed

import (
	"sync"
	"time"
)

// TimeProvider supplies "now". The frontier clock shared by every
// subscription is one of these; transformers only ever read it.
type TimeProvider interface {
	NowUTC() time.Time
}

// RealTimeProvider reads the system clock.
type RealTimeProvider struct{}

func (RealTimeProvider) NowUTC() time.Time {
	return time.Now().UTC()
}

// ManualTimeProvider is advanced by its owner. The zero value starts at the
// zero time; it never moves backwards.
type ManualTimeProvider struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualTimeProvider starts the clock at now.
func NewManualTimeProvider(now time.Time) *ManualTimeProvider {
	return &ManualTimeProvider{now: now.UTC()}
}

func (m *ManualTimeProvider) NowUTC() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// SetTime moves the clock forward to t. Earlier instants are ignored so the
// frontier stays monotonic.
func (m *ManualTimeProvider) SetTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.UTC().After(m.now) {
		m.now = t.UTC()
	}
}

// Advance moves the clock forward by d.
func (m *ManualTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now = m.now.Add(d)
	}
}

// PredicateTimeProvider wraps another provider and refuses to advance past
// an instant the predicate rejects. Used to keep universe selection from
// firing at illegal hours.
type PredicateTimeProvider struct {
	wrapped   TimeProvider
	predicate func(time.Time) bool

	mu       sync.Mutex
	approved time.Time
}

// NewPredicateTimeProvider gates wrapped behind predicate.
func NewPredicateTimeProvider(wrapped TimeProvider, predicate func(time.Time) bool) *PredicateTimeProvider {
	return &PredicateTimeProvider{wrapped: wrapped, predicate: predicate}
}

// NowUTC returns the wrapped time when the predicate approves the proposed
// instant, otherwise the last approved instant.
func (p *PredicateTimeProvider) NowUTC() time.Time {
	proposed := p.wrapped.NowUTC()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.predicate(proposed) {
		p.approved = proposed
	}
	return p.approved
}
