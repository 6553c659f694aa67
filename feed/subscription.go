package feed

import (
	"sync"
	"sync/atomic"

	"github.com/quantfeed/quantfeed/model"
)

// Subscription owns one ordered iterator of data points aligned to its
// configuration. It is created by the factory, registered by the feed,
// drained by the algorithm's slice loop and closed exactly once on
// removal.
type Subscription struct {
	config  model.SubscriptionConfig
	request model.SubscriptionRequest
	offsets *model.TimeZoneOffsetProvider

	enum    Enumerator
	expired bool
	polled  bool

	closed    atomic.Bool
	closeOnce sync.Once

	notifyMu  sync.RWMutex
	onNewData func()
}

// Config returns the subscription's immutable configuration.
func (s *Subscription) Config() model.SubscriptionConfig { return s.config }

// Request returns the originating request.
func (s *Subscription) Request() model.SubscriptionRequest { return s.request }

// OffsetProvider returns the pre-computed time-zone offset provider.
func (s *Subscription) OffsetProvider() *model.TimeZoneOffsetProvider { return s.offsets }

// Expired reports whether the live branch was bypassed because the symbol
// delisted before today. Callers use it to tell "intentionally skipped"
// from "failed".
func (s *Subscription) Expired() bool { return s.expired }

// SetOnNewDataAvailable installs the new-data notifier slot.
func (s *Subscription) SetOnNewDataAvailable(fn func()) {
	s.notifyMu.Lock()
	s.onNewData = fn
	s.notifyMu.Unlock()
}

// notifyNewData fires the notifier slot. Producer callbacks call it, so it
// must stay safe during and after Close.
func (s *Subscription) notifyNewData() {
	if s.closed.Load() {
		return
	}
	s.notifyMu.RLock()
	fn := s.onNewData
	s.notifyMu.RUnlock()
	if fn != nil {
		fn()
	}
}

// MoveNext advances the pipeline. After Close it reports false forever.
func (s *Subscription) MoveNext() bool {
	if s.closed.Load() {
		return false
	}
	return s.enum.MoveNext()
}

// Current returns the pipeline head, nil when no data is ready.
func (s *Subscription) Current() *model.DataPoint {
	if s.closed.Load() {
		return nil
	}
	return s.enum.Current()
}

// Close disposes the iterator chain. Idempotent and safe to call while a
// producer callback is in flight.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.enum.Close()
	})
	return err
}
