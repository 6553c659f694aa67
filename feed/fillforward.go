package feed

import (
	"time"

	"github.com/quantfeed/quantfeed/model"
)

// fillForward synthesizes bars during gaps by repeating the last real
// point with the next expected bar's timestamps. Bars outside market hours
// are skipped rather than filled (unless the subscription trades extended
// hours), and nothing is synthesized past the request's local end time.
//
// In live mode a gap is only declared once the clock passes the expected
// bar boundary, so a real bar that arrives before its boundary still wins.
type fillForward struct {
	upstream  Enumerator
	clock     TimeProvider
	increment time.Duration
	hours     *model.MarketHours
	extended  bool
	endLocal  time.Time

	previous  *model.DataPoint
	lookahead *model.DataPoint
	hasAhead  bool
	exhausted bool
	current   *model.DataPoint
}

// NewFillForwardEnumerator wraps upstream with gap synthesis. clock is the
// shared frontier provider; endLocal bounds synthesis (zero means no
// bound).
func NewFillForwardEnumerator(upstream Enumerator, clock TimeProvider, increment time.Duration, hours *model.MarketHours, extended bool, endLocal time.Time) Enumerator {
	return &fillForward{
		upstream:  upstream,
		clock:     clock,
		increment: increment,
		hours:     hours,
		extended:  extended,
		endLocal:  endLocal,
	}
}

func (f *fillForward) MoveNext() bool {
	if f.increment <= 0 {
		return f.passthrough()
	}

	next, ok := f.pull()
	if next != nil && next.IsAuxiliary() {
		// Corporate actions are never a fill basis and never wait.
		f.hasAhead = false
		f.current = next
		return true
	}

	if f.previous == nil {
		if next != nil {
			f.previous = next
			f.current = next
			return true
		}
		f.current = nil
		return ok
	}

	start, end := f.nextBar()

	if next != nil {
		if next.StartTime.Before(end) {
			f.hasAhead = false
			f.previous = next
			f.current = next
			return true
		}
		// Real data is past the expected slot: hold it and fill.
		f.lookahead = next
		f.hasAhead = true
		f.current = f.fill(start, end)
		return true
	}

	if !ok {
		f.current = nil
		return false
	}

	if !f.endLocal.IsZero() && end.After(f.endLocal) {
		f.current = nil
		return true
	}

	// No data yet: only fill once the boundary has actually elapsed.
	if f.clock != nil && !f.clock.NowUTC().Before(end.UTC()) {
		f.current = f.fill(start, end)
		return true
	}

	f.current = nil
	return true
}

// pull returns the next upstream point, honoring a held lookahead. The
// second result is false once the upstream ended.
func (f *fillForward) pull() (*model.DataPoint, bool) {
	if f.hasAhead {
		return f.lookahead, true
	}
	if f.exhausted {
		return nil, false
	}
	if !f.upstream.MoveNext() {
		f.exhausted = true
		return nil, false
	}
	return f.upstream.Current(), true
}

// nextBar computes the next expected bar window after the previous point,
// skipping closed sessions.
func (f *fillForward) nextBar() (start, end time.Time) {
	start = f.previous.EndTime
	if f.hours != nil && !f.hours.IsOpen(start, f.extended) {
		start = f.hours.NextOpen(start, f.extended)
	}
	return start, start.Add(f.increment)
}

func (f *fillForward) fill(start, end time.Time) *model.DataPoint {
	synthetic := f.previous.Clone(start, end)
	f.previous = synthetic
	return synthetic
}

func (f *fillForward) passthrough() bool {
	if !f.upstream.MoveNext() {
		f.current = nil
		return false
	}
	f.current = f.upstream.Current()
	return true
}

func (f *fillForward) Current() *model.DataPoint { return f.current }

func (f *fillForward) Close() error { return f.upstream.Close() }
