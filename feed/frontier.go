package feed

import "github.com/quantfeed/quantfeed/model"

// frontierGate suspends emission while the head point's end time is ahead
// of the shared frontier clock. It never blocks: a held point surfaces as a
// nil tick until the frontier catches up, so no stage downstream ever sees
// a future instant.
type frontierGate struct {
	upstream Enumerator
	frontier TimeProvider
	pending  *model.DataPoint
	current  *model.DataPoint
}

// NewFrontierGate wraps upstream behind the frontier clock.
func NewFrontierGate(upstream Enumerator, frontier TimeProvider) Enumerator {
	return &frontierGate{upstream: upstream, frontier: frontier}
}

func (g *frontierGate) MoveNext() bool {
	if g.pending == nil {
		if !g.upstream.MoveNext() {
			g.current = nil
			return false
		}
		g.pending = g.upstream.Current()
	}

	if g.pending == nil || g.pending.EndTimeUTC().After(g.frontier.NowUTC()) {
		g.current = nil
		return true
	}

	g.current = g.pending
	g.pending = nil
	return true
}

func (g *frontierGate) Current() *model.DataPoint { return g.current }

func (g *frontierGate) Close() error { return g.upstream.Close() }
