package feed

import (
	"github.com/quantfeed/quantfeed/model"
)

// collectionAggregator packages consecutive points sharing an end time into
// a single container keyed by the universe symbol. Universe selection wants
// the whole snapshot at once, not a trickle.
type collectionAggregator struct {
	upstream Enumerator
	symbol   string

	group     []*model.DataPoint
	lookahead *model.DataPoint
	hasAhead  bool
	exhausted bool
	current   *model.DataPoint
}

// NewCollectionAggregator wraps upstream, grouping same-end-time runs under
// symbol.
func NewCollectionAggregator(upstream Enumerator, symbol string) Enumerator {
	return &collectionAggregator{upstream: upstream, symbol: symbol}
}

func (a *collectionAggregator) MoveNext() bool {
	for {
		point, ok := a.pull()
		if point == nil {
			// The upstream paused or ended: flush whatever was collected.
			if len(a.group) > 0 {
				a.current = a.flush()
				return true
			}
			a.current = nil
			return ok
		}

		if _, already := point.Value.(model.PointCollection); already && len(a.group) == 0 {
			// Snapshot sources deliver pre-packaged collections.
			a.current = point
			return true
		}

		if len(a.group) > 0 && !point.EndTime.Equal(a.group[0].EndTime) {
			a.lookahead = point
			a.hasAhead = true
			a.current = a.flush()
			return true
		}
		a.group = append(a.group, point)
	}
}

func (a *collectionAggregator) pull() (*model.DataPoint, bool) {
	if a.hasAhead {
		a.hasAhead = false
		return a.lookahead, true
	}
	if a.exhausted {
		return nil, false
	}
	if !a.upstream.MoveNext() {
		a.exhausted = true
		return nil, false
	}
	return a.upstream.Current(), true
}

func (a *collectionAggregator) flush() *model.DataPoint {
	points := a.group
	a.group = nil
	return &model.DataPoint{
		Symbol:    a.symbol,
		StartTime: points[0].StartTime,
		EndTime:   points[0].EndTime,
		Value:     model.PointCollection{Symbol: a.symbol, Points: points},
	}
}

func (a *collectionAggregator) Current() *model.DataPoint { return a.current }

func (a *collectionAggregator) Close() error { return a.upstream.Close() }
