package feed

import (
	"github.com/quantfeed/quantfeed/model"
)

// mergeEntry orders merged points: end time first, auxiliary ahead of main
// on ties so corporate actions take effect on the bar where they apply,
// then arrival order.
type mergeEntry struct {
	point  *model.DataPoint
	source int
	aux    bool
	seq    uint64
}

func (e *mergeEntry) Less(other model.Item) bool {
	o := other.(*mergeEntry)
	if !e.point.EndTimeUTC().Equal(o.point.EndTimeUTC()) {
		return e.point.EndTimeUTC().Before(o.point.EndTimeUTC())
	}
	if e.aux != o.aux {
		return e.aux
	}
	return e.seq < o.seq
}

// auxSynchronizer merges a main stream with its auxiliary streams
// (splits, dividends, delistings) in end-time order. Each source holds at
// most one buffered head in the queue; a source with nothing available yet
// simply does not compete this round.
type auxSynchronizer struct {
	sources []Enumerator // index 0 is the main stream
	heap    *model.PriorityQueue
	holding []bool
	done    []bool
	seq     uint64
	current *model.DataPoint
}

// NewAuxSynchronizer merges main with aux streams.
func NewAuxSynchronizer(main Enumerator, aux ...Enumerator) Enumerator {
	sources := append([]Enumerator{main}, aux...)
	return &auxSynchronizer{
		sources: sources,
		heap:    model.NewPriorityQueue(nil),
		holding: make([]bool, len(sources)),
		done:    make([]bool, len(sources)),
	}
}

func (s *auxSynchronizer) MoveNext() bool {
	for i, source := range s.sources {
		if s.done[i] || s.holding[i] {
			continue
		}
		if !source.MoveNext() {
			s.done[i] = true
			continue
		}
		if point := source.Current(); point != nil {
			s.seq++
			s.heap.Push(&mergeEntry{point: point, source: i, aux: i > 0, seq: s.seq})
			s.holding[i] = true
		}
	}

	if top := s.heap.Pop(); top != nil {
		entry := top.(*mergeEntry)
		s.holding[entry.source] = false
		s.current = entry.point
		return true
	}

	s.current = nil
	for _, done := range s.done {
		if !done {
			return true
		}
	}
	return false
}

func (s *auxSynchronizer) Current() *model.DataPoint { return s.current }

func (s *auxSynchronizer) Close() error {
	var first error
	for _, source := range s.sources {
		if err := source.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
