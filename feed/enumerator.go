package feed

import (
	"github.com/quantfeed/quantfeed/model"
	"github.com/quantfeed/quantfeed/service"
	"github.com/quantfeed/quantfeed/tools/log"
)

// Enumerator is the pull interface shared by every stage. See
// service.Enumerator for the nil-Current convention.
type Enumerator = service.Enumerator

// sliceEnumerator drains a fixed slice. Used for warmup replays and for the
// empty stand-in of expired symbols.
type sliceEnumerator struct {
	points  []*model.DataPoint
	current *model.DataPoint
}

// NewSliceEnumerator returns an enumerator over points.
func NewSliceEnumerator(points []*model.DataPoint) Enumerator {
	return &sliceEnumerator{points: points}
}

// NewEmptyEnumerator returns an already-exhausted enumerator.
func NewEmptyEnumerator() Enumerator {
	return &sliceEnumerator{}
}

func (e *sliceEnumerator) MoveNext() bool {
	if len(e.points) == 0 {
		e.current = nil
		return false
	}
	e.current = e.points[0]
	e.points = e.points[1:]
	return true
}

func (e *sliceEnumerator) Current() *model.DataPoint { return e.current }

func (e *sliceEnumerator) Close() error {
	e.points = nil
	e.current = nil
	return nil
}

// filterEnumerator passes only points matching the predicate. Nil ticks
// pass through so live upstreams keep their "no data yet" signal.
type filterEnumerator struct {
	upstream Enumerator
	match    func(*model.DataPoint) bool
	current  *model.DataPoint
}

// NewFilterEnumerator wraps upstream with a predicate filter.
func NewFilterEnumerator(upstream Enumerator, match func(*model.DataPoint) bool) Enumerator {
	return &filterEnumerator{upstream: upstream, match: match}
}

func (e *filterEnumerator) MoveNext() bool {
	for e.upstream.MoveNext() {
		point := e.upstream.Current()
		if point == nil || e.match(point) {
			e.current = point
			return true
		}
	}
	e.current = nil
	return false
}

func (e *filterEnumerator) Current() *model.DataPoint { return e.current }

func (e *filterEnumerator) Close() error { return e.upstream.Close() }

// closeHook runs a hook after the wrapped enumerator closes, used to pair
// a producer-side unsubscribe with the consumer-side close.
type closeHook struct {
	Enumerator
	hook func()
}

// NewCloseHook wraps upstream so Close also fires hook.
func NewCloseHook(upstream Enumerator, hook func()) Enumerator {
	return &closeHook{Enumerator: upstream, hook: hook}
}

func (c *closeHook) Close() error {
	err := c.Enumerator.Close()
	c.hook()
	return err
}

// concatEnumerator drains enumerators left to right. Exhausted stages are
// closed as they finish, except the last one: once reached, the live tail
// drives the stream and is never closed or reverted from.
type concatEnumerator struct {
	stages  []Enumerator
	index   int
	current *model.DataPoint
}

// NewConcatEnumerator chains stages sequentially.
func NewConcatEnumerator(stages ...Enumerator) Enumerator {
	return &concatEnumerator{stages: stages}
}

func (e *concatEnumerator) MoveNext() bool {
	for e.index < len(e.stages) {
		stage := e.stages[e.index]
		if stage.MoveNext() {
			e.current = stage.Current()
			return true
		}
		if e.index == len(e.stages)-1 {
			break
		}
		if err := stage.Close(); err != nil {
			log.WithField("stage", e.index).Warnf("concat: close failed: %v", err)
		}
		e.index++
	}
	e.current = nil
	return false
}

func (e *concatEnumerator) Current() *model.DataPoint { return e.current }

// Close closes the remaining stages, including the live tail. Only the
// owning subscription calls it.
func (e *concatEnumerator) Close() error {
	var first error
	for ; e.index < len(e.stages); e.index++ {
		if err := e.stages[e.index].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
