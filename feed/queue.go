package feed

import (
	"sync"

	"github.com/quantfeed/quantfeed/model"
)

const defaultQueueCapacity = 1024

// EnumerableQueue bridges a push producer to the pull side of a pipeline.
// It is single-producer/single-consumer with a bounded buffer. Enqueue
// blocks when the buffer is full until space frees or the queue stops;
// points leave in the order they entered. An empty, running queue reports
// "no data right now" (MoveNext true, Current nil). After Stop, buffered
// points drain and then MoveNext returns false forever.
type EnumerableQueue struct {
	data     chan *model.DataPoint
	stopCh   chan struct{}
	stopOnce sync.Once
	onData   func()

	current *model.DataPoint
	done    bool

	errMu sync.Mutex
	err   error
}

// NewEnumerableQueue builds a queue with the given capacity (<=0 selects
// the default). onData, when non-nil, fires after each successful enqueue.
func NewEnumerableQueue(capacity int, onData func()) *EnumerableQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &EnumerableQueue{
		data:   make(chan *model.DataPoint, capacity),
		stopCh: make(chan struct{}),
		onData: onData,
	}
}

// Enqueue appends a point. It reports false when the queue has stopped, in
// which case the point is discarded.
func (q *EnumerableQueue) Enqueue(point *model.DataPoint) bool {
	select {
	case <-q.stopCh:
		return false
	default:
	}

	select {
	case q.data <- point:
	case <-q.stopCh:
		return false
	}

	if q.onData != nil {
		q.onData()
	}
	return true
}

// Stop marks the end of the stream. Safe to call any number of times, from
// any goroutine, including while a producer is mid-enqueue.
func (q *EnumerableQueue) Stop() {
	q.stopOnce.Do(func() { close(q.stopCh) })
}

// Fail records a one-shot producer error, stops the queue and fires the
// notifier so the consumer wakes up to observe it. Only the first call
// records its error and notifies.
func (q *EnumerableQueue) Fail(err error) {
	q.errMu.Lock()
	first := q.err == nil
	if first {
		q.err = err
	}
	q.errMu.Unlock()

	q.Stop()
	if first && q.onData != nil {
		q.onData()
	}
}

// Err returns the producer error recorded by Fail, if any.
func (q *EnumerableQueue) Err() error {
	q.errMu.Lock()
	defer q.errMu.Unlock()
	return q.err
}

// MoveNext is non-blocking. Single consumer only.
func (q *EnumerableQueue) MoveNext() bool {
	if q.done {
		q.current = nil
		return false
	}

	select {
	case point := <-q.data:
		q.current = point
		return true
	default:
	}

	select {
	case <-q.stopCh:
		// Drain anything that raced in ahead of the stop.
		select {
		case point := <-q.data:
			q.current = point
			return true
		default:
		}
		q.done = true
		q.current = nil
		return false
	default:
		q.current = nil
		return true
	}
}

func (q *EnumerableQueue) Current() *model.DataPoint { return q.current }

// Close stops the queue. Implements Enumerator.
func (q *EnumerableQueue) Close() error {
	q.Stop()
	return nil
}
