package feed

import (
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/exp/maps"

	"github.com/quantfeed/quantfeed/model"
	"github.com/quantfeed/quantfeed/tools/log"
)

// errorReporter is implemented by enumerators that can surface a terminal
// producer error after MoveNext returns false.
type errorReporter interface {
	Err() error
}

type exchangeEntry struct {
	symbol   string
	enum     Enumerator
	onData   func(*model.DataPoint)
	finished func()
	finOnce  sync.Once

	retry       *backoff.Backoff
	nextAttempt time.Time
}

func (e *exchangeEntry) finish() {
	if e.finished == nil {
		return
	}
	e.finOnce.Do(e.finished)
}

// CustomExchange advances slow and polled producers cooperatively on one
// shared worker. Every registered enumerator is pulled at most once per
// sleep interval; a yielded point goes to the entry's onData hook, end of
// stream fires its finished hook and drops the entry.
type CustomExchange struct {
	sleep time.Duration

	mu      sync.Mutex
	entries map[string]*exchangeEntry

	startOnce sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// NewCustomExchange builds an exchange polling at the given interval (<=0
// selects the 100ms default).
func NewCustomExchange(sleep time.Duration) *CustomExchange {
	if sleep <= 0 {
		sleep = 100 * time.Millisecond
	}
	return &CustomExchange{
		sleep:   sleep,
		entries: make(map[string]*exchangeEntry),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Add registers an enumerator for symbol. onData receives each yielded
// point; finished fires once when the stream ends or the exchange stops.
func (c *CustomExchange) Add(symbol string, enum Enumerator, onData func(*model.DataPoint), finished func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = &exchangeEntry{
		symbol:   symbol,
		enum:     enum,
		onData:   onData,
		finished: finished,
		retry:    &backoff.Backoff{Min: c.sleep, Max: time.Minute, Factor: 2, Jitter: true},
	}
}

// Remove drops the entry for symbol without firing its finished hook.
func (c *CustomExchange) Remove(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, symbol)
}

// Start launches the worker. Subsequent calls are no-ops.
func (c *CustomExchange) Start() {
	c.startOnce.Do(func() {
		go c.run()
	})
}

// Stop halts the worker and fires every remaining entry's finished hook
// exactly once. It drains no data. Idempotent; returns after the worker
// exits.
func (c *CustomExchange) Stop() {
	c.stopOnce.Do(func() {
		close(c.quit)
	})
	c.Start() // a never-started exchange still needs done closed
	<-c.done

	c.mu.Lock()
	entries := maps.Values(c.entries)
	c.entries = make(map[string]*exchangeEntry)
	c.mu.Unlock()

	for _, entry := range entries {
		entry.finish()
	}
}

func (c *CustomExchange) run() {
	defer close(c.done)
	ticker := time.NewTicker(c.sleep)
	defer ticker.Stop()

	for {
		select {
		case <-c.quit:
			return
		case now := <-ticker.C:
			c.poll(now)
		}
	}
}

func (c *CustomExchange) poll(now time.Time) {
	c.mu.Lock()
	entries := maps.Values(c.entries)
	c.mu.Unlock()

	for _, entry := range entries {
		if now.Before(entry.nextAttempt) {
			continue
		}
		if finished := c.pull(entry); finished {
			entry.finish()
			c.Remove(entry.symbol)
		}
	}
}

// pull advances one entry, reporting whether its stream finished. A
// panicking enumerator is logged and retried after a backoff delay.
func (c *CustomExchange) pull(entry *exchangeEntry) (finished bool) {
	defer func() {
		if r := recover(); r != nil {
			delay := entry.retry.Duration()
			entry.nextAttempt = time.Now().Add(delay)
			log.WithField("symbol", entry.symbol).
				Errorf("custom exchange: pull panicked, retrying in %s: %v", delay, r)
			finished = false
		}
	}()

	if !entry.enum.MoveNext() {
		if reporter, ok := entry.enum.(errorReporter); ok {
			if err := reporter.Err(); err != nil {
				log.WithField("symbol", entry.symbol).Errorf("custom exchange: producer failed: %v", err)
			}
		}
		return true
	}

	entry.retry.Reset()
	if point := entry.enum.Current(); point != nil && entry.onData != nil {
		entry.onData(point)
	}
	return false
}
