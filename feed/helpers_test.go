package feed

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/quantfeed/quantfeed/model"
	"github.com/quantfeed/quantfeed/service"
)

// bar builds a one-increment trade bar starting at start.
func bar(symbol string, start time.Time, increment time.Duration, close float64) *model.DataPoint {
	return &model.DataPoint{
		Symbol:    symbol,
		StartTime: start,
		EndTime:   start.Add(increment),
		Value:     model.TradeBar{Open: close, High: close, Low: close, Close: close},
	}
}

func minuteBar(symbol string, start time.Time, close float64) *model.DataPoint {
	return bar(symbol, start, time.Minute, close)
}

func equityConfig(symbol string, hours *model.MarketHours) model.SubscriptionConfig {
	return model.SubscriptionConfig{
		Symbol:       symbol,
		SecurityType: model.SecurityTypeEquity,
		DataType:     model.DataTypeTradeBar,
		Resolution:   model.ResolutionMinute,
		ExchangeTZ:   hours.TZ,
		DataTZ:       hours.TZ,
		Hours:        hours,
	}
}

// drain pulls the enumerator to exhaustion, dropping nil ticks.
func drain(e Enumerator) []*model.DataPoint {
	var points []*model.DataPoint
	for e.MoveNext() {
		if p := e.Current(); p != nil {
			points = append(points, p)
		}
	}
	return points
}

// pullReady pulls at most n times, collecting the non-nil points that are
// ready right now.
func pullReady(e Enumerator, n int) []*model.DataPoint {
	var points []*model.DataPoint
	for i := 0; i < n && e.MoveNext(); i++ {
		if p := e.Current(); p != nil {
			points = append(points, p)
		}
	}
	return points
}

// fakeHandler is an in-memory queue handler: every subscribed config gets
// its own bounded queue the test pushes into.
type fakeHandler struct {
	mu           sync.Mutex
	queues       map[string]*EnumerableQueue
	unsubscribed []string
	failFor      map[string]error
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{
		queues:  make(map[string]*EnumerableQueue),
		failFor: make(map[string]error),
	}
}

func (h *fakeHandler) Subscribe(config model.SubscriptionConfig, notifier func()) (service.Enumerator, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err, ok := h.failFor[config.Key()]; ok {
		return nil, err
	}
	queue := NewEnumerableQueue(0, notifier)
	h.queues[config.Key()] = queue
	return queue, nil
}

func (h *fakeHandler) Unsubscribe(config model.SubscriptionConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribed = append(h.unsubscribed, config.Key())
	delete(h.queues, config.Key())
	return nil
}

func (h *fakeHandler) queue(config model.SubscriptionConfig) *EnumerableQueue {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.queues[config.Key()]
}

// fakeUniverseHandler adds the universe capability.
type fakeUniverseHandler struct {
	*fakeHandler
	contracts []string
}

func (h *fakeUniverseHandler) LookupSymbols(symbol string, at time.Time) ([]string, error) {
	return h.contracts, nil
}

type fakeChannels struct {
	stream bool
}

func (c fakeChannels) ShouldStream(model.SubscriptionConfig) bool { return c.stream }

type fakeMapFiles struct {
	files map[string]model.MapFile
}

func (m fakeMapFiles) Resolve(config model.SubscriptionConfig) (model.MapFile, error) {
	file, ok := m.files[config.Symbol]
	if !ok {
		return model.MapFile{}, errors.New("not found")
	}
	return file, nil
}

type fakeFactorFiles struct {
	files map[string]model.FactorFile
}

func (f fakeFactorFiles) Resolve(config model.SubscriptionConfig) (model.FactorFile, error) {
	file, ok := f.files[config.Symbol]
	if !ok {
		return model.FactorFile{}, errors.New("not found")
	}
	return file, nil
}

type fakeHistory struct {
	points   []*model.DataPoint
	err      error
	requests []model.SubscriptionRequest
}

func (h *fakeHistory) GetHistory(requests []model.SubscriptionRequest, tz *time.Location) ([]*model.DataPoint, error) {
	h.requests = append(h.requests, requests...)
	return h.points, h.err
}

type fakeAlgorithm struct {
	warmingUp bool
	history   service.HistoryProvider
}

func (a *fakeAlgorithm) IsWarmingUp() bool                        { return a.warmingUp }
func (a *fakeAlgorithm) HistoryProvider() service.HistoryProvider { return a.history }
func (a *fakeAlgorithm) TimeZone() *time.Location                 { return time.UTC }

type fakeCustomFactory struct {
	enum service.Enumerator
	err  error
}

func (f fakeCustomFactory) CreateEnumerator(model.SubscriptionRequest) (service.Enumerator, error) {
	return f.enum, f.err
}
