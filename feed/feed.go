package feed

import (
	"sync"

	"github.com/StudioSol/set"

	"github.com/quantfeed/quantfeed/customdata"
	"github.com/quantfeed/quantfeed/model"
	"github.com/quantfeed/quantfeed/service"
	"github.com/quantfeed/quantfeed/tools/log"
)

// State is the feed lifecycle position.
type State int

const (
	StateNew State = iota
	StateActive
	StateStopping
	StateStopped
)

// Dependencies carries the external collaborators resolved by the host.
type Dependencies struct {
	Algorithm         service.Algorithm
	QueueHandler      service.DataQueueHandler
	Channels          service.ChannelProvider
	MapFiles          service.MapFileProvider
	FactorFiles       service.FactorFileProvider
	DataProvider      service.DataProvider
	HistoricalFactory service.HistoricalFeedFactory
	CustomFactory     CustomEnumeratorFactory

	// Frontier is the shared frontier clock. Clock is the wall clock used
	// for expiry and warmup decisions; both default to the system clock.
	Frontier TimeProvider
	Clock    TimeProvider
}

// LiveFeed holds the subscription set and coordinates start and stop. The
// host calls the lifecycle methods serially.
type LiveFeed struct {
	mu       sync.Mutex
	state    State
	settings model.Settings

	adapter  *QueueHandlerAdapter
	exchange *CustomExchange
	factory  *Factory

	keys          *set.LinkedHashSetString
	subscriptions map[string]*Subscription

	exitOnce sync.Once
}

// NewLiveFeed returns a feed in the New state.
func NewLiveFeed() *LiveFeed {
	return &LiveFeed{
		keys:          set.NewLinkedHashSetString(),
		subscriptions: make(map[string]*Subscription),
	}
}

// Initialize wires the feed for a live job, starts the custom-data
// exchange and activates the feed. It must be called exactly once.
func (f *LiveFeed) Initialize(job *model.LiveJob, settings model.Settings, deps Dependencies) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateNew {
		return ErrAlreadyInitialized
	}
	if job == nil || !job.Live {
		return ErrInvalidJob
	}

	frontier := deps.Frontier
	if frontier == nil {
		frontier = RealTimeProvider{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = RealTimeProvider{}
	}

	customFactory := deps.CustomFactory
	if customFactory == nil {
		// The Tiingo token is handed to the custom-data layer exactly once,
		// here.
		customFactory = customdata.NewFactory(deps.DataProvider, settings.TiingoAuthToken)
	}

	f.settings = settings
	f.adapter = NewQueueHandlerAdapter(deps.QueueHandler)
	f.exchange = NewCustomExchange(settings.CustomExchangeSleep)
	f.factory = NewFactory(FactoryConfig{
		Frontier:      frontier,
		Clock:         clock,
		Adapter:       f.adapter,
		Exchange:      f.exchange,
		Channels:      deps.Channels,
		MapFiles:      deps.MapFiles,
		FactorFiles:   deps.FactorFiles,
		Algorithm:     deps.Algorithm,
		CustomFactory: customFactory,
		Warmup:        NewWarmupPlanner(settings, deps.Algorithm, deps.DataProvider, deps.HistoricalFactory, clock),
	})

	f.exchange.Start()
	f.state = StateActive
	log.WithField("job", job.ID).Info("feed: initialized")
	return nil
}

// IsActive reports whether subscriptions can be created.
func (f *LiveFeed) IsActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateActive
}

// CreateSubscription assembles and registers a subscription. A failed
// assembly is logged and returned; the feed keeps running.
func (f *LiveFeed) CreateSubscription(request model.SubscriptionRequest) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateActive {
		return nil, ErrNotActive
	}

	sub, err := f.factory.NewSubscription(request)
	if err != nil {
		log.WithField("symbol", request.Config.Symbol).Errorf("feed: create subscription failed: %v", err)
		return nil, err
	}

	key := request.Config.Key()
	f.keys.Add(key)
	f.subscriptions[key] = sub
	return sub, nil
}

// Subscription looks up a registered subscription by configuration.
func (f *LiveFeed) Subscription(config model.SubscriptionConfig) (*Subscription, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subscriptions[config.Key()]
	return sub, ok
}

// Subscriptions returns the registered subscriptions in insertion order.
func (f *LiveFeed) Subscriptions() []*Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs := make([]*Subscription, 0, len(f.subscriptions))
	for key := range f.keys.Iter() {
		if sub, ok := f.subscriptions[key]; ok {
			subs = append(subs, sub)
		}
	}
	return subs
}

// RemoveSubscription unsubscribes from the owning source and closes the
// subscription. No further points are emitted once it returns.
func (f *LiveFeed) RemoveSubscription(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remove(sub)
}

func (f *LiveFeed) remove(sub *Subscription) {
	key := sub.Config().Key()
	if _, ok := f.subscriptions[key]; !ok {
		return
	}
	delete(f.subscriptions, key)
	f.keys.Remove(key)

	if sub.polled {
		f.exchange.Remove(sub.Config().Symbol)
	} else if !sub.Expired() {
		if err := f.adapter.Unsubscribe(sub.Config()); err != nil {
			log.WithField("symbol", sub.Config().Symbol).Warnf("feed: unsubscribe failed: %v", err)
		}
	}
	if err := sub.Close(); err != nil {
		log.WithField("symbol", sub.Config().Symbol).Warnf("feed: close failed: %v", err)
	}
}

// Exit stops the custom-data exchange, stops every bridge queue and
// transitions to Stopped. Idempotent.
func (f *LiveFeed) Exit() {
	f.exitOnce.Do(func() {
		f.mu.Lock()
		if f.state == StateNew {
			f.state = StateStopped
			f.mu.Unlock()
			return
		}
		f.state = StateStopping
		subs := make([]*Subscription, 0, len(f.subscriptions))
		for _, sub := range f.subscriptions {
			subs = append(subs, sub)
		}
		f.mu.Unlock()

		f.exchange.Stop()

		f.mu.Lock()
		for _, sub := range subs {
			f.remove(sub)
		}
		f.state = StateStopped
		f.mu.Unlock()
		log.Info("feed: stopped")
	})
}
