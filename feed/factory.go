package feed

import (
	"time"

	"github.com/pkg/errors"

	"github.com/quantfeed/quantfeed/model"
	"github.com/quantfeed/quantfeed/service"
	"github.com/quantfeed/quantfeed/tools/log"
)

// CustomEnumeratorFactory locates the source files of a polled
// configuration and returns an enumerator that refreshes itself at its
// declared period, e.g. a ten-minute coarse universe snapshot reader.
type CustomEnumeratorFactory interface {
	CreateEnumerator(request model.SubscriptionRequest) (Enumerator, error)
}

// ContractEnumeratorFactory builds the per-contract stream of a chain
// universe: a queue-handler subscription, optionally fill-forwarded.
type ContractEnumeratorFactory func(request model.SubscriptionRequest, notifier func()) (Enumerator, error)

// Factory assembles per-request pipelines: it branches streamed versus
// polled, composes the transformer chain in its fixed order, applies the
// warmup prefix and wraps everything into a Subscription.
type Factory struct {
	frontier      TimeProvider
	clock         TimeProvider
	adapter       *QueueHandlerAdapter
	exchange      *CustomExchange
	channels      service.ChannelProvider
	mapFiles      service.MapFileProvider
	factorFiles   service.FactorFileProvider
	algorithm     service.Algorithm
	customFactory CustomEnumeratorFactory
	warmup        *WarmupPlanner

	// contractFactory is configurable for tests; the default composes an
	// adapter subscription with fill-forward for option chains.
	contractFactory ContractEnumeratorFactory
}

// FactoryConfig carries the factory's collaborators.
type FactoryConfig struct {
	Frontier      TimeProvider
	Clock         TimeProvider
	Adapter       *QueueHandlerAdapter
	Exchange      *CustomExchange
	Channels      service.ChannelProvider
	MapFiles      service.MapFileProvider
	FactorFiles   service.FactorFileProvider
	Algorithm     service.Algorithm
	CustomFactory CustomEnumeratorFactory
	Warmup        *WarmupPlanner
}

// NewFactory builds a subscription factory. Frontier, Adapter, Exchange
// and Channels are required; the rest degrade gracefully when absent.
func NewFactory(config FactoryConfig) *Factory {
	clock := config.Clock
	if clock == nil {
		clock = RealTimeProvider{}
	}
	f := &Factory{
		frontier:      config.Frontier,
		clock:         clock,
		adapter:       config.Adapter,
		exchange:      config.Exchange,
		channels:      config.Channels,
		mapFiles:      config.MapFiles,
		factorFiles:   config.FactorFiles,
		algorithm:     config.Algorithm,
		customFactory: config.CustomFactory,
		warmup:        config.Warmup,
	}
	f.contractFactory = f.defaultContractEnumerator
	return f
}

// NewSubscription assembles the pipeline for request. Hard failures return
// a typed error; an expired symbol is not an error — the returned
// subscription reports Expired and carries only its warmup prefix.
func (f *Factory) NewSubscription(request model.SubscriptionRequest) (*Subscription, error) {
	sub := &Subscription{
		config:  request.Config,
		request: request,
		offsets: model.NewTimeZoneOffsetProvider(request.Config.ExchangeTZ, request.Config.DataTZ),
	}

	if request.IsUniverseSubscription {
		enum, polled, err := f.universeEnumerator(request, sub)
		if err != nil {
			return nil, err
		}
		sub.enum = enum
		sub.polled = polled
		return sub, nil
	}

	sub.expired = f.isExpired(request.Config)

	var live Enumerator
	var err error
	switch {
	case sub.expired:
		live = NewEmptyEnumerator()
	case f.channels.ShouldStream(request.Config):
		live, err = f.adapter.Subscribe(request.Config, sub.notifyNewData)
		if err != nil {
			return nil, constructionError(request.Config, err, "queue handler subscribe")
		}
	default:
		live, err = f.polledEnumerator(request, sub)
		if err != nil {
			return nil, err
		}
		sub.polled = true
	}

	live = f.pipeline(request, live)
	if f.warmup != nil {
		live = f.warmup.Build(request, live)
	}
	sub.enum = live
	return sub, nil
}

// isExpired resolves the map file and reports whether the symbol delisted
// before today's UTC date.
func (f *Factory) isExpired(config model.SubscriptionConfig) bool {
	if f.mapFiles == nil || config.SecurityType != model.SecurityTypeEquity {
		return false
	}
	mapFile, err := f.mapFiles.Resolve(config)
	if err != nil {
		log.WithField("symbol", config.Symbol).Debugf("factory: no map file: %v", err)
		return false
	}
	delisted := mapFile.DelistingDate()
	if delisted.IsZero() {
		return false
	}
	today := f.clock.NowUTC().Truncate(24 * time.Hour)
	return delisted.Before(today)
}

// pipeline composes the transformers in the mandatory order:
// raw -> price scale -> fill-forward -> market-hours filter -> frontier
// gate. Scaling runs first so synthetic points inherit scaled prices;
// filtering runs after fill-forward so synthetic bars outside the session
// are dropped, not emitted as filler; the gate runs last so no stage ever
// sees a future instant.
func (f *Factory) pipeline(request model.SubscriptionRequest, raw Enumerator) Enumerator {
	config := request.Config
	enum := raw

	if config.PricesShouldBeScaled() && f.factorFiles != nil {
		factors, err := f.factorFiles.Resolve(config)
		if err != nil {
			log.WithField("symbol", config.Symbol).Debugf("factory: no factor file: %v", err)
		} else {
			enum = NewPriceScaleEnumerator(enum, factors)
		}
	}

	if config.FillForward && config.Resolution != model.ResolutionTick {
		var endLocal time.Time
		if !request.EndUTC.IsZero() && config.DataTZ != nil {
			endLocal = request.EndUTC.In(config.DataTZ)
		}
		enum = NewFillForwardEnumerator(enum, f.frontier, config.Resolution.Increment(), config.Hours, config.ExtendedHours, endLocal)
	}

	if config.IsFiltered && config.Hours != nil {
		enum = NewMarketHoursFilter(enum, config.Hours, config.ExtendedHours)
	}

	return NewFrontierGate(enum, f.frontier)
}

// polledEnumerator registers a custom-data enumerator on the shared
// exchange and returns its bridge queue.
func (f *Factory) polledEnumerator(request model.SubscriptionRequest, sub *Subscription) (Enumerator, error) {
	if f.customFactory == nil {
		return nil, constructionError(request.Config, errors.New("no custom enumerator factory"), "polled source")
	}
	source, err := f.customFactory.CreateEnumerator(request)
	if err != nil {
		return nil, constructionError(request.Config, err, "custom enumerator")
	}
	return f.bridge(request.Config.Symbol, source, sub), nil
}

// bridge wires a pollable source through the custom-data exchange into a
// bounded queue owned by the subscription.
func (f *Factory) bridge(symbol string, source Enumerator, sub *Subscription) Enumerator {
	queue := NewEnumerableQueue(0, sub.notifyNewData)
	f.exchange.Add(symbol, source,
		func(point *model.DataPoint) { queue.Enqueue(point) },
		queue.Stop,
	)
	return queue
}

// universeEnumerator branches per universe kind. Every branch terminates
// in a frontier-aware gate so selection never fires ahead of the global
// frontier.
func (f *Factory) universeEnumerator(request model.SubscriptionRequest, sub *Subscription) (Enumerator, bool, error) {
	config := request.Config
	universe := request.Universe
	if universe == nil {
		return nil, false, constructionError(config, errors.New("universe subscription without universe"), "universe")
	}

	tz := config.DataTZ
	if tz == nil {
		tz = time.UTC
	}

	switch universe.Kind {
	case model.UniverseTimeTriggered:
		ticks := NewTickGenerator(f.frontier, universe.SelectionInterval, tz, config.Symbol)
		return NewFrontierGate(f.bridge(config.Symbol, ticks, sub), f.frontier), true, nil

	case model.UniverseCoarse, model.UniverseETFConstituent:
		if f.customFactory == nil {
			return nil, false, constructionError(config, errors.New("no custom enumerator factory"), "universe snapshot")
		}
		source, err := f.customFactory.CreateEnumerator(request)
		if err != nil {
			return nil, false, constructionError(config, err, "universe snapshot")
		}
		aggregated := NewCollectionAggregator(f.bridge(config.Symbol, source, sub), config.Symbol)
		gated := NewPredicateTimeProvider(f.frontier, defaultSelectionPredicate(f.exchangeTZ(config)))
		return NewFrontierGate(aggregated, gated), true, nil

	case model.UniverseOptionChain, model.UniverseFutureChain:
		provider, ok := f.adapter.UniverseProvider()
		if !ok {
			return nil, false, errors.Wrapf(ErrUnsupportedSecurityType, "%s", config.SecurityType)
		}
		contracts := func(contract string) (Enumerator, error) {
			return f.contractFactory(contractRequest(request, contract), sub.notifyNewData)
		}
		chain := NewChainUniverseEnumerator(provider, contracts, f.frontier, universe.SelectionInterval, tz, config.Symbol)
		return NewFrontierGate(f.bridge(config.Symbol, chain, sub), f.frontier), true, nil

	case model.UniverseCustom:
		if f.customFactory == nil {
			return nil, false, constructionError(config, errors.New("no custom enumerator factory"), "custom universe")
		}
		source, err := f.customFactory.CreateEnumerator(request)
		if err != nil {
			return nil, false, constructionError(config, err, "custom universe")
		}
		aggregated := NewCollectionAggregator(f.bridge(config.Symbol, source, sub), config.Symbol)
		return NewFrontierGate(aggregated, f.frontier), true, nil
	}

	return nil, false, constructionError(config, errors.Errorf("unknown universe kind %q", universe.Kind), "universe")
}

func (f *Factory) exchangeTZ(config model.SubscriptionConfig) *time.Location {
	if config.ExchangeTZ != nil {
		return config.ExchangeTZ
	}
	return time.UTC
}

// contractRequest derives the per-contract data request from a chain
// universe request. Chain members are internal feeds; consumers never
// subscribe to them directly.
func contractRequest(request model.SubscriptionRequest, contract string) model.SubscriptionRequest {
	derived := request
	derived.Config.Symbol = contract
	derived.Config.DataType = model.DataTypeTradeBar
	derived.Config.IsInternalFeed = true
	derived.Universe = nil
	derived.IsUniverseSubscription = false
	return derived
}

// ContractEnumerator builds the stream for one chain contract using the
// configured per-contract factory.
func (f *Factory) ContractEnumerator(request model.SubscriptionRequest, notifier func()) (Enumerator, error) {
	return f.contractFactory(request, notifier)
}

// defaultContractEnumerator subscribes the contract through the queue
// handler and fill-forwards option bars; futures chains skip fill-forward.
// Closing the returned stream also unsubscribes the contract.
func (f *Factory) defaultContractEnumerator(request model.SubscriptionRequest, notifier func()) (Enumerator, error) {
	config := request.Config
	enum, err := f.adapter.Subscribe(config, notifier)
	if err != nil {
		return nil, err
	}
	if config.SecurityType == model.SecurityTypeOption && config.Resolution != model.ResolutionTick {
		enum = NewFillForwardEnumerator(enum, f.frontier, config.Resolution.Increment(), config.Hours, config.ExtendedHours, time.Time{})
	}
	return NewCloseHook(NewFrontierGate(enum, f.frontier), func() {
		if err := f.adapter.Unsubscribe(config); err != nil {
			log.WithField("symbol", config.Symbol).Warnf("factory: contract unsubscribe failed: %v", err)
		}
	}), nil
}
