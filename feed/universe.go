package feed

import (
	"time"

	"github.com/samber/lo"

	"github.com/quantfeed/quantfeed/model"
	"github.com/quantfeed/quantfeed/service"
	"github.com/quantfeed/quantfeed/tools/log"
)

// tickGenerator spoofs selection-interval ticks in the configuration's
// data time zone. It is registered on the custom-data exchange and yields
// at most one tick per poll, never ahead of its clock.
type tickGenerator struct {
	clock    TimeProvider
	interval time.Duration
	tz       *time.Location
	symbol   string

	next    time.Time
	current *model.DataPoint
}

// NewTickGenerator emits ticks for symbol every interval.
func NewTickGenerator(clock TimeProvider, interval time.Duration, tz *time.Location, symbol string) Enumerator {
	return &tickGenerator{clock: clock, interval: interval, tz: tz, symbol: symbol}
}

func (g *tickGenerator) MoveNext() bool {
	now := g.clock.NowUTC()
	if g.next.IsZero() {
		g.next = now.Truncate(g.interval).Add(g.interval)
	}
	if now.Before(g.next) {
		g.current = nil
		return true
	}

	at := g.next.In(g.tz)
	g.current = &model.DataPoint{
		Symbol:    g.symbol,
		StartTime: at,
		EndTime:   at,
		Value:     model.Tick{},
	}
	g.next = g.next.Add(g.interval)
	return true
}

func (g *tickGenerator) Current() *model.DataPoint { return g.current }

func (g *tickGenerator) Close() error { return nil }

// chainContract is one open constituent of a chain universe: the contract
// symbol plus its live per-contract stream.
type chainContract struct {
	symbol string
	enum   Enumerator
}

// chainUniverseEnumerator queries the queue handler's universe capability
// for contract symbols once per selection interval. Each discovered
// contract gets a real per-contract stream built by the configured
// factory (subscribe, fill-forwarded for options); the enumerator drives
// those streams and emits the chain as a collection point. Contracts that
// fall out of the chain have their streams closed.
type chainUniverseEnumerator struct {
	provider  service.DataQueueUniverseProvider
	contracts func(symbol string) (Enumerator, error)
	clock     TimeProvider
	interval  time.Duration
	tz        *time.Location
	symbol    string

	open    []*chainContract
	next    time.Time
	current *model.DataPoint
}

// NewChainUniverseEnumerator polls provider for the contracts of symbol;
// contracts builds the stream behind each one.
func NewChainUniverseEnumerator(provider service.DataQueueUniverseProvider, contracts func(symbol string) (Enumerator, error), clock TimeProvider, interval time.Duration, tz *time.Location, symbol string) Enumerator {
	return &chainUniverseEnumerator{
		provider:  provider,
		contracts: contracts,
		clock:     clock,
		interval:  interval,
		tz:        tz,
		symbol:    symbol,
	}
}

func (c *chainUniverseEnumerator) MoveNext() bool {
	now := c.clock.NowUTC()
	selected := false
	if c.next.IsZero() || !now.Before(c.next) {
		c.refresh(now)
		c.next = now.Add(c.interval)
		selected = true
	}

	at := now.In(c.tz)
	points := make([]*model.DataPoint, 0, len(c.open))
	for _, contract := range c.open {
		if contract.enum.MoveNext() {
			if point := contract.enum.Current(); point != nil {
				points = append(points, point)
				continue
			}
		}
		if selected {
			// Announce membership even before the stream has data.
			points = append(points, &model.DataPoint{Symbol: contract.symbol, StartTime: at, EndTime: at, Value: model.Tick{}})
		}
	}

	if len(points) == 0 && !selected {
		c.current = nil
		return true
	}
	c.current = &model.DataPoint{
		Symbol:    c.symbol,
		StartTime: at,
		EndTime:   at,
		Value:     model.PointCollection{Symbol: c.symbol, Points: points},
	}
	return true
}

// refresh re-queries the chain and diffs it against the open contracts:
// new constituents are subscribed through the per-contract factory,
// dropped ones are closed.
func (c *chainUniverseEnumerator) refresh(now time.Time) {
	symbols, err := c.provider.LookupSymbols(c.symbol, now)
	if err != nil {
		log.WithField("symbol", c.symbol).Warnf("universe: contract lookup failed: %v", err)
		return
	}

	want := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		want[symbol] = true
	}

	c.open = lo.Filter(c.open, func(contract *chainContract, _ int) bool {
		if want[contract.symbol] {
			return true
		}
		if err := contract.enum.Close(); err != nil {
			log.WithField("symbol", contract.symbol).Warnf("universe: contract close failed: %v", err)
		}
		return false
	})

	known := make(map[string]bool, len(c.open))
	for _, contract := range c.open {
		known[contract.symbol] = true
	}
	for _, symbol := range symbols {
		if known[symbol] {
			continue
		}
		enum, err := c.contracts(symbol)
		if err != nil {
			log.WithField("symbol", symbol).Warnf("universe: contract subscribe failed: %v", err)
			continue
		}
		c.open = append(c.open, &chainContract{symbol: symbol, enum: enum})
	}
}

func (c *chainUniverseEnumerator) Current() *model.DataPoint { return c.current }

func (c *chainUniverseEnumerator) Close() error {
	var first error
	for _, contract := range c.open {
		if err := contract.enum.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.open = nil
	return first
}

// defaultSelectionPredicate keeps snapshot universes from firing at
// illegal hours: selection only advances while the exchange-time hour is
// after 5 and before 23 (06:00 to 22:59) and never on Saturdays.
func defaultSelectionPredicate(tz *time.Location) func(time.Time) bool {
	return func(t time.Time) bool {
		local := t.In(tz)
		return local.Hour() > 5 && local.Hour() < 23 && local.Weekday() != time.Saturday
	}
}
