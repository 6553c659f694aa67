package model

import (
	"fmt"
	"time"
)

// SecurityType identifies the asset class of a subscription.
type SecurityType string

var (
	SecurityTypeEquity SecurityType = "equity"
	SecurityTypeForex  SecurityType = "forex"
	SecurityTypeCrypto SecurityType = "crypto"
	SecurityTypeOption SecurityType = "option"
	SecurityTypeFuture SecurityType = "future"
	SecurityTypeBase   SecurityType = "base"
)

// DataType identifies the payload a subscription carries.
type DataType string

var (
	DataTypeTradeBar DataType = "tradebar"
	DataTypeQuoteBar DataType = "quotebar"
	DataTypeTick     DataType = "tick"
	DataTypeSplit    DataType = "split"
	DataTypeDividend DataType = "dividend"
	DataTypeCustom   DataType = "custom"
	DataTypeUniverse DataType = "universe"
)

// Resolution is the bar interval of a subscription.
type Resolution string

var (
	ResolutionTick   Resolution = "tick"
	ResolutionSecond Resolution = "second"
	ResolutionMinute Resolution = "minute"
	ResolutionHour   Resolution = "hour"
	ResolutionDay    Resolution = "day"
)

// Increment returns the bar duration. Tick resolution has no increment.
func (r Resolution) Increment() time.Duration {
	switch r {
	case ResolutionSecond:
		return time.Second
	case ResolutionMinute:
		return time.Minute
	case ResolutionHour:
		return time.Hour
	case ResolutionDay:
		return 24 * time.Hour
	}
	return 0
}

// SubscriptionConfig is the immutable identity of a subscription. Equality
// is structural; Key is the canonical lookup string.
type SubscriptionConfig struct {
	Symbol         string
	SecurityType   SecurityType
	DataType       DataType
	Resolution     Resolution
	ExchangeTZ     *time.Location
	DataTZ         *time.Location
	Hours          *MarketHours
	FillForward    bool
	ExtendedHours  bool
	IsInternalFeed bool
	IsFiltered     bool
}

// Key returns the canonical identity used by the feed's subscription set.
func (c SubscriptionConfig) Key() string {
	return fmt.Sprintf("%s--%s--%s", c.Symbol, c.DataType, c.Resolution)
}

// Equals reports structural equality of the identifying fields.
func (c SubscriptionConfig) Equals(other SubscriptionConfig) bool {
	return c.Symbol == other.Symbol &&
		c.SecurityType == other.SecurityType &&
		c.DataType == other.DataType &&
		c.Resolution == other.Resolution &&
		c.FillForward == other.FillForward &&
		c.ExtendedHours == other.ExtendedHours &&
		c.IsInternalFeed == other.IsInternalFeed &&
		c.IsFiltered == other.IsFiltered
}

// PricesShouldBeScaled reports whether the price-scale stage applies. Raw
// custom data and non-equity types carry no factor files.
func (c SubscriptionConfig) PricesShouldBeScaled() bool {
	return c.SecurityType == SecurityTypeEquity && c.Resolution != ResolutionTick
}

// UniverseKind selects the universe pipeline branch.
type UniverseKind string

var (
	UniverseTimeTriggered  UniverseKind = "time-triggered"
	UniverseCoarse         UniverseKind = "coarse"
	UniverseETFConstituent UniverseKind = "etf-constituent"
	UniverseOptionChain    UniverseKind = "option-chain"
	UniverseFutureChain    UniverseKind = "future-chain"
	UniverseCustom         UniverseKind = "custom"
)

// Universe describes a meta-subscription that triggers symbol selection.
type Universe struct {
	Kind              UniverseKind
	SelectionInterval time.Duration
}

// Security carries the per-symbol state a request needs at assembly time.
type Security struct {
	Symbol string
	Hours  *MarketHours
}

// SubscriptionRequest is a configuration plus the assembly context.
type SubscriptionRequest struct {
	Config                 SubscriptionConfig
	Security               *Security
	StartUTC               time.Time
	EndUTC                 time.Time
	Universe               *Universe
	IsUniverseSubscription bool
}
