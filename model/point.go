// Package model holds the data structures shared by the feed: data points,
// subscription configurations, market hours and per-symbol metadata.
package model

import (
	"fmt"
	"time"
)

// Tick is a single trade or quote print.
type Tick struct {
	Price    float64
	Quantity float64
	BidPrice float64
	AskPrice float64
}

// TradeBar aggregates trades over a fixed interval.
type TradeBar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// QuoteBar aggregates the bid/ask over a fixed interval.
type QuoteBar struct {
	Bid TradeBar
	Ask TradeBar
}

// Split is a corporate split event. Factor is the price multiplier, e.g.
// 0.25 for a 4:1 split.
type Split struct {
	Factor         float64
	ReferencePrice float64
}

// Dividend is a cash distribution event.
type Dividend struct {
	Distribution   float64
	ReferencePrice float64
}

// Delisting marks the end of a symbol's tradable life.
type Delisting struct {
	Date time.Time
}

// SymbolChange records a ticker rename taken from the symbol's map file.
type SymbolChange struct {
	OldSymbol string
	NewSymbol string
}

// PointCollection packages points that share an end time, keyed by the
// universe symbol that requested them.
type PointCollection struct {
	Symbol string
	Points []*DataPoint
}

// DataPoint is the envelope every stream stage passes around. StartTime and
// EndTime are expressed in the symbol's data time zone; EndTime is the
// instant the point becomes knowable.
type DataPoint struct {
	Symbol        string
	StartTime     time.Time
	EndTime       time.Time
	Value         any
	IsFillForward bool
}

// EndTimeUTC returns the knowable instant in UTC.
func (p *DataPoint) EndTimeUTC() time.Time {
	return p.EndTime.UTC()
}

// IsAuxiliary reports whether the payload is a corporate action. Auxiliary
// points bypass market-hours filtering and sort ahead of same-bar data.
func (p *DataPoint) IsAuxiliary() bool {
	switch p.Value.(type) {
	case Split, Dividend, Delisting, SymbolChange:
		return true
	}
	return false
}

// Price returns the representative price of the payload, or zero when the
// payload carries none.
func (p *DataPoint) Price() float64 {
	switch v := p.Value.(type) {
	case Tick:
		return v.Price
	case TradeBar:
		return v.Close
	case QuoteBar:
		return (v.Bid.Close + v.Ask.Close) / 2
	}
	return 0
}

// Scale multiplies every price field of the payload by factor and returns a
// new point. Non-price payloads are returned unchanged.
func (p *DataPoint) Scale(factor float64) *DataPoint {
	scaled := *p
	switch v := p.Value.(type) {
	case Tick:
		v.Price *= factor
		v.BidPrice *= factor
		v.AskPrice *= factor
		scaled.Value = v
	case TradeBar:
		scaled.Value = scaleBar(v, factor)
	case QuoteBar:
		v.Bid = scaleBar(v.Bid, factor)
		v.Ask = scaleBar(v.Ask, factor)
		scaled.Value = v
	default:
		return p
	}
	return &scaled
}

func scaleBar(b TradeBar, factor float64) TradeBar {
	b.Open *= factor
	b.High *= factor
	b.Low *= factor
	b.Close *= factor
	return b
}

// Clone returns a shallow copy with new timestamps and the fill-forward
// flag set, used by the fill-forward stage.
func (p *DataPoint) Clone(start, end time.Time) *DataPoint {
	clone := *p
	clone.StartTime = start
	clone.EndTime = end
	clone.IsFillForward = true
	return &clone
}

func (p *DataPoint) String() string {
	return fmt.Sprintf("%s %s -> %s %T", p.Symbol, p.StartTime.Format(time.RFC3339), p.EndTime.Format(time.RFC3339), p.Value)
}
