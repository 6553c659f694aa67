package model

import (
	"sort"
	"time"
)

// MapFileRow is one ticker mapping entry.
type MapFileRow struct {
	Date   time.Time
	Ticker string
}

// MapFile is a symbol's ticker history. The last row's date is the
// delisting date; a zero value means the symbol never delists.
type MapFile struct {
	Symbol string
	Rows   []MapFileRow
}

// DelistingDate returns the UTC date the symbol stops trading, or the zero
// time when the map file carries no end.
func (m MapFile) DelistingDate() time.Time {
	if len(m.Rows) == 0 {
		return time.Time{}
	}
	return m.Rows[len(m.Rows)-1].Date.UTC()
}

// TickerAt resolves the ticker in effect at t.
func (m MapFile) TickerAt(t time.Time) string {
	for _, row := range m.Rows {
		if !t.After(row.Date) {
			return row.Ticker
		}
	}
	return m.Symbol
}

// FactorRow is one price-adjustment entry: the combined factor applies to
// all data at or before Date.
type FactorRow struct {
	Date   time.Time
	Factor float64
}

// FactorFile holds a symbol's split and dividend adjustment factors,
// sorted ascending by date.
type FactorFile struct {
	Symbol string
	Rows   []FactorRow
}

// FactorAt returns the price multiplier in effect at t. Times after the
// last row scale by 1.
func (f FactorFile) FactorAt(t time.Time) float64 {
	idx := sort.Search(len(f.Rows), func(i int) bool {
		return !f.Rows[i].Date.Before(t)
	})
	if idx == len(f.Rows) {
		return 1
	}
	return f.Rows[idx].Factor
}
