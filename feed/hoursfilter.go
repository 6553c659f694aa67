package feed

import (
	"github.com/quantfeed/quantfeed/model"
)

// marketHoursFilter drops points outside the security's tradable hours.
// Auxiliary events always pass: a split outside the session still has to
// reach the consumer.
type marketHoursFilter struct {
	Enumerator
}

// NewMarketHoursFilter wraps upstream with session filtering.
func NewMarketHoursFilter(upstream Enumerator, hours *model.MarketHours, extended bool) Enumerator {
	return &marketHoursFilter{
		Enumerator: NewFilterEnumerator(upstream, func(point *model.DataPoint) bool {
			if point.IsAuxiliary() {
				return true
			}
			return hours.IsOpen(point.StartTime, extended)
		}),
	}
}
