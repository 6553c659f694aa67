package model

import "time"

// TimeZoneOffsetProvider converts UTC instants into a subscription's
// exchange and data time zones. Offsets are resolved lazily through the
// locations; the provider itself is immutable and safe to share.
type TimeZoneOffsetProvider struct {
	ExchangeTZ *time.Location
	DataTZ     *time.Location
}

// NewTimeZoneOffsetProvider builds a provider for the two zones of a
// configuration. Nil locations default to UTC.
func NewTimeZoneOffsetProvider(exchangeTZ, dataTZ *time.Location) *TimeZoneOffsetProvider {
	if exchangeTZ == nil {
		exchangeTZ = time.UTC
	}
	if dataTZ == nil {
		dataTZ = time.UTC
	}
	return &TimeZoneOffsetProvider{ExchangeTZ: exchangeTZ, DataTZ: dataTZ}
}

// ExchangeTime converts a UTC instant to exchange time.
func (p *TimeZoneOffsetProvider) ExchangeTime(utc time.Time) time.Time {
	return utc.In(p.ExchangeTZ)
}

// DataTime converts a UTC instant to the data time zone.
func (p *TimeZoneOffsetProvider) DataTime(utc time.Time) time.Time {
	return utc.In(p.DataTZ)
}

// UTCFromData converts an instant expressed in the data time zone to UTC.
func (p *TimeZoneOffsetProvider) UTCFromData(t time.Time) time.Time {
	return t.UTC()
}
