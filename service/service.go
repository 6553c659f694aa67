// Package service defines the contracts between the feed core and its
// external collaborators: queue handlers, data and metadata providers, the
// history provider and the algorithm itself.
package service

import (
	"io"
	"time"

	"github.com/quantfeed/quantfeed/model"
)

// Enumerator is the uniform pull interface every stream stage exposes.
// MoveNext returning false means the stream ended. A true result with a nil
// Current means "no data right now"; the caller re-polls on its own
// schedule.
type Enumerator interface {
	MoveNext() bool
	Current() *model.DataPoint
	Close() error
}

// DataQueueHandler is a push producer bridged to pull. Subscribe returns a
// pull iterator fed by the producer's callbacks; notifier fires whenever
// new data becomes available on it.
type DataQueueHandler interface {
	Subscribe(config model.SubscriptionConfig, notifier func()) (Enumerator, error)
	Unsubscribe(config model.SubscriptionConfig) error
}

// DataQueueUniverseProvider is the optional universe capability of a queue
// handler, queried for option and futures chain constituents.
type DataQueueUniverseProvider interface {
	LookupSymbols(symbol string, at time.Time) ([]string, error)
}

// DataProvider opens file-based sources by key.
type DataProvider interface {
	Open(key string) (io.ReadCloser, error)
}

// MapFileProvider resolves ticker histories and delisting dates.
type MapFileProvider interface {
	Resolve(config model.SubscriptionConfig) (model.MapFile, error)
}

// FactorFileProvider resolves price-adjustment factor files.
type FactorFileProvider interface {
	Resolve(config model.SubscriptionConfig) (model.FactorFile, error)
}

// HistoryProvider serves historical points for warmup.
type HistoryProvider interface {
	GetHistory(requests []model.SubscriptionRequest, tz *time.Location) ([]*model.DataPoint, error)
}

// ChannelProvider decides push-streaming versus poll-ingestion per
// configuration.
type ChannelProvider interface {
	ShouldStream(config model.SubscriptionConfig) bool
}

// Algorithm is the consumer of the feed's subscriptions.
type Algorithm interface {
	IsWarmingUp() bool
	HistoryProvider() HistoryProvider
	TimeZone() *time.Location
}

// HistoricalFeedFactory builds file-based enumerators for warmup replay.
type HistoricalFeedFactory interface {
	CreateEnumerator(request model.SubscriptionRequest, provider DataProvider) (Enumerator, error)
}
