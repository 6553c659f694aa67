package feed

import (
	"time"

	"github.com/quantfeed/quantfeed/model"
	"github.com/quantfeed/quantfeed/service"
	"github.com/quantfeed/quantfeed/tools/log"
)

// WarmupPlanner splices a bounded historical replay in front of a live
// stream: file-based warmup first, then the history provider clamped to
// the configured look-back, then the live tail.
type WarmupPlanner struct {
	settings          model.Settings
	algorithm         service.Algorithm
	dataProvider      service.DataProvider
	historicalFactory service.HistoricalFeedFactory
	clock             TimeProvider
}

// NewWarmupPlanner builds a planner. historicalFactory and the algorithm's
// history provider are each optional; a missing source just drops that
// warmup branch.
func NewWarmupPlanner(settings model.Settings, algorithm service.Algorithm, dataProvider service.DataProvider, historicalFactory service.HistoricalFeedFactory, clock TimeProvider) *WarmupPlanner {
	if clock == nil {
		clock = RealTimeProvider{}
	}
	return &WarmupPlanner{
		settings:          settings,
		algorithm:         algorithm,
		dataProvider:      dataProvider,
		historicalFactory: historicalFactory,
		clock:             clock,
	}
}

// Build returns live prefixed by the warmup stages. When the algorithm is
// not warming up, or the request covers no tradable day, live is returned
// unchanged. A failed warmup branch is logged and skipped; the remaining
// branches and the live tail continue.
func (w *WarmupPlanner) Build(request model.SubscriptionRequest, live Enumerator) Enumerator {
	if w.algorithm == nil || !w.algorithm.IsWarmingUp() {
		return live
	}

	now := w.clock.NowUTC()
	hours := request.Config.Hours
	if hours == nil || hours.TradableDaysBetween(request.StartUTC, now) == 0 {
		return live
	}

	stages := make([]Enumerator, 0, 3)
	if file := w.fileWarmup(request, now); file != nil {
		stages = append(stages, file)
	}
	if history := w.historyWarmup(request, now); history != nil {
		stages = append(stages, history)
	}
	if len(stages) == 0 {
		return live
	}
	stages = append(stages, live)
	return NewConcatEnumerator(stages...)
}

// fileWarmup replays the same configuration from file-based sources over
// [start, now], rejecting fill-forwards and future data.
func (w *WarmupPlanner) fileWarmup(request model.SubscriptionRequest, now time.Time) Enumerator {
	if w.historicalFactory == nil {
		return nil
	}
	replay := request
	replay.EndUTC = now
	enum, err := w.historicalFactory.CreateEnumerator(replay, w.dataProvider)
	if err != nil {
		log.WithField("symbol", request.Config.Symbol).Warnf("warmup: file replay skipped: %v", err)
		return nil
	}
	return NewFilterEnumerator(enum, func(point *model.DataPoint) bool {
		return !point.IsFillForward && !point.EndTimeUTC().After(now)
	})
}

// historyWarmup requests the clamped look-back window from the history
// provider, rejecting future data.
func (w *WarmupPlanner) historyWarmup(request model.SubscriptionRequest, now time.Time) Enumerator {
	provider := w.algorithm.HistoryProvider()
	if provider == nil {
		return nil
	}

	clamped := request
	clamped.EndUTC = now
	lookBack := now.AddDate(0, 0, -w.settings.MaxWarmupHistoryDays)
	if clamped.StartUTC.Before(lookBack) {
		clamped.StartUTC = lookBack
	}

	points, err := provider.GetHistory([]model.SubscriptionRequest{clamped}, w.algorithm.TimeZone())
	if err != nil {
		log.WithField("symbol", request.Config.Symbol).Warnf("warmup: history skipped: %v", err)
		return nil
	}
	return NewFilterEnumerator(NewSliceEnumerator(points), func(point *model.DataPoint) bool {
		return !point.EndTimeUTC().After(now)
	})
}
