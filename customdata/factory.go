package customdata

import (
	"time"

	"github.com/pkg/errors"

	"github.com/quantfeed/quantfeed/model"
	"github.com/quantfeed/quantfeed/service"
)

const defaultTiingoPeriod = time.Minute

// Factory routes polled subscription requests to their source
// implementation. It satisfies the feed's custom enumerator factory
// contract.
type Factory struct {
	Provider service.DataProvider
	Tiingo   *TiingoClient
}

// NewFactory builds the polled-source factory. token may be empty; the
// Tiingo source is then unavailable.
func NewFactory(provider service.DataProvider, token string) *Factory {
	f := &Factory{Provider: provider}
	if token != "" {
		f.Tiingo = NewTiingoClient(token)
	}
	return f
}

// CreateEnumerator locates the source for request and returns an
// enumerator refreshing at its declared period.
func (f *Factory) CreateEnumerator(request model.SubscriptionRequest) (service.Enumerator, error) {
	config := request.Config

	if request.IsUniverseSubscription {
		switch request.Universe.Kind {
		case model.UniverseCoarse, model.UniverseETFConstituent:
			if f.Provider == nil {
				return nil, errors.New("customdata: no data provider for universe snapshots")
			}
			return NewCoarseSnapshotEnumerator(f.Provider, config.Hours, config.Symbol, config.DataTZ), nil
		case model.UniverseCustom:
			if f.Tiingo == nil {
				return nil, errors.New("customdata: no tiingo client configured")
			}
			return NewTiingoEnumerator(f.Tiingo, config.Symbol, defaultTiingoPeriod, config.DataTZ), nil
		}
		return nil, errors.Errorf("customdata: unsupported universe kind %q", request.Universe.Kind)
	}

	if config.DataType == model.DataTypeCustom && f.Tiingo != nil {
		return NewTiingoEnumerator(f.Tiingo, config.Symbol, defaultTiingoPeriod, config.DataTZ), nil
	}
	return nil, errors.Errorf("customdata: no source for %s", config.Key())
}
