package feed

import (
	"github.com/quantfeed/quantfeed/model"
	"github.com/quantfeed/quantfeed/service"
	"github.com/quantfeed/quantfeed/tools/log"
)

// QueueHandlerAdapter subscribes and unsubscribes symbols against an
// external push producer. Equity subscriptions that are not internal feeds
// additionally carry derived split and dividend streams, merged in end-time
// order ahead of main data with the same end time.
type QueueHandlerAdapter struct {
	handler service.DataQueueHandler
}

// NewQueueHandlerAdapter wraps handler.
func NewQueueHandlerAdapter(handler service.DataQueueHandler) *QueueHandlerAdapter {
	return &QueueHandlerAdapter{handler: handler}
}

// auxConfigs derives the corporate-action configurations for an equity
// subscription. They are internal feeds: consumers never subscribe to them
// directly.
func auxConfigs(config model.SubscriptionConfig) []model.SubscriptionConfig {
	split := config
	split.DataType = model.DataTypeSplit
	split.IsInternalFeed = true
	dividend := config
	dividend.DataType = model.DataTypeDividend
	dividend.IsInternalFeed = true
	return []model.SubscriptionConfig{split, dividend}
}

func needsAux(config model.SubscriptionConfig) bool {
	return config.SecurityType == model.SecurityTypeEquity && !config.IsInternalFeed
}

// Subscribe returns the pull iterator for the request's configuration,
// with auxiliary streams merged in when the security carries them.
func (a *QueueHandlerAdapter) Subscribe(config model.SubscriptionConfig, notifier func()) (Enumerator, error) {
	main, err := a.handler.Subscribe(config, notifier)
	if err != nil {
		return nil, err
	}
	if !needsAux(config) {
		return main, nil
	}

	aux := make([]Enumerator, 0, 2)
	for _, auxConfig := range auxConfigs(config) {
		enum, err := a.handler.Subscribe(auxConfig, notifier)
		if err != nil {
			// Roll back everything already subscribed; a half-wired
			// equity stream would silently miss corporate actions.
			for _, open := range aux {
				_ = open.Close()
			}
			_ = main.Close()
			a.unsubscribeAll(config)
			return nil, err
		}
		aux = append(aux, enum)
	}

	return NewAuxSynchronizer(main, aux...), nil
}

// Unsubscribe removes the configuration and any derived auxiliary
// configurations from the producer.
func (a *QueueHandlerAdapter) Unsubscribe(config model.SubscriptionConfig) error {
	err := a.handler.Unsubscribe(config)
	if needsAux(config) {
		a.unsubscribeAux(config)
	}
	return err
}

func (a *QueueHandlerAdapter) unsubscribeAll(config model.SubscriptionConfig) {
	if err := a.handler.Unsubscribe(config); err != nil {
		log.WithField("symbol", config.Symbol).Warnf("adapter: unsubscribe failed: %v", err)
	}
	a.unsubscribeAux(config)
}

func (a *QueueHandlerAdapter) unsubscribeAux(config model.SubscriptionConfig) {
	for _, auxConfig := range auxConfigs(config) {
		if err := a.handler.Unsubscribe(auxConfig); err != nil {
			log.WithField("symbol", config.Symbol).Warnf("adapter: unsubscribe %s failed: %v", auxConfig.DataType, err)
		}
	}
}

// UniverseProvider reports the handler's optional universe capability.
func (a *QueueHandlerAdapter) UniverseProvider() (service.DataQueueUniverseProvider, bool) {
	provider, ok := a.handler.(service.DataQueueUniverseProvider)
	return provider, ok
}
