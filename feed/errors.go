// Package feed implements the live market-data feed core: per-subscription
// pull pipelines gated by a shared frontier clock, bridged from push
// producers and spliced behind a bounded warmup replay.
package feed

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/quantfeed/quantfeed/model"
)

var (
	// ErrInvalidJob is returned by Initialize for a nil or non-live job.
	ErrInvalidJob = errors.New("feed: initialize requires a live job")
	// ErrNotActive is returned when subscriptions are created outside the
	// active state.
	ErrNotActive = errors.New("feed: not active")
	// ErrUnsupportedSecurityType is returned when a universe subscription
	// needs a capability the queue handler does not implement.
	ErrUnsupportedSecurityType = errors.New("feed: queue handler does not support universe selection for security type")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("feed: already initialized")
)

// ConstructionError wraps any failure during pipeline assembly. It carries
// the offending configuration for diagnosis; the feed itself continues.
type ConstructionError struct {
	Config model.SubscriptionConfig
	Err    error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("feed: subscription construction failed for %s: %v", e.Config.Key(), e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

func constructionError(config model.SubscriptionConfig, err error, msg string) *ConstructionError {
	return &ConstructionError{Config: config, Err: errors.Wrap(err, msg)}
}
