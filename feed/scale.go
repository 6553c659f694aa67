package feed

import (
	"github.com/quantfeed/quantfeed/model"
)

// priceScale multiplies price payloads by the factor-file value at each
// point's end time. It runs before fill-forward so synthetic points inherit
// scaled prices. Auxiliary and non-price payloads pass through untouched.
type priceScale struct {
	upstream Enumerator
	factors  model.FactorFile
	current  *model.DataPoint
}

// NewPriceScaleEnumerator wraps upstream with live-mode price adjustment.
func NewPriceScaleEnumerator(upstream Enumerator, factors model.FactorFile) Enumerator {
	return &priceScale{upstream: upstream, factors: factors}
}

func (s *priceScale) MoveNext() bool {
	if !s.upstream.MoveNext() {
		s.current = nil
		return false
	}
	point := s.upstream.Current()
	if point == nil || point.IsAuxiliary() {
		s.current = point
		return true
	}
	s.current = point.Scale(s.factors.FactorAt(point.EndTime))
	return true
}

func (s *priceScale) Current() *model.DataPoint { return s.current }

func (s *priceScale) Close() error { return s.upstream.Close() }
