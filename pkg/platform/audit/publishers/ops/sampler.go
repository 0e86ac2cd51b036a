package ops

import (
	"math/rand/v2"
	"sync"
)

// Sampler keeps a fraction of operations events. Rates are clamped to
// [0, 1]; an action without its own rate uses the default.
type Sampler struct {
	mu       sync.RWMutex
	fallback float64
	rates    map[string]float64
	random   func() float64
}

func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		fallback: clampRate(defaultRate),
		rates:    make(map[string]float64),
		random:   rand.Float64, //nolint:gosec // sampling is not security sensitive
	}
}

func (s *Sampler) ShouldSample(action string) bool {
	s.mu.RLock()
	rate, ok := s.rates[action]
	if !ok {
		rate = s.fallback
	}
	s.mu.RUnlock()
	return rate >= 1 || s.random() < rate
}

// SetRate overrides the rate for one action, typically to thin out signed
// transactions and relay confirmations.
func (s *Sampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[action] = clampRate(rate)
}

func (s *Sampler) SetDefaultRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = clampRate(rate)
}

func clampRate(rate float64) float64 {
	return min(max(rate, 0), 1)
}
