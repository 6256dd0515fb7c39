package scenario

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/cuemby/pulsewave/pkg/types"
)

// Selector picks one scenario from a fixed set for each new execution.
type Selector interface {
	Select() types.Scenario
}

// WeightedSelector does an O(n) cumulative-weight walk against a
// uniform variate over [0, sum_weights), per §4.11.
type WeightedSelector struct {
	scenarios []types.Scenario
	cumWeight []float64
	total     float64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewWeightedSelector builds a selector over scenarios. Panics if the
// sum of weights is not strictly positive, matching the data-model
// invariant that callers are expected to have already validated.
func NewWeightedSelector(scenarios []types.Scenario) *WeightedSelector {
	cum := make([]float64, len(scenarios))
	var total float64
	for i, s := range scenarios {
		total += s.Weight
		cum[i] = total
	}
	if total <= 0 {
		panic("scenario: sum of weights must be strictly positive")
	}
	return &WeightedSelector{
		scenarios: scenarios,
		cumWeight: cum,
		total:     total,
		rng:       rand.New(rand.NewSource(rand.Int63())),
	}
}

// Select returns one scenario, chosen with probability proportional to
// its weight.
func (s *WeightedSelector) Select() types.Scenario {
	s.rngMu.Lock()
	v := s.rng.Float64()
	s.rngMu.Unlock()
	r := v * s.total
	for i, cum := range s.cumWeight {
		if r < cum {
			return s.scenarios[i]
		}
	}
	return s.scenarios[len(s.scenarios)-1]
}

// RoundRobinSelector atomically advances an index modulo scenario
// count, independent of rate control.
type RoundRobinSelector struct {
	scenarios []types.Scenario
	next      atomic.Uint64
}

// NewRoundRobinSelector builds a round-robin selector over scenarios.
func NewRoundRobinSelector(scenarios []types.Scenario) *RoundRobinSelector {
	return &RoundRobinSelector{scenarios: scenarios}
}

// Select returns the next scenario in rotation.
func (s *RoundRobinSelector) Select() types.Scenario {
	i := s.next.Add(1) - 1
	return s.scenarios[i%uint64(len(s.scenarios))]
}
