package telemetry

import (
	"sync"
	"time"
)

// scenarioCounter tracks one scenario's running request count since its
// own start time.
type scenarioCounter struct {
	mu      sync.Mutex
	count   int64
	started time.Time
}

// ThroughputTracker keeps a per-scenario running count with wall-clock
// start, from which rps = count/elapsed is derived on demand.
// Grounded on georgi-georgiev's ThroughputMetrics accumulation.
type ThroughputTracker struct {
	mu        sync.RWMutex
	scenarios map[string]*scenarioCounter
}

// NewThroughputTracker constructs an empty tracker.
func NewThroughputTracker() *ThroughputTracker {
	return &ThroughputTracker{
		scenarios: make(map[string]*scenarioCounter),
	}
}

// Increment records one completed request under scenario.
func (t *ThroughputTracker) Increment(scenario string) {
	t.counterFor(scenario).bump()
}

func (t *ThroughputTracker) counterFor(scenario string) *scenarioCounter {
	t.mu.RLock()
	c, ok := t.scenarios[scenario]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.scenarios[scenario]; ok {
		return c
	}
	c = &scenarioCounter{started: time.Now()}
	t.scenarios[scenario] = c
	return c
}

func (c *scenarioCounter) bump() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

// Rps returns the current requests-per-second for scenario.
func (t *ThroughputTracker) Rps(scenario string) float64 {
	t.mu.RLock()
	c, ok := t.scenarios[scenario]
	t.mu.RUnlock()
	if !ok {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := time.Since(c.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(c.count) / elapsed
}

// Total sums the current count across every scenario.
func (t *ThroughputTracker) Total() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total int64
	for _, c := range t.scenarios {
		c.mu.Lock()
		total += c.count
		c.mu.Unlock()
	}
	return total
}

// TotalRps sums the per-scenario rps across every scenario.
func (t *ThroughputTracker) TotalRps() float64 {
	t.mu.RLock()
	scenarios := make([]string, 0, len(t.scenarios))
	for s := range t.scenarios {
		scenarios = append(scenarios, s)
	}
	t.mu.RUnlock()

	var total float64
	for _, s := range scenarios {
		total += t.Rps(s)
	}
	return total
}

// Reset returns the tracker to its just-initialized state.
func (t *ThroughputTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scenarios = make(map[string]*scenarioCounter)
}
