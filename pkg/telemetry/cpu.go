package telemetry

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/procfs"
)

func storeFloat(a *atomic.Uint64, v float64) {
	a.Store(math.Float64bits(v))
}

func loadFloat(a *atomic.Uint64) float64 {
	return math.Float64frombits(a.Load())
}

// cpuSampleInterval matches MemGuard's sampleInterval so both gauges
// update on the same cadence.
const cpuSampleInterval = 5 * time.Second

// CPUSampler tracks this process's CPU utilization as a percentage of
// one core, sampled periodically via /proc/self/stat. Grounded on
// MemGuard's ticker+stopCh background-sampling idiom, using procfs (an
// indirect dependency of client_golang's process collector) instead of
// hand-parsing /proc/self/stat.
type CPUSampler struct {
	pct atomic.Uint64 // math.Float64bits

	mu       sync.Mutex
	lastCPU  time.Duration
	lastWall time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCPUSampler constructs a sampler with an unstarted background loop.
func NewCPUSampler() *CPUSampler {
	return &CPUSampler{stopCh: make(chan struct{})}
}

// Start begins the sampling loop.
func (c *CPUSampler) Start() {
	go c.run()
}

// Stop ends the sampling loop.
func (c *CPUSampler) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *CPUSampler) run() {
	ticker := time.NewTicker(cpuSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sample()
		case <-c.stopCh:
			return
		}
	}
}

func (c *CPUSampler) sample() {
	proc, err := procfs.Self()
	if err != nil {
		return
	}
	stat, err := proc.Stat()
	if err != nil {
		return
	}

	cpu := time.Duration(stat.CPUTime() * float64(time.Second))
	now := time.Now()

	c.mu.Lock()
	prevCPU, prevWall := c.lastCPU, c.lastWall
	c.lastCPU, c.lastWall = cpu, now
	c.mu.Unlock()

	if prevWall.IsZero() {
		return
	}

	wallDelta := now.Sub(prevWall)
	if wallDelta <= 0 {
		return
	}

	pct := float64(cpu-prevCPU) / float64(wallDelta) * 100
	if pct < 0 {
		pct = 0
	}
	storeFloat(&c.pct, pct)
}

// Percent returns the most recently sampled CPU percentage (of one
// core), or 0 before the first two samples have been taken.
func (c *CPUSampler) Percent() float64 {
	return loadFloat(&c.pct)
}
