package telemetry

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/pulsewave/pkg/log"
)

const sampleInterval = 5 * time.Second

// MemGuardConfig configures the memory guard's thresholds and behavior.
type MemGuardConfig struct {
	WarningPercent  float64 // default 80
	CriticalPercent float64 // default 90
	LimitBytes      uint64  // cgroup/system limit; 0 = auto-detect
	AutoDisable     bool    // run defensive actions; false = log only
}

// DefaultMemGuardConfig matches §4.5's stated defaults.
func DefaultMemGuardConfig() MemGuardConfig {
	return MemGuardConfig{
		WarningPercent:  80,
		CriticalPercent: 90,
		AutoDisable:     true,
	}
}

// MemGuard samples RSS every 5 seconds and, when it crosses the
// configured thresholds, disables percentile recording and clears
// histograms. Grounded on the teacher's ticker+stopCh background-loop
// idiom (pkg/worker/worker.go's heartbeatLoop).
type MemGuard struct {
	cfg          MemGuardConfig
	tracker      *PercentileTracker
	limitBytes   uint64
	rss          atomic.Uint64
	warnedOnce   atomic.Bool
	stopCh       chan struct{}
	stopOnce     sync.Once
	logger       zerolog.Logger
}

// NewMemGuard constructs a guard bound to tracker, detecting the
// memory limit at construction time unless cfg.LimitBytes is set.
func NewMemGuard(cfg MemGuardConfig, tracker *PercentileTracker) *MemGuard {
	limit := cfg.LimitBytes
	if limit == 0 {
		limit = detectMemoryLimit()
	}
	return &MemGuard{
		cfg:        cfg,
		tracker:    tracker,
		limitBytes: limit,
		stopCh:     make(chan struct{}),
		logger:     log.WithComponent("telemetry.memguard"),
	}
}

// Start begins the sampling loop.
func (g *MemGuard) Start() {
	go g.run()
}

// Stop ends the sampling loop.
func (g *MemGuard) Stop() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}

func (g *MemGuard) run() {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.sample()
		case <-g.stopCh:
			return
		}
	}
}

// sample reads RSS, updates the exported gauge value, and runs the
// warning/critical defensive actions from §4.5.
func (g *MemGuard) sample() {
	rss := readRSSBytes()
	g.rss.Store(rss)
	g.evaluate(rss)
}

// evaluate runs the warning/critical defensive actions from §4.5 against
// an already-sampled RSS value. Split out from sample so the threshold
// logic can be exercised without reading real process memory.
func (g *MemGuard) evaluate(rss uint64) {
	if g.limitBytes == 0 {
		return
	}

	pct := float64(rss) / float64(g.limitBytes) * 100

	switch {
	case pct >= g.cfg.CriticalPercent:
		if g.cfg.AutoDisable {
			g.tracker.ClearAll()
		}
		if !g.warnedOnce.Swap(true) {
			g.logger.Warn().Float64("rss_pct", pct).Msg("memory guard: critical threshold crossed")
		}
	case pct >= g.cfg.WarningPercent:
		if g.cfg.AutoDisable {
			g.tracker.SetEnabled(false)
			g.tracker.ClearAll()
		}
		if !g.warnedOnce.Swap(true) {
			g.logger.Warn().Float64("rss_pct", pct).Msg("memory guard: warning threshold crossed")
		}
	default:
		g.warnedOnce.Store(false)
	}
}

// RSSBytes returns the last-sampled resident set size.
func (g *MemGuard) RSSBytes() uint64 {
	return g.rss.Load()
}

// LimitBytes returns the detected or configured memory limit.
func (g *MemGuard) LimitBytes() uint64 {
	return g.limitBytes
}

func readRSSBytes() uint64 {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Sys
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "VmRSS:") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				kb, err := strconv.ParseUint(fields[1], 10, 64)
				if err == nil {
					return kb * 1024
				}
			}
		}
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Sys
}

func detectMemoryLimit() uint64 {
	if limit, ok := readCgroupMemoryLimit(); ok {
		return limit
	}
	return systemTotalMemory()
}

const cgroupV2MaxPath = "/sys/fs/cgroup/memory.max"
const cgroupV1LimitPath = "/sys/fs/cgroup/memory/memory.limit_in_bytes"

func readCgroupMemoryLimit() (uint64, bool) {
	for _, path := range []string{cgroupV2MaxPath, cgroupV1LimitPath} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		s := strings.TrimSpace(string(data))
		if s == "max" {
			continue
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			continue
		}
		// An absurdly large value (no real cgroup limit set) is
		// treated as "no limit configured".
		if v > 1<<62 {
			continue
		}
		return v, true
	}
	return 0, false
}

func systemTotalMemory() uint64 {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0
	}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				kb, err := strconv.ParseUint(fields[1], 10, 64)
				if err == nil {
					return kb * 1024
				}
			}
		}
	}
	return 0
}
