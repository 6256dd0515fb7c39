package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/rs/zerolog"

	"github.com/cuemby/pulsewave/pkg/log"
)

const (
	histogramMinValue = int64(1)        // 1 microsecond
	histogramMaxValue = int64(60000000) // 60 seconds, in microseconds
	histogramSigFigs   = 3
)

// Snapshot is a point-in-time read of one label's histogram.
type Snapshot struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
	P999  time.Duration
}

type labelHistogram struct {
	mu         sync.Mutex
	hist       *hdrhistogram.Histogram
	lastUpdate time.Time
}

// PercentileTracker is a global, label-keyed HDR-histogram percentile
// tracker bounded to MAX_HISTOGRAM_LABELS with LRU-by-last-update
// eviction. Grounded on wesleyorama2-lunge's metrics Engine: per-label
// histogram guarded by its own mutex, a coarser lock only for the
// label-set itself.
type PercentileTracker struct {
	mu         sync.RWMutex
	labels     map[string]*labelHistogram
	maxLabels  int
	enabled    atomic.Bool
	logger     zerolog.Logger
	warnedFull bool
}

// NewPercentileTracker constructs a tracker with the given label cap.
func NewPercentileTracker(maxLabels int) *PercentileTracker {
	t := &PercentileTracker{
		labels:    make(map[string]*labelHistogram),
		maxLabels: maxLabels,
	}
	t.enabled.Store(true)
	t.logger = log.WithComponent("telemetry.percentile")
	return t
}

// SetEnabled toggles recording globally. When disabled, Record is a
// no-op and Snapshot reports zeros (memory guard uses this at warning
// threshold).
func (t *PercentileTracker) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

// Enabled reports whether recording is currently active.
func (t *PercentileTracker) Enabled() bool {
	return t.enabled.Load()
}

// Record adds one latency observation under label.
func (t *PercentileTracker) Record(label string, latency time.Duration) {
	if !t.enabled.Load() {
		return
	}

	h := t.labelFor(label)
	micros := latency.Microseconds()
	if micros < histogramMinValue {
		micros = histogramMinValue
	}
	if micros > histogramMaxValue {
		micros = histogramMaxValue
	}

	h.mu.Lock()
	_ = h.hist.RecordValue(micros)
	h.lastUpdate = time.Now()
	h.mu.Unlock()
}

// labelFor returns (creating if necessary) the histogram for label,
// evicting the least-recently-updated label if at capacity.
func (t *PercentileTracker) labelFor(label string) *labelHistogram {
	t.mu.RLock()
	h, ok := t.labels[label]
	t.mu.RUnlock()
	if ok {
		return h
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.labels[label]; ok {
		return h
	}

	if len(t.labels) >= t.maxLabels {
		t.evictLRULocked()
	}

	h = &labelHistogram{
		hist:       hdrhistogram.New(histogramMinValue, histogramMaxValue, histogramSigFigs),
		lastUpdate: time.Now(),
	}
	t.labels[label] = h

	if float64(len(t.labels)) >= 0.8*float64(t.maxLabels) && !t.warnedFull {
		t.warnedFull = true
		t.logger.Warn().Int("labels", len(t.labels)).Int("max", t.maxLabels).
			Msg("percentile tracker at 80% of label capacity")
	}

	return h
}

// evictLRULocked removes the label with the oldest lastUpdate. Caller
// must hold t.mu.
func (t *PercentileTracker) evictLRULocked() {
	var oldestLabel string
	var oldest time.Time
	first := true
	for label, h := range t.labels {
		h.mu.Lock()
		lu := h.lastUpdate
		h.mu.Unlock()
		if first || lu.Before(oldest) {
			oldest = lu
			oldestLabel = label
			first = false
		}
	}
	if oldestLabel != "" {
		delete(t.labels, oldestLabel)
	}
}

// Snapshot reads the current distribution for label. Returns a
// zero-value Snapshot if the label has never been recorded or
// tracking is disabled.
func (t *PercentileTracker) Snapshot(label string) Snapshot {
	if !t.enabled.Load() {
		return Snapshot{}
	}

	t.mu.RLock()
	h, ok := t.labels[label]
	t.mu.RUnlock()
	if !ok {
		return Snapshot{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hist.TotalCount() == 0 {
		return Snapshot{}
	}

	return Snapshot{
		Count: h.hist.TotalCount(),
		Min:   time.Duration(h.hist.Min()) * time.Microsecond,
		Max:   time.Duration(h.hist.Max()) * time.Microsecond,
		Mean:  time.Duration(h.hist.Mean()) * time.Microsecond,
		P50:   time.Duration(h.hist.ValueAtPercentile(50)) * time.Microsecond,
		P90:   time.Duration(h.hist.ValueAtPercentile(90)) * time.Microsecond,
		P95:   time.Duration(h.hist.ValueAtPercentile(95)) * time.Microsecond,
		P99:   time.Duration(h.hist.ValueAtPercentile(99)) * time.Microsecond,
		P999:  time.Duration(h.hist.ValueAtPercentile(99.9)) * time.Microsecond,
	}
}

// Reset zeroes a single label's histogram without removing it.
func (t *PercentileTracker) Reset(label string) {
	t.mu.RLock()
	h, ok := t.labels[label]
	t.mu.RUnlock()
	if !ok {
		return
	}
	h.mu.Lock()
	h.hist.Reset()
	h.mu.Unlock()
}

// ClearAll zeroes every label's histogram in place; labels themselves
// are not removed (used by the rotation tick and the memory guard).
func (t *PercentileTracker) ClearAll() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, h := range t.labels {
		h.mu.Lock()
		h.hist.Reset()
		h.mu.Unlock()
	}
}

// LabelCount reports the number of distinct labels currently tracked.
func (t *PercentileTracker) LabelCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.labels)
}

// StartRotation runs ClearAll every interval until stopCh closes. A
// rotation never removes labels, only resets their histograms.
func (t *PercentileTracker) StartRotation(interval time.Duration, stopCh <-chan struct{}) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.ClearAll()
			case <-stopCh:
				return
			}
		}
	}()
}
