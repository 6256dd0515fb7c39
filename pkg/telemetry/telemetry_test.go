package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentileTrackerRecordAndSnapshot(t *testing.T) {
	tr := NewPercentileTracker(10)

	tr.Record("checkout", 10*time.Millisecond)
	tr.Record("checkout", 20*time.Millisecond)
	tr.Record("checkout", 30*time.Millisecond)

	snap := tr.Snapshot("checkout")
	assert.EqualValues(t, 3, snap.Count)
	assert.Equal(t, 1, tr.LabelCount())
}

func TestPercentileTrackerUnknownLabelIsZero(t *testing.T) {
	tr := NewPercentileTracker(10)
	snap := tr.Snapshot("never-seen")
	assert.Equal(t, Snapshot{}, snap)
}

func TestPercentileTrackerDisabledRecordIsNoop(t *testing.T) {
	tr := NewPercentileTracker(10)
	tr.SetEnabled(false)
	tr.Record("checkout", 10*time.Millisecond)

	assert.Equal(t, 0, tr.LabelCount())
	assert.Equal(t, Snapshot{}, tr.Snapshot("checkout"))
}

func TestPercentileTrackerEvictsLRU(t *testing.T) {
	tr := NewPercentileTracker(2)

	tr.Record("a", time.Millisecond)
	tr.Record("b", time.Millisecond)
	tr.Record("a", time.Millisecond) // refresh a's lastUpdate
	tr.Record("c", time.Millisecond) // should evict b, not a

	require.Equal(t, 2, tr.LabelCount())
	assert.NotEqual(t, Snapshot{}, tr.Snapshot("a"))
	assert.NotEqual(t, Snapshot{}, tr.Snapshot("c"))
	assert.Equal(t, Snapshot{}, tr.Snapshot("b"))
}

func TestPercentileTrackerClearAllKeepsLabels(t *testing.T) {
	tr := NewPercentileTracker(10)
	tr.Record("checkout", 10*time.Millisecond)
	tr.ClearAll()

	assert.Equal(t, 1, tr.LabelCount())
	assert.Equal(t, Snapshot{}, tr.Snapshot("checkout"))
}

func TestPercentileTrackerStartRotation(t *testing.T) {
	tr := NewPercentileTracker(10)
	tr.Record("checkout", 10*time.Millisecond)

	stopCh := make(chan struct{})
	tr.StartRotation(5*time.Millisecond, stopCh)
	defer close(stopCh)

	require.Eventually(t, func() bool {
		return tr.Snapshot("checkout") == Snapshot{}
	}, time.Second, 5*time.Millisecond)
}

func TestThroughputTrackerIncrementAndTotal(t *testing.T) {
	tr := NewThroughputTracker()
	tr.Increment("checkout")
	tr.Increment("checkout")
	tr.Increment("login")

	assert.EqualValues(t, 3, tr.Total())
}

func TestThroughputTrackerRpsUnknownScenario(t *testing.T) {
	tr := NewThroughputTracker()
	assert.Equal(t, 0.0, tr.Rps("never-seen"))
}

func TestThroughputTrackerReset(t *testing.T) {
	tr := NewThroughputTracker()
	tr.Increment("checkout")
	tr.Reset()
	assert.EqualValues(t, 0, tr.Total())
}

func TestClassifyByStatusCode(t *testing.T) {
	assert.Equal(t, CategoryClientError, Classify(404, nil))
	assert.Equal(t, CategoryServerError, Classify(503, nil))
	assert.Equal(t, CategoryOtherError, Classify(301, nil))
}

func TestClassifyByTransportError(t *testing.T) {
	assert.Equal(t, CategoryTimeoutError, Classify(0, errors.New("context deadline exceeded")))
	assert.Equal(t, CategoryNetworkError, Classify(0, errors.New("dial tcp: connection refused")))
	assert.Equal(t, CategoryTLSError, Classify(0, errors.New("x509: certificate signed by unknown authority")))
	assert.Equal(t, CategoryOtherError, Classify(0, errors.New("something unexpected")))
	assert.Equal(t, CategoryOtherError, Classify(0, nil))
}

func TestPoolStatsClassifiesByLatency(t *testing.T) {
	cfg := DefaultPoolConfig()
	ps := NewPoolStats(cfg)

	ps.Observe(10 * time.Millisecond)
	ps.Observe(50 * time.Millisecond)
	ps.Observe(200 * time.Millisecond)

	assert.EqualValues(t, 3, ps.Total())
	assert.EqualValues(t, 2, ps.Reused())
	assert.EqualValues(t, 1, ps.New())
	assert.InDelta(t, 2.0/3.0, ps.ReuseRate(), 0.0001)
	assert.Equal(t, 260*time.Millisecond, ps.Duration())
}

func TestPoolStatsReuseRateEmpty(t *testing.T) {
	ps := NewPoolStats(DefaultPoolConfig())
	assert.Equal(t, 0.0, ps.ReuseRate())
}

func TestPoolStatsReset(t *testing.T) {
	ps := NewPoolStats(DefaultPoolConfig())
	ps.Observe(10 * time.Millisecond)
	ps.Reset()
	assert.EqualValues(t, 0, ps.Total())
	assert.Equal(t, time.Duration(0), ps.Duration())
}

func TestNewTransportAppliesPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig()
	transport := NewTransport(cfg, false)
	assert.Equal(t, cfg.MaxIdlePerHost, transport.MaxIdleConnsPerHost)
	assert.Equal(t, cfg.IdleTimeout, transport.IdleConnTimeout)
	assert.Nil(t, transport.TLSClientConfig)
}

func TestNewTransportSkipTLSVerify(t *testing.T) {
	transport := NewTransport(DefaultPoolConfig(), true)
	require.NotNil(t, transport.TLSClientConfig)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
}

func TestApplyClientCertErrorsOnMissingFiles(t *testing.T) {
	transport := NewTransport(DefaultPoolConfig(), false)
	err := ApplyClientCert(transport, "/nonexistent/client.crt", "/nonexistent/client.key")
	assert.Error(t, err)
}

func TestApplyResolveOverrideRedirectsMatchingHost(t *testing.T) {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errors.New("dial to " + addr)
		},
	}
	ApplyResolveOverride(transport, "api.example.com", "10.0.0.5:443")

	_, err := transport.DialContext(context.Background(), "tcp", "api.example.com:443")
	assert.EqualError(t, err, "dial to 10.0.0.5:443")

	_, err = transport.DialContext(context.Background(), "tcp", "other.example.com:443")
	assert.EqualError(t, err, "dial to other.example.com:443")
}

func TestMemGuardWarnsOnceUntilRecovered(t *testing.T) {
	tracker := NewPercentileTracker(10)
	cfg := MemGuardConfig{
		WarningPercent:  80,
		CriticalPercent: 95,
		LimitBytes:      1000,
		AutoDisable:     true,
	}
	guard := NewMemGuard(cfg, tracker)

	guard.evaluate(850) // 85%, above warning
	assert.True(t, guard.warnedOnce.Load())
	assert.False(t, tracker.Enabled())

	guard.evaluate(200) // back under warning
	assert.False(t, guard.warnedOnce.Load())
}

func TestMemGuardCriticalClearsHistograms(t *testing.T) {
	tracker := NewPercentileTracker(10)
	tracker.Record("checkout", time.Millisecond)

	cfg := MemGuardConfig{
		WarningPercent:  80,
		CriticalPercent: 90,
		LimitBytes:      1000,
		AutoDisable:     true,
	}
	guard := NewMemGuard(cfg, tracker)
	guard.evaluate(950) // 95%, above critical

	assert.Equal(t, Snapshot{}, tracker.Snapshot("checkout"))
}

func TestHubRecordRequestUpdatesAllTrackers(t *testing.T) {
	hub := NewHub(10, MemGuardConfig{LimitBytes: 1 << 30, AutoDisable: true}, DefaultPoolConfig())
	defer hub.Stop()

	hub.RecordRequest("checkout:step1", "checkout", 20*time.Millisecond)

	assert.EqualValues(t, 1, hub.Percentiles.Snapshot("checkout:step1").Count)
	assert.EqualValues(t, 1, hub.Throughput.Total())
	assert.EqualValues(t, 1, hub.Pool.Total())
}

func TestOutcomeTrackerErrorRatePct(t *testing.T) {
	o := NewOutcomeTracker()
	assert.Equal(t, float64(0), o.ErrorRatePct())

	o.Record(true)
	o.Record(true)
	o.Record(false)

	assert.EqualValues(t, 3, o.Total())
	assert.EqualValues(t, 1, o.Failed())
	assert.InDelta(t, 33.33, o.ErrorRatePct(), 0.01)
}

func TestCPUSamplerPercentBeforeFirstSampleIsZero(t *testing.T) {
	c := NewCPUSampler()
	assert.Equal(t, float64(0), c.Percent())
}

func TestCPUSamplerSampleProducesNonNegativePercent(t *testing.T) {
	c := NewCPUSampler()
	c.sample()
	c.sample()
	assert.GreaterOrEqual(t, c.Percent(), float64(0))
}

func TestMemGuardNoLimitIsNoop(t *testing.T) {
	tracker := NewPercentileTracker(10)
	guard := NewMemGuard(MemGuardConfig{LimitBytes: 0, AutoDisable: true}, tracker)
	guard.limitBytes = 0
	guard.evaluate(1 << 40)
	assert.False(t, guard.warnedOnce.Load())
}
