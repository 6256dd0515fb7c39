package telemetry

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

func insecureTLSConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in per config
}

// PoolConfig configures the shared HTTP transport's idle-connection
// behavior, applied at construction per §4.6.
type PoolConfig struct {
	MaxIdlePerHost int           // default 32
	IdleTimeout    time.Duration // default 90s
	KeepAlive      time.Duration // default 60s
	ReuseThreshold time.Duration // default 100ms
}

// DefaultPoolConfig matches §4.6's stated defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdlePerHost: 32,
		IdleTimeout:    90 * time.Second,
		KeepAlive:      60 * time.Second,
		ReuseThreshold: 100 * time.Millisecond,
	}
}

// NewTransport builds an *http.Transport tuned per cfg, for use by every
// component that issues HTTP requests against the target under test.
func NewTransport(cfg PoolConfig, skipTLSVerify bool) *http.Transport {
	dialer := &net.Dialer{
		KeepAlive: cfg.KeepAlive,
	}
	t := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: cfg.MaxIdlePerHost,
		IdleConnTimeout:     cfg.IdleTimeout,
	}
	if skipTLSVerify {
		t.TLSClientConfig = insecureTLSConfig()
	}
	return t
}

// ApplyClientCert installs an mTLS client certificate on t, per
// CLIENT_CERT_PATH/CLIENT_KEY_PATH in §6.
func ApplyClientCert(t *http.Transport, certPath, keyPath string) error {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return err
	}
	if t.TLSClientConfig == nil {
		t.TLSClientConfig = &tls.Config{}
	}
	t.TLSClientConfig.Certificates = []tls.Certificate{cert}
	return nil
}

// ApplyResolveOverride rewrites t's dialer so any connection to host
// is redirected to addr regardless of DNS, per RESOLVE_TARGET_ADDR.
func ApplyResolveOverride(t *http.Transport, host, addr string) {
	base := t.DialContext
	t.DialContext = func(ctx context.Context, network, target string) (net.Conn, error) {
		if h, _, err := net.SplitHostPort(target); err == nil && h == host {
			target = addr
		}
		return base(ctx, network, target)
	}
}

// PoolStats classifies completed requests as "likely reused" or "likely
// new" by latency, since the standard transport does not report actual
// connection reuse. Grounded on the teacher's atomic-counter metrics
// idiom (pkg/worker's heartbeat counters).
type PoolStats struct {
	cfg    PoolConfig
	total  atomic.Int64
	reused atomic.Int64
	newer  atomic.Int64

	mu       sync.Mutex
	duration time.Duration
}

// NewPoolStats constructs a classifier using cfg.ReuseThreshold.
func NewPoolStats(cfg PoolConfig) *PoolStats {
	return &PoolStats{cfg: cfg}
}

// Observe records one completed request's latency.
func (p *PoolStats) Observe(latency time.Duration) {
	p.total.Add(1)
	if latency < p.cfg.ReuseThreshold {
		p.reused.Add(1)
	} else {
		p.newer.Add(1)
	}

	p.mu.Lock()
	p.duration += latency
	p.mu.Unlock()
}

// Total returns the number of requests classified so far.
func (p *PoolStats) Total() int64 {
	return p.total.Load()
}

// Reused returns the number of requests classified as likely reused.
func (p *PoolStats) Reused() int64 {
	return p.reused.Load()
}

// New returns the number of requests classified as likely new.
func (p *PoolStats) New() int64 {
	return p.newer.Load()
}

// ReuseRate returns reused/total, or 0 if nothing has been observed.
func (p *PoolStats) ReuseRate() float64 {
	total := p.total.Load()
	if total == 0 {
		return 0
	}
	return float64(p.reused.Load()) / float64(total)
}

// Duration returns the cumulative observed latency across all requests.
func (p *PoolStats) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Reset returns the tracker to its just-initialized state.
func (p *PoolStats) Reset() {
	p.total.Store(0)
	p.reused.Store(0)
	p.newer.Store(0)
	p.mu.Lock()
	p.duration = 0
	p.mu.Unlock()
}
