package engine

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/pulsewave/pkg/loadmodel"
	"github.com/cuemby/pulsewave/pkg/telemetry"
	"github.com/cuemby/pulsewave/pkg/types"
)

func newTestHub(t *testing.T) *telemetry.Hub {
	t.Helper()
	hub := telemetry.NewHub(64, telemetry.MemGuardConfig{}, telemetry.DefaultPoolConfig())
	t.Cleanup(hub.Stop)
	return hub
}

func concurrentConfig(baseURL string, workers int, duration time.Duration) *types.Config {
	return &types.Config{
		Version: "1.0",
		Run: types.RunConfig{
			BaseURL:  baseURL,
			Workers:  workers,
			Timeout:  2 * time.Second,
			Duration: duration,
		},
		Load: loadmodel.Model{Kind: loadmodel.KindConcurrent, Workers: workers},
		Scenarios: []types.Scenario{
			{
				Name:   "ping",
				Weight: 1,
				Steps: []types.Step{
					{
						Name:    "get",
						Request: types.Request{Method: http.MethodGet, Path: "/"},
						Assertions: []types.Assertion{
							{Kind: types.AssertionStatusCode, StatusCode: 200},
						},
					},
				},
			},
		},
	}
}

func TestPoolLifecycleReachesStandby(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := concurrentConfig(srv.URL, 2, 150*time.Millisecond)
	pool := NewPool(cfg, newTestHub(t))
	assert.Equal(t, StateInitializing, pool.State())

	pool.Start()
	defer pool.Stop()

	require.Eventually(t, func() bool {
		return pool.State() == StateStandby
	}, 2*time.Second, 10*time.Millisecond)

	assert.Greater(t, hits.Load(), int64(0))
}

func TestPoolApplyConfigResumesFromStandby(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := concurrentConfig(srv.URL, 1, 80*time.Millisecond)
	pool := NewPool(cfg, newTestHub(t))
	pool.Start()
	defer pool.Stop()

	require.Eventually(t, func() bool {
		return pool.State() == StateStandby
	}, 2*time.Second, 10*time.Millisecond)

	next := concurrentConfig(srv.URL, 1, time.Hour)
	pool.ApplyConfig(next, "")

	require.Eventually(t, func() bool {
		return pool.State() == StateRunning
	}, time.Second, 10*time.Millisecond)
}

func TestPoolConfigReflectsApplyConfig(t *testing.T) {
	cfg := concurrentConfig("https://example.com", 1, time.Second)
	pool := NewPool(cfg, newTestHub(t))

	updated := concurrentConfig("https://updated.example.com", 3, time.Second)
	pool.ApplyConfig(updated, "")

	assert.Equal(t, "https://updated.example.com", pool.Config().Run.BaseURL)
	assert.Equal(t, 3, pool.Config().Run.Workers)
}

func TestPoolRawYAMLTracksApplyConfig(t *testing.T) {
	cfg := concurrentConfig("https://example.com", 1, time.Second)
	pool := NewPool(cfg, newTestHub(t))
	pool.SetRawYAML("version: \"1.0\"\n")
	assert.Equal(t, "version: \"1.0\"\n", pool.RawYAML())

	updated := concurrentConfig("https://example.com", 1, time.Second)
	pool.ApplyConfig(updated, "version: \"1.1\"\n")
	assert.Equal(t, "version: \"1.1\"\n", pool.RawYAML())
}

func TestPoolWiresResolveOverrideIntoTransport(t *testing.T) {
	var gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	srvAddr := strings.TrimPrefix(srv.URL, "http://")

	cfg := concurrentConfig("http://resolved.invalid", 1, 50*time.Millisecond)
	cfg.Run.ResolveHost = "resolved.invalid"
	cfg.Run.ResolveAddr = srvAddr
	pool := NewPool(cfg, newTestHub(t))

	pool.Start()
	require.Eventually(t, func() bool {
		return pool.State() == StateStandby
	}, 2*time.Second, 10*time.Millisecond)
	pool.Stop()

	assert.Equal(t, "resolved.invalid", gotHost)
}

func TestDispatchOnceSingleRequestModeHitsBaseURLDirectly(t *testing.T) {
	var hits atomic.Int64
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := concurrentConfig(srv.URL, 1, 150*time.Millisecond)
	cfg.Scenarios = nil
	pool := NewPool(cfg, newTestHub(t))

	pool.Start()
	defer pool.Stop()

	require.Eventually(t, func() bool {
		return hits.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "/", gotPath)
	assert.Equal(t, http.MethodGet, gotMethod)
}

func TestDispatchOnceSingleRequestModeUsesRequestTypeDefault(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := concurrentConfig(srv.URL, 1, 150*time.Millisecond)
	cfg.Scenarios = nil
	cfg.Run.Defaults.Method = http.MethodPost
	pool := NewPool(cfg, newTestHub(t))

	pool.Start()
	defer pool.Stop()

	require.Eventually(t, func() bool {
		return gotMethod != ""
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.MethodPost, gotMethod)
}
