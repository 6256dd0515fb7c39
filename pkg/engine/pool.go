package engine

import (
	"context"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/pulsewave/pkg/datasource"
	"github.com/cuemby/pulsewave/pkg/log"
	"github.com/cuemby/pulsewave/pkg/scenario"
	"github.com/cuemby/pulsewave/pkg/telemetry"
	"github.com/cuemby/pulsewave/pkg/types"
)

// State is one of the worker pool's four lifecycle states, per §4.12.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateStandby
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStandby:
		return "standby"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// schedulerTick is how often the scheduler recomputes the desired rate
// and reconciles worker count.
const schedulerTick = 100 * time.Millisecond

// Pool drives the worker pool and scheduler described in §4.12. It
// owns the single source of truth for the active configuration and the
// set of running worker goroutines; the consensus and hot-reload
// components only ever call ApplyConfig.
type Pool struct {
	state atomic.Int32

	mu         sync.RWMutex
	cfg        *types.Config
	rawYAML    string
	startedAt  time.Time
	generation uint64

	rate atomic.Uint64 // math.Float64bits of the current desired rate

	hub     *telemetry.Hub
	client  *http.Client
	sources map[string]scenario.DataSource

	selMu  sync.Mutex
	sel    scenario.Selector
	selGen uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger zerolog.Logger
}

// NewPool constructs a pool in Initializing state with the given
// initial configuration and shared telemetry hub.
func NewPool(cfg *types.Config, hub *telemetry.Hub) *Pool {
	transport := telemetry.NewTransport(telemetry.DefaultPoolConfig(), cfg.Run.SkipTLSVerify)
	logger := log.WithComponent("engine.pool")
	if cfg.Run.ClientCertPath != "" && cfg.Run.ClientKeyPath != "" {
		if err := telemetry.ApplyClientCert(transport, cfg.Run.ClientCertPath, cfg.Run.ClientKeyPath); err != nil {
			logger.Warn().Err(err).Msg("loading client certificate failed, continuing without mTLS")
		}
	}
	if cfg.Run.ResolveHost != "" && cfg.Run.ResolveAddr != "" {
		telemetry.ApplyResolveOverride(transport, cfg.Run.ResolveHost, cfg.Run.ResolveAddr)
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Run.Timeout,
	}

	p := &Pool{
		cfg:     cfg,
		hub:     hub,
		client:  client,
		sources: make(map[string]scenario.DataSource),
		logger:  logger,
	}
	p.state.Store(int32(StateInitializing))
	p.loadDataSources(cfg)
	return p
}

// State returns the pool's current lifecycle state.
func (p *Pool) State() State {
	return State(p.state.Load())
}

// Hub returns the shared telemetry hub, for the control-plane API's
// /health snapshot.
func (p *Pool) Hub() *telemetry.Hub {
	return p.hub
}

// Config returns the currently active configuration.
func (p *Pool) Config() *types.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// RawYAML returns the raw document text of the currently active
// configuration, for the /health endpoint's current_yaml field.
func (p *Pool) RawYAML() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rawYAML
}

// SetRawYAML records the raw document text backing the config NewPool
// was constructed with, before Start is called.
func (p *Pool) SetRawYAML(yaml string) {
	p.mu.Lock()
	p.rawYAML = yaml
	p.mu.Unlock()
}

// Elapsed returns time since the current run (or standby period)
// started, per the elapsed-time clock referenced in §4.12 and §4.20.
func (p *Pool) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.startedAt.IsZero() {
		return 0
	}
	return time.Since(p.startedAt)
}

// StartedAt returns when the current run (or standby period) began.
func (p *Pool) StartedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.startedAt
}

// Start begins the Running loop.
func (p *Pool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.mu.Lock()
	p.startedAt = time.Now()
	p.mu.Unlock()

	p.state.Store(int32(StateRunning))

	p.wg.Add(1)
	go p.schedulerLoop(ctx)
}

// Stop terminates the pool permanently.
func (p *Pool) Stop() {
	p.state.Store(int32(StateTerminated))
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// ApplyConfig atomically swaps in a newly committed configuration.
// Existing workers finish their current request/scenario, then read
// the new config on their next iteration (per §4.12's "adopt the new
// model" rule) because every worker reads Config() fresh each loop
// rather than capturing it once. The elapsed-time clock is reset, per
// the resolved hot-reload/cluster-apply Open Question.
func (p *Pool) ApplyConfig(cfg *types.Config, rawYAML string) {
	p.mu.Lock()
	p.cfg = cfg
	p.rawYAML = rawYAML
	p.startedAt = time.Now()
	p.generation++
	p.mu.Unlock()

	p.loadDataSources(cfg)

	if p.State() == StateStandby {
		p.state.Store(int32(StateRunning))
	}

	p.logger.Info().Str("version", cfg.Version).Msg("applied new configuration")
}

func (p *Pool) loadDataSources(cfg *types.Config) {
	sources := make(map[string]scenario.DataSource, len(cfg.Scenarios))
	for _, sc := range cfg.Scenarios {
		if sc.DataFile == nil {
			continue
		}
		table, err := datasource.Load(sc.DataFile.Path, sc.DataFile.Format, datasource.Strategy(sc.DataFile.Strategy))
		if err != nil {
			continue
		}
		sources[sc.Name] = table
	}
	p.mu.Lock()
	p.sources = sources
	p.mu.Unlock()
}

func (p *Pool) dataSourceFor(scenarioName string) scenario.DataSource {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sources[scenarioName]
}

// selectorFor returns the scenario selector for the currently active
// config, rebuilding it only when ApplyConfig has advanced the
// generation counter since the last build.
func (p *Pool) selectorFor(cfg *types.Config) scenario.Selector {
	p.mu.RLock()
	gen := p.generation
	p.mu.RUnlock()

	p.selMu.Lock()
	defer p.selMu.Unlock()
	if p.sel == nil || p.selGen != gen {
		p.sel = newSelector(cfg.Scenarios)
		p.selGen = gen
	}
	return p.sel
}

// setRate and currentRate share the desired rate computed each
// scheduler tick with every running worker, without a mutex.
func (p *Pool) setRate(rate float64) {
	p.rate.Store(math.Float64bits(rate))
}

func (p *Pool) currentRate() float64 {
	return math.Float64frombits(p.rate.Load())
}
