package engine

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/pulsewave/pkg/loadmodel"
	"github.com/cuemby/pulsewave/pkg/scenario"
	"github.com/cuemby/pulsewave/pkg/types"
)

// schedulerLoop is the Running-state ticker from §4.12: each tick it
// recomputes the desired rate from the active load model, reconciles
// the live worker goroutines against the current worker count, and
// watches for TEST_DURATION to transition the pool into Standby.
func (p *Pool) schedulerLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(schedulerTick)
	defer ticker.Stop()

	workers := newWorkerGroup(p)
	defer workers.stopAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch p.State() {
			case StateTerminated:
				return
			case StateStandby:
				continue
			case StateRunning:
				// fall through below
			default:
				continue
			}

			cfg := p.Config()
			if cfg.Run.Duration > 0 && p.Elapsed() >= cfg.Run.Duration {
				workers.stopAll()
				p.state.Store(int32(StateStandby))
				p.logger.Info().Dur("elapsed", p.Elapsed()).Msg("test duration reached, entering standby")
				p.startStandby(ctx)
				continue
			}

			p.setRate(cfg.Load.Rate(p.Elapsed()))
			workers.reconcile(ctx, cfg)
		}
	}
}

// newSelector picks weighted-random when any scenario carries an
// explicit positive weight, and falls back to round-robin when every
// scenario is unweighted, per §4.11.
func newSelector(scenarios []types.Scenario) scenario.Selector {
	for _, sc := range scenarios {
		if sc.Weight > 0 {
			return scenario.NewWeightedSelector(scenarios)
		}
	}
	return scenario.NewRoundRobinSelector(scenarios)
}

// workerGroup reconciles a set of worker goroutines against a desired
// count, restarting the whole set whenever that count changes so a
// newly committed worker count takes effect on the following tick.
type workerGroup struct {
	pool *Pool

	mu     sync.Mutex
	cancel context.CancelFunc
	count  int
	wg     sync.WaitGroup
}

func newWorkerGroup(p *Pool) *workerGroup {
	return &workerGroup{pool: p}
}

func (w *workerGroup) reconcile(ctx context.Context, cfg *types.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()

	desired := cfg.Run.Workers
	if desired <= 0 {
		desired = 1
	}
	if w.cancel != nil && desired == w.count {
		return
	}

	if w.cancel != nil {
		w.cancel()
		w.wg.Wait()
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.count = desired

	for i := 0; i < desired; i++ {
		w.wg.Add(1)
		go func(index int) {
			defer w.wg.Done()
			w.pool.runWorker(workerCtx, index, desired)
		}(i)
	}
}

func (w *workerGroup) stopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.wg.Wait()
		w.cancel = nil
		w.count = 0
	}
}

// runWorker is one load-generation worker. It re-reads the pool's
// config on every iteration so an in-flight ApplyConfig is adopted as
// soon as the current request or scenario finishes, per §4.12.
func (p *Pool) runWorker(ctx context.Context, index, total int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cfg := p.Config()

		if cfg.Load.Kind == loadmodel.KindConcurrent {
			p.dispatchOnce(ctx, cfg)
			continue
		}

		rate := p.currentRate()
		if rate <= 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(schedulerTick):
			}
			continue
		}

		// Each of total workers takes a 1/total share of the desired
		// rate, so the aggregate system rate tracks desired_rate.
		interval := time.Duration(float64(time.Second) * float64(total) / rate)
		start := time.Now()
		p.dispatchOnce(ctx, cfg)

		if remaining := interval - time.Since(start); remaining > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(remaining):
			}
		}
	}
}

// dispatchOnce runs one request or scenario to completion. With no
// scenarios configured it's §4.12's single-request mode: one request
// straight at cfg.Run.BaseURL built from the REQUEST_TYPE/SEND_JSON/
// JSON_PAYLOAD defaults. Otherwise it picks a scenario via the
// selector — a single configured scenario degenerates the selector to
// always returning it, which is scenario mode's single-scenario case.
func (p *Pool) dispatchOnce(ctx context.Context, cfg *types.Config) {
	exec := scenario.NewExecutor(p.client, cfg.Run.BaseURL, cfg.Run.CustomHeaders, cfg.Run.Defaults, p.hub)

	if len(cfg.Scenarios) == 0 {
		exec.Run(ctx, singleRequestScenario(cfg.Run.Defaults), nil)
		return
	}

	sel := p.selectorFor(cfg)
	sc := sel.Select()
	exec.Run(ctx, sc, p.dataSourceFor(sc.Name))
}

// singleRequestScenario builds the one-step scenario that single-
// request mode executes, falling back to GET when REQUEST_TYPE sets no
// default method.
func singleRequestScenario(defaults types.RequestDefaults) types.Scenario {
	method := defaults.Method
	if method == "" {
		method = http.MethodGet
	}
	return types.Scenario{
		Name:  "single-request",
		Steps: []types.Step{{Name: "request", Request: types.Request{Method: method}}},
	}
}
