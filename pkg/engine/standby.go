package engine

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Defaults applied when no StandbyConfig block overrides them, per §4.20.
const (
	defaultStandbyWorkers = 1
	defaultStandbyRPS     = 0.2
)

// startStandby launches the keep-warm workers described in §4.20. The
// scheduler loop's own ticker keeps running alongside them, so a newly
// committed config flips the pool back to Running (ApplyConfig resets
// the elapsed clock) without this goroutine needing to be restarted;
// each standby worker notices the state change on its own next tick
// and exits.
func (p *Pool) startStandby(ctx context.Context) {
	cfg := p.Config()
	workers, rps := defaultStandbyWorkers, defaultStandbyRPS
	if cfg.Standby != nil {
		if cfg.Standby.Workers > 0 {
			workers = cfg.Standby.Workers
		}
		if cfg.Standby.Rps > 0 {
			rps = cfg.Standby.Rps
		}
	}

	p.logger.Info().Int("workers", workers).Float64("rps", rps).Msg("entering standby")

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.standbyWorker(ctx, rps)
	}
}

// standbyWorker issues a minimal request at a low, steady rate to keep
// the client's pooled TCP/TLS connections from going idle-cold. It
// exits as soon as the pool leaves Standby.
func (p *Pool) standbyWorker(ctx context.Context, rps float64) {
	defer p.wg.Done()

	interval := time.Second
	if rps > 0 {
		interval = time.Duration(float64(time.Second) / rps)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.State() != StateStandby {
				return
			}
			p.keepWarmRequest(ctx)
		}
	}
}

func (p *Pool) keepWarmRequest(ctx context.Context) {
	cfg := p.Config()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Run.BaseURL, nil)
	if err != nil {
		return
	}
	for k, v := range cfg.Run.CustomHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
}
