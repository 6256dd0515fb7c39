package scenario

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/cuemby/pulsewave/pkg/assert"
	"github.com/cuemby/pulsewave/pkg/extract"
	"github.com/cuemby/pulsewave/pkg/metrics"
	"github.com/cuemby/pulsewave/pkg/telemetry"
	"github.com/cuemby/pulsewave/pkg/types"
	"github.com/cuemby/pulsewave/pkg/vucontext"
)

// DataSource supplies one row of merged context values per call. CSV
// and JSON row tables (component L) both satisfy this.
type DataSource interface {
	Next() (map[string]string, bool)
}

// Executor runs one scenario to completion against a base URL,
// recording every step's outcome into the shared telemetry Hub.
type Executor struct {
	client   *http.Client
	baseURL  string
	headers  map[string]string
	defaults types.RequestDefaults
	hub      *telemetry.Hub
}

// NewExecutor constructs an executor sharing client, baseURL, and hub
// with the rest of the worker pool. defaults supplies the REQUEST_TYPE/
// SEND_JSON/JSON_PAYLOAD fallbacks (§6) used by steps that leave their
// own method or body unset.
func NewExecutor(client *http.Client, baseURL string, headers map[string]string, defaults types.RequestDefaults, hub *telemetry.Hub) *Executor {
	return &Executor{
		client:   client,
		baseURL:  baseURL,
		headers:  headers,
		defaults: defaults,
		hub:      hub,
	}
}

// Run executes scenario once per §4.10, pulling one context row from
// ds (if non-nil) and returning the aggregated result.
func (e *Executor) Run(ctx context.Context, sc types.Scenario, ds DataSource) types.ScenarioResult {
	vc := vucontext.New()

	if ds != nil {
		if row, ok := ds.Next(); ok {
			for k, v := range row {
				vc.Set(k, v)
			}
		}
	}

	result := types.ScenarioResult{Name: sc.Name}

	for i, step := range sc.Steps {
		stepResult := e.runStepWithRetry(ctx, sc, step, i, vc)
		result.Steps = append(result.Steps, stepResult)
		result.TotalLatency += stepResult.Latency

		if !stepResult.OK {
			failedAt := i
			result.FailedAtStep = &failedAt
			result.OK = false
			metrics.ScenarioRequestsTotal.WithLabelValues(sc.Name, "fail").Inc()
			return result
		}

		if step.ThinkTime != nil {
			sleepThinkTime(*step.ThinkTime)
		}
	}

	result.OK = true
	metrics.ScenarioRequestsTotal.WithLabelValues(sc.Name, "ok").Inc()
	return result
}

// runStepWithRetry runs one step, retrying up to sc.Retry.Count times
// (supplemented feature) on failure, waiting sc.Retry.Delay between
// attempts. With no RetryPolicy configured, this is a single attempt.
func (e *Executor) runStepWithRetry(ctx context.Context, sc types.Scenario, step types.Step, index int, vc *vucontext.Context) types.StepResult {
	attempts := 1
	var delay time.Duration
	if sc.Retry != nil && sc.Retry.Count > 0 {
		attempts = sc.Retry.Count + 1
		delay = sc.Retry.Delay
	}

	var last types.StepResult
	for attempt := 0; attempt < attempts; attempt++ {
		last = e.runStep(ctx, sc.Name, step, index, vc)
		if last.OK || attempt == attempts-1 {
			return last
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return last
}

// runStep substitutes, sends, extracts, asserts, and records metrics
// for one step, per §4.10 steps 2a-2f.
func (e *Executor) runStep(ctx context.Context, scenarioName string, step types.Step, index int, vc *vucontext.Context) types.StepResult {
	req, err := e.buildRequest(ctx, step.Request, vc)
	if err != nil {
		return e.failedStep(index, step.Name, err)
	}

	metrics.ConcurrentRequests.Inc()
	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		metrics.ConcurrentRequests.Dec()
		latency := time.Since(start)
		category := telemetry.Classify(0, err)
		metrics.RequestErrorsByCategory.WithLabelValues(string(category)).Inc()
		metrics.RequestsTotal.WithLabelValues(scenarioName, "error").Inc()
		e.hub.RecordRequest(scenarioName+":"+step.Name, scenarioName, latency)
		e.hub.Outcomes.Record(false)
		return types.StepResult{Index: index, Name: step.Name, OK: false, Latency: latency, Error: err.Error()}
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	latency := time.Since(start)
	metrics.ConcurrentRequests.Dec()

	metrics.StatusCodes.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()
	e.hub.RecordRequest(scenarioName+":"+step.Name, scenarioName, latency)

	if resp.StatusCode >= 400 {
		category := telemetry.Classify(resp.StatusCode, nil)
		metrics.RequestErrorsByCategory.WithLabelValues(string(category)).Inc()
	}

	extractResp := extract.Response{Header: resp.Header, Cookies: resp.Cookies(), Body: body}
	extract.ApplyAll(step.Extractors, extractResp, vc)

	assertResp := assert.Response{Status: resp.StatusCode, Header: resp.Header, Body: body, Latency: latency}
	ok, results := assert.EvaluateAll(step.Assertions, assertResp)

	stepResult := types.StepResult{
		Index:   index,
		Name:    step.Name,
		OK:      ok,
		Status:  resp.StatusCode,
		Latency: latency,
	}

	for _, r := range results {
		result := "pass"
		if r.Pass {
			stepResult.AssertionsPassed++
		} else {
			stepResult.AssertionsFailed++
			result = "fail"
		}
		metrics.ScenarioAssertionsTotal.WithLabelValues(string(r.Kind), result).Inc()
	}

	if ok {
		metrics.RequestsTotal.WithLabelValues(scenarioName, "ok").Inc()
	} else {
		metrics.RequestsTotal.WithLabelValues(scenarioName, "assertion_failed").Inc()
		stepResult.Error = "assertion failed"
	}
	e.hub.Outcomes.Record(ok)

	return stepResult
}

func (e *Executor) failedStep(index int, name string, err error) types.StepResult {
	category := telemetry.Classify(0, err)
	metrics.RequestErrorsByCategory.WithLabelValues(string(category)).Inc()
	return types.StepResult{Index: index, Name: name, OK: false, Error: err.Error()}
}

// buildRequest substitutes variables into path/body/header/query (in
// that fixed order) and constructs the outbound request.
func (e *Executor) buildRequest(ctx context.Context, reqTpl types.Request, vc *vucontext.Context) (*http.Request, error) {
	path := vc.Substitute(reqTpl.Path)
	body := vc.Substitute(reqTpl.Body)
	usedDefaultPayload := false
	if body == "" && e.defaults.JSONPayload != "" {
		body = vc.Substitute(e.defaults.JSONPayload)
		usedDefaultPayload = true
	}

	method := reqTpl.Method
	if method == "" {
		method = e.defaults.Method
	}

	headers := make(map[string]string, len(reqTpl.Headers))
	for k, v := range reqTpl.Headers {
		headers[k] = vc.Substitute(v)
	}

	url := e.baseURL + path
	if len(reqTpl.Query) > 0 {
		var qs []string
		for k, v := range reqTpl.Query {
			qs = append(qs, k+"="+vc.Substitute(v))
		}
		url += "?" + strings.Join(qs, "&")
	}

	var bodyReader io.Reader
	if body != "" {
		bodyReader = bytes.NewBufferString(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	if usedDefaultPayload {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// sleepThinkTime pauses per §2's ThinkTime variants.
func sleepThinkTime(tt types.ThinkTime) {
	switch tt.Kind {
	case types.ThinkTimeFixed:
		time.Sleep(tt.Fixed)
	case types.ThinkTimeRandom:
		if tt.Max <= tt.Min {
			time.Sleep(tt.Min)
			return
		}
		d := tt.Min + time.Duration(rand.Int63n(int64(tt.Max-tt.Min)))
		time.Sleep(d)
	}
}
