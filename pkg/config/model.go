package config

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/pulsewave/pkg/loadmodel"
	"github.com/cuemby/pulsewave/pkg/types"
)

// document is the raw YAML shape of the configuration file, converted
// into types.Config by Parse. Field names mirror §6's external
// interface exactly.
type document struct {
	Version   string            `yaml:"version"`
	Metadata  map[string]string `yaml:"metadata,omitempty"`
	Config    runBlock          `yaml:"config"`
	Load      loadBlock         `yaml:"load"`
	Scenarios []scenarioBlock   `yaml:"scenarios,omitempty"`
	Standby   *standbyBlock     `yaml:"standby,omitempty"`
}

type runBlock struct {
	BaseURL       string            `yaml:"baseUrl"`
	Workers       int               `yaml:"workers"`
	Timeout       string            `yaml:"timeout"`
	Duration      string            `yaml:"duration"`
	SkipTLSVerify bool              `yaml:"skipTlsVerify"`
	CustomHeaders map[string]string `yaml:"customHeaders,omitempty"`
}

type loadBlock struct {
	Model        string  `yaml:"model"`
	Workers      int     `yaml:"workers,omitempty"`
	Target       float64 `yaml:"target,omitempty"`
	Min          float64 `yaml:"min,omitempty"`
	Max          float64 `yaml:"max,omitempty"`
	RampDuration string  `yaml:"rampDuration,omitempty"`
	MidRps       float64 `yaml:"mid,omitempty"`
	Cycle        string  `yaml:"cycle,omitempty"`
	Ratios       *ratiosBlock `yaml:"ratios,omitempty"`
}

type ratiosBlock struct {
	MorningRamp    float64 `yaml:"morningRamp"`
	PeakSustain    float64 `yaml:"peakSustain"`
	MidDecline     float64 `yaml:"midDecline"`
	MidSustain     float64 `yaml:"midSustain"`
	EveningDecline float64 `yaml:"eveningDecline"`
}

type scenarioBlock struct {
	Name      string            `yaml:"name"`
	Weight    float64           `yaml:"weight"`
	Steps     []stepBlock       `yaml:"steps"`
	DataFile  *dataFileBlock    `yaml:"dataFile,omitempty"`
	Retry     *retryBlock       `yaml:"retry,omitempty"`
	Overrides map[string]string `yaml:"overrides,omitempty"`
}

type dataFileBlock struct {
	Path     string `yaml:"path"`
	Format   string `yaml:"format"`
	Strategy string `yaml:"strategy"`
}

type retryBlock struct {
	Count int    `yaml:"count"`
	Delay string `yaml:"delay"`
}

type stepBlock struct {
	Name       string            `yaml:"name"`
	Request    requestBlock      `yaml:"request"`
	Extractors []extractorBlock  `yaml:"extractors,omitempty"`
	Assertions []assertionBlock  `yaml:"assertions,omitempty"`
	ThinkTime  *thinkTimeBlock   `yaml:"thinkTime,omitempty"`
}

type requestBlock struct {
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Query   map[string]string `yaml:"query,omitempty"`
	Body    string            `yaml:"body,omitempty"`
}

type extractorBlock struct {
	Kind    string `yaml:"kind"`
	Name    string `yaml:"name"`
	Path    string `yaml:"path,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
	Header  string `yaml:"header,omitempty"`
	Cookie  string `yaml:"cookie,omitempty"`
}

type assertionBlock struct {
	Kind       string  `yaml:"kind"`
	StatusCode int     `yaml:"statusCode,omitempty"`
	MaxLatency string  `yaml:"maxLatency,omitempty"`
	Path       string  `yaml:"path,omitempty"`
	Expected   *string `yaml:"expected,omitempty"`
	Contains   string  `yaml:"contains,omitempty"`
	Pattern    string  `yaml:"pattern,omitempty"`
	Header     string  `yaml:"header,omitempty"`
}

type thinkTimeBlock struct {
	Kind  string `yaml:"kind"`
	Fixed string `yaml:"fixed,omitempty"`
	Min   string `yaml:"min,omitempty"`
	Max   string `yaml:"max,omitempty"`
}

type standbyBlock struct {
	Workers int     `yaml:"workers"`
	Rps     float64 `yaml:"rps"`
}

// Parse decodes YAML bytes into a types.Config. Unknown fields are
// rejected per §4.14; duration strings are parsed via loadmodel.
func Parse(data []byte) (*types.Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	return fromDocument(doc)
}

func fromDocument(doc document) (*types.Config, error) {
	timeout, err := loadmodel.ParseDuration(doc.Config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("config.timeout: %w", err)
	}
	var duration time.Duration
	if doc.Config.Duration != "" {
		duration, err = loadmodel.ParseDuration(doc.Config.Duration)
		if err != nil {
			return nil, fmt.Errorf("config.duration: %w", err)
		}
	}

	model, err := loadModelFromBlock(doc.Load)
	if err != nil {
		return nil, err
	}

	scenarios := make([]types.Scenario, 0, len(doc.Scenarios))
	for _, sb := range doc.Scenarios {
		sc, err := scenarioFromBlock(sb)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sb.Name, err)
		}
		scenarios = append(scenarios, sc)
	}

	cfg := &types.Config{
		Version:  doc.Version,
		Metadata: doc.Metadata,
		Run: types.RunConfig{
			BaseURL:       doc.Config.BaseURL,
			Workers:       doc.Config.Workers,
			Timeout:       timeout,
			Duration:      duration,
			SkipTLSVerify: doc.Config.SkipTLSVerify,
			CustomHeaders: doc.Config.CustomHeaders,
		},
		Load:      model,
		Scenarios: scenarios,
	}

	if doc.Standby != nil {
		cfg.Standby = &types.StandbyConfig{Workers: doc.Standby.Workers, Rps: doc.Standby.Rps}
	}

	return cfg, nil
}

func loadModelFromBlock(b loadBlock) (loadmodel.Model, error) {
	m := loadmodel.Model{Kind: loadmodel.Kind(b.Model)}

	switch m.Kind {
	case loadmodel.KindConcurrent:
		m.Workers = b.Workers
	case loadmodel.KindRps:
		m.Target = b.Target
	case loadmodel.KindRampRps:
		m.Min = b.Min
		m.Max = b.Max
		d, err := loadmodel.ParseDuration(b.RampDuration)
		if err != nil {
			return m, fmt.Errorf("load.rampDuration: %w", err)
		}
		m.RampDuration = d
	case loadmodel.KindDailyTraffic:
		m.Min = b.Min
		m.Max = b.Max
		m.MidRps = b.MidRps
		cycle, err := loadmodel.ParseDuration(b.Cycle)
		if err != nil {
			return m, fmt.Errorf("load.cycle: %w", err)
		}
		m.Cycle = cycle
		if b.Ratios != nil {
			m.Ratios = loadmodel.DailyRatios{
				MorningRamp:    b.Ratios.MorningRamp,
				PeakSustain:    b.Ratios.PeakSustain,
				MidDecline:     b.Ratios.MidDecline,
				MidSustain:     b.Ratios.MidSustain,
				EveningDecline: b.Ratios.EveningDecline,
			}
		}
	default:
		return m, fmt.Errorf("unknown load model %q", b.Model)
	}
	return m, nil
}

func scenarioFromBlock(b scenarioBlock) (types.Scenario, error) {
	steps := make([]types.Step, 0, len(b.Steps))
	for _, stb := range b.Steps {
		step, err := stepFromBlock(stb)
		if err != nil {
			return types.Scenario{}, err
		}
		steps = append(steps, step)
	}

	sc := types.Scenario{
		Name:      b.Name,
		Weight:    b.Weight,
		Steps:     steps,
		Overrides: b.Overrides,
	}

	if b.DataFile != nil {
		sc.DataFile = &types.DataFileConfig{
			Path:     b.DataFile.Path,
			Format:   b.DataFile.Format,
			Strategy: b.DataFile.Strategy,
		}
	}
	if b.Retry != nil {
		delay, err := loadmodel.ParseDuration(b.Retry.Delay)
		if err != nil {
			return types.Scenario{}, fmt.Errorf("retry.delay: %w", err)
		}
		sc.Retry = &types.RetryPolicy{Count: b.Retry.Count, Delay: delay}
	}

	return sc, nil
}

func stepFromBlock(b stepBlock) (types.Step, error) {
	step := types.Step{
		Name: b.Name,
		Request: types.Request{
			Method:  b.Request.Method,
			Path:    b.Request.Path,
			Headers: b.Request.Headers,
			Query:   b.Request.Query,
			Body:    b.Request.Body,
		},
	}

	for _, eb := range b.Extractors {
		step.Extractors = append(step.Extractors, types.Extractor{
			Kind:    types.ExtractorKind(eb.Kind),
			Name:    eb.Name,
			Path:    eb.Path,
			Pattern: eb.Pattern,
			Header:  eb.Header,
			Cookie:  eb.Cookie,
		})
	}

	for _, ab := range b.Assertions {
		a := types.Assertion{
			Kind:       types.AssertionKind(ab.Kind),
			StatusCode: ab.StatusCode,
			Path:       ab.Path,
			Expected:   ab.Expected,
			Contains:   ab.Contains,
			Pattern:    ab.Pattern,
			Header:     ab.Header,
		}
		if ab.MaxLatency != "" {
			d, err := loadmodel.ParseDuration(ab.MaxLatency)
			if err != nil {
				return types.Step{}, fmt.Errorf("assertion maxLatency: %w", err)
			}
			a.MaxLatency = d
		}
		step.Assertions = append(step.Assertions, a)
	}

	if b.ThinkTime != nil {
		tt := types.ThinkTime{Kind: types.ThinkTimeKind(b.ThinkTime.Kind)}
		switch tt.Kind {
		case types.ThinkTimeFixed:
			d, err := loadmodel.ParseDuration(b.ThinkTime.Fixed)
			if err != nil {
				return types.Step{}, fmt.Errorf("thinkTime.fixed: %w", err)
			}
			tt.Fixed = d
		case types.ThinkTimeRandom:
			min, err := loadmodel.ParseDuration(b.ThinkTime.Min)
			if err != nil {
				return types.Step{}, fmt.Errorf("thinkTime.min: %w", err)
			}
			max, err := loadmodel.ParseDuration(b.ThinkTime.Max)
			if err != nil {
				return types.Step{}, fmt.Errorf("thinkTime.max: %w", err)
			}
			tt.Min, tt.Max = min, max
		}
		step.ThinkTime = &tt
	}

	return step, nil
}
