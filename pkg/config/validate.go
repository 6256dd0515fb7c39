package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/cuemby/pulsewave/pkg/loadmodel"
	"github.com/cuemby/pulsewave/pkg/types"
)

// MinSupportedVersion and MaxSupportedVersion bound the accepted
// "major.minor" version field, per §4.14.
var (
	MinSupportedVersion = [2]int{1, 0}
	MaxSupportedVersion = [2]int{1, 9}
)

// Validate checks cfg against every rule in §4.14, returning the first
// violation found.
func Validate(cfg *types.Config) error {
	if err := validateVersion(cfg.Version); err != nil {
		return err
	}
	if err := validateRun(cfg.Run); err != nil {
		return err
	}
	if err := validateLoadModel(cfg.Load); err != nil {
		return err
	}
	for i, sc := range cfg.Scenarios {
		if err := validateScenario(sc); err != nil {
			return fmt.Errorf("scenario[%d] %q: %w", i, sc.Name, err)
		}
	}
	return nil
}

func validateVersion(v string) error {
	major, minor, err := parseMajorMinor(v)
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}
	if lessThan(major, minor, MinSupportedVersion) || lessThan(MaxSupportedVersion[0], MaxSupportedVersion[1], [2]int{major, minor}) {
		return fmt.Errorf("version %q is outside supported range [%d.%d, %d.%d]",
			v, MinSupportedVersion[0], MinSupportedVersion[1], MaxSupportedVersion[0], MaxSupportedVersion[1])
	}
	return nil
}

func parseMajorMinor(v string) (int, int, error) {
	parts := strings.SplitN(v, ".", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected major.minor, got %q", v)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid major version %q", parts[0])
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minor version %q", parts[1])
	}
	return major, minor, nil
}

func lessThan(major, minor int, bound [2]int) bool {
	if major != bound[0] {
		return major < bound[0]
	}
	return minor < bound[1]
}

func validateRun(r types.RunConfig) error {
	u, err := url.Parse(r.BaseURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("config.baseUrl must be an absolute http/https URL, got %q", r.BaseURL)
	}
	if r.Workers < 1 {
		return fmt.Errorf("config.workers must be >= 1, got %d", r.Workers)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("config.timeout must be non-negative")
	}
	if r.Duration < 0 {
		return fmt.Errorf("config.duration must be non-negative")
	}
	return nil
}

func validateLoadModel(m loadmodel.Model) error {
	switch m.Kind {
	case loadmodel.KindConcurrent:
		if m.Workers < 1 {
			return fmt.Errorf("load.workers must be >= 1 for concurrent model")
		}
	case loadmodel.KindRps:
		if m.Target < 0 {
			return fmt.Errorf("load.target must be >= 0 for rps model")
		}
	case loadmodel.KindRampRps:
		if m.Min < 0 || m.Max < 0 {
			return fmt.Errorf("load.min/max must be >= 0 for ramp_rps model")
		}
		if m.RampDuration <= 0 {
			return fmt.Errorf("load.rampDuration must be > 0 for ramp_rps model")
		}
	case loadmodel.KindDailyTraffic:
		if m.Min < 0 || m.Max < 0 || m.MidRps < 0 {
			return fmt.Errorf("load.min/mid/max must be >= 0 for daily_traffic model")
		}
		if m.Cycle <= 0 {
			return fmt.Errorf("load.cycle must be > 0 for daily_traffic model")
		}
		sum := m.Ratios.MorningRamp + m.Ratios.PeakSustain + m.Ratios.MidDecline + m.Ratios.MidSustain + m.Ratios.EveningDecline
		if sum > 1.0001 {
			return fmt.Errorf("load.ratios must sum to at most 1.0, got %f", sum)
		}
	default:
		return fmt.Errorf("unknown load model %q", m.Kind)
	}
	return nil
}

func validateScenario(sc types.Scenario) error {
	if len(sc.Steps) < 1 {
		return fmt.Errorf("must have at least 1 step")
	}
	if sc.DataFile != nil {
		if _, err := os.Stat(sc.DataFile.Path); err != nil {
			return fmt.Errorf("dataFile.path %q is not readable: %w", sc.DataFile.Path, err)
		}
		switch sc.DataFile.Format {
		case "csv", "json":
		default:
			return fmt.Errorf("dataFile.format must be csv or json, got %q", sc.DataFile.Format)
		}
		switch sc.DataFile.Strategy {
		case "sequential", "random", "cycle":
		default:
			return fmt.Errorf("dataFile.strategy must be sequential, random, or cycle, got %q", sc.DataFile.Strategy)
		}
	}
	for i, step := range sc.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step[%d] %q: %w", i, step.Name, err)
		}
	}
	return nil
}

func validateStep(step types.Step) error {
	if step.Request.Method == "" {
		return fmt.Errorf("request.method is required")
	}
	for _, ex := range step.Extractors {
		if err := validateExtractor(ex); err != nil {
			return err
		}
	}
	for _, a := range step.Assertions {
		if err := validateAssertion(a); err != nil {
			return err
		}
	}
	return nil
}

func validateExtractor(ex types.Extractor) error {
	if ex.Name == "" {
		return fmt.Errorf("extractor name is required")
	}
	switch ex.Kind {
	case types.ExtractorJSONPath:
		if ex.Path == "" {
			return fmt.Errorf("jsonpath extractor %q requires path", ex.Name)
		}
	case types.ExtractorRegex:
		if ex.Pattern == "" {
			return fmt.Errorf("regex extractor %q requires pattern", ex.Name)
		}
	case types.ExtractorHeader:
		if ex.Header == "" {
			return fmt.Errorf("header extractor %q requires header", ex.Name)
		}
	case types.ExtractorCookie:
		if ex.Cookie == "" {
			return fmt.Errorf("cookie extractor %q requires cookie", ex.Name)
		}
	default:
		return fmt.Errorf("unknown extractor kind %q", ex.Kind)
	}
	return nil
}

func validateAssertion(a types.Assertion) error {
	switch a.Kind {
	case types.AssertionStatusCode, types.AssertionResponseTime, types.AssertionJSONPath,
		types.AssertionBodyContains, types.AssertionBodyMatches, types.AssertionHeaderExists:
		return nil
	default:
		return fmt.Errorf("unknown assertion kind %q", a.Kind)
	}
}
