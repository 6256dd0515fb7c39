package telemetry

import (
	"os"
	"strconv"
	"time"
)

// defaultRotationInterval matches §4.4's stated histogram rotation default.
const defaultRotationInterval = time.Hour

// EnvConfig is the env-derived subset from §6 that governs the
// telemetry core: histogram sizing/rotation and the memory guard's
// thresholds. Grounded on cluster.LoadConfig's idiom of reading a
// fixed env subset once at process start with defaulting, rather than
// erroring, on invalid values.
type EnvConfig struct {
	PercentileTrackingEnabled bool
	MaxHistogramLabels        int
	RotationInterval          time.Duration
	MemGuard                  MemGuardConfig
}

// LoadEnvConfig reads PERCENTILE_TRACKING_ENABLED, MAX_HISTOGRAM_LABELS,
// HISTOGRAM_ROTATION_INTERVAL, MEMORY_{WARNING,CRITICAL}_THRESHOLD_PERCENT
// and AUTO_DISABLE_PERCENTILES_ON_WARNING.
func LoadEnvConfig() EnvConfig {
	guard := DefaultMemGuardConfig()
	if v, ok := envFloat("MEMORY_WARNING_THRESHOLD_PERCENT"); ok {
		guard.WarningPercent = v
	}
	if v, ok := envFloat("MEMORY_CRITICAL_THRESHOLD_PERCENT"); ok {
		guard.CriticalPercent = v
	}
	if v, ok := envBool("AUTO_DISABLE_PERCENTILES_ON_WARNING"); ok {
		guard.AutoDisable = v
	}

	cfg := EnvConfig{
		PercentileTrackingEnabled: true,
		MaxHistogramLabels:        1000,
		RotationInterval:          defaultRotationInterval,
		MemGuard:                  guard,
	}
	if v, ok := envBool("PERCENTILE_TRACKING_ENABLED"); ok {
		cfg.PercentileTrackingEnabled = v
	}
	if v, ok := envInt("MAX_HISTOGRAM_LABELS"); ok {
		cfg.MaxHistogramLabels = v
	}
	if d, ok := envDuration("HISTOGRAM_ROTATION_INTERVAL"); ok {
		cfg.RotationInterval = d
	}
	return cfg
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func envDuration(name string) (time.Duration, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
