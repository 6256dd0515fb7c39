package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/pulsewave/pkg/loadmodel"
	"github.com/cuemby/pulsewave/pkg/types"
)

// ApplyEnvOverrides merges the environment-variable subset from §6 on
// top of cfg, mutating it in place. Precedence is env > file > defaults;
// an invalid or empty env value silently falls back to what cfg
// already holds.
func ApplyEnvOverrides(cfg *types.Config) {
	if v := os.Getenv("TARGET_URL"); v != "" {
		cfg.Run.BaseURL = v
	}
	if v, ok := envInt("NUM_CONCURRENT_TASKS"); ok {
		cfg.Run.Workers = v
	}
	if d, ok := envDuration("TEST_DURATION"); ok {
		cfg.Run.Duration = d
	}
	if v, ok := envBool("SKIP_TLS_VERIFY"); ok {
		cfg.Run.SkipTLSVerify = v
	}
	if v := os.Getenv("CUSTOM_HEADERS"); v != "" {
		if headers, ok := parseCustomHeaders(v); ok {
			cfg.Run.CustomHeaders = headers
		}
	}
	if v := os.Getenv("CLIENT_CERT_PATH"); v != "" {
		cfg.Run.ClientCertPath = v
	}
	if v := os.Getenv("CLIENT_KEY_PATH"); v != "" {
		cfg.Run.ClientKeyPath = v
	}
	if host, addr, ok := parseResolveOverride(os.Getenv("RESOLVE_TARGET_ADDR")); ok {
		cfg.Run.ResolveHost = host
		cfg.Run.ResolveAddr = addr
	}
	if v := os.Getenv("REQUEST_TYPE"); v != "" {
		cfg.Run.Defaults.Method = v
	}
	if v, ok := envBool("SEND_JSON"); ok && v {
		if payload := os.Getenv("JSON_PAYLOAD"); payload != "" {
			cfg.Run.Defaults.JSONPayload = payload
		}
	}

	applyLoadModelEnv(&cfg.Load)
}

// parseResolveOverride parses RESOLVE_TARGET_ADDR's "host:ip:port"
// format from §6: requests to host dial ip:port instead, regardless of
// DNS. An empty or malformed value yields ok=false.
func parseResolveOverride(s string) (host, addr string, ok bool) {
	if s == "" {
		return "", "", false
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	if _, _, err := net.SplitHostPort(parts[1]); err != nil {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func applyLoadModelEnv(m *loadmodel.Model) {
	if v := os.Getenv("LOAD_MODEL_TYPE"); v != "" {
		m.Kind = loadmodel.Kind(v)
	}

	switch m.Kind {
	case loadmodel.KindRps:
		if v, ok := envFloat("TARGET_RPS"); ok {
			m.Target = v
		}
	case loadmodel.KindRampRps:
		if v, ok := envFloat("MIN_RPS"); ok {
			m.Min = v
		}
		if v, ok := envFloat("MAX_RPS"); ok {
			m.Max = v
		}
		if d, ok := envDuration("RAMP_DURATION"); ok {
			m.RampDuration = d
		}
	case loadmodel.KindDailyTraffic:
		if v, ok := envFloat("DAILY_MIN_RPS"); ok {
			m.Min = v
		}
		if v, ok := envFloat("DAILY_MID_RPS"); ok {
			m.MidRps = v
		}
		if v, ok := envFloat("DAILY_MAX_RPS"); ok {
			m.Max = v
		}
		if d, ok := envDuration("DAILY_CYCLE_DURATION"); ok {
			m.Cycle = d
		}
		if v, ok := envFloat("MORNING_RAMP_RATIO"); ok {
			m.Ratios.MorningRamp = v
		}
		if v, ok := envFloat("PEAK_SUSTAIN_RATIO"); ok {
			m.Ratios.PeakSustain = v
		}
		if v, ok := envFloat("MID_DECLINE_RATIO"); ok {
			m.Ratios.MidDecline = v
		}
		if v, ok := envFloat("MID_SUSTAIN_RATIO"); ok {
			m.Ratios.MidSustain = v
		}
		if v, ok := envFloat("EVENING_DECLINE_RATIO"); ok {
			m.Ratios.EveningDecline = v
		}
	}
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
	d, err := loadmodel.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

// parseCustomHeaders parses the comma-separated "Name:Value" format
// from §6, where a literal comma in a value is escaped as "\,".
func parseCustomHeaders(s string) (map[string]string, bool) {
	headers := make(map[string]string)
	for _, pair := range splitUnescapedComma(s) {
		kv := strings.SplitN(pair, ":", 2)
		if len(kv) != 2 {
			return nil, false
		}
		headers[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return headers, true
}

func splitUnescapedComma(s string) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == ',' {
			cur.WriteByte(',')
			i++
			continue
		}
		if s[i] == ',' {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(s[i])
	}
	parts = append(parts, cur.String())
	return parts
}
