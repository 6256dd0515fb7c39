package loadmodel

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration accepts "<n>s|m|h|d" or a raw integer interpreted as
// seconds. Negative durations are rejected.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration: %s", s)
		}
		return time.Duration(n) * time.Second, nil
	}

	unit := s[len(s)-1]
	numPart := s[:len(s)-1]
	n, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative duration: %s", s)
	}

	var unitDur time.Duration
	switch unit {
	case 's':
		unitDur = time.Second
	case 'm':
		unitDur = time.Minute
	case 'h':
		unitDur = time.Hour
	case 'd':
		unitDur = 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid duration unit in %q", s)
	}

	return time.Duration(n * float64(unitDur)), nil
}

// FormatSeconds renders a duration back as an integer-second decimal
// string, the canonical round-trip form parse_duration expects.
func FormatSeconds(d time.Duration) string {
	return strconv.FormatInt(int64(d.Seconds()), 10)
}
