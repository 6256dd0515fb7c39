package loadmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30s": 30 * time.Second,
		"5m":  5 * time.Minute,
		"2h":  2 * time.Hour,
		"1d":  24 * time.Hour,
		"45":  45 * time.Second,
		"0s":  0,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDuration("-5s")
	assert.Error(t, err)
	_, err = ParseDuration("abc")
	assert.Error(t, err)
}

func TestFormatSecondsRoundTrip(t *testing.T) {
	for _, in := range []string{"30s", "120", "2h"} {
		d, err := ParseDuration(in)
		require.NoError(t, err)
		back := FormatSeconds(d)
		d2, err := ParseDuration(back)
		require.NoError(t, err)
		assert.Equal(t, d, d2)
	}
}

func TestRampRpsBounds(t *testing.T) {
	m := Model{Kind: KindRampRps, Min: 10, Max: 50, RampDuration: 30 * time.Second}

	assert.InDelta(t, 10, m.Rate(0), 0.001)
	assert.InDelta(t, 10, m.Rate(30*time.Second), 0.001)
	assert.InDelta(t, 50, m.Rate(15*time.Second), 0.001)

	for ms := 0; ms <= 30000; ms += 500 {
		r := m.Rate(time.Duration(ms) * time.Millisecond)
		assert.GreaterOrEqual(t, r, m.Min)
		assert.LessOrEqual(t, r, m.Max)
	}
}

func TestRampRpsHoldsAfterRampEnds(t *testing.T) {
	m := Model{Kind: KindRampRps, Min: 10, Max: 50, RampDuration: 30 * time.Second}
	assert.InDelta(t, 10, m.Rate(60*time.Second), 0.001)
}

func TestDailyTrafficPhases(t *testing.T) {
	m := Model{
		Kind:   KindDailyTraffic,
		Min:    5,
		MidRps: 20,
		Max:    50,
		Cycle:  24 * time.Hour,
		Ratios: DailyRatios{
			MorningRamp:    0.1,
			PeakSustain:    0.2,
			MidDecline:     0.1,
			MidSustain:     0.2,
			EveningDecline: 0.1,
		},
	}
	// morning_ramp starts the cycle at Min
	assert.InDelta(t, m.Min, m.Rate(0), 0.001)
	// peak_sustain is constant at Max
	mid := time.Duration(0.15 * float64(m.Cycle))
	assert.InDelta(t, m.Max, m.Rate(mid), 0.001)
	// mid_sustain is constant at MidRps
	midSustain := time.Duration(0.45 * float64(m.Cycle))
	assert.InDelta(t, m.MidRps, m.Rate(midSustain), 0.001)
}

func TestConcurrentAndRps(t *testing.T) {
	c := Model{Kind: KindConcurrent, Workers: 7}
	assert.Equal(t, float64(7), c.Rate(0))
	assert.Equal(t, float64(7), c.Rate(time.Hour))

	r := Model{Kind: KindRps, Target: 123.5}
	assert.Equal(t, 123.5, r.Rate(0))
}
