package loadmodel

import "time"

// Kind discriminates the LoadModel variants. Design Notes calls for a
// sum type with one arm per model dispatched without virtual dispatch;
// in Go that is a tagged struct switched on Kind.
type Kind string

const (
	KindConcurrent   Kind = "concurrent"
	KindRps          Kind = "rps"
	KindRampRps      Kind = "ramp_rps"
	KindDailyTraffic Kind = "daily_traffic"
)

// Model is the tagged union described in spec §3. Only the fields for
// the active Kind are meaningful.
type Model struct {
	Kind Kind

	// Concurrent
	Workers int

	// Rps
	Target float64

	// RampRps
	Min          float64
	Max          float64
	RampDuration time.Duration

	// DailyTraffic
	MidRps       float64
	Cycle        time.Duration
	Ratios       DailyRatios
}

// DailyRatios partitions one DailyTraffic cycle. They must sum to at
// most 1.0; the remainder is night at Min.
type DailyRatios struct {
	MorningRamp float64
	PeakSustain float64
	MidDecline  float64
	MidSustain  float64
	EveningDecline float64
}

// Rate evaluates the desired request rate (or concurrency, for
// Concurrent) at elapsed time t since the test started.
func (m Model) Rate(t time.Duration) float64 {
	switch m.Kind {
	case KindConcurrent:
		return float64(m.Workers)
	case KindRps:
		return m.Target
	case KindRampRps:
		return m.rampRate(t)
	case KindDailyTraffic:
		return m.dailyRate(t)
	default:
		return 0
	}
}

// rampRate implements §4.1's RampRps curve: first third linear
// min→max, second third holds max, final third linear max→min, then
// holds at min past ramp_duration.
func (m Model) rampRate(t time.Duration) float64 {
	a := m.RampDuration / 3
	switch {
	case m.RampDuration <= 0:
		return m.Min
	case t < a:
		frac := float64(t) / float64(a)
		return m.Min + frac*(m.Max-m.Min)
	case t < 2*a:
		return m.Max
	case t < 3*a:
		frac := float64(t-2*a) / float64(a)
		return m.Max - frac*(m.Max-m.Min)
	default:
		return m.Min
	}
}

// phase identifies the six DailyTraffic phases in ratio order, the
// remainder being the implicit night phase held at Min.
type phase struct {
	name     string
	fraction float64
	from, to float64 // RPS endpoints, equal for sustain phases
	linear   bool
}

func (m Model) dailyRate(t time.Duration) float64 {
	if m.Cycle <= 0 {
		return m.Min
	}
	cyclePos := t % m.Cycle
	frac := float64(cyclePos) / float64(m.Cycle)

	r := m.Ratios
	phases := []phase{
		{"morning_ramp", r.MorningRamp, m.Min, m.Max, true},
		{"peak_sustain", r.PeakSustain, m.Max, m.Max, false},
		{"mid_decline", r.MidDecline, m.Max, m.MidRps, true},
		{"mid_sustain", r.MidSustain, m.MidRps, m.MidRps, false},
		{"evening_decline", r.EveningDecline, m.MidRps, m.Min, true},
	}

	acc := 0.0
	for _, p := range phases {
		if p.fraction <= 0 {
			continue
		}
		end := acc + p.fraction
		if frac < end {
			localFrac := (frac - acc) / p.fraction
			if !p.linear {
				return p.from
			}
			return p.from + localFrac*(p.to-p.from)
		}
		acc = end
	}
	// remainder is night, held at Min
	return m.Min
}
