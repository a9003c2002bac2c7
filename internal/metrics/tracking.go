package metrics

import (
	"math"

	"github.com/san-kum/reactorsim/internal/reactor"
)

// TrackingError integrates |measurement - target| over time (IAE).
type TrackingError struct {
	field  func(reactor.State) float64
	target float64
	sum    float64
	lastT  float64
	seen   bool
}

func NewFluxTrackingError(target float64) *TrackingError {
	return &TrackingError{field: func(s reactor.State) float64 { return s.NeutronFlux }, target: target}
}

func NewTemperatureTrackingError(target float64) *TrackingError {
	return &TrackingError{field: func(s reactor.State) float64 { return s.Temperature }, target: target}
}

func (m *TrackingError) Name() string { return "tracking_error" }

func (m *TrackingError) Observe(s reactor.State, t float64) {
	if m.seen {
		m.sum += math.Abs(m.field(s)-m.target) * (t - m.lastT)
	}
	m.lastT = t
	m.seen = true
}

func (m *TrackingError) Value() float64 { return m.sum }

func (m *TrackingError) Reset() {
	m.sum = 0
	m.lastT = 0
	m.seen = false
}
