package metrics

import "github.com/san-kum/reactorsim/internal/reactor"

// TimeToTrip records when the SCRAM latch was first observed, or -1.
type TimeToTrip struct {
	at float64
}

func NewTimeToTrip() *TimeToTrip {
	return &TimeToTrip{at: -1}
}

func (m *TimeToTrip) Name() string { return "time_to_trip" }

func (m *TimeToTrip) Observe(s reactor.State, t float64) {
	if s.ScramTripped && m.at < 0 {
		m.at = t
	}
}

func (m *TimeToTrip) Value() float64 { return m.at }
func (m *TimeToTrip) Reset()         { m.at = -1 }
