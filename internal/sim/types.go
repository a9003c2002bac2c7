package sim

import (
	"math"

	"github.com/san-kum/reactorsim/internal/reactor"
)

// Command carries operator input for one step. Nil fields leave the
// corresponding input unchanged.
type Command struct {
	RodInsertion *float64
	CoolantInlet *float64
}

func (c Command) IsZero() bool { return c.RodInsertion == nil && c.CoolantInlet == nil }

type Operator interface {
	Command(s reactor.State, t float64) Command
}

type Metric interface {
	Name() string
	Observe(s reactor.State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s reactor.State, t float64)
}

type Config struct {
	Dt          float64
	Duration    float64
	RecordEvery int
}

func DefaultConfig() Config {
	return Config{
		Dt:          0.1,
		Duration:    60.0,
		RecordEvery: 1,
	}
}

func (c Config) Steps() int {
	return int(math.Round(c.Duration / c.Dt))
}

// Sample is one recorded point of a run.
type Sample struct {
	Time  float64       `json:"time"`
	State reactor.State `json:"state"`
}

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	StepsTaken int
	// TripTime is the simulated time at which the SCRAM latch was first
	// seen, or -1.
	TripTime float64
}

func (r *Result) Final() (Sample, bool) {
	if len(r.Samples) == 0 {
		return Sample{}, false
	}
	return r.Samples[len(r.Samples)-1], true
}

func (r *Result) Tripped() bool { return r.TripTime >= 0 }
