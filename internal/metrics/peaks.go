package metrics

import (
	"math"

	"github.com/san-kum/reactorsim/internal/reactor"
)

// Extreme tracks the maximum or minimum of one state field.
type Extreme struct {
	name    string
	field   func(reactor.State) float64
	max     bool
	value   float64
	samples int
}

func NewPeakTemperature() *Extreme {
	return &Extreme{name: "peak_temperature", field: func(s reactor.State) float64 { return s.Temperature }, max: true}
}

func NewPeakPower() *Extreme {
	return &Extreme{name: "peak_power", field: func(s reactor.State) float64 { return s.PowerLevel }, max: true}
}

func NewMinFlux() *Extreme {
	return &Extreme{name: "min_flux", field: func(s reactor.State) float64 { return s.NeutronFlux }}
}

func (e *Extreme) Name() string { return e.name }

func (e *Extreme) Observe(s reactor.State, t float64) {
	v := e.field(s)
	switch {
	case e.samples == 0:
		e.value = v
	case e.max:
		e.value = math.Max(e.value, v)
	default:
		e.value = math.Min(e.value, v)
	}
	e.samples++
}

func (e *Extreme) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.value
}

func (e *Extreme) Reset() {
	e.value = 0
	e.samples = 0
}
