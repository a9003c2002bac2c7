package control

import (
	"fmt"
	"math"

	"github.com/san-kum/reactorsim/internal/reactor"
	"github.com/san-kum/reactorsim/internal/sim"
)

// Variable selects the measurement a PID operator regulates.
type Variable int

const (
	Flux Variable = iota
	Temperature
)

func (v Variable) String() string {
	switch v {
	case Flux:
		return "flux"
	case Temperature:
		return "temperature"
	default:
		return fmt.Sprintf("Variable(%d)", int(v))
	}
}

func ParseVariable(s string) (Variable, error) {
	switch s {
	case "flux", "":
		return Flux, nil
	case "temperature":
		return Temperature, nil
	}
	return 0, fmt.Errorf("unknown pid variable: %s", s)
}

// PID drives rod insertion. A measurement above Target inserts rods.
type PID struct {
	Variable Variable
	Kp       float64
	Ki       float64
	Kd       float64
	Target   float64
	// Bias is the insertion commanded at zero error.
	Bias     float64
	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(v Variable, kp, ki, kd, target float64) *PID {
	return &PID{
		Variable: v,
		Kp:       kp,
		Ki:       ki,
		Kd:       kd,
		Target:   target,
		Bias:     0.5,
		first:    true,
	}
}

func (p *PID) Command(s reactor.State, t float64) sim.Command {
	err := p.measure(s) - p.Target

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return p.output(p.Bias + p.Kp*err)
	}

	dt := t - p.prevT
	if dt <= 0 {
		return p.output(p.Bias + p.Kp*err + p.Ki*p.integral)
	}

	derivative := (err - p.prevErr) / dt
	integral := p.integral + err*dt
	u := p.Bias + p.Kp*err + p.Ki*integral + p.Kd*derivative

	// Stop integrating while the rods are pinned at either end.
	if (u < 1 || err < 0) && (u > 0 || err > 0) {
		p.integral = integral
	}
	p.prevErr = err
	p.prevT = t

	return p.output(u)
}

func (p *PID) measure(s reactor.State) float64 {
	if p.Variable == Temperature {
		return s.Temperature
	}
	return s.NeutronFlux
}

func (p *PID) output(u float64) sim.Command {
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}
	return sim.Command{RodInsertion: &u}
}

// Reset clears the integral and derivative history.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// Params returns the tunable values keyed as SetParam accepts them.
func (p *PID) Params() map[string]float64 {
	return map[string]float64{
		"kp":     p.Kp,
		"ki":     p.Ki,
		"kd":     p.Kd,
		"target": p.Target,
		"bias":   p.Bias,
	}
}

// SetParam changes one tunable value while the loop runs. Gains must be
// non-negative; every value must be finite.
func (p *PID) SetParam(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("pid %s must be finite, got %v", name, value)
	}
	switch name {
	case "kp", "ki", "kd":
		if value < 0 {
			return fmt.Errorf("pid %s must be non-negative, got %v", name, value)
		}
	}

	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	case "target":
		p.Target = value
	case "bias":
		p.Bias = value
	default:
		return fmt.Errorf("unknown pid parameter: %s", name)
	}
	return nil
}
