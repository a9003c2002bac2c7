package control

import (
	"github.com/san-kum/reactorsim/internal/reactor"
	"github.com/san-kum/reactorsim/internal/sim"
)

// Manual forwards operator input from an interactive front end. Inputs
// stay unset until the first Set call.
type Manual struct {
	rod   *float64
	inlet *float64
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) SetRodInsertion(v float64) { m.rod = &v }
func (m *Manual) SetCoolantInlet(v float64) { m.inlet = &v }

// Command returns the current values so every tick reasserts them.
func (m *Manual) Command(s reactor.State, t float64) sim.Command {
	return sim.Command{RodInsertion: m.rod, CoolantInlet: m.inlet}
}
