package control

import (
	"github.com/san-kum/reactorsim/internal/reactor"
	"github.com/san-kum/reactorsim/internal/sim"
)

type Hold struct{}

func NewHold() *Hold {
	return &Hold{}
}

func (h *Hold) Command(s reactor.State, t float64) sim.Command {
	return sim.Command{}
}
