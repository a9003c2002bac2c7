package metrics

import (
	"math"

	"github.com/san-kum/reactorsim/internal/reactor"
)

// RodTravel sums the absolute change in rod insertion over a run.
type RodTravel struct {
	name   string
	travel float64
	last   float64
	seen   bool
}

func NewRodTravel() *RodTravel {
	return &RodTravel{
		name: "rod_travel",
	}
}

func (c *RodTravel) Name() string {
	return c.name
}

func (c *RodTravel) Observe(s reactor.State, t float64) {
	if c.seen {
		c.travel += math.Abs(s.ControlRodInsertion - c.last)
	}
	c.last = s.ControlRodInsertion
	c.seen = true
}

func (c *RodTravel) Value() float64 {
	return c.travel
}

func (c *RodTravel) Reset() {
	c.travel = 0
	c.last = 0
	c.seen = false
}
