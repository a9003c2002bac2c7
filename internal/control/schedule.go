package control

import (
	"sort"

	"github.com/san-kum/reactorsim/internal/reactor"
	"github.com/san-kum/reactorsim/internal/sim"
)

// Step changes one or both inputs at simulated time At.
type Step struct {
	At           float64
	RodInsertion *float64
	CoolantInlet *float64
}

// Schedule replays a fixed list of steps. Steps that come due in the same
// tick are merged, the later one winning per input.
type Schedule struct {
	steps []Step
	next  int
}

func NewSchedule(steps []Step) *Schedule {
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })
	return &Schedule{steps: sorted}
}

func (s *Schedule) Command(st reactor.State, t float64) sim.Command {
	var cmd sim.Command
	for s.next < len(s.steps) && s.steps[s.next].At <= t+timeEpsilon {
		step := s.steps[s.next]
		if step.RodInsertion != nil {
			cmd.RodInsertion = step.RodInsertion
		}
		if step.CoolantInlet != nil {
			cmd.CoolantInlet = step.CoolantInlet
		}
		s.next++
	}
	return cmd
}

// timeEpsilon absorbs accumulated error in i*dt tick times.
const timeEpsilon = 1e-9
