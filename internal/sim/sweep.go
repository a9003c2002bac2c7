package sim

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/reactorsim/internal/reactor"
)

// Sweep runs independent cores that differ only in their initial rod
// insertion. Each goroutine owns its core, runner, operator and metrics.
type Sweep struct {
	Conditions reactor.Conditions
	Params     reactor.Params
	Config     Config
	// Operator and Metrics build fresh instances per run; either may be nil.
	Operator func() (Operator, error)
	Metrics  func() []Metric
	// Limit bounds concurrent runs; zero means unbounded.
	Limit int
}

// SweepPoint is one finished run. A run that diverged keeps its partial
// Result and carries the error in Err.
type SweepPoint struct {
	RodInsertion float64
	Result       *Result
	Err          error
}

// Diverged reports whether the run stopped on a non-finite state.
func (p SweepPoint) Diverged() bool { return errors.Is(p.Err, ErrInvalidState) }

func (sw *Sweep) Run(ctx context.Context, rods []float64) ([]SweepPoint, error) {
	if err := validateConfig(sw.Config); err != nil {
		return nil, err
	}

	points := make([]SweepPoint, len(rods))
	g, ctx := errgroup.WithContext(ctx)
	if sw.Limit > 0 {
		g.SetLimit(sw.Limit)
	}

	for i, rod := range rods {
		i, rod := i, rod
		g.Go(func() error {
			cond := sw.Conditions
			cond.ControlRodInsertion = rod

			var op Operator
			if sw.Operator != nil {
				var err error
				if op, err = sw.Operator(); err != nil {
					return err
				}
			}
			runner := New(reactor.New(cond, sw.Params), op)
			if sw.Metrics != nil {
				for _, m := range sw.Metrics() {
					runner.AddMetric(m)
				}
			}

			res, err := runner.Run(ctx, sw.Config)
			if err != nil && !errors.Is(err, ErrInvalidState) {
				return err
			}
			points[i] = SweepPoint{RodInsertion: rod, Result: res, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}
