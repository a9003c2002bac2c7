package optim

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/reactorsim/internal/config"
	"github.com/san-kum/reactorsim/internal/control"
	"github.com/san-kum/reactorsim/internal/metrics"
	"github.com/san-kum/reactorsim/internal/sim"
)

var ErrTripped = errors.New("candidate tripped the core")

// PIDObjective scores PID gains by the integrated absolute tracking error of
// a run built from base. Parameters are the names PID.SetParam accepts.
// Candidates that trip or diverge are rejected.
func PIDObjective(base *config.Config) Evaluate {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		cfg := *base
		cfg.Operator = config.OperatorPID

		op, err := cfg.NewOperator()
		if err != nil {
			return 0, err
		}
		pid, ok := op.(*control.PID)
		if !ok {
			return 0, fmt.Errorf("pid operator has type %T", op)
		}
		for name, v := range params {
			if err := pid.SetParam(name, v); err != nil {
				return 0, err
			}
		}

		tracking := metrics.NewFluxTrackingError(pid.Target)
		if pid.Variable == control.Temperature {
			tracking = metrics.NewTemperatureTrackingError(pid.Target)
		}

		runner := sim.New(cfg.NewCore(), pid)
		runner.AddMetric(tracking)

		res, err := runner.Run(ctx, cfg.SimConfig())
		if err != nil {
			return 0, err
		}
		if res.Tripped() {
			return 0, fmt.Errorf("%w at t=%.1fs", ErrTripped, res.TripTime)
		}
		return res.Metrics[tracking.Name()], nil
	}
}
