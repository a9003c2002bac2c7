package sim

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/san-kum/reactorsim/internal/reactor"
)

// Runner drives one core on a fixed cadence, feeding operator commands
// through the core's setters before each Update.
type Runner struct {
	core      *reactor.Core
	operator  Operator
	metrics   []Metric
	observers []Observer
	logger    *log.Logger
}

func New(core *reactor.Core, operator Operator) *Runner {
	return &Runner{
		core:      core,
		operator:  operator,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (r *Runner) AddMetric(m Metric)      { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer)  { r.observers = append(r.observers, o) }
func (r *Runner) SetLogger(l *log.Logger) { r.logger = l }
func (r *Runner) Core() *reactor.Core     { return r.core }
func (r *Runner) Operator() Operator      { return r.operator }

func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	every := cfg.RecordEvery
	if every <= 0 {
		every = 1
	}

	result := &Result{
		Samples:  make([]Sample, 0, steps/every+2),
		Metrics:  make(map[string]float64),
		TripTime: -1,
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	s := r.core.State()
	result.Samples = append(result.Samples, Sample{Time: 0, State: s})
	r.observe(s, 0)
	if s.ScramTripped {
		result.TripTime = 0
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			r.collect(result)
			return result, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		default:
		}

		t := float64(i) * cfg.Dt
		r.apply(r.core.State(), t)
		r.core.Update(cfg.Dt)

		t = float64(i+1) * cfg.Dt
		s = r.core.State()
		if !s.IsValid() {
			r.collect(result)
			return result, &SimulationError{Step: i, Time: t, State: s, Wrapped: ErrInvalidState}
		}
		result.StepsTaken++

		if s.ScramTripped && result.TripTime < 0 {
			result.TripTime = t
			r.logf("SCRAM tripped at t=%.2fs (T=%.2f K)", t, s.Temperature)
		}

		r.observe(s, t)
		if (i+1)%every == 0 || i == steps-1 {
			result.Samples = append(result.Samples, Sample{Time: t, State: s})
		}
	}

	r.collect(result)
	return result, nil
}

// RunWithCallback streams every state to callback instead of recording.
// Returning false from callback stops the run without error.
func (r *Runner) RunWithCallback(ctx context.Context, cfg Config, callback func(reactor.State, float64) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	steps := cfg.Steps()
	if !callback(r.core.State(), 0) {
		return nil
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		default:
		}

		r.apply(r.core.State(), float64(i)*cfg.Dt)
		r.core.Update(cfg.Dt)

		t := float64(i+1) * cfg.Dt
		s := r.core.State()
		if !s.IsValid() {
			return &SimulationError{Step: i, Time: t, State: s, Wrapped: ErrInvalidState}
		}
		if !callback(s, t) {
			return nil
		}
	}

	return nil
}

// Step applies the operator and advances the core once. It is the
// single-tick entry point for interactive drivers.
func (r *Runner) Step(t, dt float64) reactor.State {
	wasTripped := r.core.Tripped()
	r.apply(r.core.State(), t)
	r.core.Update(dt)
	s := r.core.State()
	if s.ScramTripped && !wasTripped {
		r.logf("SCRAM tripped at t=%.2fs (T=%.2f K)", t+dt, s.Temperature)
	}
	return s
}

func (r *Runner) apply(s reactor.State, t float64) {
	if r.operator == nil {
		return
	}
	cmd := r.operator.Command(s, t)
	if cmd.IsZero() {
		return
	}
	if cmd.RodInsertion != nil {
		r.core.SetControlRodInsertion(*cmd.RodInsertion)
	}
	if cmd.CoolantInlet != nil {
		r.core.SetCoolantInletTemperature(*cmd.CoolantInlet)
	}
}

func (r *Runner) observe(s reactor.State, t float64) {
	for _, m := range r.metrics {
		m.Observe(s, t)
	}
	for _, obs := range r.observers {
		obs.OnStep(s, t)
	}
}

func (r *Runner) collect(result *Result) {
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 || math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive and finite, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 || math.IsNaN(cfg.Duration) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	return nil
}
