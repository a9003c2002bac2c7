package sim

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/reactorsim/internal/reactor"
)

type testOperator struct {
	at  float64
	rod float64
}

func (o *testOperator) Command(s reactor.State, t float64) Command {
	if t+1e-9 < o.at {
		return Command{}
	}
	rod := o.rod
	return Command{RodInsertion: &rod}
}

type testMetric struct {
	count int
	max   float64
}

func (m *testMetric) Name() string { return "test" }
func (m *testMetric) Observe(s reactor.State, t float64) {
	m.count++
	m.max = math.Max(m.max, s.Temperature)
}
func (m *testMetric) Value() float64 { return m.max }
func (m *testMetric) Reset() {
	m.count = 0
	m.max = 0
}

func newCore() *reactor.Core {
	return reactor.New(reactor.DefaultConditions(), reactor.DefaultParams())
}

func TestRunnerRun(t *testing.T) {
	runner := New(newCore(), nil)

	result, err := runner.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Samples) != 11 {
		t.Errorf("expected 11 samples, got %d", len(result.Samples))
	}
	if result.StepsTaken != 10 {
		t.Errorf("expected 10 steps, got %d", result.StepsTaken)
	}

	final, ok := result.Final()
	if !ok {
		t.Fatal("no final sample")
	}
	if math.Abs(final.Time-1.0) > 1e-9 {
		t.Errorf("final time = %v, want 1.0", final.Time)
	}
	if result.Tripped() {
		t.Error("nominal run should not trip")
	}
}

func TestRunnerMatchesDirectStepping(t *testing.T) {
	runner := New(newCore(), nil)
	result, err := runner.Run(context.Background(), Config{Dt: 0.1, Duration: 2.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	core := newCore()
	for i := 0; i < 20; i++ {
		core.Update(0.1)
	}

	final, _ := result.Final()
	if final.State != core.State() {
		t.Errorf("runner state %+v differs from direct stepping %+v", final.State, core.State())
	}
}

func TestRunnerInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"NaN dt", Config{Dt: math.NaN(), Duration: 1.0}},
		{"Inf dt", Config{Dt: math.Inf(1), Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := New(newCore(), nil)
			_, err := runner.Run(context.Background(), tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestRunnerOperator(t *testing.T) {
	runner := New(newCore(), &testOperator{at: 0.5, rod: 1.0})

	result, err := runner.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if rod := result.Samples[3].State.ControlRodInsertion; rod != 0.5 {
		t.Errorf("rod at t=0.3 = %v, want 0.5", rod)
	}
	final, _ := result.Final()
	if final.State.ControlRodInsertion != 1.0 {
		t.Errorf("final rod = %v, want 1.0", final.State.ControlRodInsertion)
	}
}

func TestRunnerTripTime(t *testing.T) {
	cond := reactor.DefaultConditions()
	cond.Temperature = 1100
	cond.CoolantInletTemperature = 1100

	var buf bytes.Buffer
	runner := New(reactor.New(cond, reactor.DefaultParams()), nil)
	runner.SetLogger(log.New(&buf, "", 0))

	result, err := runner.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if math.Abs(result.TripTime-0.1) > 1e-9 {
		t.Errorf("trip time = %v, want 0.1", result.TripTime)
	}
	if strings.Count(buf.String(), "SCRAM") != 1 {
		t.Errorf("expected one SCRAM log line, got %q", buf.String())
	}
}

func TestRunnerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := New(newCore(), nil)
	result, err := runner.Run(ctx, Config{Dt: 0.1, Duration: 1.0})
	if !errors.Is(err, ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if result == nil || len(result.Samples) != 1 {
		t.Error("expected partial result with the initial sample")
	}
}

func TestRunnerInvalidState(t *testing.T) {
	p := reactor.DefaultParams()
	p.HeatCapacity = 0

	runner := New(reactor.New(reactor.DefaultConditions(), p), nil)
	_, err := runner.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})

	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	if simErr.Step != 0 {
		t.Errorf("expected failure at step 0, got %d", simErr.Step)
	}
}

func TestRunnerMetrics(t *testing.T) {
	runner := New(newCore(), nil)
	metric := &testMetric{}
	runner.AddMetric(metric)

	result, err := runner.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Metrics["test"] != 300 {
		t.Errorf("expected peak 300 K, got %v", result.Metrics["test"])
	}
	if metric.count != 11 {
		t.Errorf("expected 11 observations, got %d", metric.count)
	}
}

func TestRunnerRecordEvery(t *testing.T) {
	runner := New(newCore(), nil)

	result, err := runner.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0, RecordEvery: 4})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// t=0, steps 4 and 8, and the final step.
	if len(result.Samples) != 4 {
		t.Errorf("expected 4 samples, got %d", len(result.Samples))
	}
}

func TestRunWithCallback(t *testing.T) {
	runner := New(newCore(), nil)

	calls := 0
	err := runner.RunWithCallback(context.Background(), Config{Dt: 0.1, Duration: 10}, func(s reactor.State, t float64) bool {
		calls++
		return t < 0.45
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if calls != 6 {
		t.Errorf("expected 6 callbacks, got %d", calls)
	}
}

func TestRunnerStep(t *testing.T) {
	var buf bytes.Buffer
	cond := reactor.DefaultConditions()
	cond.Temperature = 1100
	cond.CoolantInletTemperature = 1100

	runner := New(reactor.New(cond, reactor.DefaultParams()), &testOperator{rod: 0.9})
	runner.SetLogger(log.New(&buf, "", 0))

	s := runner.Step(0, 0.1)
	if s.ControlRodInsertion != 0.9 {
		t.Errorf("rod = %v, want 0.9", s.ControlRodInsertion)
	}
	runner.Step(0.1, 0.1)
	if !s.ScramTripped || strings.Count(buf.String(), "SCRAM") != 1 {
		t.Errorf("expected a single SCRAM log line, got %q", buf.String())
	}
}
