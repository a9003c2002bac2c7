package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/san-kum/reactorsim/internal/config"
	"github.com/san-kum/reactorsim/internal/sim"
)

// MonteCarloConfig perturbs the initial conditions of Base uniformly by up
// to the given spreads in each direction.
type MonteCarloConfig struct {
	Base              *config.Config
	NumTrials         int
	FluxSpread        float64
	TemperatureSpread float64
	InletSpread       float64
	Seed              int64
}

// MonteCarloResult holds one trial
type MonteCarloResult struct {
	TrialID  int
	Initial  config.InitialConfig
	Final    sim.Sample
	TripTime float64
	Diverged bool
}

// RunMonteCarlo executes the trials sequentially. The same seed reproduces
// the same trials.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig) ([]MonteCarloResult, error) {
	if mc.Base == nil {
		return nil, errors.New("monte carlo: base config is required")
	}
	if mc.NumTrials < 0 {
		return nil, fmt.Errorf("monte carlo: trials must be non-negative, got %d", mc.NumTrials)
	}

	results := make([]MonteCarloResult, 0, mc.NumTrials)
	rng := rand.New(rand.NewSource(mc.Seed))

	for trial := 0; trial < mc.NumTrials; trial++ {
		cfg := *mc.Base
		cfg.Initial.Flux += (rng.Float64() - 0.5) * 2 * mc.FluxSpread
		cfg.Initial.Temperature += (rng.Float64() - 0.5) * 2 * mc.TemperatureSpread
		cfg.Initial.CoolantInlet += (rng.Float64() - 0.5) * 2 * mc.InletSpread

		op, err := cfg.NewOperator()
		if err != nil {
			return nil, err
		}
		runner := sim.New(cfg.NewCore(), op)

		result, err := runner.Run(ctx, cfg.SimConfig())
		diverged := errors.Is(err, sim.ErrInvalidState)
		if err != nil && !diverged {
			return results, err
		}

		final, _ := result.Final()
		results = append(results, MonteCarloResult{
			TrialID:  trial,
			Initial:  cfg.Initial,
			Final:    final,
			TripTime: result.TripTime,
			Diverged: diverged,
		})
	}

	return results, nil
}

// MonteCarloStats summarizes trials.
type MonteCarloStats struct {
	Trials       int
	Trips        int
	Diverged     int
	MeanTripTime float64 // over tripped trials, -1 if none
}

func Summarize(results []MonteCarloResult) MonteCarloStats {
	stats := MonteCarloStats{Trials: len(results), MeanTripTime: -1}
	var sum float64
	for _, r := range results {
		if r.TripTime >= 0 {
			stats.Trips++
			sum += r.TripTime
		}
		if r.Diverged {
			stats.Diverged++
		}
	}
	if stats.Trips > 0 {
		stats.MeanTripTime = sum / float64(stats.Trips)
	}
	return stats
}
