// Package automation runs batches of reactor simulations from scripts or
// random perturbations.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/reactorsim/internal/config"
	"github.com/san-kum/reactorsim/internal/metrics"
	"github.com/san-kum/reactorsim/internal/sim"
	"github.com/san-kum/reactorsim/internal/storage"
)

// Scenario defines a scripted sequence of independent runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Keys other than preset and save_as are regular
// config keys layered over the preset (or the defaults).
type ScenarioStep struct {
	Preset string
	SaveAs string
	Config *config.Config
}

func (s *ScenarioStep) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Preset string `yaml:"preset"`
		SaveAs string `yaml:"save_as"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if head.Preset != "" {
		cfg = config.GetPreset(head.Preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s", head.Preset)
		}
	}
	if err := node.Decode(cfg); err != nil {
		return err
	}

	s.Preset = head.Preset
	s.SaveAs = head.SaveAs
	s.Config = cfg
	return nil
}

// name is the run name used by the store.
func (s *ScenarioStep) name(i int) string {
	switch {
	case s.SaveAs != "":
		return s.SaveAs
	case s.Preset != "":
		return s.Preset
	default:
		return fmt.Sprintf("step%d", i+1)
	}
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	for i, step := range scenario.Steps {
		if err := step.Config.Validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &scenario, nil
}

// StepResult pairs a finished step with the id it was saved under.
type StepResult struct {
	Name   string
	RunID  string
	Result *sim.Result
	Err    error
}

// RunScenario executes all steps in order and saves each one to st. A step
// that diverges is saved with its error and the scenario continues.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store, logger *log.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.name(i)
		if logger != nil {
			logger.Printf("step %d/%d: %s", i+1, len(scenario.Steps), name)
		}

		cfg := step.Config
		op, err := cfg.NewOperator()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		runner := sim.New(cfg.NewCore(), op)
		runner.SetLogger(logger)
		for _, m := range metrics.Default() {
			runner.AddMetric(m)
		}

		result, runErr := runner.Run(ctx, cfg.SimConfig())
		if runErr != nil && !errors.Is(runErr, sim.ErrInvalidState) {
			return results, fmt.Errorf("step %d run: %w", i+1, runErr)
		}

		runID, err := st.Save(storage.RunInfo{
			Name:     name,
			Operator: cfg.Operator,
			Dt:       cfg.Dt,
			Duration: cfg.Duration,
			Err:      runErr,
		}, result)
		if err != nil {
			return results, fmt.Errorf("step %d save: %w", i+1, err)
		}

		results = append(results, StepResult{Name: name, RunID: runID, Result: result, Err: runErr})
	}

	return results, nil
}
