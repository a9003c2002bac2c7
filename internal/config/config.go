package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/reactorsim/internal/control"
	"github.com/san-kum/reactorsim/internal/reactor"
	"github.com/san-kum/reactorsim/internal/sim"
)

const (
	DefaultDt          = 0.1
	DefaultDuration    = 60.0
	DefaultRecordEvery = 1
	DefaultOperator    = OperatorHold
	DefaultKp          = 0.5
	DefaultKi          = 0.02
	DefaultKd          = 0.0
	DefaultTarget      = 2.0
)

const (
	OperatorHold     = "hold"
	OperatorSchedule = "schedule"
	OperatorPID      = "pid"
)

type Config struct {
	Dt          float64       `yaml:"dt" env:"DT"`
	Duration    float64       `yaml:"duration" env:"DURATION"`
	RecordEvery int           `yaml:"record_every" env:"RECORD_EVERY"`
	Operator    string        `yaml:"operator" env:"OPERATOR"`
	Initial     InitialConfig `yaml:"initial" envPrefix:"INITIAL_"`
	Params      ParamsConfig  `yaml:"params" envPrefix:"PARAMS_"`
	PID         PIDConfig     `yaml:"pid" envPrefix:"PID_"`
	Schedule    []StepConfig  `yaml:"schedule,omitempty"`
}

type InitialConfig struct {
	Flux         float64 `yaml:"flux" env:"FLUX"`
	Temperature  float64 `yaml:"temperature" env:"TEMPERATURE"`
	RodInsertion float64 `yaml:"rod_insertion" env:"ROD_INSERTION"`
	CoolantInlet float64 `yaml:"coolant_inlet" env:"COOLANT_INLET"`
}

type ParamsConfig struct {
	HeatCapacity            float64 `yaml:"heat_capacity" env:"HEAT_CAPACITY"`
	HeatTransferCoefficient float64 `yaml:"heat_transfer_coefficient" env:"HEAT_TRANSFER_COEFFICIENT"`
	SurfaceArea             float64 `yaml:"surface_area" env:"SURFACE_AREA"`
}

type PIDConfig struct {
	Variable string  `yaml:"variable" env:"VARIABLE"`
	Kp       float64 `yaml:"kp" env:"KP"`
	Ki       float64 `yaml:"ki" env:"KI"`
	Kd       float64 `yaml:"kd" env:"KD"`
	Target   float64 `yaml:"target" env:"TARGET"`
	Bias     float64 `yaml:"bias" env:"BIAS"`
}

type StepConfig struct {
	At           float64  `yaml:"at"`
	RodInsertion *float64 `yaml:"rod_insertion,omitempty"`
	CoolantInlet *float64 `yaml:"coolant_inlet,omitempty"`
}

func DefaultConfig() *Config {
	cond := reactor.DefaultConditions()
	p := reactor.DefaultParams()
	return &Config{
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		RecordEvery: DefaultRecordEvery,
		Operator:    DefaultOperator,
		Initial: InitialConfig{
			Flux:         cond.NeutronFlux,
			Temperature:  cond.Temperature,
			RodInsertion: cond.ControlRodInsertion,
			CoolantInlet: cond.CoolantInletTemperature,
		},
		Params: ParamsConfig{
			HeatCapacity:            p.HeatCapacity,
			HeatTransferCoefficient: p.HeatTransferCoefficient,
			SurfaceArea:             p.SurfaceArea,
		},
		PID: PIDConfig{
			Variable: "flux",
			Kp:       DefaultKp,
			Ki:       DefaultKi,
			Kd:       DefaultKd,
			Target:   DefaultTarget,
			Bias:     cond.ControlRodInsertion,
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto reads a YAML file over cfg. Keys absent from the file keep the
// values already in cfg.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", c.Duration)
	}
	if !(c.Initial.Flux > 0) || math.IsInf(c.Initial.Flux, 0) {
		return fmt.Errorf("initial flux must be positive and finite, got %f", c.Initial.Flux)
	}
	for name, v := range map[string]float64{
		"temperature":   c.Initial.Temperature,
		"coolant inlet": c.Initial.CoolantInlet,
		"rod insertion": c.Initial.RodInsertion,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("initial %s must be finite, got %f", name, v)
		}
	}
	if c.Params.HeatCapacity <= 0 || c.Params.HeatTransferCoefficient < 0 || c.Params.SurfaceArea < 0 {
		return fmt.Errorf("physical constants out of range: %+v", c.Params)
	}
	switch c.Operator {
	case OperatorHold, OperatorSchedule:
	case OperatorPID:
		if _, err := control.ParseVariable(c.PID.Variable); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown operator: %s", c.Operator)
	}
	return nil
}

func (c *Config) Conditions() reactor.Conditions {
	return reactor.Conditions{
		NeutronFlux:             c.Initial.Flux,
		Temperature:             c.Initial.Temperature,
		ControlRodInsertion:     c.Initial.RodInsertion,
		CoolantInletTemperature: c.Initial.CoolantInlet,
	}
}

func (c *Config) ReactorParams() reactor.Params {
	return reactor.Params{
		HeatCapacity:            c.Params.HeatCapacity,
		HeatTransferCoefficient: c.Params.HeatTransferCoefficient,
		SurfaceArea:             c.Params.SurfaceArea,
	}
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Dt:          c.Dt,
		Duration:    c.Duration,
		RecordEvery: c.RecordEvery,
	}
}

// NewOperator builds a fresh operator for one run.
func (c *Config) NewOperator() (sim.Operator, error) {
	switch c.Operator {
	case OperatorHold, "":
		return control.NewHold(), nil
	case OperatorSchedule:
		steps := make([]control.Step, len(c.Schedule))
		for i, s := range c.Schedule {
			steps[i] = control.Step{At: s.At, RodInsertion: s.RodInsertion, CoolantInlet: s.CoolantInlet}
		}
		return control.NewSchedule(steps), nil
	case OperatorPID:
		v, err := control.ParseVariable(c.PID.Variable)
		if err != nil {
			return nil, err
		}
		pid := control.NewPID(v, c.PID.Kp, c.PID.Ki, c.PID.Kd, c.PID.Target)
		pid.Bias = c.PID.Bias
		return pid, nil
	}
	return nil, fmt.Errorf("unknown operator: %s", c.Operator)
}

// NewCore builds a core from the initial conditions and constants.
func (c *Config) NewCore() *reactor.Core {
	return reactor.New(c.Conditions(), c.ReactorParams())
}
