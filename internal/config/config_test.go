package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/reactorsim/internal/control"
	"github.com/san-kum/reactorsim/internal/reactor"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, OperatorHold, cfg.Operator)
	assert.Equal(t, 0.1, cfg.Dt)
	assert.Equal(t, reactor.DefaultConditions(), cfg.Conditions())
	assert.Equal(t, reactor.DefaultParams(), cfg.ReactorParams())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative duration", func(c *Config) { c.Duration = -1 }},
		{"zero heat capacity", func(c *Config) { c.Params.HeatCapacity = 0 }},
		{"zero initial flux", func(c *Config) { c.Initial.Flux = 0 }},
		{"negative initial flux", func(c *Config) { c.Initial.Flux = -1 }},
		{"NaN initial flux", func(c *Config) { c.Initial.Flux = math.NaN() }},
		{"infinite initial flux", func(c *Config) { c.Initial.Flux = math.Inf(1) }},
		{"NaN initial temperature", func(c *Config) { c.Initial.Temperature = math.NaN() }},
		{"unknown operator", func(c *Config) { c.Operator = "autopilot" }},
		{"unknown pid variable", func(c *Config) {
			c.Operator = OperatorPID
			c.PID.Variable = "pressure"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := GetPreset("loss_of_cooling")
	require.NotNil(t, cfg)
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	doc := `
dt: 0.05
initial:
  rod_insertion: 0.9
schedule:
  - at: 2
    coolant_inlet: 300
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.05, cfg.Dt)
	assert.Equal(t, DefaultDuration, cfg.Duration)
	assert.Equal(t, 0.9, cfg.Initial.RodInsertion)
	assert.Equal(t, 290.0, cfg.Initial.CoolantInlet)
	require.Len(t, cfg.Schedule, 1)
	assert.Nil(t, cfg.Schedule[0].RodInsertion)
	require.NotNil(t, cfg.Schedule[0].CoolantInlet)
	assert.Equal(t, 300.0, *cfg.Schedule[0].CoolantInlet)
}

func TestLoadIntoLayersOverPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.yaml")
	require.NoError(t, os.WriteFile(path, []byte("duration: 12\n"), 0644))

	cfg := GetPreset("withdrawal")
	require.NoError(t, LoadInto(path, cfg))

	assert.Equal(t, 12.0, cfg.Duration)
	assert.Equal(t, OperatorSchedule, cfg.Operator)
	assert.Len(t, cfg.Schedule, 1)
	assert.NotEqual(t, 12.0, Presets["withdrawal"].Duration, "preset must not be modified")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dt: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := applyEnv(cfg, map[string]string{
		"REACTORSIM_DT":                    "0.2",
		"REACTORSIM_OPERATOR":              "pid",
		"REACTORSIM_INITIAL_ROD_INSERTION": "0.75",
		"REACTORSIM_PARAMS_SURFACE_AREA":   "50",
		"REACTORSIM_PID_TARGET":            "3",
		"OTHER_DT":                         "9",
	})
	require.NoError(t, err)

	assert.Equal(t, 0.2, cfg.Dt)
	assert.Equal(t, OperatorPID, cfg.Operator)
	assert.Equal(t, 0.75, cfg.Initial.RodInsertion)
	assert.Equal(t, 50.0, cfg.Params.SurfaceArea)
	assert.Equal(t, 3.0, cfg.PID.Target)
	assert.Equal(t, DefaultDuration, cfg.Duration)
	assert.Equal(t, 300.0, cfg.Initial.Temperature)
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := DefaultConfig()
	err := applyEnv(cfg, map[string]string{"REACTORSIM_DT": "fast"})
	assert.Error(t, err)
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("withdrawal")
	require.NotNil(t, cfg)
	assert.Equal(t, OperatorSchedule, cfg.Operator)

	cfg.Schedule[0].At = 99
	cfg.Dt = 1
	again := GetPreset("withdrawal")
	assert.Equal(t, 5.0, again.Schedule[0].At, "preset mutated through copy")
	assert.Equal(t, DefaultDt, again.Dt)

	assert.Nil(t, GetPreset("nonexistent"))
}

func TestListPresets(t *testing.T) {
	assert.Equal(t, []string{"auto", "loss_of_cooling", "nominal", "withdrawal"}, ListPresets())
	for _, name := range ListPresets() {
		assert.NoError(t, GetPreset(name).Validate(), name)
	}
}

func TestNewOperator(t *testing.T) {
	tests := []struct {
		operator string
		check    func(t *testing.T, op any)
	}{
		{OperatorHold, func(t *testing.T, op any) { assert.IsType(t, &control.Hold{}, op) }},
		{OperatorSchedule, func(t *testing.T, op any) { assert.IsType(t, &control.Schedule{}, op) }},
		{OperatorPID, func(t *testing.T, op any) {
			pid, ok := op.(*control.PID)
			require.True(t, ok)
			assert.Equal(t, DefaultTarget, pid.Target)
			assert.Equal(t, 0.5, pid.Bias)
			assert.Equal(t, control.Flux, pid.Variable)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.operator, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Operator = tt.operator
			op, err := cfg.NewOperator()
			require.NoError(t, err)
			tt.check(t, op)
		})
	}

	cfg := DefaultConfig()
	cfg.Operator = "bogus"
	_, err := cfg.NewOperator()
	assert.Error(t, err)
}
