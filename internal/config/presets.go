package config

import "sort"

func f(v float64) *float64 { return &v }

func preset(mutate func(c *Config)) *Config {
	c := DefaultConfig()
	mutate(c)
	return c
}

// Presets are named starting points for runs. GetPreset hands out copies.
var Presets = map[string]*Config{
	// Default cadence with rods at 0.5; flux decays toward the floor.
	"nominal": preset(func(c *Config) {}),
	// Full rod withdrawal at t=5s. Flux feedback runs away, the core trips
	// and then diverges to Inf a step later.
	"withdrawal": preset(func(c *Config) {
		c.Operator = OperatorSchedule
		c.Duration = 90
		c.Schedule = []StepConfig{{At: 5, RodInsertion: f(0)}}
	}),
	// Inlet coolant jumps to 1050 K, tripping the core within seconds;
	// rods and cold coolant come back at t=30s. The trip stays latched.
	"loss_of_cooling": preset(func(c *Config) {
		c.Operator = OperatorSchedule
		c.Schedule = []StepConfig{
			{At: 5, CoolantInlet: f(1050)},
			{At: 30, RodInsertion: f(1), CoolantInlet: f(290)},
		}
	}),
	// Rod PID holding flux at 2.0.
	"auto": preset(func(c *Config) {
		c.Operator = OperatorPID
		c.Duration = 400
		c.RecordEvery = 10
	}),
}

func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *p
	cp.Schedule = append([]StepConfig(nil), p.Schedule...)
	return &cp
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
