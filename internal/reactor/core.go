package reactor

import "math"

// Reactivity feedback coefficients.
const (
	FluxFeedback        = 0.01  // per flux unit
	TemperatureFeedback = 0.001 // per K above ReferenceTemperature
	RodWorth            = 0.05  // per unit insertion

	ReferenceTemperature = 300.0
)

const (
	// FluxFloor keeps the exponential kinetics away from an unrecoverable zero.
	FluxFloor = 0.1

	// PowerPerFlux converts relative flux to thermal power in MW.
	PowerPerFlux = 0.001

	// OutletRisePerMW is the static coolant temperature rise per MW of power.
	OutletRisePerMW = 0.0001

	// TripTemperature latches the SCRAM flag when reached.
	TripTemperature = 1000.0

	wattsPerMW = 1e6
)

// Params are the fixed physical constants of a core.
type Params struct {
	HeatCapacity            float64 // J/K
	HeatTransferCoefficient float64 // W/(m^2 K)
	SurfaceArea             float64 // m^2
}

func DefaultParams() Params {
	return Params{
		HeatCapacity:            1e6,
		HeatTransferCoefficient: 1e4,
		SurfaceArea:             100.0,
	}
}

// Conditions are the initial values of the dynamic state.
type Conditions struct {
	NeutronFlux             float64
	Temperature             float64
	ControlRodInsertion     float64
	CoolantInletTemperature float64
}

func DefaultConditions() Conditions {
	return Conditions{
		NeutronFlux:             1.0,
		Temperature:             300.0,
		ControlRodInsertion:     0.5,
		CoolantInletTemperature: 290.0,
	}
}

// State is an observation of a core at one instant.
type State struct {
	NeutronFlux              float64 `json:"neutron_flux"`
	Temperature              float64 `json:"temperature"`
	ControlRodInsertion      float64 `json:"control_rod_insertion"`
	CoolantInletTemperature  float64 `json:"coolant_inlet_temperature"`
	CoolantOutletTemperature float64 `json:"coolant_outlet_temperature"`
	PowerLevel               float64 `json:"power_level"`
	Reactivity               float64 `json:"reactivity"`
	ScramTripped             bool    `json:"scram_tripped"`
}

// IsValid reports whether every numeric field is finite.
func (s State) IsValid() bool {
	for _, v := range []float64{
		s.NeutronFlux,
		s.Temperature,
		s.ControlRodInsertion,
		s.CoolantInletTemperature,
		s.CoolantOutletTemperature,
		s.PowerLevel,
		s.Reactivity,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Core struct {
	state  State
	params Params
}

// New builds a core in the Normal state. The coolant outlet starts at the
// inlet temperature and power at zero until the first Update. Flux below
// FluxFloor (or NaN) starts at the floor.
func New(cond Conditions, p Params) *Core {
	flux := cond.NeutronFlux
	if !(flux >= FluxFloor) {
		flux = FluxFloor
	}
	c := &Core{
		params: p,
		state: State{
			NeutronFlux:              flux,
			Temperature:              cond.Temperature,
			CoolantInletTemperature:  cond.CoolantInletTemperature,
			CoolantOutletTemperature: cond.CoolantInletTemperature,
		},
	}
	c.SetControlRodInsertion(cond.ControlRodInsertion)
	return c
}

// Update advances the core by dt seconds. dt must be positive and finite;
// callers own that check. Once tripped the flag stays set and the physics
// keep running unchanged.
func (c *Core) Update(dt float64) {
	s := &c.state

	s.Reactivity = FluxFeedback*s.NeutronFlux -
		TemperatureFeedback*(s.Temperature-ReferenceTemperature) -
		RodWorth*s.ControlRodInsertion

	s.NeutronFlux *= math.Exp(s.Reactivity * dt)
	if s.NeutronFlux < FluxFloor {
		s.NeutronFlux = FluxFloor
	}

	s.PowerLevel = PowerPerFlux * s.NeutronFlux

	generated := s.PowerLevel * wattsPerMW * dt
	coolant := (s.CoolantInletTemperature + s.CoolantOutletTemperature) / 2
	removed := c.params.HeatTransferCoefficient * c.params.SurfaceArea * (s.Temperature - coolant) * dt
	s.Temperature += (generated - removed) / c.params.HeatCapacity

	s.CoolantOutletTemperature = s.CoolantInletTemperature + OutletRisePerMW*s.PowerLevel

	if s.Temperature >= TripTemperature {
		s.ScramTripped = true
	}
}

// SetControlRodInsertion clamps fraction to [0, 1]. NaN leaves the current
// insertion in place.
func (c *Core) SetControlRodInsertion(fraction float64) {
	if math.IsNaN(fraction) {
		return
	}
	c.state.ControlRodInsertion = math.Max(0, math.Min(1, fraction))
}

// SetCoolantInletTemperature stores temp as given. The outlet temperature
// follows on the next Update.
func (c *Core) SetCoolantInletTemperature(temp float64) {
	c.state.CoolantInletTemperature = temp
}

func (c *Core) State() State   { return c.state }
func (c *Core) Params() Params { return c.params }
func (c *Core) Tripped() bool  { return c.state.ScramTripped }
