// Package reactor implements a single-point reactor core model.
//
// A [Core] owns neutron flux, bulk core temperature, control-rod insertion
// and coolant temperatures. It is advanced by an external clock through
// [Core.Update] and steered through two operator inputs:
//
//   - [Core.SetControlRodInsertion]: absorber insertion, clamped to [0, 1]
//   - [Core.SetCoolantInletTemperature]: incoming coolant temperature in K
//
// Observers read a value copy of the model through [Core.State].
//
// # Example
//
//	core := reactor.New(reactor.DefaultConditions(), reactor.DefaultParams())
//	core.SetControlRodInsertion(0.3)
//	core.Update(0.1)
//	s := core.State()
//	fmt.Printf("%.3g %.2f K scram=%v\n", s.NeutronFlux, s.Temperature, s.ScramTripped)
//
// # Thread Safety
//
// Core is NOT thread-safe. Every call mutates several fields at once, so a
// driver running on more than one goroutine must serialize calls itself.
package reactor
