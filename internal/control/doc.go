// Package control provides operators that steer a reactor core.
//
// Operators implement [sim.Operator] and return a [sim.Command] each tick:
//
//   - [Hold]: never touches the inputs
//   - [Schedule]: scripted rod and coolant changes at fixed times
//   - [PID]: automatic rod control toward a flux or temperature setpoint
//   - [Manual]: values set interactively by the console
//
// # Usage
//
//	pid := control.NewPID(control.Flux, 0.5, 0.02, 0, 2.0)
//	runner := sim.New(core, pid)
//	// Operator.Command is called before every Update
//
// Operators keep per-run state and must not be shared between runs.
package control
