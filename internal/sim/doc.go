// Package sim drives a reactor core on a fixed cadence.
//
// A [Runner] plays the part of the external clock: on every tick it asks an
// [Operator] for input, forwards it through the core's two setters, and
// calls Update with the configured step. Runs validate the step size up
// front, since the core itself accepts any dt.
//
// [Sweep] fans a set of initial rod insertions out over goroutines. Cores
// are never shared between goroutines.
package sim
