// Package metrics summarizes reactor runs as named scalar values.
package metrics

import "github.com/san-kum/reactorsim/internal/sim"

// Default returns a fresh set of the standard run metrics.
func Default() []sim.Metric {
	return []sim.Metric{
		NewPeakTemperature(),
		NewPeakPower(),
		NewMinFlux(),
		NewRodTravel(),
		NewTimeToTrip(),
	}
}
