// Package export renders recorded runs for use outside the terminal.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/reactorsim/internal/reactor"
	"github.com/san-kum/reactorsim/internal/sim"
)

var fields = map[string]func(reactor.State) float64{
	"flux":        func(s reactor.State) float64 { return s.NeutronFlux },
	"temperature": func(s reactor.State) float64 { return s.Temperature },
	"power":       func(s reactor.State) float64 { return s.PowerLevel },
	"rod":         func(s reactor.State) float64 { return s.ControlRodInsertion },
	"coolant_in":  func(s reactor.State) float64 { return s.CoolantInletTemperature },
	"coolant_out": func(s reactor.State) float64 { return s.CoolantOutletTemperature },
	"reactivity":  func(s reactor.State) float64 { return s.Reactivity },
}

// Fields lists the series names accepted by NewTrace.
func Fields() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trace is one state field against time.
type Trace struct {
	Field  string
	Times  []float64
	Values []float64
	// TripTime marks the SCRAM with a vertical line; negative means none.
	TripTime float64
}

func NewTrace(samples []sim.Sample, field string, tripTime float64) (Trace, error) {
	fn, ok := fields[field]
	if !ok {
		return Trace{}, fmt.Errorf("unknown field %q (available: %v)", field, Fields())
	}

	tr := Trace{
		Field:    field,
		Times:    make([]float64, len(samples)),
		Values:   make([]float64, len(samples)),
		TripTime: tripTime,
	}
	for i, s := range samples {
		tr.Times[i] = s.Time
		tr.Values[i] = fn(s.State)
	}
	return tr, nil
}

// TraceToSVG draws the trace as a polyline scaled into width x height.
func TraceToSVG(tr Trace, width, height int, strokeColor string) string {
	if len(tr.Times) < 2 || len(tr.Times) != len(tr.Values) {
		return ""
	}

	minX, maxX := tr.Times[0], tr.Times[0]
	minY, maxY := tr.Values[0], tr.Values[0]
	for i := range tr.Times {
		minX = min(minX, tr.Times[i])
		maxX = max(maxX, tr.Times[i])
		minY = min(minY, tr.Values[i])
		maxY = max(maxY, tr.Values[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	lo, hi := minY, maxY
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	px := func(x float64) float64 { return (x - minX) / rangeX * float64(width) }
	py := func(y float64) float64 { return float64(height) - (y-minY)/rangeY*float64(height) }

	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<text x="8" y="16" fill="#888888" font-family="monospace" font-size="12">%s [%.4g, %.4g]</text>
`, width, height, width, height, tr.Field, lo, hi)

	if tr.TripTime >= minX && tr.TripTime <= maxX {
		x := px(tr.TripTime)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="0" x2="%.1f" y2="%d" stroke="#ff3333" stroke-dasharray="4 4"/>
`, x, x, height)
	}

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i := range tr.Times {
		x, y := px(tr.Times[i]), py(tr.Values[i])
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
