package console

import (
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/reactorsim/internal/config"
	"github.com/san-kum/reactorsim/internal/control"
	"github.com/san-kum/reactorsim/internal/reactor"
	"github.com/san-kum/reactorsim/internal/sim"
)

const (
	historyCapacity = 300

	// Inlet range accepted from the keyboard.
	MinCoolantInlet = 273.15
	MaxCoolantInlet = 400.0
	rodStepPercent  = 5
	inletStep       = 1.0

	targetStep = 0.1
	gainStep   = 0.1
)

type TickMsg time.Time

// panel feeds the core from the keyboard. In auto mode the PID drives the
// rods and the keyboard keeps the coolant inlet.
type panel struct {
	manual *control.Manual
	pid    *control.PID
	auto   bool
}

func (p *panel) Command(s reactor.State, t float64) sim.Command {
	cmd := p.manual.Command(s, t)
	if p.auto {
		cmd.RodInsertion = p.pid.Command(s, t).RodInsertion
	}
	return cmd
}

// Model is the interactive operator console. It owns the core for the
// lifetime of the program; all calls happen on the bubbletea update loop.
type Model struct {
	cond        reactor.Conditions
	params      reactor.Params
	runner      *sim.Runner
	panel       *panel
	logger      *log.Logger
	t, dt       float64
	interval    time.Duration
	running     bool
	diverged    bool
	rodPercent  int
	inlet       float64
	tempHistory []float64
	showHelp    bool
}

// NewModel builds a console that advances the core by dt every interval.
func NewModel(cond reactor.Conditions, p reactor.Params, dt float64, interval time.Duration) Model {
	m := Model{
		cond:     cond,
		params:   p,
		dt:       dt,
		interval: interval,
	}
	m.reset()
	return m
}

// SetLogger routes SCRAM events to l.
func (m *Model) SetLogger(l *log.Logger) {
	m.logger = l
	m.runner.SetLogger(l)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running && !m.diverged
		case "r":
			m.reset()
		case "up", "k":
			m.setRod(m.rodPercent + rodStepPercent)
		case "down", "j":
			m.setRod(m.rodPercent - rodStepPercent)
		case "right", "l":
			m.setInlet(m.inlet + inletStep)
		case "left", "h":
			m.setInlet(m.inlet - inletStep)
		case "a":
			m.toggleAuto()
		case "+", "=":
			m.adjustPID("target", targetStep)
		case "-":
			m.adjustPID("target", -targetStep)
		case "]":
			m.adjustPID("kp", gainStep)
		case "[":
			m.adjustPID("kp", -gainStep)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) setRod(percent int) {
	m.rodPercent = max(0, min(100, percent))
	m.panel.manual.SetRodInsertion(float64(m.rodPercent) / 100)
}

func (m *Model) setInlet(v float64) {
	m.inlet = max(MinCoolantInlet, min(MaxCoolantInlet, v))
	m.panel.manual.SetCoolantInlet(m.inlet)
}

// toggleAuto hands the rods to the PID starting from the current insertion,
// or back to the keyboard at the insertion the PID left.
func (m *Model) toggleAuto() {
	p := m.panel
	if p.auto {
		p.auto = false
		m.setRod(m.rodPercent)
		return
	}
	p.pid.Reset()
	p.pid.Bias = m.State().ControlRodInsertion
	p.auto = true
}

func (m *Model) adjustPID(name string, delta float64) {
	v := max(0, m.panel.pid.Params()[name]+delta)
	if err := m.panel.pid.SetParam(name, v); err != nil && m.logger != nil {
		m.logger.Print(err)
	}
}

func (m *Model) step() {
	s := m.runner.Step(m.t, m.dt)
	m.t += m.dt
	if !s.IsValid() {
		m.running = false
		m.diverged = true
		if m.logger != nil {
			m.logger.Printf("core diverged at t=%.2fs", m.t)
		}
		return
	}
	if m.panel.auto {
		m.rodPercent = int(s.ControlRodInsertion*100 + 0.5)
	}
	m.tempHistory = append(m.tempHistory, s.Temperature)
	if len(m.tempHistory) > historyCapacity {
		m.tempHistory = m.tempHistory[1:]
	}
}

// reset rebuilds the core from its initial conditions.
func (m *Model) reset() {
	m.panel = &panel{
		manual: control.NewManual(),
		pid:    control.NewPID(control.Flux, config.DefaultKp, config.DefaultKi, config.DefaultKd, config.DefaultTarget),
	}
	m.runner = sim.New(reactor.New(m.cond, m.params), m.panel)
	if m.logger != nil {
		m.runner.SetLogger(m.logger)
	}
	m.t = 0
	m.running = true
	m.diverged = false
	m.rodPercent = int(m.runner.Core().State().ControlRodInsertion*100 + 0.5)
	m.inlet = m.cond.CoolantInletTemperature
	m.tempHistory = make([]float64, 0, historyCapacity)
}

func (m Model) State() reactor.State { return m.runner.Core().State() }
func (m Model) Time() float64        { return m.t }

func (m Model) View() string {
	s := m.State()

	status := statusRunning.Render("RUNNING")
	switch {
	case m.diverged:
		status = statusScram.Render("DIVERGED")
	case !m.running:
		status = statusPaused.Render("PAUSED")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("BASIC REACTOR SIMULATOR") + "\n")
	b.WriteString(fmt.Sprintf("%s  %s  t=%.1fs\n\n", status, Banner(s.ScramTripped), m.t))

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Neutron Flux", fmt.Sprintf("%.3g", s.NeutronFlux))
	row("Reactor Temperature", fmt.Sprintf("%.2f K", s.Temperature))
	row("Power Level", fmt.Sprintf("%.4g MW", s.PowerLevel))
	row("Coolant Inlet Temp", fmt.Sprintf("%.2f K", s.CoolantInletTemperature))
	row("Coolant Outlet Temp", fmt.Sprintf("%.2f K", s.CoolantOutletTemperature))
	row("Reactivity", fmt.Sprintf("%+.4f", s.Reactivity))
	row("Control Rod Insertion", fmt.Sprintf("%s %d%%", gauge(float64(m.rodPercent)/100, 20), m.rodPercent))
	if m.panel.auto {
		pp := m.panel.pid.Params()
		row("Rod Control", fmt.Sprintf("AUTO flux target=%.2f kp=%.2f ki=%.3f", pp["target"], pp["kp"], pp["ki"]))
	} else {
		row("Rod Control", "MANUAL")
	}

	if len(m.tempHistory) > 1 {
		chart := asciigraph.Plot(m.tempHistory, asciigraph.Height(6), asciigraph.Width(50), asciigraph.Caption("Temperature (K)"))
		b.WriteString(graphStyle.Render(chart) + "\n")
	}

	b.WriteString(helpStyle.Render("↑↓:Rods ←→:Coolant A:Auto SP:Pause R:Reset ?:Help Q:Quit"))

	view := panelStyle.Render(b.String())
	if m.showHelp {
		help := lipgloss.JoinVertical(lipgloss.Left,
			"Up/K     insert rods 5%",
			"Down/J   withdraw rods 5%",
			fmt.Sprintf("Right/L  coolant inlet +1 K (max %.0f)", MaxCoolantInlet),
			fmt.Sprintf("Left/H   coolant inlet -1 K (min %.2f)", MinCoolantInlet),
			"A        toggle automatic rod control",
			"+/-      auto flux target ±0.1",
			"]/[      auto Kp ±0.1",
			"Space    pause/resume",
			"R        reset core",
			"Q        quit",
		)
		return lipgloss.JoinHorizontal(lipgloss.Top, view, panelStyle.Render(help))
	}
	return view
}

// Run starts the console on the terminal and blocks until the operator quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m).Run()
	return err
}
