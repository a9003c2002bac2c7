package console

import (
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/reactorsim/internal/reactor"
)

func newTestModel() Model {
	return NewModel(reactor.DefaultConditions(), reactor.DefaultParams(), 0.1, 100*time.Millisecond)
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func tick() tea.Msg { return TickMsg(time.Time{}) }

func TestTickAdvancesCore(t *testing.T) {
	m := send(newTestModel(), tick(), tick(), tick())

	if got := m.Time(); got < 0.29 || got > 0.31 {
		t.Errorf("time = %v, want 0.3", got)
	}

	core := reactor.New(reactor.DefaultConditions(), reactor.DefaultParams())
	for i := 0; i < 3; i++ {
		core.Update(0.1)
	}
	if m.State() != core.State() {
		t.Errorf("console state %+v differs from direct stepping %+v", m.State(), core.State())
	}
}

func TestRodKeys(t *testing.T) {
	m := send(newTestModel(), key("up"), tick())
	if got := m.State().ControlRodInsertion; got != 0.55 {
		t.Errorf("rod = %v, want 0.55", got)
	}

	for i := 0; i < 30; i++ {
		m = send(m, key("j"))
	}
	m = send(m, tick())
	if got := m.State().ControlRodInsertion; got != 0 {
		t.Errorf("rod = %v, want 0 after full withdrawal", got)
	}
}

func TestCoolantKeysClamp(t *testing.T) {
	m := newTestModel()
	for i := 0; i < 200; i++ {
		m = send(m, key("right"))
	}
	m = send(m, tick())
	if got := m.State().CoolantInletTemperature; got != MaxCoolantInlet {
		t.Errorf("inlet = %v, want %v", got, MaxCoolantInlet)
	}

	for i := 0; i < 200; i++ {
		m = send(m, key("left"))
	}
	m = send(m, tick())
	if got := m.State().CoolantInletTemperature; got != MinCoolantInlet {
		t.Errorf("inlet = %v, want %v", got, MinCoolantInlet)
	}
}

func TestPauseAndReset(t *testing.T) {
	m := send(newTestModel(), tick(), key(" "), tick(), tick())
	if got := m.Time(); got < 0.09 || got > 0.11 {
		t.Errorf("paused console advanced: t=%v", got)
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("view should show PAUSED")
	}

	m = send(m, key("up"), key("r"))
	if m.Time() != 0 {
		t.Errorf("time after reset = %v", m.Time())
	}
	if m.State() != reactor.New(reactor.DefaultConditions(), reactor.DefaultParams()).State() {
		t.Error("reset did not restore the initial core")
	}
}

func TestViewShowsScram(t *testing.T) {
	cond := reactor.DefaultConditions()
	cond.Temperature = 1100
	cond.CoolantInletTemperature = 1100
	m := NewModel(cond, reactor.DefaultParams(), 0.1, time.Millisecond)

	if strings.Contains(m.View(), "SCRAM") {
		t.Error("SCRAM shown before the first update")
	}
	m = send(m, tick())
	view := m.View()
	if !strings.Contains(view, "SCRAM") {
		t.Error("view should show SCRAM after trip")
	}
	if !strings.Contains(view, "Reactor Temperature") {
		t.Error("view missing temperature row")
	}
}

func TestQuit(t *testing.T) {
	_, cmd := newTestModel().Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestAutoRodControl(t *testing.T) {
	m := send(newTestModel(), key("a"), tick())

	// Flux 1.0 below the 2.0 target: the PID withdraws rods from 0.5.
	if got := m.State().ControlRodInsertion; got != 0 {
		t.Errorf("rod = %v, want 0 after first auto step", got)
	}
	if m.rodPercent != 0 {
		t.Errorf("rod gauge = %d%%, want 0", m.rodPercent)
	}
	if !strings.Contains(m.View(), "AUTO") {
		t.Error("view should show AUTO")
	}

	m = send(m, key("+"), key("]"))
	pp := m.panel.pid.Params()
	if math.Abs(pp["target"]-2.1) > 1e-9 {
		t.Errorf("target = %v, want 2.1", pp["target"])
	}
	if math.Abs(pp["kp"]-0.6) > 1e-9 {
		t.Errorf("kp = %v, want 0.6", pp["kp"])
	}

	for i := 0; i < 10; i++ {
		m = send(m, key("["))
	}
	if got := m.panel.pid.Params()["kp"]; got != 0 {
		t.Errorf("kp = %v, want clamped at 0", got)
	}

	m = send(m, key("a"), tick())
	if !strings.Contains(m.View(), "MANUAL") {
		t.Error("view should show MANUAL after leaving auto")
	}
	if got := m.State().ControlRodInsertion; got != 0 {
		t.Errorf("rod = %v, want 0 kept from auto", got)
	}
}

func TestDivergencePausesConsole(t *testing.T) {
	m := newTestModel()
	for i := 0; i < 10; i++ {
		m = send(m, key("down"))
	}

	for i := 0; i < 2000 && !m.diverged; i++ {
		m = send(m, tick())
	}
	if !m.diverged {
		t.Fatal("withdrawn core did not diverge")
	}

	at := m.Time()
	m = send(m, tick(), key(" "), tick())
	if m.Time() != at {
		t.Errorf("diverged console advanced from %v to %v", at, m.Time())
	}
	if !strings.Contains(m.View(), "DIVERGED") {
		t.Error("view should show DIVERGED")
	}

	m = send(m, key("r"), tick())
	if m.diverged || !m.State().IsValid() {
		t.Error("reset should restore a valid running core")
	}
}
