package console

import "github.com/charmbracelet/lipgloss"

var (
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444466")).Padding(1, 2)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(24)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

	statusRunning = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	statusPaused  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	statusScram   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#cc0000")).Padding(0, 1)
)

// Banner renders the SCRAM indicator used by the console and the CLI.
func Banner(tripped bool) string {
	if tripped {
		return statusScram.Render("SCRAM")
	}
	return statusRunning.Render("NORMAL")
}

// gauge draws a fixed-width bar for a value in [0, 1].
func gauge(frac float64, width int) string {
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	filled := int(frac*float64(width) + 0.5)
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '='
		} else {
			bar[i] = '-'
		}
	}
	return "[" + string(bar) + "]"
}
