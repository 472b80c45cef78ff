package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/recera/netgraph/pkg/gate"
)

// Style definitions
var (
	// Colors
	primaryColor = lipgloss.Color("#00d4ff")
	successColor = lipgloss.Color("#10b981")
	warningColor = lipgloss.Color("#f59e0b")
	errorColor   = lipgloss.Color("#ef4444")
	mutedColor   = lipgloss.Color("#94a3b8")

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	valueStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// stateStyle colors the render state
func stateStyle(s gate.State) lipgloss.Style {
	switch s {
	case gate.Active:
		return lipgloss.NewStyle().Foreground(successColor).Bold(true)
	case gate.Errored:
		return lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	case gate.Fallback:
		return lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(mutedColor)
	}
}

func (m *Model) render() string {
	var b strings.Builder
	b.WriteString(m.surf.View())
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(m.status())
	b.WriteByte('\n')
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m *Model) status() string {
	g := m.gate
	motion := "on"
	if m.reduce {
		motion = "reduced"
	}

	parts := []string{
		stateStyle(g.State()).Render(g.State().String()),
		field("surface", g.Current().String()),
		field("scroll", fmt.Sprintf("%3.0f%%", m.scroll*100)),
		field("motion", motion),
		field("restores", fmt.Sprint(g.RestoresLeft())),
	}
	line := strings.Join(parts, labelStyle.Render("  "))

	err := m.err
	if err == nil {
		err = g.Err()
	}
	if err != nil {
		line += "  " + errorStyle.Render(err.Error())
	}
	return lipgloss.NewStyle().MaxWidth(max(m.width, 1)).Render(line)
}

func field(label, value string) string {
	return labelStyle.Render(label+" ") + valueStyle.Render(value)
}
