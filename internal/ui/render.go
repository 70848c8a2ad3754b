package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"seehuhn.de/go/geom/vec"
)

// Minimap size in terminal cells. Cells are roughly twice as tall as wide.
const (
	mapCols = 48
	mapRows = 16
)

var (
	primaryColor = lipgloss.Color("#3b82f6")
	mutedColor   = lipgloss.Color("#94a3b8")
	accentColor  = lipgloss.Color("#f59e0b")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	visibleStyle = lipgloss.NewStyle().Foreground(primaryColor)
	hiddenStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	cursorStyle  = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	statusStyle  = lipgloss.NewStyle().MarginTop(1)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
)

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("pinchzoom playground  " + m.title))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.renderMap()))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.renderStatus()))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// renderMap draws the whole image at scale 1; the part currently visible in
// the viewport is highlighted and the cursor is marked where it lands on the
// image.
func (m Model) renderMap() string {
	r := m.metrics.Rendered
	if r.Width <= 0 || r.Height <= 0 {
		r = m.metrics.Viewport
	}
	t := m.Transform()
	topLeft := t.ToImage(vec.Vec2{})
	bottomRight := t.ToImage(vec.Vec2{X: m.metrics.Viewport.Width, Y: m.metrics.Viewport.Height})
	cursor := t.ToImage(m.Cursor())
	cx := int(cursor.X / r.Width * mapCols)
	cy := int(cursor.Y / r.Height * mapRows)

	var b strings.Builder
	for row := 0; row < mapRows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		y := (float64(row) + 0.5) / mapRows * r.Height
		for col := 0; col < mapCols; col++ {
			x := (float64(col) + 0.5) / mapCols * r.Width
			switch {
			case col == cx && row == cy:
				b.WriteString(cursorStyle.Render("+"))
			case x >= topLeft.X && x < bottomRight.X && y >= topLeft.Y && y < bottomRight.Y:
				b.WriteString(visibleStyle.Render("█"))
			default:
				b.WriteString(hiddenStyle.Render("·"))
			}
		}
	}
	return b.String()
}

func (m Model) renderStatus() string {
	t := m.Transform()
	mode := "instant"
	if m.s.animated {
		mode = "animated"
	}
	minX, minY := m.s.ctrl.PanLimits()
	lines := []string{
		fmt.Sprintf("x %.1f  y %.1f  scale %.2f / %.2f  (%s)", t.X, t.Y, t.Scale, m.s.ctrl.ScaleLimit(), mode),
		mutedStyle.Render(fmt.Sprintf("pan limits %.0f,%.0f  cursor %.0f,%.0f  last %s",
			minX, minY, m.Cursor().X, m.Cursor().Y, m.last)),
		mutedStyle.Render("css " + t.CSS()),
	}
	return strings.Join(lines, "\n")
}
