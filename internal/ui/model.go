// Package ui is a terminal playground that drives a zoom controller from
// the keyboard and draws the visible part of the image as a minimap.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"seehuhn.de/go/geom/vec"

	"github.com/recera/pinchzoom/pkg/zoom"
)

// panStep is the raw drag distance of one arrow key press, in pixels
const panStep = 30

// pinchStep is the ratio change reported for one +/- press
const pinchStep = 0.1

// session is shared between copies of the Model so the controller sink can
// update it.
type session struct {
	ctrl     *zoom.Controller
	current  zoom.Transform
	animated bool
	emitted  int
	// ratio is the last pinch ratio reported to the controller
	ratio float64
}

// Model is the playground state
type Model struct {
	width  int
	height int

	metrics zoom.Metrics
	s       *session

	// Cursor anchors in viewport coordinates; tab cycles through them
	anchors []vec.Vec2
	cursor  int

	keys     KeyMap
	help     help.Model
	title    string
	last     string
	quitting bool
}

// NewModel creates a playground for an image of the given layout. The image
// counts as loaded immediately.
func NewModel(title string, metrics zoom.Metrics, cfg zoom.GestureConfig) Model {
	s := &session{current: zoom.Identity}
	s.ctrl = zoom.New(cfg, zoom.StaticMetrics(metrics))
	s.ctrl.OnTransformChange(func(x, y, scale float64, animated bool) {
		s.current = zoom.Transform{X: x, Y: y, Scale: scale}
		s.animated = animated
		s.emitted++
	})
	s.ctrl.OnImageLoad()

	w, h := metrics.Viewport.Width, metrics.Viewport.Height
	return Model{
		metrics: metrics,
		s:       s,
		anchors: []vec.Vec2{
			{X: w / 2, Y: h / 2},
			{X: w / 4, Y: h / 4},
			{X: 3 * w / 4, Y: h / 4},
			{X: 3 * w / 4, Y: 3 * h / 4},
			{X: w / 4, Y: 3 * h / 4},
		},
		keys:  DefaultKeyMap,
		help:  help.New(),
		title: title,
		last:  "load",
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Transform returns the last transform emitted by the controller
func (m Model) Transform() zoom.Transform {
	return m.s.current
}

// Cursor returns the cursor position in viewport coordinates
func (m Model) Cursor() vec.Vec2 {
	return m.anchors[m.cursor]
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		m.pan(0, -panStep)
	case key.Matches(msg, m.keys.Down):
		m.pan(0, panStep)
	case key.Matches(msg, m.keys.Left):
		m.pan(-panStep, 0)
	case key.Matches(msg, m.keys.Right):
		m.pan(panStep, 0)

	case key.Matches(msg, m.keys.ZoomIn):
		m.pinch(pinchStep)
	case key.Matches(msg, m.keys.ZoomOut):
		m.pinch(-pinchStep)

	case key.Matches(msg, m.keys.DoubleTap):
		at := m.Cursor()
		m.s.ctrl.OnDoubleTap(at)
		m.last = fmt.Sprintf("double tap at %.0f,%.0f", at.X, at.Y)

	case key.Matches(msg, m.keys.Cursor):
		m.cursor = (m.cursor + 1) % len(m.anchors)

	case key.Matches(msg, m.keys.Reset):
		m.s.ctrl.Reset()
		m.last = "reset"
	}
	return m, nil
}

func (m *Model) pan(dx, dy float64) {
	m.s.ctrl.OnPan(dx, dy)
	m.last = fmt.Sprintf("pan %+.0f,%+.0f", dx, dy)
}

// pinch runs a one-sample pinch around the cursor, moving the reported ratio
// by delta from the previous sample. The focal point is in page coordinates,
// so the viewport offset is added back.
func (m *Model) pinch(delta float64) {
	focal := m.Cursor().Add(m.metrics.ViewportOffset)
	m.s.ratio += delta
	m.s.ctrl.OnPinchStart(focal)
	m.s.ctrl.OnPinchUpdate(m.s.ratio)
	m.last = fmt.Sprintf("pinch %.1f", m.s.ratio)
}
