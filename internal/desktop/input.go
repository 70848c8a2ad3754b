// Package desktop hosts a zoom controller in a native window. Pointer input
// is polled once per frame and turned into the same gesture events the
// browser widget produces.
package desktop

import (
	"math"
	"time"

	"seehuhn.de/go/geom/vec"

	"github.com/recera/pinchzoom/pkg/zoom"
)

const (
	defaultDoubleClick = 300 * time.Millisecond
	defaultSlop        = 6.0
	defaultWheelIdle   = 250 * time.Millisecond

	// wheelStep is the pinch ratio change per wheel notch
	wheelStep = 0.1
)

// Sample is the pointer state polled for one frame
type Sample struct {
	Time    time.Time
	Cursor  vec.Vec2
	Pressed bool
	// WheelY is positive when scrolling up
	WheelY  float64
	Touches []vec.Vec2
}

// Gestures recognizes drags, double clicks, wheel zooms and two finger
// pinches in a stream of samples.
type Gestures struct {
	DoubleClick time.Duration // max time between the clicks of a double click
	Slop        float64       // max distance between the clicks of a double click
	WheelIdle   time.Duration // a wheel pause longer than this starts a new pinch

	down bool
	last vec.Vec2

	lastClick   time.Time
	lastClickAt vec.Vec2

	lastWheel time.Time
	wheeling  bool

	// ratio is the last pinch ratio reported. The controller compares each
	// sample with the previous one across pinches, so wheel notches continue
	// from it rather than restarting at 1.
	ratio     float64
	pinching  bool
	pinchDist float64
}

// NewGestures creates a recognizer with default thresholds
func NewGestures() *Gestures {
	return &Gestures{
		DoubleClick: defaultDoubleClick,
		Slop:        defaultSlop,
		WheelIdle:   defaultWheelIdle,
	}
}

// Update consumes one sample and returns the events it produced, in order
func (g *Gestures) Update(s Sample) []zoom.Event {
	if len(s.Touches) >= 2 {
		return g.touchPinch(s.Touches[0], s.Touches[1])
	}
	if g.pinching {
		// Lifting one finger ends the pinch; the other must not pan
		g.pinching = false
		g.down = false
		return nil
	}
	if len(s.Touches) == 1 {
		s.Cursor = s.Touches[0]
		s.Pressed = true
	}

	var events []zoom.Event
	if s.WheelY != 0 {
		events = append(events, g.wheel(s)...)
	}

	switch {
	case s.Pressed && !g.down:
		g.down = true
		g.last = s.Cursor
		if ev, ok := g.click(s); ok {
			events = append(events, ev)
		}
	case s.Pressed:
		d := s.Cursor.Sub(g.last)
		if d.X != 0 || d.Y != 0 {
			events = append(events, zoom.Pan{DeltaX: d.X, DeltaY: d.Y})
			g.last = s.Cursor
		}
	default:
		g.down = false
	}
	return events
}

// click registers a press and reports a double tap when it completes one
func (g *Gestures) click(s Sample) (zoom.Event, bool) {
	if !g.lastClick.IsZero() &&
		s.Time.Sub(g.lastClick) <= g.DoubleClick &&
		distance(s.Cursor, g.lastClickAt) <= g.Slop {
		g.lastClick = time.Time{}
		return zoom.DoubleTap{At: s.Cursor}, true
	}
	g.lastClick = s.Time
	g.lastClickAt = s.Cursor
	return nil, false
}

// wheel maps scrolling onto a pinch around the cursor. Each notch moves the
// reported ratio by wheelStep, which the controller turns into one scale step.
func (g *Gestures) wheel(s Sample) []zoom.Event {
	var events []zoom.Event
	if !g.wheeling || s.Time.Sub(g.lastWheel) > g.WheelIdle {
		events = append(events, zoom.PinchStart{Focal: s.Cursor})
		g.wheeling = true
	}
	g.lastWheel = s.Time

	if s.WheelY > 0 {
		g.ratio += wheelStep
	} else {
		g.ratio -= wheelStep
	}
	return append(events, zoom.Pinch{Scale: g.ratio})
}

func (g *Gestures) touchPinch(a, b vec.Vec2) []zoom.Event {
	d := distance(a, b)
	if !g.pinching {
		g.pinching = true
		g.pinchDist = d
		g.down = false
		g.wheeling = false
		mid := vec.Vec2{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
		return []zoom.Event{zoom.PinchStart{Focal: mid}}
	}
	if g.pinchDist == 0 {
		return nil
	}
	g.ratio = d / g.pinchDist
	return []zoom.Event{zoom.Pinch{Scale: g.ratio}}
}

func distance(a, b vec.Vec2) float64 {
	d := a.Sub(b)
	return math.Hypot(d.X, d.Y)
}
