package zoom

import (
	"context"
	"errors"
	"fmt"
	"io"

	"seehuhn.de/go/geom/vec"
)

// Event is a decoded gesture or lifecycle notification delivered to a
// Controller as plain data.
type Event interface {
	event()
}

// Pan carries the raw pixel deltas since the previous pan sample
type Pan struct {
	DeltaX float64
	DeltaY float64
}

// PinchStart carries the page coordinate where a pinch began
type PinchStart struct {
	Focal vec.Vec2
}

// Pinch carries the cumulative scale ratio reported by the gesture source
type Pinch struct {
	Scale float64
}

// DoubleTap carries the viewport-relative tap coordinate
type DoubleTap struct {
	At vec.Vec2
}

// ImageLoad signals that the high resolution image finished loading
type ImageLoad struct{}

// ResetView asks for the identity transform
type ResetView struct{}

func (Pan) event()        {}
func (PinchStart) event() {}
func (Pinch) event()      {}
func (DoubleTap) event()  {}
func (ImageLoad) event()  {}
func (ResetView) event()  {}

// Handle dispatches one event to the matching operation
func (c *Controller) Handle(ev Event) {
	switch e := ev.(type) {
	case Pan:
		c.OnPan(e.DeltaX, e.DeltaY)
	case PinchStart:
		c.OnPinchStart(e.Focal)
	case Pinch:
		c.OnPinchUpdate(e.Scale)
	case DoubleTap:
		c.OnDoubleTap(e.At)
	case ImageLoad:
		c.OnImageLoad()
	case ResetView:
		c.Reset()
	default:
		if c.log != nil {
			c.log(fmt.Sprintf("[Zoom] ignoring unknown event %T", ev))
		}
	}
}

// Source delivers gesture events in the order they happened.
// Next returns io.EOF once the source is exhausted.
type Source interface {
	Next(ctx context.Context) (Event, error)
}

// Run pumps events from src into the controller until the source is
// exhausted, fails, or ctx is done.
func (c *Controller) Run(ctx context.Context, src Source) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		c.Handle(ev)
	}
}

// SliceSource replays a fixed list of events
type SliceSource struct {
	events []Event
	pos    int
}

// Events creates a Source over the given events
func Events(events ...Event) *SliceSource {
	return &SliceSource{events: events}
}

// Next returns the next event or io.EOF
func (s *SliceSource) Next(ctx context.Context) (Event, error) {
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// ChanSource reads events from a channel until it is closed
type ChanSource <-chan Event

// Next blocks until an event arrives, the channel closes or ctx is done
func (s ChanSource) Next(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-s:
		if !ok {
			return nil, io.EOF
		}
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
