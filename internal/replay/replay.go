// Package replay runs scripted gesture sequences through a zoom controller.
//
// A script is YAML:
//
//	viewport: {width: 200, height: 200}
//	image: {width: 800, height: 800}
//	scale_step: 0.05
//	steps:
//	  - load
//	  - doubletap: [50, 50]
//	  - pan: [30, -12]
//	  - pinchstart: [100, 100]
//	  - pinch: 1.2
//	  - reset
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
	"seehuhn.de/go/geom/vec"

	"github.com/recera/pinchzoom/pkg/zoom"
)

// ErrUnknownStep is returned for step names the runner does not know
var ErrUnknownStep = errors.New("unknown step")

// Size is a width/height pair
type Size struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Script is a parsed gesture script
type Script struct {
	Viewport  Size       `yaml:"viewport"`
	Image     Size       `yaml:"image"`
	Rendered  Size       `yaml:"rendered"`
	Offset    [2]float64 `yaml:"offset"`
	ScaleStep float64    `yaml:"scale_step"`
	Steps     []Step     `yaml:"steps"`
}

// Step is one scripted event
type Step struct {
	Event zoom.Event
	// Line in the source document, for error messages
	Line int
}

// Emission is one transform emitted while running a script
type Emission struct {
	Step      int
	Transform zoom.Transform
	Animated  bool
}

// UnmarshalYAML accepts either a bare step name ("load", "reset") or a
// single-key mapping from step name to arguments.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	s.Line = node.Line

	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Value {
		case "load":
			s.Event = zoom.ImageLoad{}
		case "reset":
			s.Event = zoom.ResetView{}
		default:
			return fmt.Errorf("line %d: %w %q", node.Line, ErrUnknownStep, node.Value)
		}
		return nil

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: a step must have exactly one key", node.Line)
		}
		name, args := node.Content[0].Value, node.Content[1]
		ev, err := decodeStep(name, args)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		s.Event = ev
		return nil
	}
	return fmt.Errorf("line %d: unexpected step", node.Line)
}

func decodeStep(name string, args *yaml.Node) (zoom.Event, error) {
	switch name {
	case "pan":
		p, err := decodePoint(args)
		return zoom.Pan{DeltaX: p.X, DeltaY: p.Y}, err
	case "pinchstart":
		p, err := decodePoint(args)
		return zoom.PinchStart{Focal: p}, err
	case "doubletap":
		p, err := decodePoint(args)
		return zoom.DoubleTap{At: p}, err
	case "pinch":
		var ratio float64
		if err := args.Decode(&ratio); err != nil {
			return nil, fmt.Errorf("pinch needs a ratio: %w", err)
		}
		return zoom.Pinch{Scale: ratio}, nil
	case "load":
		return zoom.ImageLoad{}, nil
	case "reset":
		return zoom.ResetView{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownStep, name)
}

func decodePoint(args *yaml.Node) (vec.Vec2, error) {
	var xy [2]float64
	if err := args.Decode(&xy); err != nil {
		return vec.Vec2{}, fmt.Errorf("expected [x, y]: %w", err)
	}
	return vec.Vec2{X: xy[0], Y: xy[1]}, nil
}

// Parse reads a script
func Parse(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("failed to parse script: empty document")
		}
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	return &s, nil
}

// ParseFile reads a script from disk
func ParseFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Metrics returns the layout the script runs against
func (s *Script) Metrics() zoom.Metrics {
	return zoom.Metrics{
		Viewport:       zoom.ViewportMetrics{Width: s.Viewport.Width, Height: s.Viewport.Height},
		Image:          zoom.ImageMetrics{NaturalWidth: s.Image.Width, NaturalHeight: s.Image.Height},
		Rendered:       zoom.ViewportMetrics{Width: s.Rendered.Width, Height: s.Rendered.Height},
		ViewportOffset: vec.Vec2{X: s.Offset[0], Y: s.Offset[1]},
	}
}

// Events returns the scripted events in order
func (s *Script) Events() []zoom.Event {
	events := make([]zoom.Event, len(s.Steps))
	for i, step := range s.Steps {
		events[i] = step.Event
	}
	return events
}

// Run plays the script through a fresh controller and returns every
// emitted transform.
func (s *Script) Run(ctx context.Context) ([]Emission, error) {
	ctrl := zoom.New(zoom.GestureConfig{ScaleStep: s.ScaleStep}, zoom.StaticMetrics(s.Metrics()))

	var out []Emission
	step := 0
	ctrl.OnTransformChange(func(x, y, scale float64, animated bool) {
		out = append(out, Emission{
			Step:      step,
			Transform: zoom.Transform{X: x, Y: y, Scale: scale},
			Animated:  animated,
		})
	})

	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		step = i
		ctrl.Handle(st.Event)
	}
	return out, nil
}
