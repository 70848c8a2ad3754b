package desktop

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/vec"

	"github.com/recera/pinchzoom/pkg/zoom"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func pt(x, y float64) vec.Vec2 {
	return vec.Vec2{X: x, Y: y}
}

func feed(g *Gestures, samples ...Sample) []zoom.Event {
	var out []zoom.Event
	for _, s := range samples {
		out = append(out, g.Update(s)...)
	}
	return out
}

func TestGestures(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		want    []zoom.Event
	}{
		{
			name: "drag emits per frame deltas",
			samples: []Sample{
				{Time: at(0), Cursor: pt(10, 10), Pressed: true},
				{Time: at(16), Cursor: pt(15, 8), Pressed: true},
				{Time: at(32), Cursor: pt(15, 8), Pressed: true},
				{Time: at(48), Cursor: pt(20, 8), Pressed: true},
				{Time: at(64), Cursor: pt(20, 8)},
			},
			want: []zoom.Event{
				zoom.Pan{DeltaX: 5, DeltaY: -2},
				zoom.Pan{DeltaX: 5, DeltaY: 0},
			},
		},
		{
			name: "double click",
			samples: []Sample{
				{Time: at(0), Cursor: pt(50, 40), Pressed: true},
				{Time: at(80), Cursor: pt(50, 40)},
				{Time: at(200), Cursor: pt(52, 41), Pressed: true},
				{Time: at(260), Cursor: pt(52, 41)},
			},
			want: []zoom.Event{zoom.DoubleTap{At: pt(52, 41)}},
		},
		{
			name: "slow clicks are not a double click",
			samples: []Sample{
				{Time: at(0), Cursor: pt(50, 40), Pressed: true},
				{Time: at(80), Cursor: pt(50, 40)},
				{Time: at(500), Cursor: pt(50, 40), Pressed: true},
			},
		},
		{
			name: "distant clicks are not a double click",
			samples: []Sample{
				{Time: at(0), Cursor: pt(50, 40), Pressed: true},
				{Time: at(80), Cursor: pt(50, 40)},
				{Time: at(150), Cursor: pt(90, 40), Pressed: true},
			},
		},
		{
			name: "wheel pinches around the cursor",
			samples: []Sample{
				{Time: at(0), Cursor: pt(30, 20), WheelY: 1},
				{Time: at(50), Cursor: pt(31, 20), WheelY: 1},
				{Time: at(100), Cursor: pt(31, 20), WheelY: -1},
				{Time: at(1000), Cursor: pt(60, 60), WheelY: -1},
			},
			want: []zoom.Event{
				zoom.PinchStart{Focal: pt(30, 20)},
				zoom.Pinch{Scale: 0.1},
				zoom.Pinch{Scale: 0.2},
				zoom.Pinch{Scale: 0.1},
				zoom.PinchStart{Focal: pt(60, 60)},
				zoom.Pinch{Scale: 0},
			},
		},
		{
			name: "wheel continues from the last touch pinch ratio",
			samples: []Sample{
				{Time: at(0), Touches: []vec.Vec2{pt(0, 0), pt(100, 0)}},
				{Time: at(16), Touches: []vec.Vec2{pt(0, 0), pt(200, 0)}},
				{Time: at(32)},
				{Time: at(48), Cursor: pt(10, 10), WheelY: 1},
			},
			want: []zoom.Event{
				zoom.PinchStart{Focal: pt(50, 0)},
				zoom.Pinch{Scale: 2},
				zoom.PinchStart{Focal: pt(10, 10)},
				zoom.Pinch{Scale: 2.1},
			},
		},
		{
			name: "two finger pinch",
			samples: []Sample{
				{Time: at(0), Touches: []vec.Vec2{pt(0, 0), pt(100, 0)}},
				{Time: at(16), Touches: []vec.Vec2{pt(0, 0), pt(150, 0)}},
				{Time: at(32), Touches: []vec.Vec2{pt(0, 0), pt(150, 0)}},
				{Time: at(48), Touches: []vec.Vec2{pt(0, 0)}},
				{Time: at(64), Touches: []vec.Vec2{pt(10, 0)}},
				{Time: at(80), Touches: []vec.Vec2{pt(14, 3)}},
			},
			want: []zoom.Event{
				zoom.PinchStart{Focal: pt(50, 0)},
				zoom.Pinch{Scale: 1.5},
				zoom.Pinch{Scale: 1.5},
				// the remaining finger starts a fresh drag
				zoom.Pan{DeltaX: 4, DeltaY: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := feed(NewGestures(), tt.samples...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// The recognizer output drives a real controller the same way the window does
func TestGestures_DriveController(t *testing.T) {
	ctrl := zoom.New(zoom.GestureConfig{}, zoom.StaticMetrics(zoom.Metrics{
		Viewport: zoom.ViewportMetrics{Width: 200, Height: 200},
		Image:    zoom.ImageMetrics{NaturalWidth: 800, NaturalHeight: 800},
	}))
	ctrl.OnImageLoad()

	g := NewGestures()
	for _, ev := range feed(g,
		Sample{Time: at(0), Cursor: pt(50, 50), Pressed: true},
		Sample{Time: at(50), Cursor: pt(50, 50)},
		Sample{Time: at(100), Cursor: pt(50, 50), Pressed: true},
		Sample{Time: at(150), Cursor: pt(50, 50)},
	) {
		ctrl.Handle(ev)
	}

	want := zoom.Transform{X: -150, Y: -150, Scale: 4}
	if got := ctrl.GetTransform(); got != want {
		t.Errorf("GetTransform() = %+v, want %+v", got, want)
	}
}

func TestGestures_WheelDirectionAcrossBursts(t *testing.T) {
	ctrl := zoom.New(zoom.GestureConfig{}, zoom.StaticMetrics(zoom.Metrics{
		Viewport: zoom.ViewportMetrics{Width: 200, Height: 200},
		Image:    zoom.ImageMetrics{NaturalWidth: 800, NaturalHeight: 800},
	}))
	ctrl.OnImageLoad()

	g := NewGestures()
	scales := []float64{}
	for _, s := range []Sample{
		{Time: at(0), Cursor: pt(100, 100), WheelY: 1},
		{Time: at(50), Cursor: pt(100, 100), WheelY: 1},
		// a new burst keeps zooming in
		{Time: at(1000), Cursor: pt(100, 100), WheelY: 1},
		{Time: at(2000), Cursor: pt(100, 100), WheelY: -1},
	} {
		for _, ev := range g.Update(s) {
			ctrl.Handle(ev)
		}
		scales = append(scales, ctrl.GetTransform().Scale)
	}

	if diff := cmp.Diff([]float64{1.05, 1.1, 1.15, 1.1}, scales); diff != "" {
		t.Errorf("scales mismatch (-want +got):\n%s", diff)
	}
}
