package zoom

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"
)

type emission struct {
	X, Y, Scale float64
	Animated    bool
}

type recorder struct {
	calls []emission
}

func (r *recorder) sink(x, y, scale float64, animated bool) {
	r.calls = append(r.calls, emission{X: x, Y: y, Scale: scale, Animated: animated})
}

func (r *recorder) last(t *testing.T) emission {
	t.Helper()
	require.NotEmpty(t, r.calls, "sink was never called")
	return r.calls[len(r.calls)-1]
}

func square(viewport, natural float64) Metrics {
	return Metrics{
		Viewport: ViewportMetrics{Width: viewport, Height: viewport},
		Image:    ImageMetrics{NaturalWidth: natural, NaturalHeight: natural},
	}
}

// newLoaded returns a loaded controller with the load emission discarded
func newLoaded(m Metrics) (*Controller, *recorder) {
	rec := &recorder{}
	c := New(GestureConfig{}, StaticMetrics(m))
	c.OnTransformChange(rec.sink)
	c.OnImageLoad()
	rec.calls = nil
	return c, rec
}

func TestScaleLimit(t *testing.T) {
	tests := []struct {
		name    string
		metrics Metrics
		want    float64
	}{
		{"square image four times the viewport", square(200, 800), 4},
		{"height is the constrained axis", Metrics{
			Viewport: ViewportMetrics{Width: 300, Height: 200},
			Image:    ImageMetrics{NaturalWidth: 1000, NaturalHeight: 500},
		}, 2.5},
		{"rounded to two decimals", square(300, 1000), 3.33},
		{"image same size as viewport", square(500, 500), 1},
		{"zero viewport is degenerate", square(0, 800), 1},
		{"zero image is degenerate", square(200, 0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.metrics.ScaleLimit())
		})
	}
}

func TestPanLimits(t *testing.T) {
	m := Metrics{
		Viewport: ViewportMetrics{Width: 100, Height: 100},
		Image:    ImageMetrics{NaturalWidth: 1000, NaturalHeight: 1000},
		Rendered: ViewportMetrics{Width: 150, Height: 150},
	}

	x, y := m.PanLimits(2)
	assert.Equal(t, -200.0, x)
	assert.Equal(t, -200.0, y)

	// Scaled image smaller than the viewport collapses the limit to 0
	x, y = m.PanLimits(0.5)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)
}

func TestOnPan_ClampsToPanLimit(t *testing.T) {
	c, rec := newLoaded(Metrics{
		Viewport: ViewportMetrics{Width: 100, Height: 100},
		Image:    ImageMetrics{NaturalWidth: 1000, NaturalHeight: 1000},
		Rendered: ViewportMetrics{Width: 150, Height: 150},
	})
	c.scale = 2

	// dx of 1500 asks for translateX = -500
	c.OnPan(1500, -30)

	got := rec.last(t)
	want := emission{X: -200, Y: 0, Scale: 2, Animated: false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected emission (-want +got):\n%s", diff)
	}
}

func TestOnPan_Damping(t *testing.T) {
	c, _ := newLoaded(square(100, 1000))
	c.scale = 3

	c.OnPan(30, 60)

	tr := c.GetTransform()
	assert.Equal(t, -10.0, tr.X)
	assert.Equal(t, -20.0, tr.Y)
}

func TestOnPan_NoPanningAtScaleOne(t *testing.T) {
	c, rec := newLoaded(square(100, 1000))

	c.OnPan(90, 90)

	assert.Equal(t, Identity, c.GetTransform())
	assert.Len(t, rec.calls, 1)
}

func TestOnPan_StaysInsidePanBox(t *testing.T) {
	m := Metrics{
		Viewport: ViewportMetrics{Width: 320, Height: 240},
		Image:    ImageMetrics{NaturalWidth: 3200, NaturalHeight: 2400},
	}
	c, _ := newLoaded(m)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		if i%50 == 0 {
			c.scale = 1 + rng.Float64()*9
		}
		c.OnPan(rng.Float64()*400-200, rng.Float64()*400-200)

		minX, minY := m.PanLimits(c.scale)
		tr := c.GetTransform()
		require.LessOrEqual(t, tr.X, 0.0, "step %d", i)
		require.LessOrEqual(t, tr.Y, 0.0, "step %d", i)
		require.GreaterOrEqual(t, tr.X, minX, "step %d", i)
		require.GreaterOrEqual(t, tr.Y, minY, "step %d", i)
	}
}

func TestOperationsBeforeLoadAreNoOps(t *testing.T) {
	rec := &recorder{}
	c := New(GestureConfig{}, StaticMetrics(square(200, 800)))
	c.OnTransformChange(rec.sink)

	c.OnPan(300, 300)
	c.OnPinchStart(vec.Vec2{X: 50, Y: 50})
	c.OnPinchUpdate(1.5)
	c.OnPinchUpdate(0.5)
	c.OnDoubleTap(vec.Vec2{X: 50, Y: 50})
	c.Reset()

	assert.False(t, c.Loaded())
	assert.Equal(t, Identity, c.GetTransform())
	assert.Equal(t, vec.Vec2{}, c.pinchFocal)
	assert.Empty(t, rec.calls)
}

func TestOnImageLoad_EmitsIdentity(t *testing.T) {
	rec := &recorder{}
	c := New(GestureConfig{}, StaticMetrics(square(200, 800)))
	c.OnTransformChange(rec.sink)

	c.OnImageLoad()

	assert.True(t, c.Loaded())
	assert.Equal(t, []emission{{X: 0, Y: 0, Scale: 1}}, rec.calls)
}

func TestOnDoubleTap_AnchorsTapPoint(t *testing.T) {
	c, rec := newLoaded(square(200, 800))

	c.OnDoubleTap(vec.Vec2{X: 50, Y: 50})

	want := emission{X: -150, Y: -150, Scale: 4, Animated: true}
	if diff := cmp.Diff(want, rec.last(t)); diff != "" {
		t.Errorf("unexpected emission (-want +got):\n%s", diff)
	}

	// The tapped image point is still under the finger
	tap := vec.Vec2{X: 50, Y: 50}
	before := Identity.ToImage(tap)
	after := c.GetTransform().ToImage(tap)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
}

func TestOnDoubleTap_Toggle(t *testing.T) {
	points := []vec.Vec2{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 199, Y: 3}, {X: 120.5, Y: 77.25}}

	for _, p := range points {
		c, rec := newLoaded(square(200, 800))

		c.OnDoubleTap(p)
		c.OnDoubleTap(p)

		assert.Equal(t, Identity, c.GetTransform(), "tap at %v", p)
		assert.Len(t, rec.calls, 2)
	}
}

func TestOnDoubleTap_FromAnyZoomedScaleGoesToMinimum(t *testing.T) {
	c, _ := newLoaded(square(200, 800))
	c.OnPinchStart(vec.Vec2{X: 100, Y: 100})
	c.OnPinchUpdate(1.1)
	c.OnPinchUpdate(1.2)
	require.Equal(t, 1.1, c.GetTransform().Scale)

	c.OnDoubleTap(vec.Vec2{X: 10, Y: 10})

	assert.Equal(t, Identity, c.GetTransform())
}

func TestOnDoubleTap_NothingToZoom(t *testing.T) {
	c, rec := newLoaded(square(800, 400))

	c.OnDoubleTap(vec.Vec2{X: 50, Y: 50})

	assert.Equal(t, Identity, c.GetTransform())
	assert.Empty(t, rec.calls)
	assert.False(t, c.animated, "an ignored tap leaves the emission mode alone")

	exact, rec := newLoaded(square(400, 400))
	require.Equal(t, 1.0, exact.ScaleLimit())
	exact.OnDoubleTap(vec.Vec2{X: 50, Y: 50})
	assert.Empty(t, rec.calls)
}

func TestPinch_ScaleUpAroundFocal(t *testing.T) {
	m := square(200, 800)
	m.ViewportOffset = vec.Vec2{X: 20, Y: 30}
	c, rec := newLoaded(m)

	c.OnPinchStart(vec.Vec2{X: 120, Y: 130})
	c.OnPinchUpdate(1.1)
	c.OnPinchUpdate(1.2)

	want := []emission{
		{X: -5, Y: -5, Scale: 1.05, Animated: true},
		{X: -10, Y: -10, Scale: 1.1, Animated: true},
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("unexpected emissions (-want +got):\n%s", diff)
	}

	c.OnPinchUpdate(1.15)

	got := c.GetTransform()
	assert.Equal(t, Transform{X: -5, Y: -5, Scale: 1.05}, got)
}

func TestPinch_ScaleDownSnapsToFloor(t *testing.T) {
	c, rec := newLoaded(square(200, 800))
	c.scale, c.x, c.y = 1.05, -7, -3
	c.pinchLastRatio = 1

	c.OnPinchStart(vec.Vec2{X: 150, Y: 150})
	c.OnPinchUpdate(0.9)

	assert.Equal(t, Identity, c.GetTransform())
	assert.Equal(t, emission{X: 0, Y: 0, Scale: 1, Animated: true}, rec.last(t))
}

func TestPinch_ScaleDownBelowOneIsNoOp(t *testing.T) {
	c, rec := newLoaded(square(200, 800))
	c.pinchLastRatio = 1

	c.OnPinchStart(vec.Vec2{X: 100, Y: 100})
	c.OnPinchUpdate(0.8)
	c.OnPinchUpdate(0.6)

	assert.Equal(t, Identity, c.GetTransform())
	assert.Empty(t, rec.calls)
}

func TestPinch_ScaleDownNeverRevealsTopLeft(t *testing.T) {
	c, _ := newLoaded(square(200, 800))
	c.scale, c.x, c.y = 2, -2, -50
	c.pinchLastRatio = 1

	c.OnPinchStart(vec.Vec2{X: 100, Y: 100})
	c.OnPinchUpdate(0.9)

	tr := c.GetTransform()
	assert.Equal(t, 1.95, tr.Scale)
	assert.Equal(t, 0.0, tr.X)
	assert.Equal(t, -45.0, tr.Y)
}

func TestPinch_HoldsAtScaleLimit(t *testing.T) {
	c, rec := newLoaded(square(200, 210))
	require.Equal(t, 1.05, c.ScaleLimit())

	c.OnPinchStart(vec.Vec2{X: 100, Y: 100})
	c.OnPinchUpdate(1.1)
	c.OnPinchUpdate(1.2)
	c.OnPinchUpdate(1.3)

	assert.Equal(t, 1.05, c.GetTransform().Scale)
	assert.Len(t, rec.calls, 1)
}

func TestPinch_ReachesLimitExactly(t *testing.T) {
	c, _ := newLoaded(square(200, 390))
	require.Equal(t, 1.95, c.ScaleLimit())

	c.OnPinchStart(vec.Vec2{X: 10, Y: 10})
	ratio := 1.0
	for i := 0; i < 40; i++ {
		ratio += 0.1
		c.OnPinchUpdate(ratio)
	}

	assert.Equal(t, 1.95, c.GetTransform().Scale)
}

func TestPinch_FirstSampleComparesWithZero(t *testing.T) {
	c, rec := newLoaded(square(200, 800))

	c.OnPinchStart(vec.Vec2{X: 100, Y: 100})
	c.OnPinchUpdate(0.5)

	assert.Equal(t, Transform{X: -5, Y: -5, Scale: 1.05}, c.GetTransform())
	assert.Len(t, rec.calls, 1)
}

func TestPinch_RatioCarriesAcrossPinches(t *testing.T) {
	c, rec := newLoaded(square(200, 800))

	c.OnPinchStart(vec.Vec2{X: 100, Y: 100})
	for _, r := range []float64{1.2, 1.4, 1.6, 1.8, 2.0} {
		c.OnPinchUpdate(r)
	}
	require.Equal(t, 1.25, c.GetTransform().Scale)

	// A new pinch reports a small ratio again; compared with 2.0 it shrinks
	c.OnPinchStart(vec.Vec2{X: 100, Y: 100})
	assert.Len(t, rec.calls, 5, "pinch start does not emit")
	c.OnPinchUpdate(1.05)

	assert.Equal(t, 1.2, c.GetTransform().Scale)
	assert.Len(t, rec.calls, 6)
}

func TestPinch_UnchangedRatioDoesNothing(t *testing.T) {
	c, rec := newLoaded(square(200, 800))

	c.OnPinchStart(vec.Vec2{X: 100, Y: 100})
	c.OnPinchUpdate(1.1)
	c.OnPinchUpdate(1.1)

	assert.Len(t, rec.calls, 1)
}

func TestPinch_FocalAtOriginPinsAxis(t *testing.T) {
	c, _ := newLoaded(square(200, 800))
	c.scale, c.x, c.y = 2, -30, -30

	c.OnPinchStart(vec.Vec2{X: 0, Y: 100})
	c.OnPinchUpdate(1.1)

	tr := c.GetTransform()
	assert.Equal(t, 0.0, tr.X)
	assert.Equal(t, -35.0, tr.Y)
}

func TestPinch_ScaleStaysWithinBounds(t *testing.T) {
	m := square(250, 1000)
	c, _ := newLoaded(m)
	rng := rand.New(rand.NewSource(42))
	limit := m.ScaleLimit()

	for g := 0; g < 30; g++ {
		c.OnPinchStart(vec.Vec2{X: rng.Float64() * 250, Y: rng.Float64() * 250})
		ratio := 1.0
		for i := 0; i < 40; i++ {
			ratio += rng.Float64()*0.4 - 0.2
			c.OnPinchUpdate(ratio)

			tr := c.GetTransform()
			require.GreaterOrEqual(t, tr.Scale, 1.0)
			require.LessOrEqual(t, tr.Scale, limit)
			require.LessOrEqual(t, tr.X, 0.0)
			require.LessOrEqual(t, tr.Y, 0.0)
		}
	}
}

func TestPanResetsAnimation(t *testing.T) {
	c, rec := newLoaded(square(200, 800))

	c.OnDoubleTap(vec.Vec2{X: 10, Y: 10})
	c.OnPan(3, 3)

	require.Len(t, rec.calls, 2)
	assert.True(t, rec.calls[0].Animated)
	assert.False(t, rec.calls[1].Animated)
}

func TestInstancesDoNotShareState(t *testing.T) {
	a, _ := newLoaded(square(200, 800))
	b, _ := newLoaded(square(200, 800))

	a.OnDoubleTap(vec.Vec2{X: 50, Y: 50})

	assert.Equal(t, 4.0, a.GetTransform().Scale)
	assert.Equal(t, Identity, b.GetTransform())
}

func TestSetDebugLog_PerController(t *testing.T) {
	var global, own []string
	SetDebugLog(func(args ...interface{}) { global = append(global, fmt.Sprint(args...)) })
	t.Cleanup(func() { SetDebugLog(nil) })

	a, _ := newLoaded(square(800, 400))
	b, _ := newLoaded(square(800, 400))
	b.SetDebugLog(func(args ...interface{}) { own = append(own, fmt.Sprint(args...)) })
	require.Len(t, global, 2, "both controllers start with the package hook")

	a.OnDoubleTap(vec.Vec2{})
	b.OnDoubleTap(vec.Vec2{})

	assert.Len(t, global, 3)
	assert.Len(t, own, 1)

	SetDebugLog(nil)
	a.OnDoubleTap(vec.Vec2{})
	assert.Len(t, global, 4, "existing controllers keep their hook")
}

func TestReset(t *testing.T) {
	c, rec := newLoaded(square(200, 800))
	c.OnDoubleTap(vec.Vec2{X: 50, Y: 50})

	c.Reset()

	assert.Equal(t, Identity, c.GetTransform())
	assert.Equal(t, emission{Scale: 1, Animated: true}, rec.last(t))
}

func TestMetricsReadOnEveryOperation(t *testing.T) {
	viewport := 200.0
	c := New(GestureConfig{}, MetricsFunc(func() Metrics {
		return square(viewport, 800)
	}))
	c.OnImageLoad()
	assert.Equal(t, 4.0, c.ScaleLimit())

	viewport = 400
	assert.Equal(t, 2.0, c.ScaleLimit())
}

func TestHandleAndRun(t *testing.T) {
	rec := &recorder{}
	c := New(GestureConfig{ScaleStep: 0.1}, StaticMetrics(square(200, 800)))
	c.OnTransformChange(rec.sink)

	src := Events(
		Pan{DeltaX: 10},
		ImageLoad{},
		PinchStart{Focal: vec.Vec2{X: 100, Y: 100}},
		Pinch{Scale: 1.2},
		Pinch{Scale: 1.4},
		DoubleTap{At: vec.Vec2{X: 1, Y: 1}},
		DoubleTap{At: vec.Vec2{X: 20, Y: 20}},
		ResetView{},
	)
	require.NoError(t, c.Run(context.Background(), src))

	want := []emission{
		{X: 0, Y: 0, Scale: 1},
		{X: -10, Y: -10, Scale: 1.1, Animated: true},
		{X: -20, Y: -20, Scale: 1.2, Animated: true},
		{X: 0, Y: 0, Scale: 1, Animated: true},
		{X: -60, Y: -60, Scale: 4, Animated: true},
		{X: 0, Y: 0, Scale: 1, Animated: true},
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("unexpected emissions (-want +got):\n%s", diff)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	c := New(GestureConfig{}, StaticMetrics(square(200, 800)))
	ch := make(chan Event)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, ChanSource(ch))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ChannelClosed(t *testing.T) {
	c := New(GestureConfig{}, StaticMetrics(square(200, 800)))
	ch := make(chan Event, 2)
	ch <- ImageLoad{}
	ch <- DoubleTap{At: vec.Vec2{X: 10, Y: 10}}
	close(ch)

	require.NoError(t, c.Run(context.Background(), ChanSource(ch)))
	assert.Equal(t, Transform{X: -30, Y: -30, Scale: 4}, c.GetTransform())
}
