// Package zoom converts pan, pinch and double-tap gestures into a clamped
// translate + scale transform for a high resolution image shown inside a
// fixed-size viewport.
//
// A Controller knows nothing about the DOM or about gesture recognition. The
// host feeds it plain gesture values, supplies layout through a
// MetricsProvider and applies whatever it receives on the registered Sink.
package zoom

import (
	"math"

	"seehuhn.de/go/geom/vec"
)

// scalePrecision is the number of decimals kept when stepping the scale, so
// repeated increments land exactly on the rounded scale limit.
const scalePrecision = 6

// debugLog is set by platform-specific code and copied into each new
// controller
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function for controllers created
// afterwards
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Sink receives the transform after every state-changing operation.
// animated is false for pan samples and true for pinch and double-tap.
type Sink func(x, y, scale float64, animated bool)

// Controller owns the transform state of one zoomable image.
// It is not safe for concurrent use; hosts deliver gestures one at a time.
type Controller struct {
	cfg     GestureConfig
	metrics MetricsProvider
	sink    Sink
	log     func(args ...interface{})

	loaded   bool
	scale    float64
	x        float64
	y        float64
	animated bool

	// Frozen at pinch start so every step of one pinch pivots on the same point
	pinchFocal vec.Vec2
	// Last ratio reported by the gesture source. It starts at 0 and is kept
	// across pinches, so the first sample of a pinch is compared with the
	// last sample of the previous one.
	pinchLastRatio float64
}

// New creates a controller. The image counts as not loaded until
// OnImageLoad is called.
func New(cfg GestureConfig, metrics MetricsProvider) *Controller {
	return &Controller{
		cfg:     cfg.withDefaults(),
		metrics: metrics,
		scale:   1,
		log:     debugLog,
	}
}

// OnTransformChange registers the emission sink, replacing any previous one
func (c *Controller) OnTransformChange(fn Sink) {
	c.sink = fn
}

// SetDebugLog replaces the debug logging function of this controller only.
// nil disables logging.
func (c *Controller) SetDebugLog(fn func(args ...interface{})) {
	c.log = fn
}

// Config returns the effective gesture configuration
func (c *Controller) Config() GestureConfig {
	return c.cfg
}

// OnImageLoad marks the high resolution image as loaded and starts from the
// identity transform.
func (c *Controller) OnImageLoad() {
	c.loaded = true
	c.scale, c.x, c.y = 1, 0, 0
	c.animated = false
	if c.log != nil {
		c.log("[Zoom] image loaded, scale limit", c.ScaleLimit())
	}
	c.emit()
}

// Loaded reports whether OnImageLoad has been called
func (c *Controller) Loaded() bool {
	return c.loaded
}

// GetTransform returns the current transform
func (c *Controller) GetTransform() Transform {
	return Transform{X: c.x, Y: c.y, Scale: c.scale}
}

// ScaleLimit returns the maximum scale for the current metrics
func (c *Controller) ScaleLimit() float64 {
	return c.currentMetrics().ScaleLimit()
}

// PanLimits returns the most negative translation allowed at the current scale
func (c *Controller) PanLimits() (x, y float64) {
	return c.currentMetrics().PanLimits(c.scale)
}

// OnPan moves the image by a damped fraction of the reported pixel deltas,
// keeping the image edges inside the viewport.
func (c *Controller) OnPan(dx, dy float64) {
	if !c.loaded {
		return
	}

	minX, minY := c.currentMetrics().PanLimits(c.scale)
	c.x = clamp(c.x-dx/panDamping, minX, 0)
	c.y = clamp(c.y-dy/panDamping, minY, 0)
	c.animated = false
	c.emit()
}

// OnPinchStart freezes the pinch focal point (page coordinates) for the
// duration of the pinch and switches emission to animated mode.
func (c *Controller) OnPinchStart(focal vec.Vec2) {
	if !c.loaded {
		return
	}

	c.pinchFocal = focal
	c.animated = true
}

// OnPinchUpdate steps the scale up or down depending on whether the
// reported pinch ratio grew or shrank since the previous sample.
func (c *Controller) OnPinchUpdate(ratio float64) {
	if !c.loaded {
		return
	}

	last := c.pinchLastRatio
	c.pinchLastRatio = ratio

	switch {
	case ratio > last:
		c.scaleUp()
	case ratio < last:
		c.scaleDown()
	}
}

// OnDoubleTap toggles between the minimum and maximum scale. The tap point is
// relative to the viewport and stays under the finger when zooming in.
func (c *Controller) OnDoubleTap(at vec.Vec2) {
	if !c.loaded {
		return
	}

	if c.scale == 1 {
		// Nothing to zoom into; scale stays >= 1
		limit := c.ScaleLimit()
		if limit <= 1 {
			if c.log != nil {
				c.log("[Zoom] double tap ignored, image not larger than viewport")
			}
			return
		}
		c.animated = true
		c.x = -(at.X * (limit - c.scale))
		c.y = -(at.Y * (limit - c.scale))
		c.scale = limit
	} else {
		c.animated = true
		c.scale, c.x, c.y = 1, 0, 0
	}
	c.emit()
}

// Reset returns to the un-zoomed, un-panned state
func (c *Controller) Reset() {
	if !c.loaded {
		return
	}

	c.scale, c.x, c.y = 1, 0, 0
	c.animated = true
	c.emit()
}

func (c *Controller) scaleUp() {
	m := c.currentMetrics()
	step := c.cfg.ScaleStep
	target := roundTo(c.scale+step, scalePrecision)

	// Hold at the edge rather than snapping to the limit
	if target > m.ScaleLimit() {
		if c.log != nil {
			c.log("[Zoom] scale up held at limit", m.ScaleLimit())
		}
		return
	}

	f := c.focal(m)
	c.x = growOffset(f.X, step, c.x)
	c.y = growOffset(f.Y, step, c.y)
	c.scale = target
	c.emit()
}

func (c *Controller) scaleDown() {
	if c.scale <= 1 {
		return
	}

	m := c.currentMetrics()
	step := c.cfg.ScaleStep
	target := roundTo(c.scale-step, scalePrecision)

	if target <= 1 {
		c.scale, c.x, c.y = 1, 0, 0
		c.emit()
		return
	}

	f := c.focal(m)
	c.x = shrinkOffset(f.X, step, c.x)
	c.y = shrinkOffset(f.Y, step, c.y)
	c.scale = target
	c.emit()
}

// focal returns the frozen pinch point relative to the viewport's top-left corner
func (c *Controller) focal(m Metrics) vec.Vec2 {
	return c.pinchFocal.Sub(m.ViewportOffset)
}

// growOffset shifts the translation so the focal point stays put while the
// scale grows by step. A non-negative offset resets the axis to 0.
func growOffset(focal, step, translate float64) float64 {
	offset := -(focal * step)
	if offset < 0 {
		return offset + translate
	}
	return 0
}

// shrinkOffset is the inverse of growOffset; the result never goes positive
func shrinkOffset(focal, step, translate float64) float64 {
	return math.Min(focal*step+math.Min(translate, 0), 0)
}

func (c *Controller) currentMetrics() Metrics {
	if c.metrics == nil {
		return Metrics{}
	}
	return c.metrics.Metrics()
}

func (c *Controller) emit() {
	if c.sink == nil {
		return
	}
	c.sink(c.x, c.y, c.scale, c.animated)
}

func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
