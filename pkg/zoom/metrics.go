package zoom

import (
	"math"

	"seehuhn.de/go/geom/vec"
)

// ViewportMetrics is the rendered size of the visible container
type ViewportMetrics struct {
	Width  float64
	Height float64
}

// ImageMetrics holds the intrinsic pixel size of the high resolution image
type ImageMetrics struct {
	NaturalWidth  float64
	NaturalHeight float64
}

// Metrics is everything the controller needs to know about layout.
// Rendered is the layout size of the zoom image at scale 1; when zero the
// viewport size is used, since the widget stretches the image to its container.
type Metrics struct {
	Viewport       ViewportMetrics
	Image          ImageMetrics
	Rendered       ViewportMetrics
	ViewportOffset vec.Vec2
}

// MetricsProvider supplies layout metrics on demand
type MetricsProvider interface {
	Metrics() Metrics
}

// MetricsFunc adapts a plain function to MetricsProvider
type MetricsFunc func() Metrics

// Metrics calls f()
func (f MetricsFunc) Metrics() Metrics {
	return f()
}

// StaticMetrics is a MetricsProvider that always returns the same values
type StaticMetrics Metrics

// Metrics returns the stored metrics
func (m StaticMetrics) Metrics() Metrics {
	return Metrics(m)
}

// renderedSize returns the base layout size of the zoom image
func (m Metrics) renderedSize() ViewportMetrics {
	if m.Rendered.Width > 0 && m.Rendered.Height > 0 {
		return m.Rendered
	}
	return m.Viewport
}

// valid reports whether the metrics can produce finite limits
func (m Metrics) valid() bool {
	return positive(m.Viewport.Width) && positive(m.Viewport.Height) &&
		positive(m.Image.NaturalWidth) && positive(m.Image.NaturalHeight)
}

// ScaleLimit is the scale at which the image reaches its natural resolution on
// the more constrained axis, rounded to two decimals.
// Degenerate metrics yield 1, which disables zooming.
func (m Metrics) ScaleLimit() float64 {
	if !m.valid() {
		return 1
	}
	limit := math.Min(m.Image.NaturalWidth/m.Viewport.Width, m.Image.NaturalHeight/m.Viewport.Height)
	return roundTo(limit, 2)
}

// PanLimits returns the most negative translation allowed on each axis at the
// given scale. An axis where the scaled image fits in the viewport is pinned at 0.
func (m Metrics) PanLimits(scale float64) (x, y float64) {
	r := m.renderedSize()
	return panLimit(r.Width, scale, m.Viewport.Width), panLimit(r.Height, scale, m.Viewport.Height)
}

func panLimit(rendered, scale, viewport float64) float64 {
	overflow := rendered*scale - viewport
	if overflow <= 0 || math.IsNaN(overflow) || math.IsInf(overflow, 0) {
		return 0
	}
	return -overflow
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// roundTo rounds half away from zero to the given number of decimals
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
