package zoom

import (
	"math"
	"strconv"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// Transform is a translation followed by a uniform scale with the origin at
// the top-left corner of the image.
type Transform struct {
	X     float64
	Y     float64
	Scale float64
}

// Identity is the un-zoomed, un-panned transform
var Identity = Transform{Scale: 1}

// CSS formats the transform for the CSS transform property.
// Translations are rounded to whole pixels.
func (t Transform) CSS() string {
	return "translate(" + formatPx(t.X) + "," + formatPx(t.Y) + ") scale(" +
		strconv.FormatFloat(t.Scale, 'f', -1, 64) + ")"
}

func formatPx(v float64) string {
	r := math.Round(v)
	if r == 0 {
		// avoid "-0px"
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64) + "px"
}

// Matrix returns the affine map from image space to viewport space
func (t Transform) Matrix() matrix.Matrix {
	return matrix.Matrix{t.Scale, 0, 0, t.Scale, t.X, t.Y}
}

// ToViewport maps a point in unscaled image space to viewport space
func (t Transform) ToViewport(p vec.Vec2) vec.Vec2 {
	x, y := t.Matrix().Apply(p.X, p.Y)
	return vec.Vec2{X: x, Y: y}
}

// ToImage maps a viewport point back to unscaled image space
func (t Transform) ToImage(p vec.Vec2) vec.Vec2 {
	if t.Scale == 0 {
		return p
	}
	x, y := t.Matrix().Inv().Apply(p.X, p.Y)
	return vec.Vec2{X: x, Y: y}
}
