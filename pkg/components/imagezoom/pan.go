package imagezoom

import "github.com/recera/pinchzoom/pkg/zoom"

// panTracker turns the distance a pan has covered since it started, which
// is what Hammer.js reports, into the movement since the previous sample.
type panTracker struct {
	lastX, lastY float64
}

// start begins a new pan
func (p *panTracker) start() {
	p.lastX, p.lastY = 0, 0
}

// step converts one cumulative sample
func (p *panTracker) step(totalX, totalY float64) zoom.Pan {
	ev := zoom.Pan{DeltaX: totalX - p.lastX, DeltaY: totalY - p.lastY}
	p.lastX, p.lastY = totalX, totalY
	return ev
}
