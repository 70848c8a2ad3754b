package desktop

import (
	"time"

	"github.com/recera/pinchzoom/pkg/zoom"
)

// AnimationDuration matches the browser widget's "all 1s" transition
const AnimationDuration = time.Second

// Tween eases the displayed transform toward the controller's latest one.
// Pan updates are applied at once; animated updates ease over
// AnimationDuration.
type Tween struct {
	from  zoom.Transform
	to    zoom.Transform
	start time.Time
	dur   time.Duration
}

// NewTween starts at the identity transform
func NewTween() *Tween {
	return &Tween{from: zoom.Identity, to: zoom.Identity}
}

// Set retargets the tween from whatever is displayed at now
func (t *Tween) Set(target zoom.Transform, animated bool, now time.Time) {
	t.from = t.At(now)
	t.to = target
	t.start = now
	t.dur = 0
	if animated {
		t.dur = AnimationDuration
	}
}

// Target returns the transform the tween is heading to
func (t *Tween) Target() zoom.Transform {
	return t.to
}

// At returns the transform to display at now
func (t *Tween) At(now time.Time) zoom.Transform {
	elapsed := now.Sub(t.start)
	if t.dur <= 0 || elapsed >= t.dur {
		return t.to
	}
	if elapsed <= 0 {
		return t.from
	}
	p := float64(elapsed) / float64(t.dur)
	p = p * p * (3 - 2*p)
	return zoom.Transform{
		X:     lerp(t.from.X, t.to.X, p),
		Y:     lerp(t.from.Y, t.to.Y, p),
		Scale: lerp(t.from.Scale, t.to.Scale, p),
	}
}

func lerp(a, b, p float64) float64 {
	return a + (b-a)*p
}
