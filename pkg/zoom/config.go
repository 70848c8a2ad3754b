package zoom

// DefaultScaleStep is the fraction of scale changed per pinch increment
const DefaultScaleStep = 0.05

// panDamping divides raw pan deltas so a drag moves the image more slowly
// than the finger.
const panDamping = 3

// GestureConfig configures a Controller
type GestureConfig struct {
	// ScaleStep is added to or removed from the scale on every pinch
	// increment (default 0.05). Must be > 0.
	ScaleStep float64
}

func (c GestureConfig) withDefaults() GestureConfig {
	if c.ScaleStep <= 0 {
		c.ScaleStep = DefaultScaleStep
	}
	return c
}
