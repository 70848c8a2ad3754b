package imagezoom

import "github.com/recera/pinchzoom/pkg/zoom"

// DestroyEvent is the DOM event that tears a widget down when dispatched on
// its container.
const DestroyEvent = "zoom.destroy"

// API controls an attached widget
type API interface {
	Reset()
	Transform() zoom.Transform
	Destroy()
}

// Note: Widget implements API in WASM builds only

// Transition returns the CSS transition for an emission. Pan samples are
// applied immediately so the image tracks the finger.
func Transition(animated bool) string {
	if animated {
		return "all 1s"
	}
	return "all 0s"
}
