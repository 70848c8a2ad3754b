package imagezoom

import "github.com/recera/pinchzoom/pkg/zoom"

// Options configures a zoom widget
type Options struct {
	// URL of the high resolution image. Falls back to the container's
	// data-zoom-src attribute.
	URL string
	// Alt text for the thumbnail
	Alt string
	// LazyLoad defers loading the high resolution image until the first
	// click on the container (default true)
	LazyLoad *bool
	// DeltaScale is the pinch scale step (default 0.05)
	DeltaScale float64
	// Thumbnail size hints written to the <img> tag, 0 to omit
	Width  int
	Height int
	// Live is a WebSocket URL of a server-driven session. When set the
	// widget forwards gestures to the server instead of running its own
	// controller.
	Live string

	// OnTransform is called after every applied transform (optional)
	OnTransform func(t zoom.Transform, animated bool)
}

// Bool returns a pointer to v, for Options.LazyLoad
func Bool(v bool) *bool {
	return &v
}

func (o *Options) withDefaults() Options {
	d := Options{
		LazyLoad:   Bool(true),
		DeltaScale: zoom.DefaultScaleStep,
	}
	if o == nil {
		return d
	}
	d.URL = o.URL
	d.Alt = o.Alt
	d.Width = o.Width
	d.Height = o.Height
	d.Live = o.Live
	d.OnTransform = o.OnTransform
	if o.LazyLoad != nil {
		d.LazyLoad = Bool(*o.LazyLoad)
	}
	if o.DeltaScale > 0 {
		d.DeltaScale = o.DeltaScale
	}
	return d
}

func (o Options) lazy() bool {
	return o.LazyLoad == nil || *o.LazyLoad
}

// gestureConfig maps widget options onto the controller configuration
func (o Options) gestureConfig() zoom.GestureConfig {
	return zoom.GestureConfig{ScaleStep: o.DeltaScale}
}
