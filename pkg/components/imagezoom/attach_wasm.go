//go:build js && wasm
// +build js,wasm

package imagezoom

import (
	"strconv"
	"syscall/js"

	"github.com/recera/pinchzoom/pkg/live"
	"github.com/recera/pinchzoom/pkg/zoom"
	"seehuhn.de/go/geom/vec"
)

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Widget binds one container element to a zoom controller (or to a live
// session) and renders the resulting transforms onto the zoom image.
type Widget struct {
	opts      Options
	container js.Value
	image     js.Value
	hammer    js.Value

	ctrl   *zoom.Controller
	client *live.Client
	pan    panTracker

	current   zoom.Transform
	loaded    bool
	destroyed bool

	funcs     []js.Func
	listeners []listener
}

var _ API = (*Widget)(nil)

type listener struct {
	target js.Value
	event  string
	fn     js.Func
}

// Attach turns container into a zoomable image. It returns nil if the
// container is not an element or has no zoom URL.
func Attach(container js.Value, opts *Options) *Widget {
	if container.IsNull() || container.IsUndefined() {
		return nil
	}
	o := opts.withDefaults()
	if o.URL == "" {
		if src := container.Call("getAttribute", AttrZoomSrc); !src.IsNull() {
			o.URL = src.String()
		}
	}
	if o.URL == "" {
		if debugLog != nil {
			debugLog("[ImageZoom] container has no zoom URL, skipping")
		}
		return nil
	}

	w := &Widget{
		opts:      o,
		container: container,
		image:     js.Global().Get("document").Call("createElement", "img"),
		current:   zoom.Identity,
	}

	if o.Live != "" {
		w.client = live.NewClient(o.Live)
		w.client.OnTransform(w.apply)
		w.client.Connect()
	} else {
		w.ctrl = zoom.New(o.gestureConfig(), zoom.MetricsFunc(w.metrics))
		w.ctrl.OnTransformChange(func(x, y, scale float64, animated bool) {
			w.apply(zoom.Transform{X: x, Y: y, Scale: scale}, animated)
		})
	}

	w.listen(w.image, "load", w.onLoad)
	w.listen(container, DestroyEvent, func(js.Value) { w.Destroy() })
	w.bindGestures()

	if o.lazy() {
		w.listen(container, "click", w.onClick)
	} else {
		w.load()
	}
	return w
}

func (w *Widget) listen(target js.Value, event string, handler func(ev js.Value)) {
	fn := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		var ev js.Value
		if len(args) > 0 {
			ev = args[0]
		}
		handler(ev)
		return nil
	})
	target.Call("addEventListener", event, fn)
	w.listeners = append(w.listeners, listener{target: target, event: event, fn: fn})
}

func (w *Widget) unlisten(event string) {
	kept := w.listeners[:0]
	for _, l := range w.listeners {
		if l.event == event {
			l.target.Call("removeEventListener", l.event, l.fn)
			l.fn.Release()
			continue
		}
		kept = append(kept, l)
	}
	w.listeners = kept
}

// bindGestures wires Hammer.js recognizers: double tap, pinch and a pan
// with no threshold.
func (w *Widget) bindGestures() {
	hammer := js.Global().Get("Hammer")
	if hammer.IsUndefined() {
		if debugLog != nil {
			debugLog("[ImageZoom] Hammer.js not found, gestures disabled")
		}
		return
	}

	w.hammer = hammer.Get("Manager").New(w.container)
	w.hammer.Call("add", []interface{}{
		hammer.Get("Tap").New(map[string]interface{}{"event": "doubletap", "taps": 2}),
		hammer.Get("Pinch").New(),
		hammer.Get("Pan").New(map[string]interface{}{"threshold": 0}),
	})

	w.on("doubletap", func(ev js.Value) {
		// Hammer reports client coordinates; the controller wants the tap
		// relative to the container.
		rect := w.container.Call("getBoundingClientRect")
		at := center(ev).Sub(vec.Vec2{X: rect.Get("left").Float(), Y: rect.Get("top").Float()})
		w.gesture(zoom.DoubleTap{At: at})
	})
	// Hammer reports the distance since panstart; the controller wants the
	// movement since the previous sample.
	w.on("panstart", func(js.Value) {
		w.pan.start()
	})
	w.on("pan", func(ev js.Value) {
		w.gesture(w.pan.step(ev.Get("deltaX").Float(), ev.Get("deltaY").Float()))
	})
	w.on("pinchstart", func(ev js.Value) {
		w.gesture(zoom.PinchStart{Focal: center(ev)})
	})
	w.on("pinch", func(ev js.Value) {
		w.gesture(zoom.Pinch{Scale: ev.Get("scale").Float()})
	})
}

func (w *Widget) on(event string, handler func(ev js.Value)) {
	fn := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		ev := args[0]
		if src := ev.Get("srcEvent"); !src.IsUndefined() {
			src.Call("preventDefault")
		}
		handler(ev)
		return nil
	})
	w.funcs = append(w.funcs, fn)
	w.hammer.Call("on", event, fn)
}

func center(ev js.Value) vec.Vec2 {
	c := ev.Get("center")
	return vec.Vec2{X: c.Get("x").Float(), Y: c.Get("y").Float()}
}

func (w *Widget) gesture(ev zoom.Event) {
	if w.destroyed {
		return
	}
	if w.client != nil {
		if err := w.client.SendGesture(ev); err != nil && debugLog != nil {
			debugLog("[ImageZoom] failed to send gesture:", err.Error())
		}
		return
	}
	w.ctrl.Handle(ev)
}

// metrics reads the live layout of the container and zoom image
func (w *Widget) metrics() zoom.Metrics {
	rect := w.container.Call("getBoundingClientRect")
	return zoom.Metrics{
		Viewport: zoom.ViewportMetrics{
			Width:  w.container.Get("clientWidth").Float(),
			Height: w.container.Get("clientHeight").Float(),
		},
		Image: zoom.ImageMetrics{
			NaturalWidth:  w.image.Get("naturalWidth").Float(),
			NaturalHeight: w.image.Get("naturalHeight").Float(),
		},
		Rendered: zoom.ViewportMetrics{
			Width:  w.image.Get("offsetWidth").Float(),
			Height: w.image.Get("offsetHeight").Float(),
		},
		ViewportOffset: vec.Vec2{X: rect.Get("left").Float(), Y: rect.Get("top").Float()},
	}
}

func (w *Widget) onClick(js.Value) {
	w.load()
	w.unlisten("click")
}

func (w *Widget) load() {
	if w.loaded || w.destroyed {
		return
	}
	w.image.Set("src", w.opts.URL)
}

func (w *Widget) onLoad(js.Value) {
	if w.destroyed {
		return
	}
	style := w.image.Get("style")
	for prop, value := range map[string]string{
		"opacity":         "1",
		"position":        "absolute",
		"top":             "0",
		"left":            "0",
		"width":           px(w.container.Get("clientWidth")),
		"height":          px(w.container.Get("clientHeight")),
		"border":          "none",
		"maxWidth":        "none",
		"maxHeight":       "none",
		"transformOrigin": "0 0",
		"transform":       zoom.Identity.CSS(),
		"transition":      Transition(true),
	} {
		style.Set(prop, value)
	}
	w.image.Call("setAttribute", "role", "presentation")
	w.container.Call("appendChild", w.image)
	w.container.Get("style").Set("overflow", "hidden")
	w.loaded = true

	if w.client != nil {
		w.client.SendMetrics(w.metrics())
		return
	}
	w.ctrl.OnImageLoad()
}

func px(v js.Value) string {
	return strconv.FormatFloat(v.Float(), 'f', -1, 64) + "px"
}

// apply writes a transform onto the zoom image
func (w *Widget) apply(t zoom.Transform, animated bool) {
	if w.destroyed {
		return
	}
	w.current = t
	style := w.image.Get("style")
	style.Set("transition", Transition(animated))
	style.Set("transform", t.CSS())
	if w.opts.OnTransform != nil {
		w.opts.OnTransform(t, animated)
	}
}

// Reset returns the image to the un-zoomed state
func (w *Widget) Reset() {
	w.gesture(zoom.ResetView{})
}

// Transform returns the last applied transform
func (w *Widget) Transform() zoom.Transform {
	return w.current
}

// Destroy removes listeners, gesture recognizers and the zoom image
func (w *Widget) Destroy() {
	if w.destroyed {
		return
	}
	w.destroyed = true

	if !w.hammer.IsUndefined() {
		w.hammer.Call("off", "doubletap panstart pan pinchstart pinch")
		w.hammer.Call("destroy")
	}
	for _, l := range w.listeners {
		l.target.Call("removeEventListener", l.event, l.fn)
		l.fn.Release()
	}
	w.listeners = nil
	for _, fn := range w.funcs {
		fn.Release()
	}
	w.funcs = nil

	if w.client != nil {
		w.client.Close()
	}
	w.image.Call("remove")
	if debugLog != nil {
		debugLog("[ImageZoom] destroyed")
	}
}
