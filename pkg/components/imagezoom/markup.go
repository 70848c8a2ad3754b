package imagezoom

import (
	"strconv"

	"github.com/recera/pinchzoom/pkg/renderer/html"
	"github.com/recera/pinchzoom/pkg/vdom"
)

// Data attributes read back by the client when attaching
const (
	AttrZoomSrc = "data-zoom-src"
	AttrLazy    = "data-zoom-lazy"
	AttrStep    = "data-zoom-step"
	AttrLive    = "data-zoom-live"
)

const containerStyle = "position:relative;overflow:hidden;touch-action:none"

// Markup builds the server rendered container holding the thumbnail. zoomSrc
// is only used when opts.URL is empty.
func Markup(thumbnailSrc, zoomSrc string, opts *Options) *vdom.Node {
	o := opts.withDefaults()
	if o.URL != "" {
		zoomSrc = o.URL
	}

	props := vdom.Props{
		"class":     "pinchzoom",
		"role":      "img",
		"style":     containerStyle,
		AttrZoomSrc: zoomSrc,
		AttrLazy:    strconv.FormatBool(o.lazy()),
		AttrStep:    strconv.FormatFloat(o.DeltaScale, 'f', -1, 64),
	}
	if o.Alt != "" {
		props["aria-label"] = o.Alt
	}
	if o.Live != "" {
		props[AttrLive] = o.Live
	}

	thumb := vdom.Props{
		"src":       thumbnailSrc,
		"alt":       o.Alt,
		"style":     "display:block;width:100%",
		"draggable": "false",
	}
	if o.Width > 0 {
		thumb["width"] = o.Width
	}
	if o.Height > 0 {
		thumb["height"] = o.Height
	}

	return vdom.Element("div", props, vdom.Element("img", thumb))
}

// Render returns the widget markup as HTML
func Render(thumbnailSrc, zoomSrc string, opts *Options) (string, error) {
	return html.RenderToString(Markup(thumbnailSrc, zoomSrc, opts))
}

// OptionsFromAttrs rebuilds widget options from the container's data
// attributes. get returns "" for missing attributes.
func OptionsFromAttrs(get func(name string) string) Options {
	var o Options
	o.URL = get(AttrZoomSrc)
	o.Live = get(AttrLive)
	o.Alt = get("aria-label")
	if v, err := strconv.ParseBool(get(AttrLazy)); err == nil {
		o.LazyLoad = Bool(v)
	}
	if v, err := strconv.ParseFloat(get(AttrStep), 64); err == nil && v > 0 {
		o.DeltaScale = v
	}
	return o.withDefaults()
}
