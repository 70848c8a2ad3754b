//go:build js && wasm
// +build js,wasm

package main

import (
	"syscall/js"

	"github.com/recera/pinchzoom/pkg/components/imagezoom"
	"github.com/recera/pinchzoom/pkg/debug"
)

var (
	document js.Value
	window   js.Value
	console  js.Value
)

func main() {
	document = js.Global().Get("document")
	window = js.Global().Get("window")
	console = js.Global().Get("console")

	console.Call("log", "🚀 pinchzoom WASM client starting...")

	if debugEnabled() {
		debug.EnableLogging()
	}

	if document.Get("readyState").String() != "loading" {
		onReady()
	} else {
		document.Call("addEventListener", "DOMContentLoaded", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			onReady()
			return nil
		}))
	}

	// Keep the WASM runtime alive
	select {}
}

// debugEnabled reports whether the page was opened with ?debug=1
func debugEnabled() bool {
	params := js.Global().Get("URLSearchParams").New(window.Get("location").Get("search"))
	return params.Call("get", "debug").String() == "1"
}

func onReady() {
	containers := document.Call("querySelectorAll", "["+imagezoom.AttrZoomSrc+"]")
	n := containers.Get("length").Int()

	attached := 0
	for i := 0; i < n; i++ {
		el := containers.Index(i)
		opts := imagezoom.OptionsFromAttrs(func(name string) string {
			v := el.Call("getAttribute", name)
			if v.IsNull() {
				return ""
			}
			return v.String()
		})
		if imagezoom.Attach(el, &opts) != nil {
			attached++
		}
	}

	debug.Logf("✅ pinchzoom attached %d of %d widgets", attached, n)
}
