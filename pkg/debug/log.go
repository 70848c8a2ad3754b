//go:build js && wasm
// +build js,wasm

package debug

import (
	"fmt"
	"strings"
	"syscall/js"

	"github.com/recera/pinchzoom/pkg/components/imagezoom"
	"github.com/recera/pinchzoom/pkg/zoom"
)

// EnableLogging routes the zoom and widget debug hooks to the browser console
func EnableLogging() {
	logFn := func(args ...interface{}) {
		// Hooks may pass Go values that js.ValueOf cannot convert
		js.Global().Get("console").Call("debug", strings.TrimSpace(fmt.Sprintln(args...)))
	}

	zoom.SetDebugLog(logFn)
	imagezoom.SetDebugLog(logFn)
}

// Log logs a message to the console
func Log(args ...interface{}) {
	js.Global().Get("console").Call("log", args...)
}

// Logf logs a formatted message to the console
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	js.Global().Get("console").Call("log", msg)
}
