//go:build js && wasm
// +build js,wasm

package live

import (
	"log"
	"syscall/js"

	"github.com/recera/pinchzoom/pkg/zoom"
)

// Client connects a browser widget to a server-driven zoom session
type Client struct {
	ws          js.Value
	url         string
	open        bool
	pending     [][]byte
	lastSeq     uint64
	funcs       []js.Func
	onTransform func(t zoom.Transform, animated bool)
}

// NewClient creates a new live protocol client
func NewClient(url string) *Client {
	return &Client{url: url}
}

// OnTransform sets the handler for transforms pushed by the server
func (c *Client) OnTransform(handler func(t zoom.Transform, animated bool)) {
	c.onTransform = handler
}

// Connect opens the WebSocket. Frames sent before the socket opens are queued.
func (c *Client) Connect() {
	c.ws = js.Global().Get("WebSocket").New(c.url)
	c.ws.Set("binaryType", "arraybuffer")

	c.ws.Set("onopen", c.fn(func(args []js.Value) {
		log.Println("[Live Client] Connected")
		c.open = true
		c.write(EncodeControl(Control{Message: ControlHello, Seq: c.lastSeq}))
		for _, frame := range c.pending {
			c.write(frame)
		}
		c.pending = nil
	}))

	c.ws.Set("onmessage", c.fn(func(args []js.Value) {
		buffer := js.Global().Get("Uint8Array").New(args[0].Get("data"))
		data := make([]byte, buffer.Get("length").Int())
		js.CopyBytesToGo(data, buffer)
		c.handleFrame(data)
	}))

	c.ws.Set("onerror", c.fn(func(args []js.Value) {
		log.Println("[Live Client] WebSocket error")
	}))

	c.ws.Set("onclose", c.fn(func(args []js.Value) {
		log.Println("[Live Client] Disconnected")
		c.open = false
	}))
}

func (c *Client) fn(handler func(args []js.Value)) js.Func {
	f := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		handler(args)
		return nil
	})
	c.funcs = append(c.funcs, f)
	return f
}

func (c *Client) handleFrame(data []byte) {
	if len(data) == 0 {
		return
	}
	switch MessageType(data[0]) {
	case FrameTransform:
		seq, t, animated, err := DecodeTransform(data)
		if err != nil {
			log.Printf("[Live Client] Failed to decode transform: %v", err)
			return
		}
		c.lastSeq = seq
		if c.onTransform != nil {
			c.onTransform(t, animated)
		}
	case FrameControl:
		ctl, err := DecodeControl(data)
		if err != nil {
			log.Printf("[Live Client] Failed to decode control message: %v", err)
			return
		}
		if ctl.Message == ControlPing {
			c.send(EncodeControl(Control{Message: ControlPong}))
		}
	}
}

// SendGesture forwards a gesture to the session
func (c *Client) SendGesture(ev zoom.Event) error {
	data, err := EncodeGesture(ev)
	if err != nil {
		return err
	}
	c.send(data)
	return nil
}

// SendMetrics reports the current layout to the session
func (c *Client) SendMetrics(m zoom.Metrics) {
	c.send(EncodeMetrics(m))
}

func (c *Client) send(data []byte) {
	if !c.open {
		c.pending = append(c.pending, data)
		return
	}
	c.write(data)
}

func (c *Client) write(data []byte) {
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	c.ws.Call("send", arr)
}

// Close closes the connection and releases its callbacks
func (c *Client) Close() {
	if !c.ws.IsNull() && !c.ws.IsUndefined() {
		for _, name := range []string{"onopen", "onmessage", "onerror", "onclose"} {
			c.ws.Set(name, js.Null())
		}
		c.ws.Call("close")
	}
	for _, f := range c.funcs {
		f.Release()
	}
	c.funcs = nil
	c.open = false
}
