package live

import "errors"

// MessageType represents the type of live protocol message
type MessageType uint8

const (
	// Client to server: one gesture
	FrameGesture MessageType = 0x01
	// Both directions: HELLO, PING, PONG
	FrameControl MessageType = 0x02
	// Client to server: layout metrics. The first one marks the image loaded.
	FrameMetrics MessageType = 0x03
	// Server to client: transform to apply
	FrameTransform MessageType = 0x04
)

// GestureKind identifies the gesture carried by a FrameGesture
type GestureKind uint8

const (
	GesturePan        GestureKind = 0x01
	GesturePinchStart GestureKind = 0x02
	GesturePinch      GestureKind = 0x03
	GestureDoubleTap  GestureKind = 0x04
	GestureImageLoad  GestureKind = 0x05
	GestureReset      GestureKind = 0x06
)

// Control messages
const (
	ControlHello = "HELLO"
	ControlPing  = "PING"
	ControlPong  = "PONG"
)

var (
	// ErrShortFrame is returned when a frame ends before all its fields
	ErrShortFrame = errors.New("live: frame too short")
	// ErrUnexpectedFrame is returned when a decoder is handed the wrong frame type
	ErrUnexpectedFrame = errors.New("live: unexpected frame type")
	// ErrUnknownGesture is returned for gesture kinds this version does not know
	ErrUnknownGesture = errors.New("live: unknown gesture kind")
)

// Control is a decoded control frame
type Control struct {
	Message string
	// Seq is the number of transforms the sender has seen; only set on HELLO
	Seq uint64
}
