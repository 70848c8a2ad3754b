package live

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/recera/pinchzoom/pkg/zoom"
	"seehuhn.de/go/geom/vec"
)

// Encoder handles encoding of live protocol messages
type Encoder struct {
	w   io.Writer
	err error
}

// NewEncoder creates a new encoder
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Err returns the first write error, if any
func (e *Encoder) Err() error {
	return e.err
}

func (e *Encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

// WriteByte writes a single byte
func (e *Encoder) WriteByte(b byte) error {
	e.write([]byte{b})
	return e.err
}

// WriteUvarint writes an unsigned varint
func (e *Encoder) WriteUvarint(v uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, v)
	e.write(buf[:n])
	return e.err
}

// WriteString writes a length-prefixed string
func (e *Encoder) WriteString(s string) error {
	if err := e.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	e.write([]byte(s))
	return e.err
}

// WriteFloat64 writes an IEEE 754 double in little-endian order
func (e *Encoder) WriteFloat64(v float64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	e.write(buf[:])
	return e.err
}

// Decoder handles decoding of live protocol messages
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder creates a new decoder
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 64),
	}
}

// ReadByte implements io.ByteReader
func (d *Decoder) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, short(err)
	}
	return b[0], nil
}

// ReadUvarint reads an unsigned varint
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, err := binary.ReadUvarint(d)
	if err != nil {
		return 0, short(err)
	}
	return v, nil
}

// ReadString reads a length-prefixed string
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > 1<<16 {
		return "", fmt.Errorf("string length %d too large", length)
	}

	if length > uint64(len(d.buf)) {
		d.buf = make([]byte, length)
	}
	if _, err := io.ReadFull(d.r, d.buf[:length]); err != nil {
		return "", short(err)
	}
	return string(d.buf[:length]), nil
}

// ReadFloat64 reads a little-endian IEEE 754 double
func (d *Decoder) ReadFloat64() (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, short(err)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

func (d *Decoder) readFloats(dst ...*float64) error {
	for _, p := range dst {
		v, err := d.ReadFloat64()
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

func short(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrShortFrame
	}
	return err
}

// frameDecoder checks the frame type byte and returns a decoder for the body
func frameDecoder(data []byte, want MessageType) (*Decoder, error) {
	if len(data) == 0 {
		return nil, ErrShortFrame
	}
	if MessageType(data[0]) != want {
		return nil, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrUnexpectedFrame, data[0], byte(want))
	}
	return NewDecoder(bytes.NewReader(data[1:])), nil
}

// EncodeGesture encodes a gesture event to binary format
func EncodeGesture(ev zoom.Event) ([]byte, error) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.WriteByte(byte(FrameGesture))

	switch g := ev.(type) {
	case zoom.Pan:
		e.WriteByte(byte(GesturePan))
		e.WriteFloat64(g.DeltaX)
		e.WriteFloat64(g.DeltaY)
	case zoom.PinchStart:
		e.WriteByte(byte(GesturePinchStart))
		e.WriteFloat64(g.Focal.X)
		e.WriteFloat64(g.Focal.Y)
	case zoom.Pinch:
		e.WriteByte(byte(GesturePinch))
		e.WriteFloat64(g.Scale)
	case zoom.DoubleTap:
		e.WriteByte(byte(GestureDoubleTap))
		e.WriteFloat64(g.At.X)
		e.WriteFloat64(g.At.Y)
	case zoom.ImageLoad:
		e.WriteByte(byte(GestureImageLoad))
	case zoom.ResetView:
		e.WriteByte(byte(GestureReset))
	default:
		return nil, fmt.Errorf("failed to encode gesture %T: %w", ev, ErrUnknownGesture)
	}

	if err := e.Err(); err != nil {
		return nil, fmt.Errorf("failed to encode gesture: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeGesture decodes a gesture frame
func DecodeGesture(data []byte) (zoom.Event, error) {
	d, err := frameDecoder(data, FrameGesture)
	if err != nil {
		return nil, err
	}
	kind, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	var a, b float64
	switch GestureKind(kind) {
	case GesturePan:
		if err := d.readFloats(&a, &b); err != nil {
			return nil, err
		}
		return zoom.Pan{DeltaX: a, DeltaY: b}, nil
	case GesturePinchStart:
		if err := d.readFloats(&a, &b); err != nil {
			return nil, err
		}
		return zoom.PinchStart{Focal: vec.Vec2{X: a, Y: b}}, nil
	case GesturePinch:
		if err := d.readFloats(&a); err != nil {
			return nil, err
		}
		return zoom.Pinch{Scale: a}, nil
	case GestureDoubleTap:
		if err := d.readFloats(&a, &b); err != nil {
			return nil, err
		}
		return zoom.DoubleTap{At: vec.Vec2{X: a, Y: b}}, nil
	case GestureImageLoad:
		return zoom.ImageLoad{}, nil
	case GestureReset:
		return zoom.ResetView{}, nil
	}
	return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownGesture, kind)
}

// EncodeMetrics encodes layout metrics to binary format
func EncodeMetrics(m zoom.Metrics) []byte {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.WriteByte(byte(FrameMetrics))
	for _, v := range []float64{
		m.Viewport.Width, m.Viewport.Height,
		m.Image.NaturalWidth, m.Image.NaturalHeight,
		m.Rendered.Width, m.Rendered.Height,
		m.ViewportOffset.X, m.ViewportOffset.Y,
	} {
		e.WriteFloat64(v)
	}
	return buf.Bytes()
}

// DecodeMetrics decodes a metrics frame
func DecodeMetrics(data []byte) (zoom.Metrics, error) {
	var m zoom.Metrics
	d, err := frameDecoder(data, FrameMetrics)
	if err != nil {
		return m, err
	}
	err = d.readFloats(
		&m.Viewport.Width, &m.Viewport.Height,
		&m.Image.NaturalWidth, &m.Image.NaturalHeight,
		&m.Rendered.Width, &m.Rendered.Height,
		&m.ViewportOffset.X, &m.ViewportOffset.Y,
	)
	return m, err
}

// EncodeTransform encodes a transform emission to binary format
func EncodeTransform(seq uint64, t zoom.Transform, animated bool) []byte {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.WriteByte(byte(FrameTransform))
	e.WriteUvarint(seq)
	e.WriteFloat64(t.X)
	e.WriteFloat64(t.Y)
	e.WriteFloat64(t.Scale)
	if animated {
		e.WriteByte(1)
	} else {
		e.WriteByte(0)
	}
	return buf.Bytes()
}

// DecodeTransform decodes a transform frame
func DecodeTransform(data []byte) (seq uint64, t zoom.Transform, animated bool, err error) {
	d, err := frameDecoder(data, FrameTransform)
	if err != nil {
		return 0, t, false, err
	}
	if seq, err = d.ReadUvarint(); err != nil {
		return 0, t, false, err
	}
	if err = d.readFloats(&t.X, &t.Y, &t.Scale); err != nil {
		return 0, t, false, err
	}
	flag, err := d.ReadByte()
	if err != nil {
		return 0, t, false, err
	}
	return seq, t, flag != 0, nil
}

// EncodeControl encodes a control message. HELLO carries seq.
func EncodeControl(c Control) []byte {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.WriteByte(byte(FrameControl))
	e.WriteString(c.Message)
	if c.Message == ControlHello {
		e.WriteUvarint(c.Seq)
	}
	return buf.Bytes()
}

// DecodeControl decodes a control frame
func DecodeControl(data []byte) (Control, error) {
	var c Control
	d, err := frameDecoder(data, FrameControl)
	if err != nil {
		return c, err
	}
	if c.Message, err = d.ReadString(); err != nil {
		return c, err
	}
	if c.Message == ControlHello {
		if c.Seq, err = d.ReadUvarint(); err != nil {
			return c, err
		}
	}
	return c, nil
}
