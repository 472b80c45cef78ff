package live

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/recera/netgraph/pkg/renderer/html"
	"github.com/recera/netgraph/pkg/vdom"
)

// maxString bounds decoded string lengths
const maxString = 16 << 20

// Encoder handles encoding of live protocol messages
type Encoder struct {
	w io.Writer
}

// NewEncoder creates a new encoder
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteUvarint writes an unsigned varint
func (e *Encoder) WriteUvarint(v uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, v)
	_, err := e.w.Write(buf[:n])
	return err
}

// WriteString writes a length-prefixed string
func (e *Encoder) WriteString(s string) error {
	if err := e.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, s)
	return err
}

// WriteBytes writes raw bytes
func (e *Encoder) WriteBytes(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

// WriteFloat32 writes a little-endian IEEE 754 float
func (e *Encoder) WriteFloat32(f float32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(f))
	return e.WriteBytes(tmp[:])
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
		buf: make([]byte, 1024),
	}
}

// ReadUvarint reads an unsigned varint
func (d *Decoder) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(d)
}

// ReadByte implements io.ByteReader
func (d *Decoder) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadString reads a length-prefixed string
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > maxString {
		return "", fmt.Errorf("string length %d exceeds limit", length)
	}

	if length > uint64(len(d.buf)) {
		d.buf = make([]byte, length)
	}

	n, err := io.ReadFull(d.r, d.buf[:length])
	if err != nil {
		return "", err
	}

	return string(d.buf[:n]), nil
}

// ReadFloat32 reads a little-endian IEEE 754 float
func (d *Decoder) ReadFloat32() (float32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(d.r, tmp[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(tmp[:])), nil
}

// EncodeEvent encodes an event to binary format
func EncodeEvent(evt Event) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	enc.WriteBytes([]byte{byte(FrameEvent), byte(evt.Type)})

	switch evt.Type {
	case EventScroll:
		enc.WriteFloat32(evt.Scroll)
	case EventReduceMotion:
		var b byte
		if evt.On {
			b = 1
		}
		enc.WriteBytes([]byte{b})
	case EventPointer:
		enc.WriteFloat32(evt.X)
		enc.WriteFloat32(evt.Y)
	case EventSurfaceLost, EventRenderError:
		enc.WriteString(evt.Message)
	}

	return buf.Bytes()
}

// DecodeEvent decodes an event from binary format
func DecodeEvent(data []byte) (*Event, error) {
	if len(data) < 2 {
		return nil, errors.New("event data too short")
	}

	// Check frame type
	if data[0] != byte(FrameEvent) {
		return nil, errors.New("not an event frame")
	}

	evt := &Event{Type: EventType(data[1])}
	dec := NewDecoder(bytes.NewReader(data[2:]))

	var err error
	switch evt.Type {
	case EventScroll:
		evt.Scroll, err = dec.ReadFloat32()
	case EventReduceMotion:
		var b byte
		b, err = dec.ReadByte()
		evt.On = b != 0
	case EventPointer:
		if evt.X, err = dec.ReadFloat32(); err == nil {
			evt.Y, err = dec.ReadFloat32()
		}
	case EventSurfaceLost, EventRenderError:
		evt.Message, err = dec.ReadString()
	case EventSurfaceRestored:
	default:
		return nil, fmt.Errorf("unknown event type 0x%02x", data[1])
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", evt.Type, err)
	}

	return evt, nil
}

// EncodeControl encodes a control frame carrying a message name and string
// arguments
func EncodeControl(msgType string, args ...string) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	enc.WriteBytes([]byte{byte(FrameControl)})
	enc.WriteString(msgType)
	for _, a := range args {
		enc.WriteString(a)
	}
	return buf.Bytes()
}

// EncodeHello encodes the server greeting
func EncodeHello(sessionID string, seq uint64) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	enc.WriteBytes([]byte{byte(FrameControl)})
	enc.WriteString(ControlHello)
	enc.WriteString(sessionID)
	enc.WriteUvarint(seq)
	return buf.Bytes()
}

// EncodeMount encodes a full replacement of the surface markup
func EncodeMount(mode string, root *vdom.VNode) ([]byte, error) {
	markup, err := html.RenderToString(root)
	if err != nil {
		return nil, fmt.Errorf("render mount: %w", err)
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	enc.WriteBytes([]byte{byte(FrameMount)})
	enc.WriteString(mode)
	enc.WriteString(markup)
	return buf.Bytes(), nil
}

// EncodePatches encodes patches to binary format
func EncodePatches(patches []vdom.Patch) ([]byte, error) {
	var buf bytes.Buffer
	encoder := NewEncoder(&buf)

	// Write frame type
	encoder.WriteBytes([]byte{byte(FramePatches)})

	// Write patch count
	encoder.WriteUvarint(uint64(len(patches)))

	// Write each patch
	for _, patch := range patches {
		// Write opcode
		encoder.WriteBytes([]byte{byte(patch.Op)})
		encoder.WriteUvarint(uint64(patch.NodeID))

		switch patch.Op {
		case vdom.OpReplaceText:
			encoder.WriteString(patch.Value)

		case vdom.OpSetAttribute:
			encoder.WriteString(patch.Key)
			encoder.WriteString(patch.Value)

		case vdom.OpRemoveAttribute:
			encoder.WriteString(patch.Key)

		case vdom.OpReplaceNode:
			markup, err := html.RenderToString(patch.Node)
			if err != nil {
				return nil, fmt.Errorf("render replacement for node %d: %w", patch.NodeID, err)
			}
			encoder.WriteString(markup)

		default:
			return nil, fmt.Errorf("unsupported patch op 0x%02x", uint8(patch.Op))
		}
	}

	return buf.Bytes(), nil
}

// DecodeServerFrame decodes a frame sent by the server
func DecodeServerFrame(data []byte) (*ServerFrame, error) {
	if len(data) == 0 {
		return nil, errors.New("empty frame")
	}
	f := &ServerFrame{Type: MessageType(data[0])}
	dec := NewDecoder(bytes.NewReader(data[1:]))

	var err error
	switch f.Type {
	case FrameControl:
		if f.Control, err = dec.ReadString(); err != nil {
			return nil, err
		}
		switch f.Control {
		case ControlHello:
			if f.Session, err = dec.ReadString(); err == nil {
				f.Seq, err = dec.ReadUvarint()
			}
		case ControlState:
			f.State, err = dec.ReadString()
		}

	case FrameMount:
		if f.Mode, err = dec.ReadString(); err == nil {
			f.Markup, err = dec.ReadString()
		}

	case FramePatches:
		var count uint64
		if count, err = dec.ReadUvarint(); err != nil {
			return nil, err
		}
		f.Patches = make([]WirePatch, 0, min(count, 4096))
		for i := uint64(0); i < count && err == nil; i++ {
			var p WirePatch
			p, err = decodePatch(dec)
			f.Patches = append(f.Patches, p)
		}

	default:
		return nil, fmt.Errorf("unknown frame type 0x%02x", data[0])
	}
	if err != nil {
		return nil, fmt.Errorf("decode frame 0x%02x: %w", data[0], err)
	}
	return f, nil
}

func decodePatch(dec *Decoder) (WirePatch, error) {
	var p WirePatch
	op, err := dec.ReadByte()
	if err != nil {
		return p, err
	}
	p.Op = op
	id, err := dec.ReadUvarint()
	if err != nil {
		return p, err
	}
	p.NodeID = uint32(id)

	switch vdom.PatchOp(op) {
	case vdom.OpReplaceText:
		p.Value, err = dec.ReadString()
	case vdom.OpSetAttribute:
		if p.Key, err = dec.ReadString(); err == nil {
			p.Value, err = dec.ReadString()
		}
	case vdom.OpRemoveAttribute:
		p.Key, err = dec.ReadString()
	case vdom.OpReplaceNode:
		p.Markup, err = dec.ReadString()
	default:
		err = fmt.Errorf("unknown patch op 0x%02x", op)
	}
	return p, err
}
