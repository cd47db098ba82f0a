package input

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Event type bits.
const (
	TypeButton = 0x01
	TypeAxis   = 0x02
	TypeInit   = 0x80
)

// eventSize is the size of one kernel joystick event.
const eventSize = 8

// axisMax is the magnitude of a fully deflected axis.
const axisMax = 32767.0

// Event is one kernel joystick event.
type Event struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

// IsButton reports whether the event is a button change.
func (e Event) IsButton() bool { return e.Type&TypeButton != 0 }

// IsAxis reports whether the event is an axis change.
func (e Event) IsAxis() bool { return e.Type&TypeAxis != 0 }

// IsInit reports whether the event reports initial state on open.
func (e Event) IsInit() bool { return e.Type&TypeInit != 0 }

// ReadEvent reads one event from r.
func ReadEvent(r io.Reader) (Event, error) {
	var buf [eventSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Event{}, err
	}
	return Event{
		Time:   binary.LittleEndian.Uint32(buf[0:4]),
		Value:  int16(binary.LittleEndian.Uint16(buf[4:6])),
		Type:   buf[6],
		Number: buf[7],
	}, nil
}

// Bytes encodes the event in kernel layout.
func (e Event) Bytes() []byte {
	buf := make([]byte, eventSize)
	binary.LittleEndian.PutUint32(buf[0:4], e.Time)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(e.Value))
	buf[6] = e.Type
	buf[7] = e.Number
	return buf
}

// AxisName returns the name of a kernel axis code.
func AxisName(code uint8) string {
	if name, ok := axisNames[code]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", code)
}

// ButtonName returns the name of a kernel button code.
func ButtonName(code uint16) string {
	if name, ok := buttonNames[code]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%03x)", code)
}

var axisNames = map[uint8]string{
	0x00: "x",
	0x01: "y",
	0x02: "z",
	0x03: "rx",
	0x04: "ry",
	0x05: "rz",
	0x06: "throttle",
	0x07: "rudder",
	0x08: "wheel",
	0x09: "gas",
	0x0a: "brake",
	0x10: "hat0x",
	0x11: "hat0y",
	0x12: "hat1x",
	0x13: "hat1y",
	0x14: "hat2x",
	0x15: "hat2y",
	0x16: "hat3x",
	0x17: "hat3y",
	0x18: "pressure",
	0x19: "distance",
	0x1a: "tilt_x",
	0x1b: "tilt_y",
	0x1c: "tool_width",
	0x20: "volume",
	0x28: "misc",
}

// buttonNames follows the labels printed on the robot's gamepad rather than
// the kernel's BTN_* names for the 0x130 block.
var buttonNames = map[uint16]string{
	0x120: "trigger",
	0x121: "thumb",
	0x122: "thumb2",
	0x123: "top",
	0x124: "top2",
	0x125: "pinkie",
	0x126: "base",
	0x127: "base2",
	0x128: "base3",
	0x129: "base4",
	0x12a: "base5",
	0x12b: "base6",
	0x12f: "dead",
	0x130: "b1",
	0x131: "b2",
	0x132: "b3",
	0x133: "b4",
	0x134: "lb",
	0x135: "rb",
	0x136: "lt",
	0x137: "rt",
	0x138: "select",
	0x139: "start",
	0x13a: "ls",
	0x13b: "rs",
	0x13c: "mode",
	0x13d: "thumbl",
	0x13e: "thumbr",
	0x220: "dpad_up",
	0x221: "dpad_down",
	0x222: "dpad_left",
	0x223: "dpad_right",
	0x2c0: "dpad_left",
	0x2c1: "dpad_right",
	0x2c2: "dpad_up",
	0x2c3: "dpad_down",
}
