// Package input reads a Linux joystick and delivers named button and axis
// events to registered callbacks.
//
// The kernel joystick interface (/dev/input/jsN) produces 8-byte events:
//
//	uint32 time    event timestamp in milliseconds
//	int16  value   axis position or button state
//	uint8  type    0x01 button, 0x02 axis, 0x80 initial state
//	uint8  number  axis or button index
//
// Indices are translated to names ("x", "y", "b1", "start", ...) using the
// device's axis and button maps, so callers register callbacks by name and
// do not depend on a particular controller's layout. Axis values are
// normalised to -1..1.
//
// Callbacks run on the reader goroutine. Events marked as initial state
// update the stored state without invoking callbacks.
package input
