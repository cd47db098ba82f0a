package routine

import "strings"

// Side selects which of a symmetric pair of parts an operation addresses.
type Side int

// Sides.
const (
	SideLeft Side = iota + 1
	SideRight
	SideBoth
)

// String returns the script name of the side.
func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	case SideBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseSide converts a script-level side name.
func ParseSide(name string) (Side, error) {
	switch strings.ToLower(name) {
	case "left":
		return SideLeft, nil
	case "right":
		return SideRight, nil
	case "both":
		return SideBoth, nil
	default:
		return 0, invalid("side", name)
	}
}

// State is the value of a digital output.
type State int

// States.
const (
	StateOff State = iota + 1
	StateOn
)

// String returns the script name of the state.
func (s State) String() string {
	switch s {
	case StateOn:
		return "on"
	case StateOff:
		return "off"
	default:
		return "unknown"
	}
}

// ParseState converts a script-level state name.
func ParseState(name string) (State, error) {
	switch strings.ToLower(name) {
	case "on":
		return StateOn, nil
	case "off":
		return StateOff, nil
	default:
		return 0, invalid("state", name)
	}
}

// Direction is a timed drive manoeuvre.
type Direction int

// Directions.
const (
	DirectionForward Direction = iota + 1
	DirectionBackward
	DirectionClockwise
	DirectionCounterclockwise
)

// String returns the script name of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	case DirectionClockwise:
		return "clockwise"
	case DirectionCounterclockwise:
		return "counterclockwise"
	default:
		return "unknown"
	}
}

// ParseDirection converts a script-level direction name.
func ParseDirection(name string) (Direction, error) {
	switch strings.ToLower(name) {
	case "forward":
		return DirectionForward, nil
	case "backward":
		return DirectionBackward, nil
	case "clockwise":
		return DirectionClockwise, nil
	case "counterclockwise":
		return DirectionCounterclockwise, nil
	default:
		return 0, invalid("direction", name)
	}
}

// IsRoll reports whether the direction moves the robot in a straight line.
func (d Direction) IsRoll() bool {
	return d == DirectionForward || d == DirectionBackward
}

// IsTurn reports whether the direction rotates the robot on the spot.
func (d Direction) IsTurn() bool {
	return d == DirectionClockwise || d == DirectionCounterclockwise
}

// wheels returns the unit wheel speeds for the direction.
func (d Direction) wheels() (left, right float64) {
	switch d {
	case DirectionForward:
		return 1, 1
	case DirectionBackward:
		return -1, -1
	case DirectionClockwise:
		return 1, -1
	case DirectionCounterclockwise:
		return -1, 1
	default:
		return 0, 0
	}
}

// Part is a named, sided body part of the robot.
type Part string

// Parts.
const (
	PartAntenna Part = "antenna"
	PartEye     Part = "eye"
	PartArm     Part = "arm"
)

// ParsePart converts a script-level part name.
func ParsePart(name string) (Part, error) {
	switch p := Part(strings.ToLower(name)); p {
	case PartAntenna, PartEye, PartArm:
		return p, nil
	default:
		return "", invalid("part", name)
	}
}

// Digital reports whether the part is switched on and off.
func (p Part) Digital() bool {
	return p == PartAntenna || p == PartEye
}

// Angular reports whether the part is positioned by angle.
func (p Part) Angular() bool {
	return p == PartArm
}

// Target addresses one concrete actuator, such as the left antenna.
// Side is always SideLeft or SideRight.
type Target struct {
	Part Part
	Side Side
}

// String returns the target name, e.g. "left_antenna".
func (t Target) String() string {
	return t.Side.String() + "_" + string(t.Part)
}

// ArmPreset resolves the named arm positions used by the block editor.
func ArmPreset(name string) (float64, error) {
	switch strings.ToLower(name) {
	case "up":
		return 90, nil
	case "out":
		return 0, nil
	case "down":
		return -90, nil
	default:
		return 0, invalid("angle", name)
	}
}

// Button identifiers accepted by RegisterOnButton.
const (
	MinButton = 1
	MaxButton = 4
)
