package routine

import (
	"errors"
	"fmt"
)

// Domain errors for the routine package.
var (
	// ErrInvalidArgument is matched by every InvalidArgumentError.
	ErrInvalidArgument = errors.New("routine: invalid argument")

	// ErrNotDigital is returned when a digital state is set on a part that
	// is not a digital output.
	ErrNotDigital = errors.New("routine: part is not a digital output")

	// ErrNotAngular is returned when an angle is set on a part that is not
	// an angular actuator.
	ErrNotAngular = errors.New("routine: part is not an angular actuator")

	// ErrClosed is returned by a handler run after its routine was closed.
	ErrClosed = errors.New("routine: closed")
)

// InvalidArgumentError reports a symbolic argument that is not part of its
// closed set, such as an unknown side name or an out-of-range button.
type InvalidArgumentError struct {
	Kind  string // "side", "state", "direction", "part", "button", "duration", "angle"
	Value string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Kind, e.Value)
}

// Is lets errors.Is(err, ErrInvalidArgument) match any InvalidArgumentError.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalid(kind string, value any) error {
	return &InvalidArgumentError{Kind: kind, Value: fmt.Sprint(value)}
}
