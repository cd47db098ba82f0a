//go:build !linux

package input

import (
	"errors"
	"os"
)

// ErrUnsupported is returned by Open on platforms without a joystick driver.
var ErrUnsupported = errors.New("input: joystick devices are only supported on linux")

// Open is not supported on this platform.
func Open(string, Logger) (*Joystick, *os.File, error) {
	return nil, nil, ErrUnsupported
}
