//go:build linux

package input

import (
	"bytes"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Joystick ioctl requests.
const (
	jsiocgaxes    = 0x80016a11
	jsiocgbuttons = 0x80016a12
	jsiocgname    = 0x80006a13 // | len<<16
	jsiocgaxmap   = 0x80406a32
	jsiocgbtnmap  = 0x84006a34 // __u16[KEY_MAX - BTN_MISC + 1]
)

type deviceInfo struct {
	name       []byte
	numAxes    uint8
	numButtons uint8
	axisMap    []uint8
	buttonMap  []uint16
}

// Open opens a joystick device and reads its name and axis/button maps.
//
// Returns:
//   - *Joystick: Joystick with name maps populated
//   - *os.File: The device, to be passed to Joystick.Run
//   - error: If the device cannot be opened or queried
func Open(device string, logger Logger) (*Joystick, *os.File, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", device, err)
	}

	// SyscallConn keeps the descriptor non-blocking, so closing the file
	// unblocks a pending read.
	rc, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("accessing %s: %w", device, err)
	}
	info := deviceInfo{
		name:      make([]byte, 64),
		axisMap:   make([]uint8, 0x40),
		buttonMap: make([]uint16, 0x200),
	}
	var queryErr error
	if err := rc.Control(func(fd uintptr) { queryErr = info.query(fd) }); err != nil {
		queryErr = err
	}
	if queryErr != nil {
		f.Close()
		return nil, nil, fmt.Errorf("querying %s: %w", device, queryErr)
	}

	j := NewJoystick(
		string(bytes.TrimRight(info.name, "\x00")),
		info.axisMap[:min(int(info.numAxes), len(info.axisMap))],
		info.buttonMap[:min(int(info.numButtons), len(info.buttonMap))],
		logger,
	)
	return j, f, nil
}

func (d *deviceInfo) query(fd uintptr) error {
	if err := ioctl(fd, jsiocgname|uintptr(len(d.name))<<16, unsafe.Pointer(&d.name[0])); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	if err := ioctl(fd, jsiocgaxes, unsafe.Pointer(&d.numAxes)); err != nil {
		return fmt.Errorf("axis count: %w", err)
	}
	if err := ioctl(fd, jsiocgbuttons, unsafe.Pointer(&d.numButtons)); err != nil {
		return fmt.Errorf("button count: %w", err)
	}
	if err := ioctl(fd, jsiocgaxmap, unsafe.Pointer(&d.axisMap[0])); err != nil {
		return fmt.Errorf("axis map: %w", err)
	}
	if err := ioctl(fd, jsiocgbtnmap, unsafe.Pointer(&d.buttonMap[0])); err != nil {
		return fmt.Errorf("button map: %w", err)
	}
	return nil
}

func ioctl(fd, req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}
