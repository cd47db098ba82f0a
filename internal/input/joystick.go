package input

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ButtonFunc receives a button change: value is 1 when pressed, 0 when released.
type ButtonFunc func(name string, value int)

// AxisFunc receives an axis change, value in -1..1.
type AxisFunc func(name string, value float64)

// Logger is the logging interface used by the input package.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Joystick tracks a joystick's state and fans events out to callbacks.
//
// Thread Safety: all methods are safe for concurrent use. Callbacks are
// invoked without the internal lock held.
type Joystick struct {
	name      string
	axisMap   []string
	buttonMap []string
	logger    Logger

	mu              sync.RWMutex
	axisCallbacks   map[string][]AxisFunc
	buttonCallbacks map[string][]ButtonFunc
	axisStates      map[string]float64
	buttonStates    map[string]int
}

// NewJoystick creates a joystick from its kernel axis and button code maps.
// Index i of axisCodes is the code of axis number i, likewise for buttons.
func NewJoystick(name string, axisCodes []uint8, buttonCodes []uint16, logger Logger) *Joystick {
	if logger == nil {
		logger = noopLogger{}
	}
	j := &Joystick{
		name:            name,
		logger:          logger,
		axisCallbacks:   make(map[string][]AxisFunc),
		buttonCallbacks: make(map[string][]ButtonFunc),
		axisStates:      make(map[string]float64),
		buttonStates:    make(map[string]int),
	}
	for _, code := range axisCodes {
		n := AxisName(code)
		j.axisMap = append(j.axisMap, n)
		j.axisStates[n] = 0
	}
	for _, code := range buttonCodes {
		n := ButtonName(code)
		j.buttonMap = append(j.buttonMap, n)
		j.buttonStates[n] = 0
	}
	return j
}

// Name returns the device name reported by the driver.
func (j *Joystick) Name() string {
	return j.name
}

// Axes returns the axis names in device order.
func (j *Joystick) Axes() []string {
	return append([]string(nil), j.axisMap...)
}

// Buttons returns the button names in device order.
func (j *Joystick) Buttons() []string {
	return append([]string(nil), j.buttonMap...)
}

// OnButton registers fn for button name.
func (j *Joystick) OnButton(name string, fn ButtonFunc) {
	j.mu.Lock()
	j.buttonCallbacks[name] = append(j.buttonCallbacks[name], fn)
	j.mu.Unlock()
}

// OnAxis registers fn for axis name.
func (j *Joystick) OnAxis(name string, fn AxisFunc) {
	j.mu.Lock()
	j.axisCallbacks[name] = append(j.axisCallbacks[name], fn)
	j.mu.Unlock()
}

// AxisState returns the last known value of axis name, 0 if unknown.
func (j *Joystick) AxisState(name string) float64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.axisStates[name]
}

// ButtonState returns the last known value of button name.
func (j *Joystick) ButtonState(name string) int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.buttonStates[name]
}

// Dispatch applies one event and invokes the matching callbacks.
func (j *Joystick) Dispatch(ev Event) {
	switch {
	case ev.IsButton():
		if int(ev.Number) >= len(j.buttonMap) {
			j.logger.Warn("button out of range", "number", ev.Number)
			return
		}
		name := j.buttonMap[ev.Number]
		value := int(ev.Value)

		j.mu.Lock()
		j.buttonStates[name] = value
		callbacks := append([]ButtonFunc(nil), j.buttonCallbacks[name]...)
		j.mu.Unlock()

		if ev.IsInit() {
			return
		}
		for _, cb := range callbacks {
			cb(name, value)
		}

	case ev.IsAxis():
		if int(ev.Number) >= len(j.axisMap) {
			j.logger.Warn("axis out of range", "number", ev.Number)
			return
		}
		name := j.axisMap[ev.Number]
		value := float64(ev.Value) / axisMax

		j.mu.Lock()
		j.axisStates[name] = value
		callbacks := append([]AxisFunc(nil), j.axisCallbacks[name]...)
		j.mu.Unlock()

		if ev.IsInit() {
			return
		}
		for _, cb := range callbacks {
			cb(name, value)
		}
	}
}

// Run reads events from r and dispatches them until r is exhausted or ctx
// is done. When r is an io.Closer it is closed on cancellation to unblock
// the read.
func (j *Joystick) Run(ctx context.Context, r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	for {
		ev, err := ReadEvent(r)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		j.Dispatch(ev)
	}
}
