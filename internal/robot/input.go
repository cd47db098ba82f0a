package robot

import (
	"context"
	"math"
	"strconv"
	"sync"

	"github.com/nerrad567/choreo-core/internal/input"
)

// DefaultSpeedScale is the manual drive output scale.
const DefaultSpeedScale = 0.5

// InputSource is a device delivering named button and axis events.
type InputSource interface {
	OnButton(name string, fn input.ButtonFunc)
	OnAxis(name string, fn input.AxisFunc)
	AxisState(name string) float64
}

// InputBinding names the controls the robot reacts to.
type InputBinding struct {
	// StopButton clears the routine, like STOP on the control socket.
	StopButton string

	// RoutineButtons[i] runs the handlers for button id i+1.
	RoutineButtons []string

	// AxisX and AxisY drive the wheels in Manual mode.
	AxisX string
	AxisY string
}

// DefaultInputBinding returns the binding for the robot's gamepad.
func DefaultInputBinding() InputBinding {
	return InputBinding{
		StopButton:     "start",
		RoutineButtons: []string{"b1", "b2", "b3", "b4"},
		AxisX:          "x",
		AxisY:          "y",
	}
}

type inputState struct {
	mu     sync.Mutex
	source InputSource
	bind   InputBinding
}

// AttachInput registers the robot's callbacks on src.
func (r *Robot) AttachInput(src InputSource, bind InputBinding) {
	r.input.mu.Lock()
	r.input.source = src
	r.input.bind = bind
	r.input.mu.Unlock()

	if bind.StopButton != "" {
		src.OnButton(bind.StopButton, func(_ string, value int) {
			if value == 1 {
				r.HandleStop()
			}
		})
	}
	for i, name := range bind.RoutineButtons {
		id := i + 1
		src.OnButton(name, func(_ string, value int) {
			if value == 1 {
				r.PressButton(id)
			}
		})
	}
	for _, name := range []string{bind.AxisX, bind.AxisY} {
		if name != "" {
			src.OnAxis(name, func(string, float64) { r.axisChanged() })
		}
	}
}

// PressButton runs the loaded routine's handlers for button id as an
// ActiveAction. It returns nil when no routine is loaded or no handler is
// registered for id.
func (r *Robot) PressButton(id int) *ActiveAction {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt := r.current
	if rt == nil || rt.ButtonHandlers(id) == 0 {
		return nil
	}
	return r.startLocked(buttonUnit(id), rt.ID(), func(ctx context.Context) error {
		return rt.RunButtonHandlers(ctx, id)
	})
}

func buttonUnit(id int) string {
	return "button" + strconv.Itoa(id)
}

// axisChanged sends the current stick position to the wheels when no
// routine is loaded.
func (r *Robot) axisChanged() {
	if r.Mode() != ModeManual {
		return
	}

	r.input.mu.Lock()
	src, bind := r.input.source, r.input.bind
	r.input.mu.Unlock()
	if src == nil {
		return
	}

	left, right := DifferentialDrive(src.AxisState(bind.AxisX), src.AxisState(bind.AxisY), r.opts.SpeedScale)
	if err := r.hw.Drive(left, right); err != nil {
		r.logger.Error("manual drive", "error", err)
	}
}

// DifferentialDrive maps a stick position x,y in [-1,1] to wheel speeds.
//
// With v = y(2-|x|) and w = x(2-|y|), left = (v+w)/2 and right = (v-w)/2,
// each multiplied by scale: pushing the stick right (x=1, y=0) spins the
// robot clockwise with left = scale and right = -scale.
//
// The sign of w is deliberately opposite to the usual left = (v-w)/2 mixing
// formula, which would turn the robot counter-clockwise for the same stick
// position. TestDifferentialDrive pins the convention.
func DifferentialDrive(x, y, scale float64) (left, right float64) {
	x = clamp(x)
	y = clamp(y)
	v := y * (2 - math.Abs(x))
	w := x * (2 - math.Abs(y))
	left = (v + w) / 2 * scale
	right = (v - w) / 2 * scale
	return left, right
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
