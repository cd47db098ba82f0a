package script

import (
	"context"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/nerrad567/choreo-core/internal/routine"
)

// binding exposes one routine to one Lua state.
type binding struct {
	L       *lua.LState
	routine *routine.Routine
	logger  Logger

	// lastErr is the most recent error raised by a robot function.
	lastErr error
}

func (b *binding) module(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"wait":                b.wait,
		"say":                 b.say,
		"set_light":           b.setLight,
		"set_antenna_state":   b.partState(routine.PartAntenna),
		"set_eye_state":       b.partState(routine.PartEye),
		"move_arm":            b.moveArm,
		"drive":               b.drive(nil),
		"roll":                b.drive(routine.Direction.IsRoll),
		"turn":                b.drive(routine.Direction.IsTurn),
		"in_sync":             b.inSync,
		"when_started":        b.whenStarted,
		"when_button_pressed": b.whenButtonPressed,
	})
}

// raise aborts the running Lua code with err.
func (b *binding) raise(L *lua.LState, err error) int {
	b.lastErr = err
	L.RaiseError("%s", err.Error())
	return 0
}

func (b *binding) check(L *lua.LState, err error) int {
	if err != nil {
		return b.raise(L, err)
	}
	return 0
}

func seconds(L *lua.LState, n int) time.Duration {
	return time.Duration(float64(L.CheckNumber(n)) * float64(time.Second))
}

// ─── Actions ────────────────────────────────────────────────────────

// robot.wait(seconds)
func (b *binding) wait(L *lua.LState) int {
	return b.check(L, b.routine.Wait(seconds(L, 1)))
}

// robot.say(text)
func (b *binding) say(L *lua.LState) int {
	return b.check(L, b.routine.Speak(L.CheckString(1)))
}

// robot.set_light(part, side, state)
func (b *binding) setLight(L *lua.LState) int {
	part, err := routine.ParsePart(L.CheckString(1))
	if err != nil {
		return b.raise(L, err)
	}
	return b.setDigital(L, part, 2)
}

// partState returns robot.set_<part>_state(side, state).
func (b *binding) partState(part routine.Part) lua.LGFunction {
	return func(L *lua.LState) int {
		return b.setDigital(L, part, 1)
	}
}

func (b *binding) setDigital(L *lua.LState, part routine.Part, first int) int {
	side, err := routine.ParseSide(L.CheckString(first))
	if err != nil {
		return b.raise(L, err)
	}
	state, err := stateArg(L, first+1)
	if err != nil {
		return b.raise(L, err)
	}
	return b.check(L, b.routine.SetDigital(part, side, state))
}

// stateArg accepts "on"/"off" or a boolean.
func stateArg(L *lua.LState, n int) (routine.State, error) {
	v := L.CheckAny(n)
	if v.Type() == lua.LTBool {
		if lua.LVAsBool(v) {
			return routine.StateOn, nil
		}
		return routine.StateOff, nil
	}
	return routine.ParseState(v.String())
}

// robot.move_arm(side, angle) where angle is degrees or "up", "out", "down".
func (b *binding) moveArm(L *lua.LState) int {
	side, err := routine.ParseSide(L.CheckString(1))
	if err != nil {
		return b.raise(L, err)
	}

	var angle float64
	switch v := L.CheckAny(2); v.Type() {
	case lua.LTNumber:
		angle = float64(v.(lua.LNumber))
	case lua.LTString:
		if angle, err = routine.ArmPreset(v.String()); err != nil {
			return b.raise(L, err)
		}
	default:
		L.ArgError(2, "angle must be a number or a preset name")
		return 0
	}
	return b.check(L, b.routine.MoveActuator(routine.PartArm, side, angle))
}

// drive returns robot.drive, robot.roll or robot.turn. allowed restricts the
// directions the function accepts; nil allows all of them.
func (b *binding) drive(allowed func(routine.Direction) bool) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		dir, err := routine.ParseDirection(name)
		if err != nil {
			return b.raise(L, err)
		}
		if allowed != nil && !allowed(dir) {
			return b.raise(L, &routine.InvalidArgumentError{Kind: "direction", Value: name})
		}
		return b.check(L, b.routine.Drive(dir, seconds(L, 2)))
	}
}

// ─── Structure ──────────────────────────────────────────────────────

// robot.in_sync(fn) runs fn with every action it enqueues grouped into one
// barrier step.
func (b *binding) inSync(L *lua.LState) int {
	fn := L.CheckFunction(1)

	b.routine.BeginSync()
	defer b.routine.EndSync()

	L.Push(fn)
	L.Call(0, 0)
	return 0
}

// robot.when_started(fn) returns fn.
func (b *binding) whenStarted(L *lua.LState) int {
	fn := L.CheckFunction(1)
	b.routine.RegisterOnStarted(b.handler(fn))
	L.Push(fn)
	return 1
}

// robot.when_button_pressed(n, fn) returns fn.
func (b *binding) whenButtonPressed(L *lua.LState) int {
	id := L.CheckInt(1)
	fn := L.CheckFunction(2)
	if _, err := b.routine.RegisterOnButton(id, b.handler(fn)); err != nil {
		return b.raise(L, err)
	}
	L.Push(fn)
	return 1
}

// handler adapts a Lua function to a build step. The routine serialises
// build steps, so the state is never entered concurrently.
func (b *binding) handler(fn *lua.LFunction) routine.BuildFunc {
	return func(ctx context.Context) error {
		b.lastErr = nil
		b.L.SetContext(ctx)
		defer b.L.RemoveContext()

		err := b.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return b.scriptError(err)
	}
}

// print logs its arguments instead of writing to stdout.
func (b *binding) print(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	b.logger.Info("script output", "routine_id", b.routine.ID(), "text", strings.Join(parts, "\t"))
	return 0
}
