package script

import (
	"context"
	"errors"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nerrad567/choreo-core/internal/routine"
)

// chunkName prefixes positions in error messages, e.g. "routine:3: ...".
const chunkName = "routine"

// Logger receives output from the script's print function.
type Logger interface {
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}

// Option configures Execute.
type Option func(*binding)

// WithLogger routes print output to logger.
func WithLogger(logger Logger) Option {
	return func(b *binding) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// removedGlobals are base library functions that reach outside the script.
var removedGlobals = []string{
	"dofile", "loadfile", "load", "loadstring", "require", "module",
	"collectgarbage", "newproxy", "getfenv", "setfenv",
}

// Execute runs source once against rt.
//
// On success the routine holds everything the script enqueued and
// registered, and the Lua state stays alive for the registered handlers
// until rt is closed. On failure the returned error is an *Error and rt
// must be discarded.
func Execute(ctx context.Context, source []byte, rt *routine.Routine, opts ...Option) error {
	b := &binding{routine: rt, logger: noopLogger{}}
	for _, opt := range opts {
		opt(b)
	}

	L, err := newState(b)
	if err != nil {
		return &Error{Message: err.Error(), Err: errors.Join(ErrRuntime, err)}
	}
	b.L = L

	fn, err := L.Load(strings.NewReader(string(source)), chunkName)
	if err != nil {
		L.Close()
		return &Error{Message: firstLine(errorText(err)), Err: errors.Join(ErrSyntax, err)}
	}

	L.SetContext(ctx)
	defer L.RemoveContext()

	L.Push(fn)
	if err := L.PCall(0, 0, nil); err != nil {
		L.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &Error{Message: "script interrupted: " + ctxErr.Error(), Err: errors.Join(ErrRuntime, ctxErr)}
		}
		return b.scriptError(err)
	}
	rt.OnClose(L.Close)
	return nil
}

// newState opens a Lua state with only the safe standard libraries and the
// robot table.
func newState(b *binding) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	libs := []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range libs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, err
		}
	}

	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("print", L.NewFunction(b.print))
	L.SetGlobal("robot", b.module(L))
	return L, nil
}

// scriptError converts a Lua failure, keeping a binding error as the cause
// when the failure came from one.
func (b *binding) scriptError(err error) error {
	msg := firstLine(errorText(err))
	cause := err
	if b.lastErr != nil && strings.Contains(msg, b.lastErr.Error()) {
		cause = b.lastErr
	}
	return &Error{Message: msg, Err: errors.Join(ErrRuntime, cause)}
}

func errorText(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return apiErr.Object.String()
	}
	return err.Error()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
