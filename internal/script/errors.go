package script

import "errors"

var (
	// ErrSyntax is wrapped by errors for scripts that fail to parse.
	ErrSyntax = errors.New("script: syntax error")

	// ErrRuntime is wrapped by errors raised while the script runs.
	ErrRuntime = errors.New("script: runtime error")
)

// Error is a script failure reported back to whoever submitted the script.
// Message is a single line suitable for the control protocol reply.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
