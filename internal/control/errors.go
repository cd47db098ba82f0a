package control

import "errors"

var (
	// ErrNoSuchCommand is wrapped by the ProtocolError for an unrecognised command line.
	ErrNoSuchCommand = errors.New("control: no such command")

	// ErrCommandFailed is matched by every ReplyError.
	ErrCommandFailed = errors.New("control: command failed")
)

// ProtocolError is a malformed request. It is reported to the client and
// changes no state.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	return e.Message
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ReplyError is an ERROR reply received by a Client.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string {
	return e.Message
}

// Is makes ReplyError match ErrCommandFailed.
func (e *ReplyError) Is(target error) bool {
	return target == ErrCommandFailed
}
