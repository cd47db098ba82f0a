package hardware

import "errors"

var (
	// ErrUnknownTarget is returned for a target with no configured output.
	ErrUnknownTarget = errors.New("hardware: unknown target")

	// ErrSpeech is returned when the speech synthesiser fails.
	ErrSpeech = errors.New("hardware: speech synthesis failed")

	// ErrBoard is returned when the controller board cannot be opened.
	ErrBoard = errors.New("hardware: board unavailable")
)
