package hardware

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func requireBinary(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return path
}

func TestEspeak_Success(t *testing.T) {
	e := Espeak{Binary: requireBinary(t, "true")}
	if err := e.Say(context.Background(), "hello"); err != nil {
		t.Errorf("Say() error = %v", err)
	}
}

func TestEspeak_FailureIsSpeechError(t *testing.T) {
	e := Espeak{Binary: requireBinary(t, "false")}
	err := e.Say(context.Background(), "hello")
	if !errors.Is(err, ErrSpeech) {
		t.Errorf("Say() error = %v, want ErrSpeech", err)
	}
}

func TestEspeak_MissingBinary(t *testing.T) {
	e := Espeak{Binary: "/nonexistent/espeak"}
	if err := e.Say(context.Background(), "hello"); !errors.Is(err, ErrSpeech) {
		t.Errorf("Say() error = %v, want ErrSpeech", err)
	}
}

func TestEspeak_CancelKillsProcess(t *testing.T) {
	// "sleep 10" stands in for a long utterance.
	e := Espeak{Binary: requireBinary(t, "sleep")}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := e.Say(ctx, "10")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Say() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Say() took %v after cancellation", elapsed)
	}
}
