package hardware

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Espeak speaks through an external synthesiser command, one process per
// utterance. The text is passed as the final argument.
type Espeak struct {
	Binary string
	Args   []string
}

// Say runs the synthesiser and waits for it to exit. Cancelling ctx kills
// the process.
func (e Espeak) Say(ctx context.Context, text string) error {
	args := append(append([]string(nil), e.Args...), text)
	cmd := exec.CommandContext(ctx, e.Binary, args...)

	out, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s: %w", ErrSpeech, msg, err)
		}
		return fmt.Errorf("%w: %w", ErrSpeech, err)
	}
	return nil
}

// SilentSpeaker pretends to speak, taking PerWord for each word.
type SilentSpeaker struct {
	PerWord time.Duration
	Logger  Logger
}

// Say logs text and waits as long as speaking it would take.
func (s SilentSpeaker) Say(ctx context.Context, text string) error {
	if s.Logger != nil {
		s.Logger.Info("speech", "text", text)
	}
	d := time.Duration(len(strings.Fields(text))) * s.PerWord
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
