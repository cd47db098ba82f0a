package routine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Actuators is the hardware the actions are executed against.
//
// SetDigital, MoveActuator, Drive and Stop return promptly. Synthesize blocks
// until the utterance has been spoken and must honour ctx.
type Actuators interface {
	SetDigital(target Target, on bool) error
	MoveActuator(target Target, angle float64) error
	Drive(left, right float64) error
	Stop() error
	Synthesize(ctx context.Context, text string) error
}

// Action is one deferred unit of work. Actions are immutable once enqueued.
type Action interface {
	// Kind is a short stable name used in logs and telemetry.
	Kind() string

	// Run executes the action, returning when it has completed or ctx is done.
	Run(ctx context.Context, hw Actuators) error
}

// Wait pauses for exactly Duration.
type Wait struct {
	Duration time.Duration
}

func (Wait) Kind() string { return "wait" }

func (a Wait) String() string { return fmt.Sprintf("wait(%s)", a.Duration) }

func (a Wait) Run(ctx context.Context, _ Actuators) error {
	return sleep(ctx, a.Duration)
}

// Speak synthesises Text and completes when speech has finished.
type Speak struct {
	Text string
}

func (Speak) Kind() string { return "speak" }

func (a Speak) String() string { return fmt.Sprintf("speak(%q)", a.Text) }

func (a Speak) Run(ctx context.Context, hw Actuators) error {
	if err := hw.Synthesize(ctx, a.Text); err != nil {
		return fmt.Errorf("speak %q: %w", a.Text, err)
	}
	return nil
}

// SetDigital switches a digital output.
type SetDigital struct {
	Target Target
	On     bool
}

func (SetDigital) Kind() string { return "set_digital" }

func (a SetDigital) String() string {
	state := StateOff
	if a.On {
		state = StateOn
	}
	return fmt.Sprintf("set_digital(%s, %s)", a.Target, state)
}

func (a SetDigital) Run(ctx context.Context, hw Actuators) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := hw.SetDigital(a.Target, a.On); err != nil {
		return fmt.Errorf("set %s: %w", a.Target, err)
	}
	return nil
}

// MoveActuator positions an angular actuator and then waits Settle for the
// movement to finish.
type MoveActuator struct {
	Target Target
	Angle  float64
	Settle time.Duration
}

func (MoveActuator) Kind() string { return "move_actuator" }

func (a MoveActuator) String() string {
	return fmt.Sprintf("move_actuator(%s, %g)", a.Target, a.Angle)
}

func (a MoveActuator) Run(ctx context.Context, hw Actuators) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := hw.MoveActuator(a.Target, a.Angle); err != nil {
		return fmt.Errorf("move %s: %w", a.Target, err)
	}
	return sleep(ctx, a.Settle)
}

// Drive runs the wheels at the given speeds for Duration, then stops them.
// The wheels are also stopped when ctx is cancelled mid-drive.
type Drive struct {
	Left     float64
	Right    float64
	Duration time.Duration
}

func (Drive) Kind() string { return "drive" }

func (a Drive) String() string {
	return fmt.Sprintf("drive(%g, %g, %s)", a.Left, a.Right, a.Duration)
}

func (a Drive) Run(ctx context.Context, hw Actuators) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := hw.Drive(a.Left, a.Right); err != nil {
		return fmt.Errorf("drive: %w", err)
	}
	if err := sleep(ctx, a.Duration); err != nil {
		if stopErr := hw.Stop(); stopErr != nil {
			return errors.Join(err, fmt.Errorf("stopping wheels: %w", stopErr))
		}
		return err
	}
	if err := hw.Stop(); err != nil {
		return fmt.Errorf("stopping wheels: %w", err)
	}
	return nil
}

// Group runs its members concurrently and completes when all of them have.
// The first member to fail cancels the others.
type Group struct {
	Actions []Action
}

func (Group) Kind() string { return "group" }

func (g Group) String() string {
	parts := make([]string, len(g.Actions))
	for i, a := range g.Actions {
		parts[i] = describe(a)
	}
	return "group[" + strings.Join(parts, ", ") + "]"
}

func (g Group) Run(ctx context.Context, hw Actuators) error {
	return runGroup(ctx, g, func(ctx context.Context, a Action) error {
		return a.Run(ctx, hw)
	})
}

// runGroup is the barrier: it returns only after every member has returned.
func runGroup(ctx context.Context, g Group, run func(context.Context, Action) error) error {
	eg, gctx := errgroup.WithContext(ctx)
	for _, a := range g.Actions {
		a := a
		eg.Go(func() error {
			return run(gctx, a)
		})
	}
	if err := eg.Wait(); err != nil {
		// A sibling cancelled by the failing member reports context.Canceled;
		// errgroup keeps the first error, which is the real failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func describe(a Action) string {
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return a.Kind()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
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
