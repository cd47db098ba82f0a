package robot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/choreo-core/internal/routine"
	"github.com/nerrad567/choreo-core/internal/script"
)

// Mode is the drive arbitration mode.
type Mode string

const (
	ModeManual   Mode = "manual"
	ModeScripted Mode = "scripted"
)

// Logger is the logging interface used by the robot package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Robot. Zero values select the defaults noted.
type Options struct {
	// RobotID tags every emitted event.
	RobotID string

	// CancelOnRun cancels every live ActiveAction when a new routine is
	// accepted. When false the previous routine's work keeps running.
	CancelOnRun bool

	// HaltDriveOnStop stops the wheels once STOP has cancelled the scope.
	HaltDriveOnStop bool

	// StopGrace bounds how long HandleStop waits for cancelled units.
	StopGrace time.Duration

	// ScriptTimeout bounds the top-level evaluation of a script. Zero means
	// only the caller's context applies.
	ScriptTimeout time.Duration

	// ArmSettle is the delay after every arm move (default 500ms).
	ArmSettle time.Duration

	// DriveSpeed is the wheel speed used by timed drives (default 1).
	DriveSpeed float64

	// SpeedScale multiplies manual drive output (default 0.5).
	SpeedScale float64

	Sink   EventSink
	Logger Logger
}

// Status is a snapshot of the robot's state.
type Status struct {
	RobotID       string `json:"robot_id"`
	Mode          Mode   `json:"mode"`
	RoutineID     string `json:"routine_id,omitempty"`
	ActiveActions int    `json:"active_actions"`
}

// Robot is the process-wide orchestrator.
//
// Thread Safety: all methods are safe for concurrent use. The loaded routine
// and the ActiveAction scope are guarded by one mutex.
type Robot struct {
	hw     routine.Actuators
	opts   Options
	sink   EventSink
	logger Logger

	mu      sync.Mutex
	current *routine.Routine
	scope   *scope
	nextID  uint64

	// loaded tracks routines whose units may still be running, keyed by id.
	// A routine is closed once it is retired and its last unit has finished.
	loaded map[string]*loadedRoutine

	input inputState
}

// New creates a Robot in Manual mode driving hw.
func New(hw routine.Actuators, opts Options) *Robot {
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Sink == nil {
		opts.Sink = discardSink{}
	}
	if opts.ArmSettle <= 0 {
		opts.ArmSettle = routine.DefaultSettleDelay
	}
	if opts.DriveSpeed <= 0 {
		opts.DriveSpeed = 1
	}
	if opts.SpeedScale <= 0 {
		opts.SpeedScale = DefaultSpeedScale
	}
	return &Robot{
		hw:     hw,
		opts:   opts,
		sink:   opts.Sink,
		logger: opts.Logger,
		scope:  newScope(),
		loaded: make(map[string]*loadedRoutine),
	}
}

// HandleRun executes source against a fresh routine. On success the routine
// replaces the loaded one and two ActiveActions are started: one draining
// the actions enqueued at top level and one running the start handlers.
//
// On failure the returned error is a *script.Error, the new routine is
// discarded and the loaded routine (if any) is left untouched.
func (r *Robot) HandleRun(ctx context.Context, source []byte) error {
	if r.opts.ScriptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.ScriptTimeout)
		defer cancel()
	}

	var routineID string
	rt := routine.New(r.hw,
		routine.WithSettleDelay(r.opts.ArmSettle),
		routine.WithDriveSpeed(r.opts.DriveSpeed),
		routine.WithObserver(func(a routine.Action, elapsed time.Duration, err error) {
			r.observeAction(routineID, a, elapsed, err)
		}),
	)
	routineID = rt.ID()

	if err := script.Execute(ctx, source, rt, script.WithLogger(r.logger)); err != nil {
		r.logger.Warn("routine rejected", "routine_id", routineID, "error", err)
		r.emit(Event{Type: EventRoutineRejected, RoutineID: routineID, Error: err.Error(), ScriptSize: len(source)})
		return err
	}
	batch := rt.TakeQueue()

	r.mu.Lock()
	var old *scope
	if r.opts.CancelOnRun {
		old = r.scope
		r.scope = newScope()
		old.cancel()
	}
	previous := r.current
	r.current = rt
	r.loaded[routineID] = &loadedRoutine{rt: rt}
	var retired *routine.Routine
	if previous != nil {
		retired = r.retireLocked(previous.ID())
	}
	r.startLocked("drain", routineID, func(ctx context.Context) error {
		return rt.RunActions(ctx, batch)
	})
	r.startLocked("start", routineID, rt.RunStartHandlers)
	r.mu.Unlock()
	closeRoutine(retired)

	r.logger.Info("routine loaded",
		"routine_id", routineID,
		"queued", len(batch),
		"start_handlers", rt.StartHandlers(),
	)
	r.emit(Event{Type: EventRoutineLoaded, RoutineID: routineID, ScriptSize: len(source)})
	if previous == nil {
		r.emit(Event{Type: EventModeChanged, RoutineID: routineID, Mode: ModeScripted})
	}
	if old != nil && previous != nil {
		r.logger.Debug("previous routine cancelled", "routine_id", previous.ID(), "units", old.len())
	}
	return nil
}

// HandleStop clears the loaded routine and cancels every ActiveAction. The
// collection is empty when HandleStop returns; it waits up to StopGrace for
// the cancelled units to unwind.
func (r *Robot) HandleStop() {
	r.mu.Lock()
	previous := r.current
	r.current = nil
	old := r.scope
	r.scope = newScope()
	old.cancel()
	var retired *routine.Routine
	if previous != nil {
		retired = r.retireLocked(previous.ID())
	}
	r.mu.Unlock()
	closeRoutine(retired)

	cancelled := old.len()
	if r.opts.StopGrace > 0 && cancelled > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.StopGrace)
		if err := old.wait(ctx); err != nil {
			r.logger.Warn("cancelled work still running after grace period",
				"remaining", old.len(), "grace", r.opts.StopGrace)
		}
		cancel()
	}
	if r.opts.HaltDriveOnStop {
		if err := r.hw.Stop(); err != nil {
			r.logger.Error("halting drive", "error", err)
		}
	}

	var routineID string
	if previous != nil {
		routineID = previous.ID()
	}
	r.logger.Info("stopped", "routine_id", routineID, "cancelled", cancelled)
	r.emit(Event{Type: EventRoutineStopped, RoutineID: routineID})
	if previous != nil {
		r.emit(Event{Type: EventModeChanged, RoutineID: routineID, Mode: ModeManual})
	}
}

// InitiateAction starts work as an ActiveAction in the current scope. The
// unit removes itself from the collection when it finishes.
func (r *Robot) InitiateAction(name string, work func(ctx context.Context) error) *ActiveAction {
	r.mu.Lock()
	defer r.mu.Unlock()

	var routineID string
	if r.current != nil {
		routineID = r.current.ID()
	}
	return r.startLocked(name, routineID, work)
}

// startLocked must be called with r.mu held.
func (r *Robot) startLocked(name, routineID string, work func(ctx context.Context) error) *ActiveAction {
	r.nextID++
	s := r.scope
	ctx, cancel := context.WithCancel(s.ctx)
	a := &ActiveAction{
		ID:        r.nextID,
		Name:      name,
		RoutineID: routineID,
		Started:   time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.add(a)
	if lr := r.loaded[routineID]; lr != nil {
		lr.units++
	}

	go func() {
		r.emit(Event{Type: EventUnitStarted, RoutineID: routineID, Unit: name})
		err := work(ctx)
		cancelled := ctx.Err() != nil
		cancel()
		a.err = err
		r.finished(a, err, cancelled)

		r.mu.Lock()
		idle := r.releaseLocked(routineID)
		r.mu.Unlock()
		closeRoutine(idle)

		s.remove(a.ID)
		close(a.done)
	}()
	return a
}

type loadedRoutine struct {
	rt      *routine.Routine
	units   int
	retired bool
}

// retireLocked marks a routine as no longer loaded. It returns the routine
// if nothing of it is still running and it should be closed now.
func (r *Robot) retireLocked(id string) *routine.Routine {
	lr := r.loaded[id]
	if lr == nil {
		return nil
	}
	lr.retired = true
	if lr.units > 0 {
		return nil
	}
	delete(r.loaded, id)
	return lr.rt
}

// releaseLocked records that one unit of a routine has finished. It returns
// the routine if it was retired and that was its last unit.
func (r *Robot) releaseLocked(id string) *routine.Routine {
	lr := r.loaded[id]
	if lr == nil {
		return nil
	}
	lr.units--
	if !lr.retired || lr.units > 0 {
		return nil
	}
	delete(r.loaded, id)
	return lr.rt
}

func closeRoutine(rt *routine.Routine) {
	if rt != nil {
		rt.Close()
	}
}

// finished reports the outcome of a unit. cancelled must be sampled before
// the unit's own context is released.
func (r *Robot) finished(a *ActiveAction, err error, cancelled bool) {
	elapsed := time.Since(a.Started)
	ev := Event{RoutineID: a.RoutineID, Unit: a.Name, Duration: elapsed}

	switch {
	case err == nil:
		ev.Type = EventUnitCompleted
		r.logger.Debug("unit completed", "routine_id", a.RoutineID, "unit", a.Name, "elapsed", elapsed)
	case isCancellation(err, cancelled):
		ev.Type = EventUnitCancelled
		r.logger.Debug("unit cancelled", "routine_id", a.RoutineID, "unit", a.Name)
	default:
		ev.Type = EventUnitFailed
		ev.Error = err.Error()
		r.logger.Error("unit failed", "routine_id", a.RoutineID, "unit", a.Name, "error", err)
	}
	r.emit(ev)
}

// isCancellation reports whether err is the result of the unit being
// cancelled rather than a genuine failure.
func isCancellation(err error, cancelled bool) bool {
	return cancelled || errors.Is(err, context.Canceled)
}

func (r *Robot) observeAction(routineID string, a routine.Action, elapsed time.Duration, err error) {
	if err != nil && errors.Is(err, context.Canceled) {
		return
	}
	ev := Event{
		Type:      EventActionCompleted,
		RoutineID: routineID,
		Action:    a.Kind(),
		Duration:  elapsed,
	}
	if err != nil {
		ev.Type = EventActionFailed
		ev.Error = err.Error()
	}
	r.emit(ev)
}

func (r *Robot) emit(ev Event) {
	ev.RobotID = r.opts.RobotID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	r.sink.Emit(ev)
}

// Mode returns Scripted while a routine is loaded, Manual otherwise.
func (r *Robot) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modeLocked()
}

func (r *Robot) modeLocked() Mode {
	if r.current != nil {
		return ModeScripted
	}
	return ModeManual
}

// Routine returns the loaded routine, or nil.
func (r *Robot) Routine() *routine.Routine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// ActiveActions returns the number of live units.
func (r *Robot) ActiveActions() int {
	r.mu.Lock()
	s := r.scope
	r.mu.Unlock()
	return s.len()
}

// Status returns a snapshot of mode, loaded routine and live unit count.
func (r *Robot) Status() Status {
	r.mu.Lock()
	st := Status{RobotID: r.opts.RobotID, Mode: r.modeLocked()}
	if r.current != nil {
		st.RoutineID = r.current.ID()
	}
	s := r.scope
	r.mu.Unlock()

	st.ActiveActions = s.len()
	return st
}

// WaitIdle blocks until every unit in the current scope has finished.
func (r *Robot) WaitIdle(ctx context.Context) error {
	r.mu.Lock()
	s := r.scope
	r.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return fmt.Errorf("waiting for active actions: %w", err)
	}
	return nil
}
