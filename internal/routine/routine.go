package routine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSettleDelay is how long an arm move is given to complete.
const DefaultSettleDelay = 500 * time.Millisecond

// BuildFunc is the synchronous part of a handler. It runs script code which
// may enqueue further actions on the routine.
type BuildFunc func(ctx context.Context) error

// Observer is told about every action a drain finishes, including Group
// members. err is nil on success and the context error on cancellation.
type Observer func(a Action, elapsed time.Duration, err error)

// Option configures a Routine.
type Option func(*Routine)

// WithSettleDelay sets the delay that follows every arm move.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Routine) { r.settle = d }
}

// WithDriveSpeed scales the wheel speeds used by timed drives.
func WithDriveSpeed(speed float64) Option {
	return func(r *Routine) { r.driveSpeed = speed }
}

// WithObserver installs an action observer.
func WithObserver(fn Observer) Option {
	return func(r *Routine) { r.observe = fn }
}

// Routine holds the action queue, sync nesting and handler registrations
// produced by one script execution.
type Routine struct {
	id         string
	hw         Actuators
	settle     time.Duration
	driveSpeed float64
	observe    Observer

	mu        sync.Mutex
	queue     []Action
	pending   []Action
	syncDepth int
	onStarted []*Handler
	onButton  map[int][]*Handler

	// buildMu serialises handler build steps and Close.
	buildMu sync.Mutex
	closed  bool
	closers []func()
}

// New creates an empty routine executing against hw.
func New(hw Actuators, opts ...Option) *Routine {
	r := &Routine{
		id:         uuid.NewString(),
		hw:         hw,
		settle:     DefaultSettleDelay,
		driveSpeed: 1,
		onButton:   make(map[int][]*Handler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the routine's unique identifier.
func (r *Routine) ID() string {
	return r.id
}

// OnClose registers fn to run when the routine is closed.
func (r *Routine) OnClose(fn func()) {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	r.closers = append(r.closers, fn)
}

// Close waits for any build step in progress and releases what the script
// left behind. Handlers run after Close fail with ErrClosed. Close is
// idempotent.
func (r *Routine) Close() {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, fn := range r.closers {
		fn()
	}
	r.closers = nil
}

// ─── Queue ──────────────────────────────────────────────────────────

// Enqueue appends an action to the queue, or to the pending group while a
// sync scope is open.
func (r *Routine) Enqueue(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.syncDepth > 0 {
		r.pending = append(r.pending, a)
		return
	}
	r.queue = append(r.queue, a)
}

// BeginSync opens a sync scope. Scopes nest; only the outermost EndSync
// produces a Group.
func (r *Routine) BeginSync() {
	r.mu.Lock()
	r.syncDepth++
	r.mu.Unlock()
}

// EndSync closes a sync scope. Closing the outermost scope moves the pending
// actions into a single Group at the end of the queue. An empty scope adds
// nothing. Calling EndSync without an open scope does nothing.
func (r *Routine) EndSync() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.syncDepth == 0 {
		return
	}
	r.syncDepth--
	if r.syncDepth > 0 {
		return
	}
	if len(r.pending) > 0 {
		r.queue = append(r.queue, Group{Actions: r.pending})
	}
	r.pending = nil
}

// InSync runs fn inside a sync scope. The scope is closed on every exit
// path, including a panic raised by fn.
func (r *Routine) InSync(fn func() error) error {
	r.BeginSync()
	defer r.EndSync()
	return fn()
}

// Len returns the number of queued actions, excluding pending ones.
func (r *Routine) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// TakeQueue removes and returns every queued action.
func (r *Routine) TakeQueue() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := r.queue
	r.queue = nil
	return batch
}

// DrainQueue runs every queued action in order and leaves the queue empty.
// The queue may be filled and drained again afterwards.
func (r *Routine) DrainQueue(ctx context.Context) error {
	return r.RunActions(ctx, r.TakeQueue())
}

// RunActions runs batch in order, stopping at the first error.
func (r *Routine) RunActions(ctx context.Context, batch []Action) error {
	for _, a := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.execute(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *Routine) execute(ctx context.Context, a Action) error {
	start := time.Now()
	var err error
	if g, ok := a.(Group); ok {
		err = runGroup(ctx, g, r.execute)
	} else {
		err = a.Run(ctx, r.hw)
	}
	if r.observe != nil {
		r.observe(a, time.Since(start), err)
	}
	return err
}

// ─── Operations ─────────────────────────────────────────────────────

// Wait enqueues a pause.
func (r *Routine) Wait(d time.Duration) error {
	if d < 0 {
		return invalid("duration", d)
	}
	r.Enqueue(Wait{Duration: d})
	return nil
}

// Speak enqueues an utterance.
func (r *Routine) Speak(text string) error {
	r.Enqueue(Speak{Text: text})
	return nil
}

// SetDigital enqueues a digital output change. SideBoth enqueues the left
// and right changes as one Group.
func (r *Routine) SetDigital(part Part, side Side, state State) error {
	if !part.Digital() {
		return fmt.Errorf("%w: %w", invalid("part", part), ErrNotDigital)
	}
	if state != StateOn && state != StateOff {
		return invalid("state", state)
	}
	return r.sided(side, func(s Side) {
		r.Enqueue(SetDigital{Target: Target{Part: part, Side: s}, On: state == StateOn})
	})
}

// MoveActuator enqueues an arm move. SideBoth enqueues both arms as one Group.
func (r *Routine) MoveActuator(part Part, side Side, angle float64) error {
	if !part.Angular() {
		return fmt.Errorf("%w: %w", invalid("part", part), ErrNotAngular)
	}
	if angle < -180 || angle > 180 {
		return invalid("angle", angle)
	}
	return r.sided(side, func(s Side) {
		r.Enqueue(MoveActuator{Target: Target{Part: part, Side: s}, Angle: angle, Settle: r.settle})
	})
}

// Drive enqueues a timed drive in the given direction.
func (r *Routine) Drive(direction Direction, d time.Duration) error {
	if direction < DirectionForward || direction > DirectionCounterclockwise {
		return invalid("direction", direction)
	}
	if d < 0 {
		return invalid("duration", d)
	}
	left, right := direction.wheels()
	r.Enqueue(Drive{Left: left * r.driveSpeed, Right: right * r.driveSpeed, Duration: d})
	return nil
}

// sided calls enqueue once for a single side, or for left then right inside
// a sync scope when side is SideBoth.
func (r *Routine) sided(side Side, enqueue func(Side)) error {
	switch side {
	case SideLeft, SideRight:
		enqueue(side)
		return nil
	case SideBoth:
		return r.InSync(func() error {
			enqueue(SideLeft)
			enqueue(SideRight)
			return nil
		})
	default:
		return invalid("side", side)
	}
}
