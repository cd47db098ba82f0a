package robot

import (
	"sync"
	"time"
)

// Event types emitted by the Robot.
const (
	EventRoutineLoaded   = "routine.loaded"
	EventRoutineRejected = "routine.rejected"
	EventRoutineStopped  = "routine.stopped"
	EventUnitStarted     = "unit.started"
	EventUnitCompleted   = "unit.completed"
	EventUnitFailed      = "unit.failed"
	EventUnitCancelled   = "unit.cancelled"
	EventActionCompleted = "action.completed"
	EventActionFailed    = "action.failed"
	EventModeChanged     = "mode.changed"
)

// Event describes something that happened to the robot.
type Event struct {
	Type       string        `json:"type"`
	RobotID    string        `json:"robot_id"`
	RoutineID  string        `json:"routine_id,omitempty"`
	Unit       string        `json:"unit,omitempty"`
	Action     string        `json:"action,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns,omitempty"`
	Mode       Mode          `json:"mode,omitempty"`
	ScriptSize int           `json:"script_size,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// EventSink receives robot events. Emit is called from the goroutine that
// caused the event and must not block.
type EventSink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ev Event)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev Event) { f(ev) }

type discardSink struct{}

func (discardSink) Emit(Event) {}

// Fanout delivers every event to each of its sinks in order.
//
// Thread Safety: Add and Emit are safe for concurrent use.
type Fanout struct {
	mu    sync.RWMutex
	sinks []EventSink
}

// NewFanout creates a fan-out over sinks. Nil sinks are skipped.
func NewFanout(sinks ...EventSink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		f.Add(s)
	}
	return f
}

// Add appends a sink.
func (f *Fanout) Add(s EventSink) {
	if s == nil {
		return
	}
	f.mu.Lock()
	f.sinks = append(f.sinks, s)
	f.mu.Unlock()
}

// Emit delivers ev to every sink.
func (f *Fanout) Emit(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.sinks {
		s.Emit(ev)
	}
}
