package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/choreo-core/internal/robot"
)

const (
	recorderBuffer = 64
	insertTimeout  = 5 * time.Second
)

// Logger is the logging interface used by the recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder is a robot.EventSink that stores routine events as runs. Events
// are written by a background goroutine; when its buffer is full further
// events are dropped with a warning.
type Recorder struct {
	repo   Repository
	logger Logger
	ch     chan Run
}

// NewRecorder creates a recorder writing to repo. Call Run to start it.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
		ch:     make(chan Run, recorderBuffer),
	}
}

// Emit implements robot.EventSink.
func (r *Recorder) Emit(ev robot.Event) {
	var status string
	switch ev.Type {
	case robot.EventRoutineLoaded:
		status = StatusLoaded
	case robot.EventRoutineRejected:
		status = StatusRejected
	case robot.EventRoutineStopped:
		status = StatusStopped
	default:
		return
	}

	run := Run{
		ID:         uuid.NewString(),
		RoutineID:  ev.RoutineID,
		Status:     status,
		Error:      ev.Error,
		ScriptSize: ev.ScriptSize,
		CreatedAt:  ev.Timestamp,
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	select {
	case r.ch <- run:
	default:
		r.logger.Warn("run history buffer full, dropping entry", "status", status)
	}
}

// Run writes buffered entries until ctx is cancelled, then flushes what is
// still buffered.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case run := <-r.ch:
			r.insert(run)
		case <-ctx.Done():
			for {
				select {
				case run := <-r.ch:
					r.insert(run)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) insert(run Run) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()
	if err := r.repo.Insert(ctx, run); err != nil {
		r.logger.Error("recording run", "status", run.Status, "error", err)
	}
}
