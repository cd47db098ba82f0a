// Package telemetry turns robot events into time-series points.
//
// Only terminal events carry timing, so only action.* and the terminal
// unit.* events become points:
//
//	action  tags: robot_id, kind, outcome   fields: duration_ms
//	unit    tags: robot_id, unit, outcome   fields: duration_ms
package telemetry

import (
	"strings"
	"time"

	"github.com/nerrad567/choreo-core/internal/robot"
)

// Measurement names.
const (
	MeasurementAction = "action"
	MeasurementUnit   = "unit"
)

// Writer queues a point without blocking.
type Writer interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// Sink is a robot.EventSink that writes timing points.
type Sink struct {
	w Writer
}

// NewSink creates a Sink writing to w.
func NewSink(w Writer) *Sink {
	return &Sink{w: w}
}

// Emit implements robot.EventSink.
func (s *Sink) Emit(ev robot.Event) {
	measurement, tags, ok := pointFor(ev)
	if !ok {
		return
	}
	tags["robot_id"] = ev.RobotID
	fields := map[string]any{
		"duration_ms": float64(ev.Duration) / float64(time.Millisecond),
	}
	if ev.RoutineID != "" {
		fields["routine_id"] = ev.RoutineID
	}
	s.w.WritePoint(measurement, tags, fields, ev.Timestamp)
}

func pointFor(ev robot.Event) (string, map[string]string, bool) {
	switch ev.Type {
	case robot.EventActionCompleted, robot.EventActionFailed:
		return MeasurementAction, map[string]string{
			"kind":    ev.Action,
			"outcome": outcome(ev.Type),
		}, true
	case robot.EventUnitCompleted, robot.EventUnitFailed, robot.EventUnitCancelled:
		return MeasurementUnit, map[string]string{
			"unit":    ev.Unit,
			"outcome": outcome(ev.Type),
		}, true
	default:
		return "", nil, false
	}
}

// outcome is the part of the event type after the dot.
func outcome(eventType string) string {
	_, after, _ := strings.Cut(eventType, ".")
	return after
}
