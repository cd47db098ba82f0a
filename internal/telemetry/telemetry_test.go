package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/choreo-core/internal/robot"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

type point struct {
	measurement string
	tags        map[string]string
	fields      map[string]any
	ts          time.Time
}

type mockWriter struct {
	mu     sync.Mutex
	points []point
}

func (m *mockWriter) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, point{measurement, tags, fields, ts})
}

func (m *mockWriter) getPoints() []point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]point(nil), m.points...)
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestSink_Emit(t *testing.T) {
	ts := time.Unix(1760000000, 0)

	tests := []struct {
		name        string
		event       robot.Event
		measurement string
		tags        map[string]string
	}{
		{
			name:        "action completed",
			event:       robot.Event{Type: robot.EventActionCompleted, Action: "speak", Duration: 1500 * time.Millisecond},
			measurement: MeasurementAction,
			tags:        map[string]string{"robot_id": "bot", "kind": "speak", "outcome": "completed"},
		},
		{
			name:        "action failed",
			event:       robot.Event{Type: robot.EventActionFailed, Action: "drive", Duration: 1500 * time.Millisecond},
			measurement: MeasurementAction,
			tags:        map[string]string{"robot_id": "bot", "kind": "drive", "outcome": "failed"},
		},
		{
			name:        "unit cancelled",
			event:       robot.Event{Type: robot.EventUnitCancelled, Unit: "button1", Duration: 1500 * time.Millisecond},
			measurement: MeasurementUnit,
			tags:        map[string]string{"robot_id": "bot", "unit": "button1", "outcome": "cancelled"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := &mockWriter{}
			s := NewSink(w)

			ev := tt.event
			ev.RobotID = "bot"
			ev.RoutineID = "r-1"
			ev.Timestamp = ts
			s.Emit(ev)

			points := w.getPoints()
			if len(points) != 1 {
				t.Fatalf("points = %d, want 1", len(points))
			}
			p := points[0]
			if p.measurement != tt.measurement {
				t.Errorf("measurement = %q, want %q", p.measurement, tt.measurement)
			}
			for k, v := range tt.tags {
				if p.tags[k] != v {
					t.Errorf("tag %s = %q, want %q", k, p.tags[k], v)
				}
			}
			if len(p.tags) != len(tt.tags) {
				t.Errorf("tags = %v, want %v", p.tags, tt.tags)
			}
			if p.fields["duration_ms"] != 1500.0 {
				t.Errorf("duration_ms = %v, want 1500", p.fields["duration_ms"])
			}
			if p.fields["routine_id"] != "r-1" {
				t.Errorf("routine_id = %v, want r-1", p.fields["routine_id"])
			}
			if !p.ts.Equal(ts) {
				t.Errorf("ts = %v, want %v", p.ts, ts)
			}
		})
	}
}

func TestSink_IgnoresUntimedEvents(t *testing.T) {
	w := &mockWriter{}
	s := NewSink(w)

	for _, typ := range []string{
		robot.EventRoutineLoaded,
		robot.EventRoutineRejected,
		robot.EventRoutineStopped,
		robot.EventUnitStarted,
		robot.EventModeChanged,
	} {
		s.Emit(robot.Event{Type: typ, RobotID: "bot"})
	}

	if n := len(w.getPoints()); n != 0 {
		t.Errorf("points = %d, want 0", n)
	}
}
