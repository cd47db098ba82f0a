// Package routine provides the action queue that a choreography script builds.
//
// A Routine is produced by executing one script. Executing the script only
// records intentions: actions are appended to an ordered queue and event
// handlers are registered. Nothing touches the hardware until the queue is
// drained.
//
// Architecture:
//
//	┌────────────────────────────────────────────────────────┐
//	│                   Routine (routine.go)                 │
//	│                                                        │
//	│  Enqueue ──▶ syncDepth > 0 ? ──yes──▶ pending          │
//	│                   │                      │             │
//	│                   no          EndSync 1→0│             │
//	│                   ▼                      ▼             │
//	│                 queue ◀──────────── Group{pending}     │
//	│                   │                                    │
//	│                   ▼                                    │
//	│  DrainQueue: actions in order, Group members in        │
//	│  parallel with a barrier before the next action        │
//	└────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Action: a deferred hardware operation (Wait, Speak, SetDigital,
//     MoveActuator, Drive) or a Group of actions run concurrently
//   - Routine: queue, sync nesting and handler registrations
//   - Handler: a registered start or button handler; running it executes
//     its build step and then drains what the build step enqueued
//   - Actuators: the hardware boundary actions are executed against
//
// # Thread Safety
//
// All Routine methods are safe for concurrent use. Handler build steps are
// serialised by the routine, so a build step may call back into
// non-thread-safe script state.
//
// # Failure Semantics
//
// An action error ends the drain that ran it; the remaining actions of that
// drain are dropped. A failing Group member cancels its siblings and the
// Group fails with that member's error. Context cancellation is returned as
// the context error and is not a failure.
//
// # Usage
//
//	r := routine.New(actuators, routine.WithSettleDelay(500*time.Millisecond))
//	_ = r.Speak("hello")
//	_ = r.InSync(func() error {
//	    return r.SetDigital(routine.PartAntenna, routine.SideBoth, routine.StateOn)
//	})
//	if err := r.DrainQueue(ctx); err != nil {
//	    return err
//	}
package routine
