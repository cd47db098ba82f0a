// Package robot orchestrates routines, cancellation and drive arbitration.
//
// A Robot owns the actuator set, at most one loaded routine and a scope of
// ActiveActions: independent units of work such as draining a routine's
// top-level queue or running its start handlers.
//
// # Modes
//
//	Manual    no routine loaded; joystick axes drive the wheels directly
//	Scripted  a routine is loaded; axes are ignored, buttons run handlers
//
// HandleRun moves to Scripted when a script is accepted. HandleStop (or the
// stop button) clears the routine and returns to Manual. Finishing every
// queued action does not change the mode.
//
// # Cancellation
//
// Every ActiveAction runs under a context derived from the Robot's current
// scope. HandleStop replaces the scope with a fresh one and cancels the old
// one, so every unit started before the STOP is abandoned at its next
// suspension point, whichever routine issued it.
//
// # Usage
//
//	r := robot.New(hw, robot.Options{RobotID: "choreo-1", Sink: fanout})
//	r.AttachInput(joystick, robot.DefaultInputBinding())
//	if err := r.HandleRun(ctx, source); err != nil {
//	    // err is a *script.Error; the previous routine is untouched
//	}
//	r.HandleStop()
package robot
