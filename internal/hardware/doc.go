// Package hardware implements the robot's actuator set.
//
// A Set maps the logical targets used by routines (left_antenna, right_arm,
// ...) onto physical outputs:
//
//	┌──────────────┐   SetDigital    ┌──────────────────────┐
//	│              │ ──────────────▶ │ Pins (GPIO header)   │
//	│              │   MoveActuator  ├──────────────────────┤
//	│     Set      │ ──────────────▶ │ PWM ch 4,5 (servos)  │
//	│  (set.go)    │   Drive/Stop    ├──────────────────────┤
//	│              │ ──────────────▶ │ PWM ch 0-3 (wheels)  │
//	│              │   Synthesize    ├──────────────────────┤
//	│              │ ──────────────▶ │ Speaker (espeak)     │
//	└──────────────┘                 └──────────────────────┘
//
// Two backends provide the PWM channels and pins: Board drives a PCA9685
// and the Raspberry Pi header through gobot, and Simulator records and
// logs every write for development machines.
//
// # Thread Safety
//
// Set serialises all bus writes, so group members running in parallel and
// the joystick drive path may call it concurrently.
package hardware
