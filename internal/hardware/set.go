package hardware

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/nerrad567/choreo-core/internal/infrastructure/config"
	"github.com/nerrad567/choreo-core/internal/routine"
)

// PWM drives channels of a PWM controller. duty is the on fraction, 0..1.
type PWM interface {
	SetDuty(channel int, duty float64) error
}

// Pin is a digital output line.
type Pin interface {
	DigitalWrite(level byte) error
}

// Speaker speaks text, returning when it has finished.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// Logger is the logging interface used by the hardware package.
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

// Set is the robot's actuator set. It implements routine.Actuators.
type Set struct {
	pwm     PWM
	pins    map[routine.Target]Pin
	arms    map[routine.Side]config.ArmConfig
	wheels  config.WheelsConfig
	pulse   config.ServoPulseConfig
	period  float64 // PWM period in microseconds
	speaker Speaker
	logger  Logger

	mu sync.Mutex
}

// PinSource returns the output line for a header pin name.
type PinSource func(name string) Pin

// NewSet wires pwm, pins and speaker according to cfg.
//
// Parameters:
//   - cfg: Hardware configuration (channels, pins, servo pulse range)
//   - pwm: PWM controller carrying the wheels and arms
//   - pin: Looks up digital outputs by header pin name
//   - speaker: Speech synthesiser
//   - logger: Logger (may be nil)
func NewSet(cfg config.HardwareConfig, pwm PWM, pin PinSource, speaker Speaker, logger Logger) *Set {
	if logger == nil {
		logger = noopLogger{}
	}
	s := &Set{
		pwm:     pwm,
		pins:    make(map[routine.Target]Pin),
		arms:    map[routine.Side]config.ArmConfig{routine.SideLeft: cfg.Arms.Left, routine.SideRight: cfg.Arms.Right},
		wheels:  cfg.Wheels,
		pulse:   cfg.Servo,
		period:  1e6 / cfg.PCA.Frequency,
		speaker: speaker,
		logger:  logger,
	}

	lights := map[routine.Target]string{
		{Part: routine.PartAntenna, Side: routine.SideLeft}:  cfg.Lights.LeftAntenna,
		{Part: routine.PartAntenna, Side: routine.SideRight}: cfg.Lights.RightAntenna,
		{Part: routine.PartEye, Side: routine.SideLeft}:      cfg.Lights.LeftEye,
		{Part: routine.PartEye, Side: routine.SideRight}:     cfg.Lights.RightEye,
	}
	for target, name := range lights {
		if name != "" {
			s.pins[target] = pin(name)
		}
	}
	return s
}

// SetDigital switches a light.
func (s *Set) SetDigital(target routine.Target, on bool) error {
	p, ok := s.pins[target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	var level byte
	if on {
		level = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := p.DigitalWrite(level); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	s.logger.Debug("digital output set", "target", target.String(), "on", on)
	return nil
}

// MoveActuator moves an arm to angle degrees, where 0 points straight out,
// 90 up and -90 down.
func (s *Set) MoveActuator(target routine.Target, angle float64) error {
	arm, ok := s.arms[target.Side]
	if target.Part != routine.PartArm || !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}

	servo := arm.Center + angle
	if arm.Invert {
		servo = arm.Center - angle
	}
	duty := s.servoDuty(servo)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pwm.SetDuty(arm.Channel, duty); err != nil {
		return fmt.Errorf("moving %s: %w", target, err)
	}
	s.logger.Debug("arm moved", "target", target.String(), "angle", angle, "servo", servo)
	return nil
}

// servoDuty converts a servo angle (0..180, clamped) to a duty cycle.
func (s *Set) servoDuty(angle float64) float64 {
	angle = math.Max(0, math.Min(180, angle))
	pulse := float64(s.pulse.MinPulse) + angle/180*float64(s.pulse.MaxPulse-s.pulse.MinPulse)
	return pulse / s.period
}

// Drive sets both wheel speeds, each -1..1 (clamped).
func (s *Set) Drive(left, right float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wheel(s.wheels.LeftForward, s.wheels.LeftBackward, left); err != nil {
		return fmt.Errorf("left wheel: %w", err)
	}
	if err := s.wheel(s.wheels.RightForward, s.wheels.RightBackward, right); err != nil {
		return fmt.Errorf("right wheel: %w", err)
	}
	return nil
}

// Stop halts both wheels.
func (s *Set) Stop() error {
	return s.Drive(0, 0)
}

// wheel drives one H-bridge: the forward input carries positive speeds and
// the backward input negative ones.
func (s *Set) wheel(forward, backward int, speed float64) error {
	speed = math.Max(-1, math.Min(1, speed))
	fwd, back := math.Max(speed, 0), math.Max(-speed, 0)
	if err := s.pwm.SetDuty(forward, fwd); err != nil {
		return err
	}
	return s.pwm.SetDuty(backward, back)
}

// Synthesize speaks text. It is not serialised with the bus writes.
func (s *Set) Synthesize(ctx context.Context, text string) error {
	return s.speaker.Say(ctx, text)
}

// Reset switches every light off, centres the arms and stops the wheels.
func (s *Set) Reset() error {
	for target := range s.pins {
		if err := s.SetDigital(target, false); err != nil {
			return err
		}
	}
	for _, side := range []routine.Side{routine.SideLeft, routine.SideRight} {
		if err := s.MoveActuator(routine.Target{Part: routine.PartArm, Side: side}, 0); err != nil {
			return err
		}
	}
	return s.Stop()
}

var _ routine.Actuators = (*Set)(nil)
