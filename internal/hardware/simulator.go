package hardware

import "sync"

// Simulator stands in for the board on machines without one. It keeps the
// last value written to every channel and pin.
type Simulator struct {
	logger Logger

	mu   sync.Mutex
	duty map[int]float64
	pins map[string]byte
}

// NewSimulator creates a Simulator that logs writes at debug level.
func NewSimulator(logger Logger) *Simulator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Simulator{
		logger: logger,
		duty:   make(map[int]float64),
		pins:   make(map[string]byte),
	}
}

// SetDuty records a channel write.
func (s *Simulator) SetDuty(channel int, duty float64) error {
	s.mu.Lock()
	s.duty[channel] = duty
	s.mu.Unlock()
	s.logger.Debug("sim pwm", "channel", channel, "duty", duty)
	return nil
}

// Duty returns the last duty written to channel.
func (s *Simulator) Duty(channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duty[channel]
}

// Pin returns a simulated output line.
func (s *Simulator) Pin(name string) Pin {
	return simPin{sim: s, name: name}
}

// Level returns the last level written to pin name.
func (s *Simulator) Level(name string) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pins[name]
}

type simPin struct {
	sim  *Simulator
	name string
}

func (p simPin) DigitalWrite(level byte) error {
	p.sim.mu.Lock()
	p.sim.pins[p.name] = level
	p.sim.mu.Unlock()
	p.sim.logger.Debug("sim pin", "pin", p.name, "level", level)
	return nil
}
