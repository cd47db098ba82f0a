package hardware

import (
	"errors"
	"fmt"
	"math"

	"gobot.io/x/gobot/drivers/gpio"
	"gobot.io/x/gobot/drivers/i2c"
	"gobot.io/x/gobot/platforms/raspi"

	"github.com/nerrad567/choreo-core/internal/infrastructure/config"
)

// pwmResolution is the PCA9685 counter range.
const pwmResolution = 4095

// Board is the Raspberry Pi with a PCA9685 PWM controller on I2C.
type Board struct {
	adaptor *raspi.Adaptor
	pca     *i2c.PCA9685Driver
}

// OpenBoard connects to the Pi header and initialises the PCA9685.
//
// Parameters:
//   - cfg: PCA9685 bus, address and PWM frequency
//
// Returns:
//   - *Board: Connected board; Close must be called on shutdown
//   - error: ErrBoard wrapping the driver failure
func OpenBoard(cfg config.PCA9685Config) (*Board, error) {
	adaptor := raspi.NewAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connecting raspi adaptor: %w", ErrBoard, err)
	}

	pca := i2c.NewPCA9685Driver(adaptor,
		i2c.WithBus(cfg.Bus),
		i2c.WithAddress(cfg.Address),
	)
	if err := pca.Start(); err != nil {
		_ = adaptor.Finalize() //nolint:errcheck // already failing
		return nil, fmt.Errorf("%w: starting pca9685 at 0x%02x: %w", ErrBoard, cfg.Address, err)
	}
	if err := pca.SetPWMFreq(float32(cfg.Frequency)); err != nil {
		_ = adaptor.Finalize() //nolint:errcheck // already failing
		return nil, fmt.Errorf("%w: setting pwm frequency: %w", ErrBoard, err)
	}

	return &Board{adaptor: adaptor, pca: pca}, nil
}

// SetDuty sets a PCA9685 channel's duty cycle.
func (b *Board) SetDuty(channel int, duty float64) error {
	return b.pca.SetPWM(channel, 0, dutyTicks(duty))
}

// Pin returns the digital output on a header pin (physical numbering).
func (b *Board) Pin(name string) Pin {
	return gpio.NewDirectPinDriver(b.adaptor, name)
}

// Close stops the PWM outputs and releases the adaptor.
func (b *Board) Close() error {
	return errors.Join(b.pca.Halt(), b.adaptor.Finalize())
}

func dutyTicks(duty float64) uint16 {
	duty = math.Max(0, math.Min(1, duty))
	return uint16(math.Round(duty * pwmResolution))
}
