// Package gpio drives the chassis calibration noise source on boards that
// expose it through the host's own GPIO controller rather than through the
// tuner vendor driver or an external I2C controller.
package gpio

/*------------------------------------------------------------------
 *
 * Purpose:	Drive a single GPIO output line on or off, the same shape
 *		as a push-to-talk output line, but switching the chassis'
 *		calibration noise source rather than keying a transmitter.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// outputLine is the slice of *gpiocdev.Line's method set NoiseSource needs;
// narrowing it to an interface lets tests substitute a fake line instead of
// requesting a real chip.
type outputLine interface {
	SetValue(value int) error
	Close() error
}

// NoiseSource wraps one requested GPIO output line.
type NoiseSource struct {
	line outputLine
}

// Open requests offset on chip (e.g. "gpiochip0") as an output, initially
// low.
func Open(chip string, offset int) (*NoiseSource, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("gpio: requesting %s:%d: %w", chip, offset, err)
	}

	return &NoiseSource{line: line}, nil
}

// newWithLine is used by tests to inject a fake line.
func newWithLine(line outputLine) *NoiseSource {
	return &NoiseSource{line: line}
}

// SetState drives the line high (on) or low (off). It satisfies
// acq.NoiseSourceController.
func (n *NoiseSource) SetState(_ context.Context, on bool) error {
	value := 0
	if on {
		value = 1
	}

	if err := n.line.SetValue(value); err != nil {
		return fmt.Errorf("gpio: set value: %w", err)
	}

	return nil
}

// Close releases the requested line.
func (n *NoiseSource) Close() error {
	return n.line.Close()
}
