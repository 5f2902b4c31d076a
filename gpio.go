package cs43l22

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// DefaultGPIOChip is the GPIO character device used when none is given.
const DefaultGPIOChip = "gpiochip0"

// gpioConsumer labels the requested lines in the kernel's GPIO line info.
const gpioConsumer = "cs43l22"

// outputLine is the part of *gpiocdev.Line a LinePin drives.
type outputLine interface {
	SetValue(value int) error
	Close() error
}

// LinePin is a Pin backed by a line of a Linux GPIO character device (/dev/gpiochipN).
type LinePin struct {
	mu   sync.Mutex
	line outputLine
	err  error
}

// OpenLinePin requests line offset of chip as an output, driven low until the first Set.
// chip is a device name such as "gpiochip0" or a path under /dev.
func OpenLinePin(chip string, offset int) (*LinePin, error) {
	if chip == "" {
		chip = DefaultGPIOChip
	}

	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(gpioConsumer))
	if err != nil {
		return nil, fmt.Errorf("failed to request %s line %d: %w", chip, offset, err)
	}

	return &LinePin{line: line}, nil
}

// Set implements Pin. The first error is kept and reported by Err.
func (p *LinePin) Set(high bool) {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.line == nil {
		return
	}

	v := 0
	if high {
		v = 1
	}

	if err := p.line.SetValue(v); err != nil && p.err == nil {
		p.err = err
	}
}

// Err returns the first error seen by Set.
func (p *LinePin) Err() error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

// Close releases the line. Later calls to Set are ignored.
func (p *LinePin) Close() error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.line == nil {
		return nil
	}

	err := p.line.Close()
	p.line = nil

	return err
}
