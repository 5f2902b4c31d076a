package cs43l22

import (
	"fmt"
	"time"
)

// BytesPerSample is the size of one sample on the serial audio bus (16-bit).
const BytesPerSample = 2

// Config describes the sample stream feeding the serial audio bus.
// One half of the transfer buffer holds exactly one Period of audio.
type Config struct {
	Rate     uint32        // Frames per second, e.g. 48000.
	Channels uint32        // Interleaved channels per frame.
	Period   time.Duration // Refill period, the time it takes to transmit one half.
}

// DefaultConfig returns 48 kHz stereo with the 1 ms USB frame period.
func DefaultConfig() Config {
	return Config{
		Rate:     48000,
		Channels: 2,
		Period:   time.Millisecond,
	}
}

// Validate reports whether the configuration describes a usable buffer.
func (c Config) Validate() error {
	if c.Rate == 0 || c.Channels == 0 || c.Period <= 0 {
		return fmt.Errorf("%w: Rate=%d, Channels=%d, Period=%v", ErrInvalidConfig, c.Rate, c.Channels, c.Period)
	}

	if c.FramesPerPeriod() == 0 {
		return fmt.Errorf("%w: period %v is shorter than one frame at %d Hz", ErrInvalidConfig, c.Period, c.Rate)
	}

	return nil
}

// FramesPerPeriod returns the number of frames transmitted per period.
func (c Config) FramesPerPeriod() uint32 {
	return uint32(uint64(c.Rate) * uint64(c.Period) / uint64(time.Second))
}

// FrameSize returns the size of a single frame in bytes.
func (c Config) FrameSize() uint32 {
	return c.Channels * BytesPerSample
}

// HalfBytes returns the size of one half of the transfer buffer in bytes.
func (c Config) HalfBytes() int {
	return int(c.FramesPerPeriod() * c.FrameSize())
}

// BufferBytes returns the size of the whole transfer buffer in bytes.
func (c Config) BufferBytes() int {
	return 2 * c.HalfBytes()
}
