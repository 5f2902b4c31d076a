package cs43l22

import (
	"encoding/binary"
	"sync/atomic"
)

const (
	// MeterScale maps the average peak onto the 0..9 duty counter. A full-scale signal settles just below 10 steps,
	// so the output is on for 9 of every 10 refills.
	MeterScale = 3277
	// meterCycle is the length of the duty cycle in refills.
	meterCycle = 10
)

// Meter derives a crude loudness indicator from the refilled halves.
// The average is a one-pole decay of the per-half peak, and the output is a pulse-density bit whose duty ratio
// follows the average. It is observational only and never feeds back into the audio.
//
// Update runs in completion context. Level, On and Reset are safe from any goroutine.
type Meter struct {
	pin     Pin
	avg     atomic.Int32
	counter atomic.Int32
	on      atomic.Bool
}

// NewMeter creates a meter that drives pin, which may be nil.
func NewMeter(pin Pin) *Meter {
	if pin == nil {
		pin = NoPin
	}

	return &Meter{pin: pin}
}

// Update scans one half of interleaved 16-bit little-endian samples and advances the meter by one step.
func (m *Meter) Update(half []byte) {
	peak := int32(0)
	for i := 0; i+1 < len(half); i += BytesPerSample {
		s := int32(int16(binary.LittleEndian.Uint16(half[i:])))
		if s < 0 {
			s = -s
		}
		peak = max(peak, s)
	}

	avg := (9*m.avg.Load() + peak) / 10
	m.avg.Store(avg)

	counter := m.counter.Load()
	on := avg/MeterScale > counter
	m.counter.Store((counter + 1) % meterCycle)

	m.on.Store(on)
	m.pin.Set(on)
}

// Reset clears the average and the duty counter and turns the output off.
func (m *Meter) Reset() {
	m.avg.Store(0)
	m.counter.Store(0)
	m.on.Store(false)
	m.pin.Set(false)
}

// Level returns the running average of the peak magnitude, 0..32768.
func (m *Meter) Level() int {
	return int(m.avg.Load())
}

// On returns the current output bit.
func (m *Meter) On() bool {
	return m.on.Load()
}

// Duty returns the fraction of a cycle the output is on at the current level, 0..1.
func (m *Meter) Duty() float64 {
	steps := min(int(m.avg.Load())/MeterScale, meterCycle)

	return float64(steps) / meterCycle
}
