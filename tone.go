package cs43l22

import (
	"fmt"
	"strconv"
)

// Control identifies a user-adjustable tone control.
type Control int

const (
	ControlBass Control = iota
	ControlTreble
	ControlBassFreq
	ControlTrebleFreq

	ControlCount
)

// String returns the control name.
func (c Control) String() string {
	switch c {
	case ControlBass:
		return "Bass gain"
	case ControlTreble:
		return "Treble gain"
	case ControlBassFreq:
		return "Bass freq"
	case ControlTrebleFreq:
		return "Treble freq"
	default:
		return "Unknown"
	}
}

// Tone gain limits and step. The codec quantises gains to ToneStep.
const (
	ToneStep Decibel = 3 * NativeStep // 1.5 dB
	ToneMax  Decibel = 12 * DecibelUnit
	ToneMin  Decibel = -7 * ToneStep // -10.5 dB

	// ToneFreqCount is the number of selectable corner frequencies per band.
	ToneFreqCount = 4
)

// Corner frequency labels, indexed by ToneSetting.BassFreq and ToneSetting.TrebleFreq.
var (
	BassFreqLabels   = [ToneFreqCount]string{" 50Hz", "100Hz", "200Hz", "250Hz"}
	TrebleFreqLabels = [ToneFreqCount]string{" 5kHz", " 7kHz", "10kHz", "15kHz"}
)

// ToneSetting is the state of the bass and treble controls.
type ToneSetting struct {
	Bass       Decibel
	Treble     Decibel
	BassFreq   int // Index into BassFreqLabels.
	TrebleFreq int // Index into TrebleFreqLabels.
}

// Clamped returns s with every field limited to its documented range.
func (s ToneSetting) Clamped() ToneSetting {
	s.Bass = s.Bass.Clamp(ToneMin, ToneMax)
	s.Treble = s.Treble.Clamp(ToneMin, ToneMax)
	s.BassFreq = min(max(s.BassFreq, 0), ToneFreqCount-1)
	s.TrebleFreq = min(max(s.TrebleFreq, 0), ToneFreqCount-1)

	return s
}

// toneNibble encodes a gain for one half of TONE_CTL: 0x0 is +12 dB, 0x8 is 0 dB, 0xF is -10.5 dB.
func toneNibble(gain Decibel) byte {
	return byte((ToneMax - gain.Clamp(ToneMin, ToneMax)) / ToneStep)
}

// ToneCtlReg encodes the TONE_CTL register: treble gain in bits 7:4, bass gain in bits 3:0.
func (s ToneSetting) ToneCtlReg() byte {
	return toneNibble(s.Treble)<<4 | toneNibble(s.Bass)
}

// BeepToneCfgReg encodes BEEP_TONE_CFG: beep off (bits 7:6 = 00), treble corner in bits 4:3,
// bass corner in bits 2:1 and the tone control enable bit.
func (s ToneSetting) BeepToneCfgReg() byte {
	c := s.Clamped()

	return byte(c.TrebleFreq)<<3 | byte(c.BassFreq)<<1 | TONE_ENABLE
}

// Tone is the tone model driven by the user interface. It saturates at the range limits.
// The zero value is flat (0 dB, lowest corner frequencies).
type Tone struct {
	setting ToneSetting
}

// Setting returns the current setting.
func (t *Tone) Setting() ToneSetting {
	return t.setting
}

// Set replaces the current setting, clamping every field.
func (t *Tone) Set(s ToneSetting) {
	t.setting = s.Clamped()
}

// Increase steps a control up. It reports whether the setting changed.
func (t *Tone) Increase(c Control) bool {
	return t.step(c, 1)
}

// Decrease steps a control down. It reports whether the setting changed.
func (t *Tone) Decrease(c Control) bool {
	return t.step(c, -1)
}

func (t *Tone) step(c Control, dir int) bool {
	prev := t.setting
	s := prev

	switch c {
	case ControlBass:
		s.Bass += Decibel(dir) * ToneStep
	case ControlTreble:
		s.Treble += Decibel(dir) * ToneStep
	case ControlBassFreq:
		s.BassFreq += dir
	case ControlTrebleFreq:
		s.TrebleFreq += dir
	default:
		return false
	}

	t.setting = s.Clamped()

	return t.setting != prev
}

// Format returns the display string of a control, e.g. "  9.0dB", " -1.5dB" or "100Hz".
func (t *Tone) Format(c Control) string {
	switch c {
	case ControlBass:
		return FormatGain(t.setting.Bass)
	case ControlTreble:
		return FormatGain(t.setting.Treble)
	case ControlBassFreq:
		return BassFreqLabels[t.setting.BassFreq]
	case ControlTrebleFreq:
		return TrebleFreqLabels[t.setting.TrebleFreq]
	default:
		return ""
	}
}

// FormatGain renders a gain with one decimal digit in a 7 character field.
// Positive values carry a leading space instead of a plus sign.
func FormatGain(d Decibel) string {
	t := d.Tenths()

	whole := strconv.Itoa(abs(t / 10))
	if t < 0 {
		whole = "-" + whole
	}

	return fmt.Sprintf("%3s.%ddB", whole, abs(t%10))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
