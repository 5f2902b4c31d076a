// Package cs43l22 drives the audio output path of a USB audio class device built around a Cirrus Logic CS43L22 DAC,
// modeled after the STM32F4-Discovery audio firmware.
//
// The codec is controlled over a two-wire (I2C) register bus and fed over a serial audio (I2S) bus by a circular,
// double-buffered transfer: while one half of the buffer is being transmitted, the other half is refilled from the
// sample source.
package cs43l22

// Address is the 7-bit I2C address of the codec (0x94 in 8-bit write form).
const Address uint16 = 0x4A

// Register is a codec register offset.
type Register = byte

// Codec register map, as named in the CS43L22 datasheet.
const (
	REG_ID               Register = 0x01
	REG_POWER_CTL1       Register = 0x02
	REG_POWER_CTL2       Register = 0x04
	REG_CLOCKING_CTL     Register = 0x05
	REG_INTERFACE_CTL1   Register = 0x06
	REG_INTERFACE_CTL2   Register = 0x07
	REG_PASSTHR_A_SELECT Register = 0x08
	REG_PASSTHR_B_SELECT Register = 0x09
	REG_ANALOG_ZC_SR     Register = 0x0A
	REG_PASSTHR_GANG_CTL Register = 0x0C
	REG_PLAYBACK_CTL1    Register = 0x0D
	REG_MISC_CTL         Register = 0x0E
	REG_PLAYBACK_CTL2    Register = 0x0F
	REG_PASSTHR_A_VOL    Register = 0x14
	REG_PASSTHR_B_VOL    Register = 0x15
	REG_PCMA_VOL         Register = 0x1A
	REG_PCMB_VOL         Register = 0x1B
	REG_BEEP_FREQ_ON     Register = 0x1C
	REG_BEEP_VOL_OFF     Register = 0x1D
	REG_BEEP_TONE_CFG    Register = 0x1E
	REG_TONE_CTL         Register = 0x1F
	REG_MASTER_A_VOL     Register = 0x20
	REG_MASTER_B_VOL     Register = 0x21
	REG_HP_A_VOL         Register = 0x22
	REG_HP_B_VOL         Register = 0x23
	REG_SPEAK_A_VOL      Register = 0x24
	REG_SPEAK_B_VOL      Register = 0x25
	REG_CH_MIXER_SWAP    Register = 0x26
	REG_LIMIT_CTL1       Register = 0x27
	REG_LIMIT_CTL2       Register = 0x28
	REG_LIMIT_ATTACK     Register = 0x29
	REG_STATUS           Register = 0x2E
	REG_BATTERY_COMP     Register = 0x2F
	REG_VP_BATTERY_LEVEL Register = 0x30
	REG_SPEAKER_STATUS   Register = 0x31
	REG_CHARGE_PUMP_FREQ Register = 0x34
)

// Register values used by the power sequence.
const (
	// POWER_CTL1 values.
	POWER_DOWN     byte = 0x01 // Powered down, registers retained.
	POWER_UP       byte = 0x9E // Powered up.
	POWER_DOWN_ALT byte = 0x9F // Powered down, used by the shutdown sequence.

	// POWER_CTL2: headphone channels always on, speaker channels always off.
	OUTPUT_HEADPHONE byte = 0xAF

	// CLOCKING_CTL: auto-detect speed mode.
	CLOCK_AUTO_DETECT byte = 0x80

	// INTERFACE_CTL1 fields.
	IFACE_SLAVE     byte = 0x00
	IFACE_I2S       byte = 0x04 // DACDIF = 01, I2S up to 24-bit.
	IFACE_WORD_16   byte = 0x03 // AWL = 11, 16-bit data.
	IFACE_DEFAULT   byte = IFACE_SLAVE | IFACE_I2S | IFACE_WORD_16
	ZC_SR_DISABLED  byte = 0x00 // ANALOG_ZC_SR with soft ramp and zero cross off.
	ZC_SR_RESET     byte = 0xA5 // ANALOG_ZC_SR power-on value.
	PLAYBACK2_RESET byte = 0x00 // PLAYBACK_CTL2 power-on value, all outputs unmuted.
	PCM_MUTE_BIT    byte = 0x80 // PCMx_VOL bit 7.
	PCM_VOL_MASK    byte = 0x7F
	HP_MUTE_BITS    byte = 0xC0 // PLAYBACK_CTL2 HPB/HPA mute.
	SPEAK_MUTE_BITS byte = 0x30 // PLAYBACK_CTL2 SPKB/SPKA mute.
	TONE_ENABLE     byte = 0x01 // BEEP_TONE_CFG TCEN.

	// CHIP_ID is the value of the ID register bits 7:3.
	CHIP_ID byte = 0x1C
)

// initSequence is the power-up write order. The final power-on must follow all routing and format writes,
// otherwise the codec does not lock to the serial clock.
var initSequence = []struct {
	name string
	reg  Register
	val  byte
}{
	{"power off outputs", REG_POWER_CTL1, POWER_DOWN},
	{"output routing", REG_POWER_CTL2, OUTPUT_HEADPHONE},
	{"clock auto-detect", REG_CLOCKING_CTL, CLOCK_AUTO_DETECT},
	{"interface format", REG_INTERFACE_CTL1, IFACE_DEFAULT},
	{"power on", REG_POWER_CTL1, POWER_UP},
}

// recoverySequence undoes the mute and ramp writes of the shutdown sequence. It runs ahead of initSequence when
// the codec was powered down without a reset line to restore the registers. PCM volume returns to 0 dB, unmuted.
var recoverySequence = []struct {
	name string
	reg  Register
	val  byte
}{
	{"restore output mute", REG_PLAYBACK_CTL2, PLAYBACK2_RESET},
	{"restore soft ramp", REG_ANALOG_ZC_SR, ZC_SR_RESET},
	{"restore PCM A volume", REG_PCMA_VOL, 0x00},
	{"restore PCM B volume", REG_PCMB_VOL, 0x00},
}

// RegisterNames provides human-readable names for the documented registers.
var RegisterNames = map[Register]string{
	REG_ID:               "ID",
	REG_POWER_CTL1:       "POWER_CTL1",
	REG_POWER_CTL2:       "POWER_CTL2",
	REG_CLOCKING_CTL:     "CLOCKING_CTL",
	REG_INTERFACE_CTL1:   "INTERFACE_CTL1",
	REG_INTERFACE_CTL2:   "INTERFACE_CTL2",
	REG_PASSTHR_A_SELECT: "PASSTHR_A_SELECT",
	REG_PASSTHR_B_SELECT: "PASSTHR_B_SELECT",
	REG_ANALOG_ZC_SR:     "ANALOG_ZC_SR",
	REG_PASSTHR_GANG_CTL: "PASSTHR_GANG_CTL",
	REG_PLAYBACK_CTL1:    "PLAYBACK_CTL1",
	REG_MISC_CTL:         "MISC_CTL",
	REG_PLAYBACK_CTL2:    "PLAYBACK_CTL2",
	REG_PASSTHR_A_VOL:    "PASSTHR_A_VOL",
	REG_PASSTHR_B_VOL:    "PASSTHR_B_VOL",
	REG_PCMA_VOL:         "PCMA_VOL",
	REG_PCMB_VOL:         "PCMB_VOL",
	REG_BEEP_FREQ_ON:     "BEEP_FREQ_ON",
	REG_BEEP_VOL_OFF:     "BEEP_VOL_OFF",
	REG_BEEP_TONE_CFG:    "BEEP_TONE_CFG",
	REG_TONE_CTL:         "TONE_CTL",
	REG_MASTER_A_VOL:     "MASTER_A_VOL",
	REG_MASTER_B_VOL:     "MASTER_B_VOL",
	REG_HP_A_VOL:         "HP_A_VOL",
	REG_HP_B_VOL:         "HP_B_VOL",
	REG_SPEAK_A_VOL:      "SPEAK_A_VOL",
	REG_SPEAK_B_VOL:      "SPEAK_B_VOL",
	REG_CH_MIXER_SWAP:    "CH_MIXER_SWAP",
	REG_LIMIT_CTL1:       "LIMIT_CTL1",
	REG_LIMIT_CTL2:       "LIMIT_CTL2",
	REG_LIMIT_ATTACK:     "LIMIT_ATTACK",
	REG_STATUS:           "STATUS",
	REG_BATTERY_COMP:     "BATTERY_COMP",
	REG_VP_BATTERY_LEVEL: "VP_BATTERY_LEVEL",
	REG_SPEAKER_STATUS:   "SPEAKER_STATUS",
	REG_CHARGE_PUMP_FREQ: "CHARGE_PUMP_FREQ",
}

// StreamState is the state of the audio stream.
type StreamState int32

const (
	StateStopped   StreamState = 0 // No refill occurs, the buffer holds silence.
	StateStreaming StreamState = 1 // Halves are refilled from the sample source.
)

// String returns the state name.
func (s StreamState) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateStreaming:
		return "STREAMING"
	default:
		return "UNKNOWN"
	}
}
