package cs43l22

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// ResetSettle is the delay between releasing the reset line and the first register write.
	ResetSettle = 100 * time.Millisecond
	// PowerDownSettle is the minimum delay after the power-down write before the reset line may be asserted.
	PowerDownSettle = 100 * time.Microsecond
)

// Codec owns the CS43L22 register map semantics: power sequencing, volume and mute encoding, and tone control.
// Register access is serialised, and every setter reports a failed write without retrying;
// the hardware keeps its previous value in that case.
type Codec struct {
	mu    sync.Mutex
	bus   Bus
	reset Pin
	sleep func(time.Duration)
	log   *slog.Logger

	pcm   [2]byte // Last PCMA/PCMB volume field, kept to preserve it across mute changes.
	muted bool

	poweredDown bool // PowerDown ran since the last complete Init.
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithResetPin sets the codec reset line. Without it, reset is assumed to be handled by the board.
func WithResetPin(pin Pin) CodecOption {
	return func(c *Codec) {
		c.reset = pin
	}
}

// WithSleep replaces time.Sleep for the settle delays.
func WithSleep(sleep func(time.Duration)) CodecOption {
	return func(c *Codec) {
		c.sleep = sleep
	}
}

// WithLogger sets the logger used by the power sequences.
func WithLogger(l *slog.Logger) CodecOption {
	return func(c *Codec) {
		c.log = l
	}
}

// NewCodec creates a codec controller on bus. The bus must not be shared with other callers.
func NewCodec(bus Bus, opts ...CodecOption) *Codec {
	c := &Codec{
		bus:   bus,
		reset: NoPin,
		sleep: time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}
	c.log = componentLogger(c.log, ComponentCodec)

	return c
}

// write performs one register write. The caller holds c.mu.
func (c *Codec) write(reg Register, val byte) error {
	if err := c.bus.WriteReg(reg, val); err != nil {
		var be *BusError
		if errors.As(err, &be) {
			return err
		}

		return &BusError{Op: "write", Reg: reg, Val: val, Err: err}
	}

	return nil
}

func (c *Codec) read(reg Register) (byte, error) {
	v, err := c.bus.ReadReg(reg)
	if err != nil {
		var be *BusError
		if errors.As(err, &be) {
			return 0, err
		}

		return 0, &BusError{Op: "read", Reg: reg, Err: err}
	}

	return v, nil
}

// Init releases the reset line, waits ResetSettle and runs the power-up sequence:
// outputs off, output routing, clock auto-detect, interface format, power on.
// After a PowerDown on a codec without a reset pin, in this process or an earlier one, the output mute and soft ramp registers are first restored
// to their power-on values, as a hardware reset would.
// Every write is attempted even if an earlier one failed; the failures are returned as an *InitError
// so the caller can decide whether the device is usable.
func (c *Codec) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset.Set(true)
	c.sleep(ResetSettle)

	var steps []error
	total := len(initSequence)

	if c.needsRecovery() {
		total += len(recoverySequence)
		for _, step := range recoverySequence {
			if err := c.write(step.reg, step.val); err != nil {
				steps = append(steps, fmt.Errorf("%s: %w", step.name, err))
			}
		}
	}

	for _, step := range initSequence {
		if err := c.write(step.reg, step.val); err != nil {
			steps = append(steps, fmt.Errorf("%s: %w", step.name, err))
		}
	}

	// PCM volume resets to 0 dB, unmuted.
	c.pcm = [2]byte{}
	c.muted = false

	if len(steps) > 0 {
		c.log.Warn("power-up sequence incomplete", "failed", len(steps), "steps", total)

		return &InitError{Steps: steps, Total: total}
	}
	c.poweredDown = false

	c.log.Info("codec powered up")

	return nil
}

// needsRecovery reports whether the shutdown sequence left registers that no reset line will restore.
// A power-down by an earlier process is recognised by the POWER_CTL1 shutdown value.
func (c *Codec) needsRecovery() bool {
	if _, none := c.reset.(noPin); !none {
		return false
	}

	if c.poweredDown {
		return true
	}

	v, err := c.read(REG_POWER_CTL1)

	return err == nil && v == POWER_DOWN_ALT
}

// PowerDown runs the shutdown sequence: mute the headphone and PCM paths, disable soft ramp and zero cross,
// power down, wait PowerDownSettle and assert the reset line. Every step is attempted.
func (c *Codec) PowerDown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if err := c.write(REG_PLAYBACK_CTL2, HP_MUTE_BITS|SPEAK_MUTE_BITS); err != nil {
		errs = append(errs, err)
	}

	if err := c.writePCM(true); err != nil {
		errs = append(errs, err)
	}

	if err := c.write(REG_ANALOG_ZC_SR, ZC_SR_DISABLED); err != nil {
		errs = append(errs, err)
	}

	if err := c.write(REG_POWER_CTL1, POWER_DOWN_ALT); err != nil {
		errs = append(errs, err)
	}

	c.sleep(PowerDownSettle)
	c.reset.Set(false)
	c.poweredDown = true

	if err := errors.Join(errs...); err != nil {
		c.log.Warn("power-down sequence incomplete", "error", err)

		return fmt.Errorf("codec power down: %w", err)
	}

	c.log.Info("codec powered down")

	return nil
}

// ChipID reads the ID register and returns the chip ID (bits 7:3, CHIP_ID for a CS43L22) and revision (bits 2:0).
func (c *Codec) ChipID() (id, rev byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.read(REG_ID)
	if err != nil {
		return 0, 0, err
	}

	return v >> 3, v & 0x07, nil
}

// writePair writes the same value to both channel registers. Both writes are attempted.
func (c *Codec) writePair(a, b Register, val byte) error {
	errA := c.write(a, val)
	errB := c.write(b, val)

	return errors.Join(errA, errB)
}

// SetMasterVolume clamps db to [MasterMin, MasterMax] and writes it to both master channels.
func (c *Codec) SetMasterVolume(db Decibel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.writePair(REG_MASTER_A_VOL, REG_MASTER_B_VOL, MasterVolumeReg(db))
}

// SetMasterVolumePercent maps 0..100 % onto the master volume range.
func (c *Codec) SetMasterVolumePercent(percent uint8) error {
	return c.SetMasterVolume(PercentToMaster(percent))
}

// SetHeadphoneVolume clamps db to [HeadphoneMin, HeadphoneMax] and writes it to both headphone channels.
func (c *Codec) SetHeadphoneVolume(db Decibel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.writePair(REG_HP_A_VOL, REG_HP_B_VOL, HeadphoneVolumeReg(db))
}

// SetPCMVolume clamps db to [PCMMin, PCMMax] and writes it to both PCM channels, keeping the mute state.
func (c *Codec) SetPCMVolume(db Decibel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := PCMVolumeReg(db)
	prev := c.pcm
	c.pcm = [2]byte{v, v}

	if err := c.writePCM(c.muted); err != nil {
		c.pcm = prev

		return err
	}

	return nil
}

// SetMute mutes or unmutes the output. This is the authoritative mute: it uses the PCM mute bits, which gate the
// digital path only. The master volume register shares bits with analog gain and is not a safe mute.
func (c *Codec) SetMute(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.writePCM(on)
}

// Muted reports the mute state last written successfully by SetMute.
func (c *Codec) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.muted
}

// writePCM writes both PCMx_VOL registers with the stored volumes and the given mute bit.
func (c *Codec) writePCM(mute bool) error {
	var bit byte
	if mute {
		bit = PCM_MUTE_BIT
	}

	errA := c.write(REG_PCMA_VOL, c.pcm[0]|bit)
	errB := c.write(REG_PCMB_VOL, c.pcm[1]|bit)

	if err := errors.Join(errA, errB); err != nil {
		return err
	}
	c.muted = mute

	return nil
}

// SetHeadphoneMute mutes the headphone amplifiers through PLAYBACK_CTL2. This is the legacy mute path of earlier
// firmware; prefer SetMute. The speaker channels stay muted either way.
func (c *Codec) SetHeadphoneMute(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	val := SPEAK_MUTE_BITS
	if on {
		val |= HP_MUTE_BITS
	}

	return c.write(REG_PLAYBACK_CTL2, val)
}

// SetTone writes the bass and treble gains to TONE_CTL, then the corner frequencies and tone enable bit
// to BEEP_TONE_CFG. Gains are quantised to ToneStep. Both writes are attempted.
func (c *Codec) SetTone(s ToneSetting) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s = s.Clamped()
	errGain := c.write(REG_TONE_CTL, s.ToneCtlReg())
	errCfg := c.write(REG_BEEP_TONE_CFG, s.BeepToneCfgReg())

	return errors.Join(errGain, errCfg)
}

// Dump reads every documented register, in address order, stopping at the first failure.
func (c *Codec) Dump() ([]RegisterValue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	regs := make([]RegisterValue, 0, len(RegisterNames))
	for reg := 0; reg < 256; reg++ {
		if _, ok := RegisterNames[Register(reg)]; !ok {
			continue
		}

		v, err := c.read(Register(reg))
		if err != nil {
			return regs, err
		}
		regs = append(regs, RegisterValue{Reg: Register(reg), Val: v})
	}

	return regs, nil
}
