package cs43l22_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/cs43l22"
)

var errNack = errors.New("nack")

// recordingPin records every level driven on it.
type recordingPin struct {
	levels []bool
}

func (p *recordingPin) Set(high bool) {
	p.levels = append(p.levels, high)
}

// newTestCodec returns a codec on an in-memory register file with the settle delays recorded instead of slept.
func newTestCodec(t *testing.T, opts ...cs43l22.CodecOption) (*cs43l22.Codec, *cs43l22.RegisterFile, *[]time.Duration) {
	t.Helper()

	rf := cs43l22.NewRegisterFile()
	sleeps := &[]time.Duration{}
	opts = append([]cs43l22.CodecOption{
		cs43l22.WithSleep(func(d time.Duration) { *sleeps = append(*sleeps, d) }),
	}, opts...)

	return cs43l22.NewCodec(rf, opts...), rf, sleeps
}

func TestCodecInit(t *testing.T) {
	pin := &recordingPin{}
	codec, rf, sleeps := newTestCodec(t, cs43l22.WithResetPin(pin))

	require.NoError(t, codec.Init())

	want := []cs43l22.RegisterValue{
		{Reg: cs43l22.REG_POWER_CTL1, Val: 0x01},
		{Reg: cs43l22.REG_POWER_CTL2, Val: 0xAF},
		{Reg: cs43l22.REG_CLOCKING_CTL, Val: 0x80},
		{Reg: cs43l22.REG_INTERFACE_CTL1, Val: 0x07},
		{Reg: cs43l22.REG_POWER_CTL1, Val: 0x9E},
	}
	assert.Equal(t, want, rf.Writes())
	assert.Equal(t, []bool{true}, pin.levels, "reset line should be released once")
	assert.Equal(t, []time.Duration{cs43l22.ResetSettle}, *sleeps)
	assert.False(t, codec.Muted())
}

func TestCodecInitPartialFailure(t *testing.T) {
	codec, rf, _ := newTestCodec(t)
	rf.FailWrite(cs43l22.REG_CLOCKING_CTL, errNack)

	err := codec.Init()
	require.Error(t, err)

	var initErr *cs43l22.InitError
	require.ErrorAs(t, err, &initErr)
	assert.Len(t, initErr.Steps, 1)
	assert.ErrorIs(t, err, cs43l22.ErrBus)
	assert.ErrorIs(t, err, errNack)

	var busErr *cs43l22.BusError
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, cs43l22.REG_CLOCKING_CTL, busErr.Reg)
	assert.Contains(t, err.Error(), "CLOCKING_CTL")

	// The remaining writes are still attempted, including the final power on.
	writes := rf.Writes()
	require.Len(t, writes, 4)
	assert.Equal(t, cs43l22.RegisterValue{Reg: cs43l22.REG_POWER_CTL1, Val: cs43l22.POWER_UP}, writes[3])
}

func TestCodecMasterVolume(t *testing.T) {
	codec, rf, _ := newTestCodec(t)

	require.NoError(t, codec.SetMasterVolume(cs43l22.DBInt(20)))
	assert.Equal(t, byte(0x18), rf.Reg(cs43l22.REG_MASTER_A_VOL))
	assert.Equal(t, byte(0x18), rf.Reg(cs43l22.REG_MASTER_B_VOL))

	require.NoError(t, codec.SetMasterVolume(cs43l22.DBInt(-150)))
	assert.Equal(t, byte(0x34), rf.Reg(cs43l22.REG_MASTER_A_VOL))
	assert.Equal(t, byte(0x34), rf.Reg(cs43l22.REG_MASTER_B_VOL))

	require.NoError(t, codec.SetMasterVolumePercent(100))
	assert.Equal(t, byte(0x18), rf.Reg(cs43l22.REG_MASTER_A_VOL))
}

func TestCodecVolumeWritesBothChannels(t *testing.T) {
	codec, rf, _ := newTestCodec(t)
	rf.FailWrite(cs43l22.REG_HP_A_VOL, errNack)

	err := codec.SetHeadphoneVolume(cs43l22.DBInt(-10))
	require.Error(t, err)
	assert.ErrorIs(t, err, cs43l22.ErrBus)
	assert.Equal(t, byte(0xEC), rf.Reg(cs43l22.REG_HP_B_VOL), "channel B should be written even if A fails")
}

func TestCodecMute(t *testing.T) {
	codec, rf, _ := newTestCodec(t)

	require.NoError(t, codec.SetPCMVolume(cs43l22.DB(-3)))
	assert.Equal(t, byte(0x7A), rf.Reg(cs43l22.REG_PCMA_VOL))

	require.NoError(t, codec.SetMute(true))
	assert.True(t, codec.Muted())
	assert.Equal(t, byte(0xFA), rf.Reg(cs43l22.REG_PCMA_VOL))
	assert.Equal(t, byte(0xFA), rf.Reg(cs43l22.REG_PCMB_VOL))

	// Volume changes keep the mute bit.
	require.NoError(t, codec.SetPCMVolume(0))
	assert.Equal(t, byte(0x80), rf.Reg(cs43l22.REG_PCMA_VOL))

	require.NoError(t, codec.SetMute(false))
	assert.False(t, codec.Muted())
	assert.Equal(t, byte(0x00), rf.Reg(cs43l22.REG_PCMB_VOL))
}

func TestCodecMuteFailureKeepsState(t *testing.T) {
	codec, rf, _ := newTestCodec(t)
	rf.FailWrite(cs43l22.REG_PCMB_VOL, errNack)

	err := codec.SetMute(true)
	require.Error(t, err)
	assert.False(t, codec.Muted(), "mute state should only change on a successful write")
	assert.Equal(t, cs43l22.PCM_MUTE_BIT, rf.Reg(cs43l22.REG_PCMA_VOL))
}

func TestCodecHeadphoneMute(t *testing.T) {
	codec, rf, _ := newTestCodec(t)

	require.NoError(t, codec.SetHeadphoneMute(true))
	assert.Equal(t, byte(0xF0), rf.Reg(cs43l22.REG_PLAYBACK_CTL2))

	require.NoError(t, codec.SetHeadphoneMute(false))
	assert.Equal(t, byte(0x30), rf.Reg(cs43l22.REG_PLAYBACK_CTL2))
}

func TestCodecSetTone(t *testing.T) {
	codec, rf, _ := newTestCodec(t)

	s := cs43l22.ToneSetting{Bass: cs43l22.DBInt(6), Treble: cs43l22.DB(-1.5), BassFreq: 1, TrebleFreq: 2}
	require.NoError(t, codec.SetTone(s))

	writes := rf.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, cs43l22.REG_TONE_CTL, writes[0].Reg)
	assert.Equal(t, byte(0x94), writes[0].Val)
	assert.Equal(t, cs43l22.REG_BEEP_TONE_CFG, writes[1].Reg)
	assert.Equal(t, byte(2<<3|1<<1|1), writes[1].Val)
}

func TestCodecPowerDown(t *testing.T) {
	pin := &recordingPin{}
	codec, rf, sleeps := newTestCodec(t, cs43l22.WithResetPin(pin))
	require.NoError(t, codec.Init())
	rf.ResetWrites()
	*sleeps = nil

	require.NoError(t, codec.PowerDown())

	want := []cs43l22.RegisterValue{
		{Reg: cs43l22.REG_PLAYBACK_CTL2, Val: 0xF0},
		{Reg: cs43l22.REG_PCMA_VOL, Val: 0x80},
		{Reg: cs43l22.REG_PCMB_VOL, Val: 0x80},
		{Reg: cs43l22.REG_ANALOG_ZC_SR, Val: 0x00},
		{Reg: cs43l22.REG_POWER_CTL1, Val: 0x9F},
	}
	assert.Equal(t, want, rf.Writes())
	assert.Equal(t, []time.Duration{cs43l22.PowerDownSettle}, *sleeps)
	assert.Equal(t, []bool{true, false}, pin.levels, "reset line should be asserted last")
	assert.True(t, codec.Muted())
}

func TestCodecPowerDownAttemptsEveryStep(t *testing.T) {
	codec, rf, _ := newTestCodec(t)
	rf.FailWrite(cs43l22.REG_PLAYBACK_CTL2, errNack)

	err := codec.PowerDown()
	require.Error(t, err)
	assert.ErrorIs(t, err, cs43l22.ErrBus)
	assert.Equal(t, cs43l22.POWER_DOWN_ALT, rf.Reg(cs43l22.REG_POWER_CTL1))
}

func TestCodecReinitWithoutResetPin(t *testing.T) {
	codec, rf, _ := newTestCodec(t)
	require.NoError(t, codec.Init())
	assert.Len(t, rf.Writes(), 5, "first boot runs only the power-up sequence")

	require.NoError(t, codec.SetMute(false))
	require.NoError(t, codec.PowerDown())

	rf.ResetWrites()
	require.NoError(t, codec.Init())
	require.NoError(t, codec.SetMute(false))

	assert.Zero(t, rf.Reg(cs43l22.REG_PLAYBACK_CTL2)&cs43l22.HP_MUTE_BITS, "headphone outputs should be unmuted")
	assert.Equal(t, cs43l22.ZC_SR_RESET, rf.Reg(cs43l22.REG_ANALOG_ZC_SR))
	assert.Zero(t, rf.Reg(cs43l22.REG_PCMA_VOL)&cs43l22.PCM_MUTE_BIT)
	assert.False(t, codec.Muted())

	writes := rf.Writes()
	require.Len(t, writes, 4+5+2)
	assert.Equal(t, cs43l22.RegisterValue{Reg: cs43l22.REG_PLAYBACK_CTL2, Val: cs43l22.PLAYBACK2_RESET}, writes[0])
	assert.Equal(t, cs43l22.RegisterValue{Reg: cs43l22.REG_POWER_CTL1, Val: cs43l22.POWER_UP}, writes[8],
		"power on stays the last write of Init")

	// The recovery runs once per power-down.
	rf.ResetWrites()
	require.NoError(t, codec.Init())
	assert.Len(t, rf.Writes(), 5)
}

func TestCodecReinitAfterRestart(t *testing.T) {
	codec, rf, _ := newTestCodec(t)
	require.NoError(t, codec.Init())
	require.NoError(t, codec.PowerDown())

	// A new controller on the same registers, as after running the shutdown from another process.
	restarted := cs43l22.NewCodec(rf, cs43l22.WithSleep(func(time.Duration) {}))
	rf.ResetWrites()
	require.NoError(t, restarted.Init())

	assert.Len(t, rf.Writes(), 9)
	assert.Zero(t, rf.Reg(cs43l22.REG_PLAYBACK_CTL2)&cs43l22.HP_MUTE_BITS)
	assert.Equal(t, cs43l22.ZC_SR_RESET, rf.Reg(cs43l22.REG_ANALOG_ZC_SR))
}

func TestCodecReinitWithResetPin(t *testing.T) {
	codec, rf, _ := newTestCodec(t, cs43l22.WithResetPin(&recordingPin{}))
	require.NoError(t, codec.Init())
	require.NoError(t, codec.PowerDown())

	rf.ResetWrites()
	require.NoError(t, codec.Init())
	assert.Len(t, rf.Writes(), 5, "the reset line restores the registers")
}

func TestCodecReinitRecoveryFailure(t *testing.T) {
	codec, rf, _ := newTestCodec(t)
	require.NoError(t, codec.Init())
	require.NoError(t, codec.PowerDown())

	rf.FailWrite(cs43l22.REG_ANALOG_ZC_SR, errNack)
	err := codec.Init()

	var initErr *cs43l22.InitError
	require.ErrorAs(t, err, &initErr)
	assert.Len(t, initErr.Steps, 1)
	assert.Equal(t, 9, initErr.Total)
	assert.Contains(t, err.Error(), "1 of 9 steps failed")

	// An incomplete recovery is retried by the next Init.
	rf.FailWrite(cs43l22.REG_ANALOG_ZC_SR, nil)
	rf.ResetWrites()
	require.NoError(t, codec.Init())
	assert.Len(t, rf.Writes(), 9)
}

func TestCodecChipID(t *testing.T) {
	codec, _, _ := newTestCodec(t)

	id, rev, err := codec.ChipID()
	require.NoError(t, err)
	assert.Equal(t, cs43l22.CHIP_ID, id)
	assert.Equal(t, byte(3), rev)
}

func TestCodecDump(t *testing.T) {
	codec, rf, _ := newTestCodec(t)
	require.NoError(t, codec.Init())
	rf.ResetWrites()

	regs, err := codec.Dump()
	require.NoError(t, err)
	assert.Len(t, regs, len(cs43l22.RegisterNames))
	assert.Empty(t, rf.Writes(), "dump should not write")

	for i := 1; i < len(regs); i++ {
		assert.Less(t, regs[i-1].Reg, regs[i].Reg)
	}

	assert.Contains(t, regs, cs43l22.RegisterValue{Reg: cs43l22.REG_POWER_CTL1, Val: cs43l22.POWER_UP})
	assert.Equal(t, "POWER_CTL1=0x9E", cs43l22.RegisterValue{Reg: cs43l22.REG_POWER_CTL1, Val: 0x9E}.String())
}
