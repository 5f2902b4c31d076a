package cs43l22

import (
	"fmt"
	"math"
)

// Decibel is a fixed-point level in 1/256 dB units. For example, +10 dB is 2560 and -25 dB is -6400.
type Decibel int32

const (
	// DecibelUnit is one decibel.
	DecibelUnit Decibel = 256
	// NativeStep is the 0.5 dB step of the codec volume registers.
	NativeStep Decibel = DecibelUnit / 2
	// nativeShift converts Decibel to NativeStep units.
	nativeShift = 7
)

// Documented register ranges.
const (
	MasterMin    Decibel = -102 * DecibelUnit
	MasterMax    Decibel = 12 * DecibelUnit
	HeadphoneMin Decibel = -102 * DecibelUnit
	HeadphoneMax Decibel = 0
	PCMMin       Decibel = -103 * NativeStep // -51.5 dB
	PCMMax       Decibel = 12 * DecibelUnit
)

// DB converts a floating-point decibel value, rounding to the nearest 1/256 dB.
func DB(v float64) Decibel {
	return Decibel(math.Round(v * float64(DecibelUnit)))
}

// DBInt converts a whole decibel value.
func DBInt(v int) Decibel {
	return Decibel(v) * DecibelUnit
}

// Clamp limits d to [lo, hi].
func (d Decibel) Clamp(lo, hi Decibel) Decibel {
	return min(max(d, lo), hi)
}

// Steps returns d in 0.5 dB register steps. The arithmetic shift truncates toward negative infinity,
// discarding precision below 0.5 dB.
func (d Decibel) Steps() int {
	return int(d) >> nativeShift
}

// Tenths returns d in 0.1 dB units, truncated toward zero.
func (d Decibel) Tenths() int {
	return int(d) * 10 / int(DecibelUnit)
}

// Float returns d in decibels.
func (d Decibel) Float() float64 {
	return float64(d) / float64(DecibelUnit)
}

// String returns d formatted as decibels, e.g. "-25dB" or "1.5dB".
func (d Decibel) String() string {
	return fmt.Sprintf("%gdB", d.Float())
}

// MasterVolumeReg encodes a master volume for MASTER_x_VOL: two's complement 0.5 dB steps,
// 0x18 is +12 dB, 0x00 is 0 dB, 0x34 is -102 dB.
func MasterVolumeReg(d Decibel) byte {
	return byte(d.Clamp(MasterMin, MasterMax).Steps())
}

// HeadphoneVolumeReg encodes a headphone volume for HP_x_VOL: 0x00 is 0 dB, 0xFF is -0.5 dB, 0x34 is -102 dB.
func HeadphoneVolumeReg(d Decibel) byte {
	return byte(d.Clamp(HeadphoneMin, HeadphoneMax).Steps())
}

// PCMVolumeReg encodes a PCM volume for the 7-bit field of PCMx_VOL: 0x18 is +12 dB, 0x19 is -51.5 dB.
func PCMVolumeReg(d Decibel) byte {
	return byte(d.Clamp(PCMMin, PCMMax).Steps()) & PCM_VOL_MASK
}

// MasterVolumeFromReg decodes a MASTER_x_VOL value. Codes below -102 dB are reported as -102 dB.
func MasterVolumeFromReg(v byte) Decibel {
	steps := int(v)
	if steps > MasterMax.Steps() {
		steps -= 256
	}

	return (Decibel(steps) * NativeStep).Clamp(MasterMin, MasterMax)
}

// HeadphoneVolumeFromReg decodes a HP_x_VOL value. Codes 0x01 to 0x33 mean muted and are reported as the minimum.
func HeadphoneVolumeFromReg(v byte) Decibel {
	steps := int(v)
	if steps > HeadphoneMax.Steps() {
		steps -= 256
	}

	return (Decibel(steps) * NativeStep).Clamp(HeadphoneMin, HeadphoneMax)
}

// PCMVolumeFromReg decodes the 7-bit field of a PCMx_VOL value, ignoring the mute bit.
func PCMVolumeFromReg(v byte) Decibel {
	steps := int(v & PCM_VOL_MASK)
	if steps > PCMMax.Steps() {
		steps -= 128
	}

	return Decibel(steps) * NativeStep
}

// PercentToMaster maps 0..100 % linearly onto the master volume range.
func PercentToMaster(percent uint8) Decibel {
	percent = min(percent, 100)

	return MasterMin + (MasterMax-MasterMin)*Decibel(percent)/100
}
