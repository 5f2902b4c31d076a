package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gen2brain/cs43l22"
)

func main() {
	var (
		bus      int
		addr     uint
		gpioChip string
		resetIO  int
		sim      bool
	)

	flag.IntVar(&bus, "bus", 1, "The i2c-dev bus number of the codec.")
	flag.UintVar(&addr, "addr", uint(cs43l22.Address), "The 7-bit I2C address of the codec.")
	flag.StringVar(&gpioChip, "gpio-chip", cs43l22.DefaultGPIOChip, "The GPIO character device of the reset line.")
	flag.IntVar(&resetIO, "reset-gpio", -1, "The GPIO line offset driving the codec reset (-1 = none).")
	flag.BoolVar(&sim, "sim", false, "Run against an in-memory register file instead of hardware.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> [args...]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nOptions:")
		for _, name := range []string{"bus", "addr", "gpio-chip", "reset-gpio", "sim"} {
			f := flag.Lookup(name)
			if f != nil {
				fmt.Fprintf(os.Stderr, "  --%s\n    \t%v (default %q)\n", f.Name, f.Usage, f.DefValue)
			}
		}
		fmt.Fprintln(os.Stderr, "\nCommands:")
		fmt.Fprintln(os.Stderr, "  list                          List the i2c-dev adapters")
		fmt.Fprintln(os.Stderr, "  init                          Run the power-up sequence")
		fmt.Fprintln(os.Stderr, "  powerdown                     Run the shutdown sequence")
		fmt.Fprintln(os.Stderr, "  id                            Print the chip ID and revision")
		fmt.Fprintln(os.Stderr, "  dump                          Print all documented registers")
		fmt.Fprintln(os.Stderr, "  volume master|hp|pcm <dB>     Set a volume on both channels")
		fmt.Fprintln(os.Stderr, "  percent <0-100>               Set the master volume in percent")
		fmt.Fprintln(os.Stderr, "  mute on|off                   Mute or unmute the PCM path")
		fmt.Fprintln(os.Stderr, "  hpmute on|off                 Mute or unmute the headphone amplifiers")
		fmt.Fprintln(os.Stderr, "  tone <bass dB> <treble dB> [bass-freq treble-freq]")
		fmt.Fprintln(os.Stderr, "                                Set the tone control, frequencies as indexes 0-3")
	}

	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if args[0] == "list" {
		adapters, err := cs43l22.EnumerateAdapters()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing adapters: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Found %d i2c-dev adapters.\n", len(adapters))
		for _, a := range adapters {
			fmt.Println(a)
		}

		return
	}

	var regBus cs43l22.Bus
	if sim {
		regBus = cs43l22.NewRegisterFile()
	} else {
		dev, err := cs43l22.OpenI2CDev(bus, uint16(addr))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening i2c bus %d: %v\n", bus, err)
			os.Exit(1)
		}
		defer dev.Close()
		regBus = dev
	}

	var opts []cs43l22.CodecOption
	if resetIO >= 0 {
		pin, err := cs43l22.OpenLinePin(gpioChip, resetIO)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening reset GPIO %d: %v\n", resetIO, err)
			os.Exit(1)
		}
		defer pin.Close()
		opts = append(opts, cs43l22.WithResetPin(pin))
	}

	codec := cs43l22.NewCodec(regBus, opts...)

	if err := run(codec, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one command against the codec.
func run(codec *cs43l22.Codec, args []string) error {
	cmd, params := args[0], args[1:]

	switch cmd {
	case "init":
		if err := codec.Init(); err != nil {
			return err
		}
		fmt.Println("Codec powered up.")
	case "powerdown":
		if err := codec.PowerDown(); err != nil {
			return err
		}
		fmt.Println("Codec powered down.")
	case "id":
		id, rev, err := codec.ChipID()
		if err != nil {
			return err
		}
		fmt.Printf("Chip ID: 0x%02X (%s), revision %d\n", id, chipName(id), rev)
	case "dump":
		regs, err := codec.Dump()
		printRegisters(regs)

		return err
	case "volume":
		return setVolume(codec, params)
	case "percent":
		if len(params) != 1 {
			return fmt.Errorf("percent takes one value")
		}

		p, err := strconv.ParseUint(params[0], 10, 8)
		if err != nil || p > 100 {
			return fmt.Errorf("invalid percent %q", params[0])
		}

		if err := codec.SetMasterVolumePercent(uint8(p)); err != nil {
			return err
		}
		fmt.Printf("Master volume set to %d%% (%v).\n", p, cs43l22.PercentToMaster(uint8(p)))
	case "mute", "hpmute":
		on, err := parseOnOff(params)
		if err != nil {
			return err
		}

		if cmd == "mute" {
			err = codec.SetMute(on)
		} else {
			err = codec.SetHeadphoneMute(on)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s %s.\n", cmd, map[bool]string{false: "off", true: "on"}[on])
	case "tone":
		return setTone(codec, params)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	return nil
}

func setVolume(codec *cs43l22.Codec, params []string) error {
	if len(params) != 2 {
		return fmt.Errorf("volume takes a target and a value in dB")
	}

	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(params[1]), "db"), 64)
	if err != nil {
		return fmt.Errorf("invalid volume %q: %w", params[1], err)
	}
	db := cs43l22.DB(v)

	var lo, hi cs43l22.Decibel
	switch params[0] {
	case "master":
		lo, hi = cs43l22.MasterMin, cs43l22.MasterMax
		err = codec.SetMasterVolume(db)
	case "hp", "headphone":
		lo, hi = cs43l22.HeadphoneMin, cs43l22.HeadphoneMax
		err = codec.SetHeadphoneVolume(db)
	case "pcm":
		lo, hi = cs43l22.PCMMin, cs43l22.PCMMax
		err = codec.SetPCMVolume(db)
	default:
		return fmt.Errorf("unknown volume target %q", params[0])
	}

	if err != nil {
		return err
	}
	fmt.Printf("%s volume set to %v.\n", params[0], db.Clamp(lo, hi))

	return nil
}

func setTone(codec *cs43l22.Codec, params []string) error {
	if len(params) != 2 && len(params) != 4 {
		return fmt.Errorf("tone takes bass and treble gains, optionally followed by two frequency indexes")
	}

	var values [4]float64
	for i, p := range params {
		v, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(p), "db"), 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", p, err)
		}
		values[i] = v
	}

	s := cs43l22.ToneSetting{
		Bass:       cs43l22.DB(values[0]),
		Treble:     cs43l22.DB(values[1]),
		BassFreq:   int(values[2]),
		TrebleFreq: int(values[3]),
	}.Clamped()

	if err := codec.SetTone(s); err != nil {
		return err
	}

	var tone cs43l22.Tone
	tone.Set(s)
	for c := cs43l22.ControlBass; c < cs43l22.ControlCount; c++ {
		fmt.Printf("  %-12s %s\n", c, strings.TrimSpace(tone.Format(c)))
	}

	return nil
}

func parseOnOff(params []string) (bool, error) {
	if len(params) != 1 {
		return false, fmt.Errorf("expected on or off")
	}

	switch strings.ToLower(params[0]) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", params[0])
	}
}

func chipName(id byte) string {
	if id == cs43l22.CHIP_ID {
		return "CS43L22"
	}

	return "unknown"
}

// printRegisters prints registers in the same layout as the mixer tool prints controls.
func printRegisters(regs []cs43l22.RegisterValue) {
	fmt.Printf("%d registers.\n", len(regs))
	fmt.Println("---------------------------------------")

	for _, r := range regs {
		fmt.Printf("0x%02X: %-18s 0x%02X  %08b\n", r.Reg, cs43l22.RegisterNames[r.Reg], r.Val, r.Val)
	}
}
