package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gen2brain/cs43l22"
)

func main() {
	var (
		i2cBus   int
		gpioChip string
		resetIO  int
		meterIO  int
		output   string
		period   time.Duration
		fast     bool
		volume   uint
		bass     float64
		treble   float64
		noUI     bool
		verbose  bool
	)

	flag.IntVar(&i2cBus, "i2c-bus", -1, "The i2c-dev bus the codec is attached to (-1 = in-memory register file)")
	flag.StringVar(&gpioChip, "gpio-chip", cs43l22.DefaultGPIOChip, "The GPIO character device of the reset and meter lines")
	flag.IntVar(&resetIO, "reset-gpio", -1, "The GPIO line offset driving the codec reset (-1 = none)")
	flag.IntVar(&meterIO, "meter-gpio", -1, "The GPIO line offset driven by the signal meter (-1 = none)")
	flag.StringVar(&output, "out", "", "Record the serial audio stream to this WAV file instead of the speaker")
	flag.DurationVar(&period, "period", time.Millisecond, "The refill period, the time one buffer half takes to transmit")
	flag.BoolVar(&fast, "fast", false, "Do not pace the transfer in real time (only with --out)")
	flag.UintVar(&volume, "volume", 90, "The master volume in percent")
	flag.Float64Var(&bass, "bass", 0, "The initial bass gain in dB")
	flag.Float64Var(&treble, "treble", 0, "The initial treble gain in dB")
	flag.BoolVar(&noUI, "no-ui", false, "Play to the end without the interactive UI")
	flag.BoolVar(&verbose, "v", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <wav-or-mp3-file>\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nOptions:")
		for _, name := range []string{"i2c-bus", "gpio-chip", "reset-gpio", "meter-gpio", "out", "period", "fast", "volume", "bass", "treble", "no-ui", "v"} {
			f := flag.Lookup(name)
			if f != nil {
				fmt.Fprintf(os.Stderr, "  --%s\n    \t%v (default %q)\n", f.Name, f.Usage, f.DefValue)
			}
		}
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if verbose {
		cs43l22.SetLogLevel(slog.LevelDebug)
	}

	if fast && output == "" {
		fmt.Fprintln(os.Stderr, "Error: --fast requires --out")
		os.Exit(1)
	}

	path := flag.Arg(0)
	decoder, file, err := openDecoder(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", path, err)
		os.Exit(1)
	}
	defer file.Close()

	config := cs43l22.Config{
		Rate:     decoder.SampleRate(),
		Channels: uint32(decoder.NumChans()),
		Period:   period,
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	source, err := cs43l22.NewDecoderSource(decoder, int(decoder.NumChans()), int(decoder.SampleRate()), int(decoder.BitDepth()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating sample source: %v\n", err)
		os.Exit(1)
	}

	bus, closeBus, err := openBus(i2cBus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening register bus: %v\n", err)
		os.Exit(1)
	}
	defer closeBus()

	var opts []cs43l22.CodecOption
	if resetIO >= 0 {
		pin, err := cs43l22.OpenLinePin(gpioChip, resetIO)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening reset GPIO: %v\n", err)
			os.Exit(1)
		}
		defer pin.Close()
		opts = append(opts, cs43l22.WithResetPin(pin))
	}

	codec := cs43l22.NewCodec(bus, opts...)
	if err := codec.Init(); err != nil {
		// A partial power-up may still leave a usable codec, so keep going and let the user judge.
		var initErr *cs43l22.InitError
		if !errors.As(err, &initErr) {
			fmt.Fprintf(os.Stderr, "Error initializing codec: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if err := codec.SetMute(true); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to mute codec: %v\n", err)
	}

	if err := codec.SetMasterVolumePercent(uint8(min(volume, 100))); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set volume: %v\n", err)
	}

	stream, err := cs43l22.NewStream(&config, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating stream: %v\n", err)
		os.Exit(1)
	}

	var meterPin cs43l22.Pin
	if meterIO >= 0 {
		pin, err := cs43l22.OpenLinePin(gpioChip, meterIO)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening meter GPIO: %v\n", err)
			os.Exit(1)
		}
		defer pin.Close()
		meterPin = pin
	}
	stream.SetMeter(cs43l22.NewMeter(meterPin))

	sink, err := openSink(output, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening output: %v\n", err)
		os.Exit(1)
	}

	pace := config.Period
	if fast {
		pace = 0
	}
	tx := cs43l22.NewClockedBus(sink, pace, nil)

	player := cs43l22.NewPlayer(codec, stream, tx, cs43l22.WithTone(cs43l22.ToneSetting{
		Bass:   cs43l22.DB(bass),
		Treble: cs43l22.DB(treble),
	}))
	if err := player.ApplyTone(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set tone: %v\n", err)
	}

	duration, _ := decoder.Duration()
	fmt.Printf("Playing: %s (%v)\n", path, duration.Round(time.Second))
	fmt.Printf("Configuration: %d channels, %d Hz, %d-bit source, %d bytes per half\n",
		config.Channels, config.Rate, decoder.BitDepth(), config.HalfBytes())

	if err := player.Play(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting playback: %v\n", err)
		os.Exit(1)
	}

	startTime := time.Now()
	end := newEndOfStream(source.Done, tx.Halves, func() bool { return tx.Err() != nil })

	if noUI {
		waitForEnd(end)
		if err := player.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	} else {
		program := tea.NewProgram(newModel(player, end.Done), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running UI: %v\n", err)
		}
	}

	if err := tx.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
	}

	if err := sink.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing output: %v\n", err)
	}

	if err := codec.PowerDown(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if err := source.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Decoder error: %v\n", err)
	}

	fmt.Printf("Playback finished in %v. (%d refills, %d halves transmitted)\n",
		time.Since(startTime).Round(time.Millisecond), stream.Refills(), tx.Halves())
}

// openBus returns the i2c-dev adapter, or an in-memory register file when bus is negative.
func openBus(bus int) (cs43l22.Bus, func(), error) {
	if bus < 0 {
		return cs43l22.NewRegisterFile(), func() {}, nil
	}

	dev, err := cs43l22.OpenI2CDev(bus, cs43l22.Address)
	if err != nil {
		return nil, nil, err
	}

	return dev, func() { _ = dev.Close() }, nil
}

// openSink returns the WAV recorder for path, or the host speaker when path is empty.
func openSink(path string, config cs43l22.Config) (io.WriteCloser, error) {
	if path == "" {
		spk, err := newSpeaker(config)
		if err != nil {
			return nil, err
		}

		return spk, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	sink, err := cs43l22.NewWavSink(file, config)
	if err != nil {
		_ = file.Close()

		return nil, err
	}

	return &wavFile{WavSink: sink, file: file}, nil
}

// wavFile closes the file behind a WavSink after finalizing the header.
type wavFile struct {
	*cs43l22.WavSink
	file *os.File
}

func (w *wavFile) Close() error {
	return errors.Join(w.WavSink.Close(), w.file.Close())
}

// waitForEnd blocks until end reports the playback finished or the process is interrupted.
func waitForEnd(end *endOfStream) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			fmt.Println("\nInterrupted.")

			return
		case <-ticker.C:
			if end.Done() {
				return
			}
		}
	}
}
