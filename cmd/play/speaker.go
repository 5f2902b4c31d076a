package main

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/gen2brain/cs43l22"
)

// speakerPeriods is the depth of the queue between the transmitter and the host audio device.
const speakerPeriods = 200

// drainTimeout bounds the wait for queued audio on Close.
const drainTimeout = 2 * time.Second

// speaker terminates the simulated serial audio bus on the host sound card.
// The transmitter writes into a FIFO and oto drains it on its own schedule; the FIFO pads silence on underrun.
type speaker struct {
	ctx    *oto.Context
	player *oto.Player
	fifo   *cs43l22.FIFO
}

func newSpeaker(cfg cs43l22.Config) (*speaker, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(cfg.Rate),
		ChannelCount: int(cfg.Channels),
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	fifo := cs43l22.NewFIFOFor(cfg, speakerPeriods)
	player := ctx.NewPlayer(fifo)
	player.Play()

	return &speaker{ctx: ctx, player: player, fifo: fifo}, nil
}

func (s *speaker) Write(p []byte) (int, error) {
	return s.fifo.Write(p)
}

// Close stops accepting writes and lets the host device play out what is queued before releasing it.
func (s *speaker) Close() error {
	_ = s.fifo.Close()

	if !waitDrained(func() bool { return s.fifo.Len() > 0 || s.player.IsPlaying() }, 10*time.Millisecond, drainTimeout) {
		fmt.Printf("Warning: %d bytes of audio not played\n", s.fifo.Len())
	}

	return s.player.Close()
}
