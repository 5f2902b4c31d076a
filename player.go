package cs43l22

import (
	"fmt"
	"log/slog"
	"sync"
)

// Player is the playback state machine coordinating the codec and the stream in response to
// play and stop commands from the user interface. All methods are foreground calls.
type Player struct {
	mu     sync.Mutex
	codec  *Codec
	stream *Stream
	tx     Transmitter
	tone   Tone
	log    *slog.Logger
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithPlayerLogger sets the logger used for state transitions.
func WithPlayerLogger(l *slog.Logger) PlayerOption {
	return func(p *Player) {
		p.log = l
	}
}

// WithTone sets the initial tone setting. It is applied to the codec by ApplyTone, not by NewPlayer.
func WithTone(s ToneSetting) PlayerOption {
	return func(p *Player) {
		p.tone.Set(s)
	}
}

// NewPlayer creates a stopped player. The transfer is started lazily by the first Play.
func NewPlayer(codec *Codec, stream *Stream, tx Transmitter, opts ...PlayerOption) *Player {
	p := &Player{
		codec:  codec,
		stream: stream,
		tx:     tx,
	}

	for _, opt := range opts {
		opt(p)
	}
	p.log = componentLogger(p.log, ComponentPlayer)

	return p
}

// Play moves to StateStreaming. The first call starts the circular transfer, so the serial clock is present
// before the codec is unmuted. An unmute failure is returned, but the player stays streaming.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.stream.Start(p.tx); err != nil {
		return err
	}

	p.stream.SetState(StateStreaming)

	if err := p.codec.SetMute(false); err != nil {
		p.log.Warn("unmute failed", "error", err)

		return fmt.Errorf("play: %w", err)
	}

	p.log.Debug("streaming")

	return nil
}

// Stop moves to StateStopped from any state. The codec is muted first, while the transfer still clocks the
// codec, then the buffer is silenced and the meter reset. A mute failure is returned, but the player stops anyway.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	muteErr := p.codec.SetMute(true)

	p.stream.SetState(StateStopped)
	if m := p.stream.Meter(); m != nil {
		m.Reset()
	}

	if muteErr != nil {
		p.log.Warn("mute failed", "error", muteErr)

		return fmt.Errorf("stop: %w", muteErr)
	}

	p.log.Debug("stopped")

	return nil
}

// State returns the current stream state.
func (p *Player) State() StreamState {
	return p.stream.State()
}

// Toggle stops a streaming player and starts a stopped one.
func (p *Player) Toggle() error {
	if p.State() == StateStreaming {
		return p.Stop()
	}

	return p.Play()
}

// Increase steps a tone control up and pushes the new setting to the codec.
func (p *Player) Increase(c Control) error {
	return p.adjust(c, (*Tone).Increase)
}

// Decrease steps a tone control down and pushes the new setting to the codec.
func (p *Player) Decrease(c Control) error {
	return p.adjust(c, (*Tone).Decrease)
}

// adjust keeps the tone model in step with the hardware: if the write fails, the model is reverted,
// leaving the previous setting in effect in both.
func (p *Player) adjust(c Control, step func(*Tone, Control) bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.tone.Setting()
	if !step(&p.tone, c) {
		return nil
	}

	if err := p.codec.SetTone(p.tone.Setting()); err != nil {
		p.tone.Set(prev)

		return fmt.Errorf("%s: %w", c, err)
	}

	return nil
}

// ApplyTone writes the current tone setting to the codec.
func (p *Player) ApplyTone() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.codec.SetTone(p.tone.Setting())
}

// ToneSetting returns the current tone setting.
func (p *Player) ToneSetting() ToneSetting {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.tone.Setting()
}

// ValueString returns the display string of a control.
func (p *Player) ValueString(c Control) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.tone.Format(c)
}

// Meter returns the stream meter, or nil.
func (p *Player) Meter() *Meter {
	return p.stream.Meter()
}

// Stream returns the stream driven by the player.
func (p *Player) Stream() *Stream {
	return p.stream
}

// Codec returns the codec driven by the player.
func (p *Player) Codec() *Codec {
	return p.codec
}
