package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/cs43l22"
)

type nopTransmitter struct {
	starts int
}

func (n *nopTransmitter) StartCircular([]byte, cs43l22.Completer) error {
	n.starts++

	return nil
}

type silence struct{}

func (silence) Read(p []byte) (int, error) {
	clear(p)

	return len(p), nil
}

func newTestModel(t *testing.T) (model, *cs43l22.RegisterFile, *nopTransmitter) {
	t.Helper()

	rf := cs43l22.NewRegisterFile()
	codec := cs43l22.NewCodec(rf, cs43l22.WithSleep(func(time.Duration) {}))
	require.NoError(t, codec.Init())

	stream, err := cs43l22.NewStream(nil, silence{})
	require.NoError(t, err)
	stream.SetMeter(cs43l22.NewMeter(nil))

	tx := &nopTransmitter{}

	return newModel(cs43l22.NewPlayer(codec, stream, tx), nil), rf, tx
}

func press(t *testing.T, m model, keys ...string) model {
	t.Helper()

	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}

		next, _ := m.Update(msg)
		m = next.(model)
	}

	return m
}

func TestModelPageNavigation(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.Equal(t, cs43l22.ControlBass, m.page)

	m = press(t, m, "right", "right")
	assert.Equal(t, cs43l22.ControlBassFreq, m.page)

	m = press(t, m, "right", "right")
	assert.Equal(t, cs43l22.ControlBass, m.page, "pages should wrap forward")

	m = press(t, m, "left")
	assert.Equal(t, cs43l22.ControlTrebleFreq, m.page, "pages should wrap backward")
}

func TestModelAdjustSelectedPage(t *testing.T) {
	m, rf, _ := newTestModel(t)

	m = press(t, m, "enter", "right", "right")
	assert.True(t, m.selected)
	assert.Equal(t, cs43l22.ControlBass, m.page, "arrows change the value while a page is selected")
	assert.Equal(t, "  3.0dB", m.player.ValueString(cs43l22.ControlBass))
	assert.Equal(t, byte(0x86), rf.Reg(cs43l22.REG_TONE_CTL))

	m = press(t, m, "enter", "right", "enter", "left")
	assert.Equal(t, cs43l22.ControlTreble, m.page)
	assert.Equal(t, " -1.5dB", m.player.ValueString(cs43l22.ControlTreble))
	assert.NoError(t, m.err)
}

func TestModelPlayStop(t *testing.T) {
	m, rf, tx := newTestModel(t)

	m = press(t, m, " ")
	assert.Equal(t, cs43l22.StateStreaming, m.player.State())
	assert.Equal(t, 1, tx.starts)
	assert.Zero(t, rf.Reg(cs43l22.REG_PCMA_VOL)&cs43l22.PCM_MUTE_BIT)

	m = press(t, m, "p")
	assert.Equal(t, cs43l22.StateStopped, m.player.State())
	assert.NotZero(t, rf.Reg(cs43l22.REG_PCMA_VOL)&cs43l22.PCM_MUTE_BIT)

	m = press(t, m, " ")
	assert.Equal(t, 1, tx.starts, "the transfer is started once")
}

func TestModelQuitStops(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, " ")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, cs43l22.StateStopped, next.(model).player.State())
}

func TestModelQuitsWhenFinished(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.finished = func() bool { return true }
	m = press(t, m, " ")

	next, cmd := m.Update(tickMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, cs43l22.StateStopped, next.(model).player.State())
}

func TestModelView(t *testing.T) {
	m, _, _ := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "STOPPED")
	assert.Contains(t, view, "Bass gain")
	assert.Contains(t, view, "0.0dB")
	assert.Contains(t, view, "page 1/4")
	assert.True(t, strings.Contains(view, "Level ["), "view should show the meter")
}
