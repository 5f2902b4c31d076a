package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gen2brain/cs43l22"
)

// uiRefresh is the redraw interval for the meter and stream state.
const uiRefresh = 50 * time.Millisecond

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(uiRefresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	pageStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// model is the three-button page UI of the board, mapped onto the keyboard.
// Left and right move between pages, or change the value once a page is selected with enter.
type model struct {
	player   *cs43l22.Player
	page     cs43l22.Control
	selected bool
	finished func() bool
	err      error
}

func newModel(player *cs43l22.Player, finished func() bool) model {
	return model{player: player, page: cs43l22.ControlBass, finished: finished}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tickMsg:
		if m.finished != nil && m.finished() {
			m.err = m.player.Stop()

			return m, tea.Quit
		}

		return m, tick()
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.err = m.player.Stop()

		return m, tea.Quit
	case " ", "p":
		m.err = m.player.Toggle()
	case "enter":
		m.selected = !m.selected
	case "right", "l":
		if m.selected {
			m.err = m.player.Increase(m.page)
		} else {
			m.page = (m.page + 1) % cs43l22.ControlCount
		}
	case "left", "h":
		if m.selected {
			m.err = m.player.Decrease(m.page)
		} else {
			m.page = (m.page + cs43l22.ControlCount - 1) % cs43l22.ControlCount
		}
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("CS43L22 player"))
	fmt.Fprintf(&b, "  [%s]\n\n", m.player.State())

	label := fmt.Sprintf(" %-12s %s ", m.page, m.player.ValueString(m.page))
	if m.selected {
		b.WriteString(selectedStyle.Render(label))
	} else {
		b.WriteString(pageStyle.Render(label))
	}
	fmt.Fprintf(&b, "   page %d/%d\n\n", int(m.page)+1, int(cs43l22.ControlCount))

	b.WriteString(renderMeter(m.player.Meter()))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("space:Play/Stop  ←/→:Page or value  enter:Select  q:Quit"))
	b.WriteString("\n")

	return b.String()
}

// renderMeter draws the averaged level as a bar and the pulse-density output as a lamp.
func renderMeter(meter *cs43l22.Meter) string {
	if meter == nil {
		return ""
	}

	const width = 20
	filled := meter.Level() * width / 32768
	lamp := "○"
	if meter.On() {
		lamp = "●"
	}

	return fmt.Sprintf("Level [%s%s] %s", strings.Repeat("█", filled), strings.Repeat("░", width-filled), lamp)
}
