package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/ttsconsole/internal/waveform"
	"github.com/muesli/reflow/truncate"
)

// playerStatus is what the player area shows for one frame.
type playerStatus struct {
	state    waveform.State
	playback waveform.Playback
	peaks    []float64
	err      error
}

func statusIcon(s waveform.State) string {
	switch s {
	case waveform.StatePlaying:
		return "▶"
	case waveform.StatePaused:
		return "⏸"
	case waveform.StateReady:
		return "■"
	case waveform.StateLoading:
		return "⟳"
	case waveform.StateFinished:
		return "↺"
	default:
		return "○"
	}
}

func statusColor(s waveform.State) lipgloss.TerminalColor {
	switch s {
	case waveform.StatePlaying:
		return mintGreen
	case waveform.StatePaused:
		return lipgloss.Color("#FFFF00")
	case waveform.StateLoading:
		return blue
	default:
		return gray
	}
}

// view renders the header line and the waveform. Nothing is shown while
// idle unless the last load failed.
func (s playerStatus) view(width int) string {
	if s.err != nil {
		msg := truncate.StringWithTail(s.err.Error(), uint(max(width-2, 10)), ellipsis) //nolint:gosec
		return errorStyle.Render("✗ " + msg)
	}
	if s.state == waveform.StateIdle {
		return ""
	}

	header := lipgloss.NewStyle().Foreground(statusColor(s.state)).
		Render(fmt.Sprintf("%s %s", statusIcon(s.state), s.state))

	if s.state == waveform.StateLoading {
		return header
	}

	clock := subtleStyle.Render(fmt.Sprintf(" %s / %s",
		waveform.Clock(s.playback.Position),
		waveform.Clock(s.playback.Duration),
	))

	return header + clock + "\n" + s.waveform(width)
}

// waveform colors the bars up to the playback cursor.
func (s playerStatus) waveform(width int) string {
	if len(s.peaks) == 0 {
		return ""
	}

	bars := []rune(waveform.Bars(s.peaks))
	if width > 0 && len(bars) > width {
		bars = bars[:width]
	}

	played := int(s.playback.Progress() * float64(len(bars)))
	var b strings.Builder
	b.WriteString(playedStyle.Render(string(bars[:played])))
	b.WriteString(unplayedStyle.Render(string(bars[played:])))
	return b.String()
}

// help returns the control hint for the current state.
func (s playerStatus) help() string {
	switch s.state {
	case waveform.StatePlaying:
		return "ctrl+p pause"
	case waveform.StatePaused, waveform.StateReady:
		return "ctrl+p play"
	case waveform.StateFinished:
		return "ctrl+p replay"
	default:
		return ""
	}
}
