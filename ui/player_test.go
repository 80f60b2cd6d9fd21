package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/ttsconsole/internal/waveform"
	"github.com/muesli/reflow/ansi"
)

func TestPlayerStatusView(t *testing.T) {
	tests := []struct {
		name   string
		status playerStatus
		want   []string
	}{
		{
			name:   "idle",
			status: playerStatus{state: waveform.StateIdle},
		},
		{
			name:   "loading",
			status: playerStatus{state: waveform.StateLoading},
			want:   []string{"⟳", "loading"},
		},
		{
			name: "playing",
			status: playerStatus{
				state:    waveform.StatePlaying,
				playback: waveform.Playback{Playing: true, Position: 5 * time.Second, Duration: 75 * time.Second},
				peaks:    []float64{0, 0.5, 1},
			},
			want: []string{"▶", "00:05 / 01:15", "▁▅█"},
		},
		{
			name:   "decode failure",
			status: playerStatus{state: waveform.StateIdle, err: errors.New("unable to decode audio")},
			want:   []string{"✗", "unable to decode audio"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := tt.status.view(80)
			if len(tt.want) == 0 && view != "" {
				t.Errorf("expected empty view, got %q", view)
			}
			plain := stripANSI(view)
			for _, w := range tt.want {
				if !strings.Contains(plain, w) {
					t.Errorf("expected %q in %q", w, plain)
				}
			}
		})
	}
}

func TestPlayerWaveformClampsWidth(t *testing.T) {
	s := playerStatus{
		state:    waveform.StatePlaying,
		playback: waveform.Playback{Position: time.Second, Duration: 2 * time.Second},
		peaks:    make([]float64, 40),
	}
	if w := ansi.PrintableRuneWidth(s.waveform(20)); w != 20 {
		t.Errorf("expected 20 cells, got %d", w)
	}
}

func TestPlayerHelp(t *testing.T) {
	if (playerStatus{state: waveform.StateFinished}).help() != "ctrl+p replay" {
		t.Error("finished clips offer replay")
	}
	if (playerStatus{state: waveform.StateIdle}).help() != "" {
		t.Error("idle player has no hint")
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}
