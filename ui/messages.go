package ui

import (
	"context"
	"errors"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/editor"
	"github.com/dgnsrekt/ttsconsole/internal/attempt"
	"github.com/dgnsrekt/ttsconsole/internal/audio"
	"github.com/dgnsrekt/ttsconsole/internal/gateway"
)

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// synthesisDoneMsg carries a settled attempt. seq identifies the submission
// that started it; results from abandoned submissions are ignored.
type synthesisDoneMsg struct {
	seq    int
	result attempt.Result
	err    error
}

// clipDecodedMsg carries decoded audio for the player load gen.
type clipDecodedMsg struct {
	gen  uint64
	clip *audio.Clip
	err  error
}

type playbackTickMsg time.Time

type activityChangedMsg struct{}

type providersMsg struct {
	hints []string
	err   error
}

type sessionEventMsg struct {
	expired bool
}

type editorFinishedMsg struct {
	path string
	err  error
}

type statusMessageTimeoutMsg struct{}

// ProviderLister lists the gateway's configured providers.
type ProviderLister interface {
	Providers(ctx context.Context) ([]gateway.Provider, error)
}

// COMMANDS

func synthesizeCmd(ctx context.Context, r *attempt.Runner, seq int, req gateway.SpeechRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := r.Run(ctx, req)
		return synthesisDoneMsg{seq: seq, result: res, err: err}
	}
}

func decodeCmd(gen uint64, data []byte, mimeType string) tea.Cmd {
	return func() tea.Msg {
		clip, err := audio.Decode(data, mimeType)
		return clipDecodedMsg{gen: gen, clip: clip, err: err}
	}
}

func playbackTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return playbackTickMsg(t)
	})
}

func waitForActivity(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return activityChangedMsg{}
	}
}

func waitForSession(ch <-chan sessionEventMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func fetchProvidersCmd(ctx context.Context, lister ProviderLister) tea.Cmd {
	return func() tea.Msg {
		if lister == nil {
			return providersMsg{}
		}
		providers, err := lister.Providers(ctx)
		if err != nil {
			log.Debug("unable to list providers", "error", err)
			return providersMsg{err: err}
		}
		return providersMsg{hints: gateway.ProviderHints(providers)}
	}
}

// openEditor writes the extra parameters to a temp file and opens it in
// $EDITOR.
func openEditor(content string) tea.Cmd {
	f, err := os.CreateTemp("", "ttsconsole-extra-*.json")
	if err != nil {
		return func() tea.Msg { return errMsg{err} }
	}
	path := f.Name()
	_, werr := f.WriteString(content)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return func() tea.Msg { return errMsg{err} }
	}

	c, err := editor.Cmd("ttsconsole", path)
	if err != nil {
		return func() tea.Msg { return errMsg{err} }
	}
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return editorFinishedMsg{path: path, err: err}
	})
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}
