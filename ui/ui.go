// Package ui provides the interactive synthesis demo.
package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttsconsole/internal/activity"
	"github.com/dgnsrekt/ttsconsole/internal/attempt"
	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/dgnsrekt/ttsconsole/internal/session"
	"github.com/dgnsrekt/ttsconsole/internal/waveform"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
	te "github.com/muesli/termenv"
)

const (
	statusMessageTimeout = time.Second * 3
	ellipsis             = "…"
	maxWaveformWidth     = 96
)

// Deps are the services the demo drives.
type Deps struct {
	Runner    *attempt.Runner
	Providers ProviderLister
	Log       *activity.Log
	Player    *waveform.Player
	Session   *session.Session // optional
}

// NewProgram returns a new Tea program.
func NewProgram(ctx context.Context, cfg Config, deps Deps) *tea.Program {
	log.Debug(
		"starting ttsconsole",
		"glamour", cfg.GlamourEnabled,
		"sample_interval", cfg.SampleInterval,
	)

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(ctx, cfg, deps), opts...)
}

type model struct {
	ctx     context.Context
	cfg     Config
	deps    Deps
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	form    formModel
	logs    logModel

	width  int
	height int

	// Current attempt. seq identifies the submission whose result is shown.
	// pending stays set until the runner settles, even once the result has
	// been dismissed.
	loading   bool
	pending   bool
	seq       int
	cancel    context.CancelFunc
	outcome   gateway.Outcome
	elapsed   time.Duration
	inlineErr string

	ticking        bool
	sessionExpired bool

	activity      <-chan struct{}
	sessionEvents chan sessionEventMsg

	statusMessage      string
	statusMessageTimer *time.Timer
}

func newModel(ctx context.Context, cfg Config, deps Deps) model {
	if cfg.GlamourStyle == "" || cfg.GlamourStyle == styles.AutoStyle {
		if te.HasDarkBackground() {
			cfg.GlamourStyle = styles.DarkStyle
		} else {
			cfg.GlamourStyle = styles.LightStyle
		}
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 100 * time.Millisecond
	}
	if cfg.LogHeight <= 0 {
		cfg.LogHeight = 8
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = focusedLabelStyle

	m := model{
		ctx:           ctx,
		cfg:           cfg,
		deps:          deps,
		keys:          defaultKeyMap(),
		help:          help.New(),
		spinner:       sp,
		form:          newFormModel(cfg),
		logs:          newLogModel(cfg),
		sessionEvents: make(chan sessionEventMsg, 4),
	}

	if deps.Log != nil {
		m.activity = deps.Log.Subscribe()
		m.logs.setEntries(deps.Log.Entries())
	}
	if deps.Session != nil {
		events := m.sessionEvents
		deps.Session.OnExpired(func() {
			select {
			case events <- sessionEventMsg{expired: true}:
			default:
			}
		})
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		fetchProvidersCmd(m.ctx, m.deps.Providers),
		waitForSession(m.sessionEvents),
	}
	if m.activity != nil {
		cmds = append(cmds, waitForActivity(m.activity))
	}
	if m.deps.Session != nil && m.cfg.SessionFile != "" {
		cmds = append(cmds, watchSessionCmd(m.ctx, m.deps.Session, m.cfg.SessionFile, m.sessionEvents))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.ForceQuit):
			m.teardown()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Quit):
			if m.logs.expanded {
				m.logs.toggleExpanded()
				return m, nil
			}
			m.teardown()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Submit):
			return m, m.submit()

		case key.Matches(msg, m.keys.Cancel):
			return m, m.abandon()

		case key.Matches(msg, m.keys.Toggle):
			return m, m.togglePlayback()

		case key.Matches(msg, m.keys.Next):
			m.form.next()
			m.logs.focused = m.form.focus == fieldLog
			return m, nil

		case key.Matches(msg, m.keys.Prev):
			m.form.prev()
			m.logs.focused = m.form.focus == fieldLog
			return m, nil

		case key.Matches(msg, m.keys.Edit):
			return m, openEditor(m.form.extra.Value())
		}

		switch m.form.focus {
		case fieldSubmit:
			if msg.String() == "enter" || msg.String() == " " {
				return m, m.submit()
			}
			return m, nil

		case fieldLog:
			switch {
			case key.Matches(msg, m.keys.Up):
				m.logs.moveUp()
			case key.Matches(msg, m.keys.Down):
				m.logs.moveDown()
			case key.Matches(msg, m.keys.Expand):
				m.logs.toggleExpanded()
			case key.Matches(msg, m.keys.Copy):
				if _, ok := m.logs.copySelected(); ok {
					cmds = append(cmds, m.showStatusMessage("Copied payload"))
				}
			}
			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.form.setWidth(msg.Width)
		m.help.Width = msg.Width
		m.logs.setSize(msg.Width, m.cfg.LogHeight)
		return m, nil

	case synthesisDoneMsg:
		return m, m.settle(msg)

	case clipDecodedMsg:
		m.deps.Player.Complete(msg.gen, msg.clip, msg.err)
		return m, m.ensureTicking()

	case playbackTickMsg:
		m.deps.Player.Sample()
		if m.deps.Player.State() == waveform.StatePlaying {
			return m, playbackTick(m.cfg.SampleInterval)
		}
		m.ticking = false
		return m, nil

	case activityChangedMsg:
		m.logs.setEntries(m.deps.Log.Entries())
		return m, waitForActivity(m.activity)

	case providersMsg:
		m.form.provider.err = msg.err
		if msg.err == nil {
			m.form.provider.setHints(msg.hints)
		}
		if errors.Is(msg.err, gateway.ErrUnauthorized) {
			m.sessionExpired = true
		}
		return m, nil

	case sessionEventMsg:
		cmds = append(cmds, waitForSession(m.sessionEvents))
		if msg.expired {
			m.sessionExpired = true
		} else if m.deps.Session != nil && m.deps.Session.LoggedIn() {
			m.sessionExpired = false
			cmds = append(cmds, fetchProvidersCmd(m.ctx, m.deps.Providers))
		}
		return m, tea.Batch(cmds...)

	case editorFinishedMsg:
		defer os.Remove(msg.path) //nolint:errcheck
		if msg.err != nil {
			return m, m.showStatusMessage("Editor failed: " + msg.err.Error())
		}
		b, err := os.ReadFile(msg.path)
		if err != nil {
			return m, m.showStatusMessage("Unable to read edited params: " + err.Error())
		}
		m.form.extra.SetValue(strings.TrimRight(string(b), "\n"))
		return m, nil

	case errMsg:
		log.Error("ui error", "error", msg.err)
		return m, m.showStatusMessage(msg.Error())

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

// submit validates the form and starts an attempt. Nothing happens while
// an attempt is in flight or the form is incomplete.
func (m *model) submit() tea.Cmd {
	if m.loading || !m.form.ready() {
		return nil
	}
	if m.pending || m.deps.Runner.Busy() {
		return m.showStatusMessage("Waiting for the dismissed request to settle")
	}

	req, err := gateway.Build(
		m.form.text.Value(),
		m.form.voice.Value(),
		m.form.provider.value(),
		m.form.extra.Value(),
	)
	if err != nil {
		m.inlineErr = validationMessage(err)
		return nil
	}

	m.inlineErr = ""
	m.outcome = nil
	m.deps.Player.Close()

	ctx, cancel := context.WithCancel(m.ctx)
	m.seq++
	m.cancel = cancel
	m.loading = true
	m.pending = true

	return tea.Batch(m.spinner.Tick, synthesizeCmd(ctx, m.deps.Runner, m.seq, req))
}

// abandon stops waiting for the current attempt. The call keeps running
// and settles in the log, but its result is never shown.
func (m *model) abandon() tea.Cmd {
	if !m.loading {
		return nil
	}
	m.seq++
	m.loading = false
	return m.showStatusMessage("Request dismissed")
}

func (m *model) settle(msg synthesisDoneMsg) tea.Cmd {
	// At most one attempt is outstanding, so any settlement releases it.
	m.pending = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if msg.seq != m.seq {
		log.Debug("dropping result of dismissed attempt", "attempt", msg.result.ID)
		return nil
	}

	m.loading = false

	if msg.err != nil {
		m.inlineErr = msg.err.Error()
		return nil
	}

	m.outcome = msg.result.Outcome
	m.elapsed = msg.result.Elapsed

	switch o := msg.result.Outcome.(type) {
	case gateway.Success:
		gen := m.deps.Player.Begin()
		return decodeCmd(gen, o.Audio, o.MIMEType)
	case gateway.Failure:
		m.inlineErr = attempt.InlineError(o)
		if errors.Is(o, gateway.ErrUnauthorized) {
			m.sessionExpired = true
		}
	}
	return nil
}

func (m *model) togglePlayback() tea.Cmd {
	if err := m.deps.Player.Toggle(); err != nil {
		return m.showStatusMessage("Playback failed: " + err.Error())
	}
	return m.ensureTicking()
}

// ensureTicking starts position sampling if the player is playing.
func (m *model) ensureTicking() tea.Cmd {
	if m.ticking || m.deps.Player.State() != waveform.StatePlaying {
		return nil
	}
	m.ticking = true
	return playbackTick(m.cfg.SampleInterval)
}

func (m *model) teardown() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.seq++
	m.deps.Player.Close()
}

func (m *model) showStatusMessage(s string) tea.Cmd {
	m.statusMessage = s
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)
	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TTS Interactive Demo"))
	if m.sessionExpired {
		b.WriteString("  " + errorTitleStyle.Render("SESSION EXPIRED") +
			subtleStyle.Render(" run `ttsconsole login` to sign in again"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.form.view(m.loading, m.pending, m.spinner.View()))
	b.WriteString("\n")

	if m.inlineErr != "" {
		b.WriteString("\n" + errorStyle.Render(wordwrap.String(m.inlineErr, max(m.width-2, 20))) + "\n")
	}

	if summary := m.outcomeSummary(); summary != "" {
		b.WriteString("\n" + subtleStyle.Render(summary) + "\n")
	}

	status := m.playerStatus()
	if v := status.view(m.width); v != "" {
		b.WriteString("\n" + v + "\n")
	}

	b.WriteString("\n" + m.logs.view() + "\n")

	if m.statusMessage != "" {
		b.WriteString("\n" + focusedLabelStyle.Render(m.statusMessage))
	} else {
		hint := m.help.View(m.keys)
		if h := status.help(); h != "" {
			hint = subtleStyle.Render(h) + "  " + hint
		}
		b.WriteString("\n" + hint)
	}

	return b.String()
}

func (m model) playerStatus() playerStatus {
	width := min(max(m.width, 10), maxWaveformWidth)
	return playerStatus{
		state:    m.deps.Player.State(),
		playback: m.deps.Player.Playback(),
		peaks:    m.deps.Player.Peaks(width),
		err:      m.deps.Player.Err(),
	}
}

// outcomeSummary describes a successful result.
func (m model) outcomeSummary() string {
	s, ok := m.outcome.(gateway.Success)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s · %s · %dms",
		s.MIMEType,
		humanize.Bytes(uint64(len(s.Audio))),
		m.elapsed.Milliseconds(),
	)
}

func validationMessage(err error) string {
	var ve *gateway.ValidationError
	if errors.As(err, &ve) && ve.Reason == gateway.ReasonMalformedExtra {
		return "Invalid JSON in Extra Params"
	}
	return "Invalid input: " + err.Error()
}

func watchSessionCmd(ctx context.Context, s *session.Session, path string, events chan<- sessionEventMsg) tea.Cmd {
	return func() tea.Msg {
		err := session.Watch(ctx, s, path, func() {
			select {
			case events <- sessionEventMsg{}:
			default:
			}
		})
		if err != nil {
			log.Warn("session watch stopped", "error", err)
		}
		return nil
	}
}
