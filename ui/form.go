package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

// field identifies a focusable part of the demo screen.
type field int

const (
	fieldText field = iota
	fieldVoice
	fieldProvider
	fieldExtra
	fieldSubmit
	fieldLog
	fieldCount
)

type formModel struct {
	text     textarea.Model
	voice    textinput.Model
	provider providerSelect
	extra    textarea.Model
	focus    field
}

func newFormModel(cfg Config) formModel {
	text := textarea.New()
	text.Placeholder = "Text to synthesize"
	text.ShowLineNumbers = false
	text.CharLimit = 0
	text.SetHeight(3)
	text.SetValue(cfg.Text)

	voice := textinput.New()
	voice.Placeholder = "e.g. aliyun, xiaoyun, Joanna, qwen-voice-1"
	voice.SetValue(cfg.Voice)

	extra := textarea.New()
	extra.Placeholder = "{}"
	extra.ShowLineNumbers = false
	extra.CharLimit = 0
	extra.SetHeight(3)
	extra.SetValue(cfg.ExtraBody)

	m := formModel{
		text:     text,
		voice:    voice,
		provider: newProviderSelect(cfg.Model),
		extra:    extra,
	}
	m.setFocus(fieldText)
	return m
}

func (m *formModel) setWidth(w int) {
	w = max(w-4, 10)
	m.text.SetWidth(w)
	m.extra.SetWidth(w)
	m.voice.Width = w
}

func (m *formModel) setFocus(f field) {
	m.focus = f
	m.text.Blur()
	m.voice.Blur()
	m.extra.Blur()
	m.provider.focused = false

	switch f {
	case fieldText:
		m.text.Focus()
	case fieldVoice:
		m.voice.Focus()
	case fieldProvider:
		m.provider.focused = true
	case fieldExtra:
		m.extra.Focus()
	}
}

func (m *formModel) next() {
	m.setFocus((m.focus + 1) % fieldCount)
}

func (m *formModel) prev() {
	m.setFocus((m.focus + fieldCount - 1) % fieldCount)
}

// ready reports whether the submit control is enabled.
func (m formModel) ready() bool {
	return m.text.Value() != "" && strings.TrimSpace(m.voice.Value()) != ""
}

func (m formModel) update(msg tea.Msg) (formModel, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case fieldText:
		m.text, cmd = m.text.Update(msg)
	case fieldVoice:
		m.voice, cmd = m.voice.Update(msg)
	case fieldProvider:
		m.provider = m.provider.update(msg)
	case fieldExtra:
		m.extra, cmd = m.extra.Update(msg)
	}
	return m, cmd
}

func (m formModel) view(loading, pending bool, spin string) string {
	var b strings.Builder

	label := func(f field, s string) string {
		if m.focus == f {
			return focusedLabelStyle.Render(s)
		}
		return labelStyle.Render(s)
	}

	fmt.Fprintf(&b, "%s\n%s\n\n", label(fieldText, "Input Text"), m.text.View())
	fmt.Fprintf(&b, "%s\n%s\n\n", label(fieldVoice, "Voice ID"), m.voice.View())
	fmt.Fprintf(&b, "%s\n%s\n\n", label(fieldProvider, "Provider"), m.provider.view())
	fmt.Fprintf(&b, "%s\n%s\n\n", label(fieldExtra, "Extra Params (JSON)"), m.extra.View())

	switch {
	case loading:
		b.WriteString(disabledButtonStyle.Render(spin + " Synthesizing"))
	case pending, !m.ready():
		b.WriteString(disabledButtonStyle.Render("Synthesize Speech"))
	case m.focus == fieldSubmit:
		b.WriteString(focusedButtonStyle.Render("Synthesize Speech"))
	default:
		b.WriteString(buttonStyle.Render("Synthesize Speech"))
	}

	return b.String()
}

// providerSelect picks a provider hint. Typing filters the list.
type providerSelect struct {
	hints    []string
	filter   string
	matches  []string
	cursor   int
	selected string
	focused  bool
	err      error
}

func newProviderSelect(preferred string) providerSelect {
	return providerSelect{selected: preferred}
}

// setHints replaces the list. The preferred hint stays selected if the
// gateway knows it; otherwise the first provider is selected.
func (p *providerSelect) setHints(hints []string) {
	p.hints = hints
	p.filter = ""
	p.applyFilter()

	for i, h := range p.matches {
		if h == p.selected {
			p.cursor = i
			return
		}
	}
	p.cursor = 0
	if len(p.matches) > 0 {
		p.selected = p.matches[0]
	}
}

func (p *providerSelect) applyFilter() {
	if p.filter == "" {
		p.matches = append([]string(nil), p.hints...)
	} else {
		p.matches = p.matches[:0]
		for _, match := range fuzzy.Find(p.filter, p.hints) {
			p.matches = append(p.matches, match.Str)
		}
	}
	if p.cursor >= len(p.matches) {
		p.cursor = max(len(p.matches)-1, 0)
	}
}

// value is the hint sent with the request. Empty means the default model.
func (p providerSelect) value() string {
	return p.selected
}

func (p providerSelect) update(msg tea.Msg) providerSelect {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p
	}

	switch km.String() {
	case "up", "left":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "right":
		if p.cursor < len(p.matches)-1 {
			p.cursor++
		}
	case "backspace":
		if p.filter != "" {
			p.filter = p.filter[:len(p.filter)-1]
			p.applyFilter()
		}
	default:
		if km.Type == tea.KeyRunes {
			p.filter += string(km.Runes)
			p.cursor = 0
			p.applyFilter()
		}
	}

	if len(p.matches) > 0 {
		p.selected = p.matches[p.cursor]
	}
	return p
}

func (p providerSelect) view() string {
	if len(p.hints) == 0 {
		if p.err != nil {
			return subtleStyle.Render("providers unavailable, using default model")
		}
		if p.selected != "" {
			return p.selected
		}
		return subtleStyle.Render("default")
	}

	var b strings.Builder
	if p.focused && p.filter != "" {
		b.WriteString(subtleStyle.Render("/"+p.filter) + " ")
	}
	for i, h := range p.matches {
		if i > 0 {
			b.WriteString("  ")
		}
		if i == p.cursor {
			if p.focused {
				b.WriteString(focusedLabelStyle.Render("› " + h))
			} else {
				b.WriteString("› " + h)
			}
			continue
		}
		b.WriteString(subtleStyle.Render(h))
	}
	if len(p.matches) == 0 {
		b.WriteString(subtleStyle.Render("no match"))
	}
	return b.String()
}
