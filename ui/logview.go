package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttsconsole/internal/activity"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const timestampLayout = "15:04:05"

// logModel shows the activity log, newest at the bottom.
type logModel struct {
	viewport viewport.Model
	entries  []activity.Entry
	selected int
	expanded bool
	focused  bool
	width    int

	glamourEnabled  bool
	glamourStyle    string
	glamourMaxWidth int
}

func newLogModel(cfg Config) logModel {
	vp := viewport.New(0, cfg.LogHeight)
	return logModel{
		viewport:        vp,
		selected:        -1,
		glamourEnabled:  cfg.GlamourEnabled,
		glamourStyle:    cfg.GlamourStyle,
		glamourMaxWidth: int(cfg.GlamourMaxWidth), //nolint:gosec
	}
}

func (m *logModel) setSize(w, h int) {
	m.width = w
	m.viewport.Width = w
	m.viewport.Height = max(h, 1)
	m.render()
}

// setEntries replaces the rows and scrolls to the newest one.
func (m *logModel) setEntries(entries []activity.Entry) {
	m.entries = entries
	if m.selected >= len(entries) {
		m.selected = len(entries) - 1
		m.expanded = false
	}
	m.render()
	if !m.expanded {
		m.viewport.GotoBottom()
	}
}

func (m *logModel) moveUp() {
	if len(m.entries) == 0 {
		return
	}
	if m.selected < 0 {
		m.selected = len(m.entries)
	}
	m.selected = max(m.selected-1, 0)
	m.render()
	m.follow()
}

func (m *logModel) moveDown() {
	if len(m.entries) == 0 {
		return
	}
	m.selected = min(m.selected+1, len(m.entries)-1)
	m.render()
	m.follow()
}

func (m *logModel) toggleExpanded() {
	if m.selected < 0 {
		return
	}
	m.expanded = !m.expanded
	m.render()
	m.follow()
}

// follow keeps the selected row visible.
func (m *logModel) follow() {
	if m.selected < 0 {
		return
	}
	line := m.lineOf(m.selected)
	switch {
	case line < m.viewport.YOffset:
		m.viewport.SetYOffset(line)
	case line >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}

// lineOf returns the first content line of row i.
func (m logModel) lineOf(i int) int {
	line := i
	if m.expanded && m.selected >= 0 && i > m.selected {
		line += strings.Count(m.detail(m.entries[m.selected]), "\n") + 1
	}
	return line
}

// copySelected copies the selected payload to the clipboard.
func (m logModel) copySelected() (string, bool) {
	if m.selected < 0 || m.selected >= len(m.entries) {
		return "", false
	}
	payload := m.entries[m.selected].PayloadText()
	if err := clipboard.WriteAll(payload); err != nil {
		log.Debug("clipboard unavailable", "error", err)
		return "", false
	}
	return payload, true
}

func (m *logModel) render() {
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.row(e, i == m.selected))
		if i == m.selected && m.expanded {
			b.WriteByte('\n')
			b.WriteString(m.detail(e))
		}
	}
	m.viewport.SetContent(b.String())
}

// row renders one entry: marker, time, method, URL, status, duration.
func (m logModel) row(e activity.Entry, selected bool) string {
	marker := "  "
	if selected {
		marker = selectedStyle.Render("› ")
		if m.expanded {
			marker = selectedStyle.Render("⌄ ")
		}
	}

	ts := "[" + e.Timestamp.Format(timestampLayout) + "]"
	tail := ""
	if e.Status != nil {
		style := statusOKStyle
		if e.IsError || *e.Status >= 400 || *e.Status == 0 {
			style = statusErrStyle
		}
		tail += " " + style.Render(strconv.Itoa(*e.Status))
	}
	if ms, ok := e.DurationMs(); ok {
		tail += " " + durationStyle.Render(fmt.Sprintf("%dms", ms))
	}

	fixed := 2 + len(ts) + 1 + len(e.Method) + 1 + ansi.PrintableRuneWidth(tail)
	url := e.URL
	if m.width > 0 {
		url = runewidth.Truncate(url, max(m.width-fixed, 8), ellipsis)
	}

	return marker +
		timestampStyle.Render(ts) + " " +
		methodStyle.Render(e.Method) + " " +
		url + tail
}

// detail renders the payload of e below its row.
func (m logModel) detail(e activity.Entry) string {
	payload := e.PayloadText()
	if payload == "" {
		return subtleStyle.Render(indent.String("(no payload)", 4))
	}

	if m.glamourEnabled {
		out, err := m.glamourPayload(payload)
		if err == nil {
			return strings.TrimRight(out, "\n")
		}
		log.Debug("glamour render failed", "error", err)
	}

	return indent.String(wordwrap.String(payload, max(m.width-4, 20)), 4)
}

func (m logModel) glamourPayload(payload string) (string, error) {
	lang := "json"
	if !strings.HasPrefix(strings.TrimSpace(payload), "{") && !strings.HasPrefix(strings.TrimSpace(payload), "[") {
		lang = "text"
	}

	wrap := max(m.width-4, 20)
	if m.glamourMaxWidth > 0 {
		wrap = min(wrap, m.glamourMaxWidth)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.glamourStyle),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return "", fmt.Errorf("error creating glamour renderer: %w", err)
	}

	out, err := r.Render("```" + lang + "\n" + payload + "\n```")
	if err != nil {
		return "", fmt.Errorf("error rendering payload: %w", err)
	}
	return out, nil
}

func (m logModel) view() string {
	title := "Network Logs"
	if m.focused {
		title = focusedLabelStyle.Render(title)
	}
	header := logHeaderStyle.Width(max(m.width, 1)).Render(title)
	if len(m.entries) == 0 {
		return header + "\n" + subtleStyle.Render("No requests yet.")
	}
	return header + "\n" + m.viewport.View()
}
