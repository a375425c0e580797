// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sagedesk/sage-tui/internal/util"
)

// chromeHeight is the vertical space taken by header, input box and
// status bar around the viewport.
const chromeHeight = 6

// sidebarWidth returns the session pane width for the current terminal
// size, zero when the terminal is too narrow for a split view.
func (m *Model) sidebarWidth() int {
	if m.width < 70 {
		return 0
	}
	w := m.width / 4
	if w < 24 {
		w = 24
	}
	if w > 40 {
		w = 40
	}
	return w
}

// View renders the complete chat interface.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(m.viewBody())
	b.WriteString("\n")
	b.WriteString(m.viewInput())
	b.WriteString("\n")
	b.WriteString(m.viewStatus())
	return b.String()
}

// =============================================================================
// PANES
// =============================================================================

func (m *Model) viewHeader() string {
	title := m.theme.HeaderTitle.Render("sage")

	parts := []string{title}
	if id := m.core.Stream.ActiveID(); id != 0 {
		if sess := m.core.Sessions.Get(id); sess != nil {
			parts = append(parts, m.theme.HeaderBadge.Render(
				util.TruncateWidth(sess.DisplayTitle(), m.width/2)))
		}
	}
	if m.core.Incognito.Active() {
		parts = append(parts, m.theme.IncognitoBadge.Render("INCOGNITO"))
	}

	return m.theme.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m *Model) viewBody() string {
	sw := m.sidebarWidth()
	if sw == 0 {
		return m.viewport.View()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(sw), m.viewport.View())
}

func (m *Model) viewSidebar(width int) string {
	inner := width - 2
	height := m.viewport.Height

	var lines []string
	if m.focus == focusSearch {
		lines = append(lines, m.theme.SearchBox.Width(inner).Render(m.searchInput.View()))
		if m.searcher.Searching() {
			lines = append(lines, m.theme.SessionMeta.Render("searching..."))
		}
	}

	sessions := m.sidebarSessions()
	if len(sessions) == 0 {
		empty := "No sessions"
		if m.focus == focusSearch && m.searcher.Query() != "" {
			empty = "No matches"
		}
		lines = append(lines, m.theme.SessionMeta.Render(empty))
	}
	for i, sess := range sessions {
		if len(lines) >= height {
			break
		}
		selected := i == m.sidebarIndex && m.focus != focusInput
		lines = append(lines, sessionLine(sess, selected, inner, m.theme))
	}

	if m.focus != focusSearch && m.core.Sessions.HasMore() {
		lines = append(lines, m.theme.SessionMeta.Render("ctrl+l for more"))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}

	return m.theme.Sidebar.Width(width).Height(height).Render(strings.Join(lines[:height], "\n"))
}

func (m *Model) viewInput() string {
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
}

func (m *Model) viewStatus() string {
	if m.toast != "" {
		style := m.theme.Toast
		if m.toastIsUndo {
			style = m.theme.UndoToast
		}
		return style.Render(m.toast)
	}
	if m.errText != "" {
		return m.theme.StatusBar.Width(m.width).Render(
			m.theme.ErrorText.Render("error: " + util.TruncateWidth(m.errText, m.width-10)))
	}

	var left string
	switch {
	case m.sending:
		left = m.spinner.View() + " thinking..."
	case m.loading:
		left = m.spinner.View() + " loading..."
	default:
		left = m.shortcutHints()
	}
	return m.theme.StatusBar.Width(m.width).Render(left)
}

// shortcutHints picks the hints relevant to the focused pane.
func (m *Model) shortcutHints() string {
	th := m.theme
	hint := func(k, desc string) string {
		return th.ShortcutKey.Render(k) + " " + th.ShortcutDesc.Render(desc)
	}

	var hints []string
	switch m.focus {
	case focusSidebar:
		hints = []string{
			hint("enter", "open"),
			hint("d", "delete"),
			hint("p", "pin"),
			hint("esc", "back"),
		}
	case focusSearch:
		hints = []string{
			hint("enter", "open"),
			hint("esc", "cancel"),
		}
	default:
		hints = []string{
			hint("enter", "send"),
			hint("ctrl+n", "new"),
			hint("ctrl+p", "sessions"),
			hint("ctrl+f", "search"),
			hint("ctrl+g", "incognito"),
		}
	}
	return strings.Join(hints, "  ")
}
