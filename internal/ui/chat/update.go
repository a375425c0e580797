// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	core "github.com/sagedesk/sage-tui/internal/chat"
	"github.com/sagedesk/sage-tui/internal/util"
)

// toastDuration is how long informational toasts stay visible. Undo
// toasts instead live for the deletion grace period.
const toastDuration = 4 * time.Second

// Update handles all Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshViewport(false)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.sending || m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case CoreEventMsg:
		cmds = append(cmds, listenCore(m.events))
		if msg.Event.Err != nil {
			m.errText = msg.Event.Err.Error()
		}
		if msg.Event.Kind == core.EventDeletion && m.undoTarget != 0 &&
			!m.core.Ledger.Contains(m.undoTarget) {
			// Grace period lapsed or undo landed elsewhere.
			m.undoTarget = 0
		}
		m.clampSidebarIndex()
		m.refreshViewport(msg.Event.Kind == core.EventMessages)
		return m, tea.Batch(cmds...)

	case searchUpdateMsg:
		cmds = append(cmds, listenSearch(m.searchCh))
		if err := m.searcher.Err(); err != nil {
			m.errText = err.Error()
		}
		m.clampSidebarIndex()
		return m, tea.Batch(cmds...)

	case sendDoneMsg:
		m.sending = false
		if msg.err != nil && !errors.Is(msg.err, core.ErrEmptyMessage) {
			m.errText = msg.err.Error()
		}
		m.refreshViewport(true)
		return m, nil

	case sessionsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		m.clampSidebarIndex()
		return m, nil

	case historyLoadedMsg:
		m.loading = false
		switch {
		case errors.Is(msg.err, core.ErrPendingDelete):
			m.errText = "that session is being deleted"
		case msg.err != nil:
			m.errText = msg.err.Error()
		}
		m.refreshViewport(true)
		return m, nil

	case incognitoToggledMsg:
		m.loading = false
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		if msg.active {
			return m, m.showToast("Incognito on: new chats stay off the record")
		}
		return m, m.showToast("Incognito off")

	case incognitoClearedMsg:
		m.loading = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.refreshViewport(false)
		return m, m.showToast("Cleared " + pluralSessions(msg.count))

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil
	}

	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global bindings first.
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Undo):
		return m.undoDelete()

	case key.Matches(msg, m.keys.Incognito):
		m.loading = true
		return m, tea.Batch(toggleIncognitoCmd(m.core), m.spinner.Tick)

	case key.Matches(msg, m.keys.Search):
		m.focus = focusSearch
		m.sidebarIndex = 0
		m.input.Blur()
		m.searchInput.Focus()
		return m, nil
	}

	switch m.focus {
	case focusSidebar:
		return m.handleSidebarKey(msg)
	case focusSearch:
		return m.handleSearchKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Send):
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.sending {
			return m, nil
		}
		m.sending = true
		m.errText = ""
		m.input.SetValue("")
		return m, tea.Batch(
			sendCmd(m.core, text, m.cfg.Chat.DefaultDataSource),
			m.spinner.Tick,
		)

	case key.Matches(msg, m.keys.NewChat):
		if m.core.Incognito.Active() {
			m.core.Incognito.NewLocalSession("")
		} else {
			m.core.Stream.Clear()
		}
		m.errText = ""
		m.refreshViewport(true)
		return m, nil

	case key.Matches(msg, m.keys.Sidebar):
		m.focus = focusSidebar
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebarIndex--
		m.clampSidebarIndex()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.sidebarIndex++
		m.clampSidebarIndex()
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m.openSelected()

	case key.Matches(msg, m.keys.Delete):
		return m.deleteSelected()

	case key.Matches(msg, m.keys.Pin):
		sess := m.selectedSession()
		if sess == nil || sess.IsLocal() {
			return m, nil
		}
		m.loading = true
		return m, setPinnedCmd(m.core, sess.ID, !sess.IsPinned)

	case key.Matches(msg, m.keys.LoadMore):
		if !m.core.Sessions.HasMore() {
			return m, m.showToast("No more sessions")
		}
		m.loading = true
		return m, tea.Batch(loadMoreCmd(m.core), m.spinner.Tick)

	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Sidebar):
		m.focus = focusInput
		m.input.Focus()
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.searcher.Search("")
		m.searchInput.SetValue("")
		m.searchInput.Blur()
		m.focus = focusInput
		m.input.Focus()
		m.sidebarIndex = 0
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m.openSelected()

	case key.Matches(msg, m.keys.Up):
		m.sidebarIndex--
		m.clampSidebarIndex()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.sidebarIndex++
		m.clampSidebarIndex()
		return m, nil

	default:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		m.searcher.Search(m.searchInput.Value())
		return m, cmd
	}
}

// =============================================================================
// ACTIONS
// =============================================================================

// openSelected loads the highlighted session into the stream and hands
// focus back to the input.
func (m Model) openSelected() (tea.Model, tea.Cmd) {
	sess := m.selectedSession()
	if sess == nil {
		return m, nil
	}

	if m.focus == focusSearch {
		m.searcher.Search("")
		m.searchInput.SetValue("")
		m.searchInput.Blur()
	}
	m.focus = focusInput
	m.input.Focus()
	m.loading = true
	m.errText = ""
	return m, tea.Batch(openSessionCmd(m.core, sess.ID), m.spinner.Tick)
}

// deleteSelected starts a grace-period delete and surfaces the undo toast.
func (m Model) deleteSelected() (tea.Model, tea.Cmd) {
	sess := m.selectedSession()
	if sess == nil {
		return m, nil
	}

	title := sess.DisplayTitle()
	if err := m.core.Ledger.Delete(sess.ID); err != nil {
		m.errText = err.Error()
		return m, nil
	}

	m.undoTarget = sess.ID
	m.clampSidebarIndex()
	return m, m.showUndoToast("Deleted \"" + title + "\"  ctrl+z to undo")
}

// undoDelete restores the most recently deleted session if its grace
// period has not lapsed.
func (m Model) undoDelete() (tea.Model, tea.Cmd) {
	if m.undoTarget == 0 {
		return m, nil
	}

	err := m.core.Ledger.Undo(m.undoTarget)
	m.undoTarget = 0
	switch {
	case errors.Is(err, core.ErrTooLate):
		return m, m.showToast("Too late: the session is already being deleted")
	case errors.Is(err, core.ErrNotPending):
		return m, nil
	case err != nil:
		m.errText = err.Error()
		return m, nil
	}
	return m, m.showToast("Restored")
}

// =============================================================================
// HELPERS
// =============================================================================

// showToast installs a transient status message.
func (m *Model) showToast(text string) tea.Cmd {
	m.toast = text
	m.toastIsUndo = false
	m.toastSeq++
	return toastCmd(m.toastSeq, toastDuration)
}

func (m *Model) showUndoToast(text string) tea.Cmd {
	m.toast = text
	m.toastIsUndo = true
	m.toastSeq++
	return toastCmd(m.toastSeq, m.core.Config().GracePeriod)
}

// resize recomputes pane dimensions and rebuilds the markdown renderer
// for the new wrap width.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	vpWidth := width - m.sidebarWidth() - 1
	vpHeight := height - chromeHeight
	if vpWidth < 10 {
		vpWidth = 10
	}
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(vpWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = vpWidth
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 6

	wrap := vpWidth - 2
	if wrap < 20 {
		wrap = 20
	}
	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	); err == nil {
		m.markdown = r
	}
}

// refreshViewport re-renders the conversation. When follow is set the
// view snaps to the latest message, matching what a chat user expects
// after sending or receiving.
func (m *Model) refreshViewport(follow bool) {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(renderConversation(
		m.core.Stream.Messages(), m.viewport.Width, m.markdown, m.theme,
	))
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}

func pluralSessions(n int) string {
	if n == 1 {
		return "1 incognito session"
	}
	return util.IntToString(n) + " incognito sessions"
}
