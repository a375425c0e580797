// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	core "github.com/sagedesk/sage-tui/internal/chat"
	"github.com/sagedesk/sage-tui/internal/config"
	"github.com/sagedesk/sage-tui/internal/model"
	"github.com/sagedesk/sage-tui/internal/search"
	"github.com/sagedesk/sage-tui/internal/ui/styles"
)

// =============================================================================
// FOCUS STATE
// =============================================================================

// focusArea identifies which pane receives keystrokes.
type focusArea int

const (
	focusInput   focusArea = iota // Typing a message
	focusSidebar                  // Navigating the session list
	focusSearch                   // Typing a search query
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State core and search
	core     *core.Core
	searcher *search.Client

	// Event plumbing
	events   <-chan core.Event
	searchCh chan struct{}

	// Configuration and styling
	cfg   *config.Config
	theme *styles.Theme

	// UI components
	viewport    viewport.Model
	input       textinput.Model
	searchInput textinput.Model
	spinner     spinner.Model
	keys        KeyMap

	// Markdown rendering, rebuilt on resize
	markdown *glamour.TermRenderer

	// Dimensions
	width  int
	height int
	ready  bool

	// Interaction state
	focus        focusArea
	sidebarIndex int
	sending      bool
	loading      bool

	// Transient status
	errText     string
	toast       string
	toastIsUndo bool
	toastSeq    int

	// undoTarget is the session a Ctrl+Z would restore, zero when the
	// grace period has lapsed or nothing is pending.
	undoTarget int64
}

// New builds the chat view over an assembled state core. The events
// channel must be the one whose notify callback was handed to the core;
// the search gateway is used to construct the view's own search client.
func New(c *core.Core, searchGW search.Gateway, cfg *config.Config, theme *styles.Theme, events <-chan core.Event) Model {
	input := textinput.New()
	input.Placeholder = "Ask anything..."
	input.CharLimit = 4000
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.PlaceholderStyle = theme.InputPlaceholder
	input.Focus()

	searchInput := textinput.New()
	searchInput.Placeholder = "Search sessions..."
	searchInput.CharLimit = 200
	searchInput.Prompt = "/ "
	searchInput.PromptStyle = theme.InputPrompt
	searchInput.PlaceholderStyle = theme.InputPlaceholder

	sp := spinner.New(
		spinner.WithSpinner(spinner.Line),
		spinner.WithStyle(theme.Spinner),
	)

	searchCh := make(chan struct{}, 1)
	debounce := time.Duration(cfg.Chat.SearchDebounceMs) * time.Millisecond
	searcher := search.New(searchGW, debounce, cfg.Chat.SearchLimit, func() {
		select {
		case searchCh <- struct{}{}:
		default:
		}
	})

	return Model{
		core:        c,
		searcher:    searcher,
		events:      events,
		searchCh:    searchCh,
		cfg:         cfg,
		theme:       theme,
		input:       input,
		searchInput: searchInput,
		spinner:     sp,
		keys:        DefaultKeyMap(),
		loading:     true,
	}
}

// Init starts the event listeners and the initial session list load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listenCore(m.events),
		listenSearch(m.searchCh),
		loadSessionsCmd(m.core),
		textinput.Blink,
	)
}

// Close releases the view's background resources.
func (m *Model) Close() {
	m.searcher.Close()
}

// sidebarSessions returns the list the sidebar currently shows: search
// results while the search overlay is active, otherwise the visible
// session list.
func (m *Model) sidebarSessions() []*model.Session {
	if m.focus == focusSearch && m.searcher.Query() != "" {
		return m.searcher.Results()
	}
	return m.core.Sessions.Sessions()
}

// clampSidebarIndex keeps the selection inside the current list.
func (m *Model) clampSidebarIndex() {
	n := len(m.sidebarSessions())
	if n == 0 {
		m.sidebarIndex = 0
		return
	}
	if m.sidebarIndex >= n {
		m.sidebarIndex = n - 1
	}
	if m.sidebarIndex < 0 {
		m.sidebarIndex = 0
	}
}

// selectedSession returns the highlighted sidebar entry, nil when the
// list is empty.
func (m *Model) selectedSession() *model.Session {
	list := m.sidebarSessions()
	if m.sidebarIndex < 0 || m.sidebarIndex >= len(list) {
		return nil
	}
	return list[m.sidebarIndex]
}
