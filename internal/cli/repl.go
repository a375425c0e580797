// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Plain-terminal chat fallback.
//
// USABILITY: Markdown rendering and history for better CLI experience
//
// The REPL covers terminals that cannot host the TUI (dumb terminals,
// ssh without a pty). It drives the same state core as the TUI.
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new                Start a new chat
//   /sessions           List recent sessions
//   /open N             Open session N from the last listing
//   /delete             Delete the current session (undo with /undo)
//   /undo               Undo the last delete
//   /search TEXT        Search sessions
//   /incognito          Toggle incognito mode
//   /source NAME        Switch data source
//   /quit, /q           Exit chat
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/sagedesk/sage-tui/internal/chat"
	"github.com/sagedesk/sage-tui/internal/config"
	"github.com/sagedesk/sage-tui/internal/model"
	"github.com/sagedesk/sage-tui/internal/prefs"
	"github.com/sagedesk/sage-tui/internal/search"
	"github.com/sagedesk/sage-tui/internal/util"
)

// =============================================================================
// INPUT WITH HISTORY
// =============================================================================

// replInput wraps liner with persistent history.
// USABILITY: Supports arrow keys for history navigation and line editing.
type replInput struct {
	line        *liner.State
	historyFile string
}

func newReplInput() *replInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &replInput{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (r *replInput) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *replInput) close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

// =============================================================================
// REPL SESSION
// =============================================================================

// Repl drives the state core from a line-oriented prompt.
type Repl struct {
	core       *chat.Core
	searchGW   search.Gateway
	live       *config.Live
	input      *replInput
	dataSource string

	// prefs persists search filters; nil when the store failed to open,
	// in which case /filter degrades to session-local state.
	prefs  *prefs.Store
	filter model.Filter

	// lastListing maps the numbers of the most recent /sessions or
	// /search output to session ids for /open.
	lastListing []int64

	// lastDeleted is the target of a future /undo.
	lastDeleted int64
}

// NewRepl builds the fallback REPL over an assembled core. The live
// config may be swapped by a file watcher while the loop runs, so field
// reads always go through a fresh snapshot.
func NewRepl(core *chat.Core, searchGW search.Gateway, live *config.Live) *Repl {
	r := &Repl{
		core:       core,
		searchGW:   searchGW,
		live:       live,
		dataSource: live.Get().Chat.DefaultDataSource,
	}
	if path, err := prefs.DefaultPath(); err == nil {
		if store, err := prefs.Open(path); err == nil {
			r.prefs = store
			if f, err := store.CurrentFilter(); err == nil {
				r.filter = f
			}
		}
	}
	return r
}

// Run enters the prompt loop until exit or EOF.
func (r *Repl) Run(ctx context.Context) error {
	r.input = newReplInput()
	defer r.input.close()
	if r.prefs != nil {
		defer r.prefs.Close()
	}

	fmt.Println(infoStyle.Render("sage " + util.Version + " (plain terminal mode, /help for commands)"))
	if err := r.core.Sessions.Load(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("[offline] ")+err.Error())
	}

	for {
		input, err := r.input.read(r.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				return nil
			}
			// EOF (Ctrl+D) exits cleanly.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}
		if strings.HasPrefix(input, "/") {
			quit, err := r.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render("[error] ")+err.Error())
			}
			if quit {
				return nil
			}
			continue
		}

		if err := r.send(ctx, input); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("[error] ")+err.Error())
		}
	}
}

func (r *Repl) prompt() string {
	if r.core.Incognito.Active() {
		return incognitoStyle.Render("sage (incognito)> ")
	}
	return promptStyle.Render("sage> ")
}

// =============================================================================
// MESSAGE FLOW
// =============================================================================

func (r *Repl) send(ctx context.Context, text string) error {
	if err := r.core.Stream.Send(ctx, text, r.dataSource); err != nil {
		return err
	}

	msgs := r.core.Stream.Messages()
	if len(msgs) == 0 {
		return nil
	}
	last := msgs[len(msgs)-1]
	if last.Role != model.RoleAssistant {
		return nil
	}

	fmt.Println(assistantStyle.Render(last.Role.DisplayName()+": ") + last.Content)
	if r.live.Get().UI.ShowSources && len(last.Sources) > 0 {
		fmt.Println(infoStyle.Render(fmt.Sprintf("  (%d sources)", len(last.Sources))))
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (r *Repl) handleCommand(ctx context.Context, input string) (quit bool, err error) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/q":
		return true, nil

	case "/help", "/h":
		r.printHelp()
		return false, nil

	case "/new":
		r.core.Stream.Clear()
		fmt.Println(infoStyle.Render("started a new chat"))
		return false, nil

	case "/sessions":
		if err := r.core.Sessions.Load(ctx); err != nil {
			return false, err
		}
		r.printListing(r.core.Sessions.Sessions())
		return false, nil

	case "/open":
		return false, r.openFromListing(ctx, arg)

	case "/delete":
		id := r.core.Stream.ActiveID()
		if id <= 0 {
			return false, errors.New("no persisted session is open")
		}
		if err := r.core.Ledger.Delete(id); err != nil {
			return false, err
		}
		grace := r.core.Config().GracePeriod
		fmt.Println(infoStyle.Render(fmt.Sprintf("session deleted, /undo within %s", grace)))
		r.lastDeleted = id
		return false, nil

	case "/undo":
		if r.lastDeleted == 0 {
			return false, errors.New("nothing to undo")
		}
		if err := r.core.Ledger.Undo(r.lastDeleted); err != nil {
			return false, err
		}
		fmt.Println(infoStyle.Render("session restored"))
		r.lastDeleted = 0
		return false, nil

	case "/search":
		if arg == "" {
			return false, errors.New("usage: /search TEXT")
		}
		return false, r.runSearch(arg)

	case "/incognito":
		if err := r.core.Incognito.Toggle(ctx); err != nil {
			return false, err
		}
		if r.core.Incognito.Active() {
			fmt.Println(incognitoStyle.Render("incognito on: this conversation will not be saved"))
		} else {
			fmt.Println(infoStyle.Render("incognito off"))
		}
		return false, nil

	case "/filter":
		return false, r.handleFilter(arg)

	case "/source":
		switch arg {
		case "company_faqs", "uploaded_files", "general_knowledge":
			r.dataSource = arg
			fmt.Println(infoStyle.Render("data source: " + arg))
			return false, nil
		default:
			return false, fmt.Errorf("unknown data source %q", arg)
		}

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func (r *Repl) openFromListing(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(r.lastListing) {
		return errors.New("usage: /open N (after /sessions or /search)")
	}
	id := r.lastListing[n-1]
	if err := r.core.Stream.LoadHistory(ctx, id); err != nil {
		return err
	}

	for _, msg := range r.core.Stream.Messages() {
		prefix := msg.Role.DisplayName() + ": "
		if msg.Role == model.RoleAssistant {
			fmt.Println(assistantStyle.Render(prefix) + msg.Content)
		} else {
			fmt.Println(prefix + msg.Content)
		}
	}
	return nil
}

// runSearch bypasses the debounce: a submitted command is already the
// final query, unlike keystrokes in the TUI overlay.
func (r *Repl) runSearch(query string) error {
	done := make(chan struct{}, 1)
	searcher := search.New(r.searchGW, 1, r.live.Get().Chat.SearchLimit, func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	defer searcher.Close()

	searcher.SetFilter(r.filter)
	searcher.Search(query)
	for searcher.Searching() {
		<-done
	}
	if err := searcher.Err(); err != nil {
		return err
	}

	results := searcher.Results()
	if len(results) == 0 {
		fmt.Println(infoStyle.Render("no matches"))
		return nil
	}
	r.printListing(results)
	return nil
}

// handleFilter manages the search filter: recency windows applied to
// /search results, optionally saved by name for reuse.
func (r *Repl) handleFilter(arg string) error {
	sub, name, _ := strings.Cut(arg, " ")
	name = strings.TrimSpace(name)

	switch sub {
	case "", "show":
		fmt.Println(infoStyle.Render("filter: " + describeFilter(r.filter)))
		return nil

	case "today", "week", "month", "all":
		if sub == "all" {
			r.filter.DateRange = model.DateRangeAny
		} else {
			r.filter.DateRange = model.DateRange(sub)
		}
		r.persistFilter()
		fmt.Println(infoStyle.Render("filter: " + describeFilter(r.filter)))
		return nil

	case "save":
		if r.prefs == nil {
			return errors.New("filter store unavailable")
		}
		if name == "" {
			return errors.New("usage: /filter save NAME")
		}
		if err := r.prefs.SaveFilter(name, r.filter); err != nil {
			return err
		}
		fmt.Println(infoStyle.Render("saved filter " + name))
		return nil

	case "use":
		if r.prefs == nil {
			return errors.New("filter store unavailable")
		}
		f, err := r.prefs.GetFilter(name)
		if err != nil {
			return err
		}
		r.filter = f
		r.persistFilter()
		fmt.Println(infoStyle.Render("filter: " + describeFilter(r.filter)))
		return nil

	case "list":
		if r.prefs == nil {
			return errors.New("filter store unavailable")
		}
		saved, err := r.prefs.ListFilters()
		if err != nil {
			return err
		}
		if len(saved) == 0 {
			fmt.Println(infoStyle.Render("no saved filters"))
			return nil
		}
		for _, sf := range saved {
			fmt.Printf("  %s: %s\n", sf.Name, describeFilter(sf.Filter))
		}
		return nil

	default:
		return errors.New("usage: /filter [today|week|month|all|save NAME|use NAME|list]")
	}
}

func (r *Repl) persistFilter() {
	if r.prefs == nil {
		return
	}
	if err := r.prefs.SetCurrentFilter(r.filter); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("[warn] ")+err.Error())
	}
}

func describeFilter(f model.Filter) string {
	if f.IsZero() {
		return "none"
	}
	var parts []string
	if f.DateRange != model.DateRangeAny {
		parts = append(parts, "range="+string(f.DateRange))
	}
	if f.DataSource != "" {
		parts = append(parts, "source="+f.DataSource)
	}
	if len(f.Tags) > 0 {
		parts = append(parts, "tags="+strings.Join(f.Tags, ","))
	}
	return strings.Join(parts, " ")
}

func (r *Repl) printListing(sessions []*model.Session) {
	r.lastListing = r.lastListing[:0]
	width := TerminalWidth() - 10
	compact := r.live.Get().UI.CompactSidebar
	for i, s := range sessions {
		r.lastListing = append(r.lastListing, s.ID)
		line := fmt.Sprintf("%3d. %s", i+1, util.TruncateWidth(s.DisplayTitle(), width))
		if !compact {
			line += infoStyle.Render("  " + s.UpdatedAt.Format("Jan 2 15:04"))
		}
		fmt.Println(line)
	}
}

func (r *Repl) printHelp() {
	fmt.Print(`Commands:
  /help, /h        show this help
  /new             start a new chat
  /sessions        list recent sessions
  /open N          open session N from the last listing
  /delete          delete the current session
  /undo            undo the last delete
  /search TEXT     search sessions
  /filter ...      search filter (today|week|month|all, save/use/list)
  /incognito       toggle incognito mode
  /source NAME     switch data source (company_faqs, uploaded_files, general_knowledge)
  /quit, /q        exit
`)
}
