// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single query command handler for the sage CLI.
//
// USABILITY: Markdown rendering for better CLI experience
//
// Handles the "sage ask" command which sends a single question to the
// assistant and prints the answer to stdout.
//
// Command: ask [question]
//
// Examples:
//   sage ask "How do I reset my VPN password?"
//   sage ask --source hr_policies "How many vacation days do I get?"
//   sage ask --json "What is the office wifi?" | jq .response

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/sagedesk/sage-tui/internal/gateway"
)

// askTimeout bounds the one-shot round trip. It is deliberately longer
// than the interactive timeout since nothing else is waiting.
const askTimeout = 120 * time.Second

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the shared glamour renderer for CLI output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(TerminalWidth()),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown for terminal display, falling back to
// the raw content when rendering is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse prints a reply, rendering markdown only on a TTY so
// piped output stays clean.
func displayResponse(response string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(response))
	} else {
		fmt.Println(response)
	}
}

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAsk sends one question and prints the answer. The conversation
// is persisted server-side like any other; the printed footer names the
// session id so a follow-up can continue it in the TUI.
func HandleAsk(args Args) {
	if args.Query == "" {
		Fail(errors.New("usage: sage ask \"question\""))
	}

	cfg := LoadConfig(args)
	gw, err := BuildGateway(cfg)
	if err != nil {
		Fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	result, err := gw.Send(ctx, gateway.SendRequest{
		Message:         args.Query,
		DataSource:      cfg.Chat.DefaultDataSource,
		ContextMessages: cfg.Chat.ContextMessages,
		Temperature:     cfg.Chat.Temperature,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			Fail(errors.New("not logged in: run \"sage login\" first"))
		}
		Fail(err)
	}

	if args.JSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			Fail(err)
		}
		fmt.Println(string(out))
		return
	}

	displayResponse(result.Response)

	if !args.Quiet && IsStdoutTTY() {
		fmt.Fprintln(os.Stderr, infoStyle.Render(
			fmt.Sprintf("session %d | continue with: sage", result.ChatID)))
	}
}
