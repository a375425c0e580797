// sage - terminal client for the Sage knowledge assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sagedesk/sage-tui/internal/chat"
	"github.com/sagedesk/sage-tui/internal/cli"
	"github.com/sagedesk/sage-tui/internal/config"
	uichat "github.com/sagedesk/sage-tui/internal/ui/chat"
	"github.com/sagedesk/sage-tui/internal/ui/styles"
)

func main() {
	cmd, args := cli.Parse()
	setupLogging(args.Verbose)

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		runRepl(args)
	case cli.CmdSessions:
		cli.HandleSessions(args)
	case cli.CmdLogin:
		cli.HandleLogin(args)
	case cli.CmdLogout:
		cli.HandleLogout(args)
	case cli.CmdIncognito:
		cli.HandleIncognito(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		cli.PrintUsage()
		os.Exit(1)
	}
}

// setupLogging routes the standard logger to a file so TUI output stays
// clean. Verbose mode mirrors it to stderr for plain commands.
func setupLogging(verbose bool) {
	dir, err := config.ConfigDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}

	path := filepath.Join(dir, "sage.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}

	if verbose && cli.IsStdoutTTY() {
		log.SetOutput(io.MultiWriter(f, os.Stderr))
	} else {
		log.SetOutput(f)
	}
}

// runTUI starts the full-screen interface, falling back to the REPL on
// terminals that cannot host it.
func runTUI(args cli.Args) {
	if !cli.IsTTY() {
		runRepl(args)
		return
	}

	cfg := cli.LoadConfig(args)
	gw, err := cli.BuildGateway(cfg)
	if err != nil {
		cli.Fail(err)
	}

	notify, events := uichat.NewEventBridge()
	core := chat.New(gw, cli.CoreConfig(cfg), notify)
	theme := styles.NewTheme(cfg.UI.Theme)

	model := uichat.New(core, gw, cfg, theme, events)
	program := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runRepl starts the plain-terminal chat loop.
func runRepl(args cli.Args) {
	cfg := cli.LoadConfig(args)
	gw, err := cli.BuildGateway(cfg)
	if err != nil {
		cli.Fail(err)
	}

	core := chat.New(gw, cli.CoreConfig(cfg), nil)
	live := config.NewLive(cfg)

	// RELIABILITY: config edits take effect without a restart.
	if path, err := config.PathTOML(); err == nil {
		watcher, werr := config.NewWatcher(path, 0, func(next *config.Config) {
			live.Set(next)
			log.Printf("config reloaded from %s", path)
		})
		if werr == nil {
			if err := watcher.Watch(); err == nil {
				defer watcher.Close()
			}
		}
	}

	repl := cli.NewRepl(core, gw, live)
	if err := repl.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
