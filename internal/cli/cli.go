// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for sage.
//
// CLI: Comprehensive help and examples for all commands
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/sagedesk/sage-tui/internal/util"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdSessions
	CmdLogin
	CmdLogout
	CmdIncognito
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool
	DataSource string
	BaseURL    string

	// Command-specific
	Query      string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `sage - terminal client for the Sage knowledge assistant

Sage answers questions from your company's knowledge bases and keeps
your conversation history on the server. The terminal client offers a
full-screen TUI, a plain REPL and one-shot commands for scripting.

Usage:
  sage                        Start TUI (default)
  sage ask "question"         Ask a single question
  sage chat                   Plain-terminal chat (no TUI)
  sage sessions [subcommand]  Session management
  sage login                  Store the API token
  sage logout                 Remove the stored API token
  sage incognito [subcommand] Incognito housekeeping
  sage config [show|path]     Configuration
  sage version                Show version
  sage help                   Show this help

Session Commands:
  sage sessions list          List recent sessions (default)
    --page N                  Page to fetch (default: 1)
  sage sessions show <id>     Print a session transcript
  sage sessions delete <id>   Delete a session immediately
    --confirm                 Required confirmation flag
  sage sessions search <text> Full-text search across sessions

Incognito Commands:
  sage incognito status       Show server-side incognito bookkeeping
  sage incognito clear        Purge all incognito chats
    --confirm                 Required confirmation flag

Global Flags:
  --source NAME   Data source for this invocation
  --base-url URL  Override the configured backend URL
  --json          Machine-readable output where supported
  -q, --quiet     Minimal output
  -v, --verbose   Debug output

Examples:
  sage                                  Start the TUI
  sage ask "How do I reset my VPN?"     One-shot question
  sage ask --source hr_policies "How many vacation days do I get?"
  sage sessions list                    List recent sessions
  sage sessions show 42                 Print session 42
  sage sessions delete 42 --confirm     Delete session 42
  sage incognito clear --confirm        Purge incognito chats
  sage login                            Store the API token

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, util.Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("sage version %s\n", util.Version)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]
	remaining, parsed := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "ask":
		parsed.Query = strings.Join(positionalOf(remaining), " ")
		return CmdAsk, parsed

	case "chat", "repl":
		return CmdChat, parsed

	case "session", "sessions":
		if len(remaining) > 0 {
			parsed.Subcommand = remaining[0]
			parsed.Raw = remaining[1:]
		}
		return CmdSessions, parsed

	case "login":
		return CmdLogin, parsed

	case "logout":
		return CmdLogout, parsed

	case "incognito", "private":
		if len(remaining) > 0 {
			parsed.Subcommand = remaining[0]
			parsed.Raw = remaining[1:]
		}
		return CmdIncognito, parsed

	case "config":
		if len(remaining) > 0 {
			parsed.Subcommand = remaining[0]
			parsed.Raw = remaining[1:]
		}
		return CmdConfig, parsed

	case "version", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, parsed
	}
}

// parseGlobalFlags strips flags understood by every command and returns
// the remaining arguments.
func parseGlobalFlags(args []string) ([]string, Args) {
	var parsed Args
	var remaining []string

	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			parsed.Quiet = true
		case arg == "-v" || arg == "--verbose":
			parsed.Verbose = true
		case arg == "--json":
			parsed.JSON = true
		case arg == "--source" && i+1 < len(args):
			parsed.DataSource = args[i+1]
			i++
		case strings.HasPrefix(arg, "--source="):
			parsed.DataSource = strings.TrimPrefix(arg, "--source=")
		case arg == "--base-url" && i+1 < len(args):
			parsed.BaseURL = args[i+1]
			i++
		case strings.HasPrefix(arg, "--base-url="):
			parsed.BaseURL = strings.TrimPrefix(arg, "--base-url=")
		default:
			remaining = append(remaining, arg)
		}
		i++
	}

	return remaining, parsed
}

// positionalOf filters flag-looking tokens out of args.
func positionalOf(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			// Skip the flag's value when it carries one.
			if !strings.Contains(args[i], "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		out = append(out, args[i])
	}
	return out
}

// flagValue extracts a named flag from raw args, either "--name value"
// or "--name=value".
func flagValue(args []string, name string) string {
	long := "--" + name
	for i, arg := range args {
		if arg == long && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, long+"=") {
			return strings.TrimPrefix(arg, long+"=")
		}
	}
	return ""
}

// hasFlag reports whether a boolean flag is present.
func hasFlag(args []string, name string) bool {
	long := "--" + name
	for _, arg := range args {
		if arg == long || strings.HasPrefix(arg, long+"=") {
			return true
		}
	}
	return false
}
