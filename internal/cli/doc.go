// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface: the plain REPL
// fallback for terminals that cannot run the full interface, the
// one-shot ask command, and the small management subcommands.
package cli
