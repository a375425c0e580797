// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for the sage CLI commands.
//
// Colors are disabled automatically for piped output and when NO_COLOR
// is set (https://no-color.org/).

package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	if !ColorEnabled() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

var (
	// promptStyle marks the input prompt.
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"})

	// assistantStyle marks assistant replies.
	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"})

	// infoStyle is for incidental status lines.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	// errorStyle marks failures.
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"})

	// incognitoStyle marks the incognito indicator.
	incognitoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#4C1D95"})
)
