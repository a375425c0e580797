// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderBadge    lipgloss.Style
	IncognitoBadge lipgloss.Style

	// ==========================================================================
	// SIDEBAR STYLES
	// ==========================================================================

	Sidebar          lipgloss.Style
	SessionItem      lipgloss.Style
	SessionSelected  lipgloss.Style
	SessionPinned    lipgloss.Style
	SessionIncognito lipgloss.Style
	SessionMeta      lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	PendingMarker  lipgloss.Style
	SourceRef      lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS AND OVERLAY STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Spinner      lipgloss.Style
	ErrorText    lipgloss.Style
	Toast        lipgloss.Style
	UndoToast    lipgloss.Style
	SearchBox    lipgloss.Style
	SearchMatch  lipgloss.Style
}

// NewTheme builds the theme for the configured variant. The variant
// "auto" follows the terminal's background; "dark" and "light" force
// the corresponding palette.
func NewTheme(variant string) *Theme {
	profile := termenv.ColorProfile()

	isDark := lipgloss.HasDarkBackground()
	switch variant {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: profile,
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HeaderBadge = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.IncognitoBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(PurpleDeep).
		Padding(0, 1).
		Bold(true)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)
	t.SessionItem = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.SessionSelected = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Purple).
		Bold(true)
	t.SessionPinned = lipgloss.NewStyle().
		Foreground(Amber)
	t.SessionIncognito = lipgloss.NewStyle().
		Foreground(PurpleDeep).
		Italic(true)
	t.SessionMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.SystemLabel = lipgloss.NewStyle().
		Foreground(TextMuted).
		Bold(true)
	t.MessageBody = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.PendingMarker = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
	t.SourceRef = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)
	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
	t.Toast = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Emerald).
		Padding(0, 1)
	t.UndoToast = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Amber).
		Padding(0, 1).
		Bold(true)
	t.SearchBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)
	t.SearchMatch = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Cyan)

	return t
}
