// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"sort"
	"strings"
	"time"

	"github.com/sagedesk/sage-tui/internal/util"
)

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is a conversation thread as the backend reports it.
//
// Persisted sessions have positive ids assigned by the server. Incognito and
// not-yet-acknowledged sessions use negative ids from a client-local counter,
// matching the backend's incognito id space.
type Session struct {
	// Identity
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Flags
	IsIncognito bool `json:"is_incognito"`
	IsPinned    bool `json:"is_pinned"`
	IsArchived  bool `json:"is_archived"`

	// Denormalized summary fields
	MessageCount int    `json:"message_count"`
	LastMessage  string `json:"last_message,omitempty"`

	// DataSource is the knowledge-base tag the session was last asked
	// against. Optional; older backend revisions omit it.
	DataSource string `json:"data_source,omitempty"`
}

// IsLocal reports whether the session only exists on this client.
func (s *Session) IsLocal() bool {
	return s.ID < 0
}

// DisplayTitle returns the title or a fallback for untitled sessions.
func (s *Session) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	if s.IsIncognito {
		return "Incognito chat"
	}
	return "New chat"
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// maxDerivedTitle is the rune budget for titles derived from a first message.
const maxDerivedTitle = 50

// DeriveTitle builds a placeholder session title from the first user message.
// The server may later overwrite it with its own summary.
func DeriveTitle(firstMessage string) string {
	t := strings.TrimSpace(firstMessage)
	t = strings.ReplaceAll(t, "\n", " ")
	t = strings.ReplaceAll(t, "\r", "")
	if t == "" {
		return "New chat"
	}
	return util.TruncateRunes(t, maxDerivedTitle)
}

// =============================================================================
// ORDERING
// =============================================================================

// SortSessions orders sessions for display: pinned before unpinned, then by
// UpdatedAt descending. The sort is stable so equal timestamps keep their
// prior relative order.
func SortSessions(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].IsPinned != sessions[j].IsPinned {
			return sessions[i].IsPinned
		}
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}
