// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Sage"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Source is an opaque retrieval citation attached to an assistant reply.
// The backend decides its shape; the client only carries it through.
type Source map[string]any

// Message represents a single message in the active session's log.
type Message struct {
	// Identity. Optimistically inserted messages carry a temp id until the
	// server round trip assigns the real one.
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// SessionID is the owning session; negative for incognito sessions,
	// zero while the first send of a new session is still in flight.
	SessionID int64 `json:"session_id"`

	// Sources are retrieval citations (assistant messages only).
	Sources []Source `json:"sources,omitempty"`

	// Pending is true while the message awaits server confirmation.
	Pending bool `json:"-"`
}

// Clone returns a copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	c.Sources = append([]Source(nil), m.Sources...)
	return &c
}

// =============================================================================
// TEMP IDS
// =============================================================================

// tempIDPrefix distinguishes optimistic client ids from server-assigned ones.
const tempIDPrefix = "temp-"

// NewTempID generates a unique temporary message id.
func NewTempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id is a client-generated temporary id.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}
