// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sagedesk/sage-tui/internal/model"
)

// =============================================================================
// FLEXIBLE ID DECODING
// =============================================================================

// FlexID decodes a JSON value that may be either a number or a string.
// The backend reports message ids as integers but some revisions send
// strings; both forms normalize to the string representation.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty id value")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid string id: %w", err)
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid numeric id: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

// String returns the normalized id.
func (f FlexID) String() string {
	return string(f)
}

// Int64 parses the id as an integer, returning 0 if it is not numeric.
func (f FlexID) Int64() int64 {
	n, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// SessionList is the response from GET /sessions.
type SessionList struct {
	Chats    []*model.Session `json:"chats"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	HasMore  bool             `json:"has_more"`
}

// SessionDetail is the response from GET /sessions/{id}.
type SessionDetail struct {
	Chat          *model.Session `json:"chat"`
	Messages      []WireMessage  `json:"messages"`
	TotalMessages int            `json:"total_messages"`
	HasMore       bool           `json:"has_more"`
}

// WireMessage is a message as the backend serializes it.
type WireMessage struct {
	ID        FlexID         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Sources   []model.Source `json:"sources,omitempty"`
}

// ToMessage converts a wire message to the internal representation.
func (w WireMessage) ToMessage(sessionID int64) *model.Message {
	return &model.Message{
		ID:        w.ID.String(),
		Role:      model.Role(w.Role),
		Content:   w.Content,
		Timestamp: w.Timestamp,
		SessionID: sessionID,
		Sources:   w.Sources,
	}
}

// CreateSessionRequest is the body for POST /sessions.
type CreateSessionRequest struct {
	Title        string `json:"title,omitempty"`
	IsIncognito  bool   `json:"is_incognito"`
	FirstMessage string `json:"first_message,omitempty"`
}

// CreateSessionResult is the response from POST /sessions.
type CreateSessionResult struct {
	ChatID      int64  `json:"chat_id"`
	IsIncognito bool   `json:"is_incognito"`
	Title       string `json:"title"`
}

// SessionPatch is the body for PATCH /sessions/{id}. Nil fields are
// omitted so the server only touches what the caller set.
type SessionPatch struct {
	Title      *string `json:"title,omitempty"`
	IsPinned   *bool   `json:"is_pinned,omitempty"`
	IsArchived *bool   `json:"is_archived,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p SessionPatch) IsZero() bool {
	return p.Title == nil && p.IsPinned == nil && p.IsArchived == nil
}

// =============================================================================
// SEND ENDPOINT
// =============================================================================

// SendRequest is the body for POST /send. ChatID is nil for the first
// message of a new session; the server allocates the session and returns
// its id in the result.
type SendRequest struct {
	Message         string  `json:"message"`
	ChatID          *int64  `json:"chat_id"`
	DataSource      string  `json:"data_source,omitempty"`
	IsIncognito     bool    `json:"is_incognito"`
	ContextMessages int     `json:"context_messages,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

// SendResult is the response from POST /send.
type SendResult struct {
	Response       string         `json:"response"`
	ChatID         int64          `json:"chat_id"`
	MessageID      FlexID         `json:"message_id"`
	UserMessageID  FlexID         `json:"user_message_id"`
	IsIncognito    bool           `json:"is_incognito"`
	Sources        []model.Source `json:"sources,omitempty"`
	TokensUsed     int            `json:"tokens_used"`
	ProcessingTime float64        `json:"processing_time"`
}

// =============================================================================
// SEARCH AND INCOGNITO ENDPOINTS
// =============================================================================

// SearchResponse is the response from GET /sessions/search.
type SearchResponse struct {
	Results []*model.Session `json:"results"`
	Total   int              `json:"total"`
}

// ClearIncognitoResult is the response from DELETE /incognito/clear.
type ClearIncognitoResult struct {
	ClearedCount int `json:"cleared_count"`
}

// ModeStatus is the response from GET /mode/status.
type ModeStatus struct {
	HasIncognitoChats  bool `json:"has_incognito_chats"`
	IncognitoChatCount int  `json:"incognito_chat_count"`
	TotalChats         int  `json:"total_chats"`
	ActiveIncognito    int  `json:"active_incognito_sessions"`
}
