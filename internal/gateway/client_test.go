// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient returns a client wired to a test server handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, StaticToken("test-token")).WithHTTPClient(srv.Client())
}

// ============================================================================
// FlexID decoding
// ============================================================================

func TestFlexIDUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"numeric id", `{"id": 42}`, "42"},
		{"string id", `{"id": "42"}`, "42"},
		{"large id", `{"id": 9007199254740993}`, "9007199254740993"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				ID FlexID `json:"id"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.json), &v))
			assert.Equal(t, tt.want, v.ID.String())
		})
	}
}

func TestFlexIDInt64(t *testing.T) {
	assert.Equal(t, int64(42), FlexID("42").Int64())
	assert.Equal(t, int64(0), FlexID("not-a-number").Int64())
}

// ============================================================================
// Session operations
// ============================================================================

func TestListSessions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/chat/sessions", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("page_size"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"chats": []map[string]any{
				{"id": 7, "title": "Payroll dates", "is_pinned": false},
				{"id": 3, "title": "VPN setup"},
			},
			"total":     42,
			"page":      2,
			"page_size": 20,
			"has_more":  true,
		})
	})

	list, err := client.ListSessions(context.Background(), 2, 20)
	require.NoError(t, err)
	assert.Len(t, list.Chats, 2)
	assert.Equal(t, int64(7), list.Chats[0].ID)
	assert.True(t, list.HasMore)
	assert.Equal(t, 42, list.Total)
}

func TestGetSessionNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Chat not found"})
	})

	_, err := client.GetSession(context.Background(), 99, 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "Chat not found")
}

func TestGetSessionMixedMessageIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"chat": map[string]any{"id": 5, "title": "Mixed"},
			"messages": []map[string]any{
				{"id": 101, "role": "user", "content": "hi"},
				{"id": "102", "role": "assistant", "content": "hello"},
			},
			"total_messages": 2,
			"has_more":       false,
		})
	})

	detail, err := client.GetSession(context.Background(), 5, 50, 0)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "101", detail.Messages[0].ID.String())
	assert.Equal(t, "102", detail.Messages[1].ID.String())

	msg := detail.Messages[1].ToMessage(5)
	assert.Equal(t, int64(5), msg.SessionID)
	assert.Equal(t, "hello", msg.Content)
}

func TestPatchSession(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/chat/sessions/7", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	})

	title := "Renamed"
	err := client.PatchSession(context.Background(), 7, SessionPatch{Title: &title})
	require.NoError(t, err)

	// Unset fields must not reach the wire.
	assert.Equal(t, map[string]any{"title": "Renamed"}, body)
}

func TestPatchSessionZeroPatchSkipsNetwork(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	require.NoError(t, client.PatchSession(context.Background(), 7, SessionPatch{}))
	assert.False(t, called)
}

func TestDeleteSessionIdempotent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Chat not found"})
	})

	// 404 on delete means the session is already gone.
	assert.NoError(t, client.DeleteSession(context.Background(), 7))
}

// ============================================================================
// Send
// ============================================================================

func TestSendNewSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/send", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "What are the office hours?", req["message"])
		assert.Nil(t, req["chat_id"])
		assert.Equal(t, "company_faqs", req["data_source"])

		json.NewEncoder(w).Encode(map[string]any{
			"response":        "9 to 5, Monday through Friday.",
			"chat_id":         12,
			"message_id":      201,
			"user_message_id": 200,
			"is_incognito":    false,
			"sources":         []map[string]any{{"title": "HR FAQ"}},
			"tokens_used":     37,
			"processing_time": 0.8,
		})
	})

	result, err := client.Send(context.Background(), SendRequest{
		Message:    "What are the office hours?",
		DataSource: "company_faqs",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), result.ChatID)
	assert.Equal(t, "201", result.MessageID.String())
	assert.Equal(t, "200", result.UserMessageID.String())
	assert.Len(t, result.Sources, 1)
}

func TestSendUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Token expired"})
	})

	_, err := client.Send(context.Background(), SendRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSendServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "model backend down"})
	})

	_, err := client.Send(context.Background(), SendRequest{Message: "hi"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "model backend down", apiErr.Detail)
}

// ============================================================================
// Search and incognito
// ============================================================================

func TestSearchSessions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/sessions/search", r.URL.Path)
		assert.Equal(t, "vpn setup", r.URL.Query().Get("query"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"id": 3, "title": "VPN setup"}},
			"total":   1,
		})
	})

	resp, err := client.SearchSessions(context.Background(), "vpn setup", 50)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "VPN setup", resp.Results[0].Title)
}

func TestClearIncognito(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/chat/incognito/clear", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int{"cleared_count": 3})
	})

	result, err := client.ClearIncognito(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.ClearedCount)
}

func TestGetModeStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"has_incognito_chats":       true,
			"incognito_chat_count":      2,
			"total_chats":               10,
			"active_incognito_sessions": 1,
		})
	})

	status, err := client.GetModeStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.HasIncognitoChats)
	assert.Equal(t, 2, status.IncognitoChatCount)
}

// ============================================================================
// Auth plumbing
// ============================================================================

func TestNoTokenOmitsAuthHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"chats": []any{}})
	})
	client.tokens = StaticToken("")

	_, err := client.ListSessions(context.Background(), 1, 20)
	require.NoError(t, err)
}
