// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/sagedesk/sage-tui/internal/gateway"
	"github.com/sagedesk/sage-tui/internal/model"
)

// =============================================================================
// MESSAGE STREAM
// =============================================================================

// MessageStream owns the message log of the currently active session.
//
// Sends are optimistic: the user message appears immediately with a temp
// id and is replaced in place when the server confirms. Replacement
// matches strictly by temp id, so overlapping sends keep issue order no
// matter which response lands first.
type MessageStream struct {
	mu sync.Mutex

	core *Core

	// activeID is 0 when no session is open. Negative ids are incognito
	// sessions in the server's incognito id space.
	activeID int64

	// activeRemote is true once the server knows the active id. A send
	// for a session the server has not seen carries a null chat id so
	// the server allocates one.
	activeRemote bool

	messages []*model.Message
}

func newMessageStream(core *Core) *MessageStream {
	return &MessageStream{core: core}
}

// ActiveID returns the active session id, 0 when none.
func (m *MessageStream) ActiveID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Messages returns a snapshot of the log in display order.
func (m *MessageStream) Messages() []*model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Clear drops the active session and its log. Used for "new chat" and by
// the incognito toggle.
func (m *MessageStream) Clear() {
	m.mu.Lock()
	m.activeID = 0
	m.activeRemote = false
	m.messages = nil
	m.mu.Unlock()

	m.core.emit(Event{Kind: EventMessages})
}

// ClearIfActive clears the log only when the given session is open.
// The ledger calls this when that session's delete starts.
func (m *MessageStream) ClearIfActive(id int64) {
	m.mu.Lock()
	if m.activeID != id {
		m.mu.Unlock()
		return
	}
	m.activeID = 0
	m.activeRemote = false
	m.messages = nil
	m.mu.Unlock()

	m.core.emit(Event{Kind: EventMessages})
}

// startLocal makes a client-local session active without a server round
// trip. The incognito controller uses it for fresh incognito chats.
func (m *MessageStream) startLocal(id int64) {
	m.mu.Lock()
	m.activeID = id
	m.activeRemote = false
	m.messages = nil
	m.mu.Unlock()

	m.core.emit(Event{Kind: EventMessages, SessionID: id})
}

// =============================================================================
// SEND
// =============================================================================

// Send posts a message to the active session, or starts a new session
// when none is active. The text is trimmed and NFC-normalized first.
//
// The temp user message is visible before the network call starts. On
// success it is replaced in place by the confirmed message and the
// assistant reply is inserted directly after it. On failure only the
// matching temp message is removed; confirmed messages stay.
func (m *MessageStream) Send(ctx context.Context, text, dataSource string) error {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return ErrEmptyMessage
	}
	if dataSource == "" {
		dataSource = m.core.cfg.DefaultDataSource
	}

	incognito := m.core.Incognito.Active()

	m.mu.Lock()
	temp := &model.Message{
		ID:        model.NewTempID(),
		Role:      model.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
		SessionID: m.activeID,
		Pending:   true,
	}
	m.messages = append(m.messages, temp)
	sessionKnown := m.activeRemote && m.activeID != 0
	var chatID *int64
	if sessionKnown {
		id := m.activeID
		chatID = &id
	}
	m.mu.Unlock()

	m.core.emit(Event{Kind: EventMessages})

	result, err := m.core.gw.Send(ctx, gateway.SendRequest{
		Message:         text,
		ChatID:          chatID,
		DataSource:      dataSource,
		IsIncognito:     incognito,
		ContextMessages: m.core.cfg.ContextMessages,
		Temperature:     m.core.cfg.Temperature,
	})
	if err != nil {
		m.removeTemp(temp.ID)
		if errors.Is(err, gateway.ErrNotFound) {
			// The session vanished server-side. Drop local references
			// instead of retrying.
			m.Clear()
		}
		m.core.emit(Event{Kind: EventMessages, Err: err})
		return fmt.Errorf("failed to send message: %w", err)
	}

	firstOfNew := m.reconcileSend(temp.ID, text, dataSource, result)

	if !result.IsIncognito {
		if firstOfNew {
			now := time.Now()
			m.core.Sessions.adoptNew(&model.Session{
				ID:           result.ChatID,
				Title:        model.DeriveTitle(text),
				CreatedAt:    now,
				UpdatedAt:    now,
				MessageCount: 2,
				LastMessage:  text,
				DataSource:   dataSource,
			})
		} else {
			m.core.Sessions.bump(result.ChatID, text)
		}
	}

	m.core.emit(Event{Kind: EventMessages, SessionID: result.ChatID})
	return nil
}

// reconcileSend replaces the temp message and inserts the assistant
// reply. It reports whether this send created the session.
func (m *MessageStream) reconcileSend(tempID, text, dataSource string, result *gateway.SendResult) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, msg := range m.messages {
		if msg.ID == tempID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// The log was cleared while the call was in flight. Nothing to
		// reconcile into, and the cleared stream must not re-activate.
		return false
	}

	firstOfNew := !m.activeRemote
	if firstOfNew {
		// Adopt the server-assigned id for the whole log.
		m.activeID = result.ChatID
		m.activeRemote = true
		for _, msg := range m.messages {
			msg.SessionID = result.ChatID
		}
	}

	m.messages[idx] = &model.Message{
		ID:        result.UserMessageID.String(),
		Role:      model.RoleUser,
		Content:   text,
		Timestamp: m.messages[idx].Timestamp,
		SessionID: result.ChatID,
	}

	reply := &model.Message{
		ID:        result.MessageID.String(),
		Role:      model.RoleAssistant,
		Content:   result.Response,
		Timestamp: time.Now(),
		SessionID: result.ChatID,
		Sources:   result.Sources,
	}
	m.messages = append(m.messages, nil)
	copy(m.messages[idx+2:], m.messages[idx+1:])
	m.messages[idx+1] = reply

	return firstOfNew
}

// removeTemp drops the temp message with the given id, if still present.
func (m *MessageStream) removeTemp(tempID string) {
	m.mu.Lock()
	for i, msg := range m.messages {
		if msg.ID == tempID {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
}

// =============================================================================
// HISTORY
// =============================================================================

// LoadHistory opens a session and loads its message window. It refuses
// sessions the ledger holds, so a soft-deleted session's view cannot be
// resurrected during its grace period.
func (m *MessageStream) LoadHistory(ctx context.Context, id int64) error {
	if m.core.Ledger.Contains(id) {
		return ErrPendingDelete
	}

	detail, err := m.core.gw.GetSession(ctx, id, m.core.cfg.HistoryLimit, 0)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			m.Clear()
		}
		return fmt.Errorf("failed to load history: %w", err)
	}

	msgs := make([]*model.Message, 0, len(detail.Messages))
	for _, wire := range detail.Messages {
		msgs = append(msgs, wire.ToMessage(id))
	}

	m.mu.Lock()
	m.activeID = id
	m.activeRemote = true
	m.messages = msgs
	m.mu.Unlock()

	m.core.emit(Event{Kind: EventMessages, SessionID: id})
	return nil
}
