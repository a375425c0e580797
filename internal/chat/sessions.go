// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sagedesk/sage-tui/internal/gateway"
	"github.com/sagedesk/sage-tui/internal/model"
)

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore is the client-side cache of the persisted session list,
// ordered most-recently-updated first with pinned sessions on top.
//
// Incognito sessions never enter the list. Sessions with a pending delete
// are held by the DeletionLedger instead; the two sets are disjoint.
type SessionStore struct {
	mu sync.Mutex

	core *Core

	sessions []*model.Session
	total    int
	page     int
	hasMore  bool
	loading  bool
}

func newSessionStore(core *Core) *SessionStore {
	return &SessionStore{core: core, hasMore: true}
}

// Sessions returns a snapshot of the visible list in display order.
func (s *SessionStore) Sessions() []*model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Get returns a copy of the session with the given id, or nil.
func (s *SessionStore) Get(id int64) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess.Clone()
		}
	}
	return nil
}

// Total reports the server-side session count from the last load.
func (s *SessionStore) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// HasMore reports whether another page is available.
func (s *SessionStore) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// =============================================================================
// LOADING AND PAGINATION
// =============================================================================

// Load replaces the list with the first page from the server.
func (s *SessionStore) Load(ctx context.Context) error {
	return s.load(ctx, 1, false)
}

// LoadMore fetches the next page and appends it. It is a no-op when a
// load is already in flight or when the last page was short.
func (s *SessionStore) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.loading || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	next := s.page + 1
	s.mu.Unlock()
	return s.load(ctx, next, true)
}

func (s *SessionStore) load(ctx context.Context, page int, appendPage bool) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	pageSize := s.core.cfg.PageSize
	s.mu.Unlock()

	list, err := s.core.gw.ListSessions(ctx, page, pageSize)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	// A short page means the server ran out. The check uses the raw count,
	// before any entries are filtered below.
	s.hasMore = len(list.Chats) == pageSize
	s.page = page
	s.total = list.Total

	incoming := s.filterVisible(list.Chats)
	if appendPage {
		seen := make(map[int64]bool, len(s.sessions))
		for _, sess := range s.sessions {
			seen[sess.ID] = true
		}
		for _, sess := range incoming {
			if !seen[sess.ID] {
				s.sessions = append(s.sessions, sess)
				seen[sess.ID] = true
			}
		}
	} else {
		s.sessions = incoming
	}
	model.SortSessions(s.sessions)
	s.mu.Unlock()

	s.core.emit(Event{Kind: EventSessions})
	return nil
}

// filterVisible drops incognito entries and any session the ledger holds.
// The server should not return either, but the list stays clean even when
// it does. Caller holds s.mu; the ledger lock nests inside it.
func (s *SessionStore) filterVisible(in []*model.Session) []*model.Session {
	out := make([]*model.Session, 0, len(in))
	for _, sess := range in {
		if sess.IsIncognito {
			continue
		}
		if s.core.Ledger.Contains(sess.ID) {
			continue
		}
		out = append(out, sess)
	}
	return out
}

// =============================================================================
// CREATE AND UPDATE
// =============================================================================

// Create starts a new session. In incognito mode the session is
// client-local with a negative id and never touches the persisted list;
// otherwise the server allocates it and it is inserted at the head.
func (s *SessionStore) Create(ctx context.Context, title string) (*model.Session, error) {
	if s.core.Incognito.Active() {
		return s.core.Incognito.NewLocalSession(title), nil
	}

	result, err := s.core.gw.CreateSession(ctx, gateway.CreateSessionRequest{Title: title})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	now := time.Now()
	sess := &model.Session{
		ID:        result.ChatID,
		Title:     result.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sess.Title == "" {
		sess.Title = title
	}

	s.mu.Lock()
	s.sessions = append(s.sessions, sess)
	s.total++
	model.SortSessions(s.sessions)
	s.mu.Unlock()

	s.core.emit(Event{Kind: EventSessions, SessionID: sess.ID})
	return sess.Clone(), nil
}

// Update applies a patch optimistically and pushes it to the server.
// On remote failure the list is reloaded so server state wins; there is
// no field-level merge.
func (s *SessionStore) Update(ctx context.Context, id int64, patch gateway.SessionPatch) error {
	if patch.IsZero() {
		return nil
	}

	s.mu.Lock()
	var target *model.Session
	for _, sess := range s.sessions {
		if sess.ID == id {
			target = sess
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return ErrNotActive
	}
	applyPatch(target, patch)
	model.SortSessions(s.sessions)
	s.mu.Unlock()

	s.core.emit(Event{Kind: EventSessions, SessionID: id})

	if err := s.core.gw.PatchSession(ctx, id, patch); err != nil {
		// Revert by resynchronizing with the server.
		loadErr := s.load(ctx, 1, false)
		s.core.emit(Event{Kind: EventSessions, SessionID: id, Err: err})
		if loadErr != nil {
			return fmt.Errorf("failed to update session: %w (revert also failed: %v)", err, loadErr)
		}
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func applyPatch(sess *model.Session, patch gateway.SessionPatch) {
	if patch.Title != nil {
		sess.Title = *patch.Title
	}
	if patch.IsPinned != nil {
		sess.IsPinned = *patch.IsPinned
	}
	if patch.IsArchived != nil {
		sess.IsArchived = *patch.IsArchived
	}
	sess.UpdatedAt = time.Now()
}

// =============================================================================
// CROSS-COMPONENT HOOKS
// =============================================================================

// take removes the session from the visible list and returns it, or nil
// when absent. Visibility authority passes to the caller (the ledger).
func (s *SessionStore) take(id int64) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sess := range s.sessions {
		if sess.ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			return sess
		}
	}
	return nil
}

// restore reinserts a session taken earlier, keeping sort order. Used by
// the ledger for undo and for failed hard deletes.
func (s *SessionStore) restore(sess *model.Session) {
	s.mu.Lock()
	for _, existing := range s.sessions {
		if existing.ID == sess.ID {
			s.mu.Unlock()
			return
		}
	}
	s.sessions = append(s.sessions, sess)
	model.SortSessions(s.sessions)
	s.mu.Unlock()

	s.core.emit(Event{Kind: EventSessions, SessionID: sess.ID})
}

// adoptNew inserts a server-acknowledged session the stream created as a
// side effect of a first send. No-op for duplicates.
func (s *SessionStore) adoptNew(sess *model.Session) {
	s.mu.Lock()
	for _, existing := range s.sessions {
		if existing.ID == sess.ID {
			s.mu.Unlock()
			return
		}
	}
	s.sessions = append(s.sessions, sess)
	s.total++
	model.SortSessions(s.sessions)
	s.mu.Unlock()

	s.core.emit(Event{Kind: EventSessions, SessionID: sess.ID})
}

// bump refreshes a session's recency after a message exchange.
func (s *SessionStore) bump(id int64, lastMessage string) {
	s.mu.Lock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			sess.UpdatedAt = time.Now()
			sess.MessageCount += 2
			sess.LastMessage = lastMessage
			break
		}
	}
	model.SortSessions(s.sessions)
	s.mu.Unlock()

	s.core.emit(Event{Kind: EventSessions, SessionID: id})
}

// removeIncognito drops any incognito entries that leaked into the list.
func (s *SessionStore) removeIncognito() {
	s.mu.Lock()
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if !sess.IsIncognito {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept
	s.mu.Unlock()

	s.core.emit(Event{Kind: EventSessions})
}
