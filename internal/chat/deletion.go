// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sagedesk/sage-tui/internal/model"
)

// =============================================================================
// DELETION LEDGER
// =============================================================================

// recordState tracks a deletion through its lifecycle.
type recordState int

const (
	// stateReserved marks an id claimed by Delete before the session has
	// been taken from the store. Undo is not yet possible.
	stateReserved recordState = iota

	// statePending is the grace-period window where undo works.
	statePending

	// stateDeleting means the timer fired and the remote delete is in
	// flight. Undo is too late.
	stateDeleting
)

// DeletionRecord is one soft-deleted session waiting out its grace period.
type DeletionRecord struct {
	Session   *model.Session
	DeletedAt time.Time

	timer *time.Timer
	state recordState
}

// DeletionLedger owns sessions mid-deletion. While an id is in the
// ledger it is absent from the SessionStore list; it returns there on
// undo or on a failed remote delete, and nowhere on success.
//
// At most one timer exists per id. The timer callback re-checks ledger
// membership under the mutex before acting, so a racing undo wins
// cleanly instead of being double-handled.
type DeletionLedger struct {
	mu sync.Mutex

	core    *Core
	records map[int64]*DeletionRecord
}

func newDeletionLedger(core *Core) *DeletionLedger {
	return &DeletionLedger{
		core:    core,
		records: make(map[int64]*DeletionRecord),
	}
}

// Contains reports whether the id has a deletion in progress.
func (l *DeletionLedger) Contains(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[id]
	return ok
}

// Pending returns copies of the sessions currently awaiting deletion.
func (l *DeletionLedger) Pending() []*model.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*model.Session, 0, len(l.records))
	for _, rec := range l.records {
		if rec.state == statePending && rec.Session != nil {
			out = append(out, rec.Session.Clone())
		}
	}
	return out
}

// =============================================================================
// DELETE / UNDO
// =============================================================================

// Delete soft-deletes a session: it leaves the visible list immediately
// and the remote delete fires after the grace period unless undone.
// Deleting an id that already has a pending delete is a no-op.
func (l *DeletionLedger) Delete(id int64) error {
	l.mu.Lock()
	if _, ok := l.records[id]; ok {
		l.mu.Unlock()
		return nil
	}
	// Claim the id before touching the store so a concurrent Delete
	// cannot take the same session twice.
	rec := &DeletionRecord{state: stateReserved}
	l.records[id] = rec
	l.mu.Unlock()

	sess := l.core.Sessions.take(id)
	if sess == nil {
		l.mu.Lock()
		delete(l.records, id)
		l.mu.Unlock()
		return ErrNotActive
	}

	l.mu.Lock()
	rec.Session = sess
	rec.DeletedAt = time.Now()
	rec.state = statePending
	rec.timer = time.AfterFunc(l.core.cfg.GracePeriod, func() {
		l.expire(id)
	})
	l.mu.Unlock()

	l.core.Stream.ClearIfActive(id)
	l.core.emit(Event{Kind: EventDeletion, SessionID: id})
	return nil
}

// Undo cancels a pending delete and puts the session back. It fails with
// ErrTooLate once the grace period has expired and the remote delete
// started.
func (l *DeletionLedger) Undo(id int64) error {
	l.mu.Lock()
	rec, ok := l.records[id]
	if !ok || rec.state == stateReserved {
		l.mu.Unlock()
		return ErrNotPending
	}
	if rec.state == stateDeleting {
		l.mu.Unlock()
		return ErrTooLate
	}
	rec.timer.Stop()
	delete(l.records, id)
	sess := rec.Session
	l.mu.Unlock()

	l.core.Sessions.restore(sess)
	l.core.emit(Event{Kind: EventDeletion, SessionID: id})
	return nil
}

// expire runs when the grace timer fires. Membership and state are
// checked under the mutex before any network I/O: if an undo already
// removed the record this is a no-op, and once the record is marked
// deleting a late undo is rejected rather than raced.
func (l *DeletionLedger) expire(id int64) {
	l.mu.Lock()
	rec, ok := l.records[id]
	if !ok || rec.state != statePending {
		l.mu.Unlock()
		return
	}
	rec.state = stateDeleting
	l.mu.Unlock()

	// The caller that started the delete is long gone; the remote call
	// runs on its own bounded context.
	ctx, cancel := context.WithTimeout(context.Background(), l.core.cfg.DeleteTimeout)
	defer cancel()
	err := l.core.gw.DeleteSession(ctx, id)

	l.mu.Lock()
	delete(l.records, id)
	l.mu.Unlock()

	if err != nil {
		// Revert: the session comes back at its sorted position.
		l.core.Sessions.restore(rec.Session)
		l.core.emit(Event{
			Kind:      EventDeletion,
			SessionID: id,
			Err:       fmt.Errorf("failed to delete session: %w", err),
		})
		return
	}
	l.core.emit(Event{Kind: EventDeletion, SessionID: id})
}
