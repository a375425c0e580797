// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"time"

	"github.com/sagedesk/sage-tui/internal/gateway"
)

// =============================================================================
// GATEWAY DEPENDENCY
// =============================================================================

// Gateway is the slice of the backend client the state core depends on.
// *gateway.Client satisfies it; tests substitute a function-field fake.
type Gateway interface {
	ListSessions(ctx context.Context, page, pageSize int) (*gateway.SessionList, error)
	GetSession(ctx context.Context, id int64, limit, offset int) (*gateway.SessionDetail, error)
	CreateSession(ctx context.Context, req gateway.CreateSessionRequest) (*gateway.CreateSessionResult, error)
	PatchSession(ctx context.Context, id int64, patch gateway.SessionPatch) error
	DeleteSession(ctx context.Context, id int64) error
	Send(ctx context.Context, req gateway.SendRequest) (*gateway.SendResult, error)
	ClearIncognito(ctx context.Context) (*gateway.ClearIncognitoResult, error)
	GetModeStatus(ctx context.Context) (*gateway.ModeStatus, error)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the tunable constants of the state core.
type Config struct {
	// PageSize is the session list page size.
	PageSize int

	// GracePeriod is the delay between a delete and the remote call,
	// during which undo is possible.
	GracePeriod time.Duration

	// DeleteTimeout bounds the remote delete issued when the grace
	// period expires. That call runs detached from any caller context.
	DeleteTimeout time.Duration

	// HistoryLimit is the message window requested when opening a session.
	HistoryLimit int

	// ContextMessages and Temperature are forwarded on every send.
	ContextMessages int
	Temperature     float64

	// DefaultDataSource is used when a send does not name one.
	DefaultDataSource string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PageSize:          20,
		GracePeriod:       5 * time.Second,
		DeleteTimeout:     10 * time.Second,
		HistoryLimit:      200,
		ContextMessages:   10,
		Temperature:       0.7,
		DefaultDataSource: "company_faqs",
	}
}

// sanitize clamps nonsensical values back to defaults.
func (c Config) sanitize() Config {
	def := DefaultConfig()
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = def.GracePeriod
	}
	if c.DeleteTimeout <= 0 {
		c.DeleteTimeout = def.DeleteTimeout
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	if c.DefaultDataSource == "" {
		c.DefaultDataSource = def.DefaultDataSource
	}
	return c
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies which component's state changed.
type EventKind int

const (
	EventSessions EventKind = iota
	EventMessages
	EventDeletion
	EventIncognito
)

// Event is pushed to the notify callback after a state change. Err is set
// when the change was a revert caused by a failed remote call.
type Event struct {
	Kind      EventKind
	SessionID int64
	Err       error
}

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrEmptyMessage indicates a send with no content after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNotActive indicates a delete of a session not in the visible list.
	ErrNotActive = errors.New("session is not active")

	// ErrNotPending indicates an undo of a session with no pending delete.
	ErrNotPending = errors.New("no pending delete for session")

	// ErrTooLate indicates an undo after the grace period expired and the
	// remote delete already started.
	ErrTooLate = errors.New("grace period expired")

	// ErrPendingDelete indicates an operation on a session that is
	// soft-deleted and awaiting its grace period.
	ErrPendingDelete = errors.New("session has a pending delete")
)

// =============================================================================
// CORE AGGREGATE
// =============================================================================

// Core wires the four state components to one gateway and one event sink.
type Core struct {
	Sessions  *SessionStore
	Stream    *MessageStream
	Ledger    *DeletionLedger
	Incognito *IncognitoController

	gw     Gateway
	cfg    Config
	notify func(Event)
}

// New constructs the state core. The notify callback observes state
// changes; it runs synchronously on the mutating goroutine and must not
// call back into the core.
func New(gw Gateway, cfg Config, notify func(Event)) *Core {
	c := &Core{
		gw:     gw,
		cfg:    cfg.sanitize(),
		notify: notify,
	}
	c.Sessions = newSessionStore(c)
	c.Stream = newMessageStream(c)
	c.Ledger = newDeletionLedger(c)
	c.Incognito = newIncognitoController(c)
	return c
}

// Config returns the sanitized configuration in effect.
func (c *Core) Config() Config {
	return c.cfg
}

// emit pushes an event to the sink if one is registered. Callers must not
// hold any component mutex.
func (c *Core) emit(ev Event) {
	if c.notify != nil {
		c.notify(ev)
	}
}
