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
// INCOGNITO CONTROLLER
// =============================================================================

// IncognitoController owns the incognito mode flag and the client-local
// sessions created while it is on. Local sessions use negative ids from
// a decrementing counter and never appear in the persisted list.
type IncognitoController struct {
	mu sync.Mutex

	core *Core

	active      bool
	nextLocalID int64
	local       map[int64]*model.Session
}

func newIncognitoController(core *Core) *IncognitoController {
	return &IncognitoController{
		core:        core,
		nextLocalID: -1,
		local:       make(map[int64]*model.Session),
	}
}

// Active reports whether incognito mode is on.
func (c *IncognitoController) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Toggle flips the mode. Either direction drops the active session and
// message log; leaving incognito additionally reloads the persisted
// session list so the view resynchronizes with the server.
func (c *IncognitoController) Toggle(ctx context.Context) error {
	c.mu.Lock()
	c.active = !c.active
	nowActive := c.active
	c.mu.Unlock()

	c.core.Stream.Clear()
	c.core.emit(Event{Kind: EventIncognito})

	if !nowActive {
		if err := c.core.Sessions.Load(ctx); err != nil {
			return fmt.Errorf("failed to reload sessions: %w", err)
		}
	}
	return nil
}

// NewLocalSession allocates a client-local incognito session and makes
// it the active one. The server learns about it on the first send.
func (c *IncognitoController) NewLocalSession(title string) *model.Session {
	c.mu.Lock()
	id := c.nextLocalID
	c.nextLocalID--
	now := time.Now()
	sess := &model.Session{
		ID:          id,
		Title:       title,
		CreatedAt:   now,
		UpdatedAt:   now,
		IsIncognito: true,
	}
	c.local[id] = sess
	c.mu.Unlock()

	c.core.Stream.startLocal(id)
	return sess.Clone()
}

// Clear purges incognito residue: the server drops whatever incognito
// chats it still holds, and local state is wiped regardless of whether
// that call succeeded.
func (c *IncognitoController) Clear(ctx context.Context) (int, error) {
	result, err := c.core.gw.ClearIncognito(ctx)

	c.mu.Lock()
	c.local = make(map[int64]*model.Session)
	clearActive := c.active
	c.mu.Unlock()

	c.core.Sessions.removeIncognito()
	if clearActive || c.core.Stream.ActiveID() < 0 {
		c.core.Stream.Clear()
	}
	c.core.emit(Event{Kind: EventIncognito})

	if err != nil {
		return 0, fmt.Errorf("failed to clear incognito sessions: %w", err)
	}
	return result.ClearedCount, nil
}

// Status fetches the server's incognito bookkeeping for the mode
// indicator and the clear confirmation prompt.
func (c *IncognitoController) Status(ctx context.Context) (*gateway.ModeStatus, error) {
	status, err := c.core.gw.GetModeStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mode status: %w", err)
	}
	return status, nil
}
