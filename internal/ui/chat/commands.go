// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	core "github.com/sagedesk/sage-tui/internal/chat"
	"github.com/sagedesk/sage-tui/internal/gateway"
)

// opTimeout bounds every core call issued from the UI. The deletion
// grace timer runs inside the core and is not subject to it.
const opTimeout = 30 * time.Second

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// listenCore waits for the next core event. The returned command must
// be re-issued after each delivery.
func listenCore(ch <-chan core.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return CoreEventMsg{Event: ev}
	}
}

// listenSearch waits for the next search client update.
func listenSearch(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-ch
		if !ok {
			return nil
		}
		return searchUpdateMsg{}
	}
}

func sendCmd(c *core.Core, text, dataSource string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return sendDoneMsg{err: c.Stream.Send(ctx, text, dataSource)}
	}
}

func loadSessionsCmd(c *core.Core) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return sessionsLoadedMsg{err: c.Sessions.Load(ctx)}
	}
}

func loadMoreCmd(c *core.Core) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return sessionsLoadedMsg{err: c.Sessions.LoadMore(ctx)}
	}
}

func openSessionCmd(c *core.Core, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return historyLoadedMsg{id: id, err: c.Stream.LoadHistory(ctx, id)}
	}
}

func toggleIncognitoCmd(c *core.Core) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		err := c.Incognito.Toggle(ctx)
		return incognitoToggledMsg{active: c.Incognito.Active(), err: err}
	}
}

func clearIncognitoCmd(c *core.Core) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		count, err := c.Incognito.Clear(ctx)
		return incognitoClearedMsg{count: count, err: err}
	}
}

func setPinnedCmd(c *core.Core, id int64, pinned bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		patch := gateway.SessionPatch{IsPinned: &pinned}
		return sessionsLoadedMsg{err: c.Sessions.Update(ctx, id, patch)}
	}
}

// toastCmd schedules the expiry of the toast with the given sequence.
func toastCmd(seq int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}
