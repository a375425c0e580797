// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	core "github.com/sagedesk/sage-tui/internal/chat"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// CoreEventMsg carries a state-core event into the Bubble Tea loop.
type CoreEventMsg struct {
	Event core.Event
}

// searchUpdateMsg signals that the search client changed state.
type searchUpdateMsg struct{}

// sendDoneMsg reports the outcome of a message send.
type sendDoneMsg struct {
	err error
}

// sessionsLoadedMsg reports the outcome of a session list load.
type sessionsLoadedMsg struct {
	err error
}

// historyLoadedMsg reports the outcome of opening a session.
type historyLoadedMsg struct {
	id  int64
	err error
}

// incognitoToggledMsg reports the outcome of flipping incognito mode.
type incognitoToggledMsg struct {
	active bool
	err    error
}

// incognitoClearedMsg reports the outcome of purging incognito chats.
type incognitoClearedMsg struct {
	count int
	err   error
}

// toastExpiredMsg retires a transient status toast. The sequence number
// guards against an old timer clearing a newer toast.
type toastExpiredMsg struct {
	seq int
}

// =============================================================================
// EVENT BRIDGE
// =============================================================================

// NewEventBridge returns a notify callback suitable for the state core
// and the channel the TUI drains. The callback never blocks: when the
// buffer is full it evicts the oldest queued event to make room, so the
// newest event, including reverts carrying an error the user must see,
// is always delivered.
func NewEventBridge() (func(core.Event), <-chan core.Event) {
	ch := make(chan core.Event, 64)
	notify := func(ev core.Event) {
		for {
			select {
			case ch <- ev:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}
	return notify, ch
}
