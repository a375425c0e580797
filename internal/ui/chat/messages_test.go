// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"testing"

	core "github.com/sagedesk/sage-tui/internal/chat"
)

func TestEventBridgeDelivery(t *testing.T) {
	notify, events := NewEventBridge()

	notify(core.Event{Kind: core.EventSessions})
	notify(core.Event{Kind: core.EventMessages, SessionID: 7})

	ev := <-events
	if ev.Kind != core.EventSessions {
		t.Errorf("first event kind = %d, want EventSessions", ev.Kind)
	}
	ev = <-events
	if ev.Kind != core.EventMessages || ev.SessionID != 7 {
		t.Errorf("second event = %+v, want EventMessages for session 7", ev)
	}
}

func TestEventBridgeKeepsNewestUnderBackpressure(t *testing.T) {
	notify, events := NewEventBridge()

	// Overfill the buffer without draining, then push a revert. The
	// oldest repaint hints are evicted; the revert must survive.
	for i := 0; i < 200; i++ {
		notify(core.Event{Kind: core.EventMessages, SessionID: int64(i)})
	}
	revert := errors.New("send failed")
	notify(core.Event{Kind: core.EventMessages, SessionID: 5, Err: revert})

	var last core.Event
	for {
		select {
		case ev := <-events:
			last = ev
			continue
		default:
		}
		break
	}
	if !errors.Is(last.Err, revert) {
		t.Errorf("newest event lost under backpressure: last = %+v", last)
	}
}
