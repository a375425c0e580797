// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat view for the sage TUI.

The package implements a Bubble Tea presentation shell over the state
core in internal/chat. The Model never mutates conversation or session
state itself: every user action is translated into a call on the core
(sends, opens, deletes, undo, incognito toggling) and every repaint is
driven either by the returned command or by an event the core emits.

# Layout

The view is a classic three-row layout with an optional sidebar:

	header      title, incognito badge
	body        session sidebar | message viewport
	input       single-line prompt
	status bar  shortcuts, transient toasts

Assistant messages are rendered as markdown through Glamour; user and
system messages are printed verbatim. A pending delete surfaces as an
undo toast in the status row for the duration of the grace period.

# Event flow

Core events cross into the Bubble Tea loop through the channel built by
NewEventBridge. The search client's update callback uses a second
channel with the same single-pending semantics. Both channels are
drained by self-rearming listen commands, so a burst of events costs at
most one repaint per processed message.
*/
package chat
