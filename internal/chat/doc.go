// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the client-side session state core.
//
// Four components share authority over chat state: SessionStore owns the
// persisted session list, MessageStream owns the active session's message
// log, DeletionLedger owns sessions mid-deletion, and IncognitoController
// owns the mode flag and client-local incognito sessions.
//
// Every mutating operation follows the same shape: apply the change
// locally under the component's mutex, call the gateway with the lock
// released, then re-acquire the lock to reconcile or revert. Local state
// reflects the optimistic outcome while a call is outstanding.
//
// A session id lives in SessionStore's visible list or in the
// DeletionLedger, never both. Visibility authority moves atomically
// between the two when a delete starts, is undone, or fails.
package chat
