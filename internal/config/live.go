// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import "sync/atomic"

// Live publishes the active configuration to concurrent readers. A hot
// reload swaps the whole snapshot at once, so a reader never observes a
// half-written struct.
type Live struct {
	p atomic.Pointer[Config]
}

// NewLive wraps cfg as the initial snapshot.
func NewLive(cfg *Config) *Live {
	l := &Live{}
	l.p.Store(cfg)
	return l
}

// Get returns the current snapshot. Callers must treat it as read-only.
func (l *Live) Get() *Config {
	return l.p.Load()
}

// Set publishes a new snapshot.
func (l *Live) Set(cfg *Config) {
	l.p.Store(cfg)
}
