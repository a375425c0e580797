// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sagedesk/sage-tui/internal/gateway"
	"github.com/sagedesk/sage-tui/internal/model"
)

// fakeGateway is a function-field Gateway double. Unset functions return
// benign empty results. Call counters are safe for concurrent use.
type fakeGateway struct {
	mu sync.Mutex

	listFn   func(page, pageSize int) (*gateway.SessionList, error)
	getFn    func(id int64) (*gateway.SessionDetail, error)
	createFn func(req gateway.CreateSessionRequest) (*gateway.CreateSessionResult, error)
	patchFn  func(id int64, patch gateway.SessionPatch) error
	deleteFn func(id int64) error
	sendFn   func(req gateway.SendRequest) (*gateway.SendResult, error)
	clearFn  func() (*gateway.ClearIncognitoResult, error)
	statusFn func() (*gateway.ModeStatus, error)

	listCalls   int
	createCalls int
	deleteCalls int
	sendCalls   int
	clearCalls  int
}

func (f *fakeGateway) count(n *int) {
	f.mu.Lock()
	*n++
	f.mu.Unlock()
}

func (f *fakeGateway) calls(n *int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *n
}

func (f *fakeGateway) ListSessions(_ context.Context, page, pageSize int) (*gateway.SessionList, error) {
	f.count(&f.listCalls)
	if f.listFn != nil {
		return f.listFn(page, pageSize)
	}
	return &gateway.SessionList{Page: page, PageSize: pageSize}, nil
}

func (f *fakeGateway) GetSession(_ context.Context, id int64, _, _ int) (*gateway.SessionDetail, error) {
	if f.getFn != nil {
		return f.getFn(id)
	}
	return &gateway.SessionDetail{Chat: &model.Session{ID: id}}, nil
}

func (f *fakeGateway) CreateSession(_ context.Context, req gateway.CreateSessionRequest) (*gateway.CreateSessionResult, error) {
	f.count(&f.createCalls)
	if f.createFn != nil {
		return f.createFn(req)
	}
	return &gateway.CreateSessionResult{ChatID: 1, Title: req.Title}, nil
}

func (f *fakeGateway) PatchSession(_ context.Context, id int64, patch gateway.SessionPatch) error {
	if f.patchFn != nil {
		return f.patchFn(id, patch)
	}
	return nil
}

func (f *fakeGateway) DeleteSession(_ context.Context, id int64) error {
	f.count(&f.deleteCalls)
	if f.deleteFn != nil {
		return f.deleteFn(id)
	}
	return nil
}

func (f *fakeGateway) Send(_ context.Context, req gateway.SendRequest) (*gateway.SendResult, error) {
	f.count(&f.sendCalls)
	if f.sendFn != nil {
		return f.sendFn(req)
	}
	return &gateway.SendResult{Response: "ok", ChatID: 1, MessageID: "m1", UserMessageID: "u1"}, nil
}

func (f *fakeGateway) ClearIncognito(_ context.Context) (*gateway.ClearIncognitoResult, error) {
	f.count(&f.clearCalls)
	if f.clearFn != nil {
		return f.clearFn()
	}
	return &gateway.ClearIncognitoResult{}, nil
}

func (f *fakeGateway) GetModeStatus(_ context.Context) (*gateway.ModeStatus, error) {
	if f.statusFn != nil {
		return f.statusFn()
	}
	return &gateway.ModeStatus{}, nil
}

// testConfig keeps timers short enough for tests but long enough to be
// deterministic on a loaded machine.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.GracePeriod = 30 * time.Millisecond
	cfg.DeleteTimeout = time.Second
	return cfg
}

// newTestCore builds a core over the fake with no event sink.
func newTestCore(gw *fakeGateway, cfg Config) *Core {
	return New(gw, cfg, nil)
}

// sessionsPage builds a list response whose entries are sized to fill or
// underfill a page as the ids dictate.
func sessionsPage(total int, sessions ...*model.Session) *gateway.SessionList {
	return &gateway.SessionList{
		Chats: sessions,
		Total: total,
	}
}

// sess builds a persisted session with a recency offset so ordering is
// predictable: higher offsets are more recent.
func sess(id int64, title string, recency int) *model.Session {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &model.Session{
		ID:        id,
		Title:     title,
		CreatedAt: base,
		UpdatedAt: base.Add(time.Duration(recency) * time.Minute),
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

// ids extracts session ids in order for compact assertions.
func ids(sessions []*model.Session) []int64 {
	out := make([]int64, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}

func idsEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
