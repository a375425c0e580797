// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/sagedesk/sage-tui/internal/gateway"
)

func TestLoadReplacesList(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(page, pageSize int) (*gateway.SessionList, error) {
			return sessionsPage(3, sess(1, "a", 3), sess(2, "b", 1), sess(3, "c", 2)), nil
		},
	}
	core := newTestCore(gw, testConfig())

	if err := core.Sessions.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := ids(core.Sessions.Sessions())
	if !idsEqual(got, []int64{1, 3, 2}) {
		t.Errorf("list order = %v, want [1 3 2]", got)
	}
	if core.Sessions.Total() != 3 {
		t.Errorf("total = %d, want 3", core.Sessions.Total())
	}
}

func TestLoadFiltersIncognitoEntries(t *testing.T) {
	leaked := sess(5, "leaked", 1)
	leaked.IsIncognito = true

	gw := &fakeGateway{
		listFn: func(page, pageSize int) (*gateway.SessionList, error) {
			return sessionsPage(2, sess(1, "a", 2), leaked), nil
		},
	}
	core := newTestCore(gw, testConfig())

	if err := core.Sessions.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, s := range core.Sessions.Sessions() {
		if s.IsIncognito {
			t.Errorf("incognito session %d visible in persisted list", s.ID)
		}
	}
}

func TestLoadFiltersPendingDeletes(t *testing.T) {
	cfg := testConfig()
	gw := &fakeGateway{
		listFn: func(page, pageSize int) (*gateway.SessionList, error) {
			return sessionsPage(2, sess(1, "a", 2), sess(2, "doomed", 1)), nil
		},
	}
	core := newTestCore(gw, cfg)

	if err := core.Sessions.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := core.Ledger.Delete(2); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// The server still reports the session; a reload must not resurrect it.
	if err := core.Sessions.Load(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := ids(core.Sessions.Sessions()); !idsEqual(got, []int64{1}) {
		t.Errorf("list = %v, want [1]", got)
	}
}

func TestLoadMoreDeduplicatesAcrossPages(t *testing.T) {
	cfg := testConfig()
	cfg.PageSize = 2

	gw := &fakeGateway{}
	gw.listFn = func(page, pageSize int) (*gateway.SessionList, error) {
		switch page {
		case 1:
			return sessionsPage(3, sess(1, "a", 3), sess(2, "b", 2)), nil
		default:
			// Page 2 overlaps page 1, as happens when a session was
			// deleted between requests.
			return sessionsPage(3, sess(2, "b", 2), sess(3, "c", 1)), nil
		}
	}
	core := newTestCore(gw, cfg)

	if err := core.Sessions.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := core.Sessions.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}

	got := ids(core.Sessions.Sessions())
	if !idsEqual(got, []int64{1, 2, 3}) {
		t.Errorf("list = %v, want [1 2 3]", got)
	}
}

func TestLoadMoreStopsAfterShortPage(t *testing.T) {
	cfg := testConfig()
	cfg.PageSize = 5

	gw := &fakeGateway{
		listFn: func(page, pageSize int) (*gateway.SessionList, error) {
			return sessionsPage(2, sess(1, "a", 2), sess(2, "b", 1)), nil
		},
	}
	core := newTestCore(gw, cfg)

	if err := core.Sessions.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if core.Sessions.HasMore() {
		t.Error("short page should clear hasMore")
	}

	if err := core.Sessions.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}
	if n := gw.calls(&gw.listCalls); n != 1 {
		t.Errorf("LoadMore after short page hit the network: %d list calls", n)
	}
}

func TestCreateInsertsAtHead(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(page, pageSize int) (*gateway.SessionList, error) {
			return sessionsPage(1, sess(1, "old", 1)), nil
		},
		createFn: func(req gateway.CreateSessionRequest) (*gateway.CreateSessionResult, error) {
			return &gateway.CreateSessionResult{ChatID: 9, Title: req.Title}, nil
		},
	}
	core := newTestCore(gw, testConfig())

	if err := core.Sessions.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	created, err := core.Sessions.Create(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != 9 {
		t.Errorf("created id = %d, want 9", created.ID)
	}

	got := ids(core.Sessions.Sessions())
	if !idsEqual(got, []int64{9, 1}) {
		t.Errorf("list = %v, want [9 1]", got)
	}
}

func TestCreateIncognitoStaysLocal(t *testing.T) {
	gw := &fakeGateway{}
	core := newTestCore(gw, testConfig())

	if err := core.Incognito.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	created, err := core.Sessions.Create(context.Background(), "secret")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID >= 0 {
		t.Errorf("incognito session id = %d, want negative", created.ID)
	}
	if !created.IsIncognito {
		t.Error("created session not flagged incognito")
	}
	if n := gw.calls(&gw.createCalls); n != 0 {
		t.Errorf("incognito create reached the network: %d calls", n)
	}
	if len(core.Sessions.Sessions()) != 0 {
		t.Error("incognito session appeared in the persisted list")
	}
}

func TestUpdateAppliesOptimistically(t *testing.T) {
	patched := make(chan struct{})
	gw := &fakeGateway{
		listFn: func(page, pageSize int) (*gateway.SessionList, error) {
			return sessionsPage(1, sess(1, "old title", 1)), nil
		},
		patchFn: func(id int64, patch gateway.SessionPatch) error {
			<-patched
			return nil
		},
	}
	core := newTestCore(gw, testConfig())

	if err := core.Sessions.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	title := "new title"
	done := make(chan error, 1)
	go func() {
		done <- core.Sessions.Update(context.Background(), 1, gateway.SessionPatch{Title: &title})
	}()

	// The local entry must reflect the patch while the call is in flight.
	waitFor(t, func() bool {
		s := core.Sessions.Get(1)
		return s != nil && s.Title == "new title"
	})

	close(patched)
	if err := <-done; err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestUpdateFailureReloadsServerState(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(page, pageSize int) (*gateway.SessionList, error) {
			return sessionsPage(1, sess(1, "server title", 1)), nil
		},
		patchFn: func(id int64, patch gateway.SessionPatch) error {
			return errors.New("network down")
		},
	}
	core := newTestCore(gw, testConfig())

	if err := core.Sessions.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	title := "local title"
	err := core.Sessions.Update(context.Background(), 1, gateway.SessionPatch{Title: &title})
	if err == nil {
		t.Fatal("Update should have failed")
	}

	// The optimistic title must be gone, replaced by the server's.
	s := core.Sessions.Get(1)
	if s == nil || s.Title != "server title" {
		t.Errorf("session after failed update = %+v, want server title", s)
	}
}

func TestUpdateUnknownSession(t *testing.T) {
	core := newTestCore(&fakeGateway{}, testConfig())

	title := "x"
	err := core.Sessions.Update(context.Background(), 99, gateway.SessionPatch{Title: &title})
	if !errors.Is(err, ErrNotActive) {
		t.Errorf("err = %v, want ErrNotActive", err)
	}
}

func TestPinnedSessionsSortFirst(t *testing.T) {
	pinned := sess(3, "pinned", 1)
	pinned.IsPinned = true

	gw := &fakeGateway{
		listFn: func(page, pageSize int) (*gateway.SessionList, error) {
			return sessionsPage(3, sess(1, "a", 3), sess(2, "b", 2), pinned), nil
		},
	}
	core := newTestCore(gw, testConfig())

	if err := core.Sessions.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := ids(core.Sessions.Sessions())
	if !idsEqual(got, []int64{3, 1, 2}) {
		t.Errorf("list = %v, want pinned first [3 1 2]", got)
	}
}
