// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/sagedesk/sage-tui/internal/gateway"
	"github.com/sagedesk/sage-tui/internal/model"
)

func TestSendFirstMessageCreatesSession(t *testing.T) {
	gw := &fakeGateway{
		sendFn: func(req gateway.SendRequest) (*gateway.SendResult, error) {
			if req.ChatID != nil {
				t.Errorf("first send carried chat id %d, want null", *req.ChatID)
			}
			return &gateway.SendResult{
				Response:      "Hi",
				ChatID:        42,
				MessageID:     "m1",
				UserMessageID: "u1",
			}, nil
		},
	}
	core := newTestCore(gw, testConfig())

	if err := core.Stream.Send(context.Background(), "Hello", ""); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	msgs := core.Stream.Messages()
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2", len(msgs))
	}
	if msgs[0].ID != "u1" || msgs[0].Role != model.RoleUser {
		t.Errorf("first message = %s/%s, want u1/user", msgs[0].ID, msgs[0].Role)
	}
	if msgs[1].ID != "m1" || msgs[1].Role != model.RoleAssistant {
		t.Errorf("second message = %s/%s, want m1/assistant", msgs[1].ID, msgs[1].Role)
	}
	for _, msg := range msgs {
		if model.IsTempID(msg.ID) {
			t.Errorf("temp id %s survived reconciliation", msg.ID)
		}
	}

	if core.Stream.ActiveID() != 42 {
		t.Errorf("active id = %d, want 42", core.Stream.ActiveID())
	}
	got := ids(core.Sessions.Sessions())
	if !idsEqual(got, []int64{42}) {
		t.Errorf("session list = %v, want [42]", got)
	}
}

func TestSendOptimisticTempVisibleDuringFlight(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{
		sendFn: func(req gateway.SendRequest) (*gateway.SendResult, error) {
			<-release
			return &gateway.SendResult{Response: "Hi", ChatID: 1, MessageID: "m1", UserMessageID: "u1"}, nil
		},
	}
	core := newTestCore(gw, testConfig())

	done := make(chan error, 1)
	go func() {
		done <- core.Stream.Send(context.Background(), "Hello", "")
	}()

	waitFor(t, func() bool {
		msgs := core.Stream.Messages()
		return len(msgs) == 1 && model.IsTempID(msgs[0].ID) && msgs[0].Pending
	})

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

// Two overlapping sends whose responses arrive in reverse order must
// still produce the log in call-issue order.
func TestSendOrderingSurvivesOutOfOrderResponses(t *testing.T) {
	firstBlocked := make(chan struct{})
	secondDone := make(chan struct{})

	gw := &fakeGateway{}
	gw.sendFn = func(req gateway.SendRequest) (*gateway.SendResult, error) {
		switch req.Message {
		case "one":
			<-firstBlocked
			return &gateway.SendResult{Response: "reply one", ChatID: 7, MessageID: "m1", UserMessageID: "u1"}, nil
		default:
			defer close(secondDone)
			return &gateway.SendResult{Response: "reply two", ChatID: 7, MessageID: "m2", UserMessageID: "u2"}, nil
		}
	}

	core := newTestCore(gw, testConfig())
	seedActiveSession(core, 7)

	errs := make(chan error, 2)
	go func() { errs <- core.Stream.Send(context.Background(), "one", "") }()

	// The second send starts only after the first temp is in the log, so
	// call-issue order is fixed.
	waitFor(t, func() bool { return len(core.Stream.Messages()) == 1 })
	go func() { errs <- core.Stream.Send(context.Background(), "two", "") }()

	// Let the second response land first, then release the first.
	<-secondDone
	waitFor(t, func() bool { return len(core.Stream.Messages()) == 3 })
	close(firstBlocked)

	if err := <-errs; err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := <-errs; err != nil {
		t.Fatalf("send failed: %v", err)
	}

	msgs := core.Stream.Messages()
	if len(msgs) != 4 {
		t.Fatalf("message count = %d, want 4", len(msgs))
	}
	wantIDs := []string{"u1", "m1", "u2", "m2"}
	for i, want := range wantIDs {
		if msgs[i].ID != want {
			t.Errorf("position %d: id = %s, want %s", i, msgs[i].ID, want)
		}
	}
}

func TestSendFailureRemovesOnlyMatchingTemp(t *testing.T) {
	gw := &fakeGateway{}
	core := newTestCore(gw, testConfig())
	seedActiveSession(core, 7)

	// First send succeeds and is reconciled.
	if err := core.Stream.Send(context.Background(), "kept", ""); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	gw.sendFn = func(req gateway.SendRequest) (*gateway.SendResult, error) {
		return nil, errors.New("connection reset")
	}
	if err := core.Stream.Send(context.Background(), "dropped", ""); err == nil {
		t.Fatal("Send should have failed")
	}

	msgs := core.Stream.Messages()
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2 (failed temp removed)", len(msgs))
	}
	for _, msg := range msgs {
		if msg.Content == "dropped" {
			t.Error("failed message still in the log")
		}
	}
}

func TestSendEmptyMessage(t *testing.T) {
	gw := &fakeGateway{}
	core := newTestCore(gw, testConfig())

	err := core.Stream.Send(context.Background(), "   \n  ", "")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("err = %v, want ErrEmptyMessage", err)
	}
	if n := gw.calls(&gw.sendCalls); n != 0 {
		t.Errorf("empty send reached the network: %d calls", n)
	}
}

func TestSendIncognitoNeverTouchesSessionList(t *testing.T) {
	gw := &fakeGateway{
		sendFn: func(req gateway.SendRequest) (*gateway.SendResult, error) {
			if !req.IsIncognito {
				t.Error("incognito flag not forwarded")
			}
			return &gateway.SendResult{
				Response:      "hidden",
				ChatID:        -3,
				MessageID:     "m1",
				UserMessageID: "u1",
				IsIncognito:   true,
			}, nil
		},
	}
	core := newTestCore(gw, testConfig())

	if err := core.Incognito.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if err := core.Stream.Send(context.Background(), "secret question", ""); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if len(core.Sessions.Sessions()) != 0 {
		t.Error("incognito send inserted into the persisted list")
	}
	if core.Stream.ActiveID() != -3 {
		t.Errorf("active id = %d, want -3 (server incognito id)", core.Stream.ActiveID())
	}
	if len(core.Stream.Messages()) != 2 {
		t.Errorf("message count = %d, want 2", len(core.Stream.Messages()))
	}
}

func TestSendDefaultsDataSource(t *testing.T) {
	var captured string
	gw := &fakeGateway{
		sendFn: func(req gateway.SendRequest) (*gateway.SendResult, error) {
			captured = req.DataSource
			return &gateway.SendResult{Response: "ok", ChatID: 1, MessageID: "m1", UserMessageID: "u1"}, nil
		},
	}
	core := newTestCore(gw, testConfig())

	if err := core.Stream.Send(context.Background(), "hi", ""); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if captured != "company_faqs" {
		t.Errorf("data source = %q, want company_faqs", captured)
	}
}

func TestLoadHistoryBlockedDuringPendingDelete(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(page, pageSize int) (*gateway.SessionList, error) {
			return sessionsPage(1, sess(4, "doomed", 1)), nil
		},
	}
	core := newTestCore(gw, testConfig())

	if err := core.Sessions.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := core.Ledger.Delete(4); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	err := core.Stream.LoadHistory(context.Background(), 4)
	if !errors.Is(err, ErrPendingDelete) {
		t.Errorf("err = %v, want ErrPendingDelete", err)
	}
}

func TestLoadHistoryNotFoundClearsActive(t *testing.T) {
	gw := &fakeGateway{}
	core := newTestCore(gw, testConfig())
	seedActiveSession(core, 7)

	gw.getFn = func(id int64) (*gateway.SessionDetail, error) {
		return nil, gateway.ErrNotFound
	}
	err := core.Stream.LoadHistory(context.Background(), 7)
	if !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if core.Stream.ActiveID() != 0 {
		t.Errorf("active id = %d, want 0 after vanished session", core.Stream.ActiveID())
	}
	if len(core.Stream.Messages()) != 0 {
		t.Error("messages survived a vanished session")
	}
}

func TestLoadHistoryPopulatesLog(t *testing.T) {
	gw := &fakeGateway{
		getFn: func(id int64) (*gateway.SessionDetail, error) {
			return &gateway.SessionDetail{
				Chat: &model.Session{ID: id, Title: "older chat"},
				Messages: []gateway.WireMessage{
					{ID: "10", Role: "user", Content: "q"},
					{ID: "11", Role: "assistant", Content: "a"},
				},
				TotalMessages: 2,
			}, nil
		},
	}
	core := newTestCore(gw, testConfig())

	if err := core.Stream.LoadHistory(context.Background(), 5); err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}

	msgs := core.Stream.Messages()
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2", len(msgs))
	}
	if msgs[0].SessionID != 5 || msgs[1].SessionID != 5 {
		t.Error("messages not tagged with session id")
	}
	if core.Stream.ActiveID() != 5 {
		t.Errorf("active id = %d, want 5", core.Stream.ActiveID())
	}
}

// seedActiveSession makes a server-known session the active one without
// a history round trip.
func seedActiveSession(core *Core, id int64) {
	core.Stream.mu.Lock()
	core.Stream.activeID = id
	core.Stream.activeRemote = true
	core.Stream.mu.Unlock()
}
