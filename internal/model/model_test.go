// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

// ============================================================================
// Title derivation tests
// ============================================================================

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple message", "How do I reset my password?", "How do I reset my password?"},
		{"trims whitespace", "  hello  ", "hello"},
		{"collapses newlines", "line one\nline two", "line one line two"},
		{"strips carriage returns", "a\r\nb", "a b"},
		{"empty message", "", "New chat"},
		{"whitespace only", "   \n  ", "New chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTitle(tt.input)
			if got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDeriveTitleTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 20; i++ {
		long += "abcdefghij"
	}
	got := DeriveTitle(long)
	if len([]rune(got)) > maxDerivedTitle {
		t.Errorf("derived title has %d runes, want <= %d", len([]rune(got)), maxDerivedTitle)
	}
}

// ============================================================================
// Session tests
// ============================================================================

func TestSessionIsLocal(t *testing.T) {
	if (&Session{ID: 5}).IsLocal() {
		t.Error("positive id should not be local")
	}
	if !(&Session{ID: -1}).IsLocal() {
		t.Error("negative id should be local")
	}
}

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		want    string
	}{
		{"with title", Session{Title: "Billing question"}, "Billing question"},
		{"untitled", Session{}, "New chat"},
		{"untitled incognito", Session{IsIncognito: true}, "Incognito chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.DisplayTitle(); got != tt.want {
				t.Errorf("DisplayTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSortSessions(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := []*Session{
		{ID: 1, UpdatedAt: base.Add(1 * time.Hour)},
		{ID: 2, UpdatedAt: base.Add(3 * time.Hour)},
		{ID: 3, UpdatedAt: base.Add(2 * time.Hour), IsPinned: true},
		{ID: 4, UpdatedAt: base},
	}

	SortSessions(sessions)

	wantOrder := []int64{3, 2, 1, 4}
	for i, want := range wantOrder {
		if sessions[i].ID != want {
			t.Errorf("position %d: got id %d, want %d", i, sessions[i].ID, want)
		}
	}
}

func TestSortSessionsStable(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := []*Session{
		{ID: 1, UpdatedAt: ts},
		{ID: 2, UpdatedAt: ts},
		{ID: 3, UpdatedAt: ts},
	}

	SortSessions(sessions)

	for i, want := range []int64{1, 2, 3} {
		if sessions[i].ID != want {
			t.Errorf("equal timestamps reordered: position %d got id %d", i, sessions[i].ID)
		}
	}
}

// ============================================================================
// Temp id tests
// ============================================================================

func TestTempIDs(t *testing.T) {
	id := NewTempID()
	if !IsTempID(id) {
		t.Errorf("NewTempID() = %q, not recognized as temp", id)
	}
	if id == NewTempID() {
		t.Error("temp ids should be unique")
	}
	if IsTempID("42") {
		t.Error("server id misclassified as temp")
	}
	if IsTempID("") {
		t.Error("empty id misclassified as temp")
	}
}

// ============================================================================
// Filter tests
// ============================================================================

func TestFilterIsZero(t *testing.T) {
	if !(Filter{}).IsZero() {
		t.Error("empty filter should be zero")
	}
	if (Filter{DateRange: DateRangeWeek}).IsZero() {
		t.Error("date-restricted filter should not be zero")
	}
	if (Filter{Tags: []string{"x"}}).IsZero() {
		t.Error("tagged filter should not be zero")
	}
}

func TestFilterMatches(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filter  Filter
		session Session
		want    bool
	}{
		{
			"zero filter matches everything",
			Filter{},
			Session{UpdatedAt: now.Add(-365 * 24 * time.Hour)},
			true,
		},
		{
			"today admits recent",
			Filter{DateRange: DateRangeToday},
			Session{UpdatedAt: now.Add(-2 * time.Hour)},
			true,
		},
		{
			"today rejects old",
			Filter{DateRange: DateRangeToday},
			Session{UpdatedAt: now.Add(-48 * time.Hour)},
			false,
		},
		{
			"week boundary",
			Filter{DateRange: DateRangeWeek},
			Session{UpdatedAt: now.Add(-6 * 24 * time.Hour)},
			true,
		},
		{
			"data source match",
			Filter{DataSource: "company_faqs"},
			Session{UpdatedAt: now, DataSource: "company_faqs"},
			true,
		},
		{
			"data source mismatch",
			Filter{DataSource: "company_faqs"},
			Session{UpdatedAt: now, DataSource: "uploaded_files"},
			false,
		},
		{
			"tag in title case-insensitive",
			Filter{Tags: []string{"BILLING"}},
			Session{UpdatedAt: now, Title: "Billing question"},
			true,
		},
		{
			"tag in last message",
			Filter{Tags: []string{"invoice"}},
			Session{UpdatedAt: now, Title: "Help", LastMessage: "your invoice is ready"},
			true,
		},
		{
			"all tags required",
			Filter{Tags: []string{"billing", "refund"}},
			Session{UpdatedAt: now, Title: "Billing question"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(&tt.session, now); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterApply(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	sessions := []*Session{
		{ID: 1, UpdatedAt: now, DataSource: "company_faqs"},
		{ID: 2, UpdatedAt: now, DataSource: "uploaded_files"},
		{ID: 3, UpdatedAt: now, DataSource: "company_faqs"},
	}

	got := Filter{DataSource: "company_faqs"}.Apply(sessions, now)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("Apply returned wrong subset: %+v", got)
	}

	// Zero filter returns the input unchanged.
	if all := (Filter{}).Apply(sessions, now); len(all) != 3 {
		t.Errorf("zero filter dropped sessions: %d", len(all))
	}
}
