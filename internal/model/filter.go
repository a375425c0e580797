// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"strings"
	"time"
)

// =============================================================================
// FILTER TYPE
// =============================================================================

// DateRange restricts results to a recency window.
type DateRange string

const (
	DateRangeAny   DateRange = ""
	DateRangeToday DateRange = "today"
	DateRangeWeek  DateRange = "week"
	DateRangeMonth DateRange = "month"
)

// Filter is the client-side post-filter applied to search results.
// The server only filters by free text; everything here is applied locally.
type Filter struct {
	DateRange  DateRange `json:"date_range,omitempty"`
	DataSource string    `json:"data_source,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
}

// IsZero reports whether the filter restricts nothing.
func (f Filter) IsZero() bool {
	return f.DateRange == DateRangeAny && f.DataSource == "" && len(f.Tags) == 0
}

// cutoff returns the oldest UpdatedAt admitted by the date range, or the
// zero time when the range is unrestricted.
func (f Filter) cutoff(now time.Time) time.Time {
	switch f.DateRange {
	case DateRangeToday:
		return now.Add(-24 * time.Hour)
	case DateRangeWeek:
		return now.Add(-7 * 24 * time.Hour)
	case DateRangeMonth:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// Matches reports whether a session passes the filter at the given instant.
func (f Filter) Matches(s *Session, now time.Time) bool {
	if cut := f.cutoff(now); !cut.IsZero() && s.UpdatedAt.Before(cut) {
		return false
	}
	if f.DataSource != "" && s.DataSource != f.DataSource {
		return false
	}
	if len(f.Tags) > 0 {
		haystack := strings.ToLower(s.Title + " " + s.LastMessage)
		for _, tag := range f.Tags {
			if !strings.Contains(haystack, strings.ToLower(tag)) {
				return false
			}
		}
	}
	return true
}

// Apply returns the subset of sessions passing the filter, preserving order.
func (f Filter) Apply(sessions []*Session, now time.Time) []*Session {
	if f.IsZero() {
		return sessions
	}
	out := make([]*Session, 0, len(sessions))
	for _, s := range sessions {
		if f.Matches(s, now) {
			out = append(out, s)
		}
	}
	return out
}

// =============================================================================
// SAVED FILTERS
// =============================================================================

// SavedFilter is a named filter persisted in client-local storage.
type SavedFilter struct {
	Name   string `json:"name"`
	Filter Filter `json:"filter"`
}
