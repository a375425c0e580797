// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search implements the debounced session search client.
//
// Queries are dispatched after a quiet period so fast typing produces
// one request, and every dispatch carries a sequence number so a slow
// response for an old query can never overwrite a newer one. The server
// matches free text only; the Filter is applied client-side.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sagedesk/sage-tui/internal/gateway"
	"github.com/sagedesk/sage-tui/internal/model"
)

// Defaults for the search client.
const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultLimit    = 50

	// requestTimeout bounds each dispatched search. The dispatch runs on
	// the timer goroutine, detached from any caller context.
	requestTimeout = 10 * time.Second
)

// Gateway is the slice of the backend client the search needs.
type Gateway interface {
	SearchSessions(ctx context.Context, query string, limit int) (*gateway.SearchResponse, error)
}

// Client is the debounced search dispatcher.
type Client struct {
	mu sync.Mutex

	gw       Gateway
	debounce time.Duration
	limit    int
	onUpdate func()

	timer     *time.Timer
	seq       uint64
	query     string
	filter    model.Filter
	raw       []*model.Session
	searching bool
	lastErr   error
	closed    bool
}

// New creates a search client. onUpdate fires after results, searching
// state, or errors change; it runs off the caller's goroutine and must
// not call back into the client synchronously under its own locks.
func New(gw Gateway, debounce time.Duration, limit int, onUpdate func()) *Client {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Client{
		gw:       gw,
		debounce: debounce,
		limit:    limit,
		onUpdate: onUpdate,
	}
}

// Search schedules a query. Only the last call within the debounce
// window reaches the network. An empty or whitespace query clears the
// results immediately without a network call.
func (c *Client) Search(query string) {
	query = strings.TrimSpace(query)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	// Any in-flight response is stale from this point on.
	c.seq++
	c.query = query

	if query == "" {
		c.raw = nil
		c.searching = false
		c.lastErr = nil
		c.mu.Unlock()
		c.notify()
		return
	}

	c.searching = true
	seq := c.seq
	c.timer = time.AfterFunc(c.debounce, func() {
		c.dispatch(query, seq)
	})
	c.mu.Unlock()
	c.notify()
}

// dispatch runs on the timer goroutine once the quiet period elapses.
func (c *Client) dispatch(query string, seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		return
	}
	limit := c.limit
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp, err := c.gw.SearchSessions(ctx, query, limit)

	c.mu.Lock()
	if c.closed || seq != c.seq {
		// A newer query superseded this one while it was in flight.
		c.mu.Unlock()
		return
	}
	c.searching = false
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.notify()
		return
	}
	c.lastErr = nil
	c.raw = resp.Results
	c.mu.Unlock()
	c.notify()
}

// SetFilter replaces the client-side post-filter. Existing results are
// re-filtered on the next Results call; no network traffic.
func (c *Client) SetFilter(f model.Filter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	c.notify()
}

// Filter returns the current post-filter.
func (c *Client) Filter() model.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Results returns the current result set with the filter applied.
// Results are transient and never merged back into the session list.
func (c *Client) Results() []*model.Session {
	c.mu.Lock()
	raw := c.raw
	f := c.filter
	c.mu.Unlock()
	return f.Apply(raw, time.Now())
}

// Query returns the last requested query.
func (c *Client) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Searching reports whether a dispatch is scheduled or in flight.
func (c *Client) Searching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searching
}

// Err returns the error of the most recent completed dispatch, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close cancels any scheduled dispatch and ignores late responses.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
}

func (c *Client) notify() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}
