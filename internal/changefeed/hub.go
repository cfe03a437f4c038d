// Package changefeed fans appointment row changes out to interested listeners.
//
// Listeners never receive row contents, only the fact that something matching
// their filter changed; they are expected to re-read from the store.
package changefeed

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
)

// Change describes a single row change. Email is empty when the publisher did
// not know which patient the row belongs to.
type Change struct {
	Table string    `json:"table"`
	Op    Op        `json:"op"`
	ID    string    `json:"id"`
	Email string    `json:"email,omitempty"`
	At    time.Time `json:"at"`
}

// Filter selects the changes a subscriber wants. An empty Email matches all.
type Filter struct {
	Email string
}

// Matches reports whether c passes the filter. Changes without an email are
// delivered to everyone.
func (f Filter) Matches(c Change) bool {
	if f.Email == "" || c.Email == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(f.Email), strings.TrimSpace(c.Email))
}

// Feed publishes changes and registers subscribers.
type Feed interface {
	Publish(ctx context.Context, c Change) error
	Subscribe(f Filter, fn func(Change)) (unsubscribe func())
}

type subscriber struct {
	filter Filter
	fn     func(Change)
}

// Hub is an in-process Feed. Callbacks run synchronously on the publishing
// goroutine and must not block.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]subscriber)}
}

// Publish delivers c to every matching subscriber.
func (h *Hub) Publish(_ context.Context, c Change) error {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}

	h.mu.RLock()
	targets := make([]func(Change), 0, len(h.subs))
	for _, s := range h.subs {
		if s.filter.Matches(c) {
			targets = append(targets, s.fn)
		}
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn(c)
	}
	return nil
}

// Subscribe registers fn. The returned function removes the subscription and
// is safe to call more than once.
func (h *Hub) Subscribe(f Filter, fn func(Change)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = subscriber{filter: f, fn: fn}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}
