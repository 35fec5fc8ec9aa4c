package feed

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultCapacity bounds the featured activity history when no explicit size is
// configured.
const DefaultCapacity = 50

// Kind distinguishes the two featured-slot bid activities.
type Kind string

const (
	KindBidPlaced    Kind = "BidPlaced"
	KindBidIncreased Kind = "BidIncreased"
)

// BidderProfile is optional display enrichment resolved from the marketplace
// database at publish time.
type BidderProfile struct {
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// CollectionMeta is optional display enrichment for the collection a featured
// bid belongs to.
type CollectionMeta struct {
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// Event is one entry of the global featured bid feed. At is epoch milliseconds,
// NewTotalWei a base-unit decimal string.
type Event struct {
	Kind           Kind            `json:"kind"`
	At             int64           `json:"at"`
	TxHash         string          `json:"txHash"`
	CycleID        string          `json:"cycleId"`
	Bidder         string          `json:"bidder"`
	NewTotalWei    string          `json:"newTotalWei"`
	Collection     string          `json:"collection"`
	BidderProfile  *BidderProfile  `json:"bidderProfile,omitempty"`
	CollectionMeta *CollectionMeta `json:"collectionMeta,omitempty"`
}

type listener struct {
	id int64
	fn func(Event)
}

// Feed is the bounded newest-first history of the featured bid feed plus its
// live listener set. One instance is constructed in main and shared by the
// watcher (producer) and the API server (consumer); entries are only reachable
// through Push and Snapshot.
type Feed struct {
	mu        sync.RWMutex
	capacity  int
	entries   []Event
	listeners []listener
	nextID    int64
}

// New creates a feed holding at most capacity entries. A non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		capacity: capacity,
		entries:  make([]Event, 0, capacity),
	}
}

// AddListener registers fn to be invoked on every Push, in registration order,
// and returns the function that deregisters it.
func (f *Feed) AddListener(fn func(Event)) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.listeners = append(f.listeners, listener{id: id, fn: fn})
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		for i, l := range f.listeners {
			if l.id == id {
				f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
				break
			}
		}
		f.mu.Unlock()
	}
}

// Push stores ev at the front of the history, evicting the oldest entry when
// the feed is full, then fans ev out to every listener. The stored entry is a
// copy of ev (nested pointers stay shared), so later mutation by the caller
// cannot rewrite history. The buffer is updated before listeners run, so a
// client that snapshots right after missing a live push still sees the event.
func (f *Feed) Push(ev Event) {
	f.mu.Lock()
	f.entries = append(f.entries, Event{})
	copy(f.entries[1:], f.entries)
	f.entries[0] = ev
	if len(f.entries) > f.capacity {
		f.entries = f.entries[:f.capacity]
	}
	active := make([]listener, len(f.listeners))
	copy(active, f.listeners)
	f.mu.Unlock()

	for _, l := range active {
		invoke(l, ev)
	}
}

// invoke isolates a panicking listener so the remaining listeners still run.
func invoke(l listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("tx_hash", ev.TxHash).
				Msg("featured feed listener panicked")
		}
	}()
	l.fn(ev)
}

// Snapshot returns up to limit entries, newest first. The limit is clamped to
// the current size; negative limits return an empty slice. The returned slice
// is a copy and safe to hold across concurrent pushes.
func (f *Feed) Snapshot(limit int) []Event {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if limit < 0 {
		limit = 0
	}
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([]Event, limit)
	copy(out, f.entries[:limit])
	return out
}

// Len returns the number of entries currently held.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}
