package store

import "sync"

// DefaultFeedCapacity is the number of events a feed retains.
const DefaultFeedCapacity = 100

// FeedID names an event category.
type FeedID string

// Feeds rendered by the dashboard.
const (
	FeedDex         FeedID = "dex"
	FeedLiquidation FeedID = "liquidation"
)

// Feed is a fixed-size ring of the most recent values, read newest-first.
// It is not safe for concurrent use; FeedStore adds the locking.
type Feed[T any] struct {
	items []T
	next  int // slot the next push writes
	size  int
}

// NewFeed creates a feed holding at most capacity values.
func NewFeed[T any](capacity int) *Feed[T] {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &Feed[T]{items: make([]T, capacity)}
}

// Push adds v as the newest value, overwriting the oldest when full.
func (f *Feed[T]) Push(v T) {
	f.items[f.next] = v
	f.next = (f.next + 1) % len(f.items)
	if f.size < len(f.items) {
		f.size++
	}
}

// Snapshot returns a copy of the contents, newest first.
func (f *Feed[T]) Snapshot() []T {
	out := make([]T, f.size)
	for i := 0; i < f.size; i++ {
		idx := (f.next - 1 - i + len(f.items)) % len(f.items)
		out[i] = f.items[idx]
	}
	return out
}

// Len returns the number of values held.
func (f *Feed[T]) Len() int { return f.size }

// Cap returns the maximum number of values held.
func (f *Feed[T]) Cap() int { return len(f.items) }

// FeedStore keeps one bounded feed per category.
type FeedStore struct {
	mu       sync.RWMutex
	capacity int
	feeds    map[FeedID]*Feed[Event]
}

// NewFeedStore creates a store whose feeds each hold capacity events.
func NewFeedStore(capacity int) *FeedStore {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &FeedStore{
		capacity: capacity,
		feeds: map[FeedID]*Feed[Event]{
			FeedDex:         NewFeed[Event](capacity),
			FeedLiquidation: NewFeed[Event](capacity),
		},
	}
}

// Push prepends event to the named feed, creating the feed on first use.
func (s *FeedStore) Push(id FeedID, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, ok := s.feeds[id]
	if !ok {
		feed = NewFeed[Event](s.capacity)
		s.feeds[id] = feed
	}
	feed.Push(event)
}

// Snapshot returns the named feed newest-first. Unknown feeds are empty.
func (s *FeedStore) Snapshot(id FeedID) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feed, ok := s.feeds[id]
	if !ok {
		return []Event{}
	}
	return feed.Snapshot()
}

// Len returns the number of events in the named feed.
func (s *FeedStore) Len(id FeedID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if feed, ok := s.feeds[id]; ok {
		return feed.Len()
	}
	return 0
}

// Capacity returns the per-feed capacity.
func (s *FeedStore) Capacity() int { return s.capacity }
