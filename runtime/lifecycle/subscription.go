package lifecycle

import (
	"sync"
	"sync/atomic"
)

// Subscription delivers record changes to a mounted view. Updates that do not
// fit into the buffer are dropped; views re-read state through snapshots.
type Subscription struct {
	store   *Store
	id      uint64
	ch      chan Record
	once    sync.Once
	dropped atomic.Uint64
}

// Subscribe registers a new change listener with the given buffer size.
func (s *Store) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscription{store: s, ch: make(chan Record, buffer)}
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.closed.Load() {
		close(sub.ch)
		sub.once.Do(func() {})
		return sub
	}
	s.nextSub++
	sub.id = s.nextSub
	s.subs[sub.id] = sub
	return sub
}

// Updates returns the change stream. It is closed when the subscription or
// the store is closed.
func (sub *Subscription) Updates() <-chan Record {
	return sub.ch
}

// Dropped returns the number of updates discarded because the buffer was full.
func (sub *Subscription) Dropped() uint64 {
	return sub.dropped.Load()
}

// Close detaches the listener. Updates raised afterwards are ignored.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		s := sub.store
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if _, ok := s.subs[sub.id]; ok {
			delete(s.subs, sub.id)
			close(sub.ch)
		}
	})
}
