package lifecycle

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// ErrStoreClosed is returned by blocking helpers once the store was torn down.
var ErrStoreClosed = errors.New("lifecycle store closed")

// Key identifies an operation together with the payload type it resolves to.
type Key[T any] struct {
	name string
}

// NewKey declares an operation key.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the operation name.
func (k Key[T]) Name() string { return k.name }

// Record is a read-only snapshot of one operation.
type Record struct {
	Key        string
	Status     Status
	Data       any
	HasData    bool
	Error      string
	Generation uint64
	UpdatedAt  time.Time
}

// Data extracts a typed payload from a record.
func Data[T any](rec Record) (T, bool) {
	var zero T
	if !rec.HasData {
		return zero, false
	}
	value, ok := rec.Data.(T)
	if !ok {
		return zero, false
	}
	return value, true
}

// Ticket is handed out by Trigger. A resolution is applied only while the
// ticket's generation is the current generation of its operation.
type Ticket struct {
	Key        string
	Generation uint64
}

// Observer receives transition events, typically for telemetry.
type Observer interface {
	TransitionObserved(key, status string)
	StaleDropped(key string)
}

type noopObserver struct{}

func (noopObserver) TransitionObserved(string, string) {}
func (noopObserver) StaleDropped(string)               {}

// Option customises a Store.
type Option func(*Store)

// WithObserver attaches a transition observer.
func WithObserver(observer Observer) Option {
	return func(s *Store) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

type slot struct {
	mu      sync.Mutex
	record  Record
	changed chan struct{}
}

func newSlot(key string, now time.Time) *slot {
	return &slot{
		record:  Record{Key: key, Status: StatusIdle, UpdatedAt: now},
		changed: make(chan struct{}),
	}
}

// broadcastLocked wakes every Await call parked on the slot.
func (sl *slot) broadcastLocked() {
	close(sl.changed)
	sl.changed = make(chan struct{})
}

// Store owns the operation records. All mutation goes through Trigger,
// Resolve, Reject, Reset and Consume.
type Store struct {
	records  cmap.ConcurrentMap[string, *slot]
	observer Observer
	now      func() time.Time
	closed   atomic.Bool

	subsMu  sync.Mutex
	subs    map[uint64]*Subscription
	nextSub uint64
}

// NewStore constructs an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		records:  cmap.New[*slot](),
		observer: noopObserver{},
		now:      time.Now,
		subs:     make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register creates idle records for the provided operation names.
func (s *Store) Register(names ...string) {
	for _, name := range names {
		s.slot(name)
	}
}

func (s *Store) slot(name string) *slot {
	if sl, ok := s.records.Get(name); ok {
		return sl
	}
	s.records.SetIfAbsent(name, newSlot(name, s.now()))
	sl, _ := s.records.Get(name)
	return sl
}

// Trigger moves the operation to loading and returns the ticket its
// resolution must present. Prior data and error stay visible.
func (s *Store) Trigger(name string) Ticket {
	if s.closed.Load() {
		return Ticket{Key: name}
	}
	sl := s.slot(name)
	sl.mu.Lock()
	sl.record.Generation++
	sl.record.Status = StatusLoading
	sl.record.UpdatedAt = s.now()
	rec := sl.record
	s.emit(rec)
	sl.broadcastLocked()
	sl.mu.Unlock()
	return Ticket{Key: name, Generation: rec.Generation}
}

// Resolve applies a successful result. It returns false when the ticket is
// stale and the payload was dropped.
func (s *Store) Resolve(ticket Ticket, payload any) bool {
	return s.settle(ticket, func(rec *Record) {
		rec.Status = StatusSucceeded
		rec.Data = payload
		rec.HasData = true
		rec.Error = ""
	})
}

// Reject applies a failure. Data is left untouched.
func (s *Store) Reject(ticket Ticket, message string) bool {
	return s.settle(ticket, func(rec *Record) {
		rec.Status = StatusFailed
		rec.Error = message
	})
}

func (s *Store) settle(ticket Ticket, apply func(*Record)) bool {
	if s.closed.Load() {
		return false
	}
	sl, ok := s.records.Get(ticket.Key)
	if !ok {
		return false
	}
	sl.mu.Lock()
	if sl.record.Generation != ticket.Generation || sl.record.Status != StatusLoading {
		sl.mu.Unlock()
		s.observer.StaleDropped(ticket.Key)
		return false
	}
	apply(&sl.record)
	sl.record.UpdatedAt = s.now()
	rec := sl.record
	s.emit(rec)
	sl.broadcastLocked()
	sl.mu.Unlock()
	return true
}

// Reset returns the operation to idle and clears its error. When clearData is
// set the payload is dropped as well. Any in-flight call becomes stale.
func (s *Store) Reset(name string, clearData bool) {
	if s.closed.Load() {
		return
	}
	sl := s.slot(name)
	sl.mu.Lock()
	rec := &sl.record
	if rec.Status == StatusIdle && rec.Error == "" && (!clearData || !rec.HasData) {
		sl.mu.Unlock()
		return
	}
	if rec.Status == StatusLoading {
		rec.Generation++
	}
	rec.Status = StatusIdle
	rec.Error = ""
	if clearData {
		rec.Data = nil
		rec.HasData = false
	}
	rec.UpdatedAt = s.now()
	snapshot := *rec
	s.emit(snapshot)
	sl.broadcastLocked()
	sl.mu.Unlock()
}

// Consume hands out a terminal record exactly once: the returned snapshot
// carries the succeeded or failed state and the record is reset to idle with
// its data kept.
func (s *Store) Consume(name string) (Record, bool) {
	if s.closed.Load() {
		return Record{}, false
	}
	sl, ok := s.records.Get(name)
	if !ok {
		return Record{}, false
	}
	sl.mu.Lock()
	if !sl.record.Status.Terminal() {
		sl.mu.Unlock()
		return Record{}, false
	}
	consumed := sl.record
	sl.record.Status = StatusIdle
	sl.record.Error = ""
	sl.record.UpdatedAt = s.now()
	rec := sl.record
	s.emit(rec)
	sl.broadcastLocked()
	sl.mu.Unlock()
	return consumed, true
}

// Snapshot returns a copy of the named record. Unknown names report idle.
func (s *Store) Snapshot(name string) Record {
	sl, ok := s.records.Get(name)
	if !ok {
		return Record{Key: name, Status: StatusIdle}
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.record
}

// Snapshots returns copies of all records sorted by key.
func (s *Store) Snapshots() []Record {
	keys := s.records.Keys()
	sort.Strings(keys)
	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.Snapshot(key))
	}
	return out
}

// Await blocks until the named operation is no longer loading.
func (s *Store) Await(ctx context.Context, name string) (Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sl := s.slot(name)
	for {
		if s.closed.Load() {
			return s.Snapshot(name), ErrStoreClosed
		}
		sl.mu.Lock()
		rec := sl.record
		changed := sl.changed
		sl.mu.Unlock()
		if rec.Status != StatusLoading {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-changed:
		}
	}
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool { return s.closed.Load() }

// Close tears the store down. Later transitions are ignored and every
// subscription is closed.
func (s *Store) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.subsMu.Lock()
	for id, sub := range s.subs {
		delete(s.subs, id)
		close(sub.ch)
	}
	s.subsMu.Unlock()

	s.records.IterCb(func(_ string, sl *slot) {
		sl.mu.Lock()
		sl.broadcastLocked()
		sl.mu.Unlock()
	})
}

// emit is called with the slot lock held, so listeners see the changes of one
// key in the order they were applied. It never blocks on a listener.
func (s *Store) emit(rec Record) {
	s.observer.TransitionObserved(rec.Key, rec.Status.String())

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		select {
		case sub.ch <- rec:
		default:
			sub.dropped.Add(1)
		}
	}
}
