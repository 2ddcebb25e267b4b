package service

import (
	"sort"
	"sync"
	"time"

	"github.com/timzifer/pharmadesk/runtime/lifecycle"
)

const defaultRecentTransitions = 64

type operationActivity struct {
	Key         string     `json:"key"`
	Status      string     `json:"status"`
	Generation  uint64     `json:"generation"`
	Transitions uint64     `json:"transitions"`
	Failures    uint64     `json:"failures"`
	LastError   string     `json:"last_error,omitempty"`
	LastChange  *time.Time `json:"last_change,omitempty"`
}

type transitionEvent struct {
	Key        string    `json:"key"`
	Status     string    `json:"status"`
	Generation uint64    `json:"generation"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// activityTracker follows store transitions so the inspector can show how
// often each operation ran and what happened last.
type activityTracker struct {
	mu     sync.RWMutex
	ops    map[string]*operationActivity
	recent []transitionEvent
	limit  int

	sub  *lifecycle.Subscription
	done chan struct{}
}

func newActivityTracker(store *lifecycle.Store, limit int) *activityTracker {
	if limit <= 0 {
		limit = defaultRecentTransitions
	}
	t := &activityTracker{
		ops:   make(map[string]*operationActivity),
		limit: limit,
		sub:   store.Subscribe(limit),
		done:  make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *activityTracker) run() {
	defer close(t.done)
	for rec := range t.sub.Updates() {
		t.record(rec)
	}
}

func (t *activityTracker) record(rec lifecycle.Record) {
	if t == nil || rec.Key == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.ops[rec.Key]
	if !ok {
		entry = &operationActivity{Key: rec.Key}
		t.ops[rec.Key] = entry
	}
	entry.Transitions++
	entry.Status = rec.Status.String()
	entry.Generation = rec.Generation
	at := rec.UpdatedAt
	entry.LastChange = &at
	if rec.Status == lifecycle.StatusFailed {
		entry.Failures++
		entry.LastError = rec.Error
	}

	t.recent = append(t.recent, transitionEvent{
		Key:        rec.Key,
		Status:     rec.Status.String(),
		Generation: rec.Generation,
		Error:      rec.Error,
		At:         rec.UpdatedAt,
	})
	if over := len(t.recent) - t.limit; over > 0 {
		t.recent = append(t.recent[:0], t.recent[over:]...)
	}
}

// operations returns per-operation counters sorted by key.
func (t *activityTracker) operations() []operationActivity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]operationActivity, 0, len(t.ops))
	for _, entry := range t.ops {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// transitions returns the most recent transitions, newest first.
func (t *activityTracker) transitions() []transitionEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]transitionEvent, len(t.recent))
	for i, event := range t.recent {
		out[len(t.recent)-1-i] = event
	}
	return out
}

func (t *activityTracker) dropped() uint64 {
	return t.sub.Dropped()
}

func (t *activityTracker) close() {
	t.sub.Close()
	<-t.done
}
