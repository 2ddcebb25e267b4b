package bridge

import (
	"reflect"
	"sync"
)

// Effect re-runs a trigger only when its dependency list changes.
type Effect struct {
	mu     sync.Mutex
	deps   []any
	primed bool
}

// Run invokes fn when deps differ from the previous call (or on the first
// call) and reports whether it did.
func (e *Effect) Run(fn func(), deps ...any) bool {
	e.mu.Lock()
	if e.primed && reflect.DeepEqual(e.deps, deps) {
		e.mu.Unlock()
		return false
	}
	e.deps = append(e.deps[:0:0], deps...)
	e.primed = true
	e.mu.Unlock()

	fn()
	return true
}

// Invalidate forces the next Run to fire.
func (e *Effect) Invalidate() {
	e.mu.Lock()
	e.primed = false
	e.mu.Unlock()
}
