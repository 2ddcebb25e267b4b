package bridge

import "github.com/timzifer/pharmadesk/runtime/lifecycle"

// View is the read-only projection pages receive instead of the store.
type View interface {
	Snapshot(name string) lifecycle.Record
	Snapshots() []lifecycle.Record
}

type storeView struct {
	store *lifecycle.Store
}

func (v storeView) Snapshot(name string) lifecycle.Record { return v.store.Snapshot(name) }
func (v storeView) Snapshots() []lifecycle.Record         { return v.store.Snapshots() }

// NewView wraps a store into a View.
func NewView(store *lifecycle.Store) View {
	return storeView{store: store}
}

// SelectStatus reads the status of an operation.
func SelectStatus[T any](v View, key lifecycle.Key[T]) lifecycle.Status {
	return v.Snapshot(key.Name()).Status
}

// SelectData reads the last successful payload of an operation.
func SelectData[T any](v View, key lifecycle.Key[T]) (T, bool) {
	return lifecycle.Data[T](v.Snapshot(key.Name()))
}

// SelectError reads the last failure message of an operation. It is empty
// unless the status is failed.
func SelectError[T any](v View, key lifecycle.Key[T]) string {
	rec := v.Snapshot(key.Name())
	if rec.Status != lifecycle.StatusFailed {
		return ""
	}
	return rec.Error
}
