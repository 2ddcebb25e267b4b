package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/timzifer/pharmadesk/runtime/lifecycle"
)

const defaultWorkers = 8

// ErrDispatcherClosed is reported for operations dispatched after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Operation binds an operation key to the remote call that produces its payload.
type Operation[In, Out any] struct {
	Key  lifecycle.Key[Out]
	Call func(ctx context.Context, in In) (Out, error)
}

// NewOperation declares an operation.
func NewOperation[In, Out any](name string, call func(ctx context.Context, in In) (Out, error)) Operation[In, Out] {
	return Operation[In, Out]{Key: lifecycle.NewKey[Out](name), Call: call}
}

// Name returns the operation name.
func (op Operation[In, Out]) Name() string { return op.Key.Name() }

// Gauge receives the number of dispatched calls that have not settled yet.
type Gauge interface {
	SetInFlight(count int)
}

// Options configure a Dispatcher.
type Options struct {
	Workers     int
	CallTimeout time.Duration
	InFlight    Gauge
}

// Dispatcher runs operation calls off the caller's goroutine and funnels
// their outcome into the lifecycle store.
type Dispatcher struct {
	store   *lifecycle.Store
	pool    *ants.Pool
	logger  zerolog.Logger
	timeout time.Duration
	gauge   Gauge
	pending atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher backed by a bounded goroutine pool.
func NewDispatcher(store *lifecycle.Store, logger zerolog.Logger, opts Options) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("lifecycle store is required")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create dispatch pool: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		store:   store,
		pool:    pool,
		logger:  logger,
		timeout: opts.CallTimeout,
		gauge:   opts.InFlight,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// View returns the read-only projection of the store.
func (d *Dispatcher) View() View {
	return storeView{store: d.store}
}

// Running returns the number of calls currently executing.
func (d *Dispatcher) Running() int {
	return d.pool.Running()
}

// Capacity returns the configured worker count.
func (d *Dispatcher) Capacity() int {
	return d.pool.Cap()
}

// Dispatch triggers op and runs its call asynchronously. The outcome is only
// observable through selectors.
func Dispatch[In, Out any](d *Dispatcher, op Operation[In, Out], in In) {
	name := op.Name()
	ticket := d.store.Trigger(name)
	if d.store.Closed() {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.store.Reject(ticket, fmt.Sprintf("dispatch %s: %v", name, ErrDispatcherClosed))
		return
	}
	d.wg.Add(1)
	d.track(1)
	task := func() {
		defer d.wg.Done()
		defer d.track(-1)
		d.run(ticket, func(ctx context.Context) (any, error) {
			return op.Call(ctx, in)
		})
	}
	// Submission blocks while every worker is busy; keep that off the caller.
	go func() {
		if err := d.pool.Submit(task); err != nil {
			d.wg.Done()
			d.track(-1)
			d.logger.Error().Err(err).Str("operation", name).Msg("submit operation")
			d.store.Reject(ticket, fmt.Sprintf("dispatch %s: %v", name, err))
		}
	}()
}

func (d *Dispatcher) track(delta int64) {
	n := d.pending.Add(delta)
	if d.gauge != nil {
		d.gauge.SetInFlight(int(n))
	}
}

// Pending returns the number of dispatched calls that have not settled yet.
func (d *Dispatcher) Pending() int {
	return int(d.pending.Load())
}

func (d *Dispatcher) run(ticket lifecycle.Ticket, call func(context.Context) (any, error)) {
	ctx := d.ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := safeCall(ctx, call)
	logger := d.logger.With().Str("operation", ticket.Key).Uint64("generation", ticket.Generation).Dur("duration", time.Since(start)).Logger()
	if err != nil {
		if !d.store.Reject(ticket, err.Error()) {
			logger.Debug().Err(err).Msg("stale failure dropped")
			return
		}
		logger.Warn().Err(err).Msg("operation failed")
		return
	}
	if !d.store.Resolve(ticket, out) {
		logger.Debug().Msg("stale response dropped")
		return
	}
	logger.Debug().Msg("operation succeeded")
}

func safeCall(ctx context.Context, call func(context.Context) (any, error)) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return call(ctx)
}

// Reset returns the keyed operation to idle.
func (d *Dispatcher) Reset(name string, clearData bool) {
	d.store.Reset(name, clearData)
}

// Consume returns a terminal record once and resets the operation, so a
// notification tied to it fires a single time.
func Consume[T any](d *Dispatcher, key lifecycle.Key[T]) (lifecycle.Record, bool) {
	return d.store.Consume(key.Name())
}

// Await blocks until the named operation leaves the loading state.
func (d *Dispatcher) Await(ctx context.Context, name string) (lifecycle.Record, error) {
	return d.store.Await(ctx, name)
}

// Close cancels in-flight calls, waits for them to drain and releases the pool.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
	d.pool.Release()
}
