package pages

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/pharmadesk/basket"
	"github.com/timzifer/pharmadesk/forms"
	"github.com/timzifer/pharmadesk/remote"
	"github.com/timzifer/pharmadesk/runtime/bridge"
	"github.com/timzifer/pharmadesk/runtime/lifecycle"
	"github.com/timzifer/pharmadesk/session"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	login             func(remote.LoginRequest) (remote.User, error)
	completeInfo      func(remote.RegisterDetails) (remote.Ack, error)
	registerStore     func(remote.RegisterStoreRequest) (remote.Store, error)
	stores            func() ([]remote.Store, error)
	suppliers         func(string) (remote.Page[remote.Supplier], error)
	supplier          func(int64) (remote.Supplier, error)
	supplierMedicines func(int64, remote.PageRequest) (remote.Page[remote.Medicine], error)
	medicine          func(int64) (remote.Medicine, error)
	createOrder       func(context.Context, remote.CreateOrderRequest) (remote.Ack, error)
	sentOrders        func(context.Context, remote.PageRequest) (remote.Page[remote.SentOrder], error)
	sentReturnOrders  func(remote.PageRequest) (remote.Page[remote.SentReturnOrder], error)
	receivedOrder     func(int64) (remote.ReceivedOrder, error)
	acceptOrder       func(context.Context, int64) (remote.Ack, error)
	rejectOrder       func(int64) (remote.Ack, error)
	deliverOrder      func(int64) (remote.Ack, error)
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) Login(_ context.Context, in remote.LoginRequest) (remote.User, error) {
	f.hit("login")
	if f.login == nil {
		return remote.User{}, nil
	}
	return f.login(in)
}

func (f *fakeBackend) CompleteInfo(_ context.Context, in remote.RegisterDetails) (remote.Ack, error) {
	f.hit("completeInfo")
	if f.completeInfo == nil {
		return remote.Ack{}, nil
	}
	return f.completeInfo(in)
}

func (f *fakeBackend) RegisterStore(_ context.Context, in remote.RegisterStoreRequest) (remote.Store, error) {
	f.hit("registerStore")
	if f.registerStore == nil {
		return remote.Store{}, nil
	}
	return f.registerStore(in)
}

func (f *fakeBackend) Stores(context.Context) ([]remote.Store, error) {
	f.hit("stores")
	if f.stores == nil {
		return nil, nil
	}
	return f.stores()
}

func (f *fakeBackend) Suppliers(_ context.Context, name string) (remote.Page[remote.Supplier], error) {
	f.hit("suppliers")
	if f.suppliers == nil {
		return remote.Page[remote.Supplier]{}, nil
	}
	return f.suppliers(name)
}

func (f *fakeBackend) Supplier(_ context.Context, id int64) (remote.Supplier, error) {
	f.hit("supplier")
	if f.supplier == nil {
		return remote.Supplier{ID: id}, nil
	}
	return f.supplier(id)
}

func (f *fakeBackend) SupplierMedicines(_ context.Context, id int64, page remote.PageRequest) (remote.Page[remote.Medicine], error) {
	f.hit("supplierMedicines")
	if f.supplierMedicines == nil {
		return remote.Page[remote.Medicine]{}, nil
	}
	return f.supplierMedicines(id, page)
}

func (f *fakeBackend) Medicine(_ context.Context, id int64) (remote.Medicine, error) {
	f.hit("medicine")
	if f.medicine == nil {
		return remote.Medicine{ID: id}, nil
	}
	return f.medicine(id)
}

func (f *fakeBackend) CreateOrder(ctx context.Context, in remote.CreateOrderRequest) (remote.Ack, error) {
	f.hit("createOrder")
	if f.createOrder == nil {
		return remote.Ack{}, nil
	}
	return f.createOrder(ctx, in)
}

func (f *fakeBackend) SentOrders(ctx context.Context, page remote.PageRequest) (remote.Page[remote.SentOrder], error) {
	f.hit("sentOrders")
	if f.sentOrders == nil {
		return remote.Page[remote.SentOrder]{}, nil
	}
	return f.sentOrders(ctx, page)
}

func (f *fakeBackend) SentReturnOrders(_ context.Context, page remote.PageRequest) (remote.Page[remote.SentReturnOrder], error) {
	f.hit("sentReturnOrders")
	if f.sentReturnOrders == nil {
		return remote.Page[remote.SentReturnOrder]{}, nil
	}
	return f.sentReturnOrders(page)
}

func (f *fakeBackend) ReceivedOrder(_ context.Context, id int64) (remote.ReceivedOrder, error) {
	f.hit("receivedOrder")
	if f.receivedOrder == nil {
		return remote.ReceivedOrder{ID: id}, nil
	}
	return f.receivedOrder(id)
}

func (f *fakeBackend) AcceptOrder(ctx context.Context, id int64) (remote.Ack, error) {
	f.hit("acceptOrder")
	if f.acceptOrder == nil {
		return remote.Ack{}, nil
	}
	return f.acceptOrder(ctx, id)
}

func (f *fakeBackend) RejectOrder(_ context.Context, id int64) (remote.Ack, error) {
	f.hit("rejectOrder")
	if f.rejectOrder == nil {
		return remote.Ack{}, nil
	}
	return f.rejectOrder(id)
}

func (f *fakeBackend) DeliverOrder(_ context.Context, id int64) (remote.Ack, error) {
	f.hit("deliverOrder")
	if f.deliverOrder == nil {
		return remote.Ack{}, nil
	}
	return f.deliverOrder(id)
}

type fakeRouter struct {
	paths []string
}

func (r *fakeRouter) Navigate(path string) { r.paths = append(r.paths, path) }

type fakeNotifier struct {
	successes []string
	errors    []string
}

func (n *fakeNotifier) Success(message string) { n.successes = append(n.successes, message) }
func (n *fakeNotifier) Error(message string)   { n.errors = append(n.errors, message) }

type fakeSessions struct {
	saved   []session.Session
	cleared int
	err     error
}

func (s *fakeSessions) Save(sess session.Session) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, sess)
	return nil
}

func (s *fakeSessions) Clear() error {
	if s.err != nil {
		return s.err
	}
	s.cleared++
	return nil
}

type harness struct {
	env      *Env
	backend  *fakeBackend
	router   *fakeRouter
	notes    *fakeNotifier
	sessions *fakeSessions
}

func newHarness(t *testing.T, backend *fakeBackend) *harness {
	t.Helper()
	store := lifecycle.NewStore()
	dispatcher, err := bridge.NewDispatcher(store, zerolog.Nop(), bridge.Options{Workers: 4})
	require.NoError(t, err)
	t.Cleanup(dispatcher.Close)

	validator, err := forms.New(nil)
	require.NoError(t, err)

	ops := NewOperations(backend)
	store.Register(ops.Names()...)

	h := &harness{
		backend:  backend,
		router:   &fakeRouter{},
		notes:    &fakeNotifier{},
		sessions: &fakeSessions{},
	}
	h.env = &Env{
		Dispatcher: dispatcher,
		Ops:        ops,
		Basket:     basket.New(),
		Forms:      validator,
		Session:    h.sessions,
		Router:     h.router,
		Notifier:   h.notes,
		Logger:     zerolog.Nop(),
		PageSize:   10,
	}
	return h
}

func (h *harness) await(t *testing.T, name string) lifecycle.Record {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rec, err := h.env.Dispatcher.Await(ctx, name)
	require.NoError(t, err)
	return rec
}

func (h *harness) settled(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return h.env.Dispatcher.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
}
