// Package pages holds the page controllers. Each page declares the inputs its
// fetches depend on, triggers operations through the dispatcher when those
// inputs change, renders a view model from selectors and turns terminal
// operation states into navigation and notifications exactly once.
//
// Pages are driven from a single goroutine: callers invoke setters and
// actions, then Sync to run effects, then Render.
package pages

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/timzifer/pharmadesk/basket"
	"github.com/timzifer/pharmadesk/forms"
	"github.com/timzifer/pharmadesk/runtime/bridge"
	"github.com/timzifer/pharmadesk/runtime/lifecycle"
	"github.com/timzifer/pharmadesk/session"
)

var (
	// ErrBusy rejects an action while the same operation is still loading.
	ErrBusy = errors.New("operation already in progress")
	// ErrEmptyBasket rejects submitting an order without entries.
	ErrEmptyBasket = errors.New("basket is empty")
	// ErrActionUnavailable rejects order actions the current status does not offer.
	ErrActionUnavailable = errors.New("action not available for order status")
)

// User-facing notifications.
const (
	MsgLoggedIn        = "تم تسجيل الدخول بنجاح"
	MsgLoggedOut       = "تم تسجيل الخروج بنجاح"
	MsgDetailsSent     = "تم إرسال المعلومات إلى مشرف النظام بنجاح"
	MsgOrderSent       = "تم إرسال الطلب بنجاح"
	MsgOrderAccepted   = "تم قبول الطلب بنجاح"
	MsgOrderRejected   = "تم رفض الطلب بنجاح"
	MsgOrderDelivered  = "تم تسليم الطلب بنجاح"
	MsgStoreRegistered = "تم تسجيل المستودع بنجاح"
)

// Routes navigated to by pages.
const (
	RouteLogin               = "/login"
	RouteStores              = "/stores"
	RouteRegistrationPending = "/registration-pending"
	RouteSuppliers           = "/suppliers"
	RouteOutgoingOrders      = "/outgoing-orders"
	RouteReceivedOrders      = "/received-orders"
)

// SupplierRoute is the supplier catalogue page.
func SupplierRoute(id int64) string { return fmt.Sprintf("%s/%d", RouteSuppliers, id) }

// SendOrderRoute is the basket checkout page of a supplier.
func SendOrderRoute(id int64) string { return fmt.Sprintf("%s/%d/send-order", RouteSuppliers, id) }

// OutgoingOrderRoute is the details page of a sent order.
func OutgoingOrderRoute(id int64) string { return fmt.Sprintf("%s/%d", RouteOutgoingOrders, id) }

// ReceivedOrderRoute is the details page of a received order.
func ReceivedOrderRoute(id int64) string { return fmt.Sprintf("%s/%d", RouteReceivedOrders, id) }

// Router performs navigation.
type Router interface {
	Navigate(path string)
}

// Notifier shows transient messages.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// SessionStore persists the logged in user.
type SessionStore interface {
	Save(session.Session) error
	Clear() error
}

// Env is what every page is constructed with.
type Env struct {
	Dispatcher *bridge.Dispatcher
	Ops        *Operations
	Basket     *basket.Basket
	Forms      *forms.Validator
	Session    SessionStore
	Router     Router
	Notifier   Notifier
	Logger     zerolog.Logger

	PageSize         int
	MedicinePageSize int
}

func (e *Env) view() bridge.View { return e.Dispatcher.View() }

func (e *Env) pageSize() int {
	if e.PageSize <= 0 {
		return 10
	}
	return e.PageSize
}

func (e *Env) medicinePageSize() int {
	if e.MedicinePageSize <= 0 {
		return 12
	}
	return e.MedicinePageSize
}

func (e *Env) loading(name string) bool {
	return e.view().Snapshot(name).Status == lifecycle.StatusLoading
}

// settle hands a terminal state of key to the page once. Failures are shown
// as error notifications; onSuccess receives the payload.
func settle[T any](env *Env, key lifecycle.Key[T], onSuccess func(T)) bool {
	rec, ok := bridge.Consume(env.Dispatcher, key)
	if !ok {
		return false
	}
	if rec.Status == lifecycle.StatusFailed {
		env.Logger.Debug().Str("operation", rec.Key).Str("error", rec.Error).Msg("operation failure consumed")
		env.Notifier.Error(rec.Error)
		return true
	}
	data, _ := lifecycle.Data[T](rec)
	onSuccess(data)
	return true
}

// FormView is the render model of a submit button.
type FormView struct {
	Busy        bool
	SubmitLabel string
}
