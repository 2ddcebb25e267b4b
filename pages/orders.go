package pages

import (
	"fmt"
	"strconv"

	"github.com/timzifer/pharmadesk/remote"
	"github.com/timzifer/pharmadesk/runtime/bridge"
	"github.com/timzifer/pharmadesk/runtime/lifecycle"
	"github.com/timzifer/pharmadesk/views"
)

// BasketItem is a line of the checkout page.
type BasketItem struct {
	ID       int64
	Name     string
	Price    string
	ImageURL string
	Quantity int
	Subtotal string
}

// SendOrderView is the checkout render model.
type SendOrderView struct {
	SupplierName     string
	SupplierLocation string
	SupplierState    views.State
	Items            []BasketItem
	Total            views.Badge
	Submit           FormView
}

// SendOrder submits the basket to a supplier.
type SendOrder struct {
	env        *Env
	supplierID int64
	fetch      bridge.Effect
}

// NewSendOrder creates the checkout page for supplierID.
func NewSendOrder(env *Env, supplierID int64) *SendOrder {
	return &SendOrder{env: env, supplierID: supplierID}
}

// SetQuantity changes the quantity of a basket entry.
func (p *SendOrder) SetQuantity(medicineID int64, quantity int) error {
	return p.env.Basket.SetQuantity(medicineID, quantity)
}

// Remove drops a basket entry.
func (p *SendOrder) Remove(medicineID int64) error {
	return p.env.Basket.Remove(medicineID)
}

// Submit dispatches the order. A second submit while the first is loading is
// rejected with ErrBusy.
func (p *SendOrder) Submit() error {
	if p.env.Basket.Len() == 0 {
		return ErrEmptyBasket
	}
	if p.env.loading(p.env.Ops.CreateOrder.Name()) {
		return fmt.Errorf("create order: %w", ErrBusy)
	}
	order := p.env.Basket.OrderRequest(p.supplierID)
	req := remote.CreateOrderRequest{
		SupplierID:    order.SupplierID,
		MedicineOrder: make([]remote.OrderLine, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		req.MedicineOrder = append(req.MedicineOrder, remote.OrderLine{MedicineID: line.MedicineID, Quantity: line.Quantity})
	}
	bridge.Dispatch(p.env.Dispatcher, p.env.Ops.CreateOrder, req)
	return nil
}

// Cancel empties the basket and returns to the catalogue.
func (p *SendOrder) Cancel() {
	p.env.Basket.Clear()
	p.env.Router.Navigate(SupplierRoute(p.supplierID))
}

// Sync loads the supplier and completes a submitted order once.
func (p *SendOrder) Sync() {
	id := p.supplierID
	p.fetch.Run(func() {
		bridge.Dispatch(p.env.Dispatcher, p.env.Ops.SupplierDetails, id)
	}, id)

	settle(p.env, p.env.Ops.CreateOrder.Key, func(remote.Ack) {
		p.env.Basket.Clear()
		p.env.Router.Navigate(SupplierRoute(p.supplierID))
		p.env.Notifier.Success(MsgOrderSent)
	})
}

// Render builds the checkout view.
func (p *SendOrder) Render() SendOrderView {
	view := p.env.view()
	out := SendOrderView{
		Total:  views.TotalBadge(p.env.Basket.Total()),
		Submit: FormView{Busy: p.env.loading(p.env.Ops.CreateOrder.Name()), SubmitLabel: "إرسال الطلب"},
	}

	key := p.env.Ops.SupplierDetails.Key
	supplier, ok := bridge.SelectData(view, key)
	switch status := bridge.SelectStatus(view, key); {
	case status == lifecycle.StatusLoading:
		out.SupplierState = views.StateLoading
	case status == lifecycle.StatusFailed:
		out.SupplierState = views.StateError
		out.SupplierName = views.GenericErrorMessage
	case ok && supplier.ID == p.supplierID:
		out.SupplierState = views.StateRows
		out.SupplierName = supplier.Name
		out.SupplierLocation = supplier.Location
	default:
		out.SupplierState = views.StateEmpty
	}

	for _, entry := range p.env.Basket.Entries() {
		out.Items = append(out.Items, BasketItem{
			ID:       entry.Medicine.ID,
			Name:     entry.Medicine.Name,
			Price:    views.FormatPrice(entry.Medicine.Price),
			ImageURL: views.ImageOrPlaceholder(entry.Medicine.ImageURL),
			Quantity: entry.Quantity,
			Subtotal: views.FormatPrice(entry.Subtotal()),
		})
	}
	return out
}

// Order actions.
const (
	ActionAccept  = "accept"
	ActionReject  = "reject"
	ActionDeliver = "deliver"
)

// Action is a button of the order details page.
type Action struct {
	Name  string
	Label string
	Busy  bool
}

// OrderLineRow is a medicine line of a received order.
type OrderLineRow struct {
	Name     string
	ImageURL string
	Price    string
	Quantity string
}

// OrderDetailsView is the received order render model.
type OrderDetailsView struct {
	Title       string
	Status      string
	Badge       views.Badge
	Actions     []Action
	Pharmacy    *remote.Pharmacy
	Lines       views.ListView[OrderLineRow]
	Cost        string
	ShowInvoice bool
}

// OrderDetails drives the accept/reject/deliver workflow of one received
// order. The displayed status is kept locally and advanced by successful
// actions without refetching the order.
type OrderDetails struct {
	env     *Env
	orderID int64
	fetch   bridge.Effect

	status string
	seen   uint64
}

// NewOrderDetails creates the page and clears outcomes of actions taken on a
// previously shown order.
func NewOrderDetails(env *Env, orderID int64) *OrderDetails {
	for _, name := range []string{env.Ops.AcceptOrder.Name(), env.Ops.RejectOrder.Name(), env.Ops.DeliverOrder.Name()} {
		env.Dispatcher.Reset(name, false)
	}
	return &OrderDetails{env: env, orderID: orderID}
}

// Status returns the locally tracked order status.
func (p *OrderDetails) Status() string { return p.status }

// Sync fetches the order when the id changed, adopts the status of a fresh
// fetch and applies finished actions once.
func (p *OrderDetails) Sync() {
	id := p.orderID
	p.fetch.Run(func() {
		bridge.Dispatch(p.env.Dispatcher, p.env.Ops.ReceivedOrder, id)
	}, id)

	rec := p.env.view().Snapshot(p.env.Ops.ReceivedOrder.Name())
	if rec.Status == lifecycle.StatusSucceeded && rec.Generation != p.seen {
		if order, ok := lifecycle.Data[remote.ReceivedOrder](rec); ok {
			p.seen = rec.Generation
			p.status = order.Status
		}
	}

	settle(p.env, p.env.Ops.AcceptOrder.Key, func(remote.Ack) {
		p.status = remote.OrderAccepted
		p.env.Notifier.Success(MsgOrderAccepted)
	})
	settle(p.env, p.env.Ops.RejectOrder.Key, func(remote.Ack) {
		p.status = remote.OrderRejected
		p.env.Notifier.Success(MsgOrderRejected)
	})
	settle(p.env, p.env.Ops.DeliverOrder.Key, func(remote.Ack) {
		p.status = remote.OrderDelivered
		p.env.Notifier.Success(MsgOrderDelivered)
	})
}

// Accept accepts a pending order.
func (p *OrderDetails) Accept() error {
	return p.act(ActionAccept, remote.OrderPending, p.env.Ops.AcceptOrder)
}

// Reject rejects a pending order.
func (p *OrderDetails) Reject() error {
	return p.act(ActionReject, remote.OrderPending, p.env.Ops.RejectOrder)
}

// Deliver marks an accepted order delivered.
func (p *OrderDetails) Deliver() error {
	return p.act(ActionDeliver, remote.OrderAccepted, p.env.Ops.DeliverOrder)
}

func (p *OrderDetails) act(action, required string, op bridge.Operation[int64, remote.Ack]) error {
	if p.status != required {
		return fmt.Errorf("%s order %d in status %q: %w", action, p.orderID, p.status, ErrActionUnavailable)
	}
	if p.busy() {
		return fmt.Errorf("%s order %d: %w", action, p.orderID, ErrBusy)
	}
	bridge.Dispatch(p.env.Dispatcher, op, p.orderID)
	return nil
}

func (p *OrderDetails) busy() bool {
	ops := p.env.Ops
	return p.env.loading(ops.AcceptOrder.Name()) || p.env.loading(ops.RejectOrder.Name()) || p.env.loading(ops.DeliverOrder.Name())
}

// Render builds the order details view.
func (p *OrderDetails) Render() OrderDetailsView {
	ops := p.env.Ops
	view := p.env.view()
	out := OrderDetailsView{
		Title:  "#" + strconv.FormatInt(p.orderID, 10),
		Status: p.status,
	}
	if p.status != "" {
		out.Badge = views.OrderBadge(p.status)
	}
	switch p.status {
	case remote.OrderPending:
		out.Actions = []Action{
			{Name: ActionAccept, Label: "قبول الطلب", Busy: p.env.loading(ops.AcceptOrder.Name())},
			{Name: ActionReject, Label: "رفض الطلب", Busy: p.env.loading(ops.RejectOrder.Name())},
		}
	case remote.OrderAccepted:
		out.Actions = []Action{{Name: ActionDeliver, Label: "تم التسليم", Busy: p.env.loading(ops.DeliverOrder.Name())}}
		out.ShowInvoice = true
	}

	key := ops.ReceivedOrder.Key
	order, ok := bridge.SelectData(view, key)
	if ok && order.ID != 0 && order.ID != p.orderID {
		order, ok = remote.ReceivedOrder{}, false
	}
	page := views.Page[remote.OrderedMedicine]{Items: order.Medicines, TotalRecords: len(order.Medicines), Present: ok}
	out.Lines = views.RenderList(bridge.SelectStatus(view, key), page, 0, 0, func(m remote.OrderedMedicine) OrderLineRow {
		return OrderLineRow{
			Name:     m.Name,
			ImageURL: views.ImageOrPlaceholder(m.ImageURL),
			Price:    views.FormatPrice(m.Price),
			Quantity: "x" + strconv.Itoa(m.Quantity),
		}
	})
	if ok {
		pharmacy := order.Pharmacy
		out.Pharmacy = &pharmacy
		out.Cost = views.FormatPrice(order.Cost())
	}
	return out
}
