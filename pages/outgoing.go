package pages

import (
	"strconv"

	"github.com/timzifer/pharmadesk/remote"
	"github.com/timzifer/pharmadesk/runtime/bridge"
	"github.com/timzifer/pharmadesk/views"
)

// OrderRow is a row of the outgoing order tables.
type OrderRow struct {
	ID       int64
	Label    string
	Date     string
	Supplier string
	Status   views.Badge
	Total    string
}

func sentOrderRow(o remote.SentOrder) OrderRow {
	return OrderRow{
		ID:       o.ID,
		Label:    "#" + strconv.FormatInt(o.ID, 10),
		Date:     views.FormatDate(o.OrderDate.Time),
		Supplier: o.SupplierName,
		Status:   views.OrderBadge(o.Status),
		Total:    views.FormatPrice(o.TotalPrice),
	}
}

func sentReturnOrderRow(o remote.SentReturnOrder) OrderRow {
	return OrderRow{
		ID:       o.ID,
		Label:    "#" + strconv.FormatInt(o.ID, 10),
		Date:     views.FormatDate(o.ReturnOrderDate.Time),
		Supplier: o.SupplierName,
		Status:   views.OrderBadge(o.Status),
		Total:    views.FormatPrice(o.TotalPrice),
	}
}

// pager holds the page selection of a paginated table.
type pager struct {
	index int
	fetch bridge.Effect
}

func (p *pager) set(index int) {
	if index < 0 {
		index = 0
	}
	p.index = index
}

// OutgoingOrders lists the orders sent by the current user.
type OutgoingOrders struct {
	env   *Env
	pager pager
}

// NewOutgoingOrders creates the sent orders page.
func NewOutgoingOrders(env *Env) *OutgoingOrders {
	return &OutgoingOrders{env: env}
}

// SetPage selects a zero based page.
func (p *OutgoingOrders) SetPage(index int) { p.pager.set(index) }

// Sync fetches the selected page when it changed. Only the latest page
// request can reach the rendered rows.
func (p *OutgoingOrders) Sync() {
	req := remote.PageRequest{Page: p.pager.index, Limit: p.env.pageSize()}
	p.pager.fetch.Run(func() {
		bridge.Dispatch(p.env.Dispatcher, p.env.Ops.SentOrders, req)
	}, req)
}

// Render builds the table.
func (p *OutgoingOrders) Render() views.ListView[OrderRow] {
	view := p.env.view()
	key := p.env.Ops.SentOrders.Key
	page, ok := bridge.SelectData(view, key)
	return views.RenderList(bridge.SelectStatus(view, key), listPage(page, ok), p.pager.index, p.env.pageSize(), sentOrderRow)
}

// Open navigates to an order.
func (p *OutgoingOrders) Open(id int64) {
	p.env.Router.Navigate(OutgoingOrderRoute(id))
}

// OutgoingReturnOrders lists the return orders sent by the current user.
type OutgoingReturnOrders struct {
	env   *Env
	pager pager
}

// NewOutgoingReturnOrders creates the sent return orders page.
func NewOutgoingReturnOrders(env *Env) *OutgoingReturnOrders {
	return &OutgoingReturnOrders{env: env}
}

// SetPage selects a zero based page.
func (p *OutgoingReturnOrders) SetPage(index int) { p.pager.set(index) }

// Sync fetches the selected page when it changed.
func (p *OutgoingReturnOrders) Sync() {
	req := remote.PageRequest{Page: p.pager.index, Limit: p.env.pageSize()}
	p.pager.fetch.Run(func() {
		bridge.Dispatch(p.env.Dispatcher, p.env.Ops.SentReturnOrders, req)
	}, req)
}

// Render builds the table.
func (p *OutgoingReturnOrders) Render() views.ListView[OrderRow] {
	view := p.env.view()
	key := p.env.Ops.SentReturnOrders.Key
	page, ok := bridge.SelectData(view, key)
	return views.RenderList(bridge.SelectStatus(view, key), listPage(page, ok), p.pager.index, p.env.pageSize(), sentReturnOrderRow)
}
