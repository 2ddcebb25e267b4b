package remote

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, in LoginRequest) (User, error) {
	var out envelope[User]
	err := c.call(ctx, request{op: "auth.login", method: http.MethodPost, path: "auth/login", body: in}, &out)
	return out.Data, err
}

// CompleteInfo submits the account details for review.
func (c *Client) CompleteInfo(ctx context.Context, in RegisterDetails) (Ack, error) {
	var out Ack
	err := c.call(ctx, request{op: "auth.complete-info", method: http.MethodPost, path: "auth/complete-info", body: in}, &out)
	return out, err
}

// RegisterStore registers a new inventory.
func (c *Client) RegisterStore(ctx context.Context, in RegisterStoreRequest) (Store, error) {
	var out envelope[Store]
	err := c.call(ctx, request{op: "auth.inventory-register", method: http.MethodPost, path: "auth/inventory-register", body: in}, &out)
	return out.Data, err
}

// Stores lists the inventories of the current warehouse.
func (c *Client) Stores(ctx context.Context) ([]Store, error) {
	var out envelope[[]Store]
	err := c.call(ctx, request{op: "warehouse.inventories", method: http.MethodGet, path: "warehouse/inventories"}, &out)
	return out.Data, err
}

// Suppliers lists suppliers, optionally filtered by name.
func (c *Client) Suppliers(ctx context.Context, name string) (Page[Supplier], error) {
	var query url.Values
	if name = strings.TrimSpace(name); name != "" {
		query = url.Values{"name": {name}}
	}
	var out Page[Supplier]
	err := c.call(ctx, request{op: "suppliers", method: http.MethodGet, path: "suppliers", query: query}, &out)
	return out, err
}

// Supplier fetches a single supplier.
func (c *Client) Supplier(ctx context.Context, id int64) (Supplier, error) {
	var out envelope[Supplier]
	err := c.call(ctx, request{op: "suppliers.details", method: http.MethodGet, path: idPath("suppliers/%s", id)}, &out)
	return out.Data, err
}

// SupplierMedicines lists one page of a supplier's catalogue.
func (c *Client) SupplierMedicines(ctx context.Context, id int64, page PageRequest) (Page[Medicine], error) {
	var out Page[Medicine]
	err := c.call(ctx, request{op: "suppliers.medicines", method: http.MethodGet, path: idPath("suppliers/%s/medicines", id), query: pageQuery(page)}, &out)
	return out, err
}

// Medicine fetches a single medicine.
func (c *Client) Medicine(ctx context.Context, id int64) (Medicine, error) {
	var out envelope[Medicine]
	err := c.call(ctx, request{op: "medicines.details", method: http.MethodGet, path: idPath("medicines/%s", id)}, &out)
	return out.Data, err
}

// CreateOrder submits an order. It is never retried.
func (c *Client) CreateOrder(ctx context.Context, in CreateOrderRequest) (Ack, error) {
	var out Ack
	err := c.call(ctx, request{op: "orders.create", method: http.MethodPost, path: "orders", body: in}, &out)
	return out, err
}

// SentOrders lists one page of outgoing orders.
func (c *Client) SentOrders(ctx context.Context, page PageRequest) (Page[SentOrder], error) {
	var out Page[SentOrder]
	err := c.call(ctx, request{op: "orders.sent", method: http.MethodGet, path: "orders/sent", query: pageQuery(page)}, &out)
	return out, err
}

// SentReturnOrders lists one page of outgoing return orders.
func (c *Client) SentReturnOrders(ctx context.Context, page PageRequest) (Page[SentReturnOrder], error) {
	var out Page[SentReturnOrder]
	err := c.call(ctx, request{op: "orders.sent.returns", method: http.MethodGet, path: "orders/sent/returns", query: pageQuery(page)}, &out)
	return out, err
}

// ReceivedOrder fetches an order placed with the current warehouse.
func (c *Client) ReceivedOrder(ctx context.Context, id int64) (ReceivedOrder, error) {
	var out envelope[ReceivedOrder]
	err := c.call(ctx, request{op: "orders.received", method: http.MethodGet, path: idPath("orders/received/%s", id)}, &out)
	return out.Data, err
}

// AcceptOrder accepts a pending received order.
func (c *Client) AcceptOrder(ctx context.Context, id int64) (Ack, error) {
	return c.transition(ctx, "accept", id)
}

// RejectOrder rejects a pending received order.
func (c *Client) RejectOrder(ctx context.Context, id int64) (Ack, error) {
	return c.transition(ctx, "reject", id)
}

// DeliverOrder marks an accepted received order as delivered.
func (c *Client) DeliverOrder(ctx context.Context, id int64) (Ack, error) {
	return c.transition(ctx, "deliver", id)
}

func (c *Client) transition(ctx context.Context, action string, id int64) (Ack, error) {
	var out Ack
	err := c.call(ctx, request{
		op:     "orders.received." + action,
		method: http.MethodPatch,
		path:   idPath("orders/received/%s/", id) + action,
	}, &out)
	return out, err
}
