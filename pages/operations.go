package pages

import (
	"context"

	"github.com/timzifer/pharmadesk/remote"
	"github.com/timzifer/pharmadesk/runtime/bridge"
)

// Backend is the subset of the REST client the pages use.
type Backend interface {
	Login(ctx context.Context, in remote.LoginRequest) (remote.User, error)
	CompleteInfo(ctx context.Context, in remote.RegisterDetails) (remote.Ack, error)
	RegisterStore(ctx context.Context, in remote.RegisterStoreRequest) (remote.Store, error)
	Stores(ctx context.Context) ([]remote.Store, error)
	Suppliers(ctx context.Context, name string) (remote.Page[remote.Supplier], error)
	Supplier(ctx context.Context, id int64) (remote.Supplier, error)
	SupplierMedicines(ctx context.Context, id int64, page remote.PageRequest) (remote.Page[remote.Medicine], error)
	Medicine(ctx context.Context, id int64) (remote.Medicine, error)
	CreateOrder(ctx context.Context, in remote.CreateOrderRequest) (remote.Ack, error)
	SentOrders(ctx context.Context, page remote.PageRequest) (remote.Page[remote.SentOrder], error)
	SentReturnOrders(ctx context.Context, page remote.PageRequest) (remote.Page[remote.SentReturnOrder], error)
	ReceivedOrder(ctx context.Context, id int64) (remote.ReceivedOrder, error)
	AcceptOrder(ctx context.Context, id int64) (remote.Ack, error)
	RejectOrder(ctx context.Context, id int64) (remote.Ack, error)
	DeliverOrder(ctx context.Context, id int64) (remote.Ack, error)
}

// MedicinesQuery selects a page of a supplier's catalogue.
type MedicinesQuery struct {
	SupplierID int64
	Page       remote.PageRequest
}

// Catalogue is a page of medicines tagged with the supplier it was fetched for.
type Catalogue struct {
	SupplierID int64
	remote.Page[remote.Medicine]
}

// Operations declares every named operation of the application.
type Operations struct {
	Login             bridge.Operation[remote.LoginRequest, remote.User]
	CompleteInfo      bridge.Operation[remote.RegisterDetails, remote.Ack]
	RegisterStore     bridge.Operation[remote.RegisterStoreRequest, remote.Store]
	Stores            bridge.Operation[struct{}, []remote.Store]
	Suppliers         bridge.Operation[string, remote.Page[remote.Supplier]]
	SupplierDetails   bridge.Operation[int64, remote.Supplier]
	SupplierMedicines bridge.Operation[MedicinesQuery, Catalogue]
	Medicine          bridge.Operation[int64, remote.Medicine]
	CreateOrder       bridge.Operation[remote.CreateOrderRequest, remote.Ack]
	SentOrders        bridge.Operation[remote.PageRequest, remote.Page[remote.SentOrder]]
	SentReturnOrders  bridge.Operation[remote.PageRequest, remote.Page[remote.SentReturnOrder]]
	ReceivedOrder     bridge.Operation[int64, remote.ReceivedOrder]
	AcceptOrder       bridge.Operation[int64, remote.Ack]
	RejectOrder       bridge.Operation[int64, remote.Ack]
	DeliverOrder      bridge.Operation[int64, remote.Ack]
}

// NewOperations binds the operations to backend.
func NewOperations(backend Backend) *Operations {
	return &Operations{
		Login:         bridge.NewOperation("auth.login", backend.Login),
		CompleteInfo:  bridge.NewOperation("auth.complete-info", backend.CompleteInfo),
		RegisterStore: bridge.NewOperation("auth.inventory-register", backend.RegisterStore),
		Stores: bridge.NewOperation("warehouse.inventories", func(ctx context.Context, _ struct{}) ([]remote.Store, error) {
			return backend.Stores(ctx)
		}),
		Suppliers:       bridge.NewOperation("suppliers", backend.Suppliers),
		SupplierDetails: bridge.NewOperation("suppliers.details", backend.Supplier),
		SupplierMedicines: bridge.NewOperation("suppliers.medicines", func(ctx context.Context, q MedicinesQuery) (Catalogue, error) {
			page, err := backend.SupplierMedicines(ctx, q.SupplierID, q.Page)
			if err != nil {
				return Catalogue{}, err
			}
			return Catalogue{SupplierID: q.SupplierID, Page: page}, nil
		}),
		Medicine:         bridge.NewOperation("medicines.details", backend.Medicine),
		CreateOrder:      bridge.NewOperation("orders.create", backend.CreateOrder),
		SentOrders:       bridge.NewOperation("orders.sent", backend.SentOrders),
		SentReturnOrders: bridge.NewOperation("orders.sent.returns", backend.SentReturnOrders),
		ReceivedOrder:    bridge.NewOperation("orders.received", backend.ReceivedOrder),
		AcceptOrder:      bridge.NewOperation("orders.received.accept", backend.AcceptOrder),
		RejectOrder:      bridge.NewOperation("orders.received.reject", backend.RejectOrder),
		DeliverOrder:     bridge.NewOperation("orders.received.deliver", backend.DeliverOrder),
	}
}

// Names lists every operation name, for registering records up front.
func (o *Operations) Names() []string {
	return []string{
		o.Login.Name(),
		o.CompleteInfo.Name(),
		o.RegisterStore.Name(),
		o.Stores.Name(),
		o.Suppliers.Name(),
		o.SupplierDetails.Name(),
		o.SupplierMedicines.Name(),
		o.Medicine.Name(),
		o.CreateOrder.Name(),
		o.SentOrders.Name(),
		o.SentReturnOrders.Name(),
		o.ReceivedOrder.Name(),
		o.AcceptOrder.Name(),
		o.RejectOrder.Name(),
		o.DeliverOrder.Name(),
	}
}
