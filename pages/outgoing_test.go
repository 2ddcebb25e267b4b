package pages

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/pharmadesk/remote"
	"github.com/timzifer/pharmadesk/views"
)

func TestOutgoingOrdersLatestPageWins(t *testing.T) {
	slow := make(chan struct{})
	h := newHarness(t, &fakeBackend{
		sentOrders: func(ctx context.Context, page remote.PageRequest) (remote.Page[remote.SentOrder], error) {
			if page.Page == 1 {
				select {
				case <-slow:
				case <-ctx.Done():
				}
			}
			return remote.Page[remote.SentOrder]{
				Data:         []remote.SentOrder{{ID: int64(page.Page * 10), Status: remote.OrderPending}},
				TotalRecords: 25,
			}, nil
		},
	})
	page := NewOutgoingOrders(h.env)

	page.SetPage(1)
	page.Sync()
	page.SetPage(2)
	page.Sync()
	h.await(t, h.env.Ops.SentOrders.Name())

	close(slow)
	h.settled(t)
	require.Equal(t, 2, h.backend.count("sentOrders"))

	view := page.Render()
	require.Equal(t, views.StateRows, view.State)
	require.Len(t, view.Rows, 1)
	require.Equal(t, int64(20), view.Rows[0].ID)
	require.Equal(t, 2, view.PageIndex)
	require.Equal(t, 3, view.PageCount)

	page.Open(20)
	require.Equal(t, []string{"/outgoing-orders/20"}, h.router.paths)
}

func TestOutgoingReturnOrdersRows(t *testing.T) {
	h := newHarness(t, &fakeBackend{
		sentReturnOrders: func(page remote.PageRequest) (remote.Page[remote.SentReturnOrder], error) {
			require.Equal(t, remote.PageRequest{Page: 0, Limit: 10}, page)
			return remote.Page[remote.SentReturnOrder]{
				Data: []remote.SentReturnOrder{{
					ID:              9,
					ReturnOrderDate: remote.Timestamp{Time: time.Date(2023, time.August, 14, 0, 0, 0, 0, time.UTC)},
					SupplierName:    "North",
					Status:          remote.OrderAccepted,
					TotalPrice:      decimal.NewFromInt(1500),
				}},
				TotalRecords: 1,
			}, nil
		},
	})
	page := NewOutgoingReturnOrders(h.env)
	page.Sync()
	require.Equal(t, views.StateLoading, page.Render().State)
	h.await(t, h.env.Ops.SentReturnOrders.Name())

	view := page.Render()
	require.Equal(t, []OrderRow{{
		ID:       9,
		Label:    "#9",
		Date:     "آب 2023، 14",
		Supplier: "North",
		Status:   views.OrderBadge(remote.OrderAccepted),
		Total:    "1500 ل.س",
	}}, view.Rows)
	require.Equal(t, 1, view.PageCount)
}
