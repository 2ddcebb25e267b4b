package pages

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/pharmadesk/remote"
	"github.com/timzifer/pharmadesk/runtime/bridge"
	"github.com/timzifer/pharmadesk/runtime/lifecycle"
	"github.com/timzifer/pharmadesk/views"
)

func TestSuppliersEmptyResultRendersEmptyState(t *testing.T) {
	var mu sync.Mutex
	var filters []string
	h := newHarness(t, &fakeBackend{
		suppliers: func(name string) (remote.Page[remote.Supplier], error) {
			mu.Lock()
			filters = append(filters, name)
			mu.Unlock()
			return remote.Page[remote.Supplier]{Data: []remote.Supplier{}, TotalRecords: 0}, nil
		},
	})
	page := NewSuppliers(h.env)
	require.Equal(t, views.StateEmpty, page.Render().State)

	page.Sync()
	require.Equal(t, views.StateLoading, page.Render().State)
	h.await(t, h.env.Ops.Suppliers.Name())

	view := page.Render()
	require.Equal(t, views.StateEmpty, view.State)
	require.Empty(t, view.Message)

	page.Sync()
	require.Equal(t, 1, h.backend.count("suppliers"))

	page.SetFilter("  north ")
	page.Sync()
	h.await(t, h.env.Ops.Suppliers.Name())
	require.Equal(t, 2, h.backend.count("suppliers"))
	mu.Lock()
	require.Equal(t, []string{"", "north"}, filters)
	mu.Unlock()
}

func TestSuppliersRendersCards(t *testing.T) {
	h := newHarness(t, &fakeBackend{
		suppliers: func(string) (remote.Page[remote.Supplier], error) {
			return remote.Page[remote.Supplier]{Data: []remote.Supplier{{ID: 3, Name: "North", Location: "Hama"}}, TotalRecords: 1}, nil
		},
	})
	page := NewSuppliers(h.env)
	page.Sync()
	h.await(t, h.env.Ops.Suppliers.Name())

	view := page.Render()
	require.Equal(t, views.StateRows, view.State)
	require.Equal(t, []SupplierCard{{ID: 3, Name: "North", Location: "Hama", Route: "/suppliers/3"}}, view.Rows)
}

func TestSuppliersFailureRendersInlineError(t *testing.T) {
	h := newHarness(t, &fakeBackend{
		suppliers: func(string) (remote.Page[remote.Supplier], error) {
			return remote.Page[remote.Supplier]{}, errors.New("boom")
		},
	})
	page := NewSuppliers(h.env)
	page.Sync()
	rec := h.await(t, h.env.Ops.Suppliers.Name())
	require.Equal(t, lifecycle.StatusFailed, rec.Status)

	view := page.Render()
	require.Equal(t, views.StateError, view.State)
	require.Equal(t, views.GenericErrorMessage, view.Message)
	require.Empty(t, h.notes.errors)
}

func catalogue() remote.Page[remote.Medicine] {
	return remote.Page[remote.Medicine]{
		Data: []remote.Medicine{
			{ID: 1, Name: "Albuterol", Category: "A", Price: decimal.NewFromInt(100)},
			{ID: 2, Name: "Ibuprofen", Category: "B", Price: decimal.NewFromInt(40), ImageURL: "ibu.png"},
		},
		TotalRecords: 30,
	}
}

func TestSupplierDetailsAddToBasket(t *testing.T) {
	h := newHarness(t, &fakeBackend{
		supplierMedicines: func(int64, remote.PageRequest) (remote.Page[remote.Medicine], error) {
			return catalogue(), nil
		},
		medicine: func(id int64) (remote.Medicine, error) {
			return remote.Medicine{ID: id, Name: "Looked up", Price: decimal.NewFromInt(5)}, nil
		},
	})
	page := NewSupplierDetails(h.env, 7)
	page.Sync()
	h.await(t, h.env.Ops.SupplierMedicines.Name())

	added, err := page.AddToBasket(1)
	require.NoError(t, err)
	require.True(t, added)
	added, err = page.AddToBasket(1)
	require.NoError(t, err)
	require.False(t, added)

	view := page.Render()
	require.Equal(t, views.StateRows, view.Medicines.State)
	require.Equal(t, 3, view.Medicines.PageCount)
	require.Equal(t, []string{"A", "B"}, view.Categories)
	require.Equal(t, 1, view.BasketCount)
	require.Equal(t, "100 ل.س", view.BasketTotal)
	require.True(t, view.Medicines.Rows[0].InBasket)
	require.Equal(t, views.PlaceholderImage, view.Medicines.Rows[0].ImageURL)
	require.False(t, view.Medicines.Rows[1].InBasket)

	page.SetCategory("B")
	rows := page.Render().Medicines.Rows
	require.Len(t, rows, 1)
	require.Equal(t, int64(2), rows[0].ID)

	added, err = page.AddToBasket(99)
	require.NoError(t, err)
	require.False(t, added)
	h.await(t, h.env.Ops.Medicine.Name())
	page.Sync()
	require.Equal(t, 2, h.env.Basket.Len())
	require.Equal(t, 1, h.backend.count("supplierMedicines"))

	page.OpenBasket()
	require.Equal(t, []string{"/suppliers/7/send-order"}, h.router.paths)
}

func TestSupplierDetailsLookupBusy(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, &fakeBackend{
		medicine: func(id int64) (remote.Medicine, error) {
			<-release
			return remote.Medicine{ID: id}, nil
		},
	})
	page := NewSupplierDetails(h.env, 7)
	_, err := page.AddToBasket(5)
	require.NoError(t, err)
	_, err = page.AddToBasket(6)
	require.ErrorIs(t, err, ErrBusy)
	close(release)
	h.await(t, h.env.Ops.Medicine.Name())
}

func TestSupplierDetailsPageChangeRefetches(t *testing.T) {
	var mu sync.Mutex
	var requests []remote.PageRequest
	h := newHarness(t, &fakeBackend{
		supplierMedicines: func(id int64, page remote.PageRequest) (remote.Page[remote.Medicine], error) {
			require.Equal(t, int64(7), id)
			mu.Lock()
			requests = append(requests, page)
			mu.Unlock()
			return catalogue(), nil
		},
	})
	page := NewSupplierDetails(h.env, 7)
	page.Sync()
	h.await(t, h.env.Ops.SupplierMedicines.Name())
	page.SetPage(1)
	page.Sync()
	h.await(t, h.env.Ops.SupplierMedicines.Name())
	page.SetPage(1)
	page.Sync()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []remote.PageRequest{{Page: 0, Limit: 12}, {Page: 1, Limit: 12}}, requests)
	data, ok := bridge.SelectData(h.env.view(), h.env.Ops.SupplierMedicines.Key)
	require.True(t, ok)
	require.Len(t, data.Data, 2)
}

func TestSupplierDetailsIgnoresCatalogueOfPreviousSupplier(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, &fakeBackend{
		supplierMedicines: func(id int64, _ remote.PageRequest) (remote.Page[remote.Medicine], error) {
			if id == 2 {
				<-release
			}
			return remote.Page[remote.Medicine]{
				Data:         []remote.Medicine{{ID: 100 * id, Name: "Stocked", Price: decimal.NewFromInt(10)}},
				TotalRecords: 1,
			}, nil
		},
		medicine: func(id int64) (remote.Medicine, error) {
			return remote.Medicine{ID: id, Name: "Looked up", Price: decimal.NewFromInt(5)}, nil
		},
	})
	first := NewSupplierDetails(h.env, 1)
	first.Sync()
	h.await(t, h.env.Ops.SupplierMedicines.Name())

	second := NewSupplierDetails(h.env, 2)
	added, err := second.AddToBasket(100)
	require.NoError(t, err)
	require.False(t, added)
	h.await(t, h.env.Ops.Medicine.Name())
	require.Zero(t, h.env.Basket.Len())

	second.Sync()
	require.Equal(t, 1, h.env.Basket.Len())
	require.Equal(t, views.StateLoading, second.Render().Medicines.State)

	added, err = second.AddToBasket(200)
	require.NoError(t, err)
	require.False(t, added)
	h.await(t, h.env.Ops.Medicine.Name())

	close(release)
	h.await(t, h.env.Ops.SupplierMedicines.Name())
	second.Sync()
	require.Equal(t, 2, h.env.Basket.Len())
	added, err = second.AddToBasket(200)
	require.NoError(t, err)
	require.False(t, added)
	require.Equal(t, 2, h.backend.count("medicine"))
}
