package basket

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func medicine(id int64, price int64) Medicine {
	return Medicine{ID: id, Name: "med", Price: decimal.NewFromInt(price)}
}

func sum(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Subtotal())
	}
	return total
}

func TestTotalTracksQuantityChanges(t *testing.T) {
	b := New()
	require.True(t, b.Add(medicine(1, 100)))
	require.True(t, b.Total().Equal(decimal.NewFromInt(100)))

	require.NoError(t, b.SetQuantity(1, 3))
	require.True(t, b.Total().Equal(decimal.NewFromInt(300)), b.Total().String())

	require.True(t, b.Add(medicine(2, 40)))
	require.NoError(t, b.SetQuantity(2, 2))
	require.NoError(t, b.SetQuantity(1, 1))
	require.True(t, b.Total().Equal(decimal.NewFromInt(180)), b.Total().String())
	require.True(t, b.Total().Equal(sum(b.Entries())))
}

func TestAddKeepsExistingQuantity(t *testing.T) {
	b := New()
	b.Add(medicine(1, 10))
	require.NoError(t, b.SetQuantity(1, 4))
	require.False(t, b.Add(medicine(1, 10)))
	require.Equal(t, 4, b.Quantity(1))
	require.True(t, b.Total().Equal(decimal.NewFromInt(40)))
}

func TestQuantityMustBePositive(t *testing.T) {
	b := New()
	b.Add(medicine(1, 10))
	require.ErrorIs(t, b.SetQuantity(1, 0), ErrInvalidQuantity)
	require.ErrorIs(t, b.SetQuantity(9, 2), ErrUnknownMedicine)
	require.Equal(t, 1, b.Quantity(1))
}

func TestRemoveAndClear(t *testing.T) {
	b := New()
	b.Add(medicine(1, 10))
	b.Add(medicine(2, 5))
	require.NoError(t, b.SetQuantity(2, 3))

	require.NoError(t, b.Remove(2))
	require.True(t, b.Total().Equal(decimal.NewFromInt(10)))
	require.ErrorIs(t, b.Remove(2), ErrUnknownMedicine)

	b.Clear()
	require.Zero(t, b.Len())
	require.True(t, b.Total().IsZero())
}

func TestLinesFollowInsertionOrder(t *testing.T) {
	b := New()
	b.Add(medicine(9, 1))
	b.Add(medicine(3, 1))
	require.NoError(t, b.SetQuantity(3, 5))
	require.Equal(t, []OrderLine{{MedicineID: 9, Quantity: 1}, {MedicineID: 3, Quantity: 5}}, b.Lines())
}

func TestOrderRequest(t *testing.T) {
	b := New()
	b.Add(medicine(1, 100))
	require.NoError(t, b.SetQuantity(1, 3))
	require.True(t, b.Total().Equal(decimal.NewFromInt(300)))

	order := b.OrderRequest(4)
	require.Equal(t, Order{SupplierID: 4, Lines: []OrderLine{{MedicineID: 1, Quantity: 3}}}, order)
}
