package basket

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity is returned for quantities below one.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// ErrUnknownMedicine is returned when an entry does not exist.
var ErrUnknownMedicine = errors.New("medicine not in basket")

// Medicine is the snapshot of a medicine taken when it is added.
type Medicine struct {
	ID       int64
	Name     string
	Category string
	Price    decimal.Decimal
	ImageURL string
}

// Entry is one basket line.
type Entry struct {
	Medicine Medicine
	Quantity int
	seq      uint64
}

// Subtotal returns quantity × price.
func (e Entry) Subtotal() decimal.Decimal {
	return e.Medicine.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// OrderLine is the submitted form of an entry.
type OrderLine struct {
	MedicineID int64
	Quantity   int
}

// Basket collects medicines for a single order before submission. The total
// is maintained incrementally as entries change.
type Basket struct {
	mu      sync.Mutex
	entries map[int64]*Entry
	total   decimal.Decimal
	seq     uint64
}

// New returns an empty basket.
func New() *Basket {
	return &Basket{entries: make(map[int64]*Entry), total: decimal.Zero}
}

// Add puts a medicine into the basket with quantity one. It reports false when
// the medicine is already present; its quantity is then left unchanged.
func (b *Basket) Add(m Medicine) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[m.ID]; ok {
		return false
	}
	b.seq++
	b.entries[m.ID] = &Entry{Medicine: m, Quantity: 1, seq: b.seq}
	b.total = b.total.Add(m.Price)
	return true
}

// SetQuantity changes the quantity of an entry and adjusts the total by the
// difference only.
func (b *Basket) SetQuantity(id int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("set quantity of %d to %d: %w", id, quantity, ErrInvalidQuantity)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[id]
	if !ok {
		return fmt.Errorf("set quantity of %d: %w", id, ErrUnknownMedicine)
	}
	delta := decimal.NewFromInt(int64(quantity - entry.Quantity))
	b.total = b.total.Add(entry.Medicine.Price.Mul(delta))
	entry.Quantity = quantity
	return nil
}

// Remove drops an entry.
func (b *Basket) Remove(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[id]
	if !ok {
		return fmt.Errorf("remove %d: %w", id, ErrUnknownMedicine)
	}
	b.total = b.total.Sub(entry.Subtotal())
	delete(b.entries, id)
	return nil
}

// Clear empties the basket.
func (b *Basket) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[int64]*Entry)
	b.total = decimal.Zero
}

// Total returns Σ quantity × price.
func (b *Basket) Total() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Len returns the number of entries.
func (b *Basket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Quantity returns the quantity of an entry, or zero.
func (b *Basket) Quantity(id int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if entry, ok := b.entries[id]; ok {
		return entry.Quantity
	}
	return 0
}

// Entries returns copies of the entries in insertion order.
func (b *Basket) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, 0, len(b.entries))
	for _, entry := range b.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Lines returns the order lines for submission.
func (b *Basket) Lines() []OrderLine {
	entries := b.Entries()
	lines := make([]OrderLine, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, OrderLine{MedicineID: entry.Medicine.ID, Quantity: entry.Quantity})
	}
	return lines
}

// Order is a basket ready to be submitted to one supplier.
type Order struct {
	SupplierID int64
	Lines      []OrderLine
}

// OrderRequest freezes the current entries into an order for supplierID.
func (b *Basket) OrderRequest(supplierID int64) Order {
	return Order{SupplierID: supplierID, Lines: b.Lines()}
}
