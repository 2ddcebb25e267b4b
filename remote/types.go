package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses reported by the backend.
const (
	OrderPending   = "Pending"
	OrderAccepted  = "Accepted"
	OrderRejected  = "Rejected"
	OrderDelivered = "Delivered"
)

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Data         []T `json:"data"`
	TotalRecords int `json:"totalRecords"`
}

// PageRequest selects a page. Page is zero based.
type PageRequest struct {
	Page  int
	Limit int
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// Ack is the body returned by mutating endpoints.
type Ack struct {
	Message string `json:"message"`
}

// Timestamp decodes the date layouts the backend emits.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON accepts RFC 3339 and zone-less timestamps; null leaves the
// zero time.
func (t *Timestamp) UnmarshalJSON(raw []byte) error {
	if bytes.Equal(raw, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	if text == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", text)
}

// MarshalJSON renders the time in RFC 3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Supplier is a warehouse offering medicines.
type Supplier struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	ImageURL    string `json:"imageUrl"`
}

// Medicine is a catalogue item of a supplier.
type Medicine struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl"`
}

// OrderLine is one medicine of an order submission.
type OrderLine struct {
	MedicineID int64 `json:"medicineId"`
	Quantity   int   `json:"quantity"`
}

// CreateOrderRequest submits a basket to a supplier.
type CreateOrderRequest struct {
	SupplierID    int64       `json:"supplierId"`
	MedicineOrder []OrderLine `json:"medicineOrder"`
}

// SentOrder is a row of the outgoing orders listing.
type SentOrder struct {
	ID           int64           `json:"id"`
	OrderDate    Timestamp       `json:"orderDate"`
	SupplierName string          `json:"supplierName"`
	Status       string          `json:"status"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
}

// SentReturnOrder is a row of the outgoing return orders listing.
type SentReturnOrder struct {
	ID              int64           `json:"id"`
	ReturnOrderDate Timestamp       `json:"returnOrderDate"`
	SupplierName    string          `json:"supplierName"`
	Status          string          `json:"status"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
}

// Pharmacy is the ordering party of a received order.
type Pharmacy struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// OrderedMedicine is a line of a received order.
type OrderedMedicine struct {
	Name     string          `json:"name"`
	ImageURL string          `json:"imageUrl"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// ReceivedOrder is an order placed with the current warehouse.
type ReceivedOrder struct {
	ID        int64             `json:"id"`
	Status    string            `json:"status"`
	Pharmacy  Pharmacy          `json:"pharmacy"`
	Medicines []OrderedMedicine `json:"medicines"`
}

// Cost returns Σ price × quantity over the order lines.
func (o ReceivedOrder) Cost() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Medicines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// LoginRequest carries the login form.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the authenticated account.
type User struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// RegisterDetails completes a freshly created account.
type RegisterDetails struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	PhoneNumber string `json:"phoneNumber"`
}

// RegisterStoreRequest registers a new inventory for the current warehouse.
type RegisterStoreRequest struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	PhoneNumber string `json:"phoneNumber"`
}

// Store is an inventory of the current warehouse.
type Store struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	PhoneNumber string `json:"phoneNumber"`
}
