package pages

import (
	"fmt"
	"strings"

	"github.com/timzifer/pharmadesk/basket"
	"github.com/timzifer/pharmadesk/remote"
	"github.com/timzifer/pharmadesk/runtime/bridge"
	"github.com/timzifer/pharmadesk/runtime/lifecycle"
	"github.com/timzifer/pharmadesk/views"
)

// SupplierCard is a row of the suppliers grid.
type SupplierCard struct {
	ID          int64
	Name        string
	Location    string
	Email       string
	PhoneNumber string
	Route       string
}

func supplierCard(s remote.Supplier) SupplierCard {
	return SupplierCard{
		ID:          s.ID,
		Name:        s.Name,
		Location:    s.Location,
		Email:       s.Email,
		PhoneNumber: s.PhoneNumber,
		Route:       SupplierRoute(s.ID),
	}
}

func listPage[T any](page remote.Page[T], ok bool) views.Page[T] {
	return views.Page[T]{Items: page.Data, TotalRecords: page.TotalRecords, Present: ok}
}

// Suppliers lists suppliers filtered by name.
type Suppliers struct {
	env    *Env
	filter string
	fetch  bridge.Effect
}

// NewSuppliers creates the suppliers page.
func NewSuppliers(env *Env) *Suppliers {
	return &Suppliers{env: env}
}

// SetFilter changes the name filter.
func (p *Suppliers) SetFilter(name string) {
	p.filter = strings.TrimSpace(name)
}

// Sync fetches suppliers when the filter changed.
func (p *Suppliers) Sync() {
	filter := p.filter
	p.fetch.Run(func() {
		bridge.Dispatch(p.env.Dispatcher, p.env.Ops.Suppliers, filter)
	}, filter)
}

// Render builds the suppliers grid.
func (p *Suppliers) Render() views.ListView[SupplierCard] {
	view := p.env.view()
	key := p.env.Ops.Suppliers.Key
	page, ok := bridge.SelectData(view, key)
	return views.RenderList(bridge.SelectStatus(view, key), listPage(page, ok), 0, 0, supplierCard)
}

// MedicineCard is a catalogue entry of a supplier.
type MedicineCard struct {
	ID       int64
	Name     string
	Category string
	Price    string
	ImageURL string
	InBasket bool
}

// SupplierDetailsView is the catalogue page render model.
type SupplierDetailsView struct {
	SupplierID  int64
	Medicines   views.ListView[MedicineCard]
	Categories  []string
	Category    string
	BasketCount int
	BasketTotal string
}

// SupplierDetails shows one page of a supplier's medicines and fills the
// basket.
type SupplierDetails struct {
	env        *Env
	supplierID int64
	pageIndex  int
	category   string
	fetch      bridge.Effect
}

// NewSupplierDetails creates the catalogue page of supplierID.
func NewSupplierDetails(env *Env, supplierID int64) *SupplierDetails {
	return &SupplierDetails{env: env, supplierID: supplierID}
}

// SetPage selects a zero based page.
func (p *SupplierDetails) SetPage(index int) {
	if index < 0 {
		index = 0
	}
	p.pageIndex = index
}

// SetCategory narrows the rendered rows to one category. Empty shows all.
func (p *SupplierDetails) SetCategory(category string) {
	p.category = strings.TrimSpace(category)
}

// Sync fetches the catalogue page when supplier or page changed and adds
// looked up medicines to the basket.
func (p *SupplierDetails) Sync() {
	query := MedicinesQuery{
		SupplierID: p.supplierID,
		Page:       remote.PageRequest{Page: p.pageIndex, Limit: p.env.medicinePageSize()},
	}
	p.fetch.Run(func() {
		bridge.Dispatch(p.env.Dispatcher, p.env.Ops.SupplierMedicines, query)
	}, query)

	settle(p.env, p.env.Ops.Medicine.Key, func(m remote.Medicine) {
		p.env.Basket.Add(basketMedicine(m))
	})
}

// AddToBasket adds a medicine with quantity one. Medicines of the loaded page
// are added immediately and reported by the returned flag; others are looked
// up first and added by a later Sync.
func (p *SupplierDetails) AddToBasket(medicineID int64) (bool, error) {
	if m, ok := p.loaded(medicineID); ok {
		return p.env.Basket.Add(basketMedicine(m)), nil
	}
	if p.env.loading(p.env.Ops.Medicine.Name()) {
		return false, fmt.Errorf("look up medicine %d: %w", medicineID, ErrBusy)
	}
	bridge.Dispatch(p.env.Dispatcher, p.env.Ops.Medicine, medicineID)
	return false, nil
}

// OpenBasket navigates to the checkout of this supplier.
func (p *SupplierDetails) OpenBasket() {
	p.env.Router.Navigate(SendOrderRoute(p.supplierID))
}

// loaded finds id on the catalogue page of this supplier. Pages still loading
// or fetched for another supplier are not shown, so they are not searched.
func (p *SupplierDetails) loaded(id int64) (remote.Medicine, bool) {
	view := p.env.view()
	key := p.env.Ops.SupplierMedicines.Key
	if bridge.SelectStatus(view, key) != lifecycle.StatusSucceeded {
		return remote.Medicine{}, false
	}
	page, ok := bridge.SelectData(view, key)
	if !ok || page.SupplierID != p.supplierID {
		return remote.Medicine{}, false
	}
	for _, m := range page.Data {
		if m.ID == id {
			return m, true
		}
	}
	return remote.Medicine{}, false
}

// Render builds the catalogue view.
func (p *SupplierDetails) Render() SupplierDetailsView {
	view := p.env.view()
	key := p.env.Ops.SupplierMedicines.Key
	page, ok := bridge.SelectData(view, key)

	var categories []string
	seen := map[string]struct{}{}
	items := page.Data
	if p.category != "" {
		items = make([]remote.Medicine, 0, len(page.Data))
	}
	for _, m := range page.Data {
		if _, dup := seen[m.Category]; m.Category != "" && !dup {
			seen[m.Category] = struct{}{}
			categories = append(categories, m.Category)
		}
		if p.category != "" && m.Category == p.category {
			items = append(items, m)
		}
	}

	inBasket := make(map[int64]struct{})
	for _, entry := range p.env.Basket.Entries() {
		inBasket[entry.Medicine.ID] = struct{}{}
	}
	transform := func(m remote.Medicine) MedicineCard {
		_, added := inBasket[m.ID]
		return MedicineCard{
			ID:       m.ID,
			Name:     m.Name,
			Category: m.Category,
			Price:    views.FormatPrice(m.Price),
			ImageURL: views.ImageOrPlaceholder(m.ImageURL),
			InBasket: added,
		}
	}

	filtered := views.Page[remote.Medicine]{Items: items, TotalRecords: page.TotalRecords, Present: ok}
	return SupplierDetailsView{
		SupplierID:  p.supplierID,
		Medicines:   views.RenderList(bridge.SelectStatus(view, key), filtered, p.pageIndex, p.env.medicinePageSize(), transform),
		Categories:  categories,
		Category:    p.category,
		BasketCount: p.env.Basket.Len(),
		BasketTotal: views.FormatPrice(p.env.Basket.Total()),
	}
}

func basketMedicine(m remote.Medicine) basket.Medicine {
	return basket.Medicine{
		ID:       m.ID,
		Name:     m.Name,
		Category: m.Category,
		Price:    m.Price,
		ImageURL: m.ImageURL,
	}
}
