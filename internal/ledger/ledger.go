// Package ledger holds the working list of shipment order items for one receipt.
package ledger

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is one shipment line on a receipt.
type Item struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	PackagingCost   decimal.Decimal `json:"packaging_cost"`
	OtherCost       Amount          `json:"other_cost"`
	Discount        Amount          `json:"discount"`
	Receiver        string          `json:"receiver,omitempty"`
	ShippingCompany string          `json:"shipping_company,omitempty"`
	Province        string          `json:"province,omitempty"`
}

// Net is shipping plus packaging, the amount an item contributes to the grand total.
func (i Item) Net() decimal.Decimal {
	return i.ShippingCost.Add(i.PackagingCost)
}

// Fields are the mutable fields of an Item. Optional amounts arrive already
// resolved; the ledger never sees the form's enable flags.
type Fields struct {
	Name            string          `json:"name"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	PackagingCost   decimal.Decimal `json:"packaging_cost"`
	OtherCost       Amount          `json:"other_cost"`
	Discount        Amount          `json:"discount"`
	Receiver        string          `json:"receiver"`
	ShippingCompany string          `json:"shipping_company"`
	Province        string          `json:"province"`
}

// Fields returns the mutable fields of the item, suitable for loading into an edit form.
func (i Item) Fields() Fields {
	return Fields{
		Name:            i.Name,
		ShippingCost:    i.ShippingCost,
		PackagingCost:   i.PackagingCost,
		OtherCost:       i.OtherCost,
		Discount:        i.Discount,
		Receiver:        i.Receiver,
		ShippingCompany: i.ShippingCompany,
		Province:        i.Province,
	}
}

// Snapshot is a read-only copy of the ledger state.
type Snapshot struct {
	CustomerName string `json:"customer_name"`
	Items        []Item `json:"items"`
}

// Ledger is an insertion-ordered list of items plus a customer name.
// It is not safe for concurrent use.
type Ledger struct {
	customerName string
	items        []Item
	newID        func() string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithIDGenerator replaces the UUID generator used for new items.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) {
		l.newID = fn
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		items: make([]Item, 0),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetCustomerName replaces the customer name. Empty is allowed.
func (l *Ledger) SetCustomerName(name string) {
	l.customerName = name
}

// CustomerName returns the current customer name.
func (l *Ledger) CustomerName() string {
	return l.customerName
}

// AddItem appends a new item with a fresh id.
func (l *Ledger) AddItem(f Fields) (Item, error) {
	if err := validate(f); err != nil {
		return Item{}, err
	}

	item := Item{ID: l.newID()}
	apply(&item, f)
	l.items = append(l.items, item)

	return item, nil
}

// UpdateItem replaces the mutable fields of the item with the given id in place.
func (l *Ledger) UpdateItem(id string, f Fields) (Item, error) {
	idx := l.indexOf(id)
	if idx < 0 {
		return Item{}, &NotFoundError{ID: id}
	}
	if err := validate(f); err != nil {
		return Item{}, err
	}

	apply(&l.items[idx], f)
	return l.items[idx], nil
}

// RemoveItem removes the item with the given id. Removing an unknown id is a no-op;
// the return value reports whether anything was removed.
func (l *Ledger) RemoveItem(id string) bool {
	idx := l.indexOf(id)
	if idx < 0 {
		return false
	}
	l.items = append(l.items[:idx], l.items[idx+1:]...)
	return true
}

// Item returns the item with the given id.
func (l *Ledger) Item(id string) (Item, bool) {
	idx := l.indexOf(id)
	if idx < 0 {
		return Item{}, false
	}
	return l.items[idx], true
}

// Items returns a copy of the items in insertion order.
func (l *Ledger) Items() []Item {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of items.
func (l *Ledger) Len() int {
	return len(l.items)
}

// Snapshot returns a copy of the current state.
func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{
		CustomerName: l.customerName,
		Items:        l.Items(),
	}
}

func (l *Ledger) indexOf(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

func apply(item *Item, f Fields) {
	item.Name = strings.TrimSpace(f.Name)
	item.ShippingCost = f.ShippingCost
	item.PackagingCost = f.PackagingCost
	item.OtherCost = f.OtherCost
	item.Discount = f.Discount
	item.Receiver = f.Receiver
	item.ShippingCompany = f.ShippingCompany
	item.Province = f.Province
}

func validate(f Fields) error {
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{Field: "name", Message: "required field missing"}
	}

	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"shipping_cost", f.ShippingCost},
		{"packaging_cost", f.PackagingCost},
		{"other_cost", f.OtherCost.Value()},
		{"discount", f.Discount.Value()},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			return &ValidationError{Field: a.field, Message: "must not be negative"}
		}
	}

	return nil
}
