package tui

import (
	"strings"

	"github.com/thereceipt/parcel-receipt/internal/ledger"
	"github.com/thereceipt/parcel-receipt/internal/receipt"
)

// formValues is the raw text of the order form.
type formValues struct {
	Name      string
	Company   string
	Receiver  string
	Province  string
	Shipping  string
	Packaging string

	OtherEnabled    bool
	Other           string
	DiscountEnabled bool
	Discount        string
}

// fields resolves the form into ledger fields. Unparseable numbers read as
// zero. An optional amount is set only when its checkbox is ticked, whatever
// the amount box holds.
func (v formValues) fields() ledger.Fields {
	return ledger.Fields{
		Name:            strings.TrimSpace(v.Name),
		ShippingCost:    ledger.ParseAmount(v.Shipping),
		PackagingCost:   ledger.ParseAmount(v.Packaging),
		OtherCost:       gated(v.OtherEnabled, v.Other),
		Discount:        gated(v.DiscountEnabled, v.Discount),
		Receiver:        strings.TrimSpace(v.Receiver),
		ShippingCompany: v.Company,
		Province:        strings.TrimSpace(v.Province),
	}
}

func gated(enabled bool, text string) ledger.Amount {
	if !enabled {
		return ledger.None()
	}
	return ledger.Some(ledger.ParseAmount(text))
}

// valuesFromItem loads an item into the form for editing.
func valuesFromItem(item ledger.Item) formValues {
	v := formValues{
		Name:      item.Name,
		Company:   item.ShippingCompany,
		Receiver:  item.Receiver,
		Province:  item.Province,
		Shipping:  item.ShippingCost.String(),
		Packaging: item.PackagingCost.String(),
	}
	if item.OtherCost.IsSet() {
		v.OtherEnabled = true
		v.Other = item.OtherCost.Value().String()
	}
	if item.Discount.IsSet() {
		v.DiscountEnabled = true
		v.Discount = item.Discount.Value().String()
	}
	return v
}

// companyOptions returns the carrier dropdown entries. Index 0 is "no carrier".
func companyOptions(lang string) []string {
	opts := []string{"-"}
	for _, c := range receipt.Carriers {
		opts = append(opts, receipt.CarrierName(c.ID, lang))
	}
	return opts
}

// companyID maps a dropdown index back to a carrier id.
func companyID(index int) string {
	if index <= 0 || index > len(receipt.Carriers) {
		return ""
	}
	return receipt.Carriers[index-1].ID
}

// companyIndex maps a carrier id to its dropdown index.
func companyIndex(id string) int {
	for i, c := range receipt.Carriers {
		if c.ID == id {
			return i + 1
		}
	}
	return 0
}
