package ledger

import "github.com/shopspring/decimal"

// Totals are the aggregates printed at the bottom of a receipt.
//
// GrandTotal is shipping plus packaging only. Other cost and discount are
// summed separately for display and do not change it.
type Totals struct {
	ItemCount      int             `json:"item_count"`
	TotalShipping  decimal.Decimal `json:"total_shipping"`
	TotalPackaging decimal.Decimal `json:"total_packaging"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	TotalOther     decimal.Decimal `json:"total_other"`
	TotalDiscount  decimal.Decimal `json:"total_discount"`
}

// ComputeTotals sums the given items.
func ComputeTotals(items []Item) Totals {
	t := Totals{
		ItemCount:      len(items),
		TotalShipping:  decimal.Zero,
		TotalPackaging: decimal.Zero,
		GrandTotal:     decimal.Zero,
		TotalOther:     decimal.Zero,
		TotalDiscount:  decimal.Zero,
	}
	for _, item := range items {
		t.TotalShipping = t.TotalShipping.Add(item.ShippingCost)
		t.TotalPackaging = t.TotalPackaging.Add(item.PackagingCost)
		t.GrandTotal = t.GrandTotal.Add(item.Net())
		t.TotalOther = t.TotalOther.Add(item.OtherCost.Value())
		t.TotalDiscount = t.TotalDiscount.Add(item.Discount.Value())
	}
	return t
}

// ComputeTotals sums the ledger's current items.
func (l *Ledger) ComputeTotals() Totals {
	return ComputeTotals(l.items)
}
