package receipt

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Text column widths for common paper rolls in font A.
const (
	Columns58  = 32
	Columns80  = 48
	Columns112 = 64
)

// ColumnsFor returns the text width of a paper size.
func ColumnsFor(paperWidth string) int {
	switch paperWidth {
	case "58mm":
		return Columns58
	case "112mm":
		return Columns112
	default:
		return Columns80
	}
}

// Text renders view as fixed-width plain text. Width is measured in terminal
// cells, so Thai combining marks take no column.
func Text(view View, opts Options, width int) string {
	if width <= 0 {
		width = ColumnsFor(opts.PaperWidth)
	}

	labels := LabelsFor(opts.Language)
	data := bind(view, firstNonEmpty(opts.Title, labels.Title), opts)
	vars := data.Vars

	w := textWriter{width: width}
	w.center(vars["title"])
	if vars["shop"] != "" {
		w.center(vars["shop"])
	}
	w.rule('=')
	w.pair(labels.PrintTime, vars["printed_at"])
	w.pair(labels.ReceiptNumber, vars["receipt_number"])
	w.pair(labels.Customer, firstNonEmpty(vars["customer"], labels.Unspecified))
	w.rule('-')

	for i, item := range data.Arrays["items"] {
		w.line(strconv.Itoa(i+1) + ". " + item["name"])
		w.optionalPair("  "+labels.Company, item["company"])
		w.optionalPair("  "+labels.Receiver, item["receiver"])
		w.optionalPair("  "+labels.Province, item["province"])
		w.pair("  "+labels.Shipping, item["shipping"])
		w.pair("  "+labels.Packaging, item["packaging"])
		w.optionalPair("  "+labels.Other, item["other"])
		w.optionalPair("  "+labels.Discount, item["discount"])
		w.pair("  "+labels.Net, item["net"])
		w.rule('-')
	}

	w.pair(labels.ParcelCount, vars["item_count"])
	w.pair(labels.TotalShipping, vars["total_shipping"])
	w.pair(labels.TotalPackaging, vars["total_packaging"])
	w.optionalPair(labels.TotalOther, vars["total_other"])
	w.optionalPair(labels.TotalDiscount, vars["total_discount"])
	w.rule('=')
	w.pair(labels.GrandTotal, vars["grand_total"])

	return w.String()
}

type textWriter struct {
	strings.Builder
	width int
}

func (w *textWriter) line(s string) {
	w.WriteString(runewidth.Truncate(s, w.width, ""))
	w.WriteByte('\n')
}

func (w *textWriter) center(s string) {
	sw := runewidth.StringWidth(s)
	if sw >= w.width {
		w.line(s)
		return
	}
	w.line(strings.Repeat(" ", (w.width-sw)/2) + s)
}

func (w *textWriter) rule(ch byte) {
	w.line(strings.Repeat(string(ch), w.width))
}

// pair writes label left and value right aligned. A value that does not fit
// moves to its own right-aligned line.
func (w *textWriter) pair(label, value string) {
	lw, vw := runewidth.StringWidth(label), runewidth.StringWidth(value)
	if lw+1+vw <= w.width {
		w.line(label + strings.Repeat(" ", w.width-lw-vw) + value)
		return
	}
	w.line(label)
	w.line(runewidth.FillLeft(value, w.width))
}

func (w *textWriter) optionalPair(label, value string) {
	if value != "" {
		w.pair(label, value)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
