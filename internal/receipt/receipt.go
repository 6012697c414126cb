// Package receipt turns a ledger snapshot into a printable receipt: a .receipt
// document for raster output and a fixed-width text rendering.
package receipt

import (
	"image"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/thereceipt/parcel-receipt/internal/ledger"
	"github.com/thereceipt/parcel-receipt/internal/parser"
	"github.com/thereceipt/parcel-receipt/internal/renderer"
	"github.com/thereceipt/parcel-receipt/internal/sequencer"
	"github.com/thereceipt/parcel-receipt/pkg/receiptformat"
)

// PrintTimeLayout formats the print time line.
const PrintTimeLayout = "2006-01-02 15:04"

// View is everything a receipt shows.
type View struct {
	Snapshot  ledger.Snapshot
	Totals    ledger.Totals
	Stamp     sequencer.Result
	PrintedAt time.Time
}

// Options control receipt appearance.
type Options struct {
	Title      string
	ShopName   string
	PaperWidth string
	Language   string
	Logo       string
	Font       string
	QRCode     bool

	// Template replaces the built-in layout. It binds the same variables
	// and the "items" array as the default document.
	Template *receiptformat.Document
}

// Job is a document bound to its data, ready to render.
type Job struct {
	Document *receiptformat.Document
	Data     receiptformat.Data
	font     string
}

// Build creates the receipt document for view.
func Build(view View, opts Options) *Job {
	labels := LabelsFor(opts.Language)
	title := opts.Title
	if title == "" {
		title = labels.Title
	}

	if opts.Template != nil {
		doc := *opts.Template
		if doc.PaperWidth == "" {
			doc.PaperWidth = opts.PaperWidth
		}
		if doc.Font == "" {
			doc.Font = opts.Font
		}
		return &Job{
			Document: &doc,
			Data:     bind(view, title, opts),
			font:     doc.Font,
		}
	}

	doc := &receiptformat.Document{
		Version:    receiptformat.Version,
		Name:       "parcel-receipt",
		PaperWidth: opts.PaperWidth,
		Font:       opts.Font,
		Variables: []receiptformat.Variable{
			{Name: "title"},
			{Name: "shop"},
			{Name: "printed_at"},
			{Name: "receipt_number"},
			{Name: "customer", Default: labels.Unspecified},
			{Name: "item_count"},
			{Name: "total_shipping"},
			{Name: "total_packaging"},
			{Name: "total_other"},
			{Name: "total_discount"},
			{Name: "grand_total"},
		},
		Arrays: []receiptformat.Array{
			{Name: "items", Fields: []string{
				"name", "company", "receiver", "province",
				"shipping", "packaging", "other", "discount", "net",
			}},
		},
	}

	var cmds []receiptformat.Command
	if opts.Logo != "" {
		cmds = append(cmds, receiptformat.Command{Type: receiptformat.TypeImage, Path: opts.Logo, Width: 256})
	}
	cmds = append(cmds,
		receiptformat.Command{Type: receiptformat.TypeText, Var: "title", Bold: true, Size: 32, Align: "center"},
		receiptformat.Command{Type: receiptformat.TypeText, Var: "shop", When: "shop", Align: "center"},
		receiptformat.Command{Type: receiptformat.TypeDivider},
		row(labels.PrintTime, "printed_at", false),
		row(labels.ReceiptNumber, "receipt_number", false),
		row(labels.Customer, "customer", false),
		receiptformat.Command{Type: receiptformat.TypeDivider, Style: "dashed"},
		receiptformat.Command{
			Type:    receiptformat.TypeFolder,
			Bind:    "items",
			Padding: 2,
			Commands: []receiptformat.Command{
				{Type: receiptformat.TypeText, Field: "name", Bold: true},
				fieldRow(labels.Company, "company", true),
				fieldRow(labels.Receiver, "receiver", true),
				fieldRow(labels.Province, "province", true),
				fieldRow(labels.Shipping, "shipping", false),
				fieldRow(labels.Packaging, "packaging", false),
				fieldRow(labels.Other, "other", true),
				fieldRow(labels.Discount, "discount", true),
				boldRow(fieldRow(labels.Net, "net", false)),
				{Type: receiptformat.TypeDivider, Style: "dashed"},
			},
		},
		row(labels.ParcelCount, "item_count", false),
		row(labels.TotalShipping, "total_shipping", false),
		row(labels.TotalPackaging, "total_packaging", false),
		row(labels.TotalOther, "total_other", true),
		row(labels.TotalDiscount, "total_discount", true),
		receiptformat.Command{Type: receiptformat.TypeDivider, Style: "double"},
		boldRow(row(labels.GrandTotal, "grand_total", false)),
		receiptformat.Command{Type: receiptformat.TypeFeed},
		receiptformat.Command{Type: receiptformat.TypeBarcode, Var: "receipt_number", When: "receipt_number", Format: "CODE128", Height: 60},
	)
	if opts.QRCode {
		cmds = append(cmds, receiptformat.Command{Type: receiptformat.TypeQRCode, Var: "receipt_number", When: "receipt_number", Width: 200})
	}
	cmds = append(cmds,
		receiptformat.Command{Type: receiptformat.TypeFeed, Lines: 2},
		receiptformat.Command{Type: receiptformat.TypeCut},
	)
	doc.Commands = cmds

	return &Job{
		Document: doc,
		Data:     bind(view, title, opts),
		font:     opts.Font,
	}
}

// LoadTemplate reads a custom .receipt layout.
func LoadTemplate(path string) (*receiptformat.Document, error) {
	doc, err := receiptformat.ParseFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "receipt template %s", path)
	}
	return doc, nil
}

// ExportTemplate writes the built-in layout for opts to path, as a starting
// point for a custom template.
func ExportTemplate(path string, opts Options) error {
	opts.Template = nil
	if err := Build(View{}, opts).Document.SaveToFile(path); err != nil {
		return errors.Wrapf(err, "export receipt template %s", path)
	}
	return nil
}

// Render rasterizes the job.
func (j *Job) Render() (image.Image, error) {
	p, err := parser.New(j.Document, j.Data)
	if err != nil {
		return nil, err
	}
	img, err := p.Execute(renderer.WithFont(j.font))
	if err != nil {
		return nil, errors.Wrap(err, "render receipt")
	}
	return img, nil
}

// WritePNG renders the job and writes it as PNG.
func (j *Job) WritePNG(w io.Writer) error {
	img, err := j.Render()
	if err != nil {
		return err
	}
	return renderer.EncodePNG(w, img)
}

func bind(view View, title string, opts Options) receiptformat.Data {
	t := view.Totals
	printedAt := view.PrintedAt
	if printedAt.IsZero() {
		printedAt = view.Stamp.IssuedAt
	}

	vars := map[string]string{
		"title":           title,
		"shop":            opts.ShopName,
		"receipt_number":  view.Stamp.ReceiptNumber,
		"item_count":      strconv.Itoa(t.ItemCount),
		"total_shipping":  FormatAmount(t.TotalShipping),
		"total_packaging": FormatAmount(t.TotalPackaging),
		"total_other":     optionalTotal(t.TotalOther),
		"total_discount":  optionalTotal(t.TotalDiscount),
		"grand_total":     FormatAmount(t.GrandTotal),
	}
	if !printedAt.IsZero() {
		vars["printed_at"] = printedAt.Format(PrintTimeLayout)
	}
	if name := strings.TrimSpace(view.Snapshot.CustomerName); name != "" {
		vars["customer"] = name
	}

	items := make([]map[string]string, 0, len(view.Snapshot.Items))
	for _, item := range view.Snapshot.Items {
		items = append(items, map[string]string{
			"name":      item.Name,
			"company":   CarrierName(item.ShippingCompany, opts.Language),
			"receiver":  item.Receiver,
			"province":  item.Province,
			"shipping":  FormatAmount(item.ShippingCost),
			"packaging": FormatAmount(item.PackagingCost),
			"other":     optionalAmount(item.OtherCost),
			"discount":  optionalAmount(item.Discount),
			"net":       FormatAmount(item.Net()),
		})
	}

	return receiptformat.Data{
		Vars:   vars,
		Arrays: map[string][]map[string]string{"items": items},
	}
}

func optionalAmount(a ledger.Amount) string {
	if !a.IsSet() {
		return ""
	}
	return FormatAmount(a.Value())
}

func optionalTotal(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return FormatAmount(d)
}

func row(label, variable string, conditional bool) receiptformat.Command {
	cmd := receiptformat.Command{
		Type:  receiptformat.TypeItem,
		Ratio: "3:2",
		Left:  []receiptformat.Command{{Type: receiptformat.TypeText, Value: label}},
		Right: []receiptformat.Command{{Type: receiptformat.TypeText, Var: variable, Align: "right"}},
	}
	if conditional {
		cmd.When = variable
	}
	return cmd
}

func fieldRow(label, field string, conditional bool) receiptformat.Command {
	cmd := receiptformat.Command{
		Type:  receiptformat.TypeItem,
		Ratio: "3:2",
		Left:  []receiptformat.Command{{Type: receiptformat.TypeText, Value: label, Size: 20}},
		Right: []receiptformat.Command{{Type: receiptformat.TypeText, Field: field, Align: "right", Size: 20}},
	}
	if conditional {
		cmd.When = field
	}
	return cmd
}

func boldRow(cmd receiptformat.Command) receiptformat.Command {
	cmd.Left[0].Bold = true
	cmd.Right[0].Bold = true
	return cmd
}
