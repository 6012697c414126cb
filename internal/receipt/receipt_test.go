package receipt

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/parcel-receipt/internal/ledger"
	"github.com/thereceipt/parcel-receipt/internal/sequencer"
	"github.com/thereceipt/parcel-receipt/pkg/receiptformat"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleView(t *testing.T) View {
	t.Helper()
	l := ledger.New()
	l.SetCustomerName("Nok")
	_, err := l.AddItem(ledger.Fields{
		Name:            "Box A",
		ShippingCost:    dec("50"),
		PackagingCost:   dec("10"),
		ShippingCompany: "thailand-post",
		Receiver:        "Somchai",
		Province:        "Chiang Mai",
	})
	require.NoError(t, err)
	_, err = l.AddItem(ledger.Fields{
		Name:          "Box B",
		ShippingCost:  dec("1200.5"),
		PackagingCost: dec("0"),
		Discount:      ledger.Some(dec("20")),
	})
	require.NoError(t, err)

	issued := time.Date(2024, time.January, 15, 9, 5, 0, 0, time.UTC)
	return View{
		Snapshot: l.Snapshot(),
		Totals:   l.ComputeTotals(),
		Stamp: sequencer.Result{
			ReceiptNumber: "S36_20240115_01",
			Counter:       1,
			Date:          "2024-01-15",
			IssuedAt:      issued,
		},
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[string]string{
		"0":          "0.00",
		"5":          "5.00",
		"60":         "60.00",
		"999.999":    "1,000.00",
		"1234.5":     "1,234.50",
		"123456":     "123,456.00",
		"1234567.89": "1,234,567.89",
		"0.005":      "0.01",
		"-1234.5":    "-1,234.50",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatAmount(dec(in)), in)
	}
}

func TestBuild_DocumentIsValid(t *testing.T) {
	for _, opts := range []Options{
		{},
		{QRCode: true, PaperWidth: receiptformat.Paper58, Language: LangThai, ShopName: "S36 Parcel"},
		{Logo: "/tmp/logo.png"},
	} {
		job := Build(sampleView(t), opts)
		assert.NoError(t, receiptformat.Validate(job.Document))
	}
}

func TestTemplate_ExportLoadBuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.receipt")
	opts := Options{PaperWidth: receiptformat.Paper58, Language: LangEnglish}
	require.NoError(t, ExportTemplate(path, opts))

	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)

	// Keep only the header and the grand total.
	tmpl.Commands = []receiptformat.Command{
		{Type: receiptformat.TypeText, Var: "receipt_number", Align: "center"},
		{Type: receiptformat.TypeText, Var: "grand_total", Bold: true},
		{Type: receiptformat.TypeCut},
	}
	tmpl.PaperWidth = ""

	opts.Template = tmpl
	view := sampleView(t)
	job := Build(view, opts)
	require.NoError(t, receiptformat.Validate(job.Document))
	assert.Len(t, job.Document.Commands, 3)
	assert.Equal(t, receiptformat.Paper58, job.Document.PaperWidth)
	assert.Equal(t, Build(view, Options{Language: LangEnglish}).Data, job.Data)
	assert.Empty(t, tmpl.PaperWidth, "template must not be modified")

	img, err := job.Render()
	require.NoError(t, err)
	assert.Equal(t, 384, img.Bounds().Dx())
}

func TestLoadTemplate_Errors(t *testing.T) {
	_, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.receipt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.receipt")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version":`), 0o644))
	_, err = LoadTemplate(bad)
	assert.Error(t, err)
}

func TestBuild_Data(t *testing.T) {
	job := Build(sampleView(t), Options{})

	vars := job.Data.Vars
	assert.Equal(t, "Receipt", vars["title"])
	assert.Equal(t, "S36_20240115_01", vars["receipt_number"])
	assert.Equal(t, "2024-01-15 09:05", vars["printed_at"])
	assert.Equal(t, "Nok", vars["customer"])
	assert.Equal(t, "2", vars["item_count"])
	assert.Equal(t, "1,250.50", vars["total_shipping"])
	assert.Equal(t, "10.00", vars["total_packaging"])
	assert.Equal(t, "1,260.50", vars["grand_total"])
	assert.Equal(t, "", vars["total_other"])
	assert.Equal(t, "20.00", vars["total_discount"])

	items := job.Data.Arrays["items"]
	require.Len(t, items, 2)
	assert.Equal(t, "Thailand Post", items[0]["company"])
	assert.Equal(t, "60.00", items[0]["net"])
	assert.Equal(t, "", items[0]["discount"])
	assert.Equal(t, "20.00", items[1]["discount"])
	assert.Equal(t, "1,200.50", items[1]["net"])
}

func TestBuild_PrintedAtOverridesStamp(t *testing.T) {
	view := sampleView(t)
	view.PrintedAt = time.Date(2024, time.January, 15, 18, 30, 0, 0, time.UTC)

	job := Build(view, Options{Title: "Shipping receipt"})
	assert.Equal(t, "2024-01-15 18:30", job.Data.Vars["printed_at"])
	assert.Equal(t, "Shipping receipt", job.Data.Vars["title"])
}

func TestBuild_UnspecifiedCustomer(t *testing.T) {
	view := sampleView(t)
	view.Snapshot.CustomerName = "   "

	job := Build(view, Options{})
	_, set := job.Data.Vars["customer"]
	assert.False(t, set)

	text := Text(view, Options{}, 40)
	assert.Contains(t, text, "unspecified")
}

func TestJob_WritePNG(t *testing.T) {
	job := Build(sampleView(t), Options{QRCode: true})

	var buf bytes.Buffer
	require.NoError(t, job.WritePNG(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestJob_RenderEmptyLedger(t *testing.T) {
	view := View{Stamp: sequencer.Result{ReceiptNumber: "S36_20240115_02"}}
	img, err := Build(view, Options{}).Render()
	require.NoError(t, err)
	assert.Equal(t, 576, img.Bounds().Dx())
}

func TestText(t *testing.T) {
	text := Text(sampleView(t), Options{}, 40)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")

	for _, line := range lines {
		assert.LessOrEqual(t, len([]rune(line)), 40, line)
	}
	assert.Contains(t, text, "No.")
	assert.Contains(t, text, "S36_20240115_01")
	assert.Contains(t, text, "1. Box A")
	assert.Contains(t, text, "2. Box B")
	assert.Contains(t, text, "Chiang Mai")
	assert.NotContains(t, text, "Other cost")
	assert.Contains(t, text, "Total discount")

	last := lines[len(lines)-1]
	assert.True(t, strings.HasPrefix(last, "Grand total"))
	assert.True(t, strings.HasSuffix(last, "1,260.50"))
	assert.Len(t, last, 40)
}

func TestText_Thai(t *testing.T) {
	text := Text(sampleView(t), Options{Language: LangThai}, 0)
	assert.Contains(t, text, "ใบเสร็จรับเงิน")
	assert.Contains(t, text, "ไปรษณีย์ไทย")
	assert.Contains(t, text, "ยอดรวมทั้งหมด")
}

func TestCarrierName(t *testing.T) {
	assert.Equal(t, "Flash Express", CarrierName("flash-express", LangEnglish))
	assert.Equal(t, "ไปรษณีย์ไทย", CarrierName("thailand-post", LangThai))
	assert.Equal(t, "kerry", CarrierName("kerry", LangEnglish))
	assert.Equal(t, "", CarrierName("", LangEnglish))
}
