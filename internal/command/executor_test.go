package command

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/parcel-receipt/internal/clock"
	"github.com/thereceipt/parcel-receipt/internal/desk"
	"github.com/thereceipt/parcel-receipt/internal/ledger"
	"github.com/thereceipt/parcel-receipt/internal/printer"
	"github.com/thereceipt/parcel-receipt/internal/receipt"
	"github.com/thereceipt/parcel-receipt/internal/sequencer"
	"github.com/thereceipt/parcel-receipt/internal/session"
	"github.com/thereceipt/parcel-receipt/internal/store"
)

type nopConn struct{}

func (nopConn) Write(p []byte) (int, error) { return len(p), nil }
func (nopConn) Close() error                { return nil }

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	clk := clock.NewFixed(time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC))
	sess := session.New(sequencer.New(store.NewMemory()), clk)

	printers, err := printer.NewManager([]string{"counter=network://10.0.0.1"})
	require.NoError(t, err)
	pool := printer.NewConnectionPool(func(context.Context, printer.Target) (printer.Connection, error) {
		return nopConn{}, nil
	})
	queue := printer.NewPrintQueue(pool, printers, printer.WithPollInterval(5*time.Millisecond))
	t.Cleanup(queue.Stop)

	return NewExecutor(desk.New(sess, printers, queue, receipt.Options{}, clk, nil), nil)
}

func run(t *testing.T, e *Executor, cmd string) *Result {
	t.Helper()
	return e.Execute(context.Background(), cmd)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"   ", []string{}},
		{"item list", []string{"item", "list"}},
		{`customer "Nok Somsri"`, []string{"customer", "Nok Somsri"}},
		{`item add 'Box A' province="Chiang Mai"`, []string{"item", "add", "Box A", "province=Chiang Mai"}},
		{`customer ""`, []string{"customer", ""}},
		{"totals\t ", []string{"totals"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCommand(tt.in), tt.in)
	}
}

func TestExecute_UnknownAndEmpty(t *testing.T) {
	e := newTestExecutor(t)

	res := run(t, e, "")
	assert.False(t, res.Success)
	assert.Equal(t, "empty command", res.Error)

	res = run(t, e, "dance")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown command: dance")

	res = run(t, e, "help")
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "item add <name>")
}

func TestCustomer(t *testing.T) {
	e := newTestExecutor(t)

	res := run(t, e, "customer Nok Somsri")
	require.True(t, res.Success)
	assert.Equal(t, "Nok Somsri", e.desk.Session.Snapshot().CustomerName)

	res = run(t, e, "customer")
	require.True(t, res.Success)
	assert.Empty(t, e.desk.Session.Snapshot().CustomerName)
}

func TestItemAdd(t *testing.T) {
	e := newTestExecutor(t)

	res := run(t, e, `item add Box A shipping=50 packaging=10 company=thailand-post receiver=Somchai province="Chiang Mai"`)
	require.True(t, res.Success, res.Error)

	item := res.Data["item"].(ledger.Item)
	assert.Equal(t, "Box A", item.Name)
	assert.True(t, item.ShippingCost.Equal(ledger.ParseAmount("50")))
	assert.Equal(t, "thailand-post", item.ShippingCompany)
	assert.Equal(t, "Chiang Mai", item.Province)
	assert.False(t, item.OtherCost.IsSet())

	totals := e.desk.Session.Totals()
	assert.Equal(t, 1, totals.ItemCount)
	assert.Equal(t, "60", totals.GrandTotal.String())
}

func TestItemAdd_BadNumberReadsAsZero(t *testing.T) {
	e := newTestExecutor(t)

	res := run(t, e, "item add Box shipping=abc other=xyz")
	require.True(t, res.Success, res.Error)

	item := res.Data["item"].(ledger.Item)
	assert.True(t, item.ShippingCost.IsZero())
	assert.True(t, item.OtherCost.IsSet())
	assert.True(t, item.OtherCost.Value().IsZero())
}

func TestItemAdd_Rejected(t *testing.T) {
	e := newTestExecutor(t)

	assert.False(t, run(t, e, "item add").Success)
	assert.False(t, run(t, e, "item add Box colour=red").Success)

	res := run(t, e, "item add name= shipping=5")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "name")

	res = run(t, e, "item add Box discount=-5")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "discount")

	assert.Zero(t, e.desk.Session.Totals().ItemCount)
}

func TestItemUpdateAndRemove(t *testing.T) {
	e := newTestExecutor(t)

	res := run(t, e, "item add Box shipping=50 packaging=10 discount=5")
	require.True(t, res.Success)
	id := res.Data["item"].(ledger.Item).ID

	res = run(t, e, "item update "+id+" shipping=70 discount=none")
	require.True(t, res.Success, res.Error)
	updated := res.Data["item"].(ledger.Item)
	assert.Equal(t, "Box", updated.Name)
	assert.Equal(t, "70", updated.ShippingCost.String())
	assert.Equal(t, "10", updated.PackagingCost.String())
	assert.False(t, updated.Discount.IsSet())

	res = run(t, e, "item update missing shipping=1")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "item not found")

	res = run(t, e, "item update "+id+" stray")
	assert.False(t, res.Success)

	res = run(t, e, "item list")
	require.True(t, res.Success)
	assert.Contains(t, res.Message, "1. Box  80.00")

	res = run(t, e, "item remove "+id)
	require.True(t, res.Success)
	assert.Equal(t, true, res.Data["removed"])

	res = run(t, e, "item remove "+id)
	require.True(t, res.Success)
	assert.Equal(t, false, res.Data["removed"])
}

func TestTotals(t *testing.T) {
	e := newTestExecutor(t)
	require.True(t, run(t, e, "item add A shipping=1000 packaging=234.5").Success)

	res := run(t, e, "totals")
	require.True(t, res.Success)
	assert.Contains(t, res.Message, "Grand total: 1,234.50")
}

func TestReceiptCommands(t *testing.T) {
	e := newTestExecutor(t)
	require.True(t, run(t, e, "item add A shipping=50").Success)

	res := run(t, e, "receipt number")
	require.True(t, res.Success)
	assert.Equal(t, "S36_20240115_01", res.Message)

	res = run(t, e, "receipt show 40")
	require.True(t, res.Success)
	assert.Contains(t, res.Message, "S36_20240115_01")
	assert.Equal(t, "S36_20240115_01", res.Data["receipt_number"])

	require.True(t, run(t, e, "receipt reset").Success)
	assert.Zero(t, e.desk.Session.Totals().ItemCount)
	assert.Nil(t, e.desk.Session.CurrentStamp())

	res = run(t, e, "receipt number")
	require.True(t, res.Success)
	assert.Equal(t, "S36_20240115_02", res.Message)

	assert.False(t, run(t, e, "receipt burn").Success)
}

func TestReceiptExport(t *testing.T) {
	e := newTestExecutor(t)
	path := filepath.Join(t.TempDir(), "layout.receipt")

	res := run(t, e, "receipt export "+path)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, path, res.Data["path"])
	assert.Nil(t, e.desk.Session.CurrentStamp(), "export must not reserve a number")

	tmpl, err := receipt.LoadTemplate(path)
	require.NoError(t, err)
	assert.NotEmpty(t, tmpl.Commands)

	assert.False(t, run(t, e, "receipt export").Success)
	assert.False(t, run(t, e, "receipt export "+filepath.Join(path, "nested", "x.receipt")).Success)
}

func TestPrintAndJobs(t *testing.T) {
	e := newTestExecutor(t)
	require.True(t, run(t, e, "item add A shipping=50").Success)

	res := run(t, e, "print nowhere")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "printer not found")

	res = run(t, e, "print counter")
	require.True(t, res.Success, res.Error)
	jobID := res.Data["job_id"].(string)
	assert.Equal(t, "S36_20240115_01", res.Data["receipt_number"])

	require.Eventually(t, func() bool {
		r := run(t, e, "job status "+jobID)
		return r.Success && r.Data["job"].(printer.PrintJob).Status == printer.StatusCompleted
	}, 5*time.Second, 5*time.Millisecond)

	res = run(t, e, "job list")
	require.True(t, res.Success)
	assert.Contains(t, res.Message, jobID)

	res = run(t, e, "job clear")
	require.True(t, res.Success)
	assert.Equal(t, "Cleared 1 completed job(s)", res.Message)

	assert.False(t, run(t, e, "job status "+jobID).Success)
}

func TestPrinterList(t *testing.T) {
	e := newTestExecutor(t)

	res := run(t, e, "printer list")
	require.True(t, res.Success)
	assert.Contains(t, res.Message, "counter=network://10.0.0.1:9100")
	assert.Len(t, res.Data["printers"], 1)

	assert.False(t, run(t, e, "printer rename").Success)
}
