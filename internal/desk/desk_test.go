package desk

import (
	"bytes"
	"context"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/parcel-receipt/internal/clock"
	"github.com/thereceipt/parcel-receipt/internal/ledger"
	"github.com/thereceipt/parcel-receipt/internal/printer"
	"github.com/thereceipt/parcel-receipt/internal/receipt"
	"github.com/thereceipt/parcel-receipt/internal/sequencer"
	"github.com/thereceipt/parcel-receipt/internal/session"
	"github.com/thereceipt/parcel-receipt/internal/store"
)

var testNow = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

type bufferConn struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (c bufferConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c bufferConn) Close() error { return nil }

type fixture struct {
	desk    *Desk
	mu      sync.Mutex
	printed bytes.Buffer
}

func (f *fixture) printedLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.printed.Len()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	clk := clock.NewFixed(testNow)

	sess := session.New(sequencer.New(store.NewMemory()), clk)
	printers, err := printer.NewManager([]string{"front=network://10.0.0.1"})
	require.NoError(t, err)

	pool := printer.NewConnectionPool(func(ctx context.Context, target printer.Target) (printer.Connection, error) {
		return bufferConn{mu: &f.mu, buf: &f.printed}, nil
	})
	queue := printer.NewPrintQueue(pool, printers, printer.WithPollInterval(5*time.Millisecond))
	t.Cleanup(queue.Stop)

	f.desk = New(sess, printers, queue, receipt.Options{PaperWidth: "58mm"}, clk, nil)
	return f
}

func addParcel(t *testing.T, d *Desk) {
	t.Helper()
	_, err := d.Session.AddItem(ledger.Fields{
		Name:          "Box A",
		ShippingCost:  decimal.NewFromInt(50),
		PackagingCost: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
}

func TestPreviewText_ReservesNumberOnce(t *testing.T) {
	f := newFixture(t)
	addParcel(t, f.desk)
	ctx := context.Background()

	text, err := f.desk.PreviewText(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "S36_20240115_01")
	assert.Contains(t, text, "60.00")

	text, err = f.desk.PreviewText(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "S36_20240115_01")
}

func TestDraft_DoesNotReserve(t *testing.T) {
	f := newFixture(t)
	addParcel(t, f.desk)

	view := f.desk.Draft()
	assert.Empty(t, view.Stamp.ReceiptNumber)
	assert.Nil(t, f.desk.Session.CurrentStamp())
	assert.Equal(t, 1, view.Totals.ItemCount)

	_, err := f.desk.PreviewText(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "S36_20240115_01", f.desk.Draft().Stamp.ReceiptNumber)
}

func TestPreviewPNG(t *testing.T) {
	f := newFixture(t)
	addParcel(t, f.desk)

	var buf bytes.Buffer
	require.NoError(t, f.desk.PreviewPNG(context.Background(), &buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 384, img.Bounds().Dx())
}

func TestPrint(t *testing.T) {
	f := newFixture(t)
	addParcel(t, f.desk)

	res, err := f.desk.Print(context.Background(), "front")
	require.NoError(t, err)
	assert.Equal(t, "front", res.PrinterID)
	assert.Equal(t, "S36_20240115_01", res.ReceiptNumber)

	require.Eventually(t, func() bool {
		job, ok := f.desk.Queue.Job(res.JobID)
		return ok && job.Status == printer.StatusCompleted
	}, 5*time.Second, 5*time.Millisecond)
	assert.Positive(t, f.printedLen())
}

func TestPrint_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.desk.Print(context.Background(), "missing")
	assert.True(t, errors.Is(err, printer.ErrUnknownPrinter))
	assert.Nil(t, f.desk.Session.CurrentStamp())

	noQueue := New(f.desk.Session, nil, nil, receipt.Options{}, clock.NewFixed(testNow), nil)
	_, err = noQueue.Print(context.Background(), "front")
	assert.True(t, errors.Is(err, ErrPrintingDisabled))
}
