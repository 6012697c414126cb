// Package desk ties the session, the receipt layout and the print queue into the
// operations every front end (HTTP, command line, terminal UI) shares.
package desk

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/thereceipt/parcel-receipt/internal/clock"
	"github.com/thereceipt/parcel-receipt/internal/printer"
	"github.com/thereceipt/parcel-receipt/internal/receipt"
	"github.com/thereceipt/parcel-receipt/internal/renderer"
	"github.com/thereceipt/parcel-receipt/internal/session"
)

// ErrPrintingDisabled is returned by Print when no print queue is configured.
var ErrPrintingDisabled = errors.New("printing is not configured")

// Desk is the counter a receipt is built and printed at.
type Desk struct {
	Session  *session.Session
	Printers *printer.Manager
	Queue    *printer.PrintQueue
	Options  receipt.Options

	clock clock.Clock
	lg    *zap.Logger
}

// New creates a desk. printers and queue may be nil when printing is disabled.
func New(sess *session.Session, printers *printer.Manager, queue *printer.PrintQueue, opts receipt.Options, clk clock.Clock, lg *zap.Logger) *Desk {
	if lg == nil {
		lg = zap.NewNop()
	}
	if printers == nil {
		printers, _ = printer.NewManager(nil)
	}
	return &Desk{
		Session:  sess,
		Printers: printers,
		Queue:    queue,
		Options:  opts,
		clock:    clk,
		lg:       lg,
	}
}

// View reserves the session's receipt number if needed and returns what the
// receipt shows.
func (d *Desk) View(ctx context.Context) (receipt.View, error) {
	snap, totals, stamp, err := d.Session.View(ctx)
	if err != nil {
		return receipt.View{}, errors.Wrap(err, "reserve receipt number")
	}
	return receipt.View{
		Snapshot:  snap,
		Totals:    totals,
		Stamp:     stamp,
		PrintedAt: d.clock.Now(),
	}, nil
}

// Draft returns the receipt view without reserving a number. The receipt
// number is blank until the first preview or print.
func (d *Desk) Draft() receipt.View {
	view := receipt.View{
		Snapshot:  d.Session.Snapshot(),
		Totals:    d.Session.Totals(),
		PrintedAt: d.clock.Now(),
	}
	if stamp := d.Session.CurrentStamp(); stamp != nil {
		view.Stamp = *stamp
	}
	return view
}

// Document builds the receipt document for the current session.
func (d *Desk) Document(ctx context.Context) (*receipt.Job, error) {
	view, err := d.View(ctx)
	if err != nil {
		return nil, err
	}
	return receipt.Build(view, d.Options), nil
}

// PreviewPNG writes the rendered receipt as PNG.
func (d *Desk) PreviewPNG(ctx context.Context, w io.Writer) error {
	job, err := d.Document(ctx)
	if err != nil {
		return err
	}
	return job.WritePNG(w)
}

// PreviewText returns the receipt as plain text. A width of zero uses the
// paper's column count.
func (d *Desk) PreviewText(ctx context.Context, width int) (string, error) {
	view, err := d.View(ctx)
	if err != nil {
		return "", err
	}
	return receipt.Text(view, d.Options, width), nil
}

// PrintResult identifies a queued print.
type PrintResult struct {
	JobID         string `json:"job_id"`
	PrinterID     string `json:"printer_id"`
	ReceiptNumber string `json:"receipt_number"`
}

// Print renders the current receipt and queues it on printerID.
func (d *Desk) Print(ctx context.Context, printerID string) (PrintResult, error) {
	if d.Queue == nil {
		return PrintResult{}, ErrPrintingDisabled
	}
	if _, ok := d.Printers.Get(printerID); !ok {
		return PrintResult{}, errors.Wrap(printer.ErrUnknownPrinter, printerID)
	}

	job, err := d.Document(ctx)
	if err != nil {
		return PrintResult{}, err
	}
	img, err := job.Render()
	if err != nil {
		return PrintResult{}, err
	}

	number := job.Data.Vars["receipt_number"]
	data := printer.EncodeReceipt(renderer.Monochrome(img))

	jobID, err := d.Queue.Enqueue(printerID, number, data)
	if err != nil {
		return PrintResult{}, err
	}

	d.lg.Info("Receipt sent to print queue",
		zap.String("receipt_number", number),
		zap.String("printer", printerID),
		zap.String("job", jobID))

	return PrintResult{JobID: jobID, PrinterID: printerID, ReceiptNumber: number}, nil
}
