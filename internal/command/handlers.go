package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/thereceipt/parcel-receipt/internal/desk"
	"github.com/thereceipt/parcel-receipt/internal/ledger"
	"github.com/thereceipt/parcel-receipt/internal/printer"
	"github.com/thereceipt/parcel-receipt/internal/receipt"
)

// handleCustomer sets the customer name
// Usage: customer <name>
func (e *Executor) handleCustomer(args []string) *Result {
	name := strings.Join(args, " ")
	e.desk.Session.SetCustomerName(name)

	if name == "" {
		return &Result{Success: true, Message: "Cleared customer name"}
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("Customer set to %s", name),
		Data:    map[string]any{"customer_name": name},
	}
}

// handleItem handles item commands
// Usage: item add <name> [key=value...] | update <id> [key=value...] | remove <id> | list
func (e *Executor) handleItem(args []string) *Result {
	if len(args) == 0 {
		return failure("usage: item <add|update|remove|list>")
	}

	subcommand := args[0]
	args = args[1:]

	switch subcommand {
	case "add":
		nameParts, pairs := splitPairs(args)
		if len(nameParts) == 0 && !hasKey(pairs, "name") {
			return failure("usage: item add <name> [shipping=N] [packaging=N] [other=N] [discount=N] [receiver=TEXT] [company=ID] [province=TEXT]")
		}
		f := ledger.Fields{Name: strings.Join(nameParts, " ")}
		if err := applyPairs(&f, pairs); err != nil {
			return failure("%v", err)
		}
		item, err := e.desk.Session.AddItem(f)
		if err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Added %s (%s)", item.Name, item.ID),
			Data:    map[string]any{"item": item},
		}

	case "update":
		if len(args) < 2 {
			return failure("usage: item update <id> key=value...")
		}
		id := args[0]
		item, ok := e.desk.Session.Item(id)
		if !ok {
			return failure("item not found: %s", id)
		}
		extra, pairs := splitPairs(args[1:])
		if len(extra) > 0 {
			return failure("expected key=value, got %q", extra[0])
		}
		f := item.Fields()
		if err := applyPairs(&f, pairs); err != nil {
			return failure("%v", err)
		}
		updated, err := e.desk.Session.UpdateItem(id, f)
		if err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Updated %s (%s)", updated.Name, updated.ID),
			Data:    map[string]any{"item": updated},
		}

	case "remove":
		if len(args) < 1 {
			return failure("usage: item remove <id>")
		}
		removed := e.desk.Session.RemoveItem(args[0])
		msg := fmt.Sprintf("Removed item %s", args[0])
		if !removed {
			msg = fmt.Sprintf("No item %s", args[0])
		}
		return &Result{
			Success: true,
			Message: msg,
			Data:    map[string]any{"removed": removed},
		}

	case "list":
		snap := e.desk.Session.Snapshot()
		var b strings.Builder
		for i, item := range snap.Items {
			fmt.Fprintf(&b, "%d. %s  %s  [%s]\n", i+1, item.Name, receipt.FormatAmount(item.Net()), item.ID)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d item(s)\n%s", len(snap.Items), b.String()),
			Data:    map[string]any{"items": snap.Items},
		}

	default:
		return failure("unknown item subcommand: %s. Use: add, update, remove, list", subcommand)
	}
}

// handleTotals reports the ledger totals
func (e *Executor) handleTotals() *Result {
	t := e.desk.Session.Totals()
	msg := fmt.Sprintf("Parcels: %d\nShipping: %s\nPackaging: %s\nGrand total: %s",
		t.ItemCount,
		receipt.FormatAmount(t.TotalShipping),
		receipt.FormatAmount(t.TotalPackaging),
		receipt.FormatAmount(t.GrandTotal))
	return &Result{
		Success: true,
		Message: msg,
		Data:    map[string]any{"totals": t},
	}
}

// handleReceipt handles receipt commands
// Usage: receipt number | show [width] | reset | export <path>
func (e *Executor) handleReceipt(ctx context.Context, args []string) *Result {
	if len(args) == 0 {
		return failure("usage: receipt <number|show|reset|export>")
	}

	switch args[0] {
	case "number":
		stamp, err := e.desk.Session.Stamp(ctx)
		if err != nil {
			return failure("reserve receipt number: %v", err)
		}
		return &Result{
			Success: true,
			Message: stamp.ReceiptNumber,
			Data:    map[string]any{"stamp": stamp},
		}

	case "show":
		width := 0
		if len(args) > 1 {
			width = int(ledger.ParseAmount(args[1]).IntPart())
		}
		view, err := e.desk.View(ctx)
		if err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: receipt.Text(view, e.desk.Options, width),
			Data:    map[string]any{"receipt_number": view.Stamp.ReceiptNumber},
		}

	case "reset":
		e.desk.Session.Reset()
		return &Result{Success: true, Message: "Started a new receipt"}

	case "export":
		if len(args) < 2 {
			return failure("usage: receipt export <path>")
		}
		if err := receipt.ExportTemplate(args[1], e.desk.Options); err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Receipt layout written to %s", args[1]),
			Data:    map[string]any{"path": args[1]},
		}

	default:
		return failure("unknown receipt subcommand: %s. Use: number, show, reset, export", args[0])
	}
}

// handlePrint prints the current receipt
// Usage: print <printer-id>
func (e *Executor) handlePrint(ctx context.Context, args []string) *Result {
	if len(args) < 1 {
		return failure("usage: print <printer-id>")
	}

	res, err := e.desk.Print(ctx, args[0])
	if err != nil {
		if errors.Is(err, printer.ErrUnknownPrinter) {
			return failure("printer not found: %s", args[0])
		}
		return failure("%v", err)
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Print job queued: %s (%s)", res.JobID, res.ReceiptNumber),
		Data: map[string]any{
			"job_id":         res.JobID,
			"printer_id":     res.PrinterID,
			"receipt_number": res.ReceiptNumber,
		},
	}
}

// handlePrinter handles printer commands
// Usage: printer list | scan
func (e *Executor) handlePrinter(args []string) *Result {
	if len(args) == 0 {
		return failure("usage: printer <list|scan>")
	}

	switch args[0] {
	case "list":
		printers := e.desk.Printers.All()
		var b strings.Builder
		for _, p := range printers {
			fmt.Fprintf(&b, "%s  %s\n", p.ID, p.String())
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d printer(s)\n%s", len(printers), b.String()),
			Data:    map[string]any{"printers": printers},
		}

	case "scan":
		found := printer.Discover(e.lg)
		var b strings.Builder
		for _, d := range found {
			fmt.Fprintf(&b, "%s  %s\n", d.Target.String(), d.Description)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Detected %d printer(s)\n%s", len(found), b.String()),
			Data:    map[string]any{"printers": found},
		}

	default:
		return failure("unknown printer subcommand: %s. Use: list, scan", args[0])
	}
}

// handleJob handles job commands
// Usage: job list | status <id> | clear
func (e *Executor) handleJob(args []string) *Result {
	if len(args) == 0 {
		return failure("usage: job <list|status|clear>")
	}
	if e.desk.Queue == nil {
		return failure("%v", desk.ErrPrintingDisabled)
	}

	switch args[0] {
	case "list":
		jobs := e.desk.Queue.Jobs()
		var b strings.Builder
		for _, job := range jobs {
			fmt.Fprintf(&b, "%s  %s  %s  %s\n", job.ID, job.PrinterID, job.ReceiptNumber, job.Status)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d job(s)\n%s", len(jobs), b.String()),
			Data:    map[string]any{"jobs": jobs},
		}

	case "status":
		if len(args) < 2 {
			return failure("usage: job status <id>")
		}
		job, ok := e.desk.Queue.Job(args[1])
		if !ok {
			return failure("job not found: %s", args[1])
		}
		msg := fmt.Sprintf("%s: %s", job.ID, job.Status)
		if job.Error != "" {
			msg += " (" + job.Error + ")"
		}
		return &Result{
			Success: true,
			Message: msg,
			Data:    map[string]any{"job": job},
		}

	case "clear":
		n := e.desk.Queue.ClearCompleted()
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Cleared %d completed job(s)", n),
		}

	default:
		return failure("unknown job subcommand: %s. Use: list, status, clear", args[0])
	}
}

// handleHelp handles help command
func (e *Executor) handleHelp() *Result {
	helpText := `Available Commands:

  customer <name>
    Set the customer name (no name clears it)

  item add <name> [key=value...]
    Add a parcel. Keys: shipping, packaging, other, discount,
    receiver, company, province

  item update <id> [key=value...]
    Change fields of a parcel; unnamed fields keep their value.
    other=none or discount=none clears an optional amount

  item remove <id>
    Remove a parcel

  item list
    List parcels in order

  totals
    Show parcel count and totals

  receipt number
    Reserve (or show) this receipt's number

  receipt show [width]
    Show the receipt as text

  receipt reset
    Start a new receipt

  receipt export <path>
    Write the receipt layout as a .receipt file for receipt.template

  print <printer-id>
    Print the current receipt

  printer list
    List configured printers

  printer scan
    Look for USB and serial printers

  job list | job status <id> | job clear
    Inspect the print queue

  help
    Show this help message

Examples:
  customer "Nok Somsri"
  item add "Box A" shipping=50 packaging=10 company=thailand-post province="Chiang Mai"
  item update 6f1c... discount=20
  print counter
`

	return &Result{
		Success: true,
		Message: helpText,
	}
}

// splitPairs separates leading free words from key=value pairs.
func splitPairs(args []string) (words []string, pairs []string) {
	for i, arg := range args {
		if strings.Contains(arg, "=") {
			return words, args[i:]
		}
		words = append(words, arg)
	}
	return words, nil
}

func hasKey(pairs []string, key string) bool {
	for _, p := range pairs {
		if k, _, _ := strings.Cut(p, "="); strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// applyPairs sets item fields from key=value pairs. Numbers that do not parse
// read as zero, the same as the form.
func applyPairs(f *ledger.Fields, pairs []string) error {
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.Errorf("expected key=value, got %q", pair)
		}

		switch strings.ToLower(key) {
		case "name":
			f.Name = value
		case "shipping":
			f.ShippingCost = ledger.ParseAmount(value)
		case "packaging":
			f.PackagingCost = ledger.ParseAmount(value)
		case "other":
			f.OtherCost = optional(value)
		case "discount":
			f.Discount = optional(value)
		case "receiver":
			f.Receiver = value
		case "company":
			f.ShippingCompany = value
		case "province":
			f.Province = value
		default:
			return errors.Errorf("unknown key %q", key)
		}
	}
	return nil
}

func optional(value string) ledger.Amount {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none", "off":
		return ledger.None()
	}
	return ledger.Some(ledger.ParseAmount(value))
}
