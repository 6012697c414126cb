// Package tui is the terminal front end of the receipt desk: an order form, the
// item list, a live text preview, the print queue and a command line.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/thereceipt/parcel-receipt/internal/command"
	"github.com/thereceipt/parcel-receipt/internal/desk"
	"github.com/thereceipt/parcel-receipt/internal/ledger"
	"github.com/thereceipt/parcel-receipt/internal/printer"
	"github.com/thereceipt/parcel-receipt/internal/receipt"
	"github.com/thereceipt/parcel-receipt/internal/session"
)

// App is the tview application.
type App struct {
	App *tview.Application

	desk     *desk.Desk
	executor *command.Executor
	lg       *zap.Logger
	addr     string

	form      *tview.Form
	customer  *tview.InputField
	name      *tview.InputField
	company   *tview.DropDown
	receiver  *tview.InputField
	province  *tview.InputField
	shipping  *tview.InputField
	packaging *tview.InputField
	otherOn   *tview.Checkbox
	other     *tview.InputField
	discOn    *tview.Checkbox
	discount  *tview.InputField
	printers  *tview.DropDown

	items        *tview.List
	preview      *tview.TextView
	jobsTable    *tview.Table
	logs         *LogPanel
	commandInput *tview.InputField

	// editingID is the item loaded into the form, empty when adding.
	editingID string

	dirty        chan struct{}
	stale        atomic.Bool
	resetPending atomic.Bool
}

// New creates the terminal UI over logs, which may already hold lines
// written before the UI existed. addr is shown in the startup log line.
func New(d *desk.Desk, executor *command.Executor, logs *LogPanel, addr string, lg *zap.Logger) *App {
	if lg == nil {
		lg = zap.NewNop()
	}
	if logs == nil {
		logs = NewLogPanel()
	}
	t := &App{
		App:       tview.NewApplication(),
		logs:      logs,
		desk:      d,
		executor:  executor,
		lg:        lg,
		addr:      addr,
		dirty:     make(chan struct{}, 1),
	}
	t.setupUI()
	return t
}

func (t *App) setupUI() {
	lang := t.desk.Options.Language

	t.customer = tview.NewInputField().SetLabel("Customer ").SetFieldWidth(30)
	t.customer.SetChangedFunc(func(text string) {
		t.desk.Session.SetCustomerName(text)
	})

	t.name = tview.NewInputField().SetLabel("Item ").SetFieldWidth(30)
	t.company = tview.NewDropDown().SetLabel("Carrier ").SetOptions(companyOptions(lang), nil)
	t.company.SetCurrentOption(0)
	t.receiver = tview.NewInputField().SetLabel("Receiver ").SetFieldWidth(30)
	t.province = tview.NewInputField().SetLabel("Province ").SetFieldWidth(30)
	t.shipping = amountField("Shipping ")
	t.packaging = amountField("Packaging ")
	t.otherOn = tview.NewCheckbox().SetLabel("Other cost ")
	t.other = amountField("  amount ")
	t.discOn = tview.NewCheckbox().SetLabel("Discount ")
	t.discount = amountField("  amount ")
	t.printers = tview.NewDropDown().SetLabel("Printer ")

	t.form = tview.NewForm().
		AddFormItem(t.customer).
		AddFormItem(t.name).
		AddFormItem(t.company).
		AddFormItem(t.receiver).
		AddFormItem(t.province).
		AddFormItem(t.shipping).
		AddFormItem(t.packaging).
		AddFormItem(t.otherOn).
		AddFormItem(t.other).
		AddFormItem(t.discOn).
		AddFormItem(t.discount).
		AddFormItem(t.printers).
		AddButton("Add", t.submitItem).
		AddButton("Remove", t.removeItem).
		AddButton("Clear", t.clearForm).
		AddButton("Preview", t.reservePreview).
		AddButton("Print", t.print).
		AddButton("New receipt", t.newReceipt)
	t.form.SetBorder(true)
	t.form.SetTitle("Order")

	t.items = tview.NewList().ShowSecondaryText(true)
	t.items.SetBorder(true)
	t.items.SetTitle("Items")

	t.preview = tview.NewTextView()
	t.preview.SetBorder(true)
	t.preview.SetTitle("Receipt")

	t.jobsTable = tview.NewTable()
	t.jobsTable.SetBorder(true)
	t.jobsTable.SetTitle("Print Queue")

	t.logs.view.SetChangedFunc(t.invalidate)

	t.commandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0).
		SetPlaceholder("Type a command (e.g., 'help')").
		SetDoneFunc(func(key tcell.Key) {
			if key == tcell.KeyEnter {
				t.executeCommand(t.commandInput.GetText())
				t.commandInput.SetText("")
			}
		})

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.form, 0, 3, true).
		AddItem(t.items, 0, 2, false)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.preview, 0, 3, false).
		AddItem(t.jobsTable, 0, 1, false)

	top := tview.NewFlex().
		AddItem(left, 0, 1, true).
		AddItem(right, 0, 1, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 0, 3, true).
		AddItem(t.logs.view, 0, 1, false).
		AddItem(t.commandInput, 1, 0, false)

	focusOrder := []tview.Primitive{t.form, t.items, t.commandInput}
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		case tcell.KeyF2:
			t.cycleFocus(focusOrder)
			return nil
		case tcell.KeyEsc:
			if t.commandInput.HasFocus() || t.items.HasFocus() {
				t.App.SetFocus(t.form)
				return nil
			}
		}
		return event
	})

	t.App.SetRoot(root, true)
}

func amountField(label string) *tview.InputField {
	return tview.NewInputField().
		SetLabel(label).
		SetFieldWidth(12).
		SetAcceptanceFunc(func(text string, last rune) bool {
			return last == '.' || last == ',' || (last >= '0' && last <= '9')
		})
}

func (t *App) cycleFocus(order []tview.Primitive) {
	for i, p := range order {
		if p.HasFocus() {
			t.App.SetFocus(order[(i+1)%len(order)])
			return
		}
	}
	t.App.SetFocus(order[0])
}

// Run draws the UI until ctx is done or the user quits.
func (t *App) Run(ctx context.Context) error {
	cancel := t.desk.Session.Subscribe(func(ev session.Event) {
		if ev.Kind == session.EventReset {
			t.resetPending.Store(true)
		}
		t.stale.Store(true)
		t.invalidate()
	})
	defer cancel()

	t.refreshPrinters()
	t.refresh(true)
	t.AddLog(fmt.Sprintf("Receipt desk ready, API on %s", t.addr), "info")

	if ctx.Err() != nil {
		return nil
	}

	done := make(chan struct{})
	defer close(done)
	go t.updateLoop(ctx, done)

	return t.App.Run()
}

// invalidate asks the update loop for a redraw. It never blocks, so session
// and queue callbacks may call it from the event loop itself.
func (t *App) invalidate() {
	select {
	case t.dirty <- struct{}{}:
	default:
	}
}

// updateLoop owns every QueueUpdate call. Stop is queued rather than called
// so a ctx cancelled before App.Run has a screen still ends Run.
func (t *App) updateLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			t.queue(done, t.App.Stop)
			return
		case <-t.dirty:
			t.queue(done, func() {
				if t.stale.Swap(false) {
					t.refresh(t.resetPending.Swap(false))
				}
			})
		case <-ticker.C:
			t.queue(done, t.refreshJobs)
		}
	}
}

// queue runs f on the event loop and waits, unless the UI stops first.
func (t *App) queue(done <-chan struct{}, f func()) {
	ran := make(chan struct{})
	go func() {
		t.App.QueueUpdateDraw(f)
		close(ran)
	}()
	select {
	case <-ran:
	case <-done:
	}
}

// JobChanged redraws the print queue. Safe to call from any goroutine.
func (t *App) JobChanged(job printer.PrintJob) {
	t.stale.Store(true)
	t.invalidate()
	if job.Status == printer.StatusFailed {
		t.AddLog(fmt.Sprintf("Job %s on %s failed: %s", shortID(job.ID), job.PrinterID, job.Error), "error")
	}
}

func (t *App) refresh(reset bool) {
	if reset {
		t.customer.SetText(t.desk.Session.Snapshot().CustomerName)
		t.clearForm()
	}
	t.refreshItems()
	t.refreshPreview()
	t.refreshJobs()
}

func (t *App) refreshItems() {
	current := t.items.GetCurrentItem()
	t.items.Clear()

	snap := t.desk.Session.Snapshot()
	if len(snap.Items) == 0 {
		t.items.AddItem("No items", "", 0, nil)
		return
	}
	lang := t.desk.Options.Language
	for i, item := range snap.Items {
		id := item.ID
		secondary := fmt.Sprintf("  %s  %s", receipt.FormatAmount(item.Net()), receipt.CarrierName(item.ShippingCompany, lang))
		t.items.AddItem(fmt.Sprintf("%d. %s", i+1, item.Name), secondary, 0, func() {
			t.editItem(id)
		})
	}
	if current < t.items.GetItemCount() {
		t.items.SetCurrentItem(current)
	}
}

func (t *App) refreshPreview() {
	t.preview.SetText(receipt.Text(t.desk.Draft(), t.desk.Options, 0))
}

func (t *App) refreshPrinters() {
	targets := t.desk.Printers.All()
	options := make([]string, 0, len(targets))
	for _, target := range targets {
		options = append(options, target.ID)
	}
	if len(options) == 0 {
		options = append(options, "(none)")
	}
	t.printers.SetOptions(options, nil)
	t.printers.SetCurrentOption(0)
}

func (t *App) refreshJobs() {
	t.jobsTable.Clear()

	for col, title := range []string{"Status", "Printer", "Receipt", "Retries", "Age"} {
		t.jobsTable.SetCell(0, col, tview.NewTableCell(title).SetAlign(tview.AlignCenter).SetSelectable(false))
	}
	if t.desk.Queue == nil {
		return
	}

	for i, job := range t.desk.Queue.Jobs() {
		row := i + 1
		t.jobsTable.SetCell(row, 0, tview.NewTableCell(statusIcon(job.Status)+" "+job.Status))
		t.jobsTable.SetCell(row, 1, tview.NewTableCell(job.PrinterID))
		t.jobsTable.SetCell(row, 2, tview.NewTableCell(job.ReceiptNumber))
		t.jobsTable.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d", job.Retries)))
		t.jobsTable.SetCell(row, 4, tview.NewTableCell(time.Since(job.CreatedAt).Truncate(time.Second).String()))
	}
}

func (t *App) values() formValues {
	index, _ := t.company.GetCurrentOption()
	return formValues{
		Name:            t.name.GetText(),
		Company:         companyID(index),
		Receiver:        t.receiver.GetText(),
		Province:        t.province.GetText(),
		Shipping:        t.shipping.GetText(),
		Packaging:       t.packaging.GetText(),
		OtherEnabled:    t.otherOn.IsChecked(),
		Other:           t.other.GetText(),
		DiscountEnabled: t.discOn.IsChecked(),
		Discount:        t.discount.GetText(),
	}
}

func (t *App) load(v formValues) {
	t.name.SetText(v.Name)
	t.company.SetCurrentOption(companyIndex(v.Company))
	t.receiver.SetText(v.Receiver)
	t.province.SetText(v.Province)
	t.shipping.SetText(v.Shipping)
	t.packaging.SetText(v.Packaging)
	t.otherOn.SetChecked(v.OtherEnabled)
	t.other.SetText(v.Other)
	t.discOn.SetChecked(v.DiscountEnabled)
	t.discount.SetText(v.Discount)
}

func (t *App) setEditing(id string) {
	t.editingID = id
	label := "Add"
	title := "Order"
	if id != "" {
		label = "Save"
		title = "Order (editing)"
	}
	t.form.GetButton(0).SetLabel(label)
	t.form.SetTitle(title)
}

func (t *App) submitItem() {
	f := t.values().fields()

	var (
		item ledger.Item
		err  error
	)
	if t.editingID != "" {
		item, err = t.desk.Session.UpdateItem(t.editingID, f)
	} else {
		item, err = t.desk.Session.AddItem(f)
	}
	if err != nil {
		t.AddLog(err.Error(), "error")
		return
	}

	t.AddLog(fmt.Sprintf("Saved %s (%s)", item.Name, receipt.FormatAmount(item.Net())), "info")
	t.clearForm()
	t.App.SetFocus(t.name)
}

func (t *App) editItem(id string) {
	item, ok := t.desk.Session.Item(id)
	if !ok {
		return
	}
	t.load(valuesFromItem(item))
	t.setEditing(id)
	t.App.SetFocus(t.form)
}

func (t *App) removeItem() {
	if t.editingID == "" {
		t.AddLog("Select an item to remove", "warning")
		return
	}
	if t.desk.Session.RemoveItem(t.editingID) {
		t.AddLog("Item removed", "info")
	}
	t.clearForm()
}

func (t *App) clearForm() {
	t.load(formValues{})
	t.setEditing("")
}

func (t *App) reservePreview() {
	text, err := t.desk.PreviewText(context.Background(), 0)
	if err != nil {
		t.AddLog(err.Error(), "error")
		return
	}
	t.preview.SetText(text)
}

func (t *App) print() {
	_, printerID := t.printers.GetCurrentOption()
	res, err := t.desk.Print(context.Background(), printerID)
	if err != nil {
		t.AddLog(fmt.Sprintf("Print failed: %v", err), "error")
		return
	}
	t.AddLog(fmt.Sprintf("Receipt %s queued on %s (job %s)", res.ReceiptNumber, res.PrinterID, shortID(res.JobID)), "info")
	t.refreshJobs()
}

func (t *App) newReceipt() {
	t.desk.Session.Reset()
	t.AddLog("Started a new receipt", "info")
}

func (t *App) executeCommand(cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}
	t.AddLog(cmd, "command")

	switch cmd {
	case "quit", "q":
		t.App.Stop()
		return
	case "clear":
		t.logs.view.Clear()
		return
	}

	res := t.executor.Execute(context.Background(), cmd)
	if !res.Success {
		t.AddLog(res.Error, "error")
		return
	}
	if res.Message != "" {
		t.AddLog(tview.Escape(res.Message), "info")
	}
	if strings.HasPrefix(cmd, "printer") {
		t.refreshPrinters()
	}
}

// AddLog appends a line to the log panel. Safe to call from any goroutine.
func (t *App) AddLog(message string, level string) {
	t.logs.Add(message, level)
}

func statusIcon(status string) string {
	switch status {
	case printer.StatusQueued:
		return "⏳"
	case printer.StatusPrinting:
		return "🟡"
	case printer.StatusCompleted:
		return "✅"
	case printer.StatusFailed:
		return "❌"
	default:
		return "⚪"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
