package printer

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job statuses.
const (
	StatusQueued    = "queued"
	StatusPrinting  = "printing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrUnknownPrinter is returned when a job names a printer that is not configured.
var ErrUnknownPrinter = errors.New("unknown printer")

// Sender delivers raw printer data to a target.
type Sender interface {
	Send(ctx context.Context, t Target, data []byte) error
}

// PrintJob is one receipt waiting for or sent to a printer.
type PrintJob struct {
	ID            string    `json:"id"`
	PrinterID     string    `json:"printer_id"`
	ReceiptNumber string    `json:"receipt_number"`
	Status        string    `json:"status"`
	Retries       int       `json:"retries"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	data        []byte
	nextAttempt time.Time
}

// PrintQueue prints jobs one at a time on a background worker, retrying
// failures up to a limit.
type PrintQueue struct {
	jobs       []*PrintJob
	mu         sync.Mutex
	sender     Sender
	manager    *Manager
	maxRetries int
	retryDelay time.Duration
	interval   time.Duration
	lg         *zap.Logger
	onChange   func(PrintJob)
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// QueueOption configures a PrintQueue.
type QueueOption func(*PrintQueue)

// WithMaxRetries sets how many failed attempts mark a job failed.
func WithMaxRetries(n int) QueueOption {
	return func(q *PrintQueue) {
		if n > 0 {
			q.maxRetries = n
		}
	}
}

// WithRetryDelay sets the wait between attempts of a failing job.
func WithRetryDelay(d time.Duration) QueueOption {
	return func(q *PrintQueue) {
		q.retryDelay = d
	}
}

// WithPollInterval sets how often the worker looks for work.
func WithPollInterval(d time.Duration) QueueOption {
	return func(q *PrintQueue) {
		if d > 0 {
			q.interval = d
		}
	}
}

// WithQueueLogger sets the logger.
func WithQueueLogger(lg *zap.Logger) QueueOption {
	return func(q *PrintQueue) {
		q.lg = lg
	}
}

// WithOnChange registers a callback invoked after every job state change.
// It runs on the worker goroutine without the queue lock held.
func WithOnChange(fn func(PrintJob)) QueueOption {
	return func(q *PrintQueue) {
		q.onChange = fn
	}
}

// NewPrintQueue creates a queue and starts its worker.
func NewPrintQueue(sender Sender, manager *Manager, opts ...QueueOption) *PrintQueue {
	ctx, cancel := context.WithCancel(context.Background())

	q := &PrintQueue{
		jobs:       make([]*PrintJob, 0),
		sender:     sender,
		manager:    manager,
		maxRetries: 3,
		retryDelay: time.Second,
		interval:   100 * time.Millisecond,
		lg:         zap.NewNop(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(q)
	}

	q.wg.Add(1)
	go q.worker()

	return q
}

// Enqueue adds a job printing data on printerID.
func (q *PrintQueue) Enqueue(printerID, receiptNumber string, data []byte) (string, error) {
	if _, ok := q.manager.Get(printerID); !ok {
		return "", errors.Wrap(ErrUnknownPrinter, printerID)
	}

	now := time.Now()
	job := &PrintJob{
		ID:            uuid.NewString(),
		PrinterID:     printerID,
		ReceiptNumber: receiptNumber,
		Status:        StatusQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
		data:          data,
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	snapshot := *job
	q.mu.Unlock()

	q.lg.Info("Print job queued",
		zap.String("job", job.ID),
		zap.String("printer", printerID),
		zap.String("receipt", receiptNumber))
	q.notify(snapshot)

	return job.ID, nil
}

func (q *PrintQueue) worker() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.processNextJob()
		}
	}
}

func (q *PrintQueue) processNextJob() {
	now := time.Now()

	q.mu.Lock()
	var job *PrintJob
	for _, j := range q.jobs {
		if j.Status == StatusQueued && !now.Before(j.nextAttempt) {
			job = j
			job.Status = StatusPrinting
			job.UpdatedAt = now
			break
		}
	}
	var started PrintJob
	if job != nil {
		started = *job
	}
	q.mu.Unlock()

	if job == nil {
		return
	}
	q.notify(started)

	err := q.printJob(job)

	q.mu.Lock()
	job.UpdatedAt = time.Now()
	if err != nil {
		job.Retries++
		job.Error = err.Error()
		if job.Retries >= q.maxRetries {
			job.Status = StatusFailed
		} else {
			job.Status = StatusQueued
			job.nextAttempt = job.UpdatedAt.Add(q.retryDelay)
		}
	} else {
		job.Status = StatusCompleted
		job.Error = ""
	}
	finished := *job
	q.mu.Unlock()

	switch finished.Status {
	case StatusFailed:
		q.lg.Error("Print job failed",
			zap.String("job", finished.ID), zap.Int("retries", finished.Retries), zap.Error(err))
	case StatusQueued:
		q.lg.Warn("Print job failed, retrying",
			zap.String("job", finished.ID), zap.Int("retries", finished.Retries),
			zap.Int("max_retries", q.maxRetries), zap.Error(err))
	default:
		q.lg.Info("Print job completed", zap.String("job", finished.ID))
	}
	q.notify(finished)
}

func (q *PrintQueue) printJob(job *PrintJob) error {
	t, ok := q.manager.Get(job.PrinterID)
	if !ok {
		return errors.Wrap(ErrUnknownPrinter, job.PrinterID)
	}
	return q.sender.Send(q.ctx, t, job.data)
}

func (q *PrintQueue) notify(job PrintJob) {
	if q.onChange != nil {
		q.onChange(job)
	}
}

// Job returns a copy of the job with the given id.
func (q *PrintQueue) Job(id string) (PrintJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.jobs {
		if job.ID == id {
			return *job, true
		}
	}
	return PrintJob{}, false
}

// Jobs returns copies of all jobs in submission order.
func (q *PrintQueue) Jobs() []PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]PrintJob, len(q.jobs))
	for i, job := range q.jobs {
		jobs[i] = *job
	}
	return jobs
}

// ClearCompleted removes completed jobs and returns how many were removed.
func (q *PrintQueue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	filtered := make([]*PrintJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		if job.Status != StatusCompleted {
			filtered = append(filtered, job)
		}
	}
	removed := len(q.jobs) - len(filtered)
	q.jobs = filtered
	return removed
}

// Stop stops the worker and waits for it to exit.
func (q *PrintQueue) Stop() {
	q.cancel()
	q.wg.Wait()
}
