// Package sequencer issues receipt numbers that are unique within a calendar day.
//
// The counter lives in a small persisted record keyed by date. Each call reads the
// record, advances it and writes it back. Within one process calls are serialized;
// across processes the read-modify-write is only atomic when the injected store
// implements AtomicStore. Two processes sharing a plain Store can both read the same
// counter and issue the same number.
package sequencer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// DefaultKey is the storage key of the counter record.
const DefaultKey = "receiptCounter"

// DefaultPrefix starts every receipt number.
const DefaultPrefix = "S36"

const dateKeyLayout = "2006-01-02"

// Store is the string key-value port the counter record is persisted through.
type Store interface {
	// Get returns the value for key. ok is false when the key has never been set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// AtomicStore is implemented by stores that can run a read-modify-write of one key
// atomically, across processes.
type AtomicStore interface {
	Store
	// Update calls fn with the current value and stores what fn returns.
	Update(ctx context.Context, key string, fn func(value string, ok bool) (string, error)) error
}

// Record is the persisted counter.
type Record struct {
	Date    string `json:"date"`
	Counter int    `json:"counter"`
}

// Advance returns the record that follows r on dateKey: counter+1 on the same date,
// 1 on any other date.
func Advance(r Record, dateKey string) Record {
	if r.Date != dateKey {
		return Record{Date: dateKey, Counter: 1}
	}
	return Record{Date: dateKey, Counter: r.Counter + 1}
}

// Result is an issued receipt number.
type Result struct {
	ReceiptNumber string    `json:"receipt_number"`
	Counter       int       `json:"counter"`
	Date          string    `json:"date"`
	IssuedAt      time.Time `json:"issued_at"`
}

// Sequencer issues receipt numbers.
type Sequencer struct {
	store  Store
	key    string
	prefix string
	lg     *zap.Logger
	mu     sync.Mutex
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithPrefix sets the receipt number prefix.
func WithPrefix(prefix string) Option {
	return func(s *Sequencer) {
		s.prefix = prefix
	}
}

// WithKey sets the storage key of the counter record.
func WithKey(key string) Option {
	return func(s *Sequencer) {
		s.key = key
	}
}

// WithLogger sets the logger used for storage warnings.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Sequencer) {
		s.lg = lg
	}
}

// New creates a Sequencer over store.
func New(store Store, opts ...Option) *Sequencer {
	s := &Sequencer{
		store:  store,
		key:    DefaultKey,
		prefix: DefaultPrefix,
		lg:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next advances the counter for now's calendar date and returns the new number.
//
// Storage failures never fail the call: an unreadable or corrupt record counts as
// absent and a failed write is logged. Only ctx cancellation is returned.
func (s *Sequencer) Next(ctx context.Context, now time.Time) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dateKey := now.Format(dateKeyLayout)

	var rec Record
	if atomic, ok := s.store.(AtomicStore); ok {
		err := atomic.Update(ctx, s.key, func(value string, ok bool) (string, error) {
			rec = Advance(s.decode(value, ok), dateKey)
			return encode(rec)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			s.lg.Warn("Atomic counter update failed, falling back to read-modify-write",
				zap.String("key", s.key), zap.Error(err))
			rec = s.readModifyWrite(ctx, dateKey)
		}
	} else {
		rec = s.readModifyWrite(ctx, dateKey)
	}

	return Result{
		ReceiptNumber: Format(s.prefix, now, rec.Counter),
		Counter:       rec.Counter,
		Date:          rec.Date,
		IssuedAt:      now,
	}, nil
}

func (s *Sequencer) readModifyWrite(ctx context.Context, dateKey string) Record {
	value, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		s.lg.Warn("Counter record unreadable, starting from empty",
			zap.String("key", s.key), zap.Error(err))
		value, ok = "", false
	}

	rec := Advance(s.decode(value, ok), dateKey)

	data, err := encode(rec)
	if err == nil {
		err = s.store.Set(ctx, s.key, data)
	}
	if err != nil {
		s.lg.Warn("Counter record not persisted",
			zap.String("key", s.key), zap.Int("counter", rec.Counter), zap.Error(err))
	}

	return rec
}

func (s *Sequencer) decode(value string, ok bool) Record {
	if !ok || value == "" {
		return Record{}
	}
	var rec Record
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		s.lg.Warn("Counter record corrupt, starting from empty",
			zap.String("key", s.key), zap.Error(err))
		return Record{}
	}
	if err := rec.validate(); err != nil {
		s.lg.Warn("Counter record invalid, starting from empty",
			zap.String("key", s.key), zap.String("value", value), zap.Error(err))
		return Record{}
	}
	return rec
}

// validate rejects records no sequencer could have written. The empty record
// is valid.
func (r Record) validate() error {
	if r.Counter < 0 {
		return errors.Errorf("negative counter %d", r.Counter)
	}
	if r.Date == "" {
		if r.Counter != 0 {
			return errors.Errorf("counter %d without a date", r.Counter)
		}
		return nil
	}
	if _, err := time.Parse(dateKeyLayout, r.Date); err != nil {
		return errors.Wrap(err, "date")
	}
	return nil
}

func encode(rec Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", errors.Wrap(err, "encode counter record")
	}
	return string(data), nil
}

// Format builds a receipt number: prefix, compact date, counter padded to two digits.
func Format(prefix string, date time.Time, counter int) string {
	return fmt.Sprintf("%s_%s_%02d", prefix, date.Format("20060102"), counter)
}
