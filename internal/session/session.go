// Package session holds the receipt an operator is currently building.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thereceipt/parcel-receipt/internal/clock"
	"github.com/thereceipt/parcel-receipt/internal/ledger"
	"github.com/thereceipt/parcel-receipt/internal/sequencer"
)

// EventKind names what changed.
type EventKind string

const (
	EventLedger EventKind = "ledger"
	EventStamp  EventKind = "stamp"
	EventReset  EventKind = "reset"
)

// Stamp is the receipt number issued to a session.
type Stamp = sequencer.Result

// Event is published after every change.
type Event struct {
	Kind     EventKind       `json:"kind"`
	Snapshot ledger.Snapshot `json:"snapshot"`
	Totals   ledger.Totals   `json:"totals"`
	Stamp    *Stamp          `json:"stamp,omitempty"`
}

// Numberer issues receipt numbers.
type Numberer interface {
	Next(ctx context.Context, now time.Time) (sequencer.Result, error)
}

// Session serializes access to one ledger and reserves at most one receipt
// number for it. It is safe for concurrent use.
type Session struct {
	numberer Numberer
	clock    clock.Clock
	lg       *zap.Logger
	ledgerOp []ledger.Option

	mu     sync.Mutex
	ledger *ledger.Ledger
	stamp  *Stamp

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Session) {
		s.lg = lg
	}
}

// WithLedgerOptions passes options to every ledger the session creates.
func WithLedgerOptions(opts ...ledger.Option) Option {
	return func(s *Session) {
		s.ledgerOp = append(s.ledgerOp, opts...)
	}
}

// New creates a session with an empty ledger.
func New(numberer Numberer, clk clock.Clock, opts ...Option) *Session {
	s := &Session{
		numberer: numberer,
		clock:    clk,
		lg:       zap.NewNop(),
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.New(s.ledgerOp...)
	return s
}

// Subscribe registers fn for change events. Call the returned func to stop.
// fn runs synchronously after the change, outside the session lock.
func (s *Session) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// SetCustomerName replaces the customer name.
func (s *Session) SetCustomerName(name string) {
	s.mu.Lock()
	s.ledger.SetCustomerName(name)
	ev := s.eventLocked(EventLedger)
	s.mu.Unlock()

	s.publish(ev)
}

// AddItem adds an item to the ledger.
func (s *Session) AddItem(f ledger.Fields) (ledger.Item, error) {
	s.mu.Lock()
	item, err := s.ledger.AddItem(f)
	if err != nil {
		s.mu.Unlock()
		return ledger.Item{}, err
	}
	ev := s.eventLocked(EventLedger)
	s.mu.Unlock()

	s.lg.Debug("Item added", zap.String("id", item.ID), zap.String("name", item.Name))
	s.publish(ev)
	return item, nil
}

// UpdateItem replaces the fields of an existing item.
func (s *Session) UpdateItem(id string, f ledger.Fields) (ledger.Item, error) {
	s.mu.Lock()
	item, err := s.ledger.UpdateItem(id, f)
	if err != nil {
		s.mu.Unlock()
		return ledger.Item{}, err
	}
	ev := s.eventLocked(EventLedger)
	s.mu.Unlock()

	s.lg.Debug("Item updated", zap.String("id", item.ID))
	s.publish(ev)
	return item, nil
}

// RemoveItem removes an item. Unknown ids are ignored.
func (s *Session) RemoveItem(id string) bool {
	s.mu.Lock()
	removed := s.ledger.RemoveItem(id)
	if !removed {
		s.mu.Unlock()
		return false
	}
	ev := s.eventLocked(EventLedger)
	s.mu.Unlock()

	s.lg.Debug("Item removed", zap.String("id", id))
	s.publish(ev)
	return true
}

// Item returns one item by id.
func (s *Session) Item(id string) (ledger.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Item(id)
}

// Snapshot returns a copy of the ledger.
func (s *Session) Snapshot() ledger.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

// Totals recomputes the ledger totals.
func (s *Session) Totals() ledger.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ComputeTotals()
}

// CurrentStamp returns the reserved number, or nil when none was reserved yet.
func (s *Session) CurrentStamp() *Stamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stamp == nil {
		return nil
	}
	st := *s.stamp
	return &st
}

// Stamp returns the session's receipt number, reserving one on first use.
func (s *Session) Stamp(ctx context.Context) (Stamp, error) {
	s.mu.Lock()
	if s.stamp != nil {
		st := *s.stamp
		s.mu.Unlock()
		return st, nil
	}

	res, err := s.numberer.Next(ctx, s.clock.Now())
	if err != nil {
		s.mu.Unlock()
		return Stamp{}, err
	}
	s.stamp = &res
	ev := s.eventLocked(EventStamp)
	s.mu.Unlock()

	s.lg.Info("Receipt number reserved", zap.String("receipt_number", res.ReceiptNumber))
	s.publish(ev)
	return res, nil
}

// View returns the snapshot, totals and reserved stamp in one consistent read.
func (s *Session) View(ctx context.Context) (ledger.Snapshot, ledger.Totals, Stamp, error) {
	st, err := s.Stamp(ctx)
	if err != nil {
		return ledger.Snapshot{}, ledger.Totals{}, Stamp{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot(), s.ledger.ComputeTotals(), st, nil
}

// Reset discards the ledger and the reserved number.
func (s *Session) Reset() {
	s.mu.Lock()
	s.ledger = ledger.New(s.ledgerOp...)
	s.stamp = nil
	ev := s.eventLocked(EventReset)
	s.mu.Unlock()

	s.lg.Info("Session reset")
	s.publish(ev)
}

func (s *Session) eventLocked(kind EventKind) Event {
	ev := Event{
		Kind:     kind,
		Snapshot: s.ledger.Snapshot(),
		Totals:   s.ledger.ComputeTotals(),
	}
	if s.stamp != nil {
		st := *s.stamp
		ev.Stamp = &st
	}
	return ev
}

func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
