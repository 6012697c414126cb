package printer

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// ConnectionPool keeps one open connection per printer id.
type ConnectionPool struct {
	dial  Dialer
	conns map[string]Connection
	mu    sync.Mutex
}

// NewConnectionPool creates a pool that opens connections with dial.
// A nil dial means Dial.
func NewConnectionPool(dial Dialer) *ConnectionPool {
	if dial == nil {
		dial = Dial
	}
	return &ConnectionPool{
		dial:  dial,
		conns: make(map[string]Connection),
	}
}

// Send writes data to t, connecting first if needed. A failed write drops the
// connection so the next attempt reconnects.
func (p *ConnectionPool) Send(ctx context.Context, t Target, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, ok := p.conns[t.ID]
	if !ok {
		c, err := p.dial(ctx, t)
		if err != nil {
			return errors.Wrapf(err, "connect %s", t.ID)
		}
		conn = c
		p.conns[t.ID] = conn
	}

	if _, err := conn.Write(data); err != nil {
		_ = conn.Close()
		delete(p.conns, t.ID)
		return errors.Wrapf(err, "write to %s", t.ID)
	}
	return nil
}

// IsConnected reports whether a connection to id is open.
func (p *ConnectionPool) IsConnected(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.conns[id]
	return ok
}

// Disconnect closes the connection to id, if any.
func (p *ConnectionPool) Disconnect(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, ok := p.conns[id]
	if !ok {
		return nil
	}
	delete(p.conns, id)
	return conn.Close()
}

// DisconnectAll closes every open connection.
func (p *ConnectionPool) DisconnectAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for id, conn := range p.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close %s", id))
		}
		delete(p.conns, id)
	}
	return errors.Join(errs...)
}
