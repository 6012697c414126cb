package printer

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

// NetworkConnection is a raw TCP (port 9100) printer connection.
type NetworkConnection struct {
	conn net.Conn
	mu   sync.Mutex
}

// ConnectNetwork dials a network printer at address (host:port).
func ConnectNetwork(ctx context.Context, address string) (*NetworkConnection, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to network printer %s", address)
	}

	return &NetworkConnection{conn: conn}, nil
}

func (c *NetworkConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.Write(data)
}

func (c *NetworkConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.Close()
}
