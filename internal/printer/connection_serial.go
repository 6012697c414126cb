package printer

import (
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/tarm/serial"
)

// SerialConnection is a printer on a serial port.
type SerialConnection struct {
	port *serial.Port
	mu   sync.Mutex
}

// ConnectSerial opens device at baud (9600 when zero).
func ConnectSerial(device string, baud int) (*SerialConnection, error) {
	if baud <= 0 {
		baud = defaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: time.Second,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial port %s", device)
	}

	return &SerialConnection{port: port}, nil
}

func (c *SerialConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.port.Write(data)
	if err != nil {
		return n, err
	}
	return n, c.port.Flush()
}

func (c *SerialConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.port.Close()
}
