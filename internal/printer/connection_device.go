package printer

import (
	"os"
	"sync"

	"github.com/go-faster/errors"
)

// DeviceConnection writes to a printer device node such as /dev/usb/lp0.
// The file is opened per write, so a printer that was power-cycled keeps working.
type DeviceConnection struct {
	path string
	mu   sync.Mutex
}

// ConnectDevice checks that path exists and returns a connection to it.
func ConnectDevice(path string) (*DeviceConnection, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "printer device %s", path)
	}
	return &DeviceConnection{path: path}, nil
}

func (c *DeviceConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return 0, errors.Wrapf(err, "open printer device %s", c.path)
	}

	n, err := f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, errors.Wrapf(err, "write printer device %s", c.path)
	}
	return n, nil
}

func (c *DeviceConnection) Close() error {
	return nil
}
