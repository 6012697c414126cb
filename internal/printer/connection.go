package printer

import (
	"context"

	"github.com/go-faster/errors"
)

// Connection is an open channel to a printer.
type Connection interface {
	Write(data []byte) (int, error)
	Close() error
}

// Dialer opens a connection to a target.
type Dialer func(ctx context.Context, t Target) (Connection, error)

// Dial opens a connection using the transport of t's scheme.
func Dial(ctx context.Context, t Target) (Connection, error) {
	switch t.Scheme {
	case SchemeNetwork:
		return ConnectNetwork(ctx, t.Address)
	case SchemeSerial:
		return ConnectSerial(t.Address, t.Baud)
	case SchemeUSB:
		return ConnectUSB(t.VID, t.PID)
	case SchemeDevice:
		return ConnectDevice(t.Address)
	default:
		return nil, errors.Errorf("unsupported printer scheme: %s", t.Scheme)
	}
}
