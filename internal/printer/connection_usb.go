package printer

import (
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/gousb"
)

// USBConnection is a printer claimed through libusb.
type USBConnection struct {
	ctx      *gousb.Context
	device   *gousb.Device
	cfg      *gousb.Config
	iface    *gousb.Interface
	endpoint *gousb.OutEndpoint
	done     func()
	mu       sync.Mutex
}

// ConnectUSB opens the first device matching vid:pid and claims a bulk OUT
// endpoint. It tries the default interface first, then every interface of
// every configuration.
func ConnectUSB(vid, pid uint16) (*USBConnection, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, errors.Wrapf(err, "open usb device %04x:%04x", vid, pid)
	}
	if dev == nil {
		ctx.Close()
		return nil, errors.Errorf("usb device %04x:%04x not found", vid, pid)
	}
	_ = dev.SetAutoDetach(true)

	c := &USBConnection{ctx: ctx, device: dev}

	if iface, done, err := dev.DefaultInterface(); err == nil {
		if ep := outEndpoint(iface); ep != nil {
			c.iface, c.endpoint, c.done = iface, ep, done
			return c, nil
		}
		done()
	}

	var lastErr error
	for num, cfgDesc := range dev.Desc.Configs {
		cfg, err := dev.Config(num)
		if err != nil {
			lastErr = errors.Wrapf(err, "set config %d", num)
			continue
		}
		for _, ifDesc := range cfgDesc.Interfaces {
			iface, err := cfg.Interface(ifDesc.Number, 0)
			if err != nil {
				lastErr = errors.Wrapf(err, "claim interface %d", ifDesc.Number)
				continue
			}
			if ep := outEndpoint(iface); ep != nil {
				c.cfg, c.iface, c.endpoint = cfg, iface, ep
				return c, nil
			}
			iface.Close()
		}
		cfg.Close()
	}

	dev.Close()
	ctx.Close()
	if lastErr != nil {
		return nil, errors.Wrapf(lastErr, "usb printer %04x:%04x", vid, pid)
	}
	return nil, errors.Errorf("usb printer %04x:%04x has no OUT endpoint", vid, pid)
}

func outEndpoint(iface *gousb.Interface) *gousb.OutEndpoint {
	for _, desc := range iface.Setting.Endpoints {
		if desc.Direction != gousb.EndpointDirectionOut {
			continue
		}
		if ep, err := iface.OutEndpoint(desc.Number); err == nil {
			return ep
		}
	}
	return nil
}

func (c *USBConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.endpoint.Write(data)
}

func (c *USBConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		c.done()
	} else {
		if c.iface != nil {
			c.iface.Close()
		}
		if c.cfg != nil {
			_ = c.cfg.Close()
		}
	}
	_ = c.device.Close()
	return c.ctx.Close()
}
