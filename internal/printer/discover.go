package printer

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/gousb"
	"github.com/tarm/serial"
	"go.uber.org/zap"
)

// Discovered is a printer found on the local machine.
type Discovered struct {
	Target      Target `json:"target"`
	Description string `json:"description"`
}

// Discover scans USB and serial ports for printers. A failing scanner is logged
// and skipped.
func Discover(lg *zap.Logger) []Discovered {
	if lg == nil {
		lg = zap.NewNop()
	}

	var found []Discovered

	usb, err := discoverUSB()
	if err != nil {
		lg.Warn("USB scan failed", zap.Error(err))
	}
	found = append(found, usb...)

	found = append(found, discoverSerial()...)

	// Linux printer class devices.
	lp, _ := filepath.Glob("/dev/usb/lp*")
	for _, path := range lp {
		found = append(found, Discovered{
			Target:      Target{ID: SchemeDevice + ":" + path, Scheme: SchemeDevice, Address: path},
			Description: "Device: " + filepath.Base(path),
		})
	}

	return found
}

func discoverUSB() ([]Discovered, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devices, err := ctx.OpenDevices(isPrinterClass)
	if err != nil && len(devices) == 0 {
		return nil, errors.Wrap(err, "enumerate usb devices")
	}

	var found []Discovered
	for _, dev := range devices {
		desc := dev.Desc
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()

		description := fmt.Sprintf("USB: %s:%s", desc.Vendor, desc.Product)
		if name := strings.TrimSpace(manufacturer + " " + product); name != "" {
			description = fmt.Sprintf("USB: %s (%s:%s)", name, desc.Vendor, desc.Product)
		}

		address := fmt.Sprintf("%04x:%04x", uint16(desc.Vendor), uint16(desc.Product))
		found = append(found, Discovered{
			Target: Target{
				ID:      SchemeUSB + ":" + address,
				Scheme:  SchemeUSB,
				Address: address,
				VID:     uint16(desc.Vendor),
				PID:     uint16(desc.Product),
			},
			Description: description,
		})
		dev.Close()
	}
	return found, nil
}

func isPrinterClass(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

var serialSkip = []string{"Bluetooth", "Modem", "SPP", "DialIn", "Callout", "KeySerial", "debug-console"}

func serialCandidates() []string {
	var ports []string

	switch runtime.GOOS {
	case "darwin":
		cu, _ := filepath.Glob("/dev/cu.*")
		tty, _ := filepath.Glob("/dev/tty.*")
	next:
		for _, port := range append(cu, tty...) {
			for _, pattern := range serialSkip {
				if strings.Contains(port, pattern) {
					continue next
				}
			}
			ports = append(ports, port)
		}
	case "linux":
		for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*"} {
			matches, _ := filepath.Glob(pattern)
			ports = append(ports, matches...)
		}
	case "windows":
		for i := 1; i <= 32; i++ {
			ports = append(ports, fmt.Sprintf("COM%d", i))
		}
	}

	return ports
}

func discoverSerial() []Discovered {
	var found []Discovered
	for _, path := range serialCandidates() {
		port, err := serial.OpenPort(&serial.Config{Name: path, Baud: defaultBaud})
		if err != nil {
			continue
		}
		_ = port.Close()

		found = append(found, Discovered{
			Target: Target{
				ID:      SchemeSerial + ":" + path,
				Scheme:  SchemeSerial,
				Address: path,
				Baud:    defaultBaud,
			},
			Description: "Serial: " + filepath.Base(path),
		})
	}
	return found
}
