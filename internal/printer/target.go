package printer

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// Target schemes.
const (
	SchemeNetwork = "network"
	SchemeSerial  = "serial"
	SchemeUSB     = "usb"
	SchemeDevice  = "device"
)

const (
	defaultNetworkPort = 9100
	defaultBaud        = 9600
)

// Target is one configured printer.
type Target struct {
	ID      string `json:"id"`
	Scheme  string `json:"scheme"`
	Address string `json:"address"`
	Baud    int    `json:"baud,omitempty"`
	VID     uint16 `json:"vid,omitempty"`
	PID     uint16 `json:"pid,omitempty"`
}

// String returns the target in the form ParseTarget accepts.
func (t Target) String() string {
	s := t.ID + "=" + t.Scheme + "://"
	switch t.Scheme {
	case SchemeSerial:
		return s + t.Address + "?baud=" + strconv.Itoa(t.Baud)
	default:
		return s + t.Address
	}
}

// ParseTarget parses "[id=]scheme://address". Examples:
//
//	counter=network://192.168.1.50:9100
//	serial:///dev/ttyUSB0?baud=19200
//	usb://04b8:0e15
//	device:///dev/usb/lp0
//
// Without an id the target is named after its scheme and address.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)

	var id string
	if eq := strings.Index(raw, "="); eq >= 0 && eq < strings.Index(raw, "://") {
		id, raw = strings.TrimSpace(raw[:eq]), raw[eq+1:]
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || rest == "" {
		return Target{}, errors.Errorf("printer target %q must look like scheme://address", raw)
	}

	t := Target{Scheme: scheme}
	switch scheme {
	case SchemeNetwork:
		host, port, err := net.SplitHostPort(rest)
		if err != nil {
			host, port = rest, strconv.Itoa(defaultNetworkPort)
		}
		if host == "" {
			return Target{}, errors.Errorf("network target %q has no host", raw)
		}
		t.Address = net.JoinHostPort(host, port)
	case SchemeSerial:
		path, query, _ := strings.Cut(rest, "?")
		if path == "" {
			return Target{}, errors.Errorf("serial target %q has no device path", raw)
		}
		t.Address = path
		t.Baud = defaultBaud
		values, err := url.ParseQuery(query)
		if err != nil {
			return Target{}, errors.Wrapf(err, "serial target %q", raw)
		}
		if baud := values.Get("baud"); baud != "" {
			n, err := strconv.Atoi(baud)
			if err != nil || n <= 0 {
				return Target{}, errors.Errorf("serial target %q has invalid baud %q", raw, baud)
			}
			t.Baud = n
		}
	case SchemeUSB:
		vid, pid, err := parseVIDPID(rest)
		if err != nil {
			return Target{}, errors.Wrapf(err, "usb target %q", raw)
		}
		t.Address = strings.ToLower(rest)
		t.VID, t.PID = vid, pid
	case SchemeDevice:
		t.Address = rest
	default:
		return Target{}, errors.Errorf("unsupported printer scheme %q", scheme)
	}

	t.ID = id
	if t.ID == "" {
		t.ID = t.Scheme + ":" + t.Address
	}
	return t, nil
}

func parseVIDPID(s string) (vid, pid uint16, err error) {
	v, p, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, errors.Errorf("expected vid:pid, got %q", s)
	}
	vv, err := strconv.ParseUint(v, 16, 16)
	if err != nil {
		return 0, 0, errors.Wrap(err, "vendor id")
	}
	pp, err := strconv.ParseUint(p, 16, 16)
	if err != nil {
		return 0, 0, errors.Wrap(err, "product id")
	}
	return uint16(vv), uint16(pp), nil
}
