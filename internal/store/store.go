// Package store provides key-value backends for the receipt counter record.
package store

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-faster/errors"
)

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// DefaultFileName is the file store's file name when no path is configured.
const DefaultFileName = "receipt_counter.json"

// KV is the store contract shared by every backend.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver      string
	Path        string
	DatabaseURL string
}

// Open creates the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile, "":
		path := opts.Path
		if path == "" {
			path = DefaultPath()
		}
		return NewFile(path)
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, errors.New("postgres store requires a database url")
		}
		return NewPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, errors.Errorf("unknown store driver %q", opts.Driver)
	}
}

// DefaultPath returns where the file store keeps its data.
// It prefers the executable's directory when writable, then the working
// directory, then the user config directory.
func DefaultPath() string {
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		if writable(exeDir) {
			return filepath.Join(exeDir, DefaultFileName)
		}
	}

	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, DefaultFileName)
	}

	var configDir string
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			configDir = filepath.Join(appData, "parcel-receipt")
		}
	} else if dir, err := os.UserConfigDir(); err == nil {
		configDir = filepath.Join(dir, "parcel-receipt")
	}

	if configDir != "" {
		if err := os.MkdirAll(configDir, 0o755); err == nil {
			return filepath.Join(configDir, DefaultFileName)
		}
	}

	return DefaultFileName
}

func writable(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	f, err := os.CreateTemp(dir, ".parcel-receipt-write-test-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
