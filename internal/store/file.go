package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
)

// File keeps all keys in one JSON object on disk and rewrites it on every Set.
// Nothing coordinates two processes writing the same file.
type File struct {
	filePath string
	data     map[string]string
	mu       sync.Mutex
}

// NewFile opens the store at filePath. A missing file is created on first Set.
// The file is read lazily, so a damaged file surfaces as a Get error.
func NewFile(filePath string) (*File, error) {
	if filePath == "" {
		return nil, errors.New("empty store path")
	}
	return &File{
		filePath: filePath,
		data:     make(map[string]string),
	}, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.filePath
}

// Get re-reads the file so edits made by other processes are observed.
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil && !os.IsNotExist(err) {
		return "", false, errors.Wrap(err, "load store file")
	}

	v, ok := f.data[key]
	return v, ok, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.data[key] = value
	return f.save()
}

func (f *File) Close() error {
	return nil
}

func (f *File) load() error {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			f.data = make(map[string]string)
		}
		return err
	}

	loaded := make(map[string]string)
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}
	f.data = loaded
	return nil
}

func (f *File) save() error {
	data, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode store file")
	}

	if dir := filepath.Dir(f.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create store dir")
		}
	}

	tmp := f.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write store file")
	}
	if err := os.Rename(tmp, f.filePath); err != nil {
		return errors.Wrap(err, "replace store file")
	}
	return nil
}
