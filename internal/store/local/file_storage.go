package local

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// FileStorage writes each key to its own JSON file under a directory.
type FileStorage struct {
	dir string

	mu      sync.Mutex
	written map[string]string // last value this process wrote per key
}

// NewFileStorage creates dir if needed and returns a FileStorage rooted there.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStorage{dir: filepath.Clean(dir), written: make(map[string]string)}, nil
}

// Dir returns the storage root.
func (f *FileStorage) Dir() string {
	return f.dir
}

// PathFor returns the file backing key.
func (f *FileStorage) PathFor(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *FileStorage) GetItem(key string) (string, bool, error) {
	data, err := os.ReadFile(f.PathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// SetItem replaces the whole file through a temp file and rename, so readers
// see either the old blob or the new one.
func (f *FileStorage) SetItem(key, value string) error {
	target := f.PathFor(key)
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	f.written[key] = value
	return nil
}

func (f *FileStorage) RemoveItem(key string) error {
	f.mu.Lock()
	delete(f.written, key)
	f.mu.Unlock()
	err := os.Remove(f.PathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ownWrite reports whether the current content of key is what this process
// last wrote, so watchers can ignore their own saves.
func (f *FileStorage) ownWrite(key, current string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	last, ok := f.written[key]
	return ok && last == current
}
