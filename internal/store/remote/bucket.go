package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Bucket stores uploaded source files before they are handed to the backend.
type Bucket interface {
	Put(ctx context.Context, key string, r io.Reader) error
}

// ObjectKey prefixes the file's base name with the upload time in unix
// milliseconds so repeated uploads of the same name do not collide.
func ObjectKey(now time.Time, filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		base = "upload"
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "_" + base
}

// FSBucket is a Bucket backed by a local directory.
type FSBucket struct {
	dir string
}

// NewFSBucket creates dir if needed.
func NewFSBucket(dir string) (*FSBucket, error) {
	if dir == "" {
		return nil, errors.New("bucket dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket dir: %w", err)
	}
	return &FSBucket{dir: dir}, nil
}

func (b *FSBucket) Dir() string { return b.dir }

func (b *FSBucket) Put(ctx context.Context, key string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := filepath.Base(key)
	if name != key || name == "." || name == ".." {
		return fmt.Errorf("invalid object key %q", key)
	}

	tmp, err := os.CreateTemp(b.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("put %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(b.dir, name)); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
