package remote

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "1700000000123_report.pdf", ObjectKey(now, "report.pdf"))
	assert.Equal(t, "1700000000123_report.pdf", ObjectKey(now, "/tmp/uploads/report.pdf"))
	assert.Equal(t, "1700000000123_upload", ObjectKey(now, ""))
}

func TestFSBucketPut(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFSBucket(filepath.Join(dir, "nested"))
	require.NoError(t, err)

	require.NoError(t, b.Put(context.Background(), "1_a.txt", strings.NewReader("hello")))
	data, err := os.ReadFile(filepath.Join(b.Dir(), "1_a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entries, err := os.ReadDir(b.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFSBucketRejectsPathKeys(t *testing.T) {
	b, err := NewFSBucket(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, b.Put(context.Background(), "../escape.txt", strings.NewReader("x")))
	assert.Error(t, b.Put(context.Background(), "a/b.txt", strings.NewReader("x")))
}

func TestNewFSBucketRequiresDir(t *testing.T) {
	_, err := NewFSBucket("")
	assert.Error(t, err)
}
