package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
)

func storageBackends(t *testing.T) map[string]Storage {
	t.Helper()

	files, err := NewFileStorage(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)

	db, err := OpenSQLiteStorage(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"file":   files,
		"sqlite": db,
	}
}

func TestStorageBackends(t *testing.T) {
	for name, st := range storageBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := st.GetItem("k")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, st.SetItem("k", "one"))
			require.NoError(t, st.SetItem("k", "two"))
			v, ok, err := st.GetItem("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "two", v)

			require.NoError(t, st.RemoveItem("k"))
			require.NoError(t, st.RemoveItem("k"))
			_, ok, err = st.GetItem("k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSessionsPersistAcrossBackends(t *testing.T) {
	for name, st := range storageBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := NewSession("Brochures")
			s = AddMessage([]chat.Session{s}, s.ID, chat.Message{Role: chat.RoleUser, Content: "price?"})[0]
			require.NoError(t, SaveSessions(st, []chat.Session{s}))

			got := LoadSessions(st)
			require.Len(t, got, 1)
			assert.Equal(t, s, got[0])
		})
	}
}

func TestNewFileStorageRequiresDir(t *testing.T) {
	_, err := NewFileStorage("")
	assert.Error(t, err)
}

func TestFileStorageEscapesKey(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, fs.Dir(), filepath.Dir(fs.PathFor("a/b")))
}

func TestFileStorageWatchReportsExternalWrites(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := fs.Watch(ctx, chat.StorageKey)
	require.NoError(t, err)

	// Another process writes the blob directly.
	require.NoError(t, os.WriteFile(fs.PathFor(chat.StorageKey), []byte(`[]`), 0o644))

	select {
	case <-changes:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification")
	}

	cancel()
	for range changes {
	}
}
