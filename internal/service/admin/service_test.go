package admin_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ragdesk/backend/internal/client/rag"
	"github.com/zhouzirui/ragdesk/backend/internal/model/admin"
	adminservice "github.com/zhouzirui/ragdesk/backend/internal/service/admin"
	"github.com/zhouzirui/ragdesk/backend/internal/service/events"
	"github.com/zhouzirui/ragdesk/backend/internal/store/remote"
)

type fakeBackend struct {
	files        []string
	filesCalls   int
	ingested     []rag.Upload
	ingestErr    error
	deleted      []string
	historyLimit int
	cleared      bool
}

func (f *fakeBackend) Ingest(_ context.Context, uploads []rag.Upload) (admin.IngestResult, error) {
	if f.ingestErr != nil {
		return admin.IngestResult{}, f.ingestErr
	}
	f.ingested = append(f.ingested, uploads...)
	return admin.IngestResult{Status: "ok", ChunksAdded: 2 * len(uploads), Errors: []admin.IngestError{}}, nil
}

func (f *fakeBackend) Files(context.Context) ([]string, error) {
	f.filesCalls++
	return f.files, nil
}

func (f *fakeBackend) DeleteFile(_ context.Context, name string) (rag.DeleteResult, error) {
	f.deleted = append(f.deleted, name)
	return rag.DeleteResult{OK: true, DeletedFor: name}, nil
}

func (f *fakeBackend) History(_ context.Context, limit int) ([]admin.HistoryItem, error) {
	f.historyLimit = limit
	return []admin.HistoryItem{}, nil
}

func (f *fakeBackend) ClearHistory(context.Context) error {
	f.cleared = true
	return nil
}

func (f *fakeBackend) Health(context.Context) (admin.Health, error) {
	return admin.Health{OK: true}, nil
}

type recorder struct{ types []string }

func (r *recorder) Publish(e events.Event) { r.types = append(r.types, e.Type) }

func TestFilesCachedUntilInvalidated(t *testing.T) {
	backend := &fakeBackend{files: []string{"a.pdf"}}
	svc := adminservice.NewService(backend, adminservice.Options{FilesCacheTTL: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		files, err := svc.Files(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.pdf"}, files)
	}
	assert.Equal(t, 1, backend.filesCalls)

	_, err := svc.DeleteFile(ctx, "a.pdf")
	require.NoError(t, err)
	_, err = svc.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.filesCalls)

	_, err = svc.Ingest(ctx, []rag.Upload{{Name: "b.txt", Data: []byte("b")}})
	require.NoError(t, err)
	_, err = svc.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.filesCalls)
}

func TestFilesZeroTTLDisablesCache(t *testing.T) {
	backend := &fakeBackend{files: []string{"a.pdf"}}
	svc := adminservice.NewService(backend, adminservice.Options{FilesCacheTTL: 0})
	ctx := context.Background()

	files, err := svc.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, files)

	backend.files = []string{"a.pdf", "b.txt"}
	files, err = svc.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.txt"}, files)
	assert.Equal(t, 2, backend.filesCalls)
}

func TestFilesReturnsCopyOfCache(t *testing.T) {
	backend := &fakeBackend{files: []string{"a.pdf"}}
	svc := adminservice.NewService(backend, adminservice.Options{FilesCacheTTL: time.Minute})
	ctx := context.Background()

	first, err := svc.Files(ctx)
	require.NoError(t, err)
	first[0] = "changed"

	second, err := svc.Files(ctx)
	require.NoError(t, err)
	second[0] = "changed again"

	third, err := svc.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, third)
	assert.Equal(t, 1, backend.filesCalls)
}

func TestIngestStoresUploadsInBucket(t *testing.T) {
	bucket, err := remote.NewFSBucket(t.TempDir())
	require.NoError(t, err)
	backend := &fakeBackend{}
	rec := &recorder{}
	svc := adminservice.NewService(backend, adminservice.Options{Bucket: bucket, Events: rec})

	res, err := svc.Ingest(context.Background(), []rag.Upload{
		{Name: "a.txt", Data: []byte("one")},
		{Name: "b.pdf", Data: []byte("two")},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.ChunksAdded)
	assert.Len(t, backend.ingested, 2)
	assert.Equal(t, []string{events.FilesChanged}, rec.types)

	entries, err := os.ReadDir(bucket.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestIngestBackendFailure(t *testing.T) {
	backend := &fakeBackend{ingestErr: &rag.APIError{StatusCode: 500, Message: "No valid documents ingested"}}
	rec := &recorder{}
	svc := adminservice.NewService(backend, adminservice.Options{Events: rec})

	_, err := svc.Ingest(context.Background(), []rag.Upload{{Name: "a.doc"}})
	var apiErr *rag.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "No valid documents ingested", apiErr.Error())
	assert.Empty(t, rec.types)
}

func TestDeleteFileRequiresName(t *testing.T) {
	backend := &fakeBackend{}
	svc := adminservice.NewService(backend, adminservice.Options{})
	_, err := svc.DeleteFile(context.Background(), "")
	assert.ErrorIs(t, err, adminservice.ErrFilenameRequired)
	assert.Empty(t, backend.deleted)
}

func TestHistoryLimitClamp(t *testing.T) {
	tests := []struct{ in, want int }{
		{in: 0, want: 100},
		{in: -5, want: 100},
		{in: 1, want: 1},
		{in: 250, want: 250},
		{in: 5000, want: 1000},
	}
	for _, tt := range tests {
		backend := &fakeBackend{}
		svc := adminservice.NewService(backend, adminservice.Options{})
		_, err := svc.History(context.Background(), tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, backend.historyLimit, "limit %d", tt.in)
	}
}

func TestClearHistoryPublishes(t *testing.T) {
	backend := &fakeBackend{}
	rec := &recorder{}
	svc := adminservice.NewService(backend, adminservice.Options{Events: rec})
	require.NoError(t, svc.ClearHistory(context.Background()))
	assert.True(t, backend.cleared)
	assert.Equal(t, []string{events.HistoryCleared}, rec.types)
}
