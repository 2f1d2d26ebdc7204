package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/ragdesk/backend/internal/service/chat"
	"github.com/zhouzirui/ragdesk/backend/internal/service/events"
	"github.com/zhouzirui/ragdesk/backend/internal/store/local"
)

func newDirectory(t *testing.T) (*chatservice.Directory, *recorder) {
	t.Helper()
	rec := &recorder{}
	repo := local.NewRepository(local.NewMemoryStorage())
	return chatservice.NewDirectory(repo, rec, nil), rec
}

func TestDirectoryCreateBecomesActive(t *testing.T) {
	dir, rec := newDirectory(t)
	ctx := context.Background()

	s, err := dir.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, chat.DefaultTitle, s.Title)
	assert.Equal(t, s.ID, dir.Active())

	sessions, active, err := dir.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, s.ID, active)
	assert.Equal(t, []string{events.SessionCreated}, rec.types())
}

func TestDirectoryDeleteActiveFallsBack(t *testing.T) {
	dir, _ := newDirectory(t)
	ctx := context.Background()

	first, err := dir.Create(ctx, "first")
	require.NoError(t, err)
	second, err := dir.Create(ctx, "second")
	require.NoError(t, err)
	require.Equal(t, second.ID, dir.Active())

	active, err := dir.Delete(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active)

	active, err = dir.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestDirectoryDeleteInactiveKeepsActive(t *testing.T) {
	dir, _ := newDirectory(t)
	ctx := context.Background()

	first, err := dir.Create(ctx, "first")
	require.NoError(t, err)
	second, err := dir.Create(ctx, "second")
	require.NoError(t, err)

	active, err := dir.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active)
}

func TestDirectorySelect(t *testing.T) {
	dir, rec := newDirectory(t)
	ctx := context.Background()

	first, err := dir.Create(ctx, "first")
	require.NoError(t, err)
	_, err = dir.Create(ctx, "second")
	require.NoError(t, err)

	_, err = dir.Select(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, dir.Active())

	_, err = dir.Select(ctx, "missing")
	assert.ErrorIs(t, err, chatservice.ErrSessionNotFound)
	assert.Equal(t, first.ID, dir.Active())
	assert.Contains(t, rec.types(), events.SessionSelected)
}

func TestDirectoryRenameAndClear(t *testing.T) {
	dir, rec := newDirectory(t)
	ctx := context.Background()

	s, err := dir.Create(ctx, "")
	require.NoError(t, err)

	renamed, err := dir.Rename(ctx, s.ID, "Budget")
	require.NoError(t, err)
	assert.Equal(t, "Budget", renamed.Title)

	_, err = dir.Rename(ctx, "missing", "x")
	assert.ErrorIs(t, err, chatservice.ErrSessionNotFound)

	require.NoError(t, dir.Clear(ctx))
	sessions, active, err := dir.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	assert.Empty(t, active)
	assert.Equal(t, []string{events.SessionCreated, events.SessionRenamed, events.SessionsCleared}, rec.types())
}

func TestDirectoryListPicksFirstWhenNoneActive(t *testing.T) {
	repo := local.NewRepository(local.NewMemoryStorage())
	s, err := repo.Create(context.Background(), "existing")
	require.NoError(t, err)

	dir := chatservice.NewDirectory(repo, nil, nil)
	_, active, err := dir.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s.ID, active)
}
