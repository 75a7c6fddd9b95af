package file_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/voxroom/internal/domain"
	"github.com/gosuda/voxroom/internal/store/file"
)

func newRepo(t *testing.T) *file.TranscriptRepo {
	t.Helper()

	repo, err := file.NewTranscriptRepo(t.TempDir())
	require.NoError(t, err)
	return repo
}

func entry(room, text string) *domain.TranscriptEntry {
	return &domain.TranscriptEntry{
		ID:        uuid.New(),
		RoomName:  room,
		Role:      domain.RoleUser,
		Text:      text,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestTranscriptRepo_AppendAndList(t *testing.T) {
	t.Parallel()

	repo := newRepo(t)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, repo.Append(ctx, entry("study-1", fmt.Sprintf("line-%d", i))))
	}
	require.NoError(t, repo.Append(ctx, entry("other-room", "elsewhere")))

	entries, err := repo.ListByRoom(ctx, "study-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("line-%d", i), e.Text, "entries must come back in append order")
		assert.Equal(t, "study-1", e.RoomName)
	}

	count, err := repo.CountByRoom(ctx, "study-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestTranscriptRepo_LimitAndOffset(t *testing.T) {
	t.Parallel()

	repo := newRepo(t)
	ctx := context.Background()

	for i := range 10 {
		require.NoError(t, repo.Append(ctx, entry("study-1", fmt.Sprintf("line-%d", i))))
	}

	entries, err := repo.ListByRoom(ctx, "study-1", 3, 4)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "line-4", entries[0].Text)
	assert.Equal(t, "line-6", entries[2].Text)
}

func TestTranscriptRepo_UnknownRoomIsEmpty(t *testing.T) {
	t.Parallel()

	repo := newRepo(t)
	ctx := context.Background()

	entries, err := repo.ListByRoom(ctx, "nobody-here", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	count, err := repo.CountByRoom(ctx, "nobody-here")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTranscriptRepo_RoomNameSanitized(t *testing.T) {
	t.Parallel()

	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, entry("../../etc/passwd", "sneaky")))

	entries, err := repo.ListByRoom(ctx, "../../etc/passwd", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sneaky", entries[0].Text)
}
