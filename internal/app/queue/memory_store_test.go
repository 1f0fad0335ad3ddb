package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunechat/internal/domain/track"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	c, err := s.Load(ctx, "l1")
	require.NoError(t, err)
	assert.Nil(t, c)

	require.NoError(t, s.Save(ctx, "l1", &Cursor{Tracks: []track.Track{{SongName: "A"}}, Index: 1}))

	c, err = s.Load(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 1, c.Index)

	// Loaded cursors are copies.
	c.Tracks[0].SongName = "changed"
	again, err := s.Load(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "A", again.Tracks[0].SongName)

	require.NoError(t, s.Delete(ctx, "l1"))
	c, err = s.Load(ctx, "l1")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(10 * time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, "old", &Cursor{}))
	now = now.Add(6 * time.Minute)
	require.NoError(t, s.Save(ctx, "new", &Cursor{}))
	assert.Equal(t, 2, s.Len())

	now = now.Add(5 * time.Minute)
	c, err := s.Load(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, c, "expired entry")

	c, err = s.Load(ctx, "new")
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, 1, s.Len())
}
