package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndbaker1/BONK/internal/config"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStore_SaveLoadDeleteSnapshot(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	snap := &SessionSnapshot{
		Identity:  "user1",
		SessionID: "ABCDE",
		Screen:    "Lobby",
		Roster:    []string{"user1", "user2"},
	}

	require.NoError(t, store.SaveSnapshot(ctx, snap))
	assert.NotZero(t, snap.UpdatedAt)

	loaded, err := store.LoadSnapshot(ctx, "user1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "ABCDE", loaded.SessionID)
	assert.Equal(t, "Lobby", loaded.Screen)
	assert.Equal(t, []string{"user1", "user2"}, loaded.Roster)

	require.NoError(t, store.DeleteSnapshot(ctx, "user1"))
	loaded, err = store.LoadSnapshot(ctx, "user1")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_SnapshotExpires(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, &SessionSnapshot{Identity: "user1", SessionID: "ABCDE"}))
	assert.Equal(t, time.Hour, mr.TTL(snapshotKeyPrefix+"user1"))

	mr.FastForward(2 * time.Hour)
	loaded, err := store.LoadSnapshot(ctx, "user1")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_SaveSnapshotIgnoresEmpty(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	assert.NoError(t, store.SaveSnapshot(ctx, nil))
	assert.NoError(t, store.SaveSnapshot(ctx, &SessionSnapshot{}))
	assert.Empty(t, mr.Keys())
}

func TestRedisStore_LoadSnapshotCorrupt(t *testing.T) {
	store, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set(snapshotKeyPrefix+"user1", "{broken"))

	_, err := store.LoadSnapshot(context.Background(), "user1")
	assert.Error(t, err)
}

func TestRedisStore_SnapshotIdentities(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	for _, id := range []string{"user1", "user2", "user3"} {
		require.NoError(t, store.SaveSnapshot(ctx, &SessionSnapshot{Identity: id}))
	}

	ids, err := store.SnapshotIdentities(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user1", "user2", "user3"}, ids)
}

func TestRedisStore_Journal(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendJournal(ctx, "run1", JournalEntry{Bot: "user1", Line: "created session"}))
	require.NoError(t, store.AppendJournal(ctx, "run1", JournalEntry{Bot: "user2", Line: "joined"}))

	entries, err := store.Journal(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "created session", entries[0].Line)
	assert.Equal(t, "user2", entries[1].Bot)
	assert.NotZero(t, entries[0].At)
	assert.Equal(t, journalExpiration, mr.TTL(journalKeyPrefix+"run1"))

	empty, err := store.Journal(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisStore_JournalTrimmed(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	for i := range maxJournalLength + 5 {
		require.NoError(t, store.AppendJournal(ctx, "run1", JournalEntry{Bot: "b", Line: fmt.Sprint(i)}))
	}

	entries, err := store.Journal(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, entries, maxJournalLength)
	assert.Equal(t, "5", entries[0].Line)
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := Open(context.Background(), &config.RedisConfig{Addr: mr.Addr(), SnapshotTTL: 30})
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, 30*time.Minute, store.snapshotTTL)

	_, err = Open(context.Background(), &config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
