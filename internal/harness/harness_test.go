package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndbaker1/BONK/internal/config"
	"github.com/ndbaker1/BONK/internal/storage"
	"github.com/ndbaker1/BONK/internal/testutil"
	"github.com/ndbaker1/BONK/internal/transport"
)

func newHarness(t *testing.T, url string, names []string, mutate ...func(*Options)) *Harness {
	t.Helper()
	opts := Options{
		ServerURL: url,
		Transport: transport.Options{CloseTimeout: time.Second},
		Names:     names,
		TurnDelay: 200 * time.Millisecond,
	}
	for _, m := range mutate {
		m(&opts)
	}
	h, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func run(t *testing.T, h *Harness) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, h.Run(ctx))
}

func lines(entries []storage.JournalEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Line)
	}
	return out
}

func TestBotNames(t *testing.T) {
	names := BotNames(&config.BotsConfig{Count: 4, Prefix: "user"})
	assert.Equal(t, []string{"user1", "user2", "user3", "user4"}, names)

	names = BotNames(&config.BotsConfig{Count: 3, Prefix: "bot", UUIDNames: true})
	require.Len(t, names, 3)
	for _, n := range names {
		assert.True(t, strings.HasPrefix(n, "bot-"))
		assert.Len(t, n, len("bot-")+8)
	}
	assert.NotEqual(t, names[0], names[1])
}

func TestNew_RequiresBots(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestRun_FourBotsFirstTurn(t *testing.T) {
	srv, table := testutil.NewBangServer(t)
	names := []string{"user1", "user2", "user3", "user4"}
	h := newHarness(t, srv.URL(), names)

	run(t, h)

	log := lines(h.Log())
	assert.Contains(t, log, "successfully connected all users.")
	assert.Contains(t, log, "successfully created session with user1 as owner")
	assert.Contains(t, log, "all users joined session!")
	assert.Contains(t, log, "game started.")
	assert.Contains(t, log, "user1 playing card Bang on user2")
	assert.Contains(t, log, "targeted, responding with the first defensive card")
	assert.Contains(t, log, "user2 avoided the bang!")

	id := h.SessionID()
	assert.Len(t, id, 5)
	for _, n := range names {
		assert.Equal(t, id, table.SessionOf(n))
	}
	assert.Equal(t, testutil.StartingHealth, table.Health("user2"))
	assert.NotContains(t, table.Hand("user2"), testutil.StartingHand[1])
	assert.Equal(t, 0, slices.Index(h.Bots()[0].Game.GameData().PlayerOrder, "user1"))
}

func TestRun_TurnsRotate(t *testing.T) {
	srv, table := testutil.NewBangServer(t)
	h := newHarness(t, srv.URL(), []string{"user1", "user2"}, func(o *Options) { o.Turns = 2 })

	run(t, h)

	log := lines(h.Log())
	assert.Contains(t, log, "user1 playing card Bang on user2")
	assert.Contains(t, log, "user2 playing card Bang on user1")
	assert.Contains(t, log, "user1 avoided the bang!")
	assert.NotContains(t, table.Hand("user1"), testutil.StartingHand[1])
	assert.NotContains(t, table.Hand("user2"), testutil.StartingHand[1])
}

func TestRun_JournalToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := storage.NewRedisStore(rdb, time.Hour)

	srv, _ := testutil.NewBangServer(t)
	h := newHarness(t, srv.URL(), []string{"user1", "user2"}, func(o *Options) {
		o.Journal = store
		o.Snapshots = store
	})

	run(t, h)

	journal, err := store.Journal(context.Background(), h.RunID())
	require.NoError(t, err)
	assert.ElementsMatch(t, lines(h.Log()), lines(journal))

	snap, err := store.LoadSnapshot(context.Background(), "user2")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, h.SessionID(), snap.SessionID)
}

func TestRun_ContextCancelled(t *testing.T) {
	// 服务器不响应建房，运行只能等到超时
	srv := testutil.NewFakeServer(t, nil)
	h := newHarness(t, srv.URL(), []string{"user1"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Run(ctx), context.DeadlineExceeded)
}

func TestRun_ConnectFailure(t *testing.T) {
	h := newHarness(t, "ws://127.0.0.1:1", []string{"user1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := h.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect user1")
}

// syncBuffer 访问日志在服务端 goroutine 中写入
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStatusHandler(t *testing.T) {
	srv, _ := testutil.NewBangServer(t)
	h := newHarness(t, srv.URL(), []string{"user1", "user2"})
	run(t, h)

	access := &syncBuffer{}
	ts := httptest.NewServer(h.Handler(access))
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(body, &st))

	assert.Equal(t, h.RunID(), st.RunID)
	require.Len(t, st.Bots, 2)
	assert.Equal(t, "user1", st.Bots[0].Identity)
	assert.True(t, st.Bots[0].Connected)
	assert.Equal(t, "Game", st.Bots[0].Screen)
	require.NotNil(t, st.Bots[1].Health)
	assert.Equal(t, testutil.StartingHealth, *st.Bots[1].Health)
	assert.NotEmpty(t, st.Log)
	require.Eventually(t, func() bool {
		return strings.Contains(access.String(), "GET /status")
	}, time.Second, 10*time.Millisecond)

	resp, err = http.Post(ts.URL+"/status", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
