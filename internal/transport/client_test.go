package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndbaker1/BONK/internal/apperrors"
	"github.com/ndbaker1/BONK/internal/protocol"
	"github.com/ndbaker1/BONK/internal/testutil"
)

const waitFor = 3 * time.Second

// recorder 记录回调与分发的顺序
type recorder struct {
	mu     sync.Mutex
	log    []string
	events []*protocol.ServerEvent
	errs   []error
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, s)
}

func (r *recorder) Dispatch(ev *protocol.ServerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, "event:"+ev.EventCode.String())
	r.events = append(r.events, ev)
}

func (r *recorder) callbacks(name string) Callbacks {
	return Callbacks{
		OnOpen:  func() { r.add("open:" + name) },
		OnClose: func() { r.add("close:" + name) },
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func (r *recorder) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func newTestClient(url string, sink EventSink) *Client {
	return NewClient(url, sink, Options{CloseTimeout: time.Second})
}

func TestConnect_OpensAndSends(t *testing.T) {
	srv := testutil.NewFakeServer(t, nil)
	rec := &recorder{}
	c := newTestClient(srv.URL(), rec)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), "user1", rec.callbacks("a")))
	assert.Equal(t, "user1", srv.WaitConnected(t))
	assert.Equal(t, protocol.Version, srv.WaitHeader(t).Get(protocol.VersionHeader))
	assert.True(t, c.IsOpen())
	assert.Equal(t, "user1", c.Identity())
	assert.Equal(t, []string{"open:a"}, rec.snapshot())

	require.True(t, c.Send(protocol.NewJoinSession("ABCDE")))
	got := srv.WaitEvent(t)
	assert.Equal(t, "user1", got.ClientID)
	assert.Equal(t, protocol.JoinSession, got.Event.EventCode)
	assert.Equal(t, "ABCDE", got.Event.SessionID)
}

func TestURLFor(t *testing.T) {
	c := newTestClient("ws://localhost:8000/", nil)
	assert.Equal(t, "ws://localhost:8000/ws/user1", c.URLFor("user1"))
	assert.Equal(t, "ws://localhost:8000/ws/a%20b", c.URLFor("a b"))
}

func TestSend_WhileDisconnected(t *testing.T) {
	c := newTestClient("ws://127.0.0.1:1", nil)
	assert.False(t, c.IsOpen())
	assert.False(t, c.Send(protocol.NewSimple(protocol.CreateSession)))
}

func TestDispatch_InArrivalOrder(t *testing.T) {
	srv := testutil.NewFakeServer(t, nil)
	rec := &recorder{}
	c := newTestClient(srv.URL(), rec)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), "user1", rec.callbacks("a")))
	srv.WaitConnected(t)

	codes := []protocol.ServerEventCode{protocol.ClientJoined, protocol.GameStarted, protocol.TurnStart, protocol.Damage}
	for _, code := range codes {
		require.NoError(t, srv.Push("user1", protocol.NewServerEvent(code).ClientID("user1").Build()))
	}

	require.Eventually(t, func() bool { return rec.eventCount() == len(codes) }, waitFor, 10*time.Millisecond)
	assert.Equal(t, []string{
		"open:a",
		"event:ClientJoined",
		"event:GameStarted",
		"event:TurnStart",
		"event:Damage",
	}, rec.snapshot())
}

func TestMalformedFrame_ReportedAndSurvives(t *testing.T) {
	srv := testutil.NewFakeServer(t, nil)
	rec := &recorder{}
	c := newTestClient(srv.URL(), rec)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), "user1", rec.callbacks("a")))
	srv.WaitConnected(t)

	require.NoError(t, srv.PushRaw("user1", []byte("{not json")))
	require.NoError(t, srv.PushRaw("user1", []byte(`{"message":"no code"}`)))
	require.NoError(t, srv.Push("user1", protocol.NewServerEvent(protocol.LogicError).Message("still here").Build()))

	require.Eventually(t, func() bool { return rec.eventCount() == 1 }, waitFor, 10*time.Millisecond)
	errs := rec.errors()
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.True(t, errors.Is(err, apperrors.ErrMalformedMessage))
	}
	assert.True(t, c.IsOpen())
}

func TestUnknownEventCode_Dispatched(t *testing.T) {
	srv := testutil.NewFakeServer(t, nil)
	rec := &recorder{}
	c := newTestClient(srv.URL(), rec)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), "user1", rec.callbacks("a")))
	srv.WaitConnected(t)

	// 未知事件码交给分发层决定如何处理
	require.NoError(t, srv.PushRaw("user1", []byte(`{"event_code":99}`)))
	require.Eventually(t, func() bool { return rec.eventCount() == 1 }, waitFor, 10*time.Millisecond)
	assert.Empty(t, rec.errors())
}

func TestReconnect_SingleCloseBeforeOpen(t *testing.T) {
	srv := testutil.NewFakeServer(t, nil)
	rec := &recorder{}
	c := newTestClient(srv.URL(), rec)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), "user1", rec.callbacks("a")))
	srv.WaitConnected(t)

	require.NoError(t, c.Connect(context.Background(), "user2", rec.callbacks("b")))
	assert.Equal(t, "user1", srv.WaitDisconnected(t))
	assert.Equal(t, "user2", srv.WaitConnected(t))

	// 旧连接自身的 OnClose 不再触发
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"open:a", "close:b", "open:b"}, rec.snapshot())
	assert.Equal(t, "user2", c.Identity())
	assert.False(t, srv.IsConnected("user1"))
}

func TestReconnect_SameIdentity(t *testing.T) {
	srv := testutil.NewFakeServer(t, nil)
	rec := &recorder{}
	c := newTestClient(srv.URL(), rec)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), "user1", rec.callbacks("a")))
	srv.WaitConnected(t)
	require.NoError(t, c.Connect(context.Background(), "user1", rec.callbacks("b")))
	srv.WaitConnected(t)

	assert.Equal(t, []string{"open:a", "close:b", "open:b"}, rec.snapshot())
	assert.True(t, c.IsOpen())
}

func TestDisconnect_Idempotent(t *testing.T) {
	srv := testutil.NewFakeServer(t, nil)
	rec := &recorder{}
	c := newTestClient(srv.URL(), rec)

	c.Disconnect() // 未连接时无操作

	require.NoError(t, c.Connect(context.Background(), "user1", rec.callbacks("a")))
	srv.WaitConnected(t)

	c.Disconnect()
	c.Disconnect()
	assert.False(t, c.IsOpen())
	assert.False(t, c.Send(protocol.NewSimple(protocol.EndTurn)))

	srv.WaitDisconnected(t)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, waitFor, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"open:a", "close:a"}, rec.snapshot())
	assert.Empty(t, rec.errors())
}

func TestServerDrop_FiresClose(t *testing.T) {
	srv := testutil.NewFakeServer(t, nil)
	rec := &recorder{}
	c := newTestClient(srv.URL(), rec)

	require.NoError(t, c.Connect(context.Background(), "user1", rec.callbacks("a")))
	srv.WaitConnected(t)

	srv.Drop("user1")
	require.Eventually(t, func() bool {
		log := rec.snapshot()
		return len(log) == 2 && log[1] == "close:a"
	}, waitFor, 10*time.Millisecond)
	assert.False(t, c.IsOpen())

	// 断开后可以重新连接
	require.NoError(t, c.Connect(context.Background(), "user1", rec.callbacks("b")))
	assert.Equal(t, []string{"open:a", "close:a", "open:b"}, rec.snapshot())
	c.Close()
}

func TestServerDrop_ReconnectWaitsForSlowClose(t *testing.T) {
	srv := testutil.NewFakeServer(t, nil)
	rec := &recorder{}
	c := newTestClient(srv.URL(), rec)
	defer c.Close()

	slow := rec.callbacks("a")
	slow.OnClose = func() {
		time.Sleep(300 * time.Millisecond)
		rec.add("close:a")
	}
	require.NoError(t, c.Connect(context.Background(), "user1", slow))
	srv.WaitConnected(t)

	srv.Drop("user1")
	require.Eventually(t, func() bool { return c.current().closed() }, waitFor, 5*time.Millisecond)

	// 读循环已退出但 OnClose 尚未结束，新连接必须等它完成
	require.NoError(t, c.Connect(context.Background(), "user1", rec.callbacks("b")))
	assert.Equal(t, []string{"open:a", "close:a", "open:b"}, rec.snapshot())
}

func TestConnect_DialFailure(t *testing.T) {
	rec := &recorder{}
	c := newTestClient("ws://127.0.0.1:1", rec)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := c.Connect(ctx, "user1", rec.callbacks("a"))
	require.Error(t, err)
	assert.Len(t, rec.errors(), 1)
	assert.Empty(t, rec.snapshot())
	assert.False(t, c.IsOpen())
}

func TestConnect_DuplicateIdentityRejected(t *testing.T) {
	srv := testutil.NewFakeServer(t, nil)
	first := newTestClient(srv.URL(), &recorder{})
	defer first.Close()
	require.NoError(t, first.Connect(context.Background(), "user1", Callbacks{}))
	srv.WaitConnected(t)

	second := newTestClient(srv.URL(), &recorder{})
	err := second.Connect(context.Background(), "user1", Callbacks{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

type panicSink struct {
	mu    sync.Mutex
	count int
}

func (p *panicSink) Dispatch(ev *protocol.ServerEvent) {
	p.mu.Lock()
	p.count++
	p.mu.Unlock()
	if ev.EventCode == protocol.LogicError {
		panic("handler bug")
	}
}

func (p *panicSink) seen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func TestHandlerPanic_DoesNotKillConnection(t *testing.T) {
	srv := testutil.NewFakeServer(t, nil)
	sink := &panicSink{}
	c := newTestClient(srv.URL(), sink)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), "user1", Callbacks{}))
	srv.WaitConnected(t)

	require.NoError(t, srv.Push("user1", protocol.NewServerEvent(protocol.LogicError).Build()))
	require.NoError(t, srv.Push("user1", protocol.NewServerEvent(protocol.TurnStart).Build()))

	require.Eventually(t, func() bool { return sink.seen() == 2 }, waitFor, 10*time.Millisecond)
	assert.True(t, c.IsOpen())
}
