//go:build !production

// Package testutil provides an in-process BONK game server for tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/ndbaker1/BONK/internal/protocol"
	"github.com/ndbaker1/BONK/internal/protocol/codec"
)

const (
	eventBuffer  = 256
	writeTimeout = 2 * time.Second
	waitTimeout  = 3 * time.Second
	releaseGrace = 500 * time.Millisecond
)

// Received 服务器收到的一条客户端事件
type Received struct {
	ClientID string
	Event    *protocol.ClientEvent
}

// HandlerFunc 处理客户端事件，在该客户端的读循环中调用
type HandlerFunc func(s *FakeServer, clientID string, ev *protocol.ClientEvent)

// FakeServer 基于 httptest 的 WebSocket 服务器，路径 /ws/{id}。
// 同一 id 同时只允许一个连接，重复连接返回 409。
type FakeServer struct {
	srv     *httptest.Server
	handler HandlerFunc

	mu    sync.Mutex
	conns map[string]*websocket.Conn

	received     chan Received
	connected    chan string
	disconnected chan string
	headers      chan http.Header
}

// NewFakeServer 启动服务器，测试结束时自动关闭。handler 可为 nil。
func NewFakeServer(t testing.TB, handler HandlerFunc) *FakeServer {
	t.Helper()

	s := &FakeServer{
		handler:      handler,
		conns:        make(map[string]*websocket.Conn),
		received:     make(chan Received, eventBuffer),
		connected:    make(chan string, eventBuffer),
		disconnected: make(chan string, eventBuffer),
		headers:      make(chan http.Header, eventBuffer),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/{id}", s.serveWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// URL ws:// 形式的服务器地址（不含 /ws/ 路径）
func (s *FakeServer) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// Close 断开所有连接并停止服务器
func (s *FakeServer) Close() {
	s.mu.Lock()
	for id, c := range s.conns {
		_ = c.CloseNow()
		delete(s.conns, id)
	}
	s.mu.Unlock()
	s.srv.Close()
}

func (s *FakeServer) serveWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// 同 id 重连时旧连接可能尚未注销，短暂等待
	if !s.waitReleased(id, releaseGrace) {
		http.Error(w, "id already taken", http.StatusConflict)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()

	notify(s.headers, r.Header.Clone())
	notify(s.connected, id)

	defer func() {
		s.mu.Lock()
		if s.conns[id] == conn {
			delete(s.conns, id)
		}
		s.mu.Unlock()
		_ = conn.CloseNow()
		notify(s.disconnected, id)
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		ev, err := codec.DecodeClientEvent(data)
		if err != nil {
			continue
		}
		notify(s.received, Received{ClientID: id, Event: ev})
		if s.handler != nil {
			s.handler(s, id, ev)
		}
	}
}

func (s *FakeServer) waitReleased(id string, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	for {
		if s.conn(id) == nil {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *FakeServer) conn(clientID string) *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[clientID]
}

// IsConnected 该 id 当前是否在线
func (s *FakeServer) IsConnected(clientID string) bool {
	return s.conn(clientID) != nil
}

// PushRaw 向客户端发送原始文本帧
func (s *FakeServer) PushRaw(clientID string, data []byte) error {
	c := s.conn(clientID)
	if c == nil {
		return fmt.Errorf("client %s not connected", clientID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, data)
}

// Push 向客户端发送事件
func (s *FakeServer) Push(clientID string, ev *protocol.ServerEvent) error {
	data, err := codec.EncodeServerEvent(ev)
	if err != nil {
		return err
	}
	return s.PushRaw(clientID, data)
}

// Drop 不经关闭握手直接断开客户端
func (s *FakeServer) Drop(clientID string) {
	if c := s.conn(clientID); c != nil {
		_ = c.CloseNow()
	}
}

// Kick 以正常关闭码断开客户端
func (s *FakeServer) Kick(clientID string) {
	if c := s.conn(clientID); c != nil {
		_ = c.Close(websocket.StatusNormalClosure, "kicked")
	}
}

var errWaitTimeout = errors.New("timed out")

// notify 缓冲区满时丢弃，避免未读取的测试阻塞服务器
func notify[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func waitOn[T any](ch <-chan T) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-time.After(waitTimeout):
		var zero T
		return zero, errWaitTimeout
	}
}

// WaitConnected 等待下一个建立的连接并返回其 id
func (s *FakeServer) WaitConnected(t testing.TB) string {
	t.Helper()
	id, err := waitOn(s.connected)
	if err != nil {
		t.Fatalf("waiting for connection: %v", err)
	}
	return id
}

// WaitDisconnected 等待下一个断开的连接并返回其 id
func (s *FakeServer) WaitDisconnected(t testing.TB) string {
	t.Helper()
	id, err := waitOn(s.disconnected)
	if err != nil {
		t.Fatalf("waiting for disconnect: %v", err)
	}
	return id
}

// WaitHeader 返回下一个连接的握手头
func (s *FakeServer) WaitHeader(t testing.TB) http.Header {
	t.Helper()
	h, err := waitOn(s.headers)
	if err != nil {
		t.Fatalf("waiting for handshake: %v", err)
	}
	return h
}

// WaitEvent 等待下一条客户端事件
func (s *FakeServer) WaitEvent(t testing.TB) Received {
	t.Helper()
	r, err := waitOn(s.received)
	if err != nil {
		t.Fatalf("waiting for client event: %v", err)
	}
	return r
}

// WaitEventCode 跳过其它事件，直到收到指定事件码
func (s *FakeServer) WaitEventCode(t testing.TB, code protocol.ClientEventCode) Received {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case r := <-s.received:
			if r.Event.EventCode == code {
				return r
			}
		case <-deadline:
			t.Fatalf("waiting for %v: %v", code, errWaitTimeout)
			return Received{}
		}
	}
}

// NoEvent 断言短时间内没有收到任何客户端事件
func (s *FakeServer) NoEvent(t testing.TB, within time.Duration) {
	t.Helper()
	select {
	case r := <-s.received:
		t.Fatalf("unexpected client event %v from %s", r.Event.EventCode, r.ClientID)
	case <-time.After(within):
	}
}
