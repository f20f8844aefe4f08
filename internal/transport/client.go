// Package transport owns the single WebSocket connection to the game server.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ndbaker1/BONK/internal/config"
	"github.com/ndbaker1/BONK/internal/logger"
	"github.com/ndbaker1/BONK/internal/protocol"
	"github.com/ndbaker1/BONK/internal/protocol/codec"
)

const sendBufferSize = 256

// Callbacks 连接生命周期回调，均可为 nil
type Callbacks struct {
	OnOpen  func()
	OnClose func()
	OnError func(error)
}

// EventSink 接收解码后的服务端事件。同一连接上的事件按到达顺序串行投递。
type EventSink interface {
	Dispatch(ev *protocol.ServerEvent)
}

// Options 连接参数
type Options struct {
	HandshakeTimeout time.Duration
	CloseTimeout     time.Duration
	PongWait         time.Duration
	WriteWait        time.Duration
}

// OptionsFromConfig 从服务器配置构造连接参数
func OptionsFromConfig(cfg *config.ServerConfig) Options {
	return Options{
		HandshakeTimeout: cfg.HandshakeTimeoutDuration(),
		CloseTimeout:     cfg.CloseTimeoutDuration(),
		PongWait:         cfg.PongWaitDuration(),
		WriteWait:        cfg.WriteWaitDuration(),
	}
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.CloseTimeout <= 0 {
		o.CloseTimeout = 5 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	return o
}

func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// connection 一次物理连接的全部状态
type connection struct {
	identity  string
	ws        *websocket.Conn
	send      chan []byte
	stop      chan struct{} // 通知 writePump 退出
	done      chan struct{} // readPump 已退出，即关闭已确认
	notified  chan struct{} // 关闭通知（OnClose）已结束
	callbacks Callbacks

	open         atomic.Bool
	closeClaimed atomic.Bool // 关闭通知的归属，先声明者负责触发 OnClose
	closeOnce    sync.Once
	stopOnce     sync.Once
}

func (c *connection) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *connection) stopWriter() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Client WebSocket 客户端，同一时刻至多持有一个活动连接
type Client struct {
	ServerURL string

	opts   Options
	sink   EventSink
	dialer *websocket.Dialer

	connectMu sync.Mutex   // 串行化 Connect / Disconnect
	mu        sync.RWMutex // 保护 conn，只有 Connect 写入
	conn      *connection
}

// NewClient 创建客户端，sink 接收所有入站事件
func NewClient(serverURL string, sink EventSink, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		ServerURL: serverURL,
		opts:      opts,
		sink:      sink,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
			Proxy:            http.ProxyFromEnvironment,
		},
	}
}

// URLFor 连接地址：<server>/ws/<identity>
func (c *Client) URLFor(identity string) string {
	return strings.TrimRight(c.ServerURL, "/") + "/ws/" + url.PathEscape(identity)
}

func (c *Client) current() *connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Connect 以 identity 建立新连接。
// 已有未关闭的连接时，先请求关闭并等待关闭确认，调用本次的 OnClose，然后才拨号。
// OnOpen 在新连接的任何入站事件分发之前触发。不可在事件处理器内调用。
func (c *Client) Connect(ctx context.Context, identity string, cb Callbacks) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if old := c.current(); old != nil && !old.closed() {
		handoff := old.closeClaimed.CompareAndSwap(false, true)
		c.closeAndWait(old)
		logger.LogInfo("previous connection for %s closed, reconnecting as %s", old.identity, identity)
		if handoff && cb.OnClose != nil {
			cb.OnClose()
		}
	}
	if old := c.current(); old != nil {
		// 读循环自行退出时，旧的 OnClose 可能仍在执行
		<-old.notified
	}

	ws, err := c.dial(ctx, identity)
	if err != nil {
		logger.LogError("connect %s failed: %v", identity, err)
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return err
	}

	conn := &connection{
		identity:  identity,
		ws:        ws,
		send:      make(chan []byte, sendBufferSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		notified:  make(chan struct{}),
		callbacks: cb,
	}
	conn.open.Store(true)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writePump(conn)
	if cb.OnOpen != nil {
		cb.OnOpen()
	}
	go c.readPump(conn)

	logger.LogInfo("connected as %s", identity)
	return nil
}

func (c *Client) dial(ctx context.Context, identity string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set(protocol.VersionHeader, protocol.Version)

	ws, resp, err := c.dialer.DialContext(ctx, c.URLFor(identity), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d, identity may already be taken)", identity, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", identity, err)
	}
	return ws, nil
}

// requestClose 发送关闭帧，完成由 readPump 观察到关闭后确认
func (c *Client) requestClose(conn *connection) {
	conn.open.Store(false)
	conn.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := conn.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteWait)); err != nil {
			// 对端已不可达，直接关闭底层连接让 readPump 退出
			_ = conn.ws.Close()
		}
	})
}

// closeAndWait 请求关闭并等待确认，超时后强制关闭
func (c *Client) closeAndWait(conn *connection) {
	c.requestClose(conn)
	select {
	case <-conn.done:
		return
	case <-time.After(c.opts.CloseTimeout):
		logger.LogError("close confirmation for %s timed out, forcing close", conn.identity)
		_ = conn.ws.Close()
	}
	<-conn.done
}

// Disconnect 请求关闭当前连接。幂等；完成通过 OnClose 回调通知。
func (c *Client) Disconnect() {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	conn := c.current()
	if conn == nil || conn.closed() {
		return
	}
	c.requestClose(conn)
}

// Close 关闭并等待连接结束（进程退出时使用）
func (c *Client) Close() {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	conn := c.current()
	if conn == nil {
		return
	}
	if !conn.closed() {
		c.closeAndWait(conn)
	}
	<-conn.notified
}

// IsOpen 是否存在已打开且未请求关闭的连接
func (c *Client) IsOpen() bool {
	conn := c.current()
	return conn != nil && conn.open.Load()
}

// Identity 当前连接使用的标识，无连接时为空
func (c *Client) Identity() string {
	if conn := c.current(); conn != nil && conn.open.Load() {
		return conn.identity
	}
	return ""
}

// Send 发送事件。未连接时记录日志并丢弃，返回 false。
func (c *Client) Send(ev *protocol.ClientEvent) bool {
	conn := c.current()
	if conn == nil || !conn.open.Load() {
		logger.LogError("socket not connected, dropping %v", eventCode(ev))
		return false
	}

	data, err := codec.EncodeClientEvent(ev)
	if err != nil {
		logger.LogError("encode %v: %v", eventCode(ev), err)
		return false
	}

	select {
	case conn.send <- data:
		return true
	case <-conn.stop:
		logger.LogError("connection closing, dropping %v", eventCode(ev))
		return false
	default:
		logger.LogError("send buffer full, dropping %v", eventCode(ev))
		return false
	}
}

func eventCode(ev *protocol.ClientEvent) any {
	if ev == nil {
		return "<nil>"
	}
	return ev.EventCode
}

// isExpectedClose 正常关闭不需要上报错误
func isExpectedClose(err error) bool {
	if err == nil {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, websocket.ErrCloseSent)
}
