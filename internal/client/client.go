// Package client is the explicit context object tying the connection, dispatcher and state stores together.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/ndbaker1/BONK/internal/config"
	"github.com/ndbaker1/BONK/internal/dispatch"
	"github.com/ndbaker1/BONK/internal/game"
	"github.com/ndbaker1/BONK/internal/logger"
	"github.com/ndbaker1/BONK/internal/policy"
	"github.com/ndbaker1/BONK/internal/protocol"
	"github.com/ndbaker1/BONK/internal/session"
	"github.com/ndbaker1/BONK/internal/sound"
	"github.com/ndbaker1/BONK/internal/storage"
	"github.com/ndbaker1/BONK/internal/transport"
)

const (
	updateBuffer  = 64
	storeTimeout  = 2 * time.Second
	defaultServer = "ws://localhost:8000"
)

// SnapshotStore 持久化会话快照（可选）
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *storage.SessionSnapshot) error
	LoadSnapshot(ctx context.Context, identity string) (*storage.SessionSnapshot, error)
}

// Options 客户端参数
type Options struct {
	ServerURL     string
	Transport     transport.Options
	Identity      string
	AutoRespond   bool
	DefensiveCard string
	SkipResume    bool // 连接后不发送 DataRequest

	Store SnapshotStore // 可为 nil
	Sound sound.Player  // 可为 nil
}

// OptionsFromConfig 从配置构造参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ServerURL:     cfg.Server.URL,
		Transport:     transport.OptionsFromConfig(&cfg.Server),
		Identity:      cfg.Client.Identity,
		AutoRespond:   cfg.Client.AutoRespond,
		DefensiveCard: cfg.Client.DefensiveCard,
		SkipResume:    cfg.Client.SkipResume,
	}
}

// EventObserver 在内置处理完成后收到每个事件
type EventObserver func(c *Client, ev *protocol.ServerEvent)

// Client 客户端上下文：连接、分发器、会话状态、对局状态与自动响应策略
type Client struct {
	Session *session.State
	Game    *game.Store

	opts       Options
	conn       *transport.Client
	dispatcher *dispatch.Dispatcher[*Client]
	policy     *policy.Policy

	updates chan Update

	mu        sync.RWMutex
	observers []EventObserver
	prompt    []protocol.Card // 等待手动响应时的手牌
}

// New 创建客户端。AutoRespond 为 false 时被瞄准后等待玩家手动出牌。
func New(opts Options) (*Client, error) {
	if opts.ServerURL == "" {
		opts.ServerURL = defaultServer
	}

	c := &Client{
		Session: session.New(),
		Game:    game.NewStore(),
		opts:    opts,
		updates: make(chan Update, updateBuffer),
	}
	c.Session.SetIdentity(opts.Identity)

	c.dispatcher = dispatch.New(c)
	c.dispatcher.RegisterAll(eventHandlers)
	c.conn = transport.NewClient(opts.ServerURL, c.dispatcher, opts.Transport)

	var responder policy.Responder = &policy.PromptResponder{OnPrompt: c.onPrompt}
	if opts.AutoRespond {
		auto, err := policy.NewAutoResponder(opts.DefensiveCard)
		if err != nil {
			return nil, err
		}
		responder = auto
	}
	c.policy = policy.New(responder, c.conn)

	return c, nil
}

// Updates UI 订阅的变化通知。缓冲区满时丢弃旧通知之外的新通知。
func (c *Client) Updates() <-chan Update {
	return c.updates
}

// Observe 注册事件观察者（机器人、调试工具）
func (c *Client) Observe(fn EventObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// IsConnected 连接是否打开
func (c *Client) IsConnected() bool {
	return c.conn.IsOpen()
}

// Identity 当前身份
func (c *Client) Identity() string {
	return c.Session.Identity()
}

// ServerURL 服务器地址
func (c *Client) ServerURL() string {
	return c.opts.ServerURL
}

// Policy 自动响应策略
func (c *Client) Policy() *policy.Policy {
	return c.policy
}

// PendingPrompt 等待手动响应时的手牌，nil 表示没有待处理的瞄准
func (c *Client) PendingPrompt() []protocol.Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prompt
}

func (c *Client) onPrompt(hand []protocol.Card) {
	c.mu.Lock()
	c.prompt = hand
	c.mu.Unlock()
	c.publish(Update{Kind: UpdatePrompt, Hand: hand})
}

func (c *Client) clearPrompt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompt = nil
}

func (c *Client) publish(u Update) {
	select {
	case c.updates <- u:
	default:
		logger.LogDebug("update channel full, dropping %v", u.Kind)
	}
}

// notifyObservers 在读循环中调用，观察者不得调用 Connect
func (c *Client) notifyObservers(ev *protocol.ServerEvent) {
	c.mu.RLock()
	observers := append([]EventObserver(nil), c.observers...)
	c.mu.RUnlock()

	for _, fn := range observers {
		fn(c, ev)
	}
}

// saveSnapshot 会话变化后写入快照
func (c *Client) saveSnapshot() {
	if c.opts.Store == nil {
		return
	}
	snap := c.Session.Snapshot()
	if snap.Identity == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	err := c.opts.Store.SaveSnapshot(ctx, &storage.SessionSnapshot{
		Identity:  snap.Identity,
		SessionID: snap.SessionID,
		Screen:    snap.Screen.String(),
		Roster:    snap.Roster,
	})
	if err != nil {
		logger.LogError("save snapshot for %s: %v", snap.Identity, err)
	}
}

// restoreSnapshot 连接时读取上次的会话，返回是否存在
func (c *Client) restoreSnapshot(identity string) bool {
	if c.opts.Store == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	snap, err := c.opts.Store.LoadSnapshot(ctx, identity)
	if err != nil {
		logger.LogError("load snapshot for %s: %v", identity, err)
		return false
	}
	if snap == nil || snap.SessionID == "" {
		return false
	}
	c.Session.Restore(snap.SessionID, snap.Roster)
	return true
}

func (c *Client) play(cue sound.Cue) {
	if c.opts.Sound != nil && cue != "" {
		c.opts.Sound.Play(cue)
	}
}
