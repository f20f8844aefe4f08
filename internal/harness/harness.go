// Package harness plays a scripted multi-bot game against a live server:
// connect every bot in turn, create a session, join the rest, start, then take turns.
package harness

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ndbaker1/BONK/internal/client"
	"github.com/ndbaker1/BONK/internal/config"
	"github.com/ndbaker1/BONK/internal/logger"
	"github.com/ndbaker1/BONK/internal/policy"
	"github.com/ndbaker1/BONK/internal/protocol"
	"github.com/ndbaker1/BONK/internal/storage"
	"github.com/ndbaker1/BONK/internal/transport"
)

const journalTimeout = 2 * time.Second

// JournalStore 持久化运行日志（可选）
type JournalStore interface {
	AppendJournal(ctx context.Context, runID string, entry storage.JournalEntry) error
}

// Options 编排参数
type Options struct {
	ServerURL     string
	Transport     transport.Options
	Names         []string
	Turns         int           // 总共进行的回合数，至少 1
	TurnDelay     time.Duration // 出牌后等待响应结算的时间
	DefensiveCard string
	Journal       JournalStore         // 可为 nil
	Snapshots     client.SnapshotStore // 可为 nil
}

// OptionsFromConfig 从配置构造参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ServerURL:     cfg.Server.URL,
		Transport:     transport.OptionsFromConfig(&cfg.Server),
		Names:         BotNames(&cfg.Bots),
		Turns:         cfg.Bots.Turns,
		TurnDelay:     cfg.Bots.TurnDelayDuration(),
		DefensiveCard: cfg.Client.DefensiveCard,
	}
}

// BotNames 生成机器人身份：<prefix>1..N，或 <prefix>-<uuid 前 8 位>
func BotNames(cfg *config.BotsConfig) []string {
	names := make([]string, 0, cfg.Count)
	for i := 1; i <= cfg.Count; i++ {
		if cfg.UUIDNames {
			names = append(names, cfg.Prefix+"-"+uuid.NewString()[:8])
		} else {
			names = append(names, cfg.Prefix+strconv.Itoa(i))
		}
	}
	return names
}

// Harness 一次机器人对局
type Harness struct {
	opts  Options
	runID string
	bots  []*client.Client

	mu        sync.Mutex
	entries   []storage.JournalEntry
	sessionID string
	joined    bool
	turnsLeft int

	startOnce  sync.Once
	finishOnce sync.Once
	finished   chan struct{}
	closed     chan struct{}
	closeOnce  sync.Once
}

// New 创建所有机器人客户端，此时尚未连接
func New(opts Options) (*Harness, error) {
	if len(opts.Names) == 0 {
		return nil, fmt.Errorf("harness needs at least one bot")
	}
	if opts.Turns < 1 {
		opts.Turns = 1
	}

	h := &Harness{
		opts:      opts,
		runID:     uuid.NewString(),
		turnsLeft: opts.Turns,
		finished:  make(chan struct{}),
		closed:    make(chan struct{}),
	}

	for _, name := range opts.Names {
		c, err := client.New(client.Options{
			ServerURL:     opts.ServerURL,
			Transport:     opts.Transport,
			Identity:      name,
			AutoRespond:   true,
			DefensiveCard: opts.DefensiveCard,
			SkipResume:    true,
			Store:         opts.Snapshots,
		})
		if err != nil {
			return nil, err
		}
		c.Observe(h.observe)
		h.bots = append(h.bots, c)
	}
	return h, nil
}

// RunID 本次运行的唯一 id，也是 Redis 日志的键
func (h *Harness) RunID() string {
	return h.runID
}

// Bots 所有机器人，第一个为房主
func (h *Harness) Bots() []*client.Client {
	return h.bots
}

// SessionID 房主创建的会话 id
func (h *Harness) SessionID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionID
}

// Run 依次连接所有机器人并由第一个创建会话，直到回合打完或 ctx 结束
func (h *Harness) Run(ctx context.Context) error {
	owner := h.bots[0]
	for i, bot := range h.bots {
		name := h.opts.Names[i]
		if err := bot.Connect(ctx, name); err != nil {
			return fmt.Errorf("connect %s: %w", name, err)
		}
	}
	h.logf(owner.Identity(), "successfully connected all users.")
	h.logf(owner.Identity(), "attempting to create a room...")

	if err := owner.CreateSession(); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	select {
	case <-h.finished:
		h.logf(owner.Identity(), "run finished.")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 断开所有机器人
func (h *Harness) Close() {
	h.closeOnce.Do(func() { close(h.closed) })
	for _, bot := range h.bots {
		bot.Close()
	}
}

// observe 在各机器人的读循环中调用，只发送消息，不重连
func (h *Harness) observe(c *client.Client, ev *protocol.ServerEvent) {
	me := c.Identity()
	switch ev.EventCode {
	case protocol.ClientJoined:
		if c == h.bots[0] {
			h.onOwnerJoined(c, ev)
		}

	case protocol.GameStarted:
		h.logf(me, "game started.")
		h.maybePlay(c)

	case protocol.TurnStart:
		if id := ev.ClientID(); id != "" && id == me {
			h.maybePlay(c)
		}

	case protocol.LogicError:
		h.logf(me, "error: %s", ev.Message)

	case protocol.Action, protocol.Targetted:
		if policy.IsTargeted(ev) {
			h.logf(me, "targeted, responding with the first defensive card")
		} else if c == h.bots[0] && ev.Message != "" {
			h.logf(me, "%s", ev.Message)
		}

	case protocol.Damage:
		if c == h.bots[0] {
			h.logf(me, "%s", ev.Message)
		}
	}
}

func (h *Harness) onOwnerJoined(owner *client.Client, ev *protocol.ServerEvent) {
	me := owner.Identity()

	h.mu.Lock()
	first := !h.joined && ev.ClientID() == me && ev.Data != nil && ev.Data.SessionID != ""
	if first {
		h.joined = true
		h.sessionID = ev.Data.SessionID
	}
	sessionID := h.sessionID
	h.mu.Unlock()

	if first {
		h.logf(me, "successfully created session with %s as owner", me)
		if len(h.bots) > 1 {
			h.logf(me, "requesting %d other users to join...", len(h.bots)-1)
		}
		for _, bot := range h.bots[1:] {
			if err := bot.JoinSession(sessionID); err != nil {
				h.logf(bot.Identity(), "join failed: %v", err)
			}
		}
	}

	if owner.Session.RosterSize() == len(h.bots) {
		h.startOnce.Do(func() {
			h.logf(me, "all users joined session!")
			h.logf(me, "starting game...")
			if err := owner.StartGame(); err != nil {
				h.logf(me, "start failed: %v", err)
			}
		})
	}
}

// maybePlay 轮到自己时向下一位玩家打出第一张手牌
func (h *Harness) maybePlay(c *client.Client) {
	me := c.Identity()
	if !c.Game.IsTurn(me) {
		return
	}

	h.mu.Lock()
	if h.turnsLeft <= 0 {
		h.mu.Unlock()
		return
	}
	h.turnsLeft--
	last := h.turnsLeft == 0
	h.mu.Unlock()

	h.logf(me, "%s turn.", me)
	if hand := c.Game.Hand(); len(hand) > 0 {
		target := c.Game.NextPlayer(me)
		h.logf(me, "%s playing card %s on %s", me, hand[0].Name, target)
		if err := c.PlayCard(hand[:1], []string{target}, protocol.IntentAsIs); err != nil {
			h.logf(me, "play failed: %v", err)
		}
	} else {
		h.logf(me, "%s has no cards to play", me)
	}

	go h.afterPlay(c, last)
}

// afterPlay 等待结算后结束回合，最后一回合结束运行
func (h *Harness) afterPlay(c *client.Client, last bool) {
	select {
	case <-time.After(h.opts.TurnDelay):
	case <-h.closed:
		return
	}

	if last {
		h.finishOnce.Do(func() { close(h.finished) })
		return
	}
	if err := c.EndTurn(); err != nil {
		h.logf(c.Identity(), "end turn failed: %v", err)
	}
}

// logf 写入内存日志，配置了 JournalStore 时同步写入
func (h *Harness) logf(bot, format string, args ...any) {
	entry := storage.JournalEntry{
		At:   time.Now().UnixMilli(),
		Bot:  bot,
		Line: fmt.Sprintf(format, args...),
	}
	logger.LogInfo("[%s] %s", bot, entry.Line)

	h.mu.Lock()
	h.entries = append(h.entries, entry)
	h.mu.Unlock()

	if h.opts.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := h.opts.Journal.AppendJournal(ctx, h.runID, entry); err != nil {
		logger.LogError("append journal for run %s: %v", h.runID, err)
	}
}

// Log 内存中的运行日志副本
func (h *Harness) Log() []storage.JournalEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]storage.JournalEntry(nil), h.entries...)
}
