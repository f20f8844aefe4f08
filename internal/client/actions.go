package client

import (
	"context"

	"github.com/ndbaker1/BONK/internal/apperrors"
	"github.com/ndbaker1/BONK/internal/logger"
	"github.com/ndbaker1/BONK/internal/protocol"
	"github.com/ndbaker1/BONK/internal/transport"
)

// --- 连接 ---

// Connect 以 identity 连接服务器，identity 为空时使用当前身份。
// 已连接时先关闭旧连接（触发一次 Disconnected），再建立新连接。
// 不可在事件观察者中调用。
func (c *Client) Connect(ctx context.Context, identity string) error {
	if identity == "" {
		identity = c.Identity()
	}
	if identity == "" {
		return apperrors.ErrEmptyIdentity
	}

	return c.conn.Connect(ctx, identity, transport.Callbacks{
		OnOpen:  func() { c.onOpen(identity) },
		OnClose: c.onClose,
		OnError: c.onError,
	})
}

// Disconnect 请求断开，完成后收到 Disconnected 更新
func (c *Client) Disconnect() {
	c.conn.Disconnect()
}

// Close 断开并等待连接结束
func (c *Client) Close() {
	c.conn.Close()
}

// SetIdentity 修改身份，连接打开时不允许
func (c *Client) SetIdentity(identity string) error {
	if c.conn.IsOpen() {
		return apperrors.ErrIdentityFrozen
	}
	if identity == "" {
		return apperrors.ErrEmptyIdentity
	}
	c.Session.SetIdentity(identity)
	return nil
}

func (c *Client) onOpen(identity string) {
	c.Session.SetIdentity(identity)
	c.Session.Opened()
	c.Game.Reset()

	resumed := c.restoreSnapshot(identity)
	c.publish(Update{Kind: UpdateConnected})

	if !c.opts.SkipResume || resumed {
		c.conn.Send(protocol.NewSimple(protocol.DataRequest))
	}
}

func (c *Client) onClose() {
	c.Session.Closed()
	c.Game.Reset()
	c.clearPrompt()
	c.publish(Update{Kind: UpdateDisconnected})
}

func (c *Client) onError(err error) {
	logger.LogError("connection error: %v", err)
	c.publish(Update{Kind: UpdateError, Err: err})
}

// --- 会话 ---

func (c *Client) send(ev *protocol.ClientEvent) error {
	if !c.conn.Send(ev) {
		return apperrors.ErrNotConnected
	}
	return nil
}

// CreateSession 创建会话
func (c *Client) CreateSession() error {
	return c.send(protocol.NewSimple(protocol.CreateSession))
}

// JoinSession 加入会话。id 长度不为 5 时直接返回校验错误，不发送任何消息。
func (c *Client) JoinSession(sessionID string) error {
	if err := apperrors.ValidateSessionID(sessionID); err != nil {
		return err
	}
	return c.send(protocol.NewJoinSession(sessionID))
}

// LeaveSession 离开会话
func (c *Client) LeaveSession() error {
	return c.send(protocol.NewSimple(protocol.LeaveSession))
}

// FetchState 请求服务器重发会话与对局数据
func (c *Client) FetchState() error {
	return c.send(protocol.NewSimple(protocol.DataRequest))
}

// --- 对局 ---

// StartGame 开始游戏
func (c *Client) StartGame() error {
	return c.send(protocol.NewSimple(protocol.StartGame))
}

// EndTurn 结束回合
func (c *Client) EndTurn() error {
	return c.send(protocol.NewSimple(protocol.EndTurn))
}

// PlayCard 出牌。cards 为空表示放弃响应。发送成功后牌从本地手牌移入弃牌堆。
func (c *Client) PlayCard(cards []protocol.Card, targets []string, intent protocol.Intent) error {
	if err := c.send(protocol.NewPlayCards(cards, targets, intent)); err != nil {
		return err
	}
	c.clearPrompt()

	if len(cards) > 0 {
		if err := c.Game.PlayFromHand(cards); err != nil {
			// 以服务器下一次更新为准
			logger.LogDebug("local hand out of sync: %v", err)
		}
	}
	return nil
}

// UseAbility 使用角色技能
func (c *Client) UseAbility(character protocol.Character, targets []string, intent protocol.Intent) error {
	return c.send(protocol.NewUseAbility(character, targets, intent))
}
