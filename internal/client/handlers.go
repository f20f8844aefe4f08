package client

import (
	"github.com/ndbaker1/BONK/internal/dispatch"
	"github.com/ndbaker1/BONK/internal/logger"
	"github.com/ndbaker1/BONK/internal/protocol"
	"github.com/ndbaker1/BONK/internal/sound"
)

// eventHandlers 服务端事件处理器映射表
var eventHandlers = map[protocol.ServerEventCode]dispatch.Handler[*Client]{
	// Session
	protocol.ClientJoined: handleClientJoined,
	protocol.ClientLeft:   handleClientLeft,
	protocol.DataResponse: handleDataResponse,

	// Game
	protocol.GameStarted: handleGameStarted,
	protocol.TurnStart:   handleTurnStart,
	protocol.Draw:        handleDraw,
	protocol.Damage:      handleDamage,

	// Messages
	protocol.LogicError: handleMessage,
	protocol.Action:     handleMessage,
	protocol.Targetted:  handleMessage,
}

func eventData(ev *protocol.ServerEvent) *protocol.ServerEventData {
	if ev.Data == nil {
		return &protocol.ServerEventData{}
	}
	return ev.Data
}

func handleClientJoined(c *Client, ev *protocol.ServerEvent) {
	if ev.ClientID() == c.Identity() {
		c.Game.Reset()
	}
	c.Session.ApplyClientJoined(ev)
	c.finish(ev, false, true)
}

func handleClientLeft(c *Client, ev *protocol.ServerEvent) {
	if ev.ClientID() == c.Identity() {
		c.Game.Reset()
		c.clearPrompt()
	}
	c.Session.ApplyClientLeft(ev)
	c.finish(ev, false, true)
}

func handleDataResponse(c *Client, ev *protocol.ServerEvent) {
	data := eventData(ev)
	if data.GameData != nil {
		c.Game.Replace(data.GameData, data.PlayerData)
	} else {
		c.Game.Reset()
	}
	c.Session.ApplyDataResponse(ev)
	c.finish(ev, false, true)
}

func handleGameStarted(c *Client, ev *protocol.ServerEvent) {
	data := eventData(ev)
	c.Game.Replace(data.GameData, data.PlayerData)
	c.Session.ApplyGameStarted(ev)
	c.finish(ev, false, true)
}

func handleTurnStart(c *Client, ev *protocol.ServerEvent) {
	c.Game.ApplyTurnStart(ev)
	c.finish(ev, false, false)
}

func handleDraw(c *Client, ev *protocol.ServerEvent) {
	c.Game.ApplyDraw(ev)
	c.Session.Notify(ev.Message)
	c.finish(ev, false, false)
}

func handleDamage(c *Client, ev *protocol.ServerEvent) {
	c.Game.ApplyDamage(ev, c.Identity())
	c.Session.Notify(ev.Message)
	c.finish(ev, false, false)
}

// handleMessage LogicError / Action / Targetted：提示，被瞄准时交给策略响应
func handleMessage(c *Client, ev *protocol.ServerEvent) {
	c.Session.ApplyMessage(ev)

	d, targeted := c.policy.Handle(ev, c.Game.Hand())
	if targeted && !d.Defer && len(d.Cards) > 0 && c.conn.IsOpen() {
		if err := c.Game.PlayFromHand(d.Cards); err != nil {
			logger.LogDebug("auto response not reflected locally: %v", err)
		}
	}
	c.finish(ev, targeted, false)
}

// finish 处理完成后的公共步骤
func (c *Client) finish(ev *protocol.ServerEvent, targeted, sessionChanged bool) {
	if sessionChanged {
		c.saveSnapshot()
	}
	c.play(sound.CueFor(ev, c.Identity(), targeted))
	c.publish(Update{Kind: UpdateEvent, Event: ev})
	c.notifyObservers(ev)
}
