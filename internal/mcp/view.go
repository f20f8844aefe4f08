package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/ndbaker1/BONK/internal/client"
	"github.com/ndbaker1/BONK/internal/protocol"
)

// EventView 一条服务端事件的摘要
type EventView struct {
	Code     string `json:"code"`
	Message  string `json:"message,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// CardView 手牌中的一张牌，index 从 0 开始
type CardView struct {
	Index int    `json:"index"`
	Card  string `json:"card"`
}

// GameView 对局概况
type GameView struct {
	Round       int        `json:"round"`
	PlayerOrder []string   `json:"player_order"`
	CurrentTurn string     `json:"current_turn"`
	MyTurn      bool       `json:"my_turn"`
	Role        string     `json:"role,omitempty"`
	Character   string     `json:"character,omitempty"`
	Health      int        `json:"health"`
	MaxHealth   int        `json:"max_health"`
	Hand        []CardView `json:"hand"`
}

// StateView 工具返回的完整状态
type StateView struct {
	Identity     string      `json:"identity"`
	Connected    bool        `json:"connected"`
	Screen       string      `json:"screen"`
	SessionID    string      `json:"session_id,omitempty"`
	Roster       []string    `json:"roster,omitempty"`
	Notification string      `json:"notification,omitempty"`
	Targeted     bool        `json:"targeted"`
	Game         *GameView   `json:"game,omitempty"`
	Events       []EventView `json:"events"`
}

func eventView(ev *protocol.ServerEvent) EventView {
	return EventView{
		Code:     ev.EventCode.String(),
		Message:  ev.Message,
		ClientID: ev.ClientID(),
	}
}

func cardViews(hand []protocol.Card) []CardView {
	out := make([]CardView, 0, len(hand))
	for i, c := range hand {
		out = append(out, CardView{Index: i, Card: c.String()})
	}
	return out
}

// buildState 从客户端读取当前状态
func buildState(c *client.Client, events []EventView) *StateView {
	snap := c.Session.Snapshot()
	st := &StateView{
		Identity:     snap.Identity,
		Connected:    c.IsConnected(),
		Screen:       snap.Screen.String(),
		SessionID:    snap.SessionID,
		Roster:       snap.Roster,
		Notification: snap.Notification,
		Targeted:     c.PendingPrompt() != nil,
		Events:       events,
	}
	if st.Events == nil {
		st.Events = []EventView{}
	}

	gd := c.Game.GameData()
	if gd == nil {
		return st
	}
	gv := &GameView{
		Round:       gd.Round,
		PlayerOrder: gd.PlayerOrder,
		CurrentTurn: c.Game.CurrentPlayer(),
		MyTurn:      c.Game.IsTurn(snap.Identity),
		Hand:        []CardView{},
	}
	if pd := c.Game.PlayerData(); pd != nil {
		gv.Role = pd.Role.String()
		gv.Character = pd.Character.String()
		gv.Health = pd.Health
		gv.MaxHealth = pd.MaxHealth
		gv.Hand = cardViews(pd.Hand)
	}
	st.Game = gv
	return st
}

// respondJSON marshals a StateView to a JSON string.
func respondJSON(st *StateView) string {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal error: %v"}`, err)
	}
	return string(data)
}
