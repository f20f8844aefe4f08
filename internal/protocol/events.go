package protocol

import "encoding/json"

// ServerEvent 服务端推送的事件
type ServerEvent struct {
	EventCode ServerEventCode  `json:"event_code"`
	Message   string           `json:"message,omitempty"`
	Data      *ServerEventData `json:"data,omitempty"`
}

// ServerEventData 事件负载，所有字段均可选
type ServerEventData struct {
	HealthChange     *int        `json:"health_change,omitempty"`
	SessionID        string      `json:"session_id,omitempty"`
	ClientID         string      `json:"client_id,omitempty"`
	SessionClientIDs []string    `json:"session_client_ids,omitempty"`
	GameData         *GameData   `json:"game_data,omitempty"`
	PlayerData       *PlayerData `json:"player_data,omitempty"`
	CardOptions      []Card      `json:"card_options,omitempty"`
}

// GameData 所有玩家共享的对局数据
type GameData struct {
	Round       int         `json:"round"`
	TurnIndex   int         `json:"turn_index"`
	PlayerOrder []string    `json:"player_order"`
	Discard     []Card      `json:"discard"`
	Effect      *EffectCode `json:"effect,omitempty"`
}

// PlayerData 单个玩家的数据，手牌只对本人完整可见
type PlayerData struct {
	MaxHealth int       `json:"max_health"`
	Health    int       `json:"health"`
	Hand      []Card    `json:"hand"`
	Field     []Card    `json:"field"`
	Character Character `json:"character"`
	Role      Role      `json:"role"`
	Alive     bool      `json:"alive"`
}

// ClientEvent 客户端发送的事件
type ClientEvent struct {
	EventCode  ClientEventCode `json:"event_code"`
	ActionType ActionType      `json:"action_type,omitempty"`
	Cards      []Card          `json:"cards,omitempty"`
	Character  Character       `json:"character,omitempty"`
	TargetIDs  []string        `json:"target_ids,omitempty"`
	Intent     Intent          `json:"intent,omitempty"`
	SessionID  string          `json:"session_id,omitempty"`
}

// MarshalJSON PlayerAction 总是带上 cards 与 target_ids，空列表编码为 []
func (e ClientEvent) MarshalJSON() ([]byte, error) {
	type plain ClientEvent
	if e.EventCode != PlayerAction {
		return json.Marshal(plain(e))
	}
	action := struct {
		plain
		Cards     []Card   `json:"cards"`
		TargetIDs []string `json:"target_ids"`
	}{plain: plain(e), Cards: e.Cards, TargetIDs: e.TargetIDs}
	if action.Cards == nil {
		action.Cards = []Card{}
	}
	if action.TargetIDs == nil {
		action.TargetIDs = []string{}
	}
	return json.Marshal(action)
}

// Clone 深拷贝，保证手牌等切片不与调用方共享
func (g *GameData) Clone() *GameData {
	if g == nil {
		return nil
	}
	out := *g
	out.PlayerOrder = append([]string(nil), g.PlayerOrder...)
	out.Discard = append([]Card(nil), g.Discard...)
	if g.Effect != nil {
		e := *g.Effect
		out.Effect = &e
	}
	return &out
}

// Clone 深拷贝
func (p *PlayerData) Clone() *PlayerData {
	if p == nil {
		return nil
	}
	out := *p
	out.Hand = append([]Card(nil), p.Hand...)
	out.Field = append([]Card(nil), p.Field...)
	return &out
}

// ClientID 便捷访问，data 为空时返回空串
func (e *ServerEvent) ClientID() string {
	if e == nil || e.Data == nil {
		return ""
	}
	return e.Data.ClientID
}
