package protocol

// --- 客户端事件构造 ---

// NewJoinSession 加入会话
func NewJoinSession(sessionID string) *ClientEvent {
	return &ClientEvent{EventCode: JoinSession, SessionID: sessionID}
}

// NewSimple 无负载事件（CreateSession / LeaveSession / DataRequest / StartGame / EndTurn）
func NewSimple(code ClientEventCode) *ClientEvent {
	return &ClientEvent{EventCode: code}
}

// NewPlayCards 出牌。cards 为空表示放弃响应（承受伤害）。
func NewPlayCards(cards []Card, targets []string, intent Intent) *ClientEvent {
	return &ClientEvent{
		EventCode:  PlayerAction,
		ActionType: ActionCard,
		Cards:      append([]Card{}, cards...),
		TargetIDs:  append([]string{}, targets...),
		Intent:     intent,
	}
}

// NewUseAbility 使用角色技能
func NewUseAbility(character Character, targets []string, intent Intent) *ClientEvent {
	return &ClientEvent{
		EventCode:  PlayerAction,
		ActionType: ActionCharacterAbility,
		Character:  character,
		TargetIDs:  append([]string{}, targets...),
		Intent:     intent,
	}
}

// --- 服务端事件构造（测试桩服务器使用） ---

// ServerEventBuilder 链式构造服务端事件
type ServerEventBuilder struct {
	ev ServerEvent
}

// NewServerEvent 创建构造器
func NewServerEvent(code ServerEventCode) *ServerEventBuilder {
	return &ServerEventBuilder{ev: ServerEvent{EventCode: code}}
}

func (b *ServerEventBuilder) data() *ServerEventData {
	if b.ev.Data == nil {
		b.ev.Data = &ServerEventData{}
	}
	return b.ev.Data
}

func (b *ServerEventBuilder) Message(msg string) *ServerEventBuilder {
	b.ev.Message = msg
	return b
}

func (b *ServerEventBuilder) ClientID(id string) *ServerEventBuilder {
	b.data().ClientID = id
	return b
}

func (b *ServerEventBuilder) SessionID(id string) *ServerEventBuilder {
	b.data().SessionID = id
	return b
}

func (b *ServerEventBuilder) SessionClientIDs(ids ...string) *ServerEventBuilder {
	b.data().SessionClientIDs = append([]string{}, ids...)
	return b
}

func (b *ServerEventBuilder) GameData(g *GameData) *ServerEventBuilder {
	b.data().GameData = g.Clone()
	return b
}

func (b *ServerEventBuilder) PlayerData(p *PlayerData) *ServerEventBuilder {
	b.data().PlayerData = p.Clone()
	return b
}

func (b *ServerEventBuilder) HealthChange(delta int) *ServerEventBuilder {
	b.data().HealthChange = &delta
	return b
}

func (b *ServerEventBuilder) CardOptions(cards ...Card) *ServerEventBuilder {
	b.data().CardOptions = append([]Card{}, cards...)
	return b
}

// Build 返回事件副本，构造器可复用
func (b *ServerEventBuilder) Build() *ServerEvent {
	out := b.ev
	if b.ev.Data != nil {
		d := *b.ev.Data
		out.Data = &d
	}
	return &out
}
