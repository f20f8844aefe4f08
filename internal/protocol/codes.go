// Package protocol defines the wire taxonomy shared with the BONK game server.
package protocol

import "strconv"

// Version 当前事件编码表的版本，握手时通过 VersionHeader 发送
const (
	Version       = "1"
	VersionHeader = "X-Bonk-Protocol"
)

// ServerEventCode 服务端 → 客户端 事件码
type ServerEventCode uint8

const (
	ClientJoined ServerEventCode = iota + 1 // client_id, session_id, session_client_ids
	ClientLeft                              // client_id
	GameStarted                             // game_data, player_data, session_client_ids
	DataResponse                            // session_id, session_client_ids, game_data?, player_data?
	TurnStart                               // client_id
	LogicError                              // message
	Action                                  // message, client_id
	Draw                                    // client_id, player_data?, game_data?
	Damage                                  // client_id, health_change?
	Targetted                               // message, client_id
)

var serverEventNames = map[ServerEventCode]string{
	ClientJoined: "ClientJoined",
	ClientLeft:   "ClientLeft",
	GameStarted:  "GameStarted",
	DataResponse: "DataResponse",
	TurnStart:    "TurnStart",
	LogicError:   "LogicError",
	Action:       "Action",
	Draw:         "Draw",
	Damage:       "Damage",
	Targetted:    "Targetted",
}

func (c ServerEventCode) String() string {
	if name, ok := serverEventNames[c]; ok {
		return name
	}
	return "ServerEventCode(" + strconv.Itoa(int(c)) + ")"
}

// ClientEventCode 客户端 → 服务端 事件码
type ClientEventCode uint8

const (
	JoinSession   ClientEventCode = iota + 1 // session_id
	CreateSession                            //
	LeaveSession                             //
	DataRequest                              // 断线恢复 / 拉取状态
	StartGame                                //
	EndTurn                                  //
	PlayerAction                             // cards, target_ids, intent?, action_type?, character?
)

var clientEventNames = map[ClientEventCode]string{
	JoinSession:   "JoinSession",
	CreateSession: "CreateSession",
	LeaveSession:  "LeaveSession",
	DataRequest:   "DataRequest",
	StartGame:     "StartGame",
	EndTurn:       "EndTurn",
	PlayerAction:  "PlayerAction",
}

func (c ClientEventCode) String() string {
	if name, ok := clientEventNames[c]; ok {
		return name
	}
	return "ClientEventCode(" + strconv.Itoa(int(c)) + ")"
}

// Intent 出牌意图
type Intent uint8

const (
	IntentAsIs Intent = iota + 1
	IntentForResponse
)

// ActionType 玩家行动类型
type ActionType uint8

const (
	ActionCard ActionType = iota + 1
	ActionCharacterAbility
)

// EffectCode 挂起的效果
type EffectCode uint8

const (
	EffectGeneralStore EffectCode = iota + 1
)
