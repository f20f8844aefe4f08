// Package sound plays short audio cues for game events.
package sound

import "github.com/ndbaker1/BONK/internal/protocol"

// Cue 提示音名称，同时也是 assets/sounds 下的文件名（不含扩展名）
type Cue string

const (
	CueJoin     Cue = "join"
	CueTurn     Cue = "turn"
	CueDamage   Cue = "damage"
	CueTargeted Cue = "targeted"
)

// Player 播放提示音
type Player interface {
	Play(cue Cue)
}

// CueFor 事件对应的提示音，self 为本地玩家 id。无提示音时返回空。
func CueFor(ev *protocol.ServerEvent, self string, targeted bool) Cue {
	if ev == nil {
		return ""
	}
	if targeted {
		return CueTargeted
	}
	switch ev.EventCode {
	case protocol.ClientJoined:
		return CueJoin
	case protocol.TurnStart:
		if ev.ClientID() == self {
			return CueTurn
		}
	case protocol.Damage:
		if ev.ClientID() == self {
			return CueDamage
		}
	}
	return ""
}
