package client

import "github.com/ndbaker1/BONK/internal/protocol"

// UpdateKind 变化类型
type UpdateKind uint8

const (
	UpdateConnected UpdateKind = iota + 1
	UpdateDisconnected
	UpdateEvent
	UpdatePrompt
	UpdateError
)

var updateKindNames = map[UpdateKind]string{
	UpdateConnected:    "Connected",
	UpdateDisconnected: "Disconnected",
	UpdateEvent:        "Event",
	UpdatePrompt:       "Prompt",
	UpdateError:        "Error",
}

func (k UpdateKind) String() string {
	if name, ok := updateKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Update 推送给 UI 的一次变化，UI 收到后重新读取状态
type Update struct {
	Kind  UpdateKind
	Event *protocol.ServerEvent
	Hand  []protocol.Card
	Err   error
}
