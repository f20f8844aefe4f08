// Package session tracks which screen the client is on and the session it belongs to.
package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ndbaker1/BONK/internal/protocol"
)

// Screen 客户端所处界面
type Screen uint8

const (
	Login Screen = iota
	Menu
	Lobby
	Game
)

var screenNames = map[Screen]string{
	Login: "Login",
	Menu:  "Menu",
	Lobby: "Lobby",
	Game:  "Game",
}

func (s Screen) String() string {
	if name, ok := screenNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Screen(%d)", uint8(s))
}

// ParseScreen 按名字解析界面，未知名字返回 Login
func ParseScreen(name string) Screen {
	for s, n := range screenNames {
		if n == name {
			return s
		}
	}
	return Login
}

// 通知文案
const (
	MsgConnected      = "Connected."
	MsgDisconnected   = "Disconnected."
	MsgCreated        = "Created New Session!"
	MsgJoined         = "Joined Session!"
	MsgLeft           = "Left the Session."
	MsgGameStarting   = "Game is starting!"
	MsgResumedSession = "Resumed Previous Session!"
)

const maxNotifications = 50

// Notification 一条提示
type Notification struct {
	Text string
	At   time.Time
}

// Snapshot 某一时刻的只读副本
type Snapshot struct {
	Screen       Screen
	Identity     string
	SessionID    string
	Roster       []string
	Notification string
}

// State 界面/会话状态机。所有方法并发安全。
type State struct {
	mu        sync.RWMutex
	screen    Screen
	identity  string
	sessionID string
	roster    []string
	notes     []Notification // 最新的在末尾

	now func() time.Time
}

// New 创建处于 Login 界面的状态
func New() *State {
	return &State{screen: Login, now: time.Now}
}

// --- 读取 ---

func (s *State) Screen() Screen {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screen
}

func (s *State) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *State) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Roster 返回成员列表副本
func (s *State) Roster() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roster)
}

// RosterSize 当前会话人数，供调用方判断是否满员
func (s *State) RosterSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.roster)
}

// Notification 最新一条提示
func (s *State) Notification() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.notes) == 0 {
		return ""
	}
	return s.notes[len(s.notes)-1].Text
}

// Notifications 返回历史提示，最新的在前
func (s *State) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.notes))
	for i, n := range s.notes {
		out[len(s.notes)-1-i] = n
	}
	return out
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Screen:    s.screen,
		Identity:  s.identity,
		SessionID: s.sessionID,
		Roster:    slices.Clone(s.roster),
	}
	if len(s.notes) > 0 {
		snap.Notification = s.notes[len(s.notes)-1].Text
	}
	return snap
}

// --- 本地操作 ---

// SetIdentity 设置身份。是否允许修改由调用方根据连接状态判断。
func (s *State) SetIdentity(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
}

// Notify 追加提示，空文本忽略
func (s *State) Notify(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyLocked(text)
}

func (s *State) notifyLocked(text string) {
	s.notes = append(s.notes, Notification{Text: text, At: s.now()})
	if len(s.notes) > maxNotifications {
		s.notes = slices.Delete(s.notes, 0, len(s.notes)-maxNotifications)
	}
}

// Restore 用持久化快照恢复会话信息，不改变界面
func (s *State) Restore(sessionID string, roster []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	s.roster = dedupe(roster)
}

// --- 连接事件 ---

// Opened 连接建立：Login → Menu
func (s *State) Opened() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen == Login {
		s.screen = Menu
	}
	s.notifyLocked(MsgConnected)
}

// Closed 连接关闭：任意界面 → Login
func (s *State) Closed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screen = Login
	s.sessionID = ""
	s.roster = nil
	s.notifyLocked(MsgDisconnected)
}

// --- 服务端事件 ---

// dedupe 去重并保持首次出现的顺序
func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func eventData(ev *protocol.ServerEvent) protocol.ServerEventData {
	if ev == nil || ev.Data == nil {
		return protocol.ServerEventData{}
	}
	return *ev.Data
}

// ApplyClientJoined 处理 ClientJoined
func (s *State) ApplyClientJoined(ev *protocol.ServerEvent) {
	data := eventData(ev)

	s.mu.Lock()
	defer s.mu.Unlock()

	if data.SessionClientIDs != nil {
		s.roster = dedupe(data.SessionClientIDs)
	} else if data.ClientID != "" && !slices.Contains(s.roster, data.ClientID) {
		s.roster = append(s.roster, data.ClientID)
	}

	if data.ClientID != s.identity {
		s.notifyLocked(fmt.Sprintf("User %s Joined!", data.ClientID))
		return
	}

	if data.SessionID != "" {
		s.sessionID = data.SessionID
	}
	if s.screen != Login {
		s.screen = Lobby
	}
	if len(s.roster) == 1 {
		s.notifyLocked(MsgCreated)
	} else {
		s.notifyLocked(MsgJoined)
	}
}

// ApplyClientLeft 处理 ClientLeft
func (s *State) ApplyClientLeft(ev *protocol.ServerEvent) {
	data := eventData(ev)

	s.mu.Lock()
	defer s.mu.Unlock()

	if data.ClientID != s.identity {
		s.roster = slices.DeleteFunc(s.roster, func(id string) bool { return id == data.ClientID })
		s.notifyLocked(fmt.Sprintf("User %s Left!", data.ClientID))
		return
	}

	if s.screen == Lobby || s.screen == Game {
		s.screen = Menu
	}
	s.sessionID = ""
	s.roster = nil
	s.notifyLocked(MsgLeft)
}

// ApplyGameStarted 处理 GameStarted
func (s *State) ApplyGameStarted(ev *protocol.ServerEvent) {
	data := eventData(ev)

	s.mu.Lock()
	defer s.mu.Unlock()

	if data.SessionClientIDs != nil {
		s.roster = dedupe(data.SessionClientIDs)
	}
	if s.screen != Login {
		s.screen = Game
	}
	s.notifyLocked(MsgGameStarting)
}

// ApplyDataResponse 处理 DataResponse：按返回内容恢复到 Lobby 或 Game
func (s *State) ApplyDataResponse(ev *protocol.ServerEvent) {
	data := eventData(ev)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.screen == Login {
		return
	}

	s.sessionID = data.SessionID
	s.roster = dedupe(data.SessionClientIDs)

	switch {
	case data.SessionID == "":
		s.screen = Menu
		return
	case data.GameData != nil:
		s.screen = Game
	default:
		s.screen = Lobby
	}
	s.notifyLocked(MsgResumedSession)
}

// ApplyMessage 处理 LogicError / Action / Targetted：只提示，不改变界面
func (s *State) ApplyMessage(ev *protocol.ServerEvent) {
	if ev == nil {
		return
	}
	s.Notify(ev.Message)
}
