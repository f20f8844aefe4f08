// Package ui is the terminal front end over client.Client.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ndbaker1/BONK/internal/client"
	"github.com/ndbaker1/BONK/internal/session"
)

const (
	connectTimeout = 15 * time.Second
	errorDisplay   = 3 * time.Second
)

// UpdateMsg 客户端推送的变化
type UpdateMsg struct {
	Update client.Update
}

// ConnectResultMsg 连接尝试结束
type ConnectResultMsg struct {
	Err error
}

// ClearErrorMsg 清除错误提示
type ClearErrorMsg struct{}

// OnlineModel 联网模式的 model，状态全部来自 client.Client
type OnlineModel struct {
	client *client.Client
	error  string

	connecting bool
	lastScreen session.Screen

	input  *textinput.Model
	width  int
	height int
}

// NewOnlineModel 创建联网模式 model
func NewOnlineModel(c *client.Client) *OnlineModel {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 40
	ti.Focus()

	m := &OnlineModel{
		client:     c,
		input:      &ti,
		lastScreen: c.Session.Screen(),
	}
	m.refreshPlaceholder()
	if id := c.Identity(); id != "" {
		ti.SetValue(id)
	}
	return m
}

func (m *OnlineModel) Init() tea.Cmd {
	return tea.Batch(m.listenForUpdates(), textinput.Blink)
}

// listenForUpdates 等待下一条客户端变化
func (m *OnlineModel) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.client.Updates()
		if !ok {
			return nil
		}
		return UpdateMsg{Update: u}
	}
}

// connect 在后台连接，不阻塞界面
func (m *OnlineModel) connect(identity string) tea.Cmd {
	m.connecting = true
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return ConnectResultMsg{Err: m.client.Connect(ctx, identity)}
	}
}

// setError 显示错误，几秒后自动清除
func (m *OnlineModel) setError(err error) tea.Cmd {
	m.error = err.Error()
	return tea.Tick(errorDisplay, func(time.Time) tea.Msg {
		return ClearErrorMsg{}
	})
}

// Update handles tea messages.
func (m *OnlineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case UpdateMsg:
		if cmd := m.handleUpdate(msg.Update); cmd != nil {
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, m.listenForUpdates())

	case ConnectResultMsg:
		m.connecting = false
		if msg.Err != nil {
			cmds = append(cmds, m.setError(fmt.Errorf("无法连接到服务器: %w", msg.Err)))
		}

	case ClearErrorMsg:
		m.error = ""

	case tea.KeyMsg:
		handled, cmd := m.handleKeyPress(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		if handled {
			return m, tea.Batch(cmds...)
		}
	}

	newInput, cmd := m.input.Update(msg)
	*m.input = newInput
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleUpdate 界面切换时重置输入框
func (m *OnlineModel) handleUpdate(u client.Update) tea.Cmd {
	if screen := m.client.Session.Screen(); screen != m.lastScreen {
		m.lastScreen = screen
		m.input.Reset()
		if screen == session.Login {
			m.input.SetValue(m.client.Identity())
		}
	}
	m.refreshPlaceholder()

	if u.Kind == client.UpdateError && u.Err != nil {
		return m.setError(u.Err)
	}
	return nil
}

// refreshPlaceholder 按当前界面提示可用命令
func (m *OnlineModel) refreshPlaceholder() {
	switch m.client.Session.Screen() {
	case session.Login:
		m.input.Placeholder = "输入身份后回车连接"
	case session.Menu:
		m.input.Placeholder = "c=创建, j <id>=加入, r=刷新, q=断开"
	case session.Lobby:
		m.input.Placeholder = "s=开始, l=离开"
	case session.Game:
		switch {
		case m.client.PendingPrompt() != nil:
			m.input.Placeholder = "被瞄准! r <序号> 出牌响应, r 承受伤害"
		case m.client.Game.IsTurn(m.client.Identity()):
			m.input.Placeholder = "p <序号...> @目标, a @目标, e=结束回合"
		default:
			m.input.Placeholder = "等待其他玩家..."
		}
	}
}

// View renders the model.
func (m *OnlineModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch m.client.Session.Screen() {
	case session.Login:
		content = m.loginView()
	case session.Menu:
		content = m.menuView()
	case session.Lobby:
		content = m.lobbyView()
	case session.Game:
		content = m.gameView()
	}
	return docStyle.Render(content)
}
