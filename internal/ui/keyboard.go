package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ndbaker1/BONK/internal/protocol"
	"github.com/ndbaker1/BONK/internal/session"
)

var errUnknownCommand = errors.New("未知命令")

// handleKeyPress 处理全局按键，回车时执行输入框中的命令
func (m *OnlineModel) handleKeyPress(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.client.Disconnect()
		return true, tea.Quit

	case tea.KeyEsc:
		if m.client.Session.Screen() == session.Login {
			return true, tea.Quit
		}
		m.client.Disconnect()
		return true, nil

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		cmd, err := m.execute(text)
		if err != nil {
			return true, m.setError(err)
		}
		m.refreshPlaceholder()
		return true, cmd
	}
	return false, nil
}

// execute 按当前界面执行命令
func (m *OnlineModel) execute(text string) (tea.Cmd, error) {
	screen := m.client.Session.Screen()
	if screen == session.Login {
		return m.executeLogin(text)
	}

	cmd := parseCommand(text)
	if cmd.verb == "" {
		return nil, nil
	}

	switch screen {
	case session.Menu:
		return nil, m.executeMenu(cmd)
	case session.Lobby:
		return nil, m.executeLobby(cmd)
	case session.Game:
		return nil, m.executeGame(cmd)
	}
	return nil, nil
}

func (m *OnlineModel) executeLogin(identity string) (tea.Cmd, error) {
	if m.connecting {
		return nil, nil
	}
	if identity == "" {
		identity = m.client.Identity()
	}
	if err := m.client.SetIdentity(identity); err != nil {
		return nil, err
	}
	return m.connect(identity), nil
}

func (m *OnlineModel) executeMenu(cmd command) error {
	switch cmd.verb {
	case "c", "create":
		return m.client.CreateSession()
	case "j", "join":
		if len(cmd.args) != 1 {
			return fmt.Errorf("用法: j <会话ID>")
		}
		return m.client.JoinSession(strings.ToUpper(cmd.args[0]))
	case "r", "refresh":
		return m.client.FetchState()
	case "q", "quit":
		m.client.Disconnect()
		return nil
	}
	return errUnknownCommand
}

func (m *OnlineModel) executeLobby(cmd command) error {
	switch cmd.verb {
	case "s", "start":
		return m.client.StartGame()
	case "l", "leave":
		return m.client.LeaveSession()
	case "r", "refresh":
		return m.client.FetchState()
	}
	return errUnknownCommand
}

func (m *OnlineModel) executeGame(cmd command) error {
	switch cmd.verb {
	case "p", "play":
		cards, targets, err := parsePlay(cmd.args, m.client.Game.Hand())
		if err != nil {
			return err
		}
		if len(cards) == 0 {
			return fmt.Errorf("用法: p <序号...> [@目标]")
		}
		return m.client.PlayCard(cards, targets, protocol.IntentAsIs)

	case "r", "respond":
		if m.client.PendingPrompt() == nil {
			return fmt.Errorf("当前没有需要响应的攻击")
		}
		cards, _, err := parsePlay(cmd.args, m.client.Game.Hand())
		if err != nil {
			return err
		}
		return m.client.PlayCard(cards, nil, protocol.IntentForResponse)

	case "a", "ability":
		pd := m.client.Game.PlayerData()
		if pd == nil {
			return fmt.Errorf("对局数据尚未同步")
		}
		_, targets, err := parsePlay(cmd.args, nil)
		if err != nil {
			return err
		}
		return m.client.UseAbility(pd.Character, targets, protocol.IntentAsIs)

	case "e", "end":
		return m.client.EndTurn()
	case "f", "refresh":
		return m.client.FetchState()
	case "l", "leave":
		return m.client.LeaveSession()
	}
	return errUnknownCommand
}
