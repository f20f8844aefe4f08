package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ndbaker1/BONK/internal/game"
	"github.com/ndbaker1/BONK/internal/protocol"
)

const visibleNotifications = 5

// --- 公共部分 ---

func (m *OnlineModel) header() string {
	status := grayStyle.Render("未连接")
	if m.client.IsConnected() {
		status = turnStyle.Render("● " + m.client.Identity())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle("BONK"), "  ", status, "  ", grayStyle.Render(m.client.ServerURL()))
}

// notificationsView 最近的提示，最新的在上
func (m *OnlineModel) notificationsView() string {
	notes := m.client.Session.Notifications()
	if len(notes) == 0 {
		return ""
	}
	if len(notes) > visibleNotifications {
		notes = notes[:visibleNotifications]
	}

	var sb strings.Builder
	for i, n := range notes {
		line := n.At.Format("15:04:05") + " " + n.Text
		if i == 0 {
			sb.WriteString(line)
		} else {
			sb.WriteString(grayStyle.Render(line))
		}
		if i < len(notes)-1 {
			sb.WriteString("\n")
		}
	}
	return boxStyle.Render(sb.String())
}

func (m *OnlineModel) footer() string {
	var sb strings.Builder
	sb.WriteString(promptStyle.Render(m.input.View()))
	if m.error != "" {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(m.error))
	}
	if box := m.notificationsView(); box != "" {
		sb.WriteString("\n")
		sb.WriteString(box)
	}
	return sb.String()
}

func (m *OnlineModel) page(body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, m.header(), "", body, m.footer())
}

// --- 各界面 ---

func (m *OnlineModel) loginView() string {
	body := "输入身份后回车连接服务器，ESC 退出"
	if m.connecting {
		body = "正在连接服务器..."
	}
	return m.page(body)
}

func (m *OnlineModel) menuView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle("主菜单"))
	sb.WriteString("\n\n")
	sb.WriteString("  c          创建会话\n")
	sb.WriteString("  j <ID>     加入会话（5 位）\n")
	sb.WriteString("  r          重新获取会话状态\n")
	sb.WriteString("  q / ESC    断开连接")
	return m.page(sb.String())
}

func (m *OnlineModel) lobbyView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle(fmt.Sprintf("会话: %s", m.client.Session.SessionID())))
	sb.WriteString("\n\n玩家列表:\n")

	me := m.client.Identity()
	for i, id := range m.client.Session.Roster() {
		line := fmt.Sprintf("  %d. %s", i+1, truncateName(id, 20))
		if id == me {
			line += " (你)"
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n  s 开始游戏    l 离开会话")
	return m.page(boxStyle.Render(sb.String()))
}

func (m *OnlineModel) gameView() string {
	gd := m.client.Game.GameData()
	pd := m.client.Game.PlayerData()
	if gd == nil {
		return m.page("等待对局数据...")
	}

	sections := []string{
		m.turnOrderView(gd),
		m.playerView(pd),
		m.handView(pd),
	}
	if prompt := m.client.PendingPrompt(); prompt != nil {
		sections = append(sections, alertStyle.Render(TargetIcon+" 你被瞄准了！选择一张牌响应，或直接输入 r 承受伤害"))
	}
	sections = append(sections, m.deckView())
	return m.page(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// turnOrderView 出牌顺序，标记当前回合与已知的生命变化
func (m *OnlineModel) turnOrderView(gd *protocol.GameData) string {
	me := m.client.Identity()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("第 %d 轮\n", gd.Round))
	for i, id := range gd.PlayerOrder {
		marker := "   "
		if i == gd.TurnIndex {
			marker = TurnIcon + " "
		}
		line := marker + truncateName(id, 16)
		if id == me {
			line += " (你)"
		}
		if delta := m.client.Game.HealthDelta(id); delta != 0 {
			line += fmt.Sprintf(" %+d%s", delta, HeartIcon)
		}
		if i == gd.TurnIndex {
			line = turnStyle.Render(line)
		}
		sb.WriteString(line)
		if i < len(gd.PlayerOrder)-1 {
			sb.WriteString("\n")
		}
	}
	return boxStyle.Render(sb.String())
}

func (m *OnlineModel) playerView(pd *protocol.PlayerData) string {
	if pd == nil {
		return ""
	}
	role := pd.Role.String()
	if pd.Role == protocol.Sheriff {
		role = SheriffIcon + " " + role
	}
	health := fmt.Sprintf("%s %d/%d", HeartIcon, pd.Health, pd.MaxHealth)
	if !pd.Alive {
		health = DeadIcon + " " + health
	}
	return fmt.Sprintf("%s  |  %s  |  %s", role, pd.Character, health)
}

// handView 手牌带序号，出牌时按序号选择
func (m *OnlineModel) handView(pd *protocol.PlayerData) string {
	if pd == nil || len(pd.Hand) == 0 {
		return grayStyle.Render("（没有手牌）")
	}
	cells := make([]string, 0, 2*len(pd.Hand))
	for i, c := range pd.Hand {
		if i > 0 {
			cells = append(cells, " ")
		}
		cells = append(cells, lipgloss.JoinVertical(lipgloss.Center, grayStyle.Render(fmt.Sprintf("%d", i+1)), renderCard(c)))
	}
	hand := lipgloss.JoinHorizontal(lipgloss.Bottom, cells...)

	if len(pd.Field) > 0 {
		field := make([]string, 0, len(pd.Field))
		for _, c := range pd.Field {
			field = append(field, renderCard(c))
		}
		hand += "\n场上: " + strings.Join(field, " ")
	}
	return hand
}

// deckView 未出现过的牌数
func (m *OnlineModel) deckView() string {
	remaining := m.client.Game.Remaining()
	parts := make([]string, 0, len(game.DeckNames))
	for _, n := range game.DeckNames {
		parts = append(parts, fmt.Sprintf("%s:%d", n, remaining[n]))
	}
	return grayStyle.Render("记牌器 " + strings.Join(parts, "  "))
}
