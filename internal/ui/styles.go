package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ndbaker1/BONK/internal/protocol"
)

// Icon constants
const (
	SheriffIcon = "⭐"
	TurnIcon    = "👉"
	DeadIcon    = "💀"
	HeartIcon   = "♥"
	TargetIcon  = "🎯"
)

// Lipgloss Styles
var (
	docStyle    = lipgloss.NewStyle().Margin(1, 2)
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CD0000")).Background(lipgloss.Color("#FFFFFF")).Bold(true)
	blackStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("#FFFFFF")).Bold(true)
	grayStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true).Render
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	promptStyle = lipgloss.NewStyle().MarginTop(1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	turnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
)

// cardStyle 红桃方块红色，其余黑色
func cardStyle(c protocol.Card) lipgloss.Style {
	if c.Suit == protocol.Hearts || c.Suit == protocol.Diamonds {
		return redStyle
	}
	return blackStyle
}

// renderCard 单张牌，如 " Bang A♠ "
func renderCard(c protocol.Card) string {
	return cardStyle(c).Render(" " + c.String() + " ")
}
