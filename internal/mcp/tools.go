// Package mcp exposes one BONK client as MCP tools over stdio.
package mcp

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ndbaker1/BONK/internal/client"
	"github.com/ndbaker1/BONK/internal/protocol"
)

const (
	maxBufferedEvents = 200
	defaultSettle     = 500 * time.Millisecond
	connectTimeout    = 15 * time.Second
)

// Tools 工具集，持有唯一的客户端并缓存它收到的事件
type Tools struct {
	client *client.Client
	settle time.Duration

	mu     sync.Mutex
	events []EventView
	signal chan struct{}
}

// NewTools 注册事件观察者。settle 为动作发出后等待服务器回应的上限，0 使用默认值。
func NewTools(c *client.Client, settle time.Duration) *Tools {
	if settle <= 0 {
		settle = defaultSettle
	}
	t := &Tools{
		client: c,
		settle: settle,
		signal: make(chan struct{}, 1),
	}
	c.Observe(t.record)
	return t
}

func (t *Tools) record(_ *client.Client, ev *protocol.ServerEvent) {
	t.mu.Lock()
	t.events = append(t.events, eventView(ev))
	if len(t.events) > maxBufferedEvents {
		t.events = t.events[len(t.events)-maxBufferedEvents:]
	}
	t.mu.Unlock()

	select {
	case t.signal <- struct{}{}:
	default:
	}
}

func (t *Tools) drainEvents() []EventView {
	t.mu.Lock()
	defer t.mu.Unlock()
	events := t.events
	t.events = nil
	return events
}

// clearSignal 丢弃动作发出前的旧信号
func (t *Tools) clearSignal() {
	select {
	case <-t.signal:
	default:
	}
}

// waitForEvent 等待第一条回应事件，超时也返回
func (t *Tools) waitForEvent(ctx context.Context) {
	timer := time.NewTimer(t.settle)
	defer timer.Stop()
	select {
	case <-t.signal:
		// 同一动作常带来一串事件，稍等片刻一并收集
		select {
		case <-time.After(t.settle / 5):
		case <-ctx.Done():
		}
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Register adds all tools to the MCP server.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(connectTool(), t.handleConnect)
	s.AddTool(createSessionTool(), t.handleCreateSession)
	s.AddTool(joinSessionTool(), t.handleJoinSession)
	s.AddTool(leaveSessionTool(), t.handleLeaveSession)
	s.AddTool(startGameTool(), t.handleStartGame)
	s.AddTool(endTurnTool(), t.handleEndTurn)
	s.AddTool(playCardsTool(), t.handlePlayCards)
	s.AddTool(fetchStateTool(), t.handleFetchState)
	s.AddTool(getStateTool(), t.handleGetState)
}

// --- Tool definitions ---

func connectTool() mcp.Tool {
	return mcp.NewTool("connect",
		mcp.WithDescription("Connect to the BONK server under the given identity. Reconnecting closes the previous connection first."),
		mcp.WithString("identity", mcp.Description("Player identity; omit to reuse the current one")),
	)
}

func createSessionTool() mcp.Tool {
	return mcp.NewTool("create_session",
		mcp.WithDescription("Create a new session and become its first member."),
	)
}

func joinSessionTool() mcp.Tool {
	return mcp.NewTool("join_session",
		mcp.WithDescription("Join an existing session by its 5-character id."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("5-character session id")),
	)
}

func leaveSessionTool() mcp.Tool {
	return mcp.NewTool("leave_session",
		mcp.WithDescription("Leave the current session."),
	)
}

func startGameTool() mcp.Tool {
	return mcp.NewTool("start_game",
		mcp.WithDescription("Start the game for the current session."),
	)
}

func endTurnTool() mcp.Tool {
	return mcp.NewTool("end_turn",
		mcp.WithDescription("End your turn."),
	)
}

func playCardsTool() mcp.Tool {
	return mcp.NewTool("play_cards",
		mcp.WithDescription("Play cards from your hand. When responding to a bang, pass respond=true; an empty selection takes the damage."),
		mcp.WithString("indices", mcp.Description("Space-separated 0-based hand indices (e.g. '0 2'), or empty for no cards")),
		mcp.WithString("targets", mcp.Description("Space-separated target player ids")),
		mcp.WithBoolean("respond", mcp.Description("true when answering an attack")),
	)
}

func fetchStateTool() mcp.Tool {
	return mcp.NewTool("fetch_state",
		mcp.WithDescription("Ask the server to resend session and game data."),
	)
}

func getStateTool() mcp.Tool {
	return mcp.NewTool("get_state",
		mcp.WithDescription("Get the current local state and accumulated events without sending anything. Read-only."),
	)
}

// --- Tool handlers ---

// result 返回状态与期间收到的事件
func (t *Tools) result() *mcp.CallToolResult {
	return mcp.NewToolResultText(respondJSON(buildState(t.client, t.drainEvents())))
}

// act 发送动作并等待回应
func (t *Tools) act(ctx context.Context, send func() error) (*mcp.CallToolResult, error) {
	t.clearSignal()
	if err := send(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t.waitForEvent(ctx)
	return t.result(), nil
}

func (t *Tools) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identity := strings.TrimSpace(request.GetString("identity", ""))

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return t.act(ctx, func() error {
		return t.client.Connect(ctx, identity)
	})
}

func (t *Tools) handleCreateSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.act(ctx, t.client.CreateSession)
}

func (t *Tools) handleJoinSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := strings.ToUpper(strings.TrimSpace(request.GetString("session_id", "")))
	return t.act(ctx, func() error {
		return t.client.JoinSession(sessionID)
	})
}

func (t *Tools) handleLeaveSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.act(ctx, t.client.LeaveSession)
}

func (t *Tools) handleStartGame(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.act(ctx, t.client.StartGame)
}

func (t *Tools) handleEndTurn(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.act(ctx, t.client.EndTurn)
}

func (t *Tools) handleFetchState(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.act(ctx, t.client.FetchState)
}

func (t *Tools) handlePlayCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hand := t.client.Game.Hand()
	if !t.client.Game.InGame() {
		return mcp.NewToolResultError("No game is running. Use start_game first."), nil
	}

	cards := []protocol.Card{}
	seen := make(map[int]bool)
	for _, p := range strings.Fields(request.GetString("indices", "")) {
		idx, err := strconv.Atoi(p)
		if err != nil {
			return mcp.NewToolResultErrorf("Invalid index '%s': must be an integer.", p), nil
		}
		if idx < 0 || idx >= len(hand) {
			return mcp.NewToolResultErrorf("Index %d out of range. Hand has %d card(s).", idx, len(hand)), nil
		}
		if seen[idx] {
			return mcp.NewToolResultErrorf("Index %d selected twice.", idx), nil
		}
		seen[idx] = true
		cards = append(cards, hand[idx])
	}
	targets := strings.Fields(request.GetString("targets", ""))

	intent := protocol.IntentAsIs
	if request.GetBool("respond", false) {
		intent = protocol.IntentForResponse
	} else if len(cards) == 0 {
		return mcp.NewToolResultError("Select at least one card, or pass respond=true to take the damage."), nil
	}

	return t.act(ctx, func() error {
		return t.client.PlayCard(cards, targets, intent)
	})
}

func (t *Tools) handleGetState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.result(), nil
}
