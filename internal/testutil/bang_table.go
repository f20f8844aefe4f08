//go:build !production

package testutil

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ndbaker1/BONK/internal/protocol"
)

// StartingHand 每位玩家开局手牌
var StartingHand = []protocol.Card{
	{Name: protocol.Bang, Suit: protocol.Spades, Rank: protocol.A},
	{Name: protocol.Missed, Suit: protocol.Hearts, Rank: protocol.K},
	{Name: protocol.Beer, Suit: protocol.Hearts, Rank: protocol.N6},
}

// StartingHealth 开局生命值
const StartingHealth = 4

type fakeSession struct {
	id      string
	members []string
	game    *fakeGame
}

type pendingBang struct {
	attacker string
	target   string
}

type fakeGame struct {
	data    protocol.GameData
	players map[string]*protocol.PlayerData
	pending *pendingBang
}

// BangTable 精简的会话与对局服务端逻辑：建房、加入、离开、开局、轮转回合，
// 以及 Bang/Missed 的出牌与响应。
type BangTable struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession
	memberOf map[string]string
}

// NewBangServer 启动运行 BangTable 的测试服务器
func NewBangServer(t testing.TB) (*FakeServer, *BangTable) {
	t.Helper()
	table := &BangTable{
		sessions: make(map[string]*fakeSession),
		memberOf: make(map[string]string),
	}
	return NewFakeServer(t, table.Handle), table
}

// SessionOf 返回玩家所在会话 id
func (b *BangTable) SessionOf(clientID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.memberOf[clientID]
}

// Health 返回玩家当前生命值，不在对局中返回 -1
func (b *BangTable) Health(clientID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p := b.playerLocked(clientID); p != nil {
		return p.Health
	}
	return -1
}

// Hand 返回玩家手牌副本
func (b *BangTable) Hand(clientID string) []protocol.Card {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p := b.playerLocked(clientID); p != nil {
		return slices.Clone(p.Hand)
	}
	return nil
}

func (b *BangTable) playerLocked(clientID string) *protocol.PlayerData {
	sess := b.sessions[b.memberOf[clientID]]
	if sess == nil || sess.game == nil {
		return nil
	}
	return sess.game.players[clientID]
}

type outbound struct {
	to string
	ev *protocol.ServerEvent
}

// Handle 实现 HandlerFunc。推送也在锁内，保证各客户端看到一致的事件顺序。
func (b *BangTable) Handle(s *FakeServer, clientID string, ev *protocol.ClientEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, o := range b.apply(clientID, ev) {
		_ = s.Push(o.to, o.ev)
	}
}

func (b *BangTable) apply(clientID string, ev *protocol.ClientEvent) []outbound {
	switch ev.EventCode {
	case protocol.CreateSession:
		return b.create(clientID)
	case protocol.JoinSession:
		return b.join(clientID, ev.SessionID)
	case protocol.LeaveSession:
		return b.leave(clientID)
	case protocol.DataRequest:
		return b.dataResponse(clientID)
	case protocol.StartGame:
		return b.start(clientID)
	case protocol.EndTurn:
		return b.endTurn(clientID)
	case protocol.PlayerAction:
		return b.play(clientID, ev)
	}
	return nil
}

func toAll(members []string, ev *protocol.ServerEvent) []outbound {
	out := make([]outbound, 0, len(members))
	for _, m := range members {
		out = append(out, outbound{to: m, ev: ev})
	}
	return out
}

func logicError(to, msg string) []outbound {
	return []outbound{{to: to, ev: protocol.NewServerEvent(protocol.LogicError).Message(msg).Build()}}
}

func (b *BangTable) create(clientID string) []outbound {
	out := b.leave(clientID)

	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:5])
	b.sessions[id] = &fakeSession{id: id, members: []string{clientID}}
	b.memberOf[clientID] = id

	ev := protocol.NewServerEvent(protocol.ClientJoined).
		ClientID(clientID).SessionID(id).SessionClientIDs(clientID).Build()
	return append(out, outbound{to: clientID, ev: ev})
}

func (b *BangTable) join(clientID, sessionID string) []outbound {
	sess := b.sessions[sessionID]
	if sess == nil {
		return logicError(clientID, fmt.Sprintf("Invalid SessionID: %s", sessionID))
	}
	if sess.game != nil {
		return nil
	}

	out := b.leave(clientID)
	sess.members = append(sess.members, clientID)
	b.memberOf[clientID] = sessionID

	ev := protocol.NewServerEvent(protocol.ClientJoined).
		ClientID(clientID).SessionID(sessionID).SessionClientIDs(sess.members...).Build()
	return append(out, toAll(sess.members, ev)...)
}

func (b *BangTable) leave(clientID string) []outbound {
	sess := b.sessions[b.memberOf[clientID]]
	if sess == nil {
		return nil
	}

	ev := protocol.NewServerEvent(protocol.ClientLeft).ClientID(clientID).Build()
	out := toAll(sess.members, ev)

	sess.members = slices.DeleteFunc(sess.members, func(m string) bool { return m == clientID })
	delete(b.memberOf, clientID)
	if len(sess.members) == 0 {
		delete(b.sessions, sess.id)
	}
	return out
}

func (b *BangTable) dataResponse(clientID string) []outbound {
	sess := b.sessions[b.memberOf[clientID]]
	if sess == nil {
		return nil
	}

	builder := protocol.NewServerEvent(protocol.DataResponse).
		SessionID(sess.id).SessionClientIDs(sess.members...)
	if sess.game != nil {
		builder.GameData(&sess.game.data).PlayerData(sess.game.players[clientID])
	}
	return []outbound{{to: clientID, ev: builder.Build()}}
}

func (b *BangTable) start(clientID string) []outbound {
	sess := b.sessions[b.memberOf[clientID]]
	if sess == nil || sess.game != nil {
		return nil
	}

	game := &fakeGame{
		data: protocol.GameData{
			Round:       1,
			PlayerOrder: slices.Clone(sess.members),
			Discard:     []protocol.Card{},
		},
		players: make(map[string]*protocol.PlayerData, len(sess.members)),
	}
	for i, m := range sess.members {
		role := protocol.Outlaw
		if i == 0 {
			role = protocol.Sheriff
		}
		game.players[m] = &protocol.PlayerData{
			MaxHealth: StartingHealth,
			Health:    StartingHealth,
			Hand:      slices.Clone(StartingHand),
			Field:     []protocol.Card{},
			Character: protocol.BillyTheKid,
			Role:      role,
			Alive:     true,
		}
	}
	sess.game = game

	var out []outbound
	for _, m := range sess.members {
		ev := protocol.NewServerEvent(protocol.GameStarted).
			SessionClientIDs(sess.members...).
			GameData(&game.data).
			PlayerData(game.players[m]).
			Build()
		out = append(out, outbound{to: m, ev: ev})
	}
	return append(out, toAll(sess.members, protocol.NewServerEvent(protocol.TurnStart).Build())...)
}

func (b *BangTable) endTurn(clientID string) []outbound {
	sess := b.sessions[b.memberOf[clientID]]
	if sess == nil || sess.game == nil {
		return nil
	}
	g := sess.game
	g.data.TurnIndex = (g.data.TurnIndex + 1) % len(g.data.PlayerOrder)

	ev := protocol.NewServerEvent(protocol.TurnStart).ClientID(g.data.PlayerOrder[g.data.TurnIndex]).Build()
	return toAll(sess.members, ev)
}

func owns(hand []protocol.Card, cards []protocol.Card) bool {
	for _, c := range cards {
		if !slices.Contains(hand, c) {
			return false
		}
	}
	return true
}

func removeCards(p *protocol.PlayerData, cards []protocol.Card) {
	p.Hand = slices.DeleteFunc(p.Hand, func(c protocol.Card) bool { return slices.Contains(cards, c) })
}

func (b *BangTable) play(clientID string, ev *protocol.ClientEvent) []outbound {
	sess := b.sessions[b.memberOf[clientID]]
	if sess == nil || sess.game == nil {
		return nil
	}
	g := sess.game
	player := g.players[clientID]

	// 响应挂起的 Bang
	if g.pending != nil {
		if g.pending.target != clientID {
			return logicError(clientID, "Player is not in the list of expected responses.")
		}
		g.pending = nil

		if len(ev.Cards) > 0 && ev.Cards[0].Name == protocol.Missed && owns(player.Hand, ev.Cards[:1]) {
			removeCards(player, ev.Cards[:1])
			g.data.Discard = append(g.data.Discard, ev.Cards[0])
			msg := protocol.NewServerEvent(protocol.Action).
				Message(fmt.Sprintf("%s avoided the bang!", clientID)).ClientID(clientID).Build()
			return toAll(g.data.PlayerOrder, msg)
		}

		player.Health--
		if player.Health <= 0 {
			player.Alive = false
		}
		msg := protocol.NewServerEvent(protocol.Damage).
			Message(fmt.Sprintf("%s takes 1 damage!", clientID)).ClientID(clientID).Build()
		return toAll(g.data.PlayerOrder, msg)
	}

	if g.data.PlayerOrder[g.data.TurnIndex] != clientID {
		return logicError(clientID, "Cannot initiate play when it is not your turn.")
	}
	if len(ev.Cards) == 0 || !owns(player.Hand, ev.Cards) {
		return logicError(clientID, "Lack the cards to play.")
	}

	removeCards(player, ev.Cards)
	g.data.Discard = append(g.data.Discard, ev.Cards...)

	if ev.Cards[0].Name != protocol.Bang {
		msg := protocol.NewServerEvent(protocol.Action).
			Message(fmt.Sprintf("%s played %s!", clientID, ev.Cards[0].Name)).ClientID(clientID).Build()
		return toAll(g.data.PlayerOrder, msg)
	}

	if len(ev.TargetIDs) == 0 || g.players[ev.TargetIDs[0]] == nil {
		return logicError(clientID, "Bang needs a target.")
	}
	target := ev.TargetIDs[0]
	g.pending = &pendingBang{attacker: clientID, target: target}

	var out []outbound
	for _, p := range g.data.PlayerOrder {
		msg := fmt.Sprintf("%s was targetted by a Bang from player %s", target, clientID)
		if p == target {
			msg = fmt.Sprintf("Targetted by a bang from player %s", clientID)
		}
		out = append(out, outbound{
			to: p,
			ev: protocol.NewServerEvent(protocol.Action).Message(msg).ClientID(clientID).Build(),
		})
	}
	return out
}
