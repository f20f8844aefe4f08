// Package game holds the client's view of the running game and the local player's turn.
package game

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ndbaker1/BONK/internal/apperrors"
	"github.com/ndbaker1/BONK/internal/protocol"
)

// Store 对局状态：共享的 GameData 与本地玩家的 PlayerData
type Store struct {
	mu      sync.RWMutex
	game    *protocol.GameData
	player  *protocol.PlayerData
	health  map[string]int // 其它玩家已知的生命变化
	counter *CardCounter
}

// NewStore 创建空的对局状态
func NewStore() *Store {
	return &Store{
		health:  make(map[string]int),
		counter: NewCardCounter(),
	}
}

// IsPlayerTurn 判断是否轮到 playerID。gameData 为空或玩家不在顺序中时返回 false。
func IsPlayerTurn(gameData *protocol.GameData, playerID string) bool {
	if gameData == nil {
		return false
	}
	idx := gameData.TurnIndex
	if idx < 0 || idx >= len(gameData.PlayerOrder) {
		return false
	}
	return gameData.PlayerOrder[idx] == playerID
}

// GameData 返回副本
func (s *Store) GameData() *protocol.GameData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Clone()
}

// PlayerData 返回副本
func (s *Store) PlayerData() *protocol.PlayerData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player.Clone()
}

// Hand 返回本地手牌副本
func (s *Store) Hand() []protocol.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.player == nil {
		return nil
	}
	return slices.Clone(s.player.Hand)
}

// InGame 是否持有对局数据
func (s *Store) InGame() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game != nil
}

// IsTurn 是否轮到 playerID
func (s *Store) IsTurn(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return IsPlayerTurn(s.game, playerID)
}

// CurrentPlayer 当前回合玩家，无对局时为空
func (s *Store) CurrentPlayer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.game == nil || s.game.TurnIndex < 0 || s.game.TurnIndex >= len(s.game.PlayerOrder) {
		return ""
	}
	return s.game.PlayerOrder[s.game.TurnIndex]
}

// NextPlayer 顺位在 playerID 之后的玩家
func (s *Store) NextPlayer(playerID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.game == nil {
		return ""
	}
	order := s.game.PlayerOrder
	idx := slices.Index(order, playerID)
	if idx < 0 || len(order) == 0 {
		return ""
	}
	return order[(idx+1)%len(order)]
}

// HealthDelta 已观察到的某玩家生命变化量
func (s *Store) HealthDelta(playerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health[playerID]
}

// Remaining 尚未见过的各牌名张数
func (s *Store) Remaining() map[protocol.CardName]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counter.Remaining()
}

// Reset 清空对局（离开会话或断线）
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.game = nil
	s.player = nil
	s.health = make(map[string]int)
	s.counter.Reset()
}

// Replace 整体替换（GameStarted / DataResponse）
func (s *Store) Replace(gameData *protocol.GameData, playerData *protocol.PlayerData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.game = gameData.Clone()
	s.player = playerData.Clone()
	s.health = make(map[string]int)
	s.recountLocked()
}

func (s *Store) recountLocked() {
	s.counter.Reset()
	if s.game != nil {
		s.counter.Deduct(s.game.Discard)
	}
	if s.player != nil {
		s.counter.Deduct(s.player.Hand)
		s.counter.Deduct(s.player.Field)
	}
}

// ApplyTurnStart 回合开始：回合索引设为 client_id 在顺序中的位置，不在顺序中时忽略
func (s *Store) ApplyTurnStart(ev *protocol.ServerEvent) {
	id := ev.ClientID()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil || id == "" {
		return
	}
	if idx := slices.Index(s.game.PlayerOrder, id); idx >= 0 {
		s.game.TurnIndex = idx
	}
}

// ApplyDraw 摸牌：替换本地 player_data，合并 game_data
func (s *Store) ApplyDraw(ev *protocol.ServerEvent) {
	if ev == nil || ev.Data == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Data.PlayerData != nil {
		s.player = ev.Data.PlayerData.Clone()
	}
	if g := ev.Data.GameData; g != nil {
		s.mergeGameLocked(g)
	}
	s.recountLocked()
}

// mergeGameLocked 开局后 player_order 固定，只更新其余字段
func (s *Store) mergeGameLocked(g *protocol.GameData) {
	if s.game == nil {
		s.game = g.Clone()
		return
	}
	s.game.Round = g.Round
	if g.TurnIndex >= 0 && g.TurnIndex < len(s.game.PlayerOrder) {
		s.game.TurnIndex = g.TurnIndex
	}
	if g.Discard != nil {
		s.game.Discard = slices.Clone(g.Discard)
	}
	if g.Effect != nil {
		e := *g.Effect
		s.game.Effect = &e
	} else {
		s.game.Effect = nil
	}
}

// ApplyDamage 伤害：health_change 缺省为 -1。local 为本地玩家 id。
func (s *Store) ApplyDamage(ev *protocol.ServerEvent, local string) {
	if ev == nil {
		return
	}
	delta := -1
	target := ev.ClientID()
	if ev.Data != nil && ev.Data.HealthChange != nil {
		delta = *ev.Data.HealthChange
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if target == "" {
		return
	}
	s.health[target] += delta
	if target == local && s.player != nil {
		// 生命值限制在 [0, MaxHealth]
		s.player.Health = max(s.player.Health+delta, 0)
		if s.player.MaxHealth > 0 {
			s.player.Health = min(s.player.Health, s.player.MaxHealth)
		}
		if s.player.Health == 0 {
			s.player.Alive = false
		}
	}
}

// PlayFromHand 把打出的牌从手牌移入弃牌堆，保证一张牌只在一处
func (s *Store) PlayFromHand(cards []protocol.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil || s.game == nil {
		return apperrors.ErrNoGame
	}

	hand := slices.Clone(s.player.Hand)
	for _, c := range cards {
		idx := slices.Index(hand, c)
		if idx < 0 {
			return fmt.Errorf("%w: %s", apperrors.ErrCardNotInHand, c)
		}
		hand = slices.Delete(hand, idx, idx+1)
	}
	s.player.Hand = hand
	s.game.Discard = append(s.game.Discard, cards...)
	return nil
}
