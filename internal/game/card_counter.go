package game

import "github.com/ndbaker1/BONK/internal/protocol"

// StandardDeck 服务器发牌使用的牌堆：Bang 与 Missed 各 40 张
var StandardDeck = map[protocol.CardName]int{
	protocol.Bang:   40,
	protocol.Missed: 40,
}

// DeckNames 牌堆中的牌名，按显示顺序
var DeckNames = []protocol.CardName{protocol.Bang, protocol.Missed}

// CardCounter 记录尚未在手牌、场上或弃牌堆中见过的牌
type CardCounter struct {
	remaining map[protocol.CardName]int
}

// NewCardCounter 以标准牌堆初始化
func NewCardCounter() *CardCounter {
	cc := &CardCounter{remaining: make(map[protocol.CardName]int)}
	cc.Reset()
	return cc
}

// Reset 恢复为完整牌堆
func (cc *CardCounter) Reset() {
	clear(cc.remaining)
	for name, n := range StandardDeck {
		cc.remaining[name] = n
	}
}

// Deduct 扣除已见过的牌，不会低于 0
func (cc *CardCounter) Deduct(cards []protocol.Card) {
	for _, c := range cards {
		if cc.remaining[c.Name] > 0 {
			cc.remaining[c.Name]--
		}
	}
}

// Remaining 返回副本
func (cc *CardCounter) Remaining() map[protocol.CardName]int {
	out := make(map[protocol.CardName]int, len(cc.remaining))
	for name, n := range cc.remaining {
		out[name] = n
	}
	return out
}
