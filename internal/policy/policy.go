// Package policy decides how the client answers when another player targets it.
package policy

import (
	"strings"
	"sync"

	"github.com/ndbaker1/BONK/internal/logger"
	"github.com/ndbaker1/BONK/internal/protocol"
)

// targetMarkers 只有被瞄准的玩家收到的提示以大写开头，旁观者收到的是小写 "was targetted"
var targetMarkers = []string{"Targetted", "Targeted"}

// IsTargeted 事件是否表示本地玩家被瞄准
func IsTargeted(ev *protocol.ServerEvent) bool {
	if ev == nil {
		return false
	}
	switch ev.EventCode {
	case protocol.Targetted:
		return true
	case protocol.LogicError, protocol.Action:
		for _, m := range targetMarkers {
			if strings.Contains(ev.Message, m) {
				return true
			}
		}
	}
	return false
}

// Decision 响应决策。Defer 表示交由玩家稍后手动出牌。
type Decision struct {
	Cards []protocol.Card
	Defer bool
}

// Responder 根据当前手牌给出响应
type Responder interface {
	Respond(hand []protocol.Card) Decision
}

// Sender 发送客户端事件
type Sender interface {
	Send(ev *protocol.ClientEvent) bool
}

// AutoResponder 自动出第一张防御牌，没有则空出（承受伤害）
type AutoResponder struct {
	Defensive protocol.CardName
}

// NewAutoResponder 按牌名创建，名字为空时使用 Missed
func NewAutoResponder(defensive string) (*AutoResponder, error) {
	if defensive == "" {
		return &AutoResponder{Defensive: protocol.Missed}, nil
	}
	name, err := protocol.ParseCardName(defensive)
	if err != nil {
		return nil, err
	}
	return &AutoResponder{Defensive: name}, nil
}

// Respond 按手牌顺序取第一张匹配的牌
func (a *AutoResponder) Respond(hand []protocol.Card) Decision {
	for _, c := range hand {
		if c.Name == a.Defensive {
			return Decision{Cards: []protocol.Card{c}}
		}
	}
	return Decision{Cards: []protocol.Card{}}
}

// PromptResponder 把决定交给玩家，OnPrompt 收到当时的手牌
type PromptResponder struct {
	OnPrompt func(hand []protocol.Card)
}

func (p *PromptResponder) Respond(hand []protocol.Card) Decision {
	if p.OnPrompt != nil {
		p.OnPrompt(append([]protocol.Card(nil), hand...))
	}
	return Decision{Defer: true}
}

// Policy 在被瞄准时调用 Responder 并发送结果
type Policy struct {
	mu        sync.RWMutex
	responder Responder
	sender    Sender
}

// New 创建策略，responder 可在运行时替换
func New(responder Responder, sender Sender) *Policy {
	return &Policy{responder: responder, sender: sender}
}

// SetResponder 替换响应方式
func (p *Policy) SetResponder(r Responder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responder = r
}

// Responder 当前响应方式
func (p *Policy) Responder() Responder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.responder
}

// Handle 事件表示被瞄准时做出一次响应。triggered 为 false 表示事件与瞄准无关。
func (p *Policy) Handle(ev *protocol.ServerEvent, hand []protocol.Card) (d Decision, triggered bool) {
	if !IsTargeted(ev) {
		return Decision{}, false
	}

	r := p.Responder()
	if r == nil {
		return Decision{Defer: true}, true
	}

	d = r.Respond(hand)
	if d.Defer {
		logger.LogDebug("targeted, waiting for manual response")
		return d, true
	}

	if len(d.Cards) > 0 {
		logger.LogInfo("targeted, responding with %s", d.Cards[0])
	} else {
		logger.LogInfo("targeted, no defensive card, taking damage")
	}
	p.sender.Send(protocol.NewPlayCards(d.Cards, nil, protocol.IntentForResponse))
	return d, true
}
