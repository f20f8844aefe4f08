package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ndbaker1/BONK/internal/protocol"
)

// MockSender 记录发送的事件
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ev *protocol.ClientEvent) bool {
	args := m.Called(ev)
	return args.Bool(0)
}

var (
	bang    = protocol.Card{Name: protocol.Bang, Suit: protocol.Spades, Rank: protocol.A}
	missed  = protocol.Card{Name: protocol.Missed, Suit: protocol.Hearts, Rank: protocol.K}
	missed2 = protocol.Card{Name: protocol.Missed, Suit: protocol.Clubs, Rank: protocol.N2}
	barrel  = protocol.Card{Name: protocol.Barrel, Suit: protocol.Spades, Rank: protocol.Q}
)

func targeted(msg string) *protocol.ServerEvent {
	return protocol.NewServerEvent(protocol.LogicError).Message(msg).Build()
}

func TestIsTargeted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   *protocol.ServerEvent
		want bool
	}{
		{"logic error", targeted("Targetted by a bang from player user2"), true},
		{"action", protocol.NewServerEvent(protocol.Action).Message("Targetted by a bang from player user2").Build(), true},
		{"alternate spelling", targeted("Targeted by user2"), true},
		{"targetted code", protocol.NewServerEvent(protocol.Targetted).Build(), true},
		{"observer", protocol.NewServerEvent(protocol.Action).Message("user3 was targetted by a Bang from player user2").Build(), false},
		{"other error", targeted("Lack the cards to play."), false},
		{"wrong code", protocol.NewServerEvent(protocol.Damage).Message("Targetted").Build(), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTargeted(tt.ev))
		})
	}
}

func TestAutoResponder(t *testing.T) {
	t.Parallel()

	r := &AutoResponder{Defensive: protocol.Missed}

	tests := []struct {
		name string
		hand []protocol.Card
		want []protocol.Card
	}{
		{"first missed in hand order", []protocol.Card{bang, missed2, missed}, []protocol.Card{missed2}},
		{"no missed", []protocol.Card{bang, barrel}, []protocol.Card{}},
		{"empty hand", nil, []protocol.Card{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := r.Respond(tt.hand)
			assert.False(t, d.Defer)
			assert.Equal(t, tt.want, d.Cards)
			// 相同输入得到相同决策
			assert.Equal(t, d, r.Respond(tt.hand))
		})
	}
}

func TestNewAutoResponder(t *testing.T) {
	t.Parallel()

	r, err := NewAutoResponder("")
	require.NoError(t, err)
	assert.Equal(t, protocol.Missed, r.Defensive)

	r, err = NewAutoResponder("barrel")
	require.NoError(t, err)
	assert.Equal(t, protocol.Barrel, r.Defensive)

	_, err = NewAutoResponder("shield")
	assert.Error(t, err)
}

func TestPolicy_PlaysMissed(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	sender.On("Send", mock.MatchedBy(func(ev *protocol.ClientEvent) bool {
		return ev.EventCode == protocol.PlayerAction &&
			len(ev.Cards) == 1 && ev.Cards[0] == missed &&
			len(ev.TargetIDs) == 0 &&
			ev.Intent == protocol.IntentForResponse
	})).Return(true).Once()

	p := New(&AutoResponder{Defensive: protocol.Missed}, sender)
	d, triggered := p.Handle(targeted("Targetted by a bang from player user2"), []protocol.Card{bang, missed})

	assert.True(t, triggered)
	assert.Equal(t, []protocol.Card{missed}, d.Cards)
	sender.AssertExpectations(t)
}

func TestPolicy_TakesDamageWithoutMissed(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	sender.On("Send", mock.MatchedBy(func(ev *protocol.ClientEvent) bool {
		return ev.EventCode == protocol.PlayerAction && len(ev.Cards) == 0 && len(ev.TargetIDs) == 0 &&
			ev.Intent == protocol.IntentForResponse
	})).Return(true).Once()

	p := New(&AutoResponder{Defensive: protocol.Missed}, sender)
	_, triggered := p.Handle(targeted("Targetted by a bang from player user2"), []protocol.Card{bang})

	assert.True(t, triggered)
	sender.AssertExpectations(t)
}

func TestPolicy_IgnoresUnrelated(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	p := New(&AutoResponder{Defensive: protocol.Missed}, sender)

	_, triggered := p.Handle(targeted("Cannot initiate play when it is not your turn."), []protocol.Card{missed})
	assert.False(t, triggered)
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestPolicy_PromptDefers(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	var prompted []protocol.Card
	p := New(&PromptResponder{OnPrompt: func(hand []protocol.Card) { prompted = hand }}, sender)

	d, triggered := p.Handle(targeted("Targetted by a bang from player user2"), []protocol.Card{bang, missed})
	assert.True(t, triggered)
	assert.True(t, d.Defer)
	assert.Equal(t, []protocol.Card{bang, missed}, prompted)
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestPolicy_SwapResponder(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	sender.On("Send", mock.Anything).Return(true).Once()

	p := New(&PromptResponder{}, sender)
	p.SetResponder(&AutoResponder{Defensive: protocol.Missed})

	d, _ := p.Handle(targeted("Targetted by a bang from player user2"), []protocol.Card{missed})
	assert.False(t, d.Defer)
	sender.AssertExpectations(t)
}
