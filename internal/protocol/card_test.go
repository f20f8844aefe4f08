package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCard_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		card Card
		want string
	}{
		{Card{Name: Bang, Suit: Spades, Rank: A}, "Bang A♠"},
		{Card{Name: Missed, Suit: Hearts, Rank: N10}, "Missed 10♥"},
		{Card{Name: Barrel, Suit: Clubs, Rank: N1}, "Barrel 1♣"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.card.String())
	}
}

func TestParseCardName(t *testing.T) {
	t.Parallel()

	n, err := ParseCardName("missed")
	require.NoError(t, err)
	assert.Equal(t, Missed, n)

	n, err = ParseCardName("PonyExpress")
	require.NoError(t, err)
	assert.Equal(t, PonyExpress, n)

	_, err = ParseCardName("Gatling")
	assert.Error(t, err)
}

func TestEventCode_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "LogicError", LogicError.String())
	assert.Equal(t, "ServerEventCode(77)", ServerEventCode(77).String())
	assert.Equal(t, "PlayerAction", PlayerAction.String())
}

func TestClone_NoAliasing(t *testing.T) {
	t.Parallel()

	pd := &PlayerData{Hand: []Card{{Name: Bang}}, Field: []Card{{Name: Barrel}}}
	cp := pd.Clone()
	cp.Hand[0].Name = Missed
	cp.Field = append(cp.Field, Card{Name: Dynamite})
	assert.Equal(t, Bang, pd.Hand[0].Name)
	assert.Len(t, pd.Field, 1)

	effect := EffectGeneralStore
	gd := &GameData{PlayerOrder: []string{"a", "b"}, Effect: &effect}
	gcp := gd.Clone()
	gcp.PlayerOrder[0] = "z"
	*gcp.Effect = 0
	assert.Equal(t, "a", gd.PlayerOrder[0])
	assert.Equal(t, EffectGeneralStore, *gd.Effect)

	assert.Nil(t, (*GameData)(nil).Clone())
	assert.Nil(t, (*PlayerData)(nil).Clone())
}

func TestServerEventBuilder(t *testing.T) {
	t.Parallel()

	b := NewServerEvent(ClientJoined).ClientID("user1").SessionID("ABCDE").SessionClientIDs("user1")
	ev := b.Build()
	assert.Equal(t, ClientJoined, ev.EventCode)
	assert.Equal(t, "user1", ev.ClientID())

	// Build 返回副本
	ev.Data.ClientID = "changed"
	assert.Equal(t, "user1", b.Build().ClientID())

	dmg := NewServerEvent(Damage).HealthChange(-2).Build()
	require.NotNil(t, dmg.Data.HealthChange)
	assert.Equal(t, -2, *dmg.Data.HealthChange)
}
