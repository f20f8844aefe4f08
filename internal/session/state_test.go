package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndbaker1/BONK/internal/protocol"
)

func connected(identity string) *State {
	s := New()
	s.SetIdentity(identity)
	s.Opened()
	return s
}

func joined(clientID, sessionID string, roster ...string) *protocol.ServerEvent {
	return protocol.NewServerEvent(protocol.ClientJoined).
		ClientID(clientID).SessionID(sessionID).SessionClientIDs(roster...).Build()
}

func left(clientID string) *protocol.ServerEvent {
	return protocol.NewServerEvent(protocol.ClientLeft).ClientID(clientID).Build()
}

func TestOpened_LoginToMenu(t *testing.T) {
	t.Parallel()

	s := New()
	assert.Equal(t, Login, s.Screen())

	s.Opened()
	assert.Equal(t, Menu, s.Screen())
	assert.Equal(t, MsgConnected, s.Notification())
}

func TestClientJoined_Self(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		roster []string
		want   string
	}{
		{"create", []string{"user1"}, MsgCreated},
		{"join", []string{"user2", "user1"}, MsgJoined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := connected("user1")
			s.ApplyClientJoined(joined("user1", "ABCDE", tt.roster...))

			assert.Equal(t, Lobby, s.Screen())
			assert.Equal(t, "ABCDE", s.SessionID())
			assert.Equal(t, tt.roster, s.Roster())
			assert.Equal(t, tt.want, s.Notification())
		})
	}
}

func TestClientJoined_Other(t *testing.T) {
	t.Parallel()

	s := connected("user1")
	s.ApplyClientJoined(joined("user1", "ABCDE", "user1"))
	s.ApplyClientJoined(joined("user2", "ABCDE", "user1", "user2"))

	assert.Equal(t, Lobby, s.Screen())
	assert.Equal(t, []string{"user1", "user2"}, s.Roster())
	assert.Equal(t, "User user2 Joined!", s.Notification())
}

func TestClientJoined_RosterDeduplicated(t *testing.T) {
	t.Parallel()

	s := connected("user1")
	s.ApplyClientJoined(joined("user1", "ABCDE", "user1", "user2", "user1", "user3", "user2"))

	assert.Equal(t, []string{"user1", "user2", "user3"}, s.Roster())
	assert.Equal(t, 3, s.RosterSize())
}

func TestClientLeft(t *testing.T) {
	t.Parallel()

	t.Run("other", func(t *testing.T) {
		t.Parallel()
		s := connected("user1")
		s.ApplyClientJoined(joined("user1", "ABCDE", "user1", "user2"))
		s.ApplyClientLeft(left("user2"))

		assert.Equal(t, Lobby, s.Screen())
		assert.Equal(t, []string{"user1"}, s.Roster())
		assert.Equal(t, "User user2 Left!", s.Notification())
	})

	t.Run("self from lobby", func(t *testing.T) {
		t.Parallel()
		s := connected("user1")
		s.ApplyClientJoined(joined("user1", "ABCDE", "user1", "user2"))
		s.ApplyClientLeft(left("user1"))

		assert.Equal(t, Menu, s.Screen())
		assert.Empty(t, s.SessionID())
		assert.Empty(t, s.Roster())
		assert.Equal(t, MsgLeft, s.Notification())
	})

	t.Run("self from game", func(t *testing.T) {
		t.Parallel()
		s := connected("user1")
		s.ApplyClientJoined(joined("user1", "ABCDE", "user1"))
		s.ApplyGameStarted(protocol.NewServerEvent(protocol.GameStarted).Build())
		s.ApplyClientLeft(left("user1"))
		assert.Equal(t, Menu, s.Screen())
	})
}

func TestGameStarted(t *testing.T) {
	t.Parallel()

	s := connected("user1")
	s.ApplyClientJoined(joined("user1", "ABCDE", "user1", "user2"))
	s.ApplyGameStarted(protocol.NewServerEvent(protocol.GameStarted).SessionClientIDs("user1", "user2").Build())

	assert.Equal(t, Game, s.Screen())
	assert.Equal(t, MsgGameStarting, s.Notification())
}

func TestGameStarted_IgnoredOnLogin(t *testing.T) {
	t.Parallel()

	s := New()
	s.ApplyGameStarted(protocol.NewServerEvent(protocol.GameStarted).Build())
	assert.Equal(t, Login, s.Screen())
}

func TestDataResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ev       *protocol.ServerEvent
		want     Screen
		wantNote string
	}{
		{
			name:     "lobby",
			ev:       protocol.NewServerEvent(protocol.DataResponse).SessionID("ABCDE").SessionClientIDs("user1", "user2").Build(),
			want:     Lobby,
			wantNote: MsgResumedSession,
		},
		{
			name: "game",
			ev: protocol.NewServerEvent(protocol.DataResponse).SessionID("ABCDE").SessionClientIDs("user1").
				GameData(&protocol.GameData{PlayerOrder: []string{"user1"}}).Build(),
			want:     Game,
			wantNote: MsgResumedSession,
		},
		{
			name:     "no session",
			ev:       protocol.NewServerEvent(protocol.DataResponse).Build(),
			want:     Menu,
			wantNote: MsgConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := connected("user1")
			s.ApplyDataResponse(tt.ev)
			assert.Equal(t, tt.want, s.Screen())
			assert.Equal(t, tt.wantNote, s.Notification())
		})
	}
}

func TestLogicError_NotifiesOnly(t *testing.T) {
	t.Parallel()

	s := connected("user1")
	s.ApplyClientJoined(joined("user1", "ABCDE", "user1"))
	s.ApplyMessage(protocol.NewServerEvent(protocol.LogicError).Message("Invalid SessionID: ZZZZZ").Build())

	assert.Equal(t, Lobby, s.Screen())
	assert.Equal(t, "Invalid SessionID: ZZZZZ", s.Notification())
}

func TestClosed_ResetsToLogin(t *testing.T) {
	t.Parallel()

	s := connected("user1")
	s.ApplyClientJoined(joined("user1", "ABCDE", "user1"))
	s.Closed()

	snap := s.Snapshot()
	assert.Equal(t, Login, snap.Screen)
	assert.Empty(t, snap.SessionID)
	assert.Empty(t, snap.Roster)
	assert.Equal(t, "user1", snap.Identity)
	assert.Equal(t, MsgDisconnected, snap.Notification)
}

func TestNotifications_BoundedNewestFirst(t *testing.T) {
	t.Parallel()

	s := New()
	for i := range maxNotifications + 10 {
		s.Notify(fmt.Sprintf("n%d", i))
	}
	s.Notify("")

	notes := s.Notifications()
	require.Len(t, notes, maxNotifications)
	assert.Equal(t, fmt.Sprintf("n%d", maxNotifications+9), notes[0].Text)
	assert.Equal(t, "n10", notes[len(notes)-1].Text)
}

func TestRoster_ReturnsCopy(t *testing.T) {
	t.Parallel()

	s := connected("user1")
	s.ApplyClientJoined(joined("user1", "ABCDE", "user1", "user2"))

	roster := s.Roster()
	roster[0] = "mutated"
	assert.Equal(t, []string{"user1", "user2"}, s.Roster())
}

func TestScreen_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Lobby", Lobby.String())
	assert.Equal(t, Game, ParseScreen("Game"))
	assert.Equal(t, Login, ParseScreen("bogus"))
}

func TestConcurrentReads(t *testing.T) {
	t.Parallel()

	s := connected("user1")
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.ApplyClientJoined(joined(fmt.Sprintf("user%d", i), "ABCDE", "user1", fmt.Sprintf("user%d", i)))
			_ = s.Snapshot()
			_ = s.RosterSize()
		}(i)
	}
	wg.Wait()
	assert.NotEmpty(t, s.Roster())
}
