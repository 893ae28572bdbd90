package game

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConn() *ClientConn {
	return &ClientConn{
		ws:   nil,
		send: make(chan []byte, 256),
	}
}

func readEnvelopesNonBlocking(c *ClientConn) []Envelope {
	var envs []Envelope
	for {
		select {
		case msg := <-c.send:
			var env Envelope
			if json.Unmarshal(msg, &env) == nil {
				envs = append(envs, env)
			}
		default:
			return envs
		}
	}
}

func findLastState(envs []Envelope) (Snapshot, bool) {
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Type != "state" {
			continue
		}
		var snap Snapshot
		if json.Unmarshal(envs[i].Payload, &snap) == nil {
			return snap, true
		}
	}
	return Snapshot{}, false
}

func lastState(t *testing.T, c *ClientConn) Snapshot {
	t.Helper()
	snap, ok := findLastState(readEnvelopesNonBlocking(c))
	require.True(t, ok, "no state envelope received")
	return snap
}

// activeRoom returns a room in the active phase with the given secret and
// two playing subscribers, alice and bob.
func activeRoom(t *testing.T, secret string) (*Room, *ClientConn, *ClientConn) {
	t.Helper()

	r := NewRoom("den", 0)
	alice, bob := newTestConn(), newTestConn()
	require.NoError(t, r.Join(alice, "alice", RolePlayer))
	require.NoError(t, r.Join(bob, "bob", RolePlayer))
	r.Ready(alice)
	r.Ready(bob)

	r.mu.Lock()
	require.Equal(t, phaseActive, r.phase)
	r.secret = secret
	r.mu.Unlock()
	return r, alice, bob
}

func TestRoom_Scenarios(t *testing.T) {
	cases := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "stays in lobby until every player is ready",
			run: func(t *testing.T) {
				r := NewRoom("den", 0)
				alice, bob := newTestConn(), newTestConn()
				require.NoError(t, r.Join(alice, "alice", RolePlayer))
				require.NoError(t, r.Join(bob, "bob", RolePlayer))

				r.Ready(alice)
				snap := lastState(t, bob)
				assert.True(t, snap.Lobby)
				assert.Equal(t, StatusReady, snap.Participants["alice"].Status)
				assert.Equal(t, StatusPending, snap.Participants["bob"].Status)

				r.Ready(bob)
				snap = lastState(t, bob)
				assert.False(t, snap.Lobby)
				assert.Equal(t, StatusActive, snap.Participants["alice"].Status)
				assert.Equal(t, StatusActive, snap.Participants["bob"].Status)
			},
		},
		{
			name: "lone ready player starts the game",
			run: func(t *testing.T) {
				r := NewRoom("solo", 0)
				alice := newTestConn()
				require.NoError(t, r.Join(alice, "alice", RolePlayer))
				r.Ready(alice)

				snap := lastState(t, alice)
				assert.False(t, snap.Lobby)
				assert.Equal(t, StatusActive, snap.Participants["alice"].Status)
			},
		},
		{
			name: "winning guess ends the round won and updates counters",
			run: func(t *testing.T) {
				r, alice, bob := activeRoom(t, "1234")

				r.Guess(alice, "1234")

				snap := lastState(t, bob)
				assert.True(t, snap.Won)
				assert.False(t, snap.Lobby)
				assert.Equal(t, ParticipantView{Status: StatusDone, Wins: 1, Losses: 0}, snap.Participants["alice"])
				assert.Equal(t, ParticipantView{Status: StatusDone, Wins: 0, Losses: 1}, snap.Participants["bob"])
				require.Len(t, snap.Guesses["alice"], 1)
				assert.Equal(t, GuessRecord{Guess: "1234", A: 4, B: 0}, snap.Guesses["alice"][0])
				assert.Equal(t, []string{"alice"}, snap.PreviousWinners)
			},
		},
		{
			name: "eighth guess without a win loses the round",
			run: func(t *testing.T) {
				r, alice, bob := activeRoom(t, "1234")

				wrong := []string{"5678", "5679", "5681", "5682", "5683", "5684", "5687", "5689"}
				for i, g := range wrong {
					if i%2 == 0 {
						r.Guess(alice, g)
					} else {
						r.Guess(bob, g)
					}
				}

				snap := lastState(t, alice)
				assert.True(t, snap.Lost)
				assert.False(t, snap.Won)
				assert.Equal(t, 1, snap.Participants["alice"].Losses)
				assert.Equal(t, 1, snap.Participants["bob"].Losses)
				assert.Len(t, snap.Guesses["alice"], 4)
				assert.Len(t, snap.Guesses["bob"], 4)
			},
		},
		{
			name: "pass is recorded, counts toward the limit, never wins",
			run: func(t *testing.T) {
				r, alice, _ := activeRoom(t, "1234")

				for i := 0; i < DefaultGuessLimit; i++ {
					r.Guess(alice, PassGuess)
				}

				snap := lastState(t, alice)
				assert.True(t, snap.Lost)
				require.Len(t, snap.Guesses["alice"], DefaultGuessLimit)
				assert.Equal(t, GuessRecord{Guess: PassGuess, A: 0, B: 0}, snap.Guesses["alice"][0])
			},
		},
		{
			name: "observer guess is rejected without touching state",
			run: func(t *testing.T) {
				r, alice, _ := activeRoom(t, "1234")
				owl := newTestConn()
				require.NoError(t, r.Join(owl, "owl", RoleObserver))

				r.Guess(owl, "1234")

				snap := lastState(t, alice)
				assert.Equal(t, ErrNotPlaying.Error(), snap.Error)
				assert.False(t, snap.Won)
				assert.Empty(t, snap.Guesses)
				assert.Equal(t, StatusActive, snap.Participants["alice"].Status)
			},
		},
		{
			name: "player joining mid-game stays pending and cannot guess",
			run: func(t *testing.T) {
				r, alice, _ := activeRoom(t, "1234")
				late := newTestConn()
				require.NoError(t, r.Join(late, "carol", RolePlayer))

				r.Guess(late, "1234")

				snap := lastState(t, alice)
				assert.Equal(t, ErrNotPlaying.Error(), snap.Error)
				assert.Equal(t, StatusPending, snap.Participants["carol"].Status)
				assert.Empty(t, snap.Guesses)
			},
		},
		{
			name: "malformed guesses surface an error and accepted ones clear it",
			run: func(t *testing.T) {
				r, alice, bob := activeRoom(t, "1234")

				for _, bad := range []string{"12", "abcd", "0123", "1123", "123456"} {
					r.Guess(alice, bad)
					snap := lastState(t, bob)
					assert.Equal(t, ErrBadGuess.Error(), snap.Error, "guess %q", bad)
					assert.Empty(t, snap.Guesses)
				}

				r.Guess(alice, "5678")
				snap := lastState(t, bob)
				assert.Empty(t, snap.Error)
				require.Len(t, snap.Guesses["alice"], 1)
			},
		},
		{
			name: "guessing in the lobby is rejected",
			run: func(t *testing.T) {
				r := NewRoom("den", 0)
				alice := newTestConn()
				require.NoError(t, r.Join(alice, "alice", RolePlayer))

				r.Guess(alice, "1234")

				snap := lastState(t, alice)
				assert.True(t, snap.Lobby)
				assert.Equal(t, ErrNotPlaying.Error(), snap.Error)
				assert.Empty(t, snap.Guesses)
			},
		},
		{
			name: "ready after the game started is rejected",
			run: func(t *testing.T) {
				r, alice, _ := activeRoom(t, "1234")
				late := newTestConn()
				require.NoError(t, r.Join(late, "carol", RolePlayer))

				r.Ready(late)

				snap := lastState(t, alice)
				assert.Equal(t, ErrAlreadyStarted.Error(), snap.Error)
				assert.Equal(t, StatusPending, snap.Participants["carol"].Status)
			},
		},
		{
			name: "reset returns to lobby with counters and membership intact",
			run: func(t *testing.T) {
				r, alice, bob := activeRoom(t, "1234")
				r.Guess(alice, "1234") // alice wins

				r.mu.Lock()
				oldSecret := r.secret
				r.mu.Unlock()

				r.Reset(bob)

				r.mu.Lock()
				newSecret := r.secret
				r.mu.Unlock()
				if newSecret == oldSecret {
					// one-in-thousands collision; a second reset settles it
					r.Reset(bob)
					r.mu.Lock()
					newSecret = r.secret
					r.mu.Unlock()
					require.NotEqual(t, oldSecret, newSecret)
				}

				snap := lastState(t, alice)
				assert.True(t, snap.Lobby)
				assert.False(t, snap.Won)
				assert.Empty(t, snap.Guesses)
				assert.Empty(t, snap.Error)
				assert.Equal(t, ParticipantView{Status: StatusPending, Wins: 1, Losses: 0}, snap.Participants["alice"])
				assert.Equal(t, ParticipantView{Status: StatusPending, Wins: 0, Losses: 1}, snap.Participants["bob"])
				assert.Equal(t, []string{"alice"}, snap.PreviousWinners)
			},
		},
		{
			name: "rejoining with the same name and role re-attaches",
			run: func(t *testing.T) {
				r, alice, _ := activeRoom(t, "1234")
				r.Guess(alice, "1234")
				r.Reset(alice)

				alice2 := newTestConn()
				require.NoError(t, r.Join(alice2, "alice", RolePlayer))

				snap := lastState(t, alice2)
				assert.Equal(t, 1, snap.Participants["alice"].Wins)
				assert.Len(t, snap.Participants, 2)
			},
		},
		{
			name: "rejoining with a different role is a conflict for the caller only",
			run: func(t *testing.T) {
				r, alice, bob := activeRoom(t, "1234")

				sneaky := newTestConn()
				err := r.Join(sneaky, "alice", RoleObserver)
				require.ErrorIs(t, err, ErrNameConflict)

				// nobody else heard about it and alice still plays
				assert.Empty(t, readEnvelopesNonBlocking(bob))
				r.Guess(alice, "1234")
				snap := lastState(t, bob)
				assert.True(t, snap.Won)
			},
		},
		{
			name: "rooms with the same player names are independent",
			run: func(t *testing.T) {
				r1, a1, _ := activeRoom(t, "1234")
				r2, a2, b2 := activeRoom(t, "5678")

				r1.Guess(a1, "1234")

				snap1 := lastState(t, a1)
				assert.True(t, snap1.Won)

				// drain joins/readies, then check the second room is untouched
				readEnvelopesNonBlocking(a2)
				r2.Guess(a2, "1234")
				snap2 := lastState(t, b2)
				assert.False(t, snap2.Won)
				assert.Zero(t, snap2.Participants["alice"].Wins)
				require.Len(t, snap2.Guesses["alice"], 1)
				assert.Equal(t, GuessRecord{Guess: "1234", A: 0, B: 0}, snap2.Guesses["alice"][0])
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, tc.run)
	}
}

func TestRoom_BroadcastOrderIsIdenticalForAllSubscribers(t *testing.T) {
	r, alice, bob := activeRoom(t, "1234")
	readEnvelopesNonBlocking(alice)
	readEnvelopesNonBlocking(bob)

	for i := 0; i < 4; i++ {
		r.Guess(alice, fmt.Sprintf("567%d", 8+i%2)) // 5678/5679
		r.Guess(alice, "bad")
	}

	stateBodies := func(envs []Envelope) []string {
		var out []string
		for _, e := range envs {
			if e.Type == "state" {
				out = append(out, string(e.Payload))
			}
		}
		return out
	}

	sa := stateBodies(readEnvelopesNonBlocking(alice))
	sb := stateBodies(readEnvelopesNonBlocking(bob))
	require.Len(t, sa, 8)
	assert.Equal(t, sa, sb)
}

func TestRoom_DetachKeepsParticipant(t *testing.T) {
	r := NewRoom("den", 0)
	alice, bob := newTestConn(), newTestConn()
	require.NoError(t, r.Join(alice, "alice", RolePlayer))
	require.NoError(t, r.Join(bob, "bob", RolePlayer))

	require.Equal(t, 1, r.Detach(alice))

	r.mu.Lock()
	_, stillThere := r.reg.Get("alice")
	r.mu.Unlock()
	assert.True(t, stillThere)

	require.Equal(t, 0, r.Detach(bob))
	assert.True(t, r.closeIfEmpty())
	require.ErrorIs(t, r.Join(newTestConn(), "carol", RolePlayer), ErrRoomClosed)
}
