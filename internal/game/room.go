package game

import (
	"encoding/json"
	"sync"
)

const (
	phaseLobby  = "lobby"
	phaseActive = "active"
	phaseWon    = "won"
	phaseLost   = "lost"
)

// Room is the authoritative state machine for one named game. All mutations
// and all broadcasts happen under its lock, so actions addressed to a room
// are fully serialized and every subscriber observes snapshots in the same
// room-local order. Different rooms never share state.
type Room struct {
	name string
	mu   sync.Mutex

	phase   string // lobby|active|won|lost
	secret  string
	reg     *Registry
	guesses map[string][]GuessRecord
	total   int
	lastErr string

	prevWinners []string

	limit  int
	closed bool

	subs map[*ClientConn]string

	onWin     func(winner string)                  // round won, for the hall of fame
	onOutcome func(winner string, losers []string) // terminal transition, for lifetime stats
}

func NewRoom(name string, limit int) *Room {
	if limit <= 0 {
		limit = DefaultGuessLimit
	}
	return &Room{
		name:    name,
		phase:   phaseLobby,
		secret:  RandomSecret(),
		reg:     NewRegistry(),
		guesses: make(map[string][]GuessRecord),
		limit:   limit,
		subs:    make(map[*ClientConn]string),
	}
}

func (r *Room) Name() string { return r.name }

// Join admits name under role and subscribes cc to broadcasts. The current
// snapshot goes to the joiner only; existing subscribers learn about the new
// participant on the next mutation. Rejoining with the same name re-attaches
// to the existing participant record.
func (r *Room) Join(cc *ClientConn, name string, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if _, err := r.reg.Admit(name, role); err != nil {
		return err
	}
	r.subs[cc] = name

	r.sendLocked(cc, Envelope{Type: "state", Payload: mustJSON(r.snapshotLocked())})
	return nil
}

// Ready marks the caller's player as ready. When every admitted player is
// ready the room leaves the lobby and those players become active.
func (r *Room) Ready(cc *ClientConn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.subs[cc]
	if !ok {
		r.sendErrorLocked(cc, "not_joined", ErrNotJoined.Error())
		return
	}

	if r.phase != phaseLobby {
		r.rejectLocked(ErrAlreadyStarted)
		return
	}
	if err := r.reg.SetReady(name); err != nil {
		r.rejectLocked(err)
		return
	}

	r.lastErr = ""
	if r.reg.AllPlayersReady() {
		r.reg.ActivateReady()
		r.phase = phaseActive
	}
	r.broadcastStateLocked()
}

// Guess records a scored guess for the caller, or the pass sentinel. A
// winning guess (4 correct) ends the round won; hitting the guess limit ends
// it lost. Anything submitted by a non-active player, and any malformed
// guess, is rejected without touching round state.
func (r *Room) Guess(cc *ClientConn, number string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.subs[cc]
	if !ok {
		r.sendErrorLocked(cc, "not_joined", ErrNotJoined.Error())
		return
	}

	p, ok := r.reg.Get(name)
	if !ok || r.phase != phaseActive || p.Role != RolePlayer || p.Status != StatusActive {
		r.rejectLocked(ErrNotPlaying)
		return
	}

	rec := GuessRecord{Guess: number}
	if number != PassGuess {
		if !ValidGuess(number) {
			r.rejectLocked(ErrBadGuess)
			return
		}
		rec.A, rec.B = ScoreGuess(r.secret, number)
	}

	r.lastErr = ""
	r.guesses[name] = append(r.guesses[name], rec)
	r.total++

	switch {
	case rec.A == 4:
		r.finishLocked(name)
	case r.total >= r.limit:
		r.finishLocked("")
	}
	r.broadcastStateLocked()
}

// Reset returns the room to the lobby with a fresh secret and an empty guess
// log. Accepted from any participant in any phase; win/loss counters and
// membership are untouched, and a mid-round reset records no outcome.
func (r *Room) Reset(cc *ClientConn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[cc]; !ok {
		r.sendErrorLocked(cc, "not_joined", ErrNotJoined.Error())
		return
	}

	r.secret = RandomSecret()
	r.guesses = make(map[string][]GuessRecord)
	r.total = 0
	r.reg.ResetRound()
	r.phase = phaseLobby
	r.lastErr = ""
	r.broadcastStateLocked()
}

// Detach unsubscribes cc and returns the number of remaining subscribers.
// The participant record stays behind so the same name can re-attach.
func (r *Room) Detach(cc *ClientConn) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, cc)
	return len(r.subs)
}

// closeIfEmpty marks the room closed when no subscribers remain. A closed
// room refuses joins; callers holding a stale reference retry with a fresh
// room from the directory.
func (r *Room) closeIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subs) > 0 {
		return false
	}
	r.closed = true
	return true
}

func (r *Room) finishLocked(winner string) {
	active := r.reg.ActivePlayers()
	r.reg.RecordOutcome(winner)

	if winner != "" {
		r.phase = phaseWon
		r.prevWinners = append(r.prevWinners, winner)
		if r.onWin != nil {
			r.onWin(winner)
		}
	} else {
		r.phase = phaseLost
	}

	if r.onOutcome != nil {
		losers := make([]string, 0, len(active))
		for _, n := range active {
			if n != winner {
				losers = append(losers, n)
			}
		}
		r.onOutcome(winner, losers)
	}
}

func (r *Room) rejectLocked(err error) {
	r.lastErr = err.Error()
	r.broadcastStateLocked()
}

func (r *Room) broadcastStateLocked() {
	b, _ := json.Marshal(Envelope{Type: "state", Payload: mustJSON(r.snapshotLocked())})
	for cc := range r.subs {
		r.enqueueLocked(cc, b)
	}
}

func (r *Room) sendLocked(cc *ClientConn, env Envelope) {
	b, _ := json.Marshal(env)
	r.enqueueLocked(cc, b)
}

// sendError delivers an error envelope to one connection without touching
// room state. Used by the transport for malformed frames.
func (r *Room) sendError(cc *ClientConn, code, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendErrorLocked(cc, code, msg)
}

func (r *Room) sendErrorLocked(cc *ClientConn, code, msg string) {
	r.sendLocked(cc, Envelope{
		Type:    "error",
		Payload: mustJSON(ErrorPayload{Code: code, Message: msg}),
	})
}

func (r *Room) enqueueLocked(cc *ClientConn, msg []byte) {
	select {
	case cc.send <- msg:
	default:
		// slow reader: drop rather than stall the room
	}
}

func (r *Room) setPreviousWinners(names []string) {
	r.mu.Lock()
	r.prevWinners = append([]string(nil), names...)
	r.mu.Unlock()
}
