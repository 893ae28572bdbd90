package game

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the complete wire state of a room, broadcast to every
// subscriber after each mutation. It is a pure projection of room state;
// holding one never aliases live room internals.
type Snapshot struct {
	Participants    map[string]ParticipantView `json:"participants"`
	Guesses         map[string][]GuessRecord   `json:"guesses"`
	PreviousWinners []string                   `json:"previous_winners"`
	Lobby           bool                       `json:"lobby"`
	Won             bool                       `json:"won"`
	Lost            bool                       `json:"lost"`
	Error           string                     `json:"error"`
}

// ParticipantView is serialized as the tuple [status, wins, losses], the
// shape clients index into when rendering the player table.
type ParticipantView struct {
	Status Status
	Wins   int
	Losses int
}

func (v ParticipantView) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{v.Status, v.Wins, v.Losses})
}

func (v *ParticipantView) UnmarshalJSON(b []byte) error {
	var tup []json.RawMessage
	if err := json.Unmarshal(b, &tup); err != nil {
		return err
	}
	if len(tup) != 3 {
		return fmt.Errorf("participant tuple has %d elements, want 3", len(tup))
	}
	if err := json.Unmarshal(tup[0], &v.Status); err != nil {
		return err
	}
	if err := json.Unmarshal(tup[1], &v.Wins); err != nil {
		return err
	}
	return json.Unmarshal(tup[2], &v.Losses)
}

// GuessRecord is one scored guess: A correct digits, B displaced ones.
type GuessRecord struct {
	Guess string `json:"guess"`
	A     int    `json:"a"`
	B     int    `json:"b"`
}

// Result renders the record's score, e.g. "2A2B".
func (g GuessRecord) Result() string {
	return FormatScore(g.A, g.B)
}

func (r *Room) snapshotLocked() Snapshot {
	snap := Snapshot{
		Participants:    make(map[string]ParticipantView, r.reg.Len()),
		Guesses:         make(map[string][]GuessRecord, len(r.guesses)),
		PreviousWinners: append([]string{}, r.prevWinners...),
		Lobby:           r.phase == phaseLobby,
		Won:             r.phase == phaseWon,
		Lost:            r.phase == phaseLost,
		Error:           r.lastErr,
	}

	for name, p := range r.reg.members {
		snap.Participants[name] = ParticipantView{Status: p.Status, Wins: p.Wins, Losses: p.Losses}
	}
	for name, gs := range r.guesses {
		snap.Guesses[name] = append([]GuessRecord(nil), gs...)
	}
	return snap
}
