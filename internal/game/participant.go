package game

// Role of a room occupant. Players guess; observers only watch.
type Role string

const (
	RolePlayer   Role = "player"
	RoleObserver Role = "observer"
)

// Status of a player within the current round. Observers always report
// StatusObserver.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReady    Status = "ready"
	StatusActive   Status = "active"
	StatusDone     Status = "done"
	StatusObserver Status = "observer"
)

// Participant is one named occupant of a room. Wins and losses accumulate
// across rounds for as long as the room lives; Status is round-scoped.
type Participant struct {
	Name   string
	Role   Role
	Status Status
	Wins   int
	Losses int
}

// Registry tracks the participants of a single room. It is owned by the room
// and must only be used while holding the room's lock; it has no locking of
// its own.
type Registry struct {
	members map[string]*Participant
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[string]*Participant)}
}

// Admit creates a participant or re-attaches to an existing one. Rejoining
// with the same name and role is idempotent; rejoining with a different role
// is ErrNameConflict.
func (r *Registry) Admit(name string, role Role) (*Participant, error) {
	if p, ok := r.members[name]; ok {
		if p.Role != role {
			return nil, ErrNameConflict
		}
		return p, nil
	}

	p := &Participant{Name: name, Role: role, Status: StatusPending}
	if role == RoleObserver {
		p.Status = StatusObserver
	}
	r.members[name] = p
	return p, nil
}

// SetReady moves a pending player to ready. Already-ready is a no-op.
func (r *Registry) SetReady(name string) error {
	p, ok := r.members[name]
	if !ok {
		return ErrNotJoined
	}
	if p.Role != RolePlayer {
		return ErrObserverReady
	}
	if p.Status == StatusPending {
		p.Status = StatusReady
	}
	return nil
}

// AllPlayersReady reports whether the room has at least one player and every
// admitted player is ready.
func (r *Registry) AllPlayersReady() bool {
	players := 0
	for _, p := range r.members {
		if p.Role != RolePlayer {
			continue
		}
		players++
		if p.Status != StatusReady {
			return false
		}
	}
	return players > 0
}

// ActivateReady flips every ready player to active. Called on the
// lobby->active transition.
func (r *Registry) ActivateReady() {
	for _, p := range r.members {
		if p.Role == RolePlayer && p.Status == StatusReady {
			p.Status = StatusActive
		}
	}
}

// RecordOutcome closes a round: the winner (if any) gains a win, every other
// active player takes a loss, and all active players become done. An empty
// winner means the round was lost outright.
func (r *Registry) RecordOutcome(winner string) {
	for _, p := range r.members {
		if p.Role != RolePlayer || p.Status != StatusActive {
			continue
		}
		if p.Name == winner {
			p.Wins++
		} else {
			p.Losses++
		}
		p.Status = StatusDone
	}
}

// ResetRound returns every player to pending. Counters and membership are
// untouched.
func (r *Registry) ResetRound() {
	for _, p := range r.members {
		if p.Role == RolePlayer {
			p.Status = StatusPending
		}
	}
}

// ActivePlayers returns the names of players currently in StatusActive.
func (r *Registry) ActivePlayers() []string {
	var names []string
	for _, p := range r.members {
		if p.Role == RolePlayer && p.Status == StatusActive {
			names = append(names, p.Name)
		}
	}
	return names
}

// Get returns the participant admitted under name, if any.
func (r *Registry) Get(name string) (*Participant, bool) {
	p, ok := r.members[name]
	return p, ok
}

// Len returns the number of admitted participants.
func (r *Registry) Len() int {
	return len(r.members)
}
