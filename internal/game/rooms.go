package game

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Config carries the game-level knobs.
type Config struct {
	GuessLimit int // 0 => DefaultGuessLimit
}

// OutcomeRecorder receives terminal round results, keyed by display name.
// Implemented by the Postgres stats store; nil disables lifetime stats.
type OutcomeRecorder interface {
	RecordWin(ctx context.Context, name string) error
	RecordLoss(ctx context.Context, name string) error
}

// RoomService is the room directory: it maps room names to live rooms,
// creating lazily on first join and tearing down when the last subscriber
// leaves. At most one live room exists per name.
type RoomService struct {
	mu    sync.Mutex
	rooms map[string]*Room

	cfg      Config
	log      *slog.Logger
	winners  WinnerStore
	outcomes OutcomeRecorder
}

func NewRoomService(cfg Config, log *slog.Logger, winners WinnerStore, outcomes OutcomeRecorder) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	return &RoomService{
		rooms:    make(map[string]*Room),
		cfg:      cfg,
		log:      log,
		winners:  winners,
		outcomes: outcomes,
	}
}

// GetOrCreate returns the live room for name, creating it if needed.
// Creation is idempotent under concurrent first joins: only one instance
// wins, later creators attach to the winner.
func (s *RoomService) GetOrCreate(ctx context.Context, name string) *Room {
	s.mu.Lock()
	r, ok := s.rooms[name]
	s.mu.Unlock()
	if ok {
		return r
	}

	r = NewRoom(name, s.cfg.GuessLimit)
	r.onWin = func(winner string) { s.recordWinner(name, winner) }
	r.onOutcome = func(winner string, losers []string) { s.recordOutcome(winner, losers) }

	if s.winners != nil {
		past, err := s.winners.Winners(ctx, name)
		if err != nil {
			s.log.Warn("loading previous winners failed", "room", name, "err", err)
		} else {
			r.setPreviousWinners(past)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.rooms[name]; ok {
		// a concurrent first join won the race
		return cur
	}
	s.rooms[name] = r
	s.log.Info("room created", "room", name)
	return r
}

// Leave detaches cc from r and removes the room from the directory when it
// was the last subscriber. A removed room loses all of its state.
func (s *RoomService) Leave(r *Room, cc *ClientConn) {
	if r.Detach(cc) > 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[r.Name()] == r && r.closeIfEmpty() {
		delete(s.rooms, r.Name())
		s.log.Info("room removed", "room", r.Name())
	}
}

// Remove force-closes the room regardless of subscribers. Existing
// connections keep working against the orphaned instance until they detach;
// new joins get a fresh room.
func (s *RoomService) Remove(name string) {
	s.mu.Lock()
	r, ok := s.rooms[name]
	if ok {
		delete(s.rooms, name)
	}
	s.mu.Unlock()

	if ok {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
	}
}

// Len returns the number of live rooms.
func (s *RoomService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

func (s *RoomService) recordWinner(room, winner string) {
	if s.winners == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.winners.AddWinner(ctx, room, winner); err != nil {
		s.log.Warn("recording winner failed", "room", room, "winner", winner, "err", err)
	}
}

func (s *RoomService) recordOutcome(winner string, losers []string) {
	if s.outcomes == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if winner != "" {
		if err := s.outcomes.RecordWin(ctx, winner); err != nil {
			s.log.Warn("recording win failed", "player", winner, "err", err)
		}
	}
	for _, name := range losers {
		if err := s.outcomes.RecordLoss(ctx, name); err != nil {
			s.log.Warn("recording loss failed", "player", name, "err", err)
		}
	}
}
