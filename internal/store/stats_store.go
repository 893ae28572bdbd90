package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlayerStats is a player's lifetime record across every room, keyed by
// display name so guests and registered users both accumulate.
type PlayerStats struct {
	Name      string
	Wins      int
	Losses    int
	UpdatedAt time.Time
}

type StatsStore struct {
	db *pgxpool.Pool
}

func NewStatsStore(db *pgxpool.Pool) *StatsStore {
	return &StatsStore{db: db}
}

func (s *StatsStore) RecordWin(ctx context.Context, name string) error {
	return s.bump(ctx, name, 1, 0)
}

func (s *StatsStore) RecordLoss(ctx context.Context, name string) error {
	return s.bump(ctx, name, 0, 1)
}

func (s *StatsStore) bump(ctx context.Context, name string, wins, losses int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO player_stats (player_name, wins, losses)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_name) DO UPDATE
		SET wins = player_stats.wins + $2,
		    losses = player_stats.losses + $3,
		    updated_at = now()
	`, name, wins, losses)
	return err
}

func (s *StatsStore) Get(ctx context.Context, name string) (PlayerStats, error) {
	var st PlayerStats
	err := s.db.QueryRow(ctx, `
		SELECT player_name, wins, losses, updated_at
		FROM player_stats
		WHERE player_name=$1
	`, name).Scan(&st.Name, &st.Wins, &st.Losses, &st.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// no row yet just means the name has not finished a round
		return PlayerStats{Name: name}, nil
	}
	if err != nil {
		return PlayerStats{}, err
	}
	return st, nil
}
