package game

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WinnerStore keeps the per-room hall of fame: winners of past rounds, shown
// to everyone who joins the room later.
type WinnerStore interface {
	Winners(ctx context.Context, room string) ([]string, error)
	AddWinner(ctx context.Context, room, name string) error
}

// RedisWinnerStore stores each room's winner list in Redis with a TTL, so a
// popular room keeps its history while abandoned ones age out.
type RedisWinnerStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisWinnerStore(rdb *redis.Client, ttl time.Duration) *RedisWinnerStore {
	return &RedisWinnerStore{rdb: rdb, ttl: ttl}
}

func (s *RedisWinnerStore) key(room string) string {
	return fmt.Sprintf("room:%s:winners", room)
}

func (s *RedisWinnerStore) Winners(ctx context.Context, room string) ([]string, error) {
	names, err := s.rdb.LRange(ctx, s.key(room), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *RedisWinnerStore) AddWinner(ctx context.Context, room, name string) error {
	key := s.key(room)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, name)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
