package httpapi

import (
	"context"
	"time"

	"github.com/brianjaustin/cs4550-hw06/internal/auth"
	"github.com/brianjaustin/cs4550-hw06/internal/store"
)

// Store and token contracts the handlers depend on, so tests can swap in
// in-memory fakes. The production implementations are store.UserStore,
// store.StatsStore and auth.Service.

type UserStore interface {
	Create(ctx context.Context, u store.User) error
	GetByUsername(ctx context.Context, username string) (store.User, error)
	GetByID(ctx context.Context, id string) (store.User, error)
}

type StatsStore interface {
	Get(ctx context.Context, name string) (store.PlayerStats, error)
}

type TokenSigner interface {
	Sign(userID, displayName string, ttl time.Duration) (string, error)
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}
