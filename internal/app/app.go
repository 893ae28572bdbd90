package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brianjaustin/cs4550-hw06/internal/auth"
	"github.com/brianjaustin/cs4550-hw06/internal/config"
	"github.com/brianjaustin/cs4550-hw06/internal/game"
	"github.com/brianjaustin/cs4550-hw06/internal/httpapi"
	"github.com/brianjaustin/cs4550-hw06/internal/migrate"
	"github.com/brianjaustin/cs4550-hw06/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db  *pgxpool.Pool
	rdb *redis.Client

	srv *http.Server
}

type Options struct {
	Static http.Handler // optional; if nil, no frontend is served
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	// --- Postgres (optional: accounts + lifetime stats) ---
	var dbpool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		dbpool, err = pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = dbpool.Ping(pingCtx)
		cancel()
		if err != nil {
			dbpool.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}

		if cfg.Postgres.RunMigrations {
			if err := migrate.Up(cfg.Postgres.URL, cfg.Postgres.MigrationsDir, log); err != nil {
				dbpool.Close()
				return nil, err
			}
		}
	} else {
		log.Info("postgres disabled, accounts and lifetime stats are off")
	}

	// --- Redis (optional: previous winners) ---
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			if dbpool != nil {
				dbpool.Close()
			}
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping (%s db=%d): %w", cfg.Redis.Addr, cfg.Redis.DB, err)
		}
	} else {
		log.Info("redis disabled, previous winners are off")
	}

	authSvc := auth.NewService([]byte(cfg.Auth.Secret))

	// --- Game ---
	var winners game.WinnerStore
	if rdb != nil {
		winners = game.NewRedisWinnerStore(rdb, cfg.Redis.WinnersTTL)
	}
	var outcomes game.OutcomeRecorder
	if dbpool != nil {
		outcomes = store.NewStatsStore(dbpool)
	}

	gameCfg := game.Config{GuessLimit: cfg.Game.GuessLimit}
	rooms := game.NewRoomService(gameCfg, log, winners, outcomes)
	gameSrv := game.NewServer(rooms, authSvc)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	gameSrv.RegisterRoutes(mux)

	// --- account routes (only with a database behind them) ---
	if dbpool != nil {
		authH := &httpapi.AuthHandler{
			Users:    store.NewUserStore(dbpool),
			Stats:    store.NewStatsStore(dbpool),
			Auth:     authSvc,
			TokenTTL: cfg.Auth.TokenTTL,
		}
		mux.HandleFunc("/api/auth/register", authH.Register)
		mux.HandleFunc("/api/auth/login", authH.Login)
		mux.Handle("/api/me", httpapi.AuthMiddleware(authSvc)(http.HandlerFunc(authH.Me)))
	}

	if opts.Static != nil {
		mux.Handle("/", opts.Static)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	return &App{cfg: cfg, log: log, db: dbpool, rdb: rdb, srv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)

	g.Go(func() error {
		err := a.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		_ = a.srv.Shutdown(shutdownCtx)
		return nil
	})

	err := g.Wait()
	_ = a.Close(context.Background())
	return err
}

func (a *App) Close(ctx context.Context) error {
	// best-effort
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	return nil
}
