// Package app assembles the stores, cache, token manager and router from a
// Config. The server command and the serverless handler both build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/geocoder89/favfilms/internal/auth"
	"github.com/geocoder89/favfilms/internal/cache"
	"github.com/geocoder89/favfilms/internal/config"
	"github.com/geocoder89/favfilms/internal/db"
	httpx "github.com/geocoder89/favfilms/internal/http"
	"github.com/geocoder89/favfilms/internal/http/handlers"
	"github.com/geocoder89/favfilms/internal/observability"
	"github.com/geocoder89/favfilms/internal/repo/memory"
	"github.com/geocoder89/favfilms/internal/repo/postgres"
	"github.com/geocoder89/favfilms/internal/repo/sqlite"
	"github.com/gin-gonic/gin"
)

type FilmsStore interface {
	handlers.FilmsStore
	Ping(ctx context.Context) error
}

type App struct {
	Config config.Config
	Log    *slog.Logger
	Films  FilmsStore
	Users  handlers.UserStore
	Tokens *auth.Manager
	Cache  cache.Store
	Prom   *observability.Prom
	Router *gin.Engine

	closers []func(context.Context) error
}

type options struct {
	maxConns int32
	skipOTel bool
}

type Option func(*options)

// WithMaxConns bounds the Postgres pool; serverless instances keep it small.
func WithMaxConns(n int32) Option {
	return func(o *options) { o.maxConns = n }
}

// WithoutTracing skips the OTLP exporter even when an endpoint is configured.
func WithoutTracing() Option {
	return func(o *options) { o.skipOTel = true }
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if log == nil {
		log = observability.NewLogger(cfg.Env)
	}

	a := &App{Config: cfg, Log: log}

	a.Prom = observability.NewProm(observability.NewRegistry())

	tracing := false
	if cfg.OTELEndpoint != "" && !o.skipOTel {
		shutdown, err := observability.InitTracer(ctx, observability.TracerConfig{
			Endpoint:    cfg.OTELEndpoint,
			Env:         cfg.Env,
			SampleRatio: cfg.OTELSampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		a.closers = append(a.closers, shutdown)
		tracing = true
	}

	if err := a.openStores(ctx, o.maxConns); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.Cache = a.openCache(ctx)

	a.Tokens = auth.NewManager(cfg.JWTSecret, cfg.JWTTTL())

	a.Router = httpx.NewRouter(httpx.Deps{
		Log:                log,
		Env:                cfg.Env,
		Films:              a.Films,
		Users:              a.Users,
		Tokens:             a.Tokens,
		Cache:              a.Cache,
		Prom:               a.Prom,
		Ping:               a.Films.Ping,
		Tracing:            tracing,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
	})

	log.Info("app ready", "driver", cfg.DBDriver, "mode", cfg.Mode, "tracing", tracing)

	return a, nil
}

func (a *App) openStores(ctx context.Context, maxConns int32) error {
	switch a.Config.DBDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, a.Config.DBURL, maxConns)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })

		if a.Config.AutoMigrate {
			if err := db.MigratePool(ctx, pool); err != nil {
				return err
			}
		}

		a.Films = postgres.NewFilmsRepo(pool, a.Prom)
		a.Users = postgres.NewUsersRepo(pool, a.Prom)

	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(ctx, a.Config.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })

		if a.Config.AutoMigrate {
			if err := db.Migrate(ctx, sqlDB, config.DriverSQLite); err != nil {
				return err
			}
		}

		a.Films = sqlite.NewFilmsRepo(sqlDB, a.Prom)
		a.Users = sqlite.NewUsersRepo(sqlDB, a.Prom)

	default:
		a.Films = memory.NewFilmsRepo()
		a.Users = memory.NewUsersRepo()
	}

	return nil
}

// openCache prefers Redis when configured. An unreachable server is logged
// and kept: Redis failures degrade to cache misses.
//
// Function instances share the store but not their memory, so without Redis
// they run uncached; a write on one instance could not invalidate the others.
func (a *App) openCache(ctx context.Context) cache.Store {
	if a.Config.RedisAddr == "" {
		if a.Config.Mode == config.ModeFunction {
			a.Log.Info("list cache disabled: function mode without REDIS_ADDR")
			return nil
		}
		return cache.New(a.Config.CacheTTL())
	}

	r := cache.NewRedis(cache.RedisConfig{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
		TTL:      a.Config.CacheTTL(),
	}, a.Log)

	if err := r.Ping(ctx); err != nil {
		a.Log.Warn("redis unreachable; list cache will miss", "addr", a.Config.RedisAddr, "err", err)
	}

	a.closers = append(a.closers, func(context.Context) error { return r.Close() })

	return r
}

// SeedFilms writes count demo films through the configured store.
func (a *App) SeedFilms(ctx context.Context, count int, seed int64) (int, error) {
	n, err := db.SeedFilms(ctx, a.Films, count, newRand(seed))
	if n > 0 && a.Cache != nil {
		a.Cache.Invalidate(ctx, cache.FilmsListPrefix)
	}
	return n, err
}

func (a *App) Handler() http.Handler {
	return a.Router
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

var (
	_ FilmsStore = (*memory.FilmsRepo)(nil)
	_ FilmsStore = (*postgres.FilmsRepo)(nil)
	_ FilmsStore = (*sqlite.FilmsRepo)(nil)
)
