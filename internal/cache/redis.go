package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// Redis is a Store shared by every API instance pointing at the same server.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedis(cfg RedisConfig, log *slog.Logger) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return NewRedisFromClient(rdb, cfg.KeyPrefix, cfg.TTL, log)
}

func NewRedisFromClient(rdb *redis.Client, keyPrefix string, ttl time.Duration, log *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if keyPrefix == "" {
		keyPrefix = "favfilms:"
	}
	if log == nil {
		log = slog.Default()
	}

	return &Redis{rdb: rdb, prefix: keyPrefix, ttl: ttl, log: log}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WarnContext(ctx, "cache get failed", "key", key, "err", err)
		}
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, val []byte) {
	if err := r.rdb.Set(ctx, r.prefix+key, val, r.ttl).Err(); err != nil {
		r.log.WarnContext(ctx, "cache set failed", "key", key, "err", err)
	}
}

// Invalidate deletes every key under prefix using SCAN so large keyspaces
// don't block the server.
func (r *Redis) Invalidate(ctx context.Context, prefix string) {
	iter := r.rdb.Scan(ctx, 0, r.prefix+prefix+"*", 100).Iterator()

	keys := make([]string, 0, 16)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		r.log.WarnContext(ctx, "cache scan failed", "prefix", prefix, "err", err)
		return
	}

	if len(keys) == 0 {
		return
	}

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		r.log.WarnContext(ctx, "cache invalidate failed", "prefix", prefix, "err", err)
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Redis)(nil)
)
