package cache

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/favfilms/internal/domain/film"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c := New(10 * time.Second)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", []byte("v"))

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(10 * time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted on read")
}

func TestCache_InvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	c := New(time.Minute)

	c.Set(ctx, FilmsListPrefix+"a", []byte("1"))
	c.Set(ctx, FilmsListPrefix+"b", []byte("2"))
	c.Set(ctx, "other", []byte("3"))

	c.Invalidate(ctx, FilmsListPrefix)

	_, ok := c.Get(ctx, FilmsListPrefix+"a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "other")
	assert.True(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestNew_DefaultTTL(t *testing.T) {
	assert.Equal(t, defaultTTL, New(0).ttl)
}

func TestCache_BoundedSize(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c := New(time.Minute)
	c.now = func() time.Time { return now }

	for i := 0; i < maxEntries; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"))
	}
	require.Equal(t, maxEntries, c.Len())

	// overwriting an existing key never evicts
	c.Set(ctx, "k0", []byte("w"))
	assert.Equal(t, maxEntries, c.Len())

	c.Set(ctx, "fresh", []byte("v"))
	assert.Equal(t, maxEntries, c.Len())
	_, ok := c.Get(ctx, "fresh")
	assert.True(t, ok)

	// once everything has expired a single Set sweeps the map
	now = now.Add(2 * time.Minute)
	c.Set(ctx, "after", []byte("v"))
	assert.Equal(t, 1, c.Len())
}

func TestBuildFilmsListKey(t *testing.T) {
	tv := film.TypeTVShow
	genre := "  Drama "
	q := "Crown"

	assert.Equal(t, "films:list:v2:page=1", BuildFilmsListKey(1, film.ListFilter{}))
	assert.Equal(t,
		"films:list:v2:genre=drama&page=2&q=crown&type=TV_Show",
		BuildFilmsListKey(2, film.ListFilter{Type: &tv, Genre: &genre, Query: &q}),
	)
}

func TestBuildFilmsListKey_FiltersDoNotCollide(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name string
		a, b film.ListFilter
	}{
		{"separator inside genre", film.ListFilter{Genre: str("x:q=y"), Query: str("")}, film.ListFilter{Genre: str("x"), Query: str("y:q=")}},
		{"ampersand inside query", film.ListFilter{Query: str("a&genre=b")}, film.ListFilter{Query: str("a"), Genre: str("b")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, BuildFilmsListKey(1, tt.a), BuildFilmsListKey(1, tt.b))
			assert.True(t, strings.HasPrefix(BuildFilmsListKey(1, tt.a), FilmsListPrefix))
		})
	}
}

func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	r := NewRedis(RedisConfig{Addr: addr, KeyPrefix: "favfilms-test:", TTL: time.Minute}, nil)
	defer r.Close()

	require.NoError(t, r.Ping(ctx))

	r.Set(ctx, FilmsListPrefix+"x", []byte("payload"))
	got, ok := r.Get(ctx, FilmsListPrefix+"x")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	r.Invalidate(ctx, FilmsListPrefix)
	_, ok = r.Get(ctx, FilmsListPrefix+"x")
	assert.False(t, ok)
}

func TestRedis_UnreachableIsAMiss(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// nothing listens on port 1
	r := NewRedis(RedisConfig{Addr: "127.0.0.1:1"}, nil)
	defer r.Close()

	r.Set(ctx, "k", []byte("v"))
	_, ok := r.Get(ctx, "k")
	assert.False(t, ok)

	r.Invalidate(ctx, "k")
}
