package client_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/geocoder89/favfilms/internal/app"
	"github.com/geocoder89/favfilms/internal/client"
	"github.com/geocoder89/favfilms/internal/config"
	"github.com/geocoder89/favfilms/internal/domain/film"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*app.App, *httptest.Server) {
	t.Helper()

	cfg := config.Config{
		Env:                "test",
		Port:               8080,
		Mode:               config.ModeServer,
		DBDriver:           config.DriverMemory,
		JWTSecret:          "client-test-secret",
		JWTTTLMinutes:      60,
		CacheTTLSeconds:    30,
		CORSAllowedOrigins: []string{"*"},
		MaxBodyBytes:       1 << 20,
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), app.WithoutTracing())
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close(ctx)
	})

	return a, srv
}

func ptr[T any](v T) *T { return &v }

func sampleFilm(title string) film.CreateRequest {
	return film.CreateRequest{
		Title:      title,
		Type:       film.TypeMovie,
		Director:   "Denis Villeneuve",
		Budget:     ptr(165000000.0),
		Location:   "Jordan",
		Duration:   "155 min",
		YearOrTime: ptr(2021),
	}
}

func TestClient_SignupCreateUpdateDelete(t *testing.T) {
	_, srv := newServer(t)
	ctx := context.Background()

	c := client.New(srv.URL, nil)

	res, err := c.Signup(ctx, "Ann", "ann@x.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, res.Token, c.Session().Token())
	assert.Equal(t, "ann@x.com", c.Session().CurrentUser().Email)

	created, err := c.CreateFilm(ctx, sampleFilm("Dune"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	updated, err := c.UpdateFilm(ctx, created.ID, film.UpdateRequest{Title: ptr("Dune: Part One")})
	require.NoError(t, err)
	assert.Equal(t, "Dune: Part One", updated.Title)
	assert.Equal(t, created.Director, updated.Director)

	got, err := c.GetFilm(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Title, got.Title)

	page, err := c.ListFilms(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.False(t, page.HasMore)

	require.NoError(t, c.DeleteFilm(ctx, created.ID))

	err = c.DeleteFilm(ctx, created.ID)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found", apiErr.Code)
}

func TestClient_LoginAfterLogout(t *testing.T) {
	_, srv := newServer(t)
	ctx := context.Background()

	c := client.New(srv.URL, nil)
	_, err := c.Signup(ctx, "Ann", "ann@x.com", "password123")
	require.NoError(t, err)

	require.NoError(t, c.Logout())
	assert.Empty(t, c.Session().Token())

	_, err = c.ListFilms(ctx, 1)
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	res, err := c.Login(ctx, "ANN@x.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "Ann", res.User.Name)

	_, err = c.ListFilms(ctx, 1)
	assert.NoError(t, err)
}

func TestClient_UnauthorizedClearsToken(t *testing.T) {
	_, srv := newServer(t)
	ctx := context.Background()

	session := client.NewSession(&client.MemoryStore{})
	require.NoError(t, session.Save("forged.token.value"))

	c := client.New(srv.URL, session)

	_, err := c.ListFilms(ctx, 1)
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Empty(t, session.Token())

	_, err = c.Login(ctx, "nobody@x.com", "password123")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestClient_ValidationError(t *testing.T) {
	_, srv := newServer(t)
	ctx := context.Background()

	c := client.New(srv.URL, nil)
	_, err := c.Signup(ctx, "Ann", "ann@x.com", "password123")
	require.NoError(t, err)

	bad := sampleFilm("")
	_, err = c.CreateFilm(ctx, bad)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestPager_WalksAllPages(t *testing.T) {
	a, srv := newServer(t)
	ctx := context.Background()

	_, err := a.SeedFilms(ctx, 25, 7)
	require.NoError(t, err)

	c := client.New(srv.URL, nil)
	_, err = c.Signup(ctx, "Ann", "ann@x.com", "password123")
	require.NoError(t, err)

	p := client.NewPager(c)

	var sizes []int
	var lastID int64
	for p.HasMore() {
		entries, err := p.Next(ctx)
		require.NoError(t, err)
		sizes = append(sizes, len(entries))

		for _, e := range entries {
			assert.Greater(t, e.ID, lastID, "ids must ascend across pages")
			lastID = e.ID
		}
	}

	assert.Equal(t, []int{10, 10, 5}, sizes)

	_, err = p.Next(ctx)
	assert.ErrorIs(t, err, client.ErrNoMorePages)

	p.Reset()
	assert.True(t, p.HasMore())
}

func TestPager_RefusesOverlappingFetch(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[],"hasMore":false,"page":1,"pageSize":10}`)
	}))
	defer srv.Close()

	p := client.NewPager(client.New(srv.URL, nil))
	ctx := context.Background()

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = p.Next(ctx)
	}()

	<-entered
	_, err := p.Next(ctx)
	assert.True(t, errors.Is(err, client.ErrBusy))

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.False(t, p.HasMore())
}
