package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geocoder89/favfilms/internal/config"
	"github.com/geocoder89/favfilms/internal/domain/film"
	"github.com/geocoder89/favfilms/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(driver string) config.Config {
	return config.Config{
		Env:                "test",
		Port:               8080,
		Mode:               config.ModeServer,
		DBDriver:           driver,
		SQLitePath:         ":memory:",
		AutoMigrate:        true,
		JWTSecret:          "test-secret",
		JWTTTLMinutes:      60,
		CacheTTLSeconds:    30,
		CORSAllowedOrigins: []string{"*"},
		MaxBodyBytes:       1 << 20,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("mongo")
	_, err := New(context.Background(), cfg, quietLogger())
	assert.Error(t, err)
}

func TestNew_StoresPerDriver(t *testing.T) {
	for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()

			a, err := New(ctx, testConfig(driver), quietLogger())
			require.NoError(t, err)
			defer a.Close(ctx)

			n, err := a.SeedFilms(ctx, 12, 42)
			require.NoError(t, err)
			assert.Equal(t, 12, n)

			page2, err := a.Films.List(ctx, film.PageFilter(2))
			require.NoError(t, err)
			assert.Len(t, page2, 2)

			w := httptest.NewRecorder()
			a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, testConfig(config.DriverMemory), quietLogger())
	require.NoError(t, err)
	defer a.Close(ctx)

	// one request so the http counters have a sample
	a.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "favfilms_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func demoUser() user.User {
	return user.User{ID: "u-1", Name: "Ann", Email: "ann@x.com"}
}

func send(h http.Handler, method, target, token, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const duneBody = `{"title":"Dune","type":"Movie","director":"Villeneuve","budget":165000000,"location":"Jordan","duration":"155 min","year_or_time":2021,"genre":"Sci-Fi","rating":8}`

func TestFilmWritesWithoutTokenAre401BeforeBodyChecks(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(config.DriverMemory)
	cfg.MaxBodyBytes = 8

	a, err := New(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close(ctx)

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
	}{
		{"wrong content type", http.MethodPost, "text/plain", "Dune"},
		{"missing content type", http.MethodPut, "", duneBody},
		{"oversized body", http.MethodPost, "application/json", duneBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/films"
			if tt.method == http.MethodPut {
				target = "/films/1"
			}

			w := send(a.Handler(), tt.method, target, "", tt.contentType, tt.body)
			require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "No token provided")
		})
	}

	// with a token the body checks still apply
	token, err := a.Tokens.Issue(demoUser())
	require.NoError(t, err)
	w := send(a.Handler(), http.MethodPost, "/films", token, "text/plain", "Dune")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestFunctionInstancesSeeEachOthersWrites(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(config.DriverSQLite)
	cfg.Mode = config.ModeFunction
	cfg.SQLitePath = filepath.Join(t.TempDir(), "films.db")

	first, err := New(ctx, cfg, quietLogger(), WithMaxConns(2))
	require.NoError(t, err)
	defer first.Close(ctx)

	second, err := New(ctx, cfg, quietLogger(), WithMaxConns(2))
	require.NoError(t, err)
	defer second.Close(ctx)

	assert.Nil(t, first.Cache)
	assert.Nil(t, second.Cache)

	token, err := first.Tokens.Issue(demoUser())
	require.NoError(t, err)

	w := send(first.Handler(), http.MethodGet, "/films?page=1", token, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Dune")

	w = send(second.Handler(), http.MethodPost, "/films", token, "application/json", duneBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(first.Handler(), http.MethodGet, "/films?page=1", token, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dune")
}

func TestServerModeKeepsMemoryCache(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, testConfig(config.DriverMemory), quietLogger())
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.NotNil(t, a.Cache)
}
