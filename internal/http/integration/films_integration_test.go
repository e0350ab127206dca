package integration__test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/geocoder89/favfilms/internal/app"
	"github.com/geocoder89/favfilms/internal/config"
	"github.com/geocoder89/favfilms/internal/db"
	"github.com/geocoder89/favfilms/internal/domain/film"
	"github.com/geocoder89/favfilms/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type backend struct {
	name string
	cfg  config.Config
}

func testConfig(driver string) config.Config {
	return config.Config{
		Env:                "test",
		Port:               8080,
		Mode:               config.ModeServer,
		DBDriver:           driver,
		SQLitePath:         ":memory:",
		AutoMigrate:        true,
		JWTSecret:          "test-secret-key",
		JWTTTLMinutes:      60,
		CacheTTLSeconds:    30,
		CORSAllowedOrigins: []string{"*"},
		MaxBodyBytes:       1 << 20,
	}
}

// backends returns every store the suite runs against. Postgres joins when
// TEST_DB_DSN is set.
func backends() []backend {
	out := []backend{
		{name: "memory", cfg: testConfig(config.DriverMemory)},
		{name: "sqlite", cfg: testConfig(config.DriverSQLite)},
	}

	if dsn := os.Getenv("TEST_DB_DSN"); dsn != "" {
		cfg := testConfig(config.DriverPostgres)
		cfg.DBURL = dsn
		out = append(out, backend{name: "postgres", cfg: cfg})
	}

	return out
}

func setupApp(t *testing.T, b backend) *app.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	a, err := app.New(ctx, b.cfg, logger, app.WithMaxConns(2), app.WithoutTracing())
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(ctx) })

	if b.cfg.DBDriver == config.DriverPostgres {
		resetPostgres(t, b.cfg.DBURL)
	}

	return a
}

func resetPostgres(t *testing.T, dsn string) {
	t.Helper()

	pool, err := db.NewPool(context.Background(), dsn, 1)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	_, err = pool.Exec(context.Background(), `TRUNCATE films, users RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// helpers

func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
	return out
}

type authResp struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type listResp struct {
	Data    []film.Entry `json:"data"`
	HasMore bool         `json:"hasMore"`
}

func signup(t *testing.T, h http.Handler, name, email, password string) string {
	t.Helper()

	w := do(t, h, http.MethodPost, "/auth/signup", "", map[string]string{"name": name, "email": email, "password": password})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup got %d, body=%s", w.Code, w.Body.String())
	}
	return decode[authResp](t, w).Token
}

func duneBody() map[string]interface{} {
	return map[string]interface{}{
		"title":        "Dune",
		"type":         "Movie",
		"director":     "Villeneuve",
		"budget":       165000000,
		"location":     "Jordan",
		"duration":     "155 min",
		"year_or_time": 2021,
	}
}

func TestScenario_SignupCreateList(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			h := setupApp(t, b).Handler()

			token := signup(t, h, "Ann", "ann@x.com", "pw123456")
			if token == "" {
				t.Fatal("expected a token")
			}

			w := do(t, h, http.MethodPost, "/films", "", duneBody())
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("no auth header got %d, want 401", w.Code)
			}
			if msg := decode[map[string]interface{}](t, w)["message"]; msg != "No token provided" {
				t.Fatalf("message got %v", msg)
			}

			w = do(t, h, http.MethodPost, "/films", token, duneBody())
			if w.Code != http.StatusCreated {
				t.Fatalf("create got %d, body=%s", w.Code, w.Body.String())
			}
			created := decode[film.Entry](t, w)
			if created.ID <= 0 {
				t.Fatalf("expected an assigned id, got %d", created.ID)
			}

			w = do(t, h, http.MethodGet, "/films?page=1", token, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("list got %d, body=%s", w.Code, w.Body.String())
			}

			page := decode[listResp](t, w)
			if page.HasMore {
				t.Fatal("expected hasMore=false")
			}
			found := false
			for _, e := range page.Data {
				if e.Title == "Dune" && e.ID == created.ID {
					found = true
				}
			}
			if !found {
				t.Fatalf("Dune missing from %+v", page.Data)
			}
		})
	}
}

func TestLoginAfterSignup(t *testing.T) {
	pairs := []struct{ email, password string }{
		{"ann@x.com", "pw123456"},
		{"Bob.Smith@Example.org", "correct horse battery staple"},
		{"c+tag@x.io", "12345678"},
	}

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			a := setupApp(t, b)
			h := a.Handler()

			for _, p := range pairs {
				signup(t, h, "User", p.email, p.password)

				w := do(t, h, http.MethodPost, "/auth/login", "", map[string]string{"email": p.email, "password": p.password})
				if w.Code != http.StatusOK {
					t.Fatalf("login %s got %d, body=%s", p.email, w.Code, w.Body.String())
				}

				subj, err := a.Tokens.Verify(decode[authResp](t, w).Token)
				if err != nil {
					t.Fatalf("verify: %v", err)
				}
				if subj.Email != user.NormalizeEmail(p.email) {
					t.Fatalf("subject email got %q, want %q", subj.Email, user.NormalizeEmail(p.email))
				}
			}

			w := do(t, h, http.MethodPost, "/auth/signup", "", map[string]string{"name": "Dup", "email": "ANN@x.com", "password": "pw123456"})
			if w.Code != http.StatusBadRequest {
				t.Fatalf("duplicate email got %d, want 400", w.Code)
			}
		})
	}
}

func TestPaginationDeleteAndUpdate(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			h := setupApp(t, b).Handler()
			token := signup(t, h, "Ann", "ann@x.com", "pw123456")

			var ids []int64
			for i := 1; i <= 25; i++ {
				body := duneBody()
				body["title"] = fmt.Sprintf("Film #%d", i)
				w := do(t, h, http.MethodPost, "/films", token, body)
				if w.Code != http.StatusCreated {
					t.Fatalf("create %d got %d", i, w.Code)
				}
				ids = append(ids, decode[film.Entry](t, w).ID)
			}

			wantPages := []struct {
				page    int
				n       int
				hasMore bool
			}{
				{1, 10, true},
				{3, 5, false},
				{4, 0, false},
			}
			for _, wp := range wantPages {
				w := do(t, h, http.MethodGet, fmt.Sprintf("/films?page=%d", wp.page), token, nil)
				got := decode[listResp](t, w)
				if len(got.Data) != wp.n || got.HasMore != wp.hasMore {
					t.Fatalf("page %d: got %d rows hasMore=%v, want %d/%v", wp.page, len(got.Data), got.HasMore, wp.n, wp.hasMore)
				}
			}

			// partial update round trip
			first := ids[0]
			before := decode[film.Entry](t, do(t, h, http.MethodGet, fmt.Sprintf("/films/%d", first), token, nil))

			w := do(t, h, http.MethodPut, fmt.Sprintf("/films/%d", first), token, map[string]string{"title": "X"})
			if w.Code != http.StatusOK {
				t.Fatalf("update got %d, body=%s", w.Code, w.Body.String())
			}

			after := decode[film.Entry](t, do(t, h, http.MethodGet, fmt.Sprintf("/films/%d", first), token, nil))
			if after.Title != "X" {
				t.Fatalf("title got %q", after.Title)
			}
			after.Title = before.Title
			after.UpdatedAt = before.UpdatedAt
			if !after.CreatedAt.Equal(before.CreatedAt) {
				t.Fatalf("createdAt changed: %v -> %v", before.CreatedAt, after.CreatedAt)
			}
			after.CreatedAt = before.CreatedAt
			if !reflect.DeepEqual(after, before) {
				t.Fatalf("other fields changed:\nbefore %+v\nafter  %+v", before, after)
			}

			// the list cache must reflect the update
			page1 := decode[listResp](t, do(t, h, http.MethodGet, "/films?page=1", token, nil))
			if page1.Data[0].Title != "X" {
				t.Fatalf("list served a stale page: %q", page1.Data[0].Title)
			}

			// delete is not idempotent in status
			path := fmt.Sprintf("/films/%d", ids[1])
			if w := do(t, h, http.MethodDelete, path, token, nil); w.Code != http.StatusOK {
				t.Fatalf("first delete got %d", w.Code)
			}
			if w := do(t, h, http.MethodDelete, path, token, nil); w.Code != http.StatusNotFound {
				t.Fatalf("second delete got %d", w.Code)
			}
		})
	}
}
