// Package api exposes the favfilms router as a single serverless function.
// Each instance builds the app once, on its first request.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/geocoder89/favfilms/internal/app"
	"github.com/geocoder89/favfilms/internal/config"
	"github.com/geocoder89/favfilms/internal/http/handlers"
	"github.com/geocoder89/favfilms/internal/observability"
)

var (
	once    sync.Once
	handler http.Handler
	initErr error
)

func build() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// instances are short lived and numerous; keep each pool small
	a, err := app.New(ctx, cfg, log, app.WithMaxConns(2))
	if err != nil {
		log.Error("function init failed", "err", err)
		initErr = err
		return
	}

	handler = a.Handler()
}

func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(build)

	if initErr != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]handlers.APIError{
			"error": {Code: "internal_error", Message: "Service unavailable"},
		})
		return
	}

	handler.ServeHTTP(w, r)
}
