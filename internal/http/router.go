package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/favfilms/internal/auth"
	"github.com/geocoder89/favfilms/internal/cache"
	"github.com/geocoder89/favfilms/internal/http/handlers"
	"github.com/geocoder89/favfilms/internal/http/middlewares"
	"github.com/geocoder89/favfilms/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Log    *slog.Logger
	Env    string
	Films  handlers.FilmsStore
	Users  handlers.UserStore
	Tokens *auth.Manager
	// optional
	Cache              cache.Store
	Prom               *observability.Prom
	Ping               func(ctx context.Context) error
	Tracing            bool
	CORSAllowedOrigins []string
	MaxBodyBytes       int64
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" && d.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())

	if d.Tracing {
		r.Use(otelgin.Middleware(observability.ServiceName))
	}

	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSAllowedOrigins))

	// body checks run per group, after the auth gate on protected routes
	body := []gin.HandlerFunc{middlewares.MaxBodyBytes(d.MaxBodyBytes), middlewares.RequireJSON()}

	// health
	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Prom != nil {
		r.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)
	r.GET("/docs/openapi.json", handlers.OpenAPIJSON)

	gate := middlewares.NewAuthMiddleware(d.Tokens)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens, d.Log)

	var filmsMetrics handlers.FilmsMetrics
	if d.Prom != nil {
		filmsMetrics = d.Prom
		authHandler.WithMetrics(d.Prom)
	}
	filmsHandler := handlers.NewFilmsHandler(d.Films, d.Cache, d.Log, filmsMetrics)

	authGroup := r.Group("/auth")
	authGroup.GET("/me", gate.RequireAuth(), authHandler.Me)

	credentials := authGroup.Group("", body...)
	credentials.POST("/signup", authHandler.SignUp)
	credentials.POST("/login", authHandler.Login)

	films := r.Group("/films", gate.RequireAuth())
	films.Use(body...)
	films.GET("", filmsHandler.ListFilms)
	films.POST("", filmsHandler.CreateFilm)
	films.GET("/:id", filmsHandler.GetFilm)
	films.PUT("/:id", filmsHandler.UpdateFilm)
	films.PATCH("/:id", filmsHandler.UpdateFilm)
	films.DELETE("/:id", filmsHandler.DeleteFilm)

	return r
}
