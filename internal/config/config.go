package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ModeServer   = "server"
	ModeFunction = "function"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Env  string
	Port int
	Mode string

	DBDriver    string
	DBURL       string
	SQLitePath  string
	AutoMigrate bool

	JWTSecret     string
	JWTTTLMinutes int

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int

	CORSAllowedOrigins []string
	OTELEndpoint       string
	OTELSampleRatio    float64
	MaxBodyBytes       int64
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),
		Mode: strings.ToLower(getEnv("RUN_MODE", ModeServer)),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DBURL:       getEnv("DATABASE_URL", buildDBURL()),
		SQLitePath:  getEnv("SQLITE_PATH", "favfilms.db"),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", true),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTTTLMinutes: getEnvInt("JWT_TTL_MINUTES", 60),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 30),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		OTELEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTELSampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
	}
}

// Validate checks the values Load cannot default safely. In dev and test an
// empty JWT secret is replaced with a random per-process one.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeServer, ModeFunction:
	default:
		return fmt.Errorf("RUN_MODE must be %q or %q, got %q", ModeServer, ModeFunction, c.Mode)
	}

	switch c.DBDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be one of postgres, sqlite, memory, got %q", c.DBDriver)
	}

	if c.JWTSecret == "" {
		switch {
		case c.Mode == ModeFunction:
			return errors.New("JWT_SECRET is required in function mode")
		case c.Env != "dev" && c.Env != "test":
			return errors.New("JWT_SECRET is required outside dev")
		}

		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("generate dev JWT secret: %w", err)
		}
		c.JWTSecret = secret
	}

	if c.JWTTTLMinutes <= 0 {
		return fmt.Errorf("JWT_TTL_MINUTES must be positive, got %d", c.JWTTTLMinutes)
	}

	if c.Port <= 0 && c.Mode == ModeServer {
		return fmt.Errorf("PORT must be positive, got %d", c.Port)
	}

	return nil
}

func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func buildDBURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("DB_USER", "favfilms"), getEnv("DB_PASSWORD", "favfilms")),
		Host:     net.JoinHostPort(getEnv("DB_HOST", "127.0.0.1"), getEnv("DB_PORT", "5432")),
		Path:     "/" + getEnv("DB_NAME", "favfilms"),
		RawQuery: url.Values{"sslmode": {getEnv("DB_SSLMODE", "disable")}}.Encode(),
	}

	return u.String()
}

// randomSecret is used in dev when JWT_SECRET is unset. Tokens do not
// survive a restart.
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fallback
		}

		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
