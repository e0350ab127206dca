package observability

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/favfilms/internal/domain/film"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times fn under the logical op name. A missing row is an expected
// outcome and is recorded with status "no_rows" rather than as an error.
// Safe on a nil *Prom, so stores can be built without metrics in tests.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	start := time.Now()
	err := fn()

	status := dbStatus(err)
	if status == "error" {
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}
	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())

	return err
}

func dbStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows), errors.Is(err, film.ErrNotFound):
		return "no_rows"
	default:
		return "error"
	}
}

// sqliteCoder matches *sqlite.Error from modernc.org/sqlite.
type sqliteCoder interface {
	Code() int
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "23502", "23514":
			return "constraint"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	var liteErr sqliteCoder
	if errors.As(err, &liteErr) {
		// extended result codes keep the primary code in the low byte
		switch liteErr.Code() {
		case 2067, 1555:
			return "unique_violation"
		}
		switch liteErr.Code() & 0xff {
		case 5, 6:
			return "busy"
		case 19:
			return "constraint"
		default:
			return "sqlite_" + strconv.Itoa(liteErr.Code()&0xff)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}

	if strings.Contains(strings.ToLower(err.Error()), "connect") {
		return "connection"
	}

	return "unknown"
}
