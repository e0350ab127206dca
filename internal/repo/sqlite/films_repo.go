package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/favfilms/internal/domain/film"
	"github.com/geocoder89/favfilms/internal/observability"
)

const filmColumns = `id, title, type, director, budget, location, duration, year_or_time, genre, rating, description, created_at, updated_at`

type FilmsRepo struct {
	db   *sql.DB
	prom *observability.Prom
	now  func() time.Time
}

func NewFilmsRepo(db *sql.DB, prom *observability.Prom) *FilmsRepo {
	return &FilmsRepo{db: db, prom: prom, now: time.Now}
}

func (r *FilmsRepo) Create(ctx context.Context, req film.CreateRequest) (film.Entry, error) {
	now := formatTime(r.now())

	var e film.Entry
	err := r.prom.ObserveDB("films_create", func() error {
		var err error
		e, err = scanEntry(r.db.QueryRowContext(ctx,
			`INSERT INTO films (title, type, director, budget, location, duration, year_or_time, genre, rating, description, created_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
			RETURNING `+filmColumns,
			req.Title, string(req.Type), req.Director, req.Budget, req.Location, req.Duration, req.YearOrTime,
			req.Genre, req.Rating, req.Description, now, now,
		))
		return err
	})

	if err != nil {
		return film.Entry{}, err
	}
	return e, nil
}

func (r *FilmsRepo) GetByID(ctx context.Context, id int64) (film.Entry, error) {
	var e film.Entry
	err := r.prom.ObserveDB("films_get", func() error {
		var err error
		e, err = scanEntry(r.db.QueryRowContext(ctx, `SELECT `+filmColumns+` FROM films WHERE id = ?`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return film.Entry{}, film.ErrNotFound
		}
		return film.Entry{}, err
	}
	return e, nil
}

func (r *FilmsRepo) List(ctx context.Context, f film.ListFilter) ([]film.Entry, error) {
	var conds []string
	var args []interface{}

	if f.Type != nil {
		conds = append(conds, "type = ?")
		args = append(args, string(*f.Type))
	}

	if f.Genre != nil {
		conds = append(conds, "LOWER(genre) = LOWER(?)")
		args = append(args, *f.Genre)
	}

	if f.Query != nil {
		like := "%" + escapeLike(strings.ToLower(*f.Query)) + "%"
		conds = append(conds, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(director) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}

	query := `SELECT ` + filmColumns + ` FROM films`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id ASC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	output := make([]film.Entry, 0, f.Limit)

	err := r.prom.ObserveDB("films_list", func() error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			output = append(output, e)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return output, nil
}

// Update applies a partial update: NULL parameters keep the stored column.
// The fixed-width timestamp layout makes MAX compare chronologically.
func (r *FilmsRepo) Update(ctx context.Context, id int64, req film.UpdateRequest) (film.Entry, error) {
	var typ *string
	if req.Type != nil {
		s := string(*req.Type)
		typ = &s
	}

	var e film.Entry
	err := r.prom.ObserveDB("films_update", func() error {
		var err error
		e, err = scanEntry(r.db.QueryRowContext(ctx,
			`UPDATE films
				SET title = COALESCE(?, title),
						type = COALESCE(?, type),
						director = COALESCE(?, director),
						budget = COALESCE(?, budget),
						location = COALESCE(?, location),
						duration = COALESCE(?, duration),
						year_or_time = COALESCE(?, year_or_time),
						genre = COALESCE(?, genre),
						rating = COALESCE(?, rating),
						description = COALESCE(?, description),
						updated_at = MAX(?, updated_at)
			WHERE id = ?
			RETURNING `+filmColumns,
			req.Title, typ, req.Director, req.Budget, req.Location, req.Duration, req.YearOrTime,
			req.Genre, req.Rating, req.Description, formatTime(r.now()), id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return film.Entry{}, film.ErrNotFound
		}
		return film.Entry{}, err
	}
	return e, nil
}

func (r *FilmsRepo) Delete(ctx context.Context, id int64) error {
	return r.prom.ObserveDB("films_delete", func() error {
		res, err := r.db.ExecContext(ctx, `DELETE FROM films WHERE id = ?`, id)
		if err != nil {
			return err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return film.ErrNotFound
		}
		return nil
	})
}

func (r *FilmsRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (film.Entry, error) {
	var e film.Entry
	var typ, createdAt, updatedAt string

	err := row.Scan(
		&e.ID,
		&e.Title,
		&typ,
		&e.Director,
		&e.Budget,
		&e.Location,
		&e.Duration,
		&e.YearOrTime,
		&e.Genre,
		&e.Rating,
		&e.Description,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return film.Entry{}, err
	}

	e.Type = film.EntryType(typ)

	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return film.Entry{}, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return film.Entry{}, err
	}

	return e, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
