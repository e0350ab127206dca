package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/favfilms/internal/domain/film"
	"github.com/geocoder89/favfilms/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const filmColumns = `id, title, type, director, budget, location, duration, year_or_time, genre, rating, description, created_at, updated_at`

type FilmsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// prom may be nil.
func NewFilmsRepo(pool *pgxpool.Pool, prom *observability.Prom) *FilmsRepo {
	return &FilmsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *FilmsRepo) Create(ctx context.Context, req film.CreateRequest) (film.Entry, error) {
	var e film.Entry

	err := r.prom.ObserveDB("films_create", func() error {
		var err error
		e, err = scanEntry(r.pool.QueryRow(ctx,
			`INSERT INTO films (title, type, director, budget, location, duration, year_or_time, genre, rating, description)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING `+filmColumns,
			req.Title, string(req.Type), req.Director, req.Budget, req.Location, req.Duration, req.YearOrTime,
			req.Genre, req.Rating, req.Description,
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
		e, err = scanEntry(r.pool.QueryRow(ctx, `SELECT `+filmColumns+` FROM films WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return film.Entry{}, film.ErrNotFound
		}
		return film.Entry{}, err
	}

	return e, nil
}

func (r *FilmsRepo) List(ctx context.Context, f film.ListFilter) ([]film.Entry, error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	if f.Type != nil {
		conds = append(conds, fmt.Sprintf("type = $%d", argsPosition))
		args = append(args, string(*f.Type))
		argsPosition++
	}

	if f.Genre != nil {
		conds = append(conds, fmt.Sprintf("LOWER(genre) = LOWER($%d)", argsPosition))
		args = append(args, *f.Genre)
		argsPosition++
	}

	if f.Query != nil {
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR director ILIKE $%d)", argsPosition, argsPosition))
		args = append(args, "%"+escapeLike(*f.Query)+"%")
		argsPosition++
	}

	query := `SELECT ` + filmColumns + ` FROM films`

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// identity ids give insertion order, stable across pages
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, f.Limit, f.Offset)

	output := make([]film.Entry, 0, f.Limit)

	err := r.prom.ObserveDB("films_list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

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
func (r *FilmsRepo) Update(ctx context.Context, id int64, req film.UpdateRequest) (film.Entry, error) {
	var typ *string
	if req.Type != nil {
		s := string(*req.Type)
		typ = &s
	}

	var e film.Entry

	err := r.prom.ObserveDB("films_update", func() error {
		var err error
		e, err = scanEntry(r.pool.QueryRow(ctx,
			`UPDATE films
				SET title = COALESCE($2, title),
						type = COALESCE($3, type),
						director = COALESCE($4, director),
						budget = COALESCE($5, budget),
						location = COALESCE($6, location),
						duration = COALESCE($7, duration),
						year_or_time = COALESCE($8, year_or_time),
						genre = COALESCE($9, genre),
						rating = COALESCE($10, rating),
						description = COALESCE($11, description),
						updated_at = GREATEST(NOW(), updated_at)
			WHERE id = $1
			RETURNING `+filmColumns,
			id,
			req.Title,
			typ,
			req.Director,
			req.Budget,
			req.Location,
			req.Duration,
			req.YearOrTime,
			req.Genre,
			req.Rating,
			req.Description,
		))
		return err
	})

	if err != nil {
		// if there are no rows matching the id
		if errors.Is(err, pgx.ErrNoRows) {
			return film.Entry{}, film.ErrNotFound
		}
		return film.Entry{}, err
	}

	return e, nil
}

func (r *FilmsRepo) Delete(ctx context.Context, id int64) error {
	return r.prom.ObserveDB("films_delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM films WHERE id = $1`, id)

		if err != nil {
			return err
		}

		// if no rows were deleted as a result return a not found error
		if tag.RowsAffected() == 0 {
			return film.ErrNotFound
		}

		return nil
	})
}

func (r *FilmsRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanEntry(row pgx.Row) (film.Entry, error) {
	var e film.Entry
	var typ string

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
		&e.CreatedAt,
		&e.UpdatedAt,
	)

	if err != nil {
		return film.Entry{}, err
	}

	e.Type = film.EntryType(typ)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()

	return e, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
