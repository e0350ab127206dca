package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/geocoder89/favfilms/internal/domain/film"
	"github.com/geocoder89/favfilms/internal/domain/user"
	"github.com/geocoder89/favfilms/internal/security"
)

var seedGenres = []string{"Action", "Comedy", "Drama", "Horror", "Romance", "Sci-Fi", "Thriller", "Fantasy", "Adventure", "Documentary"}

type FilmCreator interface {
	Create(ctx context.Context, req film.CreateRequest) (film.Entry, error)
}

type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// SeedRequest builds the i-th (0-based) demo entry.
func SeedRequest(i int, rng *rand.Rand) film.CreateRequest {
	n := i + 1
	typ := film.TypeMovie
	if i%2 == 1 {
		typ = film.TypeTVShow
	}

	budget := float64(1_000_000 + i*50_000)
	year := 2000 + i%25
	genre := seedGenres[i%len(seedGenres)]
	rating := math.Round(rng.Float64()*100) / 10

	return film.CreateRequest{
		Title:      fmt.Sprintf("Film #%d", n),
		Type:       typ,
		Director:   fmt.Sprintf("Director %d", n),
		Budget:     &budget,
		Location:   fmt.Sprintf("Location %d", n),
		Duration:   fmt.Sprintf("%d min", 100+i),
		YearOrTime: &year,
		Genre:      &genre,
		Rating:     &rating,
	}
}

// SeedFilms inserts count demo entries and returns how many were written.
func SeedFilms(ctx context.Context, store FilmCreator, count int, rng *rand.Rand) (int, error) {
	for i := 0; i < count; i++ {
		if _, err := store.Create(ctx, SeedRequest(i, rng)); err != nil {
			return i, fmt.Errorf("seed film %d: %w", i+1, err)
		}
	}
	return count, nil
}

// EnsureUser creates the user unless the email is already registered.
func EnsureUser(ctx context.Context, store UserStore, name, email, password string) (user.User, error) {
	existing, err := store.GetByEmail(ctx, email)

	if err == nil {
		return existing, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, err
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return user.User{}, err
	}

	return store.Create(ctx, name, email, hash)
}
