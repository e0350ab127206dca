package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/favfilms/internal/domain/film"
)

type FilmsRepo struct {
	mu     sync.RWMutex
	items  map[int64]film.Entry
	nextID int64
	now    func() time.Time
}

func NewFilmsRepo() *FilmsRepo {
	return &FilmsRepo{
		items: make(map[int64]film.Entry),
		now:   time.Now,
	}
}

func (r *FilmsRepo) Create(ctx context.Context, req film.CreateRequest) (film.Entry, error) {
	e := film.NewFromCreateRequest(req, r.now().UTC())

	r.mu.Lock()
	r.nextID++
	e.ID = r.nextID
	r.items[e.ID] = e
	r.mu.Unlock()

	return e, nil
}

func (r *FilmsRepo) GetByID(ctx context.Context, id int64) (film.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[id]
	if !ok {
		return film.Entry{}, film.ErrNotFound
	}
	return e, nil
}

// List returns entries matching f in ascending id order.
func (r *FilmsRepo) List(ctx context.Context, f film.ListFilter) ([]film.Entry, error) {
	r.mu.RLock()
	matched := make([]film.Entry, 0, len(r.items))
	for _, e := range r.items {
		if f.Matches(e) {
			matched = append(matched, e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if f.Offset >= len(matched) {
		return []film.Entry{}, nil
	}

	end := len(matched)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}

	return matched[f.Offset:end], nil
}

func (r *FilmsRepo) Update(ctx context.Context, id int64, req film.UpdateRequest) (film.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[id]
	if !ok {
		return film.Entry{}, film.ErrNotFound
	}

	e = e.Apply(req, r.now().UTC())
	r.items[id] = e

	return e, nil
}

func (r *FilmsRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return film.ErrNotFound
	}

	delete(r.items, id)
	return nil
}

// Ping always succeeds; it lets the memory store stand in for readiness checks.
func (r *FilmsRepo) Ping(ctx context.Context) error {
	return nil
}
