package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/geocoder89/favfilms/internal/domain/film"
)

var (
	// ErrBusy is returned when Next is called while a fetch is in flight.
	ErrBusy        = errors.New("page fetch already in progress")
	ErrNoMorePages = errors.New("no more pages")
)

// Pager walks the film list one page at a time, like a "load more" button.
// Overlapping calls are refused rather than queued or cancelled.
type Pager struct {
	client   *Client
	inFlight atomic.Bool

	mu      sync.Mutex
	next    int
	hasMore bool
}

func NewPager(c *Client) *Pager {
	return &Pager{client: c, next: 1, hasMore: true}
}

func (p *Pager) Next(ctx context.Context) ([]film.Entry, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.inFlight.Store(false)

	p.mu.Lock()
	page, more := p.next, p.hasMore
	p.mu.Unlock()

	if !more {
		return nil, ErrNoMorePages
	}

	res, err := p.client.ListFilms(ctx, page)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.next = page + 1
	p.hasMore = res.HasMore
	p.mu.Unlock()

	return res.Data, nil
}

func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Reset starts again from the first page, e.g. after a create or delete.
func (p *Pager) Reset() {
	p.mu.Lock()
	p.next, p.hasMore = 1, true
	p.mu.Unlock()
}
