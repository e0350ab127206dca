package film

import "time"

// NewFromCreateRequest builds an entry without an ID; the store assigns it.
func NewFromCreateRequest(req CreateRequest, now time.Time) Entry {
	e := Entry{
		Title:       req.Title,
		Type:        req.Type,
		Director:    req.Director,
		Location:    req.Location,
		Duration:    req.Duration,
		Genre:       copyPtr(req.Genre),
		Rating:      copyPtr(req.Rating),
		Description: copyPtr(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.Budget != nil {
		e.Budget = *req.Budget
	}
	if req.YearOrTime != nil {
		e.YearOrTime = *req.YearOrTime
	}

	return e
}
