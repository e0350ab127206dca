package film

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// PageSize is the fixed number of entries returned per list page.
const PageSize = 10

var ErrNotFound = errors.New("film not found")

type EntryType string

const (
	TypeMovie  EntryType = "Movie"
	TypeTVShow EntryType = "TV_Show"
)

// ParseEntryType accepts the canonical names plus the spellings the web
// client has used over time ("TV Show", "TVShow", "tv_show").
func ParseEntryType(raw string) (EntryType, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)

	switch key {
	case "movie":
		return TypeMovie, true
	case "tvshow":
		return TypeTVShow, true
	default:
		return "", false
	}
}

// UnmarshalJSON canonicalizes known spellings. Unknown values are kept as-is
// so the oneof binding rule reports them.
func (t *EntryType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	if parsed, ok := ParseEntryType(s); ok {
		*t = parsed
		return nil
	}

	*t = EntryType(s)
	return nil
}

type Entry struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Type        EntryType `json:"type"`
	Director    string    `json:"director"`
	Budget      float64   `json:"budget"`
	Location    string    `json:"location"`
	Duration    string    `json:"duration"`
	YearOrTime  int       `json:"year_or_time"`
	Genre       *string   `json:"genre,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Type   *EntryType
	Genre  *string
	Query  *string
	Limit  int
	Offset int
}

// PageFilter turns a 1-based page number into limit/offset. Pages below 1 are
// treated as the first page.
func PageFilter(page int) ListFilter {
	if page < 1 {
		page = 1
	}

	return ListFilter{
		Limit:  PageSize,
		Offset: (page - 1) * PageSize,
	}
}

type CreateRequest struct {
	Title       string    `json:"title" binding:"required,max=255"`
	Type        EntryType `json:"type" binding:"required,oneof=Movie TV_Show"`
	Director    string    `json:"director" binding:"required,max=255"`
	Budget      *float64  `json:"budget" binding:"required,gte=0"`
	Location    string    `json:"location" binding:"required,max=255"`
	Duration    string    `json:"duration" binding:"required,max=64"`
	YearOrTime  *int      `json:"year_or_time" binding:"required,gte=1800,lte=9999"`
	Genre       *string   `json:"genre" binding:"omitempty,max=64"`
	Rating      *float64  `json:"rating" binding:"omitempty,gte=0,lte=10"`
	Description *string   `json:"description" binding:"omitempty,max=2000"`
}

// UpdateRequest is a partial update: nil fields keep their stored value.
type UpdateRequest struct {
	Title       *string    `json:"title" binding:"omitempty,max=255"`
	Type        *EntryType `json:"type" binding:"omitempty,oneof=Movie TV_Show"`
	Director    *string    `json:"director" binding:"omitempty,max=255"`
	Budget      *float64   `json:"budget" binding:"omitempty,gte=0"`
	Location    *string    `json:"location" binding:"omitempty,max=255"`
	Duration    *string    `json:"duration" binding:"omitempty,max=64"`
	YearOrTime  *int       `json:"year_or_time" binding:"omitempty,gte=1800,lte=9999"`
	Genre       *string    `json:"genre" binding:"omitempty,max=64"`
	Rating      *float64   `json:"rating" binding:"omitempty,gte=0,lte=10"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
}

type FieldIssue struct {
	Field   string
	Rule    string
	Message string
}

// ValidationError collects the checks binding tags cannot express, such as
// strings that are present but blank.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+" "+is.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Normalize trims surrounding whitespace from every string field.
func (r *CreateRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Director = strings.TrimSpace(r.Director)
	r.Location = strings.TrimSpace(r.Location)
	r.Duration = strings.TrimSpace(r.Duration)
	trimPtr(r.Genre)
	trimPtr(r.Description)
}

func (r CreateRequest) Validate() error {
	var issues []FieldIssue

	required := []struct {
		field string
		value string
	}{
		{"title", r.Title},
		{"director", r.Director},
		{"location", r.Location},
		{"duration", r.Duration},
	}

	for _, f := range required {
		if f.value == "" {
			issues = append(issues, FieldIssue{Field: f.field, Rule: "required", Message: "must not be blank"})
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func (r *UpdateRequest) Normalize() {
	trimPtr(r.Title)
	trimPtr(r.Director)
	trimPtr(r.Location)
	trimPtr(r.Duration)
	trimPtr(r.Genre)
	trimPtr(r.Description)
}

func (r UpdateRequest) Validate() error {
	var issues []FieldIssue

	present := []struct {
		field string
		value *string
	}{
		{"title", r.Title},
		{"director", r.Director},
		{"location", r.Location},
		{"duration", r.Duration},
	}

	for _, f := range present {
		if f.value != nil && *f.value == "" {
			issues = append(issues, FieldIssue{Field: f.field, Rule: "required", Message: "must not be blank"})
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// Apply overwrites the fields present in req and bumps UpdatedAt to now,
// never moving it backwards.
func (e Entry) Apply(req UpdateRequest, now time.Time) Entry {
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Type != nil {
		e.Type = *req.Type
	}
	if req.Director != nil {
		e.Director = *req.Director
	}
	if req.Budget != nil {
		e.Budget = *req.Budget
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if req.Duration != nil {
		e.Duration = *req.Duration
	}
	if req.YearOrTime != nil {
		e.YearOrTime = *req.YearOrTime
	}
	if req.Genre != nil {
		e.Genre = copyPtr(req.Genre)
	}
	if req.Rating != nil {
		e.Rating = copyPtr(req.Rating)
	}
	if req.Description != nil {
		e.Description = copyPtr(req.Description)
	}

	if now.After(e.UpdatedAt) {
		e.UpdatedAt = now
	}
	return e
}

// Matches reports whether e passes the Type/Genre/Query parts of f. Stores
// that filter in SQL do not use it.
func (f ListFilter) Matches(e Entry) bool {
	if f.Type != nil && e.Type != *f.Type {
		return false
	}

	if f.Genre != nil {
		if e.Genre == nil || !strings.EqualFold(*e.Genre, *f.Genre) {
			return false
		}
	}

	if f.Query != nil {
		q := strings.ToLower(*f.Query)
		if !strings.Contains(strings.ToLower(e.Title), q) && !strings.Contains(strings.ToLower(e.Director), q) {
			return false
		}
	}

	return true
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
