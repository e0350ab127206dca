package cache

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/geocoder89/favfilms/internal/domain/film"
)

// FilmsListPrefix is shared by every cached list page so one invalidation
// drops them all.
const FilmsListPrefix = "films:list:"

// BuildFilmsListKey encodes the page and filters as a query string, so user
// supplied values cannot run into each other.
func BuildFilmsListKey(page int, f film.ListFilter) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))

	if f.Type != nil {
		v.Set("type", string(*f.Type))
	}
	if f.Genre != nil {
		v.Set("genre", strings.ToLower(strings.TrimSpace(*f.Genre)))
	}
	if f.Query != nil {
		v.Set("q", strings.ToLower(strings.TrimSpace(*f.Query)))
	}

	return FilmsListPrefix + "v2:" + v.Encode()
}
