// Package pagination turns page/limit query parameters into store bounds and
// builds the first/previous/next/last navigation links for list responses.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wlcham/notes-server/internal/core/domain"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	// MaxLimit caps the page size regardless of what the client asks for.
	MaxLimit = 10
)

// Params is a validated page request.
type Params struct {
	Page  int
	Limit int
}

// Default returns the params used when the client sends none.
func Default() Params {
	return Params{Page: DefaultPage, Limit: DefaultLimit}
}

// Skip is the number of matching items before the requested page.
func (p Params) Skip() int {
	return (p.Page - 1) * p.Limit
}

// Parse validates raw page and limit values. Empty values fall back to the
// defaults; anything that is not a positive integer is a validation error.
func Parse(page, limit string) (Params, error) {
	p := Default()
	var ve domain.ValidationError

	if page != "" {
		n, err := strconv.Atoi(strings.TrimSpace(page))
		if err != nil || n < 1 {
			ve.Add("page", "Page must be a positive integer")
		} else {
			p.Page = n
		}
	}
	if limit != "" {
		n, err := strconv.Atoi(strings.TrimSpace(limit))
		if err != nil || n < 1 {
			ve.Add("limit", "Limit must be a positive integer")
		} else {
			p.Limit = min(n, MaxLimit)
		}
	}

	if err := ve.OrNil(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// TotalPages returns ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Links holds relative navigation URLs. Directions that do not apply are
// empty strings.
type Links struct {
	First    string `json:"first"`
	Previous string `json:"previous"`
	Next     string `json:"next"`
	Last     string `json:"last"`
}

// BuildLinks derives navigation links from the request URI by rewriting its
// page and limit query parameters. An empty result set still links to page 1
// as its last page.
func BuildLinks(requestURI string, page, totalPages, limit int) Links {
	u, err := url.Parse(requestURI)
	if err != nil {
		u = &url.URL{Path: requestURI}
	}
	at := func(n int) string {
		ref := *u
		q := ref.Query()
		q.Set("page", strconv.Itoa(n))
		q.Set("limit", strconv.Itoa(limit))
		ref.RawQuery = q.Encode()
		return ref.String()
	}

	links := Links{
		First: at(1),
		Last:  at(max(totalPages, 1)),
	}
	if page > 1 {
		links.Previous = at(page - 1)
	}
	if page < totalPages {
		links.Next = at(page + 1)
	}
	return links
}

// Header renders the links as an RFC 5988 Link header value. Every relation
// is present; inapplicable ones carry an empty target.
func (l Links) Header() string {
	return strings.Join([]string{
		fmt.Sprintf(`<%s>; rel="first"`, l.First),
		fmt.Sprintf(`<%s>; rel="previous"`, l.Previous),
		fmt.Sprintf(`<%s>; rel="next"`, l.Next),
		fmt.Sprintf(`<%s>; rel="last"`, l.Last),
	}, ", ")
}
