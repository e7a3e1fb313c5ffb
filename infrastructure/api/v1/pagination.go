package v1

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/store"
	"github.com/ul-gh/hdscope/infrastructure/api/jsonapi"
)

// Page sizes for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based window into a list, read from the page and page_size
// query parameters.
type Page struct {
	Number int
	Size   int
}

// ParsePage reads the page window from the request. Missing or invalid
// values fall back to the first page of DefaultPageSize; sizes above
// MaxPageSize are capped.
func ParsePage(r *http.Request) Page {
	q := r.URL.Query()
	return Page{
		Number: positive(q.Get("page"), 1),
		Size:   min(positive(q.Get("page_size"), DefaultPageSize), MaxPageSize),
	}
}

func positive(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Offset is the number of rows before this page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// Option limits a capture query to this page.
func (p Page) Option() store.Option { return capture.WithPage(p.Size, p.Offset()) }

// Count is the number of pages needed for total rows.
func (p Page) Count(total int64) int {
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

// Meta describes the page and the list size.
func (p Page) Meta(total int64) *jsonapi.Meta {
	return &jsonapi.Meta{
		"page":        p.Number,
		"page_size":   p.Size,
		"total_count": total,
		"total_pages": p.Count(total),
	}
}

// Links points at the neighbouring pages, keeping the request's other
// query parameters.
func (p Page) Links(r *http.Request, total int64) *jsonapi.Links {
	at := func(n int) string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(n))
		q.Set("page_size", strconv.Itoa(p.Size))
		u := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
		return u.String()
	}

	last := p.Count(total)
	links := &jsonapi.Links{Self: at(p.Number), First: at(1)}
	if last > 0 {
		links.Last = at(last)
	}
	if p.Number > 1 {
		links.Prev = at(p.Number - 1)
	}
	if p.Number < last {
		links.Next = at(p.Number + 1)
	}
	return links
}
