package pagination

import (
	"net/url"
	"strconv"
)

// Params holds the page window requested from the upstream.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewParams clamps page and limit to positive values.
func NewParams(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	return Params{Page: page, Limit: limit}
}

// Apply writes page and limit into q.
func (p Params) Apply(q url.Values) {
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.Limit))
}

// Next returns the params for the following page.
func (p Params) Next() Params {
	return Params{Page: p.Page + 1, Limit: p.Limit}
}

// Metadata is the paging block the upstream attaches to list responses.
type Metadata struct {
	CurrentPage   int `json:"currentPage"`
	NumberOfPages int `json:"numberOfPages"`
	Limit         int `json:"limit"`
	NextPage      int `json:"nextPage,omitempty"`
	PrevPage      int `json:"prevPage,omitempty"`
}

// HasMore reports whether another page can be requested after a page that
// returned `returned` items. Upstream metadata wins when present; otherwise a
// full page is taken to mean more may follow.
func HasMore(meta *Metadata, returned, limit int) bool {
	if meta != nil && meta.NumberOfPages > 0 && meta.CurrentPage > 0 {
		return meta.CurrentPage < meta.NumberOfPages
	}
	return returned > 0 && returned >= limit
}
