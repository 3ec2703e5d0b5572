package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewParams_Clamps(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: 1}, NewParams(0, -5))
	assert.Equal(t, Params{Page: 3, Limit: 12}, NewParams(3, 12))
}

func TestParams_ApplyAndNext(t *testing.T) {
	q := url.Values{}
	NewParams(1, 12).Next().Apply(q)
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "12", q.Get("limit"))
}

func TestHasMore(t *testing.T) {
	tests := []struct {
		name     string
		meta     *Metadata
		returned int
		want     bool
	}{
		{"full page without metadata", nil, 12, true},
		{"short page without metadata", nil, 7, false},
		{"empty page", nil, 0, false},
		{"metadata says more", &Metadata{CurrentPage: 1, NumberOfPages: 3}, 12, true},
		{"metadata overrides full last page", &Metadata{CurrentPage: 3, NumberOfPages: 3}, 12, false},
		{"zero metadata falls back", &Metadata{}, 12, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasMore(tt.meta, tt.returned, 12))
		})
	}
}
