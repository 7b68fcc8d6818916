package search

import (
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Pagination describes the page returned with a result set.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Paginate derives page metadata from a total count. limit must be at least 1.
func Paginate(total, page, limit int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Bounds clamps client supplied page and limit values.
type Bounds struct {
	DefaultLimit int `yaml:"default_limit" env:"SEARCH_DEFAULT_LIMIT" env-default:"10"`
	MinLimit     int `yaml:"min_limit" env:"SEARCH_MIN_LIMIT" env-default:"10"`
	MaxLimit     int `yaml:"max_limit" env:"SEARCH_MAX_LIMIT" env-default:"100"`
	MaxPage      int `yaml:"max_page" env:"SEARCH_MAX_PAGE" env-default:"120000"`
}

// DefaultBounds returns the directory defaults: limit 10 within [10, 100]
// and pages up to 120000.
func DefaultBounds() Bounds {
	return Bounds{
		DefaultLimit: 10,
		MinLimit:     10,
		MaxLimit:     100,
		MaxPage:      120000,
	}
}

// Validate checks that the bounds are usable.
func (b Bounds) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.MinLimit, validation.Required, validation.Min(1)),
		validation.Field(&b.MaxLimit, validation.Required, validation.Min(b.MinLimit)),
		validation.Field(&b.DefaultLimit, validation.Required, validation.Min(b.MinLimit), validation.Max(b.MaxLimit)),
		validation.Field(&b.MaxPage, validation.Required, validation.Min(1)),
	)
}

// Normalize clamps page to [1, MaxPage] and limit to [MinLimit, MaxLimit].
// A zero limit means "not given" and becomes DefaultLimit.
func (b Bounds) Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if b.MaxPage > 0 && page > b.MaxPage {
		page = b.MaxPage
	}

	if limit == 0 {
		limit = b.DefaultLimit
	}
	if limit < b.MinLimit {
		limit = b.MinLimit
	}
	if b.MaxLimit > 0 && limit > b.MaxLimit {
		limit = b.MaxLimit
	}
	if limit < 1 {
		limit = 1
	}
	return page, limit
}

// Parse reads page and limit from query string values. Missing or
// unparseable values fall back to the defaults before clamping.
func (b Bounds) Parse(pageRaw, limitRaw string) (int, int) {
	page, err := strconv.Atoi(strings.TrimSpace(pageRaw))
	if err != nil {
		page = 1
	}
	limit, err := strconv.Atoi(strings.TrimSpace(limitRaw))
	if err != nil {
		limit = 0
	}
	return b.Normalize(page, limit)
}
