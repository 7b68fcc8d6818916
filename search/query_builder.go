package search

import (
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-advocate-search/advocate"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// textColumns are matched by case-insensitive substring.
var textColumns = []string{
	advocate.ColumnFirstName,
	advocate.ColumnLastName,
	advocate.ColumnCity,
	advocate.ColumnDegree,
}

// castColumns are not text in the store and are matched against their
// serialized form.
var castColumns = []string{
	advocate.ColumnPhoneNumber,
	advocate.ColumnSpecialties,
}

// maxExactInteger bounds the years clause to integers a float64 represents exactly.
const maxExactInteger = 1 << 53

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Predicate selects advocates. The zero value matches every record.
type Predicate struct {
	text  string
	years *int
}

// MatchAll returns the predicate used when no search text is given.
func MatchAll() Predicate {
	return Predicate{}
}

// BuildPredicate returns the predicate for sanitized search text. A record
// matches when the text is a case-insensitive substring of any text field,
// of the phone number or of the serialized specialties, or, when the text is
// a whole number, when years of experience equals it. Empty text matches all.
func BuildPredicate(sanitized string) Predicate {
	if sanitized == "" {
		return MatchAll()
	}
	p := Predicate{text: sanitized}
	if n, ok := parseWholeNumber(sanitized); ok {
		p.years = &n
	}
	return p
}

// Text returns the search text, or "" for MatchAll.
func (p Predicate) Text() string {
	return p.text
}

// IsMatchAll reports whether the predicate selects every record.
func (p Predicate) IsMatchAll() bool {
	return p.text == ""
}

// Years returns the years of experience the predicate also matches exactly.
func (p Predicate) Years() (int, bool) {
	if p.years == nil {
		return 0, false
	}
	return *p.years, true
}

// Filter applies the predicate's WHERE clause to q.
func (p Predicate) Filter(q *bun.SelectQuery) *bun.SelectQuery {
	if p.IsMatchAll() {
		return q
	}

	pattern := "%" + likeEscaper.Replace(strings.ToLower(p.text)) + "%"
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, col := range textColumns {
			q = q.WhereOr(`LOWER(?) LIKE ? ESCAPE '\'`, bun.Ident(col), pattern)
		}
		for _, col := range castColumns {
			q = q.WhereOr(`LOWER(CAST(? AS TEXT)) LIKE ? ESCAPE '\'`, bun.Ident(col), pattern)
		}
		if p.years != nil {
			q = q.WhereOr("? = ?", bun.Ident(advocate.ColumnYearsOfExperience), *p.years)
		}
		return q
	})
}

// Rows returns the criteria selecting one page of matching records in a
// stable order. page and limit must already be normalized.
func (p Predicate) Rows(page, limit int) []repository.SelectCriteria {
	return []repository.SelectCriteria{
		p.Filter,
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order(
				advocate.ColumnLastName+" ASC",
				advocate.ColumnFirstName+" ASC",
				advocate.ColumnID+" ASC",
			)
		},
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Limit(limit).Offset((page - 1) * limit)
		},
	}
}

// Count returns the criteria counting matching records.
func (p Predicate) Count() []repository.SelectCriteria {
	return []repository.SelectCriteria{p.Filter}
}

// parseWholeNumber accepts text that parses entirely as a finite number with
// no fractional part.
func parseWholeNumber(s string) (int, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > maxExactInteger {
		return 0, false
	}
	return int(f), true
}
