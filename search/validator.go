package search

import (
	"regexp"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxQueryLength is the longest accepted search query, in characters.
const MaxQueryLength = 100

const (
	statementKeywords = `union|select|insert|update|delete|drop|create|alter|exec|execute|truncate|grant|revoke|merge`
	clauseKeywords    = `from|where|into|table|database|set|values`
)

// denyList matches input associated with SQL or script injection attempts.
// Matching is case-insensitive and spans line breaks.
var denyList = []*regexp.Regexp{
	regexp.MustCompile(`(?is)\b(` + statementKeywords + `)\b.*\b(` + clauseKeywords + `)\b`),
	regexp.MustCompile(`--|/\*|\*/`),
	regexp.MustCompile(`(?i);\s*(` + statementKeywords + `)\b`),
	regexp.MustCompile(`(?i)<\s*/?\s*script`),
	regexp.MustCompile(`(?i)(javascript|vbscript)\s*:`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	regexp.MustCompile(`(?i)<\s*[a-z!/?]|>`),
}

var (
	errEmpty        = validation.NewError("validation_search_empty", ReasonEmpty)
	errInvalidChars = validation.NewError("validation_search_invalid_chars", ReasonInvalidChars)
)

var queryRules = []validation.Rule{
	validation.By(notBlank),
	validation.RuneLength(0, MaxQueryLength).Error(ReasonTooLong),
	validation.By(notDenied),
}

// ValidateQuery checks raw search text and returns its sanitized form.
// Every rejection is a ValidationError carrying a client safe reason.
func ValidateQuery(raw string) (string, error) {
	if err := validation.Validate(raw, queryRules...); err != nil {
		return "", ValidationError(err.Error())
	}

	sanitized := SanitizeQuery(raw)
	if sanitized == "" {
		return "", ValidationError(ReasonOnlyInvalid)
	}

	// Stripping control characters can join fragments of a denied pattern.
	if isDenied(sanitized) {
		return "", ValidationError(ReasonInvalidChars)
	}
	return sanitized, nil
}

// SanitizeQuery strips control characters, truncates to MaxQueryLength
// characters, collapses whitespace runs into a single space and trims.
func SanitizeQuery(raw string) string {
	stripped := strings.Map(func(r rune) rune {
		if isControl(r) {
			return -1
		}
		return r
	}, raw)

	if utf8.RuneCountInString(stripped) > MaxQueryLength {
		stripped = string([]rune(stripped)[:MaxQueryLength])
	}

	return strings.Join(strings.Fields(stripped), " ")
}

// isControl reports C0, DEL and C1 control characters.
func isControl(r rune) bool {
	return r <= 0x1F || (r >= 0x7F && r <= 0x9F)
}

// isDenied checks s as given and with control characters read as spaces, so
// a keyword pair split by a control character is still caught.
func isDenied(s string) bool {
	spaced := strings.Map(func(r rune) rune {
		if isControl(r) {
			return ' '
		}
		return r
	}, s)
	for _, re := range denyList {
		if re.MatchString(s) || re.MatchString(spaced) {
			return true
		}
	}
	return false
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errEmpty
	}
	return nil
}

func notDenied(value any) error {
	s, _ := value.(string)
	if isDenied(s) {
		return errInvalidChars
	}
	return nil
}
