// Package sanitize strips markup from visitor text before it is used as a
// cache key or forwarded to a model provider.
package sanitize

import (
	"errors"
	"strings"
	"unicode"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
	"github.com/microcosm-cc/bluemonday"
)

// ErrEmpty is returned when nothing is left of a query after sanitizing.
var ErrEmpty = errors.New("query empty")

// strict allows no elements and no attributes. Content of script, style and
// similar elements is dropped along with the tags.
var strict = bluemonday.StrictPolicy()

// Text removes every tag and attribute and collapses whitespace in a single
// pass. Text content stays HTML-escaped, so Text(Text(x)) == Text(x).
func Text(s string) string {
	s = collapse(strings.Map(dropControl, s))
	return collapse(strict.Sanitize(s))
}

// Query sanitizes raw visitor input and rejects empty results.
func Query(raw string) (models.SanitizedQuery, error) {
	clean := Text(raw)
	if clean == "" {
		return models.SanitizedQuery{}, ErrEmpty
	}
	return models.SanitizedQuery{CleanText: clean}, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func dropControl(r rune) rune {
	if unicode.IsControl(r) && !unicode.IsSpace(r) {
		return -1
	}
	return r
}
