package knowledge

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Knowledge text bounds, in runes.
const (
	MinLength = 20
	MaxLength = 4000
)

var (
	ErrTooShort = errors.New("knowledge must be at least 20 characters")
	ErrTooLong  = errors.New("knowledge must be at most 4000 characters")
)

// Normalize prepares pasted knowledge for storage. HTML is converted to
// markdown so the model sees structure instead of tags.
func Normalize(text string) (string, error) {
	text = strings.TrimSpace(text)
	if looksLikeHTML(text) {
		md, err := htmltomarkdown.ConvertString(text)
		if err != nil {
			return "", fmt.Errorf("convert html: %w", err)
		}
		text = strings.TrimSpace(md)
	}

	n := utf8.RuneCountInString(text)
	switch {
	case n < MinLength:
		return "", ErrTooShort
	case n > MaxLength:
		return "", ErrTooLong
	}
	return text, nil
}

func looksLikeHTML(s string) bool {
	i := strings.IndexByte(s, '<')
	return i >= 0 && strings.IndexByte(s[i:], '>') > 0
}
