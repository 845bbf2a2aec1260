// Package widget holds the embed contract of the chat widget: attribute
// validation, the panel URL, the embed snippet and the pages and scripts
// served to host sites.
package widget

import (
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Defaults and bounds applied by Normalize.
const (
	DefaultAccent      = "#25d366"
	DefaultPosition    = "bottom-right"
	DefaultWidth       = 360
	DefaultHeight      = 520
	DefaultZ           = "2147483000"
	DefaultPlaceholder = "send msg to AI support..."

	MinWidth, MaxWidth   = 240, 800
	MinHeight, MaxHeight = 320, 1000
	MinResize, MaxResize = 320, 900

	maxPlaceholder = 120
)

// Positions lists the accepted data-position values.
var Positions = []string{
	"bottom-right", "bottom-left",
	"top-right", "top-left",
	"middle-right", "middle-left",
}

var (
	hexColor  = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	rgbaColor = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})(\s*,\s*(0|1|0?\.\d+))?\s*\)$`)
	siteChars = regexp.MustCompile(`^[A-Za-z0-9_-]{0,64}$`)
	integer   = regexp.MustCompile(`^-?\d+$`)
	leadInt   = regexp.MustCompile(`^\s*[+-]?\d+`)
)

// ErrNoWidgetURL is returned when the panel URL is missing or not http(s).
var ErrNoWidgetURL = errors.New("widget url is missing or malformed")

// Attrs are the raw data-* attributes of the loader script tag.
type Attrs struct {
	Widget      string
	Endpoint    string
	Placeholder string
	Position    string
	Accent      string
	Site        string
	Width       string
	Height      string
	Z           string
}

// Config is a validated widget configuration.
type Config struct {
	Widget      string `json:"widget"`
	Endpoint    string `json:"endpoint"`
	Placeholder string `json:"placeholder"`
	Position    string `json:"position"`
	Accent      string `json:"accent"`
	Site        string `json:"site"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Z           string `json:"z"`
}

// Normalize validates and clamps every attribute, replacing invalid values
// with defaults. An unusable widget URL leaves Config.Widget empty.
func Normalize(a Attrs) Config {
	return Config{
		Widget:      httpURL(a.Widget),
		Endpoint:    httpURL(a.Endpoint),
		Placeholder: placeholder(a.Placeholder),
		Position:    position(a.Position),
		Accent:      Accent(a.Accent),
		Site:        Site(a.Site),
		Width:       dimension(a.Width, DefaultWidth, MinWidth, MaxWidth),
		Height:      dimension(a.Height, DefaultHeight, MinHeight, MaxHeight),
		Z:           zIndex(a.Z),
	}
}

// Accent returns s if it is a hex or rgb(a) color, else DefaultAccent.
func Accent(s string) string {
	s = strings.TrimSpace(s)
	if hexColor.MatchString(s) {
		return s
	}
	m := rgbaColor.FindStringSubmatch(s)
	if m == nil {
		return DefaultAccent
	}
	for _, ch := range m[1:4] {
		if n, _ := strconv.Atoi(ch); n > 255 {
			return DefaultAccent
		}
	}
	return s
}

// Site returns s if it only uses the site-id alphabet, else "".
func Site(s string) string {
	if siteChars.MatchString(s) {
		return s
	}
	return ""
}

// ClampResize bounds a panel height to the range the loader accepts from
// resize messages.
func ClampResize(h int) int {
	return clamp(h, MinResize, MaxResize)
}

// PanelURL is the iframe source carrying the panel settings.
func PanelURL(cfg Config) (string, error) {
	if cfg.Widget == "" {
		return "", ErrNoWidgetURL
	}
	u, err := url.Parse(cfg.Widget)
	if err != nil {
		return "", ErrNoWidgetURL
	}
	q := u.Query()
	q.Set("placeholder", cfg.Placeholder)
	q.Set("accent", cfg.Accent)
	q.Set("endpoint", cfg.Endpoint)
	if cfg.Site != "" {
		q.Set("site", cfg.Site)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func httpURL(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

func placeholder(s string) string {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n == 0 || n > maxPlaceholder {
		return DefaultPlaceholder
	}
	return s
}

func position(s string) string {
	for _, p := range Positions {
		if s == p {
			return s
		}
	}
	return DefaultPosition
}

// dimension parses a leading integer like the browser's parseInt does.
func dimension(s string, def, lo, hi int) int {
	m := leadInt.FindString(s)
	if m == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil || n <= 0 {
		return def
	}
	return clamp(n, lo, hi)
}

func zIndex(s string) string {
	s = strings.TrimSpace(s)
	if !integer.MatchString(s) {
		return DefaultZ
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return DefaultZ
	}
	return s
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
