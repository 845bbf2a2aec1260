package widget

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*.js
var staticFS embed.FS

// LoaderPath is where the loader script is served.
const LoaderPath = "/js/ai-helper-loader.js"

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var snippetTmpl = template.Must(template.New("snippet").Parse(
	`<script src="{{.Src}}" data-widget="{{.Widget}}" data-endpoint="{{.Endpoint}}"` +
		`{{if .Site}} data-site="{{.Site}}"{{end}} data-position="{{.Position}}" data-accent="{{.Accent}}"` +
		` data-width="{{.Width}}" data-height="{{.Height}}" data-z="{{.Z}}" defer></script>`))

// LandingData feeds index.html. The preview section is omitted when
// PreviewURL is empty.
type LandingData struct {
	PublicURL     string
	Snippet       string
	PreviewURL    string
	PreviewHeight int
}

// PanelData feeds widget.html.
type PanelData struct {
	Placeholder string
	Accent      string
	Endpoint    string
	Site        string
}

// RenderLanding writes the landing page.
func RenderLanding(w io.Writer, data LandingData) error {
	return pages.ExecuteTemplate(w, "index.html", data)
}

// RenderPanel writes the chat panel page loaded inside the iframe.
func RenderPanel(w io.Writer, data PanelData) error {
	return pages.ExecuteTemplate(w, "widget.html", data)
}

// Static serves the loader and panel scripts. Mount it under /js/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/js/", http.FileServer(http.FS(sub)))
}

// Snippet renders the script tag a site owner pastes into their layout.
// The loader is fetched from the widget URL's origin.
func Snippet(cfg Config) (string, error) {
	if cfg.Widget == "" {
		return "", ErrNoWidgetURL
	}
	u, err := url.Parse(cfg.Widget)
	if err != nil {
		return "", ErrNoWidgetURL
	}
	src := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: LoaderPath}).String()

	var buf bytes.Buffer
	err = snippetTmpl.Execute(&buf, struct {
		Config
		Src string
	}{cfg, src})
	if err != nil {
		return "", fmt.Errorf("render snippet: %w", err)
	}
	return buf.String(), nil
}

// PublicConfig builds the Config for a deployment reachable at publicURL.
func PublicConfig(publicURL, endpoint, placeholderText, site string) Config {
	base := strings.TrimRight(publicURL, "/")
	if endpoint == "" {
		endpoint = base + "/query"
	}
	return Normalize(Attrs{
		Widget:      base + "/widget",
		Endpoint:    endpoint,
		Placeholder: placeholderText,
		Site:        site,
	})
}
