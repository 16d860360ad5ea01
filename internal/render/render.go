// Package render turns editor content into preview HTML.
//
// Render is total: it never returns an error and never panics. Converter
// failures degrade to an escaped <pre> block of the source.
package render

import (
	"bytes"
	"html"
	"log/slog"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/starford/inkwell/internal/parser"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "github"

// Options configures a Renderer.
type Options struct {
	HighlightStyle string
	LineNumbers    bool
	Minify         bool
}

// Renderer wraps goldmark with code highlighting and optional minification.
type Renderer struct {
	md     goldmark.Markdown
	min    *minify.M
	logger *slog.Logger
}

// ValidStyle reports whether name is a registered chroma style.
func ValidStyle(name string) bool {
	_, ok := styles.Registry[strings.ToLower(name)]
	return ok
}

// New builds a Renderer. A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	style := opts.HighlightStyle
	if style == "" {
		style = DefaultStyle
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithGuessLanguage(true),
				highlighting.WithFormatOptions(
					chromahtml.WithLineNumbers(opts.LineNumbers),
				),
			),
		),
		goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	r := &Renderer{md: md, logger: logger}
	if opts.Minify {
		m := minify.New()
		m.AddFunc("text/html", mhtml.Minify)
		r.min = m
	}
	return r
}

// Render converts markdown source into an HTML fragment. Frontmatter is not
// rendered. Empty and whitespace-only input yields "".
func (r *Renderer) Render(text string) (out string) {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("render: converter panic", slog.Any("panic", rec))
			out = fallback(text)
		}
	}()

	body := parser.Parse([]byte(text)).Body

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		r.logger.Warn("render: convert failed", slog.String("error", err.Error()))
		return fallback(text)
	}
	out = buf.String()

	if r.min != nil {
		minified, err := r.min.String("text/html", out)
		if err != nil {
			r.logger.Debug("render: minify failed, using original", slog.String("error", err.Error()))
			return out
		}
		out = minified
	}
	return out
}

func fallback(text string) string {
	return "<pre>" + html.EscapeString(text) + "</pre>"
}
