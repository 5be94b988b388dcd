package web

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "dashboard", "history", "reflections", "search"
}

// Renderer executes page templates.
type Renderer struct {
	templates *template.Template
	version   string
	logger    *zap.Logger
}

// NewRenderer parses all templates from the given FS.
func NewRenderer(templates fs.FS, version string, logger *zap.Logger) *Renderer {
	funcs := template.FuncMap{
		"millis": func(ms int64) string {
			if ms == 0 {
				return "—"
			}
			return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
		},
	}
	parsed := template.Must(template.New("").Funcs(funcs).ParseFS(templates, "*.html"))
	return &Renderer{templates: parsed, version: version, logger: logger}
}

// Render executes the named template into the response. Render failures are
// logged and reported as 500s; partial output is avoided by buffering.
func (r *Renderer) Render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// RenderMarkdown converts markdown to escaped HTML. Reflections are
// user text; goldmark escapes raw HTML by default, so the output is safe to
// mark as template.HTML.
func RenderMarkdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(buf.String())
}
