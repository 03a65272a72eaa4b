package views

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"math"
	"net/http"
	"strconv"
)

// Template wraps a parsed template set whose entry point is "base".
type Template struct {
	tmpl *template.Template
}

// TemplateData is the standard data structure passed to all templates.
type TemplateData struct {
	// CSRF token for forms
	CSRFToken string

	// Flash messages
	Error   string
	Success string
	Warning string
	Info    string

	// Page-specific data
	Data interface{}

	Title       string
	Description string

	// Seconds between automatic reloads; zero disables
	RefreshSeconds int
}

// FuncMap returns the functions available in all templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatNumber":  formatNumber,
		"formatPercent": formatPercent,
		"safeURL":       safeURL,
		"default":       defaultValue,
	}
}

// ParseFS parses the base layout, every partial and the given pages from
// fsys. Pages define "content", which the base layout renders.
//
//	tmpl, err := views.ParseFS(templates.FS, "pages/home.gohtml")
func ParseFS(fsys fs.FS, pages ...string) (*Template, error) {
	partials, err := fs.Glob(fsys, "partials/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}

	files := append([]string{"layouts/base.gohtml"}, partials...)
	files = append(files, pages...)

	tmpl := template.New("").Funcs(FuncMap())
	for _, name := range files {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
	}

	return &Template{tmpl: tmpl}, nil
}

// MustParseFS is like ParseFS but panics on error.
func MustParseFS(fsys fs.FS, pages ...string) *Template {
	tmpl, err := ParseFS(fsys, pages...)
	if err != nil {
		panic(fmt.Sprintf("failed to parse templates: %v", err))
	}
	return tmpl
}

func (t *Template) Execute(w io.Writer, data *TemplateData) error {
	return t.tmpl.ExecuteTemplate(w, "base", data)
}

// ExecuteHTTP renders the page with a 200 status.
func (t *Template) ExecuteHTTP(w http.ResponseWriter, r *http.Request, data *TemplateData) {
	t.ExecuteHTTPWithStatus(w, r, http.StatusOK, data)
}

// ExecuteHTTPWithStatus renders into a buffer first so a template error
// becomes a clean 500 instead of a half-written page.
func (t *Template) ExecuteHTTPWithStatus(w http.ResponseWriter, r *http.Request, status int, data *TemplateData) {
	buf := &bytes.Buffer{}
	if err := t.Execute(buf, data); err != nil {
		log.Printf("Template execution error on %s: %v", r.URL.Path, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// formatNumber prints v without trailing zeros: 520, 54.7.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatPercent prints v with one decimal, dropping ".0".
func formatPercent(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

// safeURL marks data: preview URLs as trusted; html/template would
// otherwise replace them with "#ZgotmplZ".
func safeURL(s string) template.URL {
	return template.URL(s)
}

func defaultValue(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
