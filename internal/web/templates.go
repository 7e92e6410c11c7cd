package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/menza/internal/auth"
	"github.com/erazemk/menza/internal/menu"
	"github.com/erazemk/menza/internal/model"
	webembed "github.com/erazemk/menza/web"
)

// SiteName is shown in the page header.
const SiteName = "Golden Spoon Canteen"

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// formatPrice renders a price without trailing zeros.
func formatPrice(p float64) string {
	return "₹" + strconv.FormatFloat(p, 'f', -1, 64)
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"categoryLabel": model.CategoryLabel,
		"price":         formatPrice,
		"priceValue": func(p float64) string {
			return strconv.FormatFloat(p, 'f', -1, 64)
		},
		"formatTime": func(t time.Time) string {
			return t.Local().Format("Monday, January 2, 2006 at 03:04 PM")
		},
		"isoTime": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339Nano)
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"menu.html",
		"login.html",
		"admin.html",
		"error.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title    string
	SiteName string
	User     *auth.Claims
	Error    string
	Success  string
	// Live enables the script that keeps the page in sync with the server.
	Live bool
}

// Server holds all dependencies for page handlers.
type Server struct {
	Service     *menu.Service
	Credentials *auth.Credentials
	Templates   *Templates
	JWTSecret   string
}

type errorPage struct {
	PageData
	Message string
	Retry   string
}

// renderUnavailable shows a page asking the visitor to reload when the menu
// cannot be loaded.
func (s *Server) renderUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("failed to load menu", "error", err, "path", r.URL.Path)
	s.Templates.RenderStatus(w, http.StatusServiceUnavailable, "error.html", &errorPage{
		PageData: s.page(r, "Connection error"),
		Message:  "The menu could not be loaded. Please check your connection and try again.",
		Retry:    r.URL.RequestURI(),
	})
}

func (s *Server) page(r *http.Request, title string) PageData {
	return PageData{
		Title:    title,
		SiteName: SiteName,
		User:     currentUser(r, s.JWTSecret),
		Error:    r.URL.Query().Get("error"),
		Success:  r.URL.Query().Get("saved"),
	}
}
