// Package web renders the server-side HTML pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"newsletter-backend/internal/flash"
)

//go:embed templates/*.html
var templateFiles embed.FS

const (
	PageHome      = "home"
	PageLogin     = "login"
	PageDashboard = "dashboard"
	PagePassword  = "password"
)

// Page is the data every template receives. Pages add their own fields
// through the embedded struct types below.
type Page struct {
	Title   string
	Flashes []flash.Message
}

type LoginPage struct {
	Page
	Error string
}

type DashboardPage struct {
	Page
	Username string
}

type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{PageHome, PageLogin, PageDashboard, PagePassword} {
		t, err := template.ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// Render executes the page into a buffer first so a template error never
// leaves a half-written 200 behind.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
