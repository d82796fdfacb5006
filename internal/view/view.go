// Package view renders the HTML pages from embedded templates.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"tasktracker/internal/auth"
	"tasktracker/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

const layout = "templates/base.html"

// Page names accepted by Renderer.Render.
const (
	PageIndex    = "index.html"
	PageLogin    = "login.html"
	PageRegister = "register.html"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// Page is the data every template receives.
type Page struct {
	Session *auth.Session
	Flashes []Flash
	// Tasks is nil on the landing page and non-nil on the task list.
	Tasks  []model.Task
	Form   map[string]string
	Errors map[string]string
}

// Renderer implements echo.Renderer.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page together with the shared layout.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageIndex, PageLogin, PageRegister} {
		tmpl, err := template.New(page).ParseFS(templatesFS, layout, "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		r.pages[page] = tmpl
	}
	return r, nil
}

// Render writes the named page wrapped in the layout.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}
