package http

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
)

// TemplateRenderer renders html/template pages for echo.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer parses every page in pages together with the shared
// layout files. Pages are addressed by their base file name.
func NewTemplateRenderer(fsys fs.FS, layout []string, pages []string, funcs template.FuncMap) (*TemplateRenderer, error) {
	r := &TemplateRenderer{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		files := append(append([]string{}, layout...), page)
		t, err := template.New(page).Funcs(funcs).ParseFS(fsys, files...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		r.templates[baseName(page)] = t
	}
	return r, nil
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
