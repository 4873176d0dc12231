package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/mark-c-hall/whatmovies/internal/view"
)

var pages = []string{"movie", "list"}

type layoutData struct {
	Title     string
	Brand     string
	BrandHref string
	Nav       []view.NavLink
	Page      any
}

func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.ParseFS(fsys, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("error parsing %s template: %w", name, err)
		}
		templates[name] = t
	}
	return templates, nil
}

// render executes into a buffer so a template failure can still produce a
// clean 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, status int, title string, page any) {
	data := layoutData{
		Title:     title,
		Brand:     view.Brand,
		BrandHref: view.BrandHref,
		Nav:       view.NavLinks(r.URL.Path),
		Page:      page,
	}

	var buf bytes.Buffer
	if err := h.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.ErrorContext(r.Context(), "template render failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
