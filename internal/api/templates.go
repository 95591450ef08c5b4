package api

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"sync"
)

//go:embed templates
var templateFS embed.FS

var (
	tmplOnce  sync.Once
	tmplCache map[string]*template.Template
	tmplErr   error
)

func newTemplateCache() (map[string]*template.Template, error) {
	cache := make(map[string]*template.Template)

	pages, err := fs.Glob(templateFS, "templates/pages/*.tmpl")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := filepath.Base(page)
		patterns := []string{
			"templates/base.html.tmpl",
			"templates/partials/*.tmpl",
			page,
		}

		ts, err := template.New(name).ParseFS(templateFS, patterns...)
		if err != nil {
			return nil, err
		}

		cache[name] = ts
	}

	return cache, nil
}

func (s *MeetSpaceApp) render(w http.ResponseWriter, tmplName string, data any) {
	tmplOnce.Do(func() {
		tmplCache, tmplErr = newTemplateCache()
	})
	if tmplErr != nil {
		s.log.Printf("template cache: %v", tmplErr)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	tmpl, ok := tmplCache[tmplName]
	if !ok {
		s.log.Printf("template %q not in cache", tmplName)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.log.Println(fmt.Errorf("render %q: %w", tmplName, err))
	}
}
