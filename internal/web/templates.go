package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/justestif/go-genre-decagon/internal/clustering"
	"github.com/justestif/go-genre-decagon/internal/panel"
	"github.com/justestif/go-genre-decagon/internal/scene"
	"github.com/justestif/go-genre-decagon/internal/store"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	partials  *template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template with the given data.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}

	// Execute the "base" template which includes the page content
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial renders a partial template (without base layout) with the given data.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	if t.partials == nil || t.partials.Lookup(partial) == nil {
		return fmt.Errorf("partial %q not found", partial)
	}
	return t.partials.ExecuteTemplate(w, partial, data)
}

// load parses all templates from the filesystem.
func (t *Templates) load(templatesFS fs.FS) error {
	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}

	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}

	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}

	// Common files to include with every page
	commonFiles := append(layouts, partials...)

	for _, page := range pages {
		name := filepath.Base(page)
		name = name[:len(name)-len(".html")]

		files := append([]string{page}, commonFiles...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		t.templates[name] = tmpl
	}

	// Partials share one set so fragments can include each other.
	if len(partials) > 0 {
		tmpl, err := template.New("partials").Funcs(t.funcs).ParseFS(templatesFS, partials...)
		if err != nil {
			return fmt.Errorf("parsing partials: %w", err)
		}
		t.partials = tmpl
	}

	return nil
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// pct formats a 0..1 share as a whole percentage.
		"pct": func(v float64) string {
			return fmt.Sprintf("%.0f%%", v*100)
		},

		// add adds two integers (for 1-based indexing in loops)
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	CurrentPath string
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	Viz VizData
}

// VizData is everything the visualization fragment draws for one session.
type VizData struct {
	Frame   scene.Frame
	Panel   *panel.View
	Error   string
	Loading bool
	Loaded  bool

	SongCount  int
	GenreCount int

	Upload      *store.UploadProgress
	UploadError string // local validation message, never stored
	MaxUploadMB int64

	Groups []GroupData
}

// GroupData is one genre group beside the plot.
type GroupData struct {
	Name   string
	Count  int
	Colors []string
}

func groupData(groups []clustering.Group) []GroupData {
	out := make([]GroupData, len(groups))
	for i, g := range groups {
		out[i] = GroupData{Name: g.Name, Count: len(g.Songs)}
		for _, d := range g.Dominant {
			out[i].Colors = append(out[i].Colors, d.Color())
		}
	}
	return out
}
