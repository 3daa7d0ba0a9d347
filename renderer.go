package profilegen

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/oxtoacart/bpool"
)

// This is a little abstraction around template.Template to make a "base" layout
// template work.
//
// This is inspired mainly by staring at the pkgsite source code:
// https://github.com/golang/pkgsite/blob/master/internal/frontend/templates/templates.go
type Renderer struct {
	templates        map[string]*template.Template
	baseTemplateName string
	bufpool          *bpool.BufferPool
}

// ExecuteTemplate renders into a pooled buffer first, so that a template error doesn't
// leave half a page in w.
func (r *Renderer) ExecuteTemplate(w io.Writer, name string, data any) error {
	t, ok := r.templates[name]
	if !ok {
		return fs.ErrNotExist
	}
	buf := r.bufpool.Get()
	defer r.bufpool.Put(buf)
	if err := t.ExecuteTemplate(buf, r.baseTemplateName, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

const baseTemplatePath = "templates/base.html"

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"pickerColor": PickerColor,
}

func NewRenderer() (*Renderer, error) {
	renderer := Renderer{
		templates:        make(map[string]*template.Template),
		baseTemplateName: filepath.Base(baseTemplatePath),
		bufpool:          bpool.NewBufferPool(48),
	}
	paths, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	baseTemplate, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, baseTemplatePath)
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		name := filepath.Base(path)
		if name == renderer.baseTemplateName {
			continue
		}
		t, err := baseTemplate.Clone()
		if err != nil {
			return nil, err
		}
		if t, err = t.ParseFS(templateFS, path); err != nil {
			return nil, err
		}
		renderer.templates[name] = t
	}
	return &renderer, nil
}
