package journal

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"github.com/starford/gitjournal/internal/models"
	"github.com/starford/gitjournal/internal/parser"
	"github.com/starford/gitjournal/internal/storage"
)

//go:embed template.md
var defaultTemplate string

// DefaultTemplate returns the built-in journal template.
func DefaultTemplate() string {
	return defaultTemplate
}

// TemplateData is what a journal template can reference.
type TemplateData struct {
	Author      string
	Created     string
	LastUpdated string
	Branch      string
	Head        string
}

// Materializer creates new journals from a template.
type Materializer struct {
	store storage.Provider
	tmpl  *template.Template
}

// NewMaterializer parses text as the journal template; empty text selects
// the built-in one.
func NewMaterializer(store storage.Provider, text string) (*Materializer, error) {
	if text == "" {
		text = defaultTemplate
	}
	tmpl, err := template.New("journal").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("journal: parse template: %w", err)
	}
	return &Materializer{store: store, tmpl: tmpl}, nil
}

// LoadTemplate reads a template file; an empty path yields "".
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("journal: read template %s: %w", path, err)
	}
	return string(data), nil
}

// Render instantiates the template for bc with the given creation date.
// The output must satisfy the section schema, otherwise a
// *parser.SchemaError is returned.
func (m *Materializer) Render(bc models.BranchContext, created string) ([]byte, error) {
	var buf bytes.Buffer
	err := m.tmpl.Execute(&buf, TemplateData{
		Author:      bc.Author,
		Created:     created,
		LastUpdated: bc.Now.Format(models.TimestampLayout),
		Branch:      bc.Branch,
		Head:        bc.Head,
	})
	if err != nil {
		return nil, fmt.Errorf("journal: render template: %w", err)
	}
	if _, err := parser.Parse(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("journal: template: %w", err)
	}
	return buf.Bytes(), nil
}

// Materialize writes a fresh journal at loc. It fails with
// apperr.ErrAlreadyExists when the file appeared in the meantime; it never
// overwrites.
func (m *Materializer) Materialize(loc *Location, bc models.BranchContext) ([]byte, error) {
	created := loc.Created
	if created == "" {
		created = bc.Date()
	}
	content, err := m.Render(bc, created)
	if err != nil {
		return nil, err
	}
	if err := m.store.Create(loc.File, content); err != nil {
		return nil, err
	}
	return content, nil
}
