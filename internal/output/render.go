package output

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// ErrUnknownFormat marks formats without a preset template.
var ErrUnknownFormat = errors.New("unknown output format")

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer turns a PackContext into the final pack text.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer builds a renderer for a preset format. A non-empty
// templatePath overrides the preset with a user template.
func NewRenderer(format, templatePath string) (*Renderer, error) {
	if templatePath != "" {
		raw, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", templatePath, err)
		}

		tmpl, parseErr := template.New(filepath.Base(templatePath)).Parse(string(raw))
		if parseErr != nil {
			return nil, fmt.Errorf("parse template %s: %w", templatePath, parseErr)
		}

		return &Renderer{tmpl: tmpl}, nil
	}

	name := format + ".tmpl"

	raw, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	tmpl, parseErr := template.New(name).Parse(string(raw))
	if parseErr != nil {
		return nil, fmt.Errorf("parse preset %s: %w", name, parseErr)
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the template over the context.
func (r *Renderer) Render(ctx *PackContext) (string, error) {
	var b strings.Builder

	if err := r.tmpl.Execute(&b, ctx); err != nil {
		return "", fmt.Errorf("render pack: %w", err)
	}

	return b.String(), nil
}
