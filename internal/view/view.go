// Package view renders status report data through embedded templates.
package view

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"text/template"
	"time"

	"k8s.io/apimachinery/pkg/util/duration"
)

// Template names used by status reports.
const (
	AgentStatusReport = "agent-status-report"
	ErrorReport       = "error"
)

// Format selects the template set a Builder renders with.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

//go:embed templates
var templateFS embed.FS

// Template is a parsed, executable view template.
type Template interface {
	Name() string
	Execute(w io.Writer, data any) error
}

// Builder looks up and renders templates of one format.
type Builder struct {
	format    Format
	templates map[string]Template
	now       func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the clock used by the age template helper.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New parses the embedded templates for format.
func New(format Format, opts ...Option) (*Builder, error) {
	b := &Builder{format: format, templates: make(map[string]Template), now: time.Now}
	for _, opt := range opts {
		opt(b)
	}

	dir := path.Join("templates", string(format))
	entries, err := fs.ReadDir(templateFS, dir)
	if err != nil {
		return nil, fmt.Errorf("unsupported view format %q", format)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tmpl") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".tmpl")
		src, err := fs.ReadFile(templateFS, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", name, err)
		}
		tmpl, err := b.parse(name, string(src))
		if err != nil {
			return nil, fmt.Errorf("parsing %s template %s: %w", format, name, err)
		}
		b.templates[name] = tmpl
	}
	return b, nil
}

func (b *Builder) parse(name, src string) (Template, error) {
	funcs := b.funcs()
	if b.format == FormatHTML {
		return htmltemplate.New(name).Funcs(htmltemplate.FuncMap(funcs)).Parse(src)
	}
	return template.New(name).Funcs(funcs).Parse(src)
}

func (b *Builder) funcs() template.FuncMap {
	return template.FuncMap{
		"ts": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.UTC().Format(time.RFC3339)
		},
		"age": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return duration.HumanDuration(b.now().Sub(t))
		},
		"default": func(fallback, s string) string {
			if s == "" {
				return fallback
			}
			return s
		},
	}
}

// Template returns the named template.
func (b *Builder) Template(name string) (Template, error) {
	t, ok := b.templates[name]
	if !ok {
		return nil, fmt.Errorf("no %s template named %q", b.format, name)
	}
	return t, nil
}

// Render executes t with data and returns the output.
func (b *Builder) Render(t Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
