// Package prompts loads and renders text/template prompt files.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"strings"
	"text/template"
)

//go:embed templates
var builtin embed.FS

// Manager handles loading and rendering of prompt templates.
type Manager struct {
	root *template.Template
}

// NewManager loads the built-in templates, then any *.tmpl files under dir,
// which replace built-ins of the same name. An empty or missing dir is fine.
func NewManager(dir string) (*Manager, error) {
	m := &Manager{}
	m.root = template.New("root").Funcs(template.FuncMap{
		"quoteJoin": quoteJoinFunc,
		"pick":      pickFunc,
	})

	sub, err := fs.Sub(builtin, "templates")
	if err != nil {
		return nil, err
	}
	if err := m.load(sub); err != nil {
		return nil, fmt.Errorf("loading built-in templates: %w", err)
	}

	if dir == "" {
		return m, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return m, nil
	}
	if err := m.load(os.DirFS(dir)); err != nil {
		return nil, fmt.Errorf("loading templates from %s: %w", dir, err)
	}
	return m, nil
}

// load parses common/ first so named blocks are defined before the templates using them.
func (m *Manager) load(fsys fs.FS) error {
	if err := m.walk(fsys, "common", func(name, content string) error {
		_, err := m.root.Parse(content)
		return err
	}); err != nil {
		return err
	}

	return m.walk(fsys, ".", func(name, content string) error {
		if strings.HasPrefix(name, "common/") {
			return nil
		}
		_, err := m.root.New(name).Parse(content)
		return err
	})
}

func (m *Manager) walk(fsys fs.FS, root string, parse func(name, content string) error) error {
	return fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		if err := parse(path, string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	})
}

// Render executes the named template with the provided data.
func (m *Manager) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// quoteJoinFunc renders ["Host", "Expert"] as 'Host' and 'Expert'.
func quoteJoinFunc(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	switch len(quoted) {
	case 0:
		return ""
	case 1:
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " and " + quoted[len(quoted)-1]
}

// pickFunc selects one random option from a list separated by "|||".
// Usage: {{pick "Option A|||Option B|||Option C"}}
// Re-rolls on each template render.
func pickFunc(options string) string {
	parts := strings.Split(options, "|||")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts[rand.IntN(len(parts))]
}
