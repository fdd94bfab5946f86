package site

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
)

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

// templateKinds are the page layouts the generator renders with. Each kind
// parses base.tmpl plus its own file so every kind can define "content".
var templateKinds = []string{"post", "page", "list", "term", "archive"}

var templateFuncs = template.FuncMap{
	"dateISO":   func(t interface{ Format(string) string }) string { return t.Format("2006-01-02") },
	"dateHuman": func(t interface{ Format(string) string }) string { return t.Format("January 2, 2006") },
}

type templateSet struct {
	byKind map[string]*template.Template
}

// loadTemplates parses the embedded default layouts, overridden per file by
// same-named .tmpl files in the layouts dir when one is configured.
func loadTemplates(layoutsDir string) (*templateSet, error) {
	ts := &templateSet{byKind: make(map[string]*template.Template, len(templateKinds))}
	for _, kind := range templateKinds {
		tpl := template.New("base").Funcs(templateFuncs)

		base, err := readTemplate(layoutsDir, "base.tmpl")
		if err != nil {
			return nil, err
		}
		if tpl, err = tpl.Parse(base); err != nil {
			return nil, fmt.Errorf("parse base template: %w", err)
		}

		body, err := readTemplate(layoutsDir, kind+".tmpl")
		if err != nil {
			return nil, err
		}
		if tpl, err = tpl.Parse(body); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		ts.byKind[kind] = tpl
	}
	return ts, nil
}

// readTemplate prefers an override file in layoutsDir over the embedded default.
func readTemplate(layoutsDir, name string) (string, error) {
	if layoutsDir != "" {
		override := filepath.Join(layoutsDir, name)
		if data, err := os.ReadFile(override); err == nil {
			return string(data), nil
		}
	}
	data, err := defaultTemplates.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("read default template %s: %w", name, err)
	}
	return string(data), nil
}

func (g *Generator) templates() (*templateSet, error) {
	if g.tpls != nil {
		return g.tpls, nil
	}
	ts, err := loadTemplates(g.cfg.Content.LayoutsDir)
	if err != nil {
		return nil, err
	}
	g.tpls = ts
	return ts, nil
}
