// Package prompt loads the YAML prompt files shipped with the binary.
package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.yml
var embedded embed.FS

// Prompt file names.
const (
	Classifier = "classifier"
	Answer     = "answer"
)

// Bundle maps prompt name -> field -> template text.
type Bundle struct {
	prompts map[string]map[string]string
}

// Default loads the embedded prompts.
func Default() (*Bundle, error) {
	return LoadBundle(embedded, "prompts")
}

// LoadBundle loads every *.yml / *.yaml file in dir.
func LoadBundle(fsys fs.FS, dir string) (*Bundle, error) {
	paths, err := fs.Glob(fsys, path.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("glob prompt dir: %w", err)
	}
	yamlPaths, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob prompt dir: %w", err)
	}
	paths = append(paths, yamlPaths...)

	prompts := make(map[string]map[string]string, len(paths))
	for _, filePath := range paths {
		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return nil, fmt.Errorf("read prompt file: %w", err)
		}
		var mapping map[string]string
		if err := yaml.Unmarshal(data, &mapping); err != nil {
			return nil, fmt.Errorf("parse prompt yaml %s: %w", filePath, err)
		}
		name := strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))
		prompts[name] = mapping
	}
	return &Bundle{prompts: prompts}, nil
}

// Field returns the raw template for name/field.
func (b *Bundle) Field(name, field string) (string, error) {
	if b == nil {
		return "", fmt.Errorf("prompts not initialized")
	}
	mapping, ok := b.prompts[name]
	if !ok {
		return "", fmt.Errorf("prompt %q not found", name)
	}
	value, ok := mapping[field]
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("prompt %q has no %q field", name, field)
	}
	return value, nil
}

// Render formats name/field with values.
func (b *Bundle) Render(name, field string, values map[string]string) (string, error) {
	tmpl, err := b.Field(name, field)
	if err != nil {
		return "", err
	}
	out, err := FormatTemplate(tmpl, values)
	if err != nil {
		return "", fmt.Errorf("render %s.%s: %w", name, field, err)
	}
	return strings.TrimSpace(out), nil
}
