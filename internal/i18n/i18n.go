// Package i18n provides localized strings and prompt templates loaded from
// embedded YAML locale files. Prompt text lives here rather than in code so
// the counselling persona and fallback sentences can be tuned without a
// recompile of the guidance logic.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var defaultLocalesFS embed.FS

type Translator struct {
	translations map[string]map[string]string // lang -> key -> value
	templates    map[string]*template.Template
	defaultLang  string
	mu           sync.RWMutex
}

// NewTranslator creates a Translator from the embedded locales.
func NewTranslator(defaultLang string) (*Translator, error) {
	subFS, err := fs.Sub(defaultLocalesFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("failed to access embedded locales: %w", err)
	}
	return NewTranslatorFromFS(subFS, defaultLang)
}

// NewTranslatorFromFS creates a Translator from the given filesystem.
// Useful for tests or loading locales from a custom location.
func NewTranslatorFromFS(localesFS fs.FS, defaultLang string) (*Translator, error) {
	t := &Translator{
		translations: make(map[string]map[string]string),
		templates:    make(map[string]*template.Template),
		defaultLang:  defaultLang,
	}

	entries, err := fs.ReadDir(localesFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales directory: %w", err)
	}

	for _, f := range entries {
		if f.IsDir() {
			continue
		}
		ext := filepath.Ext(f.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		lang := strings.TrimSuffix(f.Name(), ext)
		content, err := fs.ReadFile(localesFS, f.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read locale file %s: %w", f.Name(), err)
		}

		var data map[string]interface{}
		if err := yaml.Unmarshal(content, &data); err != nil {
			return nil, fmt.Errorf("failed to parse locale file %s: %w", f.Name(), err)
		}

		flat := make(map[string]string)
		flatten("", data, flat)
		t.translations[lang] = flat
	}

	return t, nil
}

func flatten(prefix string, src map[string]interface{}, dest map[string]string) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch child := v.(type) {
		case map[string]interface{}:
			flatten(key, child, dest)
		case string:
			dest[key] = child
		default:
			dest[key] = fmt.Sprintf("%v", v)
		}
	}
}

// Get returns the localized string for key, falling back to the default
// language and finally to the key itself. Optional args are applied with
// fmt.Sprintf.
func (t *Translator) Get(lang, key string, args ...interface{}) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	val := t.lookup(lang, key)
	if len(args) > 0 {
		return fmt.Sprintf(val, args...)
	}
	return val
}

// GetTemplate renders the localized value for key as a text/template with
// the given data. Parsed templates are cached per language+key.
func (t *Translator) GetTemplate(lang, key string, data any) (string, error) {
	t.mu.RLock()
	raw := t.lookup(lang, key)
	cacheKey := lang + "\x00" + key
	tmpl := t.templates[cacheKey]
	t.mu.RUnlock()

	if tmpl == nil {
		var err error
		tmpl, err = template.New(key).Parse(raw)
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %w", key, err)
		}
		t.mu.Lock()
		t.templates[cacheKey] = tmpl
		t.mu.Unlock()
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", key, err)
	}
	return sb.String(), nil
}

// lookup must be called with at least a read lock held.
func (t *Translator) lookup(lang, key string) string {
	if lang == "" {
		lang = t.defaultLang
	}
	if tr, ok := t.translations[lang]; ok {
		if v, ok := tr[key]; ok {
			return v
		}
	}
	if lang != t.defaultLang {
		if tr, ok := t.translations[t.defaultLang]; ok {
			if v, ok := tr[key]; ok {
				return v
			}
		}
	}
	return key
}
