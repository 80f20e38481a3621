// Package i18n holds the locale-keyed prompt and report texts. The locale is
// taken from the standard environment variables so the container image can
// bake in the report language.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

const defaultLocale = "en"

type Translator struct {
	locale       string
	translations map[string]string
}

// Detect resolves the report locale from the environment using the usual
// precedence: LC_ALL over LC_MESSAGES over LANG over LANGUAGE. Values like
// "de_DE.UTF-8" collapse to "de".
func Detect(getenv func(string) string) string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG", "LANGUAGE"} {
		v := strings.TrimSpace(getenv(key))
		if v == "" || strings.EqualFold(v, "C") || strings.EqualFold(v, "POSIX") {
			continue
		}
		if i := strings.IndexAny(v, "_.@:"); i > 0 {
			v = v[:i]
		}
		return strings.ToLower(v)
	}
	return defaultLocale
}

// ForLocale loads the embedded translation set for langCode, falling back to
// English when no file for that locale ships with the binary.
func ForLocale(langCode string) (*Translator, error) {
	t, err := NewTranslator(LocalesFS, langCode)
	if err != nil && langCode != defaultLocale {
		return NewTranslator(LocalesFS, defaultLocale)
	}
	return t, err
}

func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.locale = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("parse translation file: %w", err)
	}
	return &Translator{locale: defaultLocale, translations: translations}, nil
}

// T translates key, formatting args into the template when given. Unknown
// keys come back verbatim so a missing entry is visible, not silent.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) Locale() string { return t.locale }
