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

// Message keys used by the ingress and the worker.
const (
	KeyProcessing       = "processing"
	KeyRegister         = "register"
	KeyRateLimited      = "rate_limited"
	KeyQuotaExceeded    = "quota_exceeded"
	KeyHelp             = "help"
	KeySaveFailed       = "save_failed"
	KeyProcessingFailed = "processing_failed"
	KeySummarySingle    = "summary_single"
	KeySummaryMulti     = "summary_multi"
)

type Translator struct {
	lang         string
	translations map[string]string
}

func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

func (t *Translator) Lang() string { return t.lang }

// T returns the formatted message for key, or key itself when missing.
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

// Bundle resolves a translator per user language with a default fallback.
type Bundle struct {
	def   *Translator
	langs map[string]*Translator
}

// NewBundle loads every locales/*.yaml file in fsys. defaultLang must be one of them.
func NewBundle(fsys fs.FS, defaultLang string) (*Bundle, error) {
	entries, err := fs.ReadDir(fsys, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	b := &Bundle{langs: map[string]*Translator{}}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		code := strings.TrimSuffix(name, ".yaml")
		t, err := NewTranslator(fsys, code)
		if err != nil {
			return nil, err
		}
		b.langs[code] = t
	}
	def, ok := b.langs[strings.ToLower(defaultLang)]
	if !ok {
		return nil, fmt.Errorf("default language %q has no locale file", defaultLang)
	}
	b.def = def
	return b, nil
}

// For accepts tags like "vi", "vi-VN" or "" and falls back to the default.
func (b *Bundle) For(lang string) *Translator {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if t, ok := b.langs[lang]; ok {
		return t
	}
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		if t, ok := b.langs[lang[:i]]; ok {
			return t
		}
	}
	return b.def
}
