// Package i18n localizes the server-side messages of the voice assistant.
// Catalogs for English, Hindi and Bengali are embedded in the binary.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var locales embed.FS

// Supported lists the language codes with a catalog.
var Supported = []string{"en", "hi", "bn"}

type Translator struct {
	bundle *goi18n.Bundle
}

// New loads the embedded catalogs with English as the fallback language.
func New() (*Translator, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := fs.Glob(locales, "locales/*.json")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		buf, err := locales.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := bundle.ParseMessageFileBytes(buf, path.Base(f)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
	}
	return &Translator{bundle: bundle}, nil
}

// T returns the message id in lang, falling back to English. Unknown ids
// come back unchanged.
func (t *Translator) T(lang, id string) string {
	loc := goi18n.NewLocalizer(t.bundle, lang, "en")
	msg, err := loc.Localize(&goi18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return id
	}
	return msg
}

// Normalize maps an arbitrary language code onto a supported one.
func Normalize(lang string) string {
	for _, s := range Supported {
		if lang == s {
			return s
		}
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "en"
	}
	base, _ := tag.Base()
	for _, s := range Supported {
		if base.String() == s {
			return s
		}
	}
	return "en"
}
