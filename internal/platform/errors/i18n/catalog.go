// Package i18n provides internationalization support for error messages.
package i18n

import (
	"bytes"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
)

// BaseLocale is the locale every lookup falls back to.
const BaseLocale = "en-US"

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	tag      language.Tag
	messages map[Code]string
}

var (
	catalogsMu sync.RWMutex
	catalogs   = map[string]*Catalog{BaseLocale: enUSCatalog}
)

// GetCatalog returns the catalog best matching locale, falling back to en-US.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" {
		requested = BaseLocale
	}

	catalogsMu.RLock()
	defer catalogsMu.RUnlock()

	if c, ok := catalogs[requested]; ok {
		return c
	}

	desired, _, err := language.ParseAcceptLanguage(requested)
	if err != nil || len(desired) == 0 {
		return catalogs[BaseLocale]
	}

	supported := make([]language.Tag, 0, len(catalogs))
	byTag := make([]*Catalog, 0, len(catalogs))
	supported = append(supported, enUSCatalog.tag)
	byTag = append(byTag, catalogs[BaseLocale])
	for key, c := range catalogs {
		if key == BaseLocale || c.tag == language.Und {
			continue
		}
		supported = append(supported, c.tag)
		byTag = append(byTag, c)
	}

	_, index, confidence := language.NewMatcher(supported).Match(desired...)
	if confidence == language.No {
		return catalogs[BaseLocale]
	}
	return byTag[index]
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template with the given metadata.
// Falls back to the error code itself if no template is found.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	tmpl, ok := c.messages[code]
	if !ok {
		return code
	}

	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return tmpl
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}

// RegisterCatalog registers a catalog for the given locale.
func RegisterCatalog(locale string, cat *Catalog) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	catalogs[locale] = cat
}

// NewCatalog creates a new catalog with the given locale and messages.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cloned := make(map[Code]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Catalog{
		locale:   locale,
		tag:      tag,
		messages: cloned,
	}
}
