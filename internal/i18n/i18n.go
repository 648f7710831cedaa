// Package i18n maps the app's language codes to language tags, question
// column suffixes and a message catalog loaded from embedded YAML files.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Lang is a UI/content language code as stored in user settings.
type Lang string

const (
	Polish    Lang = "pl"
	German    Lang = "de"
	Ukrainian Lang = "ua"
	English   Lang = "en"
)

// Default is the language of the base question columns.
const Default = Polish

// LangParam is the query parameter used to override the language per request.
const LangParam = "lang"

var tags = map[Lang]language.Tag{
	Polish:    language.Polish,
	German:    language.German,
	Ukrainian: language.Ukrainian,
	English:   language.English,
}

// column suffixes of the localized question columns
var suffixes = map[Lang]string{
	German:    "_de",
	Ukrainian: "_ua",
	English:   "_eng",
}

var matcher = language.NewMatcher([]language.Tag{
	language.Polish,
	language.German,
	language.Ukrainian,
	language.English,
})

// Supported lists every language in a stable order.
func Supported() []Lang {
	return []Lang{Polish, German, Ukrainian, English}
}

// Tag returns the BCP 47 tag of l.
func (l Lang) Tag() language.Tag {
	if t, ok := tags[l]; ok {
		return t
	}
	return language.Polish
}

// ColumnSuffix returns the suffix of localized question columns, empty for the base language.
func (l Lang) ColumnSuffix() string {
	return suffixes[l]
}

// Parse accepts app codes ("pl", "de", "ua", "en") and BCP 47 tags ("uk", "de-AT").
func Parse(raw string) (Lang, bool) {
	code := strings.ToLower(strings.TrimSpace(raw))
	if code == "" {
		return "", false
	}
	if _, ok := tags[Lang(code)]; ok {
		return Lang(code), true
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	_, idx, confidence := matcher.Match(tag)
	if confidence < language.High {
		return "", false
	}
	return Supported()[idx], true
}

// FromRequest resolves the language from the lang query param, then Accept-Language.
func FromRequest(r *http.Request, fallback Lang) Lang {
	if r == nil {
		return fallback
	}
	if l, ok := Parse(r.URL.Query().Get(LangParam)); ok {
		return l
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if prefs, _, err := language.ParseAcceptLanguage(accept); err == nil && len(prefs) > 0 {
			_, idx, confidence := matcher.Match(prefs...)
			if confidence >= language.High {
				return Supported()[idx]
			}
		}
	}
	return fallback
}

// ForUser picks the lang query param when valid, otherwise the user's saved language.
func ForUser(r *http.Request, saved Lang) Lang {
	if r != nil {
		if l, ok := Parse(r.URL.Query().Get(LangParam)); ok {
			return l
		}
	}
	return saved
}

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog translates message keys for every supported language.
type Catalog struct {
	builder *catalog.Builder
	keys    map[Lang][]string
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	return LoadFromFS(embeddedLocales)
}

// LoadFromFS loads locales/<code>.yaml files from fsys.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale files found")
	}
	sort.Strings(paths)

	c := &Catalog{
		builder: catalog.NewBuilder(catalog.Fallback(Default.Tag())),
		keys:    map[Lang][]string{},
	}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", p, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", p, err)
		}
		lang := Lang(file.Locale)
		if _, ok := tags[lang]; !ok {
			return nil, fmt.Errorf("locale %s: unsupported language %q", p, file.Locale)
		}
		if base := strings.TrimSuffix(path.Base(p), ".yaml"); base != file.Locale {
			return nil, fmt.Errorf("locale %s: locale %q must match file name", p, file.Locale)
		}
		for key, msg := range file.Messages {
			if err := c.builder.SetString(lang.Tag(), key, msg); err != nil {
				return nil, fmt.Errorf("locale %s key %s: %w", p, key, err)
			}
			c.keys[lang] = append(c.keys[lang], key)
		}
		sort.Strings(c.keys[lang])
	}
	if len(c.keys[Default]) == 0 {
		return nil, fmt.Errorf("base locale %s is not defined", Default)
	}
	return c, nil
}

// Printer returns a message printer bound to this catalog.
func (c *Catalog) Printer(l Lang) *message.Printer {
	return message.NewPrinter(l.Tag(), message.Catalog(c.builder))
}

// T translates key for l, formatting args into the translated pattern.
func (c *Catalog) T(l Lang, key string, args ...interface{}) string {
	return c.Printer(l).Sprintf(key, args...)
}

// Keys lists the message keys defined for l.
func (c *Catalog) Keys(l Lang) []string {
	return append([]string(nil), c.keys[l]...)
}
