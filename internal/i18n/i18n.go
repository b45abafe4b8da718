// Package i18n resolves display strings for the supported locales.
package i18n

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Locale identifies one of the languages the service renders.
type Locale string

const (
	EN Locale = "en"
	HI Locale = "hi"
	KN Locale = "kn"
)

// Default is used whenever a request names no supported locale.
const Default = EN

// Supported lists every locale in declaration order.
var Supported = []Locale{EN, HI, KN}

var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Hindi,
	language.Kannada,
})

// Valid reports whether the locale is one the tables cover.
func (l Locale) Valid() bool {
	switch l {
	case EN, HI, KN:
		return true
	default:
		return false
	}
}

// Parse accepts "en", "hi", "kn" and region-qualified forms such as "hi-IN".
func Parse(raw string) (Locale, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", false
	}
	if idx := strings.IndexAny(raw, "-_"); idx > 0 {
		raw = raw[:idx]
	}
	loc := Locale(raw)
	if !loc.Valid() {
		return "", false
	}
	return loc, true
}

// Normalize maps unsupported locales to Default.
func Normalize(l Locale) Locale {
	if l.Valid() {
		return l
	}
	return Default
}

// Negotiate picks the best supported locale for an Accept-Language header.
func Negotiate(acceptLanguage string) Locale {
	if strings.TrimSpace(acceptLanguage) == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return Supported[idx]
}

// Localize returns the string for key in locale, or the key itself when no
// translation exists.
func Localize(key string, locale Locale) string {
	e, ok := translations[key]
	if !ok {
		return key
	}
	if s := e.get(Normalize(locale)); s != "" {
		return s
	}
	return key
}

// Has reports whether key has a non-empty rendering in locale.
func Has(key string, locale Locale) bool {
	e, ok := translations[key]
	return ok && e.get(Normalize(locale)) != ""
}

// Table renders every key for one locale.
func Table(locale Locale) map[string]string {
	out := make(map[string]string, len(translations))
	for key := range translations {
		out[key] = Localize(key, locale)
	}
	return out
}

// Keys returns the known keys sorted.
func Keys() []string {
	keys := make([]string, 0, len(translations))
	for key := range translations {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Provider exposes Localize through an interface value.
type Provider struct{}

func (Provider) Localize(key string, locale Locale) string {
	return Localize(key, locale)
}
