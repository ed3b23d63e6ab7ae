// Package i18n holds the French and English strings of the site.
package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

const (
	French  = "fr"
	English = "en"

	CookieName = "preferredLang"
)

var matcher = language.NewMatcher([]language.Tag{language.French, language.English})

// Localizer translates for one language. It is a value passed to whoever
// renders text; there is no process-wide current language.
type Localizer struct {
	Lang string
}

func New(lang string) Localizer {
	return Localizer{Lang: Normalize(lang, French)}
}

// T returns the translation for a dot-notation key, or the key itself.
func (l Localizer) T(key string) string {
	messages, ok := catalog[l.Lang]
	if !ok {
		messages = catalog[French]
	}
	if s, ok := messages[key]; ok {
		return s
	}
	return key
}

// Lookup reports whether the key exists for this language.
func (l Localizer) Lookup(key string) (string, bool) {
	s, ok := catalog[l.Lang][key]
	return s, ok
}

func (l Localizer) IsFrench() bool  { return l.Lang == French }
func (l Localizer) IsEnglish() bool { return l.Lang == English }

// Toggle returns the localizer for the other language.
func (l Localizer) Toggle() Localizer {
	if l.Lang == French {
		return Localizer{Lang: English}
	}
	return Localizer{Lang: French}
}

// Normalize maps any language string to fr or en, falling back to def.
func Normalize(lang, def string) string {
	switch lang {
	case French, English:
		return lang
	case "":
		return def
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return def
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return def
	}
	return []string{French, English}[idx]
}

// FromRequest picks the preferred language cookie, then Accept-Language,
// then def.
func FromRequest(r *http.Request, def string) Localizer {
	if c, err := r.Cookie(CookieName); err == nil {
		if lang := Normalize(c.Value, ""); lang != "" {
			return Localizer{Lang: lang}
		}
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		tags, _, err := language.ParseAcceptLanguage(accept)
		if err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No {
				return Localizer{Lang: []string{French, English}[idx]}
			}
		}
	}
	return Localizer{Lang: Normalize(def, French)}
}

// PreferenceCookie stores the language choice in the browser.
func PreferenceCookie(lang string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    Normalize(lang, French),
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	}
}
