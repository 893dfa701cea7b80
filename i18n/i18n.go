// Package i18n localizes the few user-facing strings the translator shows
// on the page (undo confirmations, error notices) and in the CLI.
//
// It wraps gotext; catalogs are embedded in the binary and loaded once at
// startup via Init. Strings pass through unchanged when no catalog matches,
// standard gettext behavior.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// locales embeds the compiled translation catalogs.
// Directory structure: locales/{lang}/LC_MESSAGES/translated.po
//
//go:embed all:locales
var locales embed.FS

const domain = "translated"

var po *gotext.Locale

// Init initializes the i18n system. If lang is empty, it auto-detects from
// LANGUAGE, LC_ALL, LC_MESSAGES, LANG (in that order, matching GNU gettext
// behavior). Call once at startup, before any T() call.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}
	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates a string, returning the msgid unchanged when no translation
// is available.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	// Get is printf-like, but msgid is a lookup key, not a format string:
	// gotext only formats when variadic args are passed. Call through a
	// method value so vet's printf check does not misfire on the key.
	get := po.Get
	return get(msgid)
}

func detectLanguage() string {
	// GNU gettext priority: LANGUAGE > LC_ALL > LC_MESSAGES > LANG.
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
