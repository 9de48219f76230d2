// Package i18n holds the bot's Spanish and English message catalogs.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const (
	// DefaultLanguage is also the catalog missing keys are read from.
	DefaultLanguage = "es"
	EnglishMessages = "en"
)

// catalogs is ordered with the default first so the matcher falls back to it.
var catalogs = []struct {
	code     string
	tag      language.Tag
	messages map[string]string
}{
	{DefaultLanguage, language.Spanish, spanishMessages},
	{EnglishMessages, language.English, englishMessages},
}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, len(catalogs))
	for i, c := range catalogs {
		tags[i] = c.tag
	}
	return language.NewMatcher(tags)
}()

// Match maps a locale such as "es-AR", "en_US" or a Discord preferred locale
// to a supported catalog code. Anything unrecognised maps to DefaultLanguage.
func Match(locale string) string {
	return catalogs[matchIndex(locale)].code
}

func matchIndex(locale string) int {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if err != nil {
		return 0
	}
	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No {
		return 0
	}
	return idx
}

// Localizer renders message keys in one language.
type Localizer struct {
	language string
	messages map[string]string
	fallback map[string]string
}

func NewLocalizer(locale string) *Localizer {
	c := catalogs[matchIndex(locale)]
	return &Localizer{
		language: c.code,
		messages: c.messages,
		fallback: spanishMessages,
	}
}

// Language returns the catalog code the locale was matched to.
func (l *Localizer) Language() string {
	return l.language
}

// Has reports whether key exists in this language or the fallback catalog.
func (l *Localizer) Has(key string) bool {
	_, ok := l.lookup(key)
	return ok
}

// T formats the message for key with args; an unknown key comes back as-is.
func (l *Localizer) T(key string, args ...interface{}) string {
	message, ok := l.lookup(key)
	if !ok {
		return key
	}
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

func (l *Localizer) lookup(key string) (string, bool) {
	if message, ok := l.messages[key]; ok {
		return message, true
	}
	message, ok := l.fallback[key]
	return message, ok
}

func GetSupportedLanguages() []string {
	codes := make([]string, len(catalogs))
	for i, c := range catalogs {
		codes[i] = c.code
	}
	return codes
}

func getMessages(code string) map[string]string {
	return catalogs[matchIndex(code)].messages
}
