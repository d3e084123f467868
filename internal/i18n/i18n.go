// Package i18n provides the spoken dialogs and the phrase vocabulary for
// every supported language.
package i18n

import (
	"fmt"
	"strings"
)

const (
	// DefaultLanguage is the fallback language when no translation is available
	DefaultLanguage = "en"
	// GermanMessages is standard German
	GermanMessages = "de"

	dialogPrefix = "dialog."
	vocabPrefix  = "vocab."
)

// Localizer provides translation functionality
type Localizer struct {
	language string
	messages map[string]string
}

// NewLocalizer creates a new localizer for the specified language
func NewLocalizer(language string) *Localizer {
	language = normalizeLanguage(language)
	return &Localizer{
		language: language,
		messages: getMessages(language),
	}
}

// Language returns the resolved language code.
func (l *Localizer) Language() string {
	return l.language
}

// T translates a message key, with optional parameters for formatting
func (l *Localizer) T(key string, args ...interface{}) string {
	message, ok := l.lookup(key)
	if !ok {
		// Ultimate fallback: return the key itself
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

// Dialog renders a named dialog, replacing {field} placeholders from data.
// Unknown dialog names render as the name itself.
func (l *Localizer) Dialog(name string, data map[string]string) string {
	message, ok := l.lookup(dialogPrefix + name)
	if !ok {
		return name
	}
	if len(data) == 0 {
		return message
	}

	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(message)
}

// Vocab returns the alternatives of a vocabulary entry, most preferred first.
func (l *Localizer) Vocab(word string) []string {
	message, ok := l.lookup(vocabPrefix + word)
	if !ok {
		return nil
	}
	parts := strings.Split(message, "|")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList joins items the way the language lists things aloud: "a, b and c".
func (l *Localizer) JoinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " " + l.T("dialog.And") + " " + items[len(items)-1]
	}
}

func (l *Localizer) lookup(key string) (string, bool) {
	if message, exists := l.messages[key]; exists {
		return message, true
	}

	// Fallback to English if key not found in current language
	if l.language != DefaultLanguage {
		if fallbackMessage, exists := getMessages(DefaultLanguage)[key]; exists {
			return fallbackMessage, true
		}
	}
	return "", false
}

// GetSupportedLanguages returns list of supported language codes
func GetSupportedLanguages() []string {
	return []string{DefaultLanguage, GermanMessages}
}

// normalizeLanguage accepts host style codes such as "en-us" or "de_DE".
func normalizeLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(language, "-_"); i > 0 {
		language = language[:i]
	}
	return language
}

// getMessages returns the message map for a given language
func getMessages(language string) map[string]string {
	switch language {
	case GermanMessages:
		return germanMessages
	default:
		return englishMessages // Default to English
	}
}
