package matcher

import (
	"regexp"
	"strings"

	"voxspot/internal/i18n"
)

// patterns holds the phrase expressions compiled from one language's vocabulary.
type patterns struct {
	service   []string
	by        []string
	playVerb  *regexp.Regexp
	onService *regexp.Regexp
	article   *regexp.Regexp
	playlist  []*regexp.Regexp
	album     *regexp.Regexp
	artist    *regexp.Regexp
	song      *regexp.Regexp
	something *regexp.Regexp
	spaces    *regexp.Regexp
}

func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(w)))
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}

func compilePatterns(l *i18n.Localizer) *patterns {
	play := alternation(l.Vocab("play"))
	service := alternation(l.Vocab("service"))
	on := alternation(l.Vocab("on"))
	article := alternation(l.Vocab("article"))
	by := alternation(l.Vocab("by"))
	keyword := func(word string) *regexp.Regexp {
		return regexp.MustCompile(`^(?:` + article + `\s+)?` + alternation(l.Vocab(word)) + `\s+(.+)$`)
	}

	return &patterns{
		service:   l.Vocab("service"),
		by:        l.Vocab("by"),
		playVerb:  regexp.MustCompile(`^` + play + `\s+`),
		onService: regexp.MustCompile(`\s+` + on + `\s+` + service + `$`),
		article:   regexp.MustCompile(`^` + article + `\s+`),
		playlist: []*regexp.Regexp{
			keyword("playlist"),
			regexp.MustCompile(`^(.+?)\s+` + alternation(l.Vocab("playlist")) + `$`),
		},
		album:  keyword("album"),
		artist: keyword("artist"),
		song:   keyword("song"),
		something: regexp.MustCompile(`^(?:` + article + `\s+)?` + alternation(l.Vocab("something")) +
			`(?:\s+` + by + `\s+(.+))?$`),
		spaces: regexp.MustCompile(`\s+`),
	}
}

// normalize lowercases and trims the phrase and collapses inner whitespace.
func (p *patterns) normalize(phrase string) string {
	return p.spaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(phrase)), " ")
}

// namesService reports whether the service name appears as a word in phrase.
func (p *patterns) namesService(phrase string) bool {
	for _, field := range strings.Fields(phrase) {
		field = strings.Trim(field, ".,!?'\"")
		for _, s := range p.service {
			if field == s {
				return true
			}
		}
	}
	return false
}

// isService reports whether phrase is exactly the bare service name.
func (p *patterns) isService(phrase string) bool {
	for _, s := range p.service {
		if phrase == s {
			return true
		}
	}
	return false
}

// strip removes the leading play verb and a trailing "on spotify".
func (p *patterns) strip(phrase string) string {
	phrase = p.playVerb.ReplaceAllString(phrase, "")
	phrase = p.onService.ReplaceAllString(phrase, "")
	return strings.TrimSpace(phrase)
}

// stripArticle removes one leading article, if any.
func (p *patterns) stripArticle(name string) string {
	return strings.TrimSpace(p.article.ReplaceAllString(name, ""))
}

// splitBy splits name on the first occurrence of the localized "by" word.
// Titles that themselves contain the word are split at the wrong place.
func (p *patterns) splitBy(name string) (title, artist string) {
	padded := " " + name + " "
	best := -1
	var sep string
	for _, b := range p.by {
		token := " " + b + " "
		if i := strings.Index(padded, token); i >= 0 && (best < 0 || i < best) {
			best, sep = i, token
		}
	}
	if best < 0 {
		return name, ""
	}
	title = strings.TrimSpace(padded[:best])
	artist = strings.TrimSpace(padded[best+len(sep):])
	if title == "" {
		return name, ""
	}
	return title, artist
}

func submatch(re *regexp.Regexp, phrase string) (string, bool) {
	m := re.FindStringSubmatch(phrase)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
