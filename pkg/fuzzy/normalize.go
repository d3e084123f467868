package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]\s*`)
	versionRegex    = regexp.MustCompile(`(?i)\s*(?:[\(\[]|\s-\s)\s*(?:\d{4}\s+)?(remaster|remastered|deluxe|extended|radio edit|clean|explicit|live|mono|stereo|remix).*$`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalizer folds names into a canonical lowercase ASCII form so that spoken
// text and catalog names can be compared.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = strings.ReplaceAll(artist, "&", " and ")
	artist = strings.ReplaceAll(artist, "+", " and ")
	return n.Normalize(artist)
}

// NormalizeTitle strips featuring credits and release decorations such as
// "(Remastered 2009)" or " - Live" before folding.
func (n *Normalizer) NormalizeTitle(title string) string {
	title = featRegex.ReplaceAllString(title, " ")
	title = versionRegex.ReplaceAllString(title, "")
	return n.Normalize(title)
}

// Normalize lowercases, strips diacritics, transliterates to ASCII and collapses
// punctuation and whitespace.
func (n *Normalizer) Normalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = unidecode.Unidecode(result.String())

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	text = strings.TrimSpace(text)

	return text
}

// CalculateSimilarity scores two already normalized strings as
// 2*LCS/(len(a)+len(b)) over runes.
func (n *Normalizer) CalculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	return 2 * float64(longestCommonSubsequence(r1, r2)) / float64(len(r1)+len(r2))
}

func longestCommonSubsequence(s1, s2 []rune) int {
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			if s1[i-1] == s2[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
