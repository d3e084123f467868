package fuzzy

import "strings"

var defaultNormalizer = NewNormalizer()

// Similarity scores how closely two free-text names match, in [0, 1].
// Equal strings, ignoring case, always score 1.0.
func Similarity(a, b string) float64 {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return 1.0
	}
	return defaultNormalizer.CalculateSimilarity(defaultNormalizer.Normalize(a), defaultNormalizer.Normalize(b))
}

// TitleSimilarity is Similarity for track and album titles. Featuring credits
// and release decorations on either side are ignored.
func TitleSimilarity(spoken, title string) float64 {
	if strings.EqualFold(strings.TrimSpace(spoken), strings.TrimSpace(title)) {
		return 1.0
	}
	return defaultNormalizer.CalculateSimilarity(defaultNormalizer.NormalizeTitle(spoken), defaultNormalizer.NormalizeTitle(title))
}

// ArtistSimilarity is Similarity for artist names, reading "&" and "+" as "and".
func ArtistSimilarity(spoken, artist string) float64 {
	if strings.EqualFold(strings.TrimSpace(spoken), strings.TrimSpace(artist)) {
		return 1.0
	}
	return defaultNormalizer.CalculateSimilarity(defaultNormalizer.NormalizeArtist(spoken), defaultNormalizer.NormalizeArtist(artist))
}

// BestMatch returns the candidate most similar to query and its score.
// It never rejects a candidate; callers apply their own threshold. Ties keep
// the earliest candidate, and ok is false only when candidates is empty.
func BestMatch(query string, candidates []string) (match string, confidence float64, ok bool) {
	if len(candidates) == 0 {
		return "", 0, false
	}

	q := defaultNormalizer.Normalize(query)
	bestIdx := -1
	for i, c := range candidates {
		var score float64
		if strings.EqualFold(strings.TrimSpace(query), strings.TrimSpace(c)) {
			score = 1.0
		} else {
			score = defaultNormalizer.CalculateSimilarity(q, defaultNormalizer.Normalize(c))
		}
		if bestIdx < 0 || score > confidence {
			bestIdx = i
			confidence = score
		}
		if confidence == 1.0 {
			break
		}
	}

	return candidates[bestIdx], confidence, true
}
