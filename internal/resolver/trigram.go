package resolver

import (
	"strings"
	"unicode"
)

// normalize lowercases the text and collapses runs of whitespace so that
// superficial formatting differences do not affect the score
func normalize(text string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteRune(' ')
		}
		space = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// trigrams extracts the set of rune trigrams from normalized text
// The text is padded so short strings still produce a usable set
func trigrams(text string) map[string]bool {
	runes := []rune(" " + text + " ")
	set := make(map[string]bool)
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = true
	}
	return set
}

// Similarity computes a trigram Dice coefficient between two texts in [0, 1]
// Equal normalized texts score 1 regardless of length
func Similarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	ta, tb := trigrams(na), trigrams(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for g := range ta {
		if tb[g] {
			shared++
		}
	}

	return 2 * float64(shared) / float64(len(ta)+len(tb))
}
