package lyrics

import (
	"strings"

	"github.com/gosimple/unidecode"
)

// MatchKey folds s for fuzzy title/artist comparison: transliterated to ASCII,
// lower-cased, with whitespace removed.
func MatchKey(s string) string {
	folded := strings.ToLower(unidecode.Unidecode(s))
	return strings.Join(strings.Fields(folded), "")
}

// ContainsFold reports whether either string contains the other after folding.
func ContainsFold(s1, s2 string) bool {
	k1, k2 := MatchKey(s1), MatchKey(s2)
	if k1 == "" || k2 == "" {
		return k1 == k2
	}
	return strings.Contains(k1, k2) || strings.Contains(k2, k1)
}
