/* categories.go
 * Contains the logic for collapsing free-text challenge categories into the
 * canonical names used for color-coding and grouping
 */

package logic

import (
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// canonicalCategories are the category names displays group by. Anything the
// normalizer cannot map stays as typed.
var canonicalCategories = []string{
	"crypto",
	"web",
	"reverse",
	"pwn",
	"forensics",
	"stego",
	"network",
	"osint",
	"misc",
}

var separatorRuns = regexp.MustCompile(`[\s_-]+`)

// NormalizeCategory collapses the common synonym spellings organizers use
// ("cryptography", "reverse engineering", "binary exploitation", ...) into
// one canonical name per category. Exact rules run first; anything left is
// matched fuzzily against the canonical list so near spellings like
// "networking" still collapse.
func NormalizeCategory(category string) string {
	normalized := strings.ToLower(category)
	normalized = separatorRuns.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return "misc"
	}

	// Synonyms that fuzzy subsequence matching cannot reach.
	switch {
	case strings.HasPrefix(normalized, "reverse") && strings.Contains(normalized, "engineering"):
		return "reverse"
	case strings.Contains(normalized, "binary") && strings.Contains(normalized, "exploitation"):
		return "pwn"
	case normalized == "pwnable" || normalized == "exploitation":
		return "pwn"
	}

	for _, canonical := range canonicalCategories {
		if normalized == canonical {
			return canonical
		}
	}

	// A canonical name that survives as a subsequence of the input covers
	// spellings like "cryptography", "steganography" or "web security".
	// Prefer the closest by edit distance, like team-name matching does for
	// user input.
	best := ""
	bestRank := -1
	for _, canonical := range canonicalCategories {
		if !fuzzy.MatchNormalizedFold(canonical, normalized) {
			continue
		}
		rank := fuzzy.LevenshteinDistance(canonical, normalized)
		if bestRank == -1 || rank < bestRank {
			best = canonical
			bestRank = rank
		}
	}
	if best != "" {
		return best
	}
	return normalized
}
