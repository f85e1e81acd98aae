// Package tag implements the tag deduplication and lifecycle engine: a fuzzy
// similarity scorer over tag names, unique slug assignment, and the
// transactional coordinator combining both with the tag store.
package tag

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/inkwell-press/inkwell/store"
)

// Thresholds consumed by the lifecycle coordinator.
const (
	// DuplicateThreshold blocks a single create at or above this score.
	DuplicateThreshold = 90.0
	// BulkResolveThreshold resolves a bulk-create name to an existing tag
	// at or above this score instead of creating a new row.
	BulkResolveThreshold = 85.0
	// WarningThreshold attaches a non-blocking similarity warning at or
	// above this score.
	WarningThreshold = 60.0
	// RetainThreshold is the cutoff below which candidates are dropped from
	// similarity results; a candidate must score strictly above it.
	RetainThreshold = 50.0
)

// normalizeTagName lower-cases the input and strips everything but letters and
// digits (any script). Two names that normalize equal are considered identical.
func normalizeTagName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// levenshtein computes the edit distance between two rune slices with the
// standard two-row dynamic programming recurrence.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			deletion := prev[j] + 1
			insertion := curr[j-1] + 1
			substitution := prev[j-1] + cost

			m := deletion
			if insertion < m {
				m = insertion
			}
			if substitution < m {
				m = substitution
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func commonPrefixLen(a, b []rune) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// Score returns a 0-100 similarity between two tag names. The score is
// symmetric: normalization, edit distance, containment and prefix length are
// all symmetric in their arguments.
//
// Identical normalized forms score exactly 100. Otherwise the base score is
// the normalized edit distance, a containment bonus of 20 is added when one
// normalized name contains the other, and a prefix bonus of up to 10 scales
// with the shared prefix. The result is capped at 100 and rounded to two
// decimal places.
func Score(a, b string) float64 {
	na, nb := normalizeTagName(a), normalizeTagName(b)
	if na == nb {
		return 100
	}
	// The empty string is a substring and prefix of everything; without this
	// guard an empty side would still collect bonus points.
	if na == "" || nb == "" {
		return 0
	}

	ra, rb := []rune(na), []rune(nb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	distance := levenshtein(ra, rb)
	score := (1 - float64(distance)/float64(maxLen)) * 100

	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		score += 20
	}
	if score > 100 {
		score = 100
	}

	minLen := len(ra)
	if len(rb) < minLen {
		minLen = len(rb)
	}
	score += float64(commonPrefixLen(ra, rb)) / float64(minLen) * 10
	if score > 100 {
		score = 100
	}

	return math.Round(score*100) / 100
}

// scoredTag pairs a stored tag with its similarity score against a query name.
type scoredTag struct {
	tag   *store.Tag
	score float64
}

// rankSimilar scores name against every tag, keeps candidates above the
// retain threshold, and returns the top limit candidates in descending score
// order. Ties keep the original enumeration order. Post counts are not
// resolved here; callers enrich only the retained subset.
func rankSimilar(name string, tags []*store.Tag, limit int) []scoredTag {
	scored := make([]scoredTag, 0)
	for _, t := range tags {
		if s := Score(name, t.Name); s > RetainThreshold {
			scored = append(scored, scoredTag{tag: t, score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
