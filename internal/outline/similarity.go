package outline

import (
	"regexp"
	"strings"

	"github.com/txxxxz/autonote/internal/textutil"
)

var dottedPrefixRe = regexp.MustCompile(`^\d+(?:\.\d+)*`)

// titlesSimilar reports whether two page titles refer to the same topic
// and should merge into one outline node. The checks run cheapest
// first: normalized equality, matching numeric-dotted prefix, matching
// pre-colon keyword, then a sequence-similarity ratio against the
// threshold.
func titlesSimilar(a, b string, threshold float64) bool {
	na := normalizeTitle(a)
	nb := normalizeTitle(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	pa := dottedPrefixRe.FindString(na)
	pb := dottedPrefixRe.FindString(nb)
	if pa != "" && pa == pb {
		return true
	}
	ka := preColonKeyword(na)
	kb := preColonKeyword(nb)
	if ka != "" && ka == kb {
		return true
	}
	return similarityRatio(na, nb) >= threshold
}

func normalizeTitle(s string) string {
	return strings.ToLower(textutil.NormalizeWhitespace(s))
}

// preColonKeyword returns the text before the first colon when it is
// long enough to be a meaningful topic keyword.
func preColonKeyword(s string) string {
	idx := strings.IndexAny(s, ":：")
	if idx <= 0 {
		return ""
	}
	keyword := strings.TrimSpace(s[:idx])
	if len([]rune(keyword)) <= 3 {
		return ""
	}
	return keyword
}

// similarityRatio is the Ratcliff/Obershelp sequence similarity of two
// strings, computed over runes: twice the number of matching characters
// divided by the total length.
func similarityRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchingRunes(ra, rb)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestCommonRun(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingRunes(a[:ai], b[:bi]) +
		matchingRunes(a[ai+size:], b[bi+size:])
}

func longestCommonRun(a, b []rune) (ai, bi, size int) {
	// Classic O(len(a)*len(b)) longest-common-substring sweep; titles
	// are short so this is cheap.
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					ai = i - size
					bi = j - size
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}
