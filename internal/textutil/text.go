// Package textutil provides the small text helpers shared by the outline
// builder, note generator, and template generators.
package textutil

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Sentence boundaries for mixed Chinese/Latin prose.
	sentenceRe = regexp.MustCompile(`(?:[。！？!?]|\.\s)`)
)

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// SplitSentences splits text on sentence-ending punctuation. Terminators
// stay attached to their sentence.
func SplitSentences(text string) []string {
	var sentences []string
	rest := text
	for {
		loc := sentenceRe.FindStringIndex(rest)
		if loc == nil {
			break
		}
		seg := strings.TrimSpace(rest[:loc[1]])
		if seg != "" {
			sentences = append(sentences, seg)
		}
		rest = rest[loc[1]:]
	}
	if seg := strings.TrimSpace(rest); seg != "" {
		sentences = append(sentences, seg)
	}
	return sentences
}

// TakeSentences returns the first n sentences of text joined by spaces.
func TakeSentences(text string, n int) string {
	sentences := SplitSentences(text)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return strings.Join(sentences, " ")
}

// FirstSentence returns the first sentence of text, or "".
func FirstSentence(text string) string {
	return TakeSentences(text, 1)
}

// TruncateRunes clips s to at most n runes.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// BulletJoin renders non-empty items as a dash list.
func BulletJoin(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		if item == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(item)
	}
	return sb.String()
}
