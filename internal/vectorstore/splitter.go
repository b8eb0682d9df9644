package vectorstore

import (
	"strings"
	"unicode"

	"github.com/txxxxz/autonote/internal/layout"
)

// SplitConfig controls how page text is cut into retrieval documents.
type SplitConfig struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Minimum chunk size to emit.
}

func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		ChunkSize:    400,
		ChunkOverlap: 60,
		MinChunk:     20,
	}
}

// SplitPages turns a layout document into retrieval documents, one or
// more per page. Page attribution survives splitting so retrieval hits
// can be traced back to slides.
func SplitPages(doc *layout.Doc, cfg SplitConfig) []Document {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 400
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 60
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = 20
	}

	var docs []Document
	for _, page := range doc.Pages {
		text := layout.PageText(page)
		if text == "" {
			continue
		}
		tokens := estimateTokens(text)
		if tokens <= cfg.ChunkSize {
			// Whole pages are kept even below MinChunk; a title-only
			// slide may be the only evidence for its topic.
			docs = append(docs, Document{PageContent: text, Page: page.PageNo})
			continue
		}
		for _, part := range splitText(text, cfg.ChunkSize, cfg.ChunkOverlap) {
			if estimateTokens(part) >= cfg.MinChunk {
				docs = append(docs, Document{PageContent: part, Page: page.PageNo})
			}
		}
	}
	return docs
}

// splitText breaks text into chunks of approximately targetTokens, with overlap.
func splitText(text string, targetTokens, overlapTokens int) []string {
	paragraphs := splitByParagraphs(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, para := range paragraphs {
		paraTokens := estimateTokens(para)

		// A single oversized paragraph gets split by sentences.
		if paraTokens > targetTokens {
			if currentTokens > 0 {
				result = append(result, current.String())
				current.Reset()
				currentTokens = 0
			}
			result = append(result, splitBySentences(para, targetTokens, overlapTokens)...)
			continue
		}

		if currentTokens+paraTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())

			overlap := overlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = estimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}
	return result
}

func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func splitBySentences(text string, targetTokens, overlapTokens int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range sentences {
		sentTokens := estimateTokens(sent)

		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			overlap := overlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = estimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}
	return result
}

// splitSentences handles both CJK and Latin sentence terminators.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		switch r {
		case '。', '！', '？':
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		case '.', '!', '?':
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// overlapText extracts roughly the last N tokens worth of text.
func overlapText(text string, targetTokens int) string {
	runes := []rune(text)
	// Approximate: 2 chars per token for mixed-script slide text.
	targetRunes := targetTokens * 2
	if targetRunes <= 0 || len(runes) <= targetRunes {
		return ""
	}
	return strings.TrimSpace(string(runes[len(runes)-targetRunes:]))
}

// estimateTokens is a rough heuristic covering mixed Chinese/English
// text: CJK runes count individually, Latin text by words.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	cjk := 0
	var latin strings.Builder
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			cjk++
		} else {
			latin.WriteRune(r)
		}
	}
	words := len(strings.Fields(latin.String()))
	tokens := cjk + int(float64(words)*1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
