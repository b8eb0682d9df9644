// Package parser extracts lecture source files into raw slide decks
// for layout analysis. Extraction is best-effort text recovery, not
// full-fidelity rendering.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/txxxxz/autonote/internal/layout"
)

// Parser converts raw document bytes into a slide deck.
type Parser interface {
	Parse(r io.Reader, filename string) (*layout.Deck, error)
}

// PdftotextFallback enables shelling out to pdftotext when native PDF
// extraction yields nothing. Set once at startup.
var PdftotextFallback = true

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".pptx":     true,
	".docx":     true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{FallbackPdftotext: PdftotextFallback}, nil
	case ".pptx":
		return &PPTXParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ParseFile opens and parses a file from disk.
func ParseFile(path string) (*layout.Deck, error) {
	p, err := ForFile(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return p.Parse(f, filepath.Base(path))
}

const maxTitleLineRunes = 60

// pageFromText turns one page's plain text into blocks: a short first
// line becomes the title block, the remainder a single text block.
func pageFromText(pageNo int, text string) layout.SlidePage {
	page := layout.SlidePage{PageNo: pageNo}
	lines := strings.Split(text, "\n")

	var body []string
	titleTaken := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !titleTaken {
			titleTaken = true
			if utf8.RuneCountInString(line) <= maxTitleLineRunes {
				page.Blocks = append(page.Blocks, layout.SlideBlock{
					ID:      blockID(pageNo, len(page.Blocks)),
					Type:    layout.KindTitle,
					Order:   len(page.Blocks),
					RawText: line,
				})
				continue
			}
		}
		body = append(body, line)
	}
	if len(body) > 0 {
		page.Blocks = append(page.Blocks, layout.SlideBlock{
			ID:      blockID(pageNo, len(page.Blocks)),
			Type:    layout.KindText,
			Order:   len(page.Blocks),
			RawText: strings.Join(body, "\n"),
		})
	}
	return page
}

func blockID(page, idx int) string {
	return fmt.Sprintf("p%d_b%d", page, idx)
}

func titleBlock(pageNo, order int, text string) layout.SlideBlock {
	return layout.SlideBlock{
		ID:      blockID(pageNo, order),
		Type:    layout.KindTitle,
		Order:   order,
		RawText: text,
	}
}

func textBlock(pageNo, order int, text string) layout.SlideBlock {
	return layout.SlideBlock{
		ID:      blockID(pageNo, order),
		Type:    layout.KindText,
		Order:   order,
		RawText: text,
	}
}

func stripExt(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
