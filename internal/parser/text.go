package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/txxxxz/autonote/internal/layout"
)

// TextParser handles plain-text transcripts. Blank-line-separated
// paragraph groups become logical pages so outline reconstruction has
// per-page units to work with.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*layout.Deck, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	deck := &layout.Deck{Title: stripExt(filename)}
	for _, para := range paragraphs {
		deck.Slides = append(deck.Slides, pageFromText(len(deck.Slides)+1, para))
	}
	return deck, nil
}
