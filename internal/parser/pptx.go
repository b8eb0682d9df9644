package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/txxxxz/autonote/internal/layout"
)

// PPTXParser handles PowerPoint decks. A pptx file is a zip of slide
// XML parts; text lives in a:t runs grouped into a:p paragraphs.
type PPTXParser struct{}

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (p *PPTXParser) Parse(r io.Reader, filename string) (*layout.Deck, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pptx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pptx archive: %w", err)
	}

	type slidePart struct {
		num  int
		file *zip.File
	}
	var parts []slidePart
	for _, f := range zr.File {
		m := slidePartRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		parts = append(parts, slidePart{num: num, file: f})
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("pptx %s: no slide parts found", filename)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].num < parts[j].num })

	deck := &layout.Deck{Title: stripExt(filename)}
	for i, part := range parts {
		paragraphs, err := slideParagraphs(part.file)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", part.num, err)
		}
		page := slidePageFromParagraphs(i+1, paragraphs)
		if len(page.Blocks) == 0 {
			continue
		}
		deck.Slides = append(deck.Slides, page)
	}
	renumber(deck)
	return deck, nil
}

// slideParagraphs streams one slide part and returns its paragraph
// texts in document order.
func slideParagraphs(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode slide xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = inParagraph
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					if text := strings.TrimSpace(current.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
					inParagraph = false
				}
			}
		}
	}
	return paragraphs, nil
}

// slidePageFromParagraphs treats the first short paragraph as the
// slide title and the rest as body text.
func slidePageFromParagraphs(pageNo int, paragraphs []string) layout.SlidePage {
	page := layout.SlidePage{PageNo: pageNo}
	var body []string
	for _, para := range paragraphs {
		if len(page.Blocks) == 0 && len(body) == 0 && runeLen(para) <= maxTitleLineRunes {
			page.Blocks = append(page.Blocks, titleBlock(pageNo, 0, para))
			continue
		}
		body = append(body, para)
	}
	if len(body) > 0 {
		page.Blocks = append(page.Blocks, textBlock(pageNo, len(page.Blocks), strings.Join(body, "\n")))
	}
	return page
}

// renumber makes page numbers contiguous after empty slides are
// skipped.
func renumber(deck *layout.Deck) {
	for i := range deck.Slides {
		pageNo := i + 1
		deck.Slides[i].PageNo = pageNo
		for j := range deck.Slides[i].Blocks {
			deck.Slides[i].Blocks[j].ID = blockID(pageNo, j)
			deck.Slides[i].Blocks[j].Order = j
		}
	}
}

func runeLen(s string) int {
	return len([]rune(s))
}
