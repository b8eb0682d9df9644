package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/txxxxz/autonote/internal/layout"
)

// MarkdownParser handles Markdown lecture notes using goldmark. Level
// 1-2 headings open a new logical page; deeper headings stay in the
// page body.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*layout.Deck, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	deck := &layout.Deck{Title: stripExt(filename)}
	var pageTitle string
	var body []string

	flush := func() {
		if pageTitle == "" && len(body) == 0 {
			return
		}
		pageNo := len(deck.Slides) + 1
		page := layout.SlidePage{PageNo: pageNo}
		if pageTitle != "" {
			page.Blocks = append(page.Blocks, titleBlock(pageNo, 0, pageTitle))
		}
		if len(body) > 0 {
			page.Blocks = append(page.Blocks, textBlock(pageNo, len(page.Blocks), strings.Join(body, "\n")))
		}
		deck.Slides = append(deck.Slides, page)
		pageTitle = ""
		body = nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if heading, ok := n.(*ast.Heading); ok {
			title := string(heading.Text(src))
			if title == "" {
				continue
			}
			if heading.Level <= 2 {
				flush()
				pageTitle = title
			} else {
				body = append(body, title)
			}
			continue
		}
		if t := extractText(n, src); t != "" {
			body = append(body, t)
		}
	}
	flush()
	return deck, nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
