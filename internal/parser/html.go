package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/txxxxz/autonote/internal/layout"
)

// HTMLParser handles exported HTML lecture pages. h1/h2 headings open
// a new logical page; deeper headings and content elements become body
// text.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*layout.Deck, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	deck := &layout.Deck{Title: stripExt(filename)}
	if title := findTitle(doc); title != "" {
		deck.Title = title
	}

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

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				text := textContent(n)
				if text == "" {
					return
				}
				if level <= 2 {
					flush()
					pageTitle = text
				} else {
					body = append(body, text)
				}
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "p", "li", "td", "blockquote":
				if t := textContent(n); t != "" {
					body = append(body, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if bodyNode := findBody(doc); bodyNode != nil {
		walk(bodyNode)
	} else {
		walk(doc)
	}
	flush()
	return deck, nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
