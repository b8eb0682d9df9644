package outline

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/txxxxz/autonote/internal/ids"
)

// ErrEmptyOutline is returned when markdown contains no recognizable
// headings.
var ErrEmptyOutline = errors.New("outline markdown contains no headings")

const maxHeadingLevel = 5

// missingSummary stands in for sections whose markdown carried no
// summary blockquote.
const missingSummary = "未提供摘要"

// RenderMarkdown renders a tree as ATX headings with summary
// blockquotes and, where page bounds are known, a trailing page-range
// annotation.
func RenderMarkdown(tree *Tree) string {
	if tree == nil || tree.Root == nil {
		return ""
	}
	var lines []string
	var visit func(node *Node, depth int)
	visit = func(node *Node, depth int) {
		level := depth
		if level < 1 {
			level = 1
		}
		if level > maxHeadingLevel {
			level = maxHeadingLevel
		}
		title := strings.TrimSpace(node.Title)
		if title == "" {
			title = "Untitled Section " + node.SectionID
		}
		heading := strings.Repeat("#", level) + " " + title
		if node.PageStart > 0 {
			if node.PageEnd > node.PageStart {
				heading += fmt.Sprintf(" (pages: %d-%d)", node.PageStart, node.PageEnd)
			} else {
				heading += fmt.Sprintf(" (pages: %d)", node.PageStart)
			}
		}
		lines = append(lines, heading)
		if summary := strings.TrimSpace(node.Summary); summary != "" {
			lines = append(lines, "> "+summary)
		}
		lines = append(lines, "")
		next := level + 1
		if next > maxHeadingLevel {
			next = maxHeadingLevel
		}
		for _, child := range node.Children {
			visit(child, next)
		}
	}
	visit(tree.Root, 1)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

type parsedHeading struct {
	level   int
	title   string
	summary string
	pages   []int
}

var (
	pagesAnnotationRe = regexp.MustCompile(`(?i)\((?:pages?|p)\.?\s*[:：]?\s*([^)]+)\)\s*$`)
	summaryPrefixRe   = regexp.MustCompile(`(?i)^(summary|摘要)\s*[:：]\s*`)
)

// ParseMarkdown parses an outline rendered (by us or by a model) as
// markdown: ATX headings up to level 5, an optional trailing
// "(pages: …)" annotation per heading, and an immediately-following
// blockquote as the section summary.
func ParseMarkdown(markdown string) (*Tree, error) {
	headings := parseHeadings(markdown)
	if len(headings) == 0 {
		return nil, ErrEmptyOutline
	}
	return treeFromHeadings(headings), nil
}

func parseHeadings(markdown string) []parsedHeading {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var headings []parsedHeading
	afterHeading := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			level := node.Level
			if level > maxHeadingLevel {
				level = maxHeadingLevel
			}
			raw := strings.TrimSpace(string(node.Text(src)))
			title, pages := stripPagesAnnotation(raw)
			if title == "" {
				title = "未命名章节"
			}
			headings = append(headings, parsedHeading{level: level, title: title, pages: pages})
			afterHeading = true
		case *ast.Blockquote:
			// Only a blockquote directly under its heading counts as
			// that section's summary.
			if afterHeading && len(headings) > 0 {
				summary := strings.TrimSpace(string(node.Text(src)))
				summary = summaryPrefixRe.ReplaceAllString(summary, "")
				headings[len(headings)-1].summary = summary
			}
			afterHeading = false
		default:
			afterHeading = false
		}
	}
	for i := range headings {
		if headings[i].summary == "" {
			headings[i].summary = missingSummary
		}
	}
	return headings
}

func stripPagesAnnotation(title string) (string, []int) {
	match := pagesAnnotationRe.FindStringSubmatch(title)
	if match == nil {
		return title, nil
	}
	cleaned := strings.TrimSpace(pagesAnnotationRe.ReplaceAllString(title, ""))
	return cleaned, expandPageSpec(match[1])
}

// expandPageSpec expands a comma-separated page annotation ("3, 5-7")
// into page numbers, deduplicated preserving order. Dash ranges accept
// hyphen, en dash, and em dash; reversed bounds are normalized.
func expandPageSpec(spec string) []int {
	var pages []int
	seen := make(map[int]bool)
	add := func(p int) {
		if p > 0 && !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
	}
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		normalized := strings.NewReplacer("–", "-", "—", "-").Replace(token)
		if start, end, ok := strings.Cut(normalized, "-"); ok {
			lo, err1 := strconv.Atoi(strings.TrimSpace(start))
			hi, err2 := strconv.Atoi(strings.TrimSpace(end))
			if err1 != nil || err2 != nil {
				continue
			}
			if lo > hi {
				lo, hi = hi, lo
			}
			for p := lo; p <= hi; p++ {
				add(p)
			}
			continue
		}
		if p, err := strconv.Atoi(normalized); err == nil {
			add(p)
		}
	}
	return pages
}

// treeFromHeadings rebuilds a tree using the same level-ordered stack
// walk as the natural builder. A single top-level heading becomes the
// root; multiple top-level headings get a synthetic root above them.
func treeFromHeadings(headings []parsedHeading) *Tree {
	var forest []*Node
	var stack []*Node
	for _, h := range headings {
		node := &Node{
			SectionID: ids.New("s"),
			Title:     h.title,
			Summary:   h.summary,
			Level:     h.level,
		}
		node.AddPages(h.pages)
		for len(stack) > 0 && stack[len(stack)-1].Level >= h.level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			forest = append(forest, node)
		} else {
			stack[len(stack)-1].AttachChild(node)
		}
		for _, ancestor := range stack {
			ancestor.AddPages(h.pages)
		}
		stack = append(stack, node)
	}

	var root *Node
	if len(forest) == 1 {
		root = forest[0]
		root.SectionID = ids.New("root")
	} else {
		root = &Node{SectionID: ids.New("root"), Title: "课程材料"}
		for _, top := range forest {
			root.AttachChild(top)
		}
		if root.Summary == "" {
			root.Summary = rootSummary(root.Children)
		}
	}
	relevel(root, 0)
	return &Tree{Root: root}
}

func relevel(node *Node, depth int) {
	node.Level = depth
	for _, child := range node.Children {
		relevel(child, depth+1)
	}
}
