package outline

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/txxxxz/autonote/internal/ids"
	"github.com/txxxxz/autonote/internal/layout"
	"github.com/txxxxz/autonote/internal/textutil"
)

const (
	// DefaultSimilarityThreshold gates the fuzzy sibling merge. The
	// right value is an empirical tunable; observed revisions of this
	// heuristic have shipped anywhere between 0.88 and 0.95.
	DefaultSimilarityThreshold = 0.90

	maxAnchorsPerPage  = 6
	maxSummaryChars    = 320
	maxMergedSentences = 5
	maxTitleChars      = 60

	emptySummaryPlaceholder = "本页内容概述为空。"
)

// Builder reconstructs an outline tree from a flat page stream.
type Builder struct {
	SimilarityThreshold float64
	Log                 *slog.Logger
}

func NewBuilder(log *slog.Logger) *Builder {
	return &Builder{SimilarityThreshold: DefaultSimilarityThreshold, Log: log}
}

// pageUnit is the per-page tuple feeding tree construction.
type pageUnit struct {
	title   string
	summary string
	anchors []layout.AnchorRef
	level   int
	pages   []int
}

// BuildNatural builds a hierarchical outline from page elements. When
// fallback already has children (a prior semantic or externally
// supplied outline), it is returned unchanged apart from rendering its
// markdown. Reconstruction never propagates failures: anything
// unexpected degrades to the fallback tree.
func (b *Builder) BuildNatural(doc *layout.Doc, fallback *Tree) (out *Tree) {
	if fallback != nil && fallback.Root != nil && len(fallback.Root.Children) > 0 {
		ensureMarkdown(fallback)
		return fallback
	}

	defer func() {
		if r := recover(); r != nil {
			b.Log.Warn("outline reconstruction failed, keeping fallback", "panic", r)
			ensureMarkdown(fallback)
			out = fallback
		}
	}()

	units := b.extractPageUnits(doc)
	if len(units) == 0 {
		ensureMarkdown(fallback)
		return fallback
	}

	top := b.buildForest(units)
	if len(top) == 0 {
		ensureMarkdown(fallback)
		return fallback
	}

	root := &Node{
		SectionID: ids.New("root"),
		Title:     rootTitle(fallback),
		Summary:   rootSummary(top),
		Level:     0,
	}
	for _, child := range top {
		root.AttachChild(child)
	}
	tree := &Tree{Root: root}
	tree.Markdown = RenderMarkdown(tree)
	return tree
}

// buildForest walks page units in page order with a level-ordered stack
// of open nodes, merging visually-contiguous units whose titles are
// similar enough into one node instead of fragmenting the outline.
func (b *Builder) buildForest(units []pageUnit) []*Node {
	var top []*Node
	var stack []*Node

	for _, unit := range units {
		if unit.title == "" {
			if len(stack) == 0 {
				// Nothing to anchor untitled content to.
				b.Log.Debug("dropping untitled page unit", "pages", unit.pages)
				continue
			}
			mergeUnit(stack[len(stack)-1], unit)
			propagatePages(stack, unit.pages)
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= unit.level {
			stack = stack[:len(stack)-1]
		}

		siblings := &top
		if len(stack) > 0 {
			siblings = &stack[len(stack)-1].Children
		}

		if last := lastNode(*siblings); last != nil &&
			last.Level == unit.level &&
			titlesSimilar(last.Title, unit.title, b.SimilarityThreshold) {
			mergeUnit(last, unit)
			propagatePages(stack, unit.pages)
			stack = append(stack, last)
			continue
		}

		node := &Node{
			SectionID: ids.New("s"),
			Title:     unit.title,
			Summary:   unit.summary,
			Level:     unit.level,
		}
		node.AddAnchors(unit.anchors)
		node.AddPages(unit.pages)
		*siblings = append(*siblings, node)
		propagatePages(stack, unit.pages)
		stack = append(stack, node)
	}
	return top
}

func (b *Builder) extractPageUnits(doc *layout.Doc) []pageUnit {
	if doc == nil {
		return nil
	}
	units := make([]pageUnit, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		if len(page.Elements) == 0 {
			continue
		}
		units = append(units, extractPageUnit(page))
	}
	return units
}

func extractPageUnit(page layout.Page) pageUnit {
	var titleEl *layout.Element
	for i := range page.Elements {
		if page.Elements[i].Kind == layout.KindTitle && page.Elements[i].Content != "" {
			titleEl = &page.Elements[i]
			break
		}
	}

	var bodyParts []string
	for i := range page.Elements {
		el := &page.Elements[i]
		if el == titleEl || el.Content == "" {
			continue
		}
		bodyParts = append(bodyParts, el.Content)
	}
	body := textutil.NormalizeWhitespace(strings.Join(bodyParts, " "))

	title := ""
	if titleEl != nil {
		title = textutil.TruncateRunes(textutil.NormalizeWhitespace(titleEl.Content), maxTitleChars)
	} else if body != "" {
		title = textutil.TruncateRunes(textutil.FirstSentence(body), maxTitleChars)
	}

	summary := textutil.TruncateRunes(textutil.TakeSentences(body, 3), maxSummaryChars)
	if summary == "" {
		summary = emptySummaryPlaceholder
	}

	anchors := make([]layout.AnchorRef, 0, maxAnchorsPerPage)
	for _, el := range page.Elements {
		if len(anchors) == maxAnchorsPerPage {
			break
		}
		anchors = append(anchors, layout.AnchorRef{Page: page.PageNo, Ref: el.Ref})
	}

	return pageUnit{
		title:   title,
		summary: summary,
		anchors: anchors,
		level:   inferLevel(title),
		pages:   []int{page.PageNo},
	}
}

var (
	chapterPrefixRe = regexp.MustCompile(`^(第[0-9一二三四五六七八九十百]+章|[Cc]hapter\s+\d+)`)
	tripleNumericRe = regexp.MustCompile(`^\d+\.\d+\.\d+`)
	doubleNumericRe = regexp.MustCompile(`^\d+\.\d+`)
	singleNumericRe = regexp.MustCompile(`^\d+[\s.、]`)
)

// inferLevel guesses the heading level of a page title. Deliberately
// approximate: it knows Chinese chapter markers and Arabic dotted
// numbering, and misclassifies other conventions (Roman numerals,
// lettered sub-points).
func inferLevel(title string) int {
	trimmed := strings.TrimSpace(title)
	switch {
	case chapterPrefixRe.MatchString(trimmed):
		return 1
	case tripleNumericRe.MatchString(trimmed):
		return 3
	case doubleNumericRe.MatchString(trimmed):
		return 2
	case singleNumericRe.MatchString(trimmed):
		return 1
	case len(strings.Fields(trimmed)) <= 4:
		return 1
	default:
		return 2
	}
}

// mergeUnit folds a page unit into an existing node: the summary grows
// by sentence-budgeted concatenation, pages union, anchors dedupe.
func mergeUnit(node *Node, unit pageUnit) {
	if unit.summary != "" && unit.summary != emptySummaryPlaceholder {
		combined := strings.TrimSpace(node.Summary + " " + unit.summary)
		if node.Summary == emptySummaryPlaceholder || node.Summary == "" {
			combined = unit.summary
		}
		node.Summary = textutil.TruncateRunes(
			textutil.TakeSentences(combined, maxMergedSentences), maxSummaryChars+160)
	}
	node.AddPages(unit.pages)
	node.AddAnchors(unit.anchors)
}

func propagatePages(stack []*Node, pages []int) {
	for _, n := range stack {
		n.AddPages(pages)
	}
}

func lastNode(nodes []*Node) *Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[len(nodes)-1]
}

func rootTitle(fallback *Tree) string {
	if fallback != nil && fallback.Root != nil && fallback.Root.Title != "" {
		return fallback.Root.Title
	}
	return "课程材料"
}

func rootSummary(children []*Node) string {
	titles := make([]string, 0, 5)
	for _, child := range children {
		if len(titles) == 5 {
			break
		}
		titles = append(titles, child.Title)
	}
	if len(titles) == 0 {
		return "未检测到有效章节。"
	}
	return "本课程包含以下章节: " + strings.Join(titles, "；")
}

func ensureMarkdown(tree *Tree) {
	if tree != nil && tree.Root != nil && tree.Markdown == "" {
		tree.Markdown = RenderMarkdown(tree)
	}
}
