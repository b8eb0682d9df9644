package notes

import (
	"fmt"
	"strings"

	"github.com/txxxxz/autonote/internal/outline"
)

// ComposeContext flattens one section into the evidence block handed to
// the renderer: title, page span, summary, per-page source text, and a
// bulleted sketch of the substructure when the section has children.
func ComposeContext(section *outline.Node, pageText map[int]string) string {
	pages := section.CoveredPages()

	var sb strings.Builder
	sb.WriteString("章节: " + section.Title + "\n")
	sb.WriteString("页码范围: " + pageSpan(pages) + "\n")
	if section.Summary != "" {
		sb.WriteString("摘要: " + section.Summary + "\n")
	}
	sb.WriteString("\n")

	for _, page := range pages {
		text := strings.TrimSpace(pageText[page])
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "【第%d页】\n%s\n\n", page, text)
	}

	if len(section.Children) > 0 {
		sb.WriteString("子结构参考:\n")
		writeSubstructure(&sb, section.Children, 0)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeSubstructure(sb *strings.Builder, nodes []*outline.Node, depth int) {
	for _, n := range nodes {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString("- " + n.Title)
		if n.Summary != "" {
			sb.WriteString(": " + n.Summary)
		}
		sb.WriteString("\n")
		writeSubstructure(sb, n.Children, depth+1)
	}
}

// pageSpan formats a covered-page list as "p.N" or "p.N-M". Sparse
// coverage still reports the outer bounds; per-page segments carry the
// exact pages.
func pageSpan(pages []int) string {
	if len(pages) == 0 {
		return "p.?"
	}
	if len(pages) == 1 || pages[0] == pages[len(pages)-1] {
		return fmt.Sprintf("p.%d", pages[0])
	}
	return fmt.Sprintf("p.%d-%d", pages[0], pages[len(pages)-1])
}
