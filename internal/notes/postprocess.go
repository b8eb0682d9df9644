package notes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/txxxxz/autonote/internal/outline"
	"github.com/txxxxz/autonote/internal/style"
)

// bareHeadingRe matches page-number-only headings. Decorated headings
// carry a topical label before the page token and no longer match, so
// decoration cannot be applied twice.
var bareHeadingRe = regexp.MustCompile(`(?m)^(#{2,6})\s*(?:第(\d+)页|Page\s+(\d+))\s*$`)

var analogyTokens = []string{"打个比方", "比方", "就像", "类比", "analogy", "like a"}

// PostProcess validates and repairs rendered markdown against the
// style directives. Every repair is append-only and idempotent; a
// second pass over compliant text changes nothing. Repairs come back
// as warnings, never errors.
func PostProcess(body string, section *outline.Node, d style.Directives) (string, []string) {
	var warnings []string

	body, warns := ensurePageHeaders(body, section, d)
	warnings = append(warnings, warns...)

	body = decoratePageHeaders(body, section, d)

	body, warns = ensureSummary(body, d)
	warnings = append(warnings, warns...)

	body, warns = ensureAnalogy(body, d)
	warnings = append(warnings, warns...)

	body, warns = ensureBlockquote(body, d)
	warnings = append(warnings, warns...)

	return body, warnings
}

// ensurePageHeaders appends a stub heading plus TODO blockquote for
// every covered page that no heading line mentions. Decorated headings
// still contain the page token, so they satisfy the check.
func ensurePageHeaders(body string, section *outline.Node, d style.Directives) (string, []string) {
	var warnings []string
	lines := strings.Split(body, "\n")
	for _, page := range section.CoveredPages() {
		re := pageTokenRe(page)
		found := false
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "#") && re.MatchString(line) {
				found = true
				break
			}
		}
		if found {
			continue
		}
		stub := fmt.Sprintf(d.PageHeaderTemplate, page) + "\n\n" + todoBlockquote(d.Language)
		body = strings.TrimRight(body, "\n") + "\n\n" + stub
		lines = append(lines, strings.Split(stub, "\n")...)
		warnings = append(warnings, fmt.Sprintf("missing page header for page %d, stub appended", page))
	}
	return body, warnings
}

func pageTokenRe(page int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`第%d页|[Pp]age\s+%d\b`, page, page))
}

func todoBlockquote(lang style.Language) string {
	if lang == style.LangEN {
		return "> TODO: to be filled in"
	}
	return "> TODO：待补充"
}

// decoratePageHeaders rewrites bare page-number headings into labeled
// ones carrying the nearest enclosing outline title plus a page badge.
func decoratePageHeaders(body string, section *outline.Node, d style.Directives) string {
	return bareHeadingRe.ReplaceAllStringFunc(body, func(match string) string {
		groups := bareHeadingRe.FindStringSubmatch(match)
		hashes := groups[1]
		num := groups[2]
		if num == "" {
			num = groups[3]
		}
		page := 0
		fmt.Sscanf(num, "%d", &page)
		label := titleForPage(section, page)
		if d.Language == style.LangEN {
			return fmt.Sprintf("%s %s (Page %d)", hashes, label, page)
		}
		return fmt.Sprintf("%s %s（第%d页）", hashes, label, page)
	})
}

// titleForPage picks the deepest outline node covering the page, so a
// slide inside a subsection is labeled with that subsection's title.
func titleForPage(section *outline.Node, page int) string {
	best := section.Title
	var walk func(n *outline.Node)
	walk = func(n *outline.Node) {
		for _, p := range n.CoveredPages() {
			if p == page {
				if n.Title != "" {
					best = n.Title
				}
				break
			}
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(section)
	if best == "" {
		best = "本节内容"
	}
	return best
}

func ensureSummary(body string, d style.Directives) (string, []string) {
	var label, alt string
	switch d.SummaryMode {
	case style.SummaryTakeaway:
		label, alt = style.TakeawayLabelZH, style.TakeawayLabelEN
	case style.SummaryInsight:
		label, alt = style.InsightLabelZH, style.InsightLabelEN
	default:
		return body, nil
	}
	lower := strings.ToLower(body)
	if strings.Contains(lower, strings.ToLower(label)) || strings.Contains(lower, strings.ToLower(alt)) {
		return body, nil
	}
	want := label
	filler := "待补充"
	sep := "："
	if d.Language == style.LangEN {
		want = alt
		filler = "to be filled in"
		sep = ": "
	}
	stub := "> **" + want + "**" + sep + filler
	body = strings.TrimRight(body, "\n") + "\n\n" + stub
	return body, []string{"missing summary block, stub appended"}
}

func ensureAnalogy(body string, d style.Directives) (string, []string) {
	if !d.AnalogyRequired {
		return body, nil
	}
	lower := strings.ToLower(body)
	for _, token := range analogyTokens {
		if strings.Contains(lower, strings.ToLower(token)) {
			return body, nil
		}
	}
	stub := "打个比方：待补充。"
	if d.Language == style.LangEN {
		stub = "Analogy: to be filled in, like a familiar everyday scene."
	}
	body = strings.TrimRight(body, "\n") + "\n\n" + stub
	return body, []string{"missing analogy, stub appended"}
}

func ensureBlockquote(body string, d style.Directives) (string, []string) {
	if !d.BlockquoteRequired {
		return body, nil
	}
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			return body, nil
		}
	}
	stub := "> 重点提示：待补充"
	if d.Language == style.LangEN {
		stub = "> Key reminder: to be filled in"
	}
	body = strings.TrimRight(body, "\n") + "\n\n" + stub
	return body, []string{"missing blockquote, stub appended"}
}
