package layout

import (
	"fmt"
	"sort"

	"github.com/txxxxz/autonote/internal/textutil"
)

// Build converts raw parsed slides into a layout document: blocks are
// ordered, text is whitespace-normalized, and figure/formula/table
// elements receive captions usable by downstream generators.
func Build(deck *Deck) *Doc {
	doc := &Doc{Pages: make([]Page, 0, len(deck.Slides))}
	for _, slide := range deck.Slides {
		blocks := make([]SlideBlock, len(slide.Blocks))
		copy(blocks, slide.Blocks)
		sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Order < blocks[j].Order })

		elements := make([]Element, 0, len(blocks))
		for _, block := range blocks {
			if el, ok := blockToElement(slide.PageNo, block); ok {
				elements = append(elements, el)
			}
		}
		doc.Pages = append(doc.Pages, Page{PageNo: slide.PageNo, Elements: elements})
	}
	return doc
}

func blockToElement(pageNo int, block SlideBlock) (Element, bool) {
	switch block.Type {
	case KindTitle, KindText:
		return Element{
			Ref:     block.ID,
			Kind:    block.Type,
			Content: textutil.NormalizeWhitespace(block.RawText),
		}, true
	case KindFormula:
		caption := textutil.FirstSentence(block.RawText)
		if caption == "" {
			caption = "公式说明"
		}
		latex := block.Latex
		if latex == "" {
			latex = block.RawText
		}
		return Element{Ref: block.ID, Kind: KindFormula, Latex: latex, Caption: caption}, true
	case KindImage:
		return Element{
			Ref:      block.ID,
			Kind:     KindImage,
			ImageURI: block.AssetURI,
			Caption:  fmt.Sprintf("第%d页插图", pageNo),
		}, true
	case KindTable:
		return Element{
			Ref:     block.ID,
			Kind:    KindTable,
			Content: block.RawText,
			Caption: fmt.Sprintf("第%d页表格", pageNo),
		}, true
	}
	return Element{}, false
}

// PageText returns the concatenated retrievable text of a page: element
// content plus labeled captions and formulas. Empty pages yield "".
func PageText(page Page) string {
	var segments []string
	for _, el := range page.Elements {
		if el.Content != "" {
			segments = append(segments, el.Content)
		}
		if el.Caption != "" && el.Kind != KindTitle && el.Kind != KindText {
			segments = append(segments, fmt.Sprintf("%s说明: %s", kindLabel(el.Kind), el.Caption))
		}
		if el.Latex != "" {
			segments = append(segments, "公式: "+el.Latex)
		}
	}
	var sb []byte
	for i, seg := range segments {
		if i > 0 {
			sb = append(sb, '\n')
		}
		sb = append(sb, seg...)
	}
	return string(sb)
}

// TextByPage builds the page→text map consumed by context composition.
func TextByPage(doc *Doc) map[int]string {
	m := make(map[int]string, len(doc.Pages))
	for _, page := range doc.Pages {
		if text := PageText(page); text != "" {
			m[page.PageNo] = text
		}
	}
	return m
}

func kindLabel(kind ElementKind) string {
	switch kind {
	case KindImage:
		return "图像"
	case KindFormula:
		return "公式"
	case KindTable:
		return "表格"
	}
	return "内容"
}
