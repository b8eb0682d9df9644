package outline

import (
	"context"
	"fmt"
	"strings"

	"github.com/txxxxz/autonote/internal/layout"
	"github.com/txxxxz/autonote/internal/llm"
)

const (
	// MinChapters is the quality gate for a model-authored outline:
	// anything with fewer top-level chapters falls back to the
	// page-level heuristic.
	MinChapters = 2

	// maxContextChars clips the whole-document context handed to the
	// outline-authoring model call.
	maxContextChars = 18000

	outlineTemperature = 0.1
)

const semanticSystemPrompt = "You are a curriculum editor. You restructure raw lecture " +
	"slide text into a coherent chapter outline. Respond with Markdown only."

// BuildSemantic asks the generation collaborator to restructure the
// page stream into a chapter outline. The result is accepted only when
// it parses into at least MinChapters top-level chapters; on any
// failure the heuristic page-level outline is used instead.
func (b *Builder) BuildSemantic(ctx context.Context, client llm.Client, doc *layout.Doc, fallback *Tree) *Tree {
	if client == nil {
		return b.BuildNatural(doc, fallback)
	}

	prompt := semanticPrompt(doc)
	raw, err := client.Invoke(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: semanticSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}, outlineTemperature)
	if err != nil {
		b.Log.Warn("semantic outline generation failed, using heuristic outline", "error", err)
		return b.BuildNatural(doc, fallback)
	}

	tree, err := ParseMarkdown(raw)
	if err != nil {
		b.Log.Warn("semantic outline unparseable, using heuristic outline", "error", err)
		return b.BuildNatural(doc, fallback)
	}
	if len(tree.Root.Children) < MinChapters {
		b.Log.Warn("semantic outline below quality gate, using heuristic outline",
			"chapters", len(tree.Root.Children), "min", MinChapters)
		return b.BuildNatural(doc, fallback)
	}
	tree.Markdown = RenderMarkdown(tree)
	return tree
}

func semanticPrompt(doc *layout.Doc) string {
	var sb strings.Builder
	sb.WriteString("将以下课件逐页内容重组为层次化章节大纲。要求：\n")
	sb.WriteString("- 使用 Markdown ATX 标题（# 到 ###），一级标题为章，至少 2 章。\n")
	sb.WriteString("- 每个标题末尾用 (pages: x-y) 标注覆盖的页码，可逗号分隔多段。\n")
	sb.WriteString("- 每个标题下一行写 `> Summary: ` 加一句话摘要。\n")
	sb.WriteString("- 只输出大纲本身，不要额外说明。\n\n")

	budget := maxContextChars
	for _, page := range doc.Pages {
		text := layout.PageText(page)
		if text == "" {
			continue
		}
		segment := fmt.Sprintf("【第%d页】\n%s\n\n", page.PageNo, text)
		if len(segment) > budget {
			break
		}
		sb.WriteString(segment)
		budget -= len(segment)
	}
	return sb.String()
}
