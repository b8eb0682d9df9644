package notes

import (
	"fmt"
	"strings"

	"github.com/txxxxz/autonote/internal/outline"
	"github.com/txxxxz/autonote/internal/style"
	"github.com/txxxxz/autonote/internal/textutil"
)

// systemPrompt is the fixed persona for section rendering. The
// language directive is appended per profile.
func systemPrompt(language style.Language) string {
	label := "Simplified Chinese"
	if language == style.LangEN {
		label = "English"
	}
	return "You are StudyCompanion, tasked with generating structured course notes. " +
		"You must adhere to the provided outline, respect the style instructions, " +
		"and reference the supplied context. Output in GitHub-flavoured Markdown. " +
		"Write every heading, sentence, and annotation in " + label + "."
}

// buildPrompt assembles the user message: section metadata, style
// block, page-ordered writing scaffold, evidence context, and the
// fixed format rules.
func buildPrompt(section *outline.Node, profile *style.Profile, contextText string) string {
	var sb strings.Builder
	sb.WriteString("章节标题: " + section.Title + "\n")
	sb.WriteString("大纲摘要: " + section.Summary + "\n")
	sb.WriteString("风格指令:\n" + profile.PromptBlock() + "\n\n")
	sb.WriteString("写作脚手架（按页推进，保持顺序）:\n")
	sb.WriteString(buildScaffold(section, profile.Directives))
	sb.WriteString("\n上下文材料:\n" + contextText + "\n\n")
	sb.WriteString(formatRules)
	return sb.String()
}

// buildScaffold emits one writing stub per covered page so the model
// walks the slides in order instead of free-associating.
func buildScaffold(section *outline.Node, d style.Directives) string {
	var sb strings.Builder
	for _, page := range section.CoveredPages() {
		sb.WriteString(fmt.Sprintf(d.PageHeaderTemplate, page))
		sb.WriteString("\n")
		sb.WriteString("- 核心想法：这一页最重要的概念或结论是什么。\n")
		sb.WriteString("- 细节与推导：展开关键步骤、条件或证据。\n")
		if d.AnalogyRequired {
			sb.WriteString("- 比喻：用一个贴近日常的比方帮助理解。\n")
		}
		if d.SummaryMode != style.SummaryNone {
			sb.WriteString("- 收束：用一句话点明这一页与章节主线的关系。\n")
		}
	}
	return sb.String()
}

const formatRules = "请基于以上信息，生成**严格符合以下格式和内容要求**的 Markdown 内容：\n" +
	"### 格式要求\n" +
	"1. **标题层级**：仅使用二级标题（##）和三级标题（###），禁止一级标题（#）。\n" +
	"   - 二级标题用于核心模块（如\"## 核心概念\"\"## 推导过程\"）。\n" +
	"   - 三级标题用于子模块（如\"### 定义1\"\"### 性质2\"）。\n" +
	"2. **列表格式**：所有列表必须以短横线（-）开头，禁止星号（*）或数字序号。\n" +
	"3. **公式格式**：所有数学公式必须用 $$ 包裹（块级公式），如：$$L = -\\sum p_j \\log(q_j)$$。\n" +
	"   - 强制要求：公式必须完整闭合（开头和结尾都是 $$），禁止单独出现 $ 或未闭合的 $$。\n" +
	"   - 禁止公式内换行，确保 $$ 之间为完整公式（避免拆分到两行）。\n" +
	"4. **图像占位符**：引用图表时使用 [FIG_PAGE_<页号>_IDX_<序号>: 描述] 形式。\n" +
	"5. **段落分隔**：不同模块之间用**一个空行**分隔，禁止连续空行。\n" +
	"### 内容要求\n" +
	"1. **严格过滤无关信息**：\n" +
	"   - 剔除所有页码标记（如 `6/78` `10/78` 等格式）。\n" +
	"   - 剔除重复文本与无意义标记。\n" +
	"   - 禁止直接复制上下文的原始段落，需用自己的语言重新组织。\n" +
	"2. **必含结构**：\n" +
	"   - ## 核心概念与解释\n" +
	"   - ## 关键结论或定理\n" +
	"   - ## 示例与推导（若上下文支持则包含）\n" +
	"   - ## 小结\n" +
	"3. **避免添加**：超出上下文的内容（如需补充请标注\"扩展说明\"）、冗余格式标记。\n" +
	"请严格遵循以上要求，输出仅保留与章节主题强相关的核心信息，格式统一、内容精炼。"

// fallbackSection is the deterministic degraded path: heading, summary,
// and the first few non-blank context lines as bullets. It never fails.
func fallbackSection(section *outline.Node, contextText string) string {
	var items []string
	for _, line := range strings.Split(contextText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, line)
		if len(items) == 5 {
			break
		}
	}
	body := "### " + section.Title + "\n\n" + section.Summary
	if bullets := textutil.BulletJoin(items); bullets != "" {
		body += "\n\n" + bullets
	}
	return body
}
