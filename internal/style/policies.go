// Package style derives writing instructions and machine-checkable
// directives from detail-level / tone / language selections. Profile
// construction is a pure lookup-and-compose with no external state.
package style

import (
	"errors"
	"fmt"
	"strings"
)

type DetailLevel string

const (
	DetailBrief    DetailLevel = "brief"
	DetailMedium   DetailLevel = "medium"
	DetailDetailed DetailLevel = "detailed"
)

type Tone string

const (
	ToneSimple      Tone = "simple"
	ToneExplanatory Tone = "explanatory"
	ToneAcademic    Tone = "academic"
)

type Language string

const (
	LangZH Language = "zh"
	LangEN Language = "en"
)

// SummaryMode selects the per-section summary obligation.
type SummaryMode string

const (
	SummaryNone     SummaryMode = "none"
	SummaryTakeaway SummaryMode = "takeaway"
	SummaryInsight  SummaryMode = "insight"
)

// FormulaMode selects how densely formulas are introduced.
type FormulaMode string

const (
	FormulaLight    FormulaMode = "light"
	FormulaBalanced FormulaMode = "balanced"
	FormulaExtended FormulaMode = "extended"
)

// ErrUnknownStyle is returned for a detail level or tone outside the
// enumerated sets. Callers surface it as a client error (400), never a
// silent default.
var ErrUnknownStyle = errors.New("unknown style")

// Directives are the machine-readable half of a profile: the
// post-processing pass validates model output against exactly these
// fields.
type Directives struct {
	SummaryMode        SummaryMode `json:"summary_mode"`
	FormulaMode        FormulaMode `json:"formula_mode"`
	AnalogyRequired    bool        `json:"analogy_required"`
	UseTable           bool        `json:"use_table"`
	BlockquoteRequired bool        `json:"blockquote_required"`
	PageHeaderTemplate string      `json:"page_header_template"`
	Language           Language    `json:"language"`
}

// Profile is the resolved style contract: prose instructions for the
// model, directives for validation, and an example snippet.
type Profile struct {
	Detail         DetailLevel `json:"detail_level"`
	Tone           Tone        `json:"tone"`
	Text           string      `json:"text"`
	Directives     Directives  `json:"directives"`
	ExampleSnippet string      `json:"example_snippet"`
}

// PromptBlock is the full instruction block embedded into prompts.
func (p *Profile) PromptBlock() string {
	if p.ExampleSnippet == "" {
		return p.Text
	}
	return p.Text + "\n\n" + p.ExampleSnippet
}

type detailPolicy struct {
	label         string
	ratioLow      float64
	ratioHigh     float64
	summary       string
	examples      string
	structure     string
	figureCaption string
	coverage      string
}

type tonePolicy struct {
	label            string
	voice            string
	terminology      string
	sentenceLength   string
	analogy          string
	formulaGuidance  string
	variablePolicy   string
	constraintPolicy string
	transition       string
}

var detailPolicies = map[DetailLevel]detailPolicy{
	DetailBrief: {
		label:         "简略",
		ratioLow:      0.6,
		ratioHigh:     0.8,
		summary:       "章节结尾可以省略总结；若必须总结，仅写 1 句核心 takeaway。",
		examples:      "避免展开案例；若资料只有案例，请提炼成一句结论即可。",
		structure:     "以 3-4 条短 bullet 或 1-2 句紧凑段落直接回答学生最关心的问题。",
		figureCaption: "图表或公式只需 1 句说明其用途或趋势。",
		coverage:      "聚焦结论、关键定义与记忆提示，省略推导细节。",
	},
	DetailMedium: {
		label:         "中等",
		ratioLow:      0.9,
		ratioHigh:     1.1,
		summary:       "每节结尾提供 1-2 句总结，回答学到了什么。",
		examples:      "至少写出 1 个例子或场景，突出关键步骤或直观感受。",
		structure:     "段落与 bullet 均衡，段首使用提示词保持衔接。",
		figureCaption: "图表或公式用 1-2 句说明目的与使用方式。",
		coverage:      "覆盖结论、定义与核心推理，必要时点出关键条件。",
	},
	DetailDetailed: {
		label:         "详细",
		ratioLow:      1.4,
		ratioHigh:     1.7,
		summary:       "总结需 2-4 句，可列要点清单，包含洞见与下一步提示。",
		examples:      "提供 2-3 个深入示例、推导节点或反例，说明条件与结果。",
		structure:     "以段落为主并穿插列表，明确因果、条件与跨页内容的延续关系。",
		figureCaption: "图表或公式需要 2-4 句阐述背景、变量含义与适用边界。",
		coverage:      "涵盖结论、定义、推理、约束与常见误区或实验洞察。",
	},
}

var tonePolicies = map[Tone]tonePolicy{
	ToneSimple: {
		label:            "亲切科普",
		voice:            "使用亲切、贴近口语的语气，先给人话结论再解释原因。",
		terminology:      "每 100 词不超过 2 个术语，并立即用日常语言解释。",
		sentenceLength:   "句长保持在 8-14 个中文词或等效长度，避免复合长句。",
		analogy:          "每个主题至少举 1 个贴近日常的比喻或生活场景。",
		formulaGuidance:  "先用文字解释直觉，再引入最多 1 个关键公式，说明它解决的问题。",
		variablePolicy:   "只点出最关键的变量含义，并融入句子而非罗列列表。",
		constraintPolicy: "强调最直接的使用注意事项即可，无需罗列复杂假设。",
		transition:       "多用打个比方、换句话说、这意味着等口头衔接表达。",
	},
	ToneExplanatory: {
		label:            "课堂讲解",
		voice:            "保持标准课堂讲解语气，逻辑清晰、步骤明确。",
		terminology:      "每 100 词使用 3-6 个术语，并附一句定义或用途。",
		sentenceLength:   "句长控制在 12-20 个中文词，必要时拆成 bullet 提高清晰度。",
		analogy:          "仅在概念生涩时使用简短类比，更多通过因果或步骤解释。",
		formulaGuidance:  "引入 1-2 个必要公式，并在同一句说明用途或适用条件。",
		variablePolicy:   "变量出现时立即说明含义、单位或范围。",
		constraintPolicy: "每个主要概念至少写 1 条适用条件或限制。",
		transition:       "使用因此、接下来、基于上述等逻辑连接词维持递进。",
	},
	ToneAcademic: {
		label:            "半学术",
		voice:            "采用半学术语气，强调推理链与前提假设。",
		terminology:      "每 100 词可使用 6-10 个术语，可引用标准命名或定理编号。",
		sentenceLength:   "句长允许 16-24 个中文词，包含多重从句但保持清晰。",
		analogy:          "以对比、反例或条件讨论替代生活化比喻。",
		formulaGuidance:  "可呈现 2-3 个公式，并说明推导背景、变量角色与局限性。",
		variablePolicy:   "提供变量表或依次写出符号、含义与单位范围。",
		constraintPolicy: "明确写出 1-2 条边界条件、假设或不适用情形。",
		transition:       "使用在某条件下、因此、从而、综上等连接词强调推理路径。",
	},
}

const (
	globalPersona = "你是大学课程的智能讲解助手，负责把课件内容转化成自然、口头化的教学讲解，帮助学生理解知识而非逐页复述。"
	flowRule      = "每个自然段先说为什么值得关注，再讲是什么，最后讲怎么用；用自然段或必要的 bullet 描述，并在段首或段尾写 1-2 句承上启下。"
	formulaRule   = "遇到公式请保留原符号，逐个解释符号含义，并说明该公式试图解决的问题或它的适用条件。"
	figureRule    = "描述图表或截图的核心关系，并插入占位符 [FIG_PAGE_<页号>_IDX_<序号>: 描述] 指回原始资源。"
	bulletRule    = "可使用 bullet 强调步骤或要点，但整段仍需连贯讲述，避免把篇章拆成模板化小节。"
	missingRule   = "上下文缺失或证据不足时，直接写待补充，绝不杜撰数据、推导或引用。"
	evidenceRule  = "示例、比喻与数字必须来自现有上下文；若资料只有片段，请标注缺口而非臆造。"

	languageZhRule = "使用简体中文书写所有段落、bullet 与占位符说明；如上下文为英文，也需翻译成中文保持统一。"
	languageEnRule = "Write every paragraph, list item, and placeholder description in fluent English; translate any Chinese context instead of copying it verbatim."

	pageHeaderTemplateZH = "### 第%d页"
	pageHeaderTemplateEN = "### Page %d"
)

// Summary labels recognized (and inserted) by the post-processing pass.
const (
	TakeawayLabelZH = "一句话总结"
	TakeawayLabelEN = "One-sentence takeaway"
	InsightLabelZH  = "章节洞察"
	InsightLabelEN  = "Section insight"
)

// TableMarker is the comparison-table header used when UseTable is set.
const TableMarker = "| 对比项 |"

// Build resolves a style profile from the three selections. It is
// total over the enumerated detail/tone sets and fails with
// ErrUnknownStyle outside them; an unrecognized language silently
// defaults to zh (a deliberate product choice, not an error).
func Build(detail DetailLevel, tone Tone, language Language) (*Profile, error) {
	dp, ok := detailPolicies[detail]
	if !ok {
		return nil, fmt.Errorf("%w: detail_level=%q", ErrUnknownStyle, detail)
	}
	tp, ok := tonePolicies[tone]
	if !ok {
		return nil, fmt.Errorf("%w: tone=%q", ErrUnknownStyle, tone)
	}
	if language != LangZH && language != LangEN {
		language = LangZH
	}

	directives := Directives{
		SummaryMode:        summaryModeFor(detail),
		FormulaMode:        formulaModeFor(tone),
		AnalogyRequired:    tone == ToneSimple,
		UseTable:           detail != DetailBrief,
		BlockquoteRequired: detail != DetailBrief,
		PageHeaderTemplate: pageHeaderTemplate(language),
		Language:           language,
	}

	languageRule := languageZhRule
	if language == LangEN {
		languageRule = languageEnRule
	}

	lines := []string{
		"【角色设定】" + globalPersona,
		"【讲解顺序】" + flowRule,
		fmt.Sprintf("【篇幅与重点｜%s】目标篇幅 %.1f-%.1f× 大纲基线；%s", dp.label, dp.ratioLow, dp.ratioHigh, dp.coverage),
		"【结构倾向】" + dp.structure,
		"【总结与示例】" + dp.summary + " " + dp.examples,
		fmt.Sprintf("【语气与衔接｜%s】%s %s", tp.label, tp.voice, tp.transition),
		"【术语与句长】" + tp.terminology + " " + tp.sentenceLength,
		"【比喻/修辞】" + tp.analogy,
		"【公式与图表】" + dp.figureCaption + " " + tp.formulaGuidance + " " + formulaRule,
		"【变量与约束】" + tp.variablePolicy + " " + tp.constraintPolicy,
		"【bullet 使用】" + bulletRule,
		"【图像占位符】" + figureRule,
		"【缺失或不确定信息】" + missingRule,
		"【示例与依据】" + evidenceRule,
		"【语言】" + languageRule,
	}
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return &Profile{
		Detail:         detail,
		Tone:           tone,
		Text:           strings.TrimRight(sb.String(), "\n"),
		Directives:     directives,
		ExampleSnippet: exampleSnippet(directives),
	}, nil
}

func summaryModeFor(detail DetailLevel) SummaryMode {
	switch detail {
	case DetailBrief:
		return SummaryNone
	case DetailMedium:
		return SummaryTakeaway
	default:
		return SummaryInsight
	}
}

func formulaModeFor(tone Tone) FormulaMode {
	switch tone {
	case ToneSimple:
		return FormulaLight
	case ToneExplanatory:
		return FormulaBalanced
	default:
		return FormulaExtended
	}
}

func pageHeaderTemplate(language Language) string {
	if language == LangEN {
		return pageHeaderTemplateEN
	}
	return pageHeaderTemplateZH
}

// exampleSnippet sketches the expected shape of compliant output so
// the model imitates structure instead of guessing it.
func exampleSnippet(d Directives) string {
	var parts []string
	if d.AnalogyRequired {
		parts = append(parts, "打个比方：把注意力权重想成课堂上老师分配给每个学生的提问时间。")
	}
	if d.UseTable {
		parts = append(parts, TableMarker+" 方案A | 方案B |\n|--------|-------|-------|\n| 适用场景 | … | … |")
	}
	switch d.SummaryMode {
	case SummaryTakeaway:
		label := TakeawayLabelZH
		if d.Language == LangEN {
			label = TakeawayLabelEN
		}
		parts = append(parts, "> **"+label+"**：一句话说清本节最重要的结论。")
	case SummaryInsight:
		label := InsightLabelZH
		if d.Language == LangEN {
			label = InsightLabelEN
		}
		parts = append(parts, "> **"+label+"**：点出本节结论背后的原理与它的适用边界。")
	}
	if len(parts) == 0 {
		return ""
	}
	return "示例片段：\n" + strings.Join(parts, "\n")
}
