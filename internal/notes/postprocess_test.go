package notes

import (
	"strings"
	"testing"

	"github.com/txxxxz/autonote/internal/outline"
	"github.com/txxxxz/autonote/internal/style"
)

func sectionWithPages(title string, pages ...int) *outline.Node {
	n := &outline.Node{SectionID: "s_test", Title: title, Summary: title + "的摘要。", Level: 1}
	n.AddPages(pages)
	return n
}

func mustProfile(t *testing.T, detail style.DetailLevel, tone style.Tone, lang style.Language) *style.Profile {
	t.Helper()
	p, err := style.Build(detail, tone, lang)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPostProcessAppendsMissingPageHeaders(t *testing.T) {
	section := sectionWithPages("神经网络", 3, 4)
	profile := mustProfile(t, style.DetailMedium, style.ToneExplanatory, style.LangZH)

	body := "## 核心概念与解释\n\n### 第3页\n\n神经元接收加权输入。"
	out, warnings := PostProcess(body, section, profile.Directives)

	if !strings.Contains(out, "第4页") {
		t.Error("missing page 4 header was not appended")
	}
	if len(warnings) == 0 {
		t.Error("repairs produced no warnings")
	}
	if !strings.Contains(out, "> TODO") {
		t.Error("appended stub lacks TODO blockquote")
	}
}

func TestPostProcessDecoratesBareHeadings(t *testing.T) {
	section := sectionWithPages("反向传播", 5)
	profile := mustProfile(t, style.DetailMedium, style.ToneExplanatory, style.LangZH)

	body := "### 第5页\n\n链式法则逐层传递梯度。\n\n> **一句话总结**：梯度反向流动。"
	out, _ := PostProcess(body, section, profile.Directives)

	if !strings.Contains(out, "### 反向传播（第5页）") {
		t.Errorf("heading not decorated with section title:\n%s", out)
	}
	if strings.Contains(out, "### 第5页\n") {
		t.Error("bare heading survived decoration")
	}
}

func TestPostProcessDecorationUsesDeepestCoveringChild(t *testing.T) {
	parent := sectionWithPages("优化方法", 1, 2)
	child := sectionWithPages("动量法", 2)
	child.Level = 2
	parent.AttachChild(child)
	profile := mustProfile(t, style.DetailMedium, style.ToneExplanatory, style.LangZH)

	body := "### 第2页\n\n动量项平滑更新方向。\n\n> **一句话总结**：x"
	out, _ := PostProcess(body, parent, profile.Directives)
	if !strings.Contains(out, "动量法（第2页）") {
		t.Errorf("expected deepest covering child title in heading:\n%s", out)
	}
}

func TestPostProcessIdempotent(t *testing.T) {
	section := sectionWithPages("卷积网络", 1, 2, 3)
	for _, combo := range []struct {
		detail style.DetailLevel
		tone   style.Tone
	}{
		{style.DetailBrief, style.ToneSimple},
		{style.DetailMedium, style.ToneExplanatory},
		{style.DetailDetailed, style.ToneAcademic},
	} {
		profile := mustProfile(t, combo.detail, combo.tone, style.LangZH)
		body := "## 核心概念与解释\n\n卷积核在输入上滑动。"

		once, _ := PostProcess(body, section, profile.Directives)
		twice, warnings := PostProcess(once, section, profile.Directives)
		if once != twice {
			t.Errorf("%s+%s: second pass changed output:\n--- first\n%s\n--- second\n%s",
				combo.detail, combo.tone, once, twice)
		}
		if len(warnings) != 0 {
			t.Errorf("%s+%s: second pass reported repairs: %v", combo.detail, combo.tone, warnings)
		}
	}
}

func TestPostProcessSummaryAndAnalogyStubs(t *testing.T) {
	section := sectionWithPages("损失函数", 1)
	profile := mustProfile(t, style.DetailDetailed, style.ToneSimple, style.LangZH)

	body := "### 第1页\n\n交叉熵惩罚错误置信。"
	out, _ := PostProcess(body, section, profile.Directives)

	if !strings.Contains(out, style.InsightLabelZH) {
		t.Error("insight stub missing for detailed level")
	}
	if !strings.Contains(out, "打个比方") {
		t.Error("analogy stub missing for simple tone")
	}
}

func TestPostProcessBriefSkipsBlockquoteRepair(t *testing.T) {
	section := sectionWithPages("正则化", 1)
	profile := mustProfile(t, style.DetailBrief, style.ToneExplanatory, style.LangZH)

	body := "### 第1页\n\nL2 正则限制权重大小。"
	out, _ := PostProcess(body, section, profile.Directives)
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			t.Errorf("brief level should not force a blockquote, got: %q", line)
		}
	}
}

func TestPostProcessEnglishTemplates(t *testing.T) {
	section := sectionWithPages("Gradient Descent", 7)
	profile := mustProfile(t, style.DetailMedium, style.ToneExplanatory, style.LangEN)

	body := "## Core Concepts\n\nThe learning rate scales each step."
	out, _ := PostProcess(body, section, profile.Directives)

	if !strings.Contains(out, "### Page 7") {
		t.Error("English page header stub missing")
	}
	if !strings.Contains(out, style.TakeawayLabelEN) {
		t.Error("English takeaway stub missing")
	}
}

func TestComposeContext(t *testing.T) {
	parent := sectionWithPages("第1章 绪论", 1, 2)
	child := sectionWithPages("研究动机", 2)
	child.Level = 2
	parent.AttachChild(child)

	pageText := map[int]string{
		1: "课程目标与安排。",
		2: "为什么需要机器学习。",
		3: "无关页面。",
	}
	ctx := ComposeContext(parent, pageText)

	if !strings.Contains(ctx, "章节: 第1章 绪论") {
		t.Error("context missing section title")
	}
	if !strings.Contains(ctx, "p.1-2") {
		t.Errorf("context missing page span:\n%s", ctx)
	}
	if !strings.Contains(ctx, "【第1页】") || !strings.Contains(ctx, "【第2页】") {
		t.Error("context missing per-page segments")
	}
	if strings.Contains(ctx, "无关页面") {
		t.Error("context leaked uncovered page text")
	}
	if !strings.Contains(ctx, "- 研究动机") {
		t.Error("context missing substructure reference")
	}
}
