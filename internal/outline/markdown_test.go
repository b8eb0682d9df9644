package outline

import (
	"errors"
	"strings"
	"testing"
)

func TestRenderParseRoundTrip(t *testing.T) {
	root := &Node{SectionID: "root", Title: "机器学习", Summary: "课程总览。", Level: 0}
	ch1 := &Node{SectionID: "s1", Title: "第1章 绪论", Summary: "动机与历史。", Level: 1}
	ch1.AddPages([]int{1, 2, 3})
	sub := &Node{SectionID: "s11", Title: "1.1 动机", Level: 2}
	sub.AddPages([]int{2})
	ch1.AttachChild(sub)
	ch2 := &Node{SectionID: "s2", Title: "第2章 监督学习", Level: 1}
	ch2.AddPages([]int{4, 5})
	root.AttachChild(ch1)
	root.AttachChild(ch2)

	markdown := RenderMarkdown(&Tree{Root: root})
	if !strings.Contains(markdown, "# 机器学习") {
		t.Fatalf("markdown missing root heading:\n%s", markdown)
	}
	if !strings.Contains(markdown, "## 第1章 绪论 (pages: 1-3)") {
		t.Errorf("markdown missing chapter heading with range:\n%s", markdown)
	}
	if !strings.Contains(markdown, "### 1.1 动机 (pages: 2)") {
		t.Errorf("markdown missing subsection heading:\n%s", markdown)
	}
	if !strings.Contains(markdown, "> 动机与历史。") {
		t.Errorf("markdown missing summary blockquote:\n%s", markdown)
	}

	parsed, err := ParseMarkdown(markdown)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Root.Title != "机器学习" {
		t.Errorf("parsed root = %q", parsed.Root.Title)
	}
	if len(parsed.Root.Children) != 2 {
		t.Fatalf("parsed chapters = %d", len(parsed.Root.Children))
	}
	got := parsed.Root.Children[0]
	if got.Title != "第1章 绪论" || got.Summary != "动机与历史。" {
		t.Errorf("parsed chapter = %+v", got)
	}
	if got.PageStart != 1 || got.PageEnd != 3 {
		t.Errorf("parsed chapter bounds = %d-%d", got.PageStart, got.PageEnd)
	}
	if len(got.Children) != 1 || got.Children[0].Title != "1.1 动机" {
		t.Errorf("parsed subsection = %+v", got.Children)
	}
}

func TestParseMarkdownSyntheticRoot(t *testing.T) {
	markdown := "# 第1章 (pages: 1-2)\n\n# 第2章 (pages: 3)\n"
	tree, err := ParseMarkdown(markdown)
	if err != nil {
		t.Fatal(err)
	}
	if tree.Root.Title != "课程材料" {
		t.Errorf("synthetic root title = %q", tree.Root.Title)
	}
	if len(tree.Root.Children) != 2 {
		t.Fatalf("chapters = %d", len(tree.Root.Children))
	}
	if tree.Root.Level != 0 || tree.Root.Children[0].Level != 1 {
		t.Errorf("levels not renumbered: root=%d child=%d", tree.Root.Level, tree.Root.Children[0].Level)
	}
	if tree.Root.PageStart != 1 || tree.Root.PageEnd != 3 {
		t.Errorf("root bounds = %d-%d", tree.Root.PageStart, tree.Root.PageEnd)
	}
}

func TestParseMarkdownEmpty(t *testing.T) {
	if _, err := ParseMarkdown("没有标题的纯文本。\n换行。"); !errors.Is(err, ErrEmptyOutline) {
		t.Errorf("err = %v, want ErrEmptyOutline", err)
	}
}

func TestParseMarkdownStripsSummaryPrefix(t *testing.T) {
	markdown := "# 章节\n> Summary: 这是摘要。\n"
	tree, err := ParseMarkdown(markdown)
	if err != nil {
		t.Fatal(err)
	}
	if tree.Root.Summary != "这是摘要。" {
		t.Errorf("summary = %q", tree.Root.Summary)
	}
}

func TestParseMarkdownSummaryAdjacency(t *testing.T) {
	// Only a blockquote directly under its heading is that section's
	// summary; anything later belongs to body text. Sections without one
	// get the placeholder.
	markdown := "# 第1章 (pages: 1)\n\n正文段落不是摘要。\n\n> 迟到的引用。\n\n# 第2章 (pages: 2)\n> 紧随其后的摘要。\n"
	tree, err := ParseMarkdown(markdown)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Root.Children) != 2 {
		t.Fatalf("chapters = %d", len(tree.Root.Children))
	}
	if got := tree.Root.Children[0].Summary; got != "未提供摘要" {
		t.Errorf("chapter 1 summary = %q, want placeholder", got)
	}
	if got := tree.Root.Children[1].Summary; got != "紧随其后的摘要。" {
		t.Errorf("chapter 2 summary = %q", got)
	}
}

func TestExpandPageSpec(t *testing.T) {
	tests := []struct {
		spec string
		want []int
	}{
		{"3", []int{3}},
		{"1-3", []int{1, 2, 3}},
		{"3-1", []int{1, 2, 3}},
		{"1, 4-5", []int{1, 4, 5}},
		{"2–4", []int{2, 3, 4}},
		{"1, 1, 2", []int{1, 2}},
		{"x, 7", []int{7}},
		{"", nil},
	}
	for _, tt := range tests {
		got := expandPageSpec(tt.spec)
		if len(got) != len(tt.want) {
			t.Errorf("expandPageSpec(%q) = %v, want %v", tt.spec, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("expandPageSpec(%q) = %v, want %v", tt.spec, got, tt.want)
				break
			}
		}
	}
}
