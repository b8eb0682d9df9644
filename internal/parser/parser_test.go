package parser

import (
	"strings"
	"testing"

	"github.com/txxxxz/autonote/internal/layout"
)

func TestForFileDispatch(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"deck.pdf", false},
		{"deck.pptx", false},
		{"handout.docx", false},
		{"transcript.txt", false},
		{"notes.md", false},
		{"page.html", false},
		{"PAGE.HTM", false},
		{"image.png", true},
		{"archive.zip", true},
	}
	for _, tt := range tests {
		_, err := ForFile(tt.filename)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForFile(%q): err = %v, wantErr %v", tt.filename, err, tt.wantErr)
		}
		if got := IsSupportedExtension(tt.filename); got == tt.wantErr {
			t.Errorf("IsSupportedExtension(%q) = %v", tt.filename, got)
		}
	}
}

func TestPageFromText(t *testing.T) {
	page := pageFromText(3, "第3章 卷积网络\n卷积核在输入上滑动。\n池化降低分辨率。")
	if len(page.Blocks) != 2 {
		t.Fatalf("got %d blocks, want title + text", len(page.Blocks))
	}
	if page.Blocks[0].Type != layout.KindTitle || page.Blocks[0].RawText != "第3章 卷积网络" {
		t.Errorf("title block = %+v", page.Blocks[0])
	}
	if page.Blocks[1].Type != layout.KindText || !strings.Contains(page.Blocks[1].RawText, "池化") {
		t.Errorf("text block = %+v", page.Blocks[1])
	}
	if page.Blocks[0].ID != "p3_b0" || page.Blocks[1].Order != 1 {
		t.Errorf("block ids/order wrong: %+v", page.Blocks)
	}
}

func TestPageFromTextLongFirstLine(t *testing.T) {
	long := strings.Repeat("这是一个很长的句子，", 10)
	page := pageFromText(1, long+"\n后续内容。")
	if len(page.Blocks) != 1 || page.Blocks[0].Type != layout.KindText {
		t.Errorf("long first line should not become a title: %+v", page.Blocks)
	}
}

func TestTextParserPagesFromParagraphs(t *testing.T) {
	input := "第1章 绪论\n课程介绍与目标。\n\n第2章 方法\n基本方法概述。\n\n补充说明段落，没有明显标题但内容很长，" +
		strings.Repeat("继续补充，", 20)
	deck, err := (&TextParser{}).Parse(strings.NewReader(input), "transcript.txt")
	if err != nil {
		t.Fatal(err)
	}
	if deck.Title != "transcript" {
		t.Errorf("title = %q", deck.Title)
	}
	if len(deck.Slides) != 3 {
		t.Fatalf("got %d pages, want 3", len(deck.Slides))
	}
	if deck.Slides[0].Blocks[0].RawText != "第1章 绪论" {
		t.Errorf("first page title = %q", deck.Slides[0].Blocks[0].RawText)
	}
	if deck.Slides[2].PageNo != 3 {
		t.Errorf("page numbers not contiguous: %+v", deck.Slides[2].PageNo)
	}
}

func TestMarkdownParserSplitsOnHeadings(t *testing.T) {
	input := "# 第1章 绪论\n\n课程目标。\n\n### 细节标题\n\n更多内容。\n\n## 1.1 动机\n\n为什么学习。\n"
	deck, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "notes.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(deck.Slides) != 2 {
		t.Fatalf("got %d pages, want 2: %+v", len(deck.Slides), deck.Slides)
	}
	first := deck.Slides[0]
	if first.Blocks[0].RawText != "第1章 绪论" {
		t.Errorf("page 1 title = %q", first.Blocks[0].RawText)
	}
	if !strings.Contains(first.Blocks[1].RawText, "细节标题") {
		t.Errorf("deep heading not folded into body: %q", first.Blocks[1].RawText)
	}
	if deck.Slides[1].Blocks[0].RawText != "1.1 动机" {
		t.Errorf("page 2 title = %q", deck.Slides[1].Blocks[0].RawText)
	}
}

func TestHTMLParserSplitsOnHeadings(t *testing.T) {
	input := `<html><head><title>深度学习</title></head><body>
<h1>第1章 绪论</h1><p>介绍。</p>
<script>ignored()</script>
<h2>1.1 动机</h2><p>为什么。</p><li>要点</li>
</body></html>`
	deck, err := (&HTMLParser{}).Parse(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatal(err)
	}
	if deck.Title != "深度学习" {
		t.Errorf("deck title = %q", deck.Title)
	}
	if len(deck.Slides) != 2 {
		t.Fatalf("got %d pages, want 2", len(deck.Slides))
	}
	if deck.Slides[1].Blocks[0].RawText != "1.1 动机" {
		t.Errorf("page 2 title = %q", deck.Slides[1].Blocks[0].RawText)
	}
	for _, page := range deck.Slides {
		for _, b := range page.Blocks {
			if strings.Contains(b.RawText, "ignored") {
				t.Error("script content leaked into blocks")
			}
		}
	}
}

func TestSlidePageFromParagraphs(t *testing.T) {
	page := slidePageFromParagraphs(2, []string{"激活函数", "ReLU 保持正值。", "Sigmoid 压缩到 (0,1)。"})
	if len(page.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(page.Blocks))
	}
	if page.Blocks[0].Type != layout.KindTitle || page.Blocks[0].RawText != "激活函数" {
		t.Errorf("title block = %+v", page.Blocks[0])
	}
	if !strings.Contains(page.Blocks[1].RawText, "Sigmoid") {
		t.Errorf("body block = %+v", page.Blocks[1])
	}
}
