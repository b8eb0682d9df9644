package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/txxxxz/autonote/internal/layout"
	"github.com/txxxxz/autonote/internal/llm"
	"github.com/txxxxz/autonote/internal/outline"
	"github.com/txxxxz/autonote/internal/style"
)

type fakeClient struct {
	mu      sync.Mutex
	delay   bool
	fail    bool
	respond func(prompt string) string
	calls   int
}

func (c *fakeClient) Invoke(_ context.Context, messages []llm.Message, _ float64) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.delay {
		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
	}
	if c.fail {
		return "", errors.New("model unavailable")
	}
	prompt := messages[len(messages)-1].Content
	if c.respond != nil {
		return c.respond(prompt), nil
	}
	return "## 核心概念与解释\n\n生成的内容。\n\n> **一句话总结**：ok", nil
}

func testTree(n int) *outline.Tree {
	root := &outline.Node{SectionID: "root", Title: "课程材料", Level: 0}
	for i := 1; i <= n; i++ {
		child := &outline.Node{
			SectionID: fmt.Sprintf("s_%02d", i),
			Title:     fmt.Sprintf("第%d章 主题", i),
			Summary:   fmt.Sprintf("第%d章的摘要。", i),
			Level:     1,
		}
		child.AddPages([]int{i})
		child.AddAnchors([]layout.AnchorRef{{Page: i, Ref: fmt.Sprintf("p%d_e0", i)}})
		root.AttachChild(child)
	}
	return &outline.Tree{Root: root}
}

func testDoc(pages int) *layout.Doc {
	doc := &layout.Doc{}
	for i := 1; i <= pages; i++ {
		doc.Pages = append(doc.Pages, layout.Page{
			PageNo: i,
			Elements: []layout.Element{
				{Ref: fmt.Sprintf("p%d_e0", i), Kind: layout.KindTitle, Content: fmt.Sprintf("第%d章 主题", i)},
				{Ref: fmt.Sprintf("p%d_e1", i), Kind: layout.KindText, Content: fmt.Sprintf("第%d章的正文内容。", i)},
			},
		})
	}
	return doc
}

func newTestGenerator(client llm.Client, workers int) *Generator {
	return NewGenerator(client, nil, workers, slog.New(slog.DiscardHandler))
}

func TestGenerateOrderingUnderConcurrency(t *testing.T) {
	const n = 8
	client := &fakeClient{delay: true}
	gen := newTestGenerator(client, 4)
	profile := mustProfile(t, style.DetailMedium, style.ToneExplanatory, style.LangZH)

	doc, err := gen.Generate(context.Background(), "sess1", testTree(n), testDoc(n), profile, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Sections) != n {
		t.Fatalf("got %d sections, want %d", len(doc.Sections), n)
	}
	for i, s := range doc.Sections {
		want := fmt.Sprintf("s_%02d", i+1)
		if s.SectionID != want {
			t.Errorf("section %d: id = %s, want %s", i, s.SectionID, want)
		}
	}
	if len(doc.TOC) != n || doc.TOC[0].SectionID != "s_01" {
		t.Errorf("toc not in outline order: %+v", doc.TOC)
	}
}

func TestGenerateFallbackOnTotalFailure(t *testing.T) {
	const n = 3
	client := &fakeClient{fail: true}
	gen := newTestGenerator(client, 2)
	profile := mustProfile(t, style.DetailMedium, style.ToneExplanatory, style.LangZH)

	doc, err := gen.Generate(context.Background(), "sess1", testTree(n), testDoc(n), profile, nil)
	if err != nil {
		t.Fatalf("total model failure must not fail the document: %v", err)
	}
	if len(doc.Sections) != n {
		t.Fatalf("got %d sections, want %d", len(doc.Sections), n)
	}
	for _, s := range doc.Sections {
		if !strings.Contains(s.BodyMD, s.Title) {
			t.Errorf("fallback body missing title %q", s.Title)
		}
		if !strings.Contains(s.BodyMD, "摘要") {
			t.Errorf("fallback body missing summary for %q", s.Title)
		}
	}
}

func TestGenerateProgressEvents(t *testing.T) {
	const n = 4
	client := &fakeClient{delay: true}
	gen := newTestGenerator(client, 3)
	profile := mustProfile(t, style.DetailMedium, style.ToneExplanatory, style.LangZH)

	var mu sync.Mutex
	var events []Progress
	progress := func(p Progress) {
		mu.Lock()
		events = append(events, p)
		mu.Unlock()
	}

	if _, err := gen.Generate(context.Background(), "sess1", testTree(n), testDoc(n), profile, progress); err != nil {
		t.Fatal(err)
	}

	starts, completes := 0, 0
	sawTotal, sawSave := false, false
	for _, e := range events {
		switch e.Phase {
		case PhaseSectionsTotal:
			sawTotal = true
			if e.Total != n {
				t.Errorf("sections_total = %d, want %d", e.Total, n)
			}
		case PhaseSection:
			if e.Total != n {
				t.Errorf("section event total = %d, want frozen %d", e.Total, n)
			}
			if e.Index < 1 || e.Index > n {
				t.Errorf("section event index out of range: %d", e.Index)
			}
			if e.Status == StatusStart {
				starts++
			} else if e.Status == StatusComplete {
				completes++
			}
		case PhaseSave:
			sawSave = true
		}
	}
	if !sawTotal || !sawSave {
		t.Error("missing sections_total or save phase events")
	}
	if starts != n || completes != n {
		t.Errorf("start/complete events = %d/%d, want %d/%d", starts, completes, n, n)
	}
}

func TestGenerateEmptyOutline(t *testing.T) {
	client := &fakeClient{}
	gen := newTestGenerator(client, 2)
	profile := mustProfile(t, style.DetailBrief, style.ToneSimple, style.LangZH)

	doc, err := gen.Generate(context.Background(), "sess1", testTree(0), testDoc(0), profile, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Sections) != 0 || len(doc.TOC) != 0 {
		t.Errorf("empty outline produced sections: %+v", doc)
	}
	if client.calls != 0 {
		t.Errorf("empty outline still invoked the model %d times", client.calls)
	}
	if doc.Style.DetailLevel != "brief" || doc.Style.Tone != "simple" {
		t.Errorf("style record = %+v", doc.Style)
	}
}

func TestGenerateBriefSimpleDirectives(t *testing.T) {
	client := &fakeClient{respond: func(string) string {
		return "### 第1页\n\n核心内容讲解。"
	}}
	gen := newTestGenerator(client, 1)
	profile := mustProfile(t, style.DetailBrief, style.ToneSimple, style.LangZH)

	doc, err := gen.Generate(context.Background(), "sess1", testTree(1), testDoc(1), profile, nil)
	if err != nil {
		t.Fatal(err)
	}
	body := doc.Sections[0].BodyMD
	if strings.Contains(body, style.TableMarker) {
		t.Error("brief level must not inject a comparison table")
	}
	if !strings.Contains(body, "打个比方") {
		t.Error("simple tone must carry an analogy marker")
	}
}

func TestGenerateResolvesAssetsAndRefs(t *testing.T) {
	doc := testDoc(2)
	doc.Pages[0].Elements = append(doc.Pages[0].Elements,
		layout.Element{Ref: "p1_img", Kind: layout.KindImage, ImageURI: "assets/p1.png", Caption: "第1页插图"},
		layout.Element{Ref: "p1_eq", Kind: layout.KindFormula, Latex: "E = mc^2", Caption: "质能方程"},
	)
	client := &fakeClient{}
	gen := newTestGenerator(client, 1)
	profile := mustProfile(t, style.DetailMedium, style.ToneExplanatory, style.LangZH)

	noteDoc, err := gen.Generate(context.Background(), "sess1", testTree(2), doc, profile, nil)
	if err != nil {
		t.Fatal(err)
	}
	first := noteDoc.Sections[0]
	if len(first.Figures) != 1 || first.Figures[0].ImageURI != "assets/p1.png" {
		t.Errorf("figures = %+v", first.Figures)
	}
	if len(first.Equations) != 1 || first.Equations[0].Latex != "E = mc^2" {
		t.Errorf("equations = %+v", first.Equations)
	}
	if len(first.Refs) == 0 || !strings.HasPrefix(first.Refs[0], "anchor:s_01@page1#") {
		t.Errorf("refs = %+v", first.Refs)
	}
	second := noteDoc.Sections[1]
	if len(second.Figures) != 0 {
		t.Errorf("section 2 picked up page 1 figures: %+v", second.Figures)
	}
}
