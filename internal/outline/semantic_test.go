package outline

import (
	"context"
	"errors"
	"testing"

	"github.com/txxxxz/autonote/internal/layout"
	"github.com/txxxxz/autonote/internal/llm"
)

type scriptedClient struct {
	reply string
	err   error
	calls int
}

func (c *scriptedClient) Invoke(_ context.Context, _ []llm.Message, _ float64) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func semanticDoc() *layout.Doc {
	return &layout.Doc{Pages: []layout.Page{
		titledPage(1, "slide one", "intro material"),
		titledPage(2, "slide two", "more material"),
	}}
}

func TestBuildSemanticAcceptsQualityOutline(t *testing.T) {
	client := &scriptedClient{reply: "# 第1章 基础 (pages: 1)\n> Summary: 基础概念。\n\n# 第2章 进阶 (pages: 2)\n"}

	tree := testBuilder().BuildSemantic(context.Background(), client, semanticDoc(), emptyFallback("课程"))
	if client.calls != 1 {
		t.Fatalf("calls = %d", client.calls)
	}
	if len(tree.Root.Children) != 2 {
		t.Fatalf("chapters = %d, want model outline", len(tree.Root.Children))
	}
	if tree.Root.Children[0].Summary != "基础概念。" {
		t.Errorf("summary = %q", tree.Root.Children[0].Summary)
	}
	if tree.Markdown == "" {
		t.Error("accepted outline should carry rendered markdown")
	}
}

func TestBuildSemanticRejectsThinOutline(t *testing.T) {
	// One chapter is below the quality gate; the heuristic outline from
	// page titles wins instead.
	client := &scriptedClient{reply: "# 唯一章节\n"}

	tree := testBuilder().BuildSemantic(context.Background(), client, semanticDoc(), emptyFallback("课程"))
	if len(tree.Root.Children) != 2 {
		t.Fatalf("chapters = %d, want heuristic page outline", len(tree.Root.Children))
	}
	if tree.Root.Children[0].Title != "slide one" {
		t.Errorf("chapter = %q, want heuristic title", tree.Root.Children[0].Title)
	}
}

func TestBuildSemanticFallsBackOnError(t *testing.T) {
	client := &scriptedClient{err: errors.New("model unavailable")}

	tree := testBuilder().BuildSemantic(context.Background(), client, semanticDoc(), emptyFallback("课程"))
	if len(tree.Root.Children) != 2 {
		t.Fatalf("chapters = %d, want heuristic page outline", len(tree.Root.Children))
	}
}

func TestBuildSemanticNilClient(t *testing.T) {
	tree := testBuilder().BuildSemantic(context.Background(), nil, semanticDoc(), emptyFallback("课程"))
	if tree == nil || len(tree.Root.Children) != 2 {
		t.Fatal("nil client should build the heuristic outline")
	}
}

func TestBuildSemanticUnparseableReply(t *testing.T) {
	client := &scriptedClient{reply: "抱歉，我无法生成大纲。"}

	tree := testBuilder().BuildSemantic(context.Background(), client, semanticDoc(), emptyFallback("课程"))
	if len(tree.Root.Children) != 2 {
		t.Fatalf("chapters = %d, want heuristic page outline", len(tree.Root.Children))
	}
}
