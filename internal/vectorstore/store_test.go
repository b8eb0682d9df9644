package vectorstore

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/txxxxz/autonote/internal/layout"
)

// keywordEmbedder maps texts onto a small fixed vocabulary so cosine
// ranking is predictable in tests.
type keywordEmbedder struct {
	vocab []string
	calls int
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, len(e.vocab))
		for j, word := range e.vocab {
			vec[j] = float32(strings.Count(t, word))
		}
		out[i] = vec
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sampleDocs() []Document {
	return []Document{
		{PageContent: "梯度下降通过迭代更新参数来最小化损失函数。", Page: 1},
		{PageContent: "卷积神经网络使用卷积核提取图像特征。", Page: 2},
		{PageContent: "损失函数衡量预测值与真实值之间的差距。", Page: 3},
	}
}

func TestSearchRanking(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"梯度", "卷积", "损失", "图像"}}
	store := NewStore(t.TempDir(), embedder, testLogger())

	ix, err := store.LoadOrCreate(context.Background(), "sess1", sampleDocs())
	if err != nil {
		t.Fatal(err)
	}
	hits, err := ix.Search(context.Background(), "卷积核如何处理图像", 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Page != 2 {
		t.Errorf("top hit page = %d, want 2", hits[0].Page)
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits not ordered by descending score")
	}
}

func TestSearchPageFilter(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"梯度", "卷积", "损失"}}
	store := NewStore(t.TempDir(), embedder, testLogger())

	ix, err := store.LoadOrCreate(context.Background(), "sess1", sampleDocs())
	if err != nil {
		t.Fatal(err)
	}

	hits, err := ix.Search(context.Background(), "损失", 3, map[int]struct{}{1: {}})
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if h.Page != 1 {
			t.Errorf("filtered search returned page %d", h.Page)
		}
	}

	// A filter that matches nothing falls back to the whole index.
	hits, err = ix.Search(context.Background(), "损失", 1, map[int]struct{}{99: {}})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Fatal("empty-filter fallback returned no hits")
	}
}

func TestLoadOrCreateUsesCache(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"梯度", "卷积", "损失"}}
	root := t.TempDir()
	store := NewStore(root, embedder, testLogger())

	docs := sampleDocs()
	if _, err := store.LoadOrCreate(context.Background(), "sess1", docs); err != nil {
		t.Fatal(err)
	}
	buildCalls := embedder.calls

	if _, err := store.LoadOrCreate(context.Background(), "sess1", docs); err != nil {
		t.Fatal(err)
	}
	if embedder.calls != buildCalls {
		t.Errorf("cache hit re-embedded documents: calls %d -> %d", buildCalls, embedder.calls)
	}

	if err := store.Drop("sess1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadOrCreate(context.Background(), "sess1", docs); err != nil {
		t.Fatal(err)
	}
	if embedder.calls == buildCalls {
		t.Error("dropped cache was not rebuilt")
	}
}

func TestDropMissingCache(t *testing.T) {
	store := NewStore(t.TempDir(), &keywordEmbedder{vocab: []string{"x"}}, testLogger())
	if err := store.Drop("nope"); err != nil {
		t.Errorf("Drop on missing cache: %v", err)
	}
}

func TestSplitPagesKeepsAttribution(t *testing.T) {
	doc := &layout.Doc{Pages: []layout.Page{
		{PageNo: 1, Elements: []layout.Element{
			{Kind: layout.KindTitle, Content: "第1章 绪论"},
			{Kind: layout.KindText, Content: "机器学习是从数据中学习规律的方法。"},
		}},
		{PageNo: 2, Elements: []layout.Element{
			{Kind: layout.KindText, Content: strings.Repeat("监督学习使用带标签的数据训练模型。", 80)},
		}},
	}}

	docs := SplitPages(doc, DefaultSplitConfig())
	if len(docs) < 3 {
		t.Fatalf("got %d documents, want page 1 plus multiple page 2 chunks", len(docs))
	}
	pages := map[int]int{}
	for _, d := range docs {
		pages[d.Page]++
		if strings.TrimSpace(d.PageContent) == "" {
			t.Error("emitted empty document")
		}
	}
	if pages[1] == 0 {
		t.Error("page 1 produced no documents")
	}
	if pages[2] < 2 {
		t.Errorf("long page 2 produced %d chunks, want at least 2", pages[2])
	}
}

func TestSplitPagesKeepsShortPages(t *testing.T) {
	// A title-only slide falls below MinChunk but must still produce a
	// document so its topic stays retrievable.
	doc := &layout.Doc{Pages: []layout.Page{
		{PageNo: 7, Elements: []layout.Element{
			{Kind: layout.KindTitle, Content: "小结"},
		}},
	}}

	docs := SplitPages(doc, DefaultSplitConfig())
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if docs[0].Page != 7 || !strings.Contains(docs[0].PageContent, "小结") {
		t.Errorf("document = %+v", docs[0])
	}
}

func TestEstimateTokensMixedScript(t *testing.T) {
	if got := estimateTokens(""); got != 0 {
		t.Errorf("empty text tokens = %d", got)
	}
	zh := estimateTokens("机器学习基础")
	if zh < 6 {
		t.Errorf("CJK tokens = %d, want one per rune", zh)
	}
	en := estimateTokens("machine learning basics")
	if en < 3 {
		t.Errorf("latin tokens = %d", en)
	}
}
