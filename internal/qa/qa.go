// Package qa answers questions over a session's generated study
// materials via an ephemeral in-memory embedding search.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/txxxxz/autonote/internal/llm"
	"github.com/txxxxz/autonote/internal/notes"
	"github.com/txxxxz/autonote/internal/templates"
)

const (
	topK        = 3
	maxRefs     = 3
	temperature = 0.1

	emptyScopeAnswer = "当前范围内暂无内容可供检索。"
)

const systemPrompt = "You are an assistant answering questions strictly based on provided " +
	"study materials. Cite relevant sections when possible."

// Response is the QA endpoint payload.
type Response struct {
	Answer string   `json:"answer"`
	Refs   []string `json:"refs"`
}

// Materials is the artifact bundle a question may be scoped to.
type Materials struct {
	Notes *notes.NoteDoc
	Cards *templates.KnowledgeCards
	Mock  *templates.MockPaper
}

// Service answers scoped questions using the generation and embedding
// collaborators.
type Service struct {
	Client   llm.Client
	Embedder llm.Embedder
	Log      *slog.Logger
}

func NewService(client llm.Client, embedder llm.Embedder, log *slog.Logger) *Service {
	return &Service{Client: client, Embedder: embedder, Log: log}
}

// Ask embeds the scoped material, retrieves the top matches for the
// question, and generates a grounded answer.
func (s *Service) Ask(ctx context.Context, question, scope string, m Materials) (*Response, error) {
	texts, refs := collectTexts(scope, m)
	if len(texts) == 0 {
		return &Response{Answer: emptyScopeAnswer, Refs: []string{}}, nil
	}

	contextText, err := s.topMatches(ctx, question, texts)
	if err != nil {
		return nil, fmt.Errorf("qa retrieval: %w", err)
	}

	prompt := fmt.Sprintf("Question: %s\n\nContext:\n%s", question, contextText)
	answer, err := s.Client.Invoke(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}, temperature)
	if err != nil {
		return nil, fmt.Errorf("qa generation: %w", err)
	}

	if len(refs) > maxRefs {
		refs = refs[:maxRefs]
	}
	return &Response{Answer: strings.TrimSpace(answer), Refs: refs}, nil
}

// topMatches ranks texts against the question by cosine similarity and
// joins the best k.
func (s *Service) topMatches(ctx context.Context, question string, texts []string) (string, error) {
	vectors, err := s.Embedder.Embed(ctx, append([]string{question}, texts...))
	if err != nil {
		return "", err
	}
	if len(vectors) != len(texts)+1 {
		return "", fmt.Errorf("got %d vectors for %d inputs", len(vectors), len(texts)+1)
	}
	qv := vectors[0]

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, len(texts))
	for i, text := range texts {
		ranked[i] = scored{text: text, score: cosine(qv, vectors[i+1])}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	k := topK
	if k > len(ranked) {
		k = len(ranked)
	}
	parts := make([]string, 0, k)
	for _, r := range ranked[:k] {
		parts = append(parts, r.text)
	}
	return strings.Join(parts, "\n\n"), nil
}

func collectTexts(scope string, m Materials) (texts, refs []string) {
	switch scope {
	case "notes":
		if m.Notes == nil {
			return nil, nil
		}
		for _, section := range m.Notes.Sections {
			texts = append(texts, section.Title+"\n"+section.BodyMD)
			refs = append(refs, section.Refs...)
		}
	case "cards":
		if m.Cards == nil {
			return nil, nil
		}
		for _, card := range m.Cards.Cards {
			texts = append(texts, fmt.Sprintf("%s\n定义: %s\n考点: %s",
				card.Concept, card.Definition, strings.Join(card.ExamPoints, "; ")))
			refs = append(refs, card.Anchors...)
		}
	case "mock":
		if m.Mock == nil {
			return nil, nil
		}
		for _, item := range m.Mock.Items {
			texts = append(texts, fmt.Sprintf("%s\n答案: %s\n解析: %s", item.Stem, item.Answer, item.Explain))
			refs = append(refs, item.Refs...)
		}
	}
	return texts, refs
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
