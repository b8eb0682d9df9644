// Package templates derives study artifacts (knowledge cards, mock
// exams, mindmap graphs) deterministically from note documents and
// outlines. No model calls happen here.
package templates

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/txxxxz/autonote/internal/ids"
	"github.com/txxxxz/autonote/internal/notes"
	"github.com/txxxxz/autonote/internal/outline"
	"github.com/txxxxz/autonote/internal/textutil"
)

// Card is one knowledge card distilled from a note section.
type Card struct {
	Concept    string   `json:"concept"`
	Definition string   `json:"definition"`
	ExamPoints []string `json:"exam_points"`
	ExampleQ   *Example `json:"example_q,omitempty"`
	Anchors    []string `json:"anchors"`
}

// Example is an optional worked-example stub on a card.
type Example struct {
	Stem      string   `json:"stem"`
	Answer    string   `json:"answer"`
	KeyPoints []string `json:"key_points"`
}

// KnowledgeCards is the cards artifact.
type KnowledgeCards struct {
	Cards []Card `json:"cards"`
}

var exampleRe = regexp.MustCompile(`(例|示例|案例)[:：]\s*(.+)`)

// BuildCards produces one card per note section.
func BuildCards(doc *notes.NoteDoc) *KnowledgeCards {
	out := &KnowledgeCards{Cards: make([]Card, 0, len(doc.Sections))}
	for _, section := range doc.Sections {
		card := Card{
			Concept:    section.Title,
			Definition: extractDefinition(section.BodyMD),
			ExamPoints: extractExamPoints(section.BodyMD),
			ExampleQ:   extractExample(section.BodyMD),
			Anchors:    section.Refs,
		}
		if len(card.ExamPoints) == 0 {
			card.ExamPoints = []string{"重点理解章节核心概念。"}
		}
		out.Cards = append(out.Cards, card)
	}
	return out
}

func extractDefinition(markdown string) string {
	sentences := textutil.SplitSentences(strings.ReplaceAll(markdown, "\n", " "))
	if len(sentences) == 0 {
		return "该概念在课程中用于支撑关键知识点，详见章节内容。"
	}
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	return textutil.TruncateRunes(strings.Join(sentences, " "), 200)
}

func extractExamPoints(markdown string) []string {
	var points []string
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		point := strings.TrimSpace(strings.TrimLeft(line, "- "))
		if point == "" {
			continue
		}
		points = append(points, point)
		if len(points) == 3 {
			break
		}
	}
	return points
}

func extractExample(markdown string) *Example {
	m := exampleRe.FindStringSubmatch(markdown)
	if m == nil {
		return nil
	}
	content := m[2]
	return &Example{
		Stem:      "说明：" + textutil.TruncateRunes(content, 120) + "?",
		Answer:    textutil.TruncateRunes(content, 180),
		KeyPoints: []string{textutil.TruncateRunes(content, 60)},
	}
}

// Question is one mock-exam item.
type Question struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"` // mcq, fill, short
	Stem      string   `json:"stem"`
	Options   []string `json:"options,omitempty"`
	Answer    string   `json:"answer"`
	Explain   string   `json:"explain,omitempty"`
	KeyPoints []string `json:"key_points,omitempty"`
	Refs      []string `json:"refs"`
}

// MockPaper is the mock-exam artifact.
type MockPaper struct {
	Meta  MockMeta   `json:"meta"`
	Items []Question `json:"items"`
}

type MockMeta struct {
	Mode       string `json:"mode"`
	Size       int    `json:"size"`
	Difficulty string `json:"difficulty"`
}

// BuildMockExam derives up to size questions: an mcq, a fill-in, and a
// short-answer item per section. Mode "full" covers every section,
// anything else just the first.
func BuildMockExam(doc *notes.NoteDoc, mode string, size int, difficulty string) *MockPaper {
	sections := doc.Sections
	if mode != "full" && len(sections) > 1 {
		sections = sections[:1]
	}
	var questions []Question
	for _, section := range sections {
		plain := strings.ReplaceAll(section.BodyMD, "#", " ")
		sentences := textutil.SplitSentences(plain)
		summary := section.Title
		if len(sentences) > 0 {
			summary = sentences[0]
		}
		questions = append(questions,
			buildMCQ(section, summary),
			buildFill(section, summary),
			buildShort(section, summary),
		)
	}
	if size > 0 && len(questions) > size {
		questions = questions[:size]
	}
	return &MockPaper{
		Meta:  MockMeta{Mode: mode, Size: size, Difficulty: difficulty},
		Items: questions,
	}
}

func buildMCQ(section notes.NoteSection, summary string) Question {
	distractors := []string{
		fmt.Sprintf("%s 与 %s 无关。", section.Title, section.Title),
		fmt.Sprintf("%s 仅涉及定义，不含推导。", section.Title),
		fmt.Sprintf("%s 不需要掌握。", section.Title),
	}
	return Question{
		ID:      ids.New("q"),
		Type:    "mcq",
		Stem:    fmt.Sprintf("关于《%s》，下列描述何者最贴近章节内容？", section.Title),
		Options: append([]string{summary}, distractors...),
		Answer:  summary,
		Explain: "选择最能反映章节核心观点的一项。",
		Refs:    section.Refs,
	}
}

func buildFill(section notes.NoteSection, summary string) Question {
	return Question{
		ID:      ids.New("q"),
		Type:    "fill",
		Stem:    fmt.Sprintf("《%s》章节强调 ________。", section.Title),
		Answer:  textutil.TruncateRunes(summary, 80),
		Explain: "填入本章节强调的核心结论。",
		Refs:    section.Refs,
	}
}

func buildShort(section notes.NoteSection, summary string) Question {
	return Question{
		ID:        ids.New("q"),
		Type:      "short",
		Stem:      fmt.Sprintf("请概述《%s》的重点内容，并说明其适用或限制条件。", section.Title),
		Answer:    textutil.TruncateRunes(summary, 160),
		KeyPoints: []string{"突出概念", "说明条件或限制"},
		Refs:      section.Refs,
	}
}

// MindmapNode is one graph node labeled by outline title.
type MindmapNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Level int    `json:"level"`
}

// MindmapEdge links a parent node to a child.
type MindmapEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MindmapGraph is the mindmap artifact.
type MindmapGraph struct {
	Nodes []MindmapNode `json:"nodes"`
	Edges []MindmapEdge `json:"edges"`
}

// BuildMindmap flattens the outline tree into a node/edge graph.
func BuildMindmap(tree *outline.Tree) *MindmapGraph {
	graph := &MindmapGraph{}
	var walk func(node *outline.Node, level int, parentID string)
	walk = func(node *outline.Node, level int, parentID string) {
		graph.Nodes = append(graph.Nodes, MindmapNode{ID: node.SectionID, Label: node.Title, Level: level})
		if parentID != "" {
			graph.Edges = append(graph.Edges, MindmapEdge{From: parentID, To: node.SectionID})
		}
		for _, child := range node.Children {
			walk(child, level+1, node.SectionID)
		}
	}
	walk(tree.Root, 0, "")
	return graph
}
