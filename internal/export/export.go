// Package export renders study artifacts into downloadable Markdown
// files under a per-session export directory.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/txxxxz/autonote/internal/notes"
	"github.com/txxxxz/autonote/internal/templates"
)

// Service writes export files under root/<session-id>/.
type Service struct {
	Root string
}

func NewService(root string) *Service {
	return &Service{Root: root}
}

// Result names the written file for download.
type Result struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// Notes writes the note document as one Markdown file, table of
// contents first.
func (s *Service) Notes(sessionID string, doc *notes.NoteDoc) (*Result, error) {
	var sb strings.Builder
	if len(doc.TOC) > 0 {
		sb.WriteString("## 目录\n\n")
		for _, entry := range doc.TOC {
			sb.WriteString("- " + entry.Title + "\n")
		}
		sb.WriteString("\n")
	}
	for _, section := range doc.Sections {
		sb.WriteString("# " + section.Title + "\n\n")
		sb.WriteString(section.BodyMD + "\n\n")
		if len(section.Figures) > 0 || len(section.Equations) > 0 {
			sb.WriteString("### 资源附录\n\n")
			for _, fig := range section.Figures {
				fmt.Fprintf(&sb, "- 图: %s (%s)\n", fig.Caption, fig.ImageURI)
			}
			for _, eq := range section.Equations {
				fmt.Fprintf(&sb, "- 公式: $$%s$$ %s\n", eq.Latex, eq.Caption)
			}
			sb.WriteString("\n")
		}
	}
	return s.write(sessionID, "notes.md", sb.String())
}

// Cards writes the knowledge cards as Markdown.
func (s *Service) Cards(sessionID string, cards *templates.KnowledgeCards) (*Result, error) {
	var parts []string
	for _, card := range cards.Cards {
		var sb strings.Builder
		sb.WriteString("## " + card.Concept + "\n")
		sb.WriteString("**定义：** " + card.Definition + "\n")
		sb.WriteString("**考点：**\n")
		for _, point := range card.ExamPoints {
			sb.WriteString("- " + point + "\n")
		}
		if card.ExampleQ != nil {
			sb.WriteString("**例题：**\n")
			sb.WriteString("Q: " + card.ExampleQ.Stem + "\n")
			sb.WriteString("A: " + card.ExampleQ.Answer + "\n")
		}
		parts = append(parts, sb.String())
	}
	return s.write(sessionID, "cards.md", strings.Join(parts, "\n"))
}

// Mock writes the mock paper as Markdown.
func (s *Service) Mock(sessionID string, paper *templates.MockPaper) (*Result, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# 模拟试卷（模式：%s，难度：%s）\n\n", paper.Meta.Mode, paper.Meta.Difficulty)
	for i, item := range paper.Items {
		fmt.Fprintf(&sb, "## 第 %d 题（%s）\n\n%s\n\n", i+1, item.Type, item.Stem)
		for _, opt := range item.Options {
			sb.WriteString("- " + opt + "\n")
		}
		sb.WriteString("**答案：** " + item.Answer + "\n")
		if item.Explain != "" {
			sb.WriteString("**解析：** " + item.Explain + "\n")
		}
		if len(item.KeyPoints) > 0 {
			sb.WriteString("**得分点：** " + strings.Join(item.KeyPoints, ", ") + "\n")
		}
		sb.WriteString("\n")
	}
	return s.write(sessionID, "mock.md", sb.String())
}

// Mindmap writes the graph as a nested Markdown list, indented by
// level.
func (s *Service) Mindmap(sessionID string, graph *templates.MindmapGraph) (*Result, error) {
	var sb strings.Builder
	for _, node := range graph.Nodes {
		sb.WriteString(strings.Repeat("  ", node.Level))
		sb.WriteString("- " + node.Label + "\n")
	}
	return s.write(sessionID, "mindmap.md", sb.String())
}

func (s *Service) write(sessionID, filename, content string) (*Result, error) {
	dir := filepath.Join(s.Root, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}
	return &Result{Filename: filename, Path: path}, nil
}
