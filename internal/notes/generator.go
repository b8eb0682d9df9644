package notes

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/txxxxz/autonote/internal/layout"
	"github.com/txxxxz/autonote/internal/llm"
	"github.com/txxxxz/autonote/internal/outline"
	"github.com/txxxxz/autonote/internal/style"
	"github.com/txxxxz/autonote/internal/vectorstore"
)

const (
	// Low temperature: factual fidelity to source content matters more
	// than stylistic variety.
	sectionTemperature = 0.15

	maxContextSnippets = 3
	defaultMaxWorkers  = 3
)

// Generator renders note documents. One Generate call builds the
// session's vector index once, then renders top-level sections across
// a bounded worker pool.
type Generator struct {
	Client      llm.Client
	Store       *vectorstore.Store
	SplitConfig vectorstore.SplitConfig
	MaxWorkers  int
	Log         *slog.Logger
}

func NewGenerator(client llm.Client, store *vectorstore.Store, maxWorkers int, log *slog.Logger) *Generator {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &Generator{
		Client:      client,
		Store:       store,
		SplitConfig: vectorstore.DefaultSplitConfig(),
		MaxWorkers:  maxWorkers,
		Log:         log,
	}
}

// Generate renders one NoteSection per top-level outline child, in
// outline order regardless of completion order. Section-level
// generation failures degrade to the fallback template; they never
// abort the document.
func (g *Generator) Generate(ctx context.Context, sessionID string, tree *outline.Tree, doc *layout.Doc, profile *style.Profile, progress func(Progress)) (*NoteDoc, error) {
	emit := func(p Progress) {
		if progress != nil {
			progress(p)
		}
	}

	total := len(tree.Root.Children)
	emit(Progress{Phase: PhasePrepare, Status: StatusStart,
		Message: fmt.Sprintf("%d pages, %d sections", len(doc.Pages), total)})

	index := g.buildIndex(ctx, sessionID, doc)

	emit(Progress{Phase: PhasePrepare, Status: StatusComplete})
	emit(Progress{Phase: PhaseSectionsTotal, Total: total})

	noteDoc := &NoteDoc{
		Style: StyleRecord{
			DetailLevel: string(profile.Detail),
			Tone:        string(profile.Tone),
			Language:    string(profile.Directives.Language),
		},
		TOC:      make([]TOCEntry, 0, total),
		Sections: make([]NoteSection, 0, total),
	}
	for _, section := range tree.Root.Children {
		noteDoc.TOC = append(noteDoc.TOC, TOCEntry{SectionID: section.SectionID, Title: section.Title})
	}

	if total == 0 {
		emit(Progress{Phase: PhaseSave, Status: StatusStart})
		emit(Progress{Phase: PhaseSave, Status: StatusComplete})
		return noteDoc, nil
	}

	pageText := layout.TextByPage(doc)
	figuresByPage, equationsByPage := collectAssets(doc)

	results := make([]RenderResult, total)
	render := func(i int, section *outline.Node) {
		results[i] = g.renderSection(ctx, i+1, total, section, profile, pageText, index, figuresByPage, equationsByPage, emit)
	}

	workers := g.MaxWorkers
	if workers > total {
		workers = total
	}
	if workers <= 1 {
		for i, section := range tree.Root.Children {
			render(i, section)
		}
	} else {
		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for i, section := range tree.Root.Children {
			wg.Add(1)
			go func(i int, section *outline.Node) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				render(i, section)
			}(i, section)
		}
		wg.Wait()
	}

	emit(Progress{Phase: PhaseSave, Status: StatusStart})
	for _, r := range results {
		noteDoc.Sections = append(noteDoc.Sections, r.Section)
	}
	emit(Progress{Phase: PhaseSave, Status: StatusComplete})
	return noteDoc, nil
}

// buildIndex prepares the session's retrieval index. Failure is not
// fatal: sections then render from composed context alone.
func (g *Generator) buildIndex(ctx context.Context, sessionID string, doc *layout.Doc) *vectorstore.Index {
	if g.Store == nil {
		return nil
	}
	docs := vectorstore.SplitPages(doc, g.SplitConfig)
	if len(docs) == 0 {
		docs = []vectorstore.Document{{PageContent: "暂无内容。", Page: 0}}
	}
	index, err := g.Store.LoadOrCreate(ctx, sessionID, docs)
	if err != nil {
		g.Log.Warn("vector index unavailable, rendering without retrieval",
			"session_id", sessionID, "error", err)
		return nil
	}
	return index
}

func (g *Generator) renderSection(ctx context.Context, index, total int, section *outline.Node, profile *style.Profile, pageText map[int]string, ix *vectorstore.Index, figuresByPage map[int][]layout.Element, equationsByPage map[int][]layout.Element, emit func(Progress)) RenderResult {
	emit(Progress{Phase: PhaseSection, Status: StatusStart, Index: index, Total: total, Title: section.Title})

	composed := ComposeContext(section, pageText)
	evidence := composed
	if ix != nil {
		if retrieved := g.retrieve(ctx, ix, section); retrieved != "" {
			evidence = composed + "\n\n检索到的相关材料:\n" + retrieved
		}
	}

	result := RenderResult{}
	prompt := buildPrompt(section, profile, evidence)
	raw, err := g.Client.Invoke(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt(profile.Directives.Language)},
		{Role: llm.RoleUser, Content: prompt},
	}, sectionTemperature)
	body := strings.TrimSpace(raw)
	if err != nil || body == "" {
		if err != nil {
			g.Log.Warn("section generation failed, using fallback",
				"section_id", section.SectionID, "title", section.Title, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("generation failed: %v", err))
		} else {
			result.Warnings = append(result.Warnings, "generation returned empty output")
		}
		body = fallbackSection(section, composed)
		result.Fallback = true
	} else {
		var warns []string
		body, warns = PostProcess(body, section, profile.Directives)
		for _, w := range warns {
			g.Log.Warn("style repair applied", "section_id", section.SectionID, "repair", w)
		}
		result.Warnings = append(result.Warnings, warns...)
	}

	anchors := allAnchors(section)
	result.Section = NoteSection{
		SectionID: section.SectionID,
		Title:     section.Title,
		BodyMD:    body,
		Figures:   resolveFigures(anchors, figuresByPage),
		Equations: resolveEquations(anchors, equationsByPage),
		Refs:      anchorRefs(section.SectionID, anchors),
	}

	emit(Progress{Phase: PhaseSection, Status: StatusComplete, Index: index, Total: total, Title: section.Title})
	return result
}

// retrieve fetches top-k evidence snippets: anchor pages first, summary
// search as the fallback query. Retrieval errors degrade to no
// snippets.
func (g *Generator) retrieve(ctx context.Context, ix *vectorstore.Index, section *outline.Node) string {
	var hits []vectorstore.Hit
	anchors := allAnchors(section)
	if len(anchors) == 0 {
		found, err := ix.Search(ctx, section.Summary, maxContextSnippets, nil)
		if err != nil {
			g.Log.Warn("context retrieval failed", "section_id", section.SectionID, "error", err)
			return ""
		}
		hits = found
	} else {
		for _, anchor := range anchors {
			found, err := ix.Search(ctx,
				fmt.Sprintf("Page %d content related to %s", anchor.Page, section.Title),
				1, map[int]struct{}{anchor.Page: {}})
			if err != nil {
				g.Log.Warn("context retrieval failed", "section_id", section.SectionID, "error", err)
				return ""
			}
			hits = append(hits, found...)
		}
		if len(hits) == 0 {
			found, err := ix.Search(ctx, section.Summary, maxContextSnippets, nil)
			if err != nil {
				return ""
			}
			hits = found
		}
	}

	seen := make(map[string]struct{})
	var texts []string
	for _, h := range hits {
		text := strings.TrimSpace(h.PageContent)
		if text == "" {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		texts = append(texts, text)
		if len(texts) == maxContextSnippets {
			break
		}
	}
	return strings.Join(texts, "\n\n")
}

func collectAssets(doc *layout.Doc) (figures, equations map[int][]layout.Element) {
	figures = make(map[int][]layout.Element)
	equations = make(map[int][]layout.Element)
	for _, page := range doc.Pages {
		for _, el := range page.Elements {
			switch el.Kind {
			case layout.KindImage:
				figures[page.PageNo] = append(figures[page.PageNo], el)
			case layout.KindFormula:
				equations[page.PageNo] = append(equations[page.PageNo], el)
			}
		}
	}
	return figures, equations
}

// allAnchors gathers the section's anchors plus its descendants',
// deduplicated by (page, ref) and ordered by page.
func allAnchors(section *outline.Node) []layout.AnchorRef {
	seen := make(map[string]struct{})
	var anchors []layout.AnchorRef
	var walk func(n *outline.Node)
	walk = func(n *outline.Node) {
		for _, a := range n.Anchors {
			key := fmt.Sprintf("%d#%s", a.Page, a.Ref)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			anchors = append(anchors, a)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(section)
	sort.SliceStable(anchors, func(i, j int) bool { return anchors[i].Page < anchors[j].Page })
	return anchors
}

func resolveFigures(anchors []layout.AnchorRef, figuresByPage map[int][]layout.Element) []NoteFigure {
	var figures []NoteFigure
	seen := make(map[int]struct{})
	for _, anchor := range anchors {
		if _, ok := seen[anchor.Page]; ok {
			continue
		}
		seen[anchor.Page] = struct{}{}
		for _, el := range figuresByPage[anchor.Page] {
			if el.ImageURI != "" {
				figures = append(figures, NoteFigure{ImageURI: el.ImageURI, Caption: el.Caption})
			}
		}
	}
	return figures
}

func resolveEquations(anchors []layout.AnchorRef, equationsByPage map[int][]layout.Element) []NoteEquation {
	var equations []NoteEquation
	seen := make(map[int]struct{})
	for _, anchor := range anchors {
		if _, ok := seen[anchor.Page]; ok {
			continue
		}
		seen[anchor.Page] = struct{}{}
		for _, el := range equationsByPage[anchor.Page] {
			if el.Latex != "" {
				equations = append(equations, NoteEquation{Latex: el.Latex, Caption: el.Caption})
			}
		}
	}
	return equations
}

func anchorRefs(sectionID string, anchors []layout.AnchorRef) []string {
	refs := make([]string, 0, len(anchors))
	for _, a := range anchors {
		refs = append(refs, fmt.Sprintf("anchor:%s@page%d#%s", sectionID, a.Page, a.Ref))
	}
	return refs
}
