// Package pipeline orchestrates the session lifecycle: parse → layout
// → outline → notes, caching each stage as a repository artifact, and
// manages asynchronous note-generation tasks.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/txxxxz/autonote/internal/layout"
	"github.com/txxxxz/autonote/internal/llm"
	"github.com/txxxxz/autonote/internal/notes"
	"github.com/txxxxz/autonote/internal/outline"
	"github.com/txxxxz/autonote/internal/parser"
	"github.com/txxxxz/autonote/internal/repository"
	"github.com/txxxxz/autonote/internal/style"
)

// Pipeline drives one session through its processing stages. Each
// stage loads its input from the previous stage's cached artifact,
// computing upstream stages on demand.
type Pipeline struct {
	Repo      *repository.Store
	Builder   *outline.Builder
	Client    llm.Client
	Generator *notes.Generator
	Log       *slog.Logger

	// SemanticOutline selects the model-authored outline when notes
	// generation has to build the outline itself.
	SemanticOutline bool
}

func New(repo *repository.Store, builder *outline.Builder, client llm.Client, generator *notes.Generator, log *slog.Logger) *Pipeline {
	return &Pipeline{
		Repo:            repo,
		Builder:         builder,
		Client:          client,
		Generator:       generator,
		Log:             log,
		SemanticOutline: true,
	}
}

// Parse extracts the session's uploaded file into a slide deck and
// caches it.
func (p *Pipeline) Parse(ctx context.Context, sessionID string) (*layout.Deck, error) {
	if deck, err := loadArtifact[layout.Deck](ctx, p.Repo, sessionID, repository.KindParse); err == nil {
		return deck, nil
	}

	sess, err := p.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	deck, err := parser.ParseFile(sess.FilePath)
	if err != nil {
		p.fail(ctx, sessionID)
		return nil, fmt.Errorf("parse %s: %w", sess.FilePath, err)
	}
	if deck.Title == "" {
		deck.Title = sessionTitle(sess)
	}
	if _, err := p.Repo.SaveArtifact(ctx, sessionID, repository.KindParse, deck); err != nil {
		return nil, err
	}
	if err := p.Repo.UpdateSessionStatus(ctx, sessionID, repository.StatusParsed); err != nil {
		return nil, err
	}
	p.Log.Info("session parsed", "session_id", sessionID, "pages", len(deck.Slides))
	return deck, nil
}

// Layout converts the parsed deck into typed page elements and caches
// the result.
func (p *Pipeline) Layout(ctx context.Context, sessionID string) (*layout.Doc, error) {
	if doc, err := loadArtifact[layout.Doc](ctx, p.Repo, sessionID, repository.KindLayout); err == nil {
		return doc, nil
	}

	deck, err := p.Parse(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	doc := layout.Build(deck)
	if _, err := p.Repo.SaveArtifact(ctx, sessionID, repository.KindLayout, doc); err != nil {
		return nil, err
	}
	if err := p.Repo.UpdateSessionStatus(ctx, sessionID, repository.StatusLayoutBuilt); err != nil {
		return nil, err
	}
	p.Log.Info("layout built", "session_id", sessionID, "pages", len(doc.Pages))
	return doc, nil
}

// Outline reconstructs (or re-reads) the session's outline tree. When
// semantic is set and a generation client is configured, the
// model-authored outline is attempted first, gated on quality.
func (p *Pipeline) Outline(ctx context.Context, sessionID string, semantic bool) (*outline.Tree, error) {
	if tree, err := loadArtifact[outline.Tree](ctx, p.Repo, sessionID, repository.KindOutline); err == nil {
		return tree, nil
	}

	doc, err := p.Layout(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess, err := p.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	fallback := &outline.Tree{Root: &outline.Node{
		SectionID: "root",
		Title:     sessionTitle(sess),
		Level:     0,
	}}

	var tree *outline.Tree
	if semantic && p.Client != nil {
		tree = p.Builder.BuildSemantic(ctx, p.Client, doc, fallback)
	} else {
		tree = p.Builder.BuildNatural(doc, fallback)
	}

	if _, err := p.Repo.SaveArtifact(ctx, sessionID, repository.KindOutline, tree); err != nil {
		return nil, err
	}
	if err := p.Repo.UpdateSessionStatus(ctx, sessionID, repository.StatusOutlineReady); err != nil {
		return nil, err
	}
	p.Log.Info("outline ready", "session_id", sessionID, "chapters", len(tree.Root.Children))
	return tree, nil
}

// GenerateNotes renders the styled note document for a session and
// caches it. An unknown detail/tone combination fails before any model
// call.
func (p *Pipeline) GenerateNotes(ctx context.Context, sessionID, detail, tone, language string, progress func(notes.Progress)) (*notes.NoteDoc, error) {
	profile, err := style.Build(style.DetailLevel(detail), style.Tone(tone), style.Language(language))
	if err != nil {
		return nil, err
	}

	tree, err := p.Outline(ctx, sessionID, p.SemanticOutline)
	if err != nil {
		return nil, err
	}
	doc, err := p.Layout(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	noteDoc, err := p.Generator.Generate(ctx, sessionID, tree, doc, profile, progress)
	if err != nil {
		p.fail(ctx, sessionID)
		return nil, err
	}
	if _, err := p.Repo.SaveArtifact(ctx, sessionID, repository.KindNote, noteDoc); err != nil {
		return nil, err
	}
	if err := p.Repo.UpdateSessionStatus(ctx, sessionID, repository.StatusNotesReady); err != nil {
		return nil, err
	}
	p.Log.Info("notes ready", "session_id", sessionID, "sections", len(noteDoc.Sections))
	return noteDoc, nil
}

// LoadNotes returns the session's latest cached note document.
func (p *Pipeline) LoadNotes(ctx context.Context, sessionID string) (*notes.NoteDoc, error) {
	return loadArtifact[notes.NoteDoc](ctx, p.Repo, sessionID, repository.KindNote)
}

func (p *Pipeline) fail(ctx context.Context, sessionID string) {
	if err := p.Repo.UpdateSessionStatus(ctx, sessionID, repository.StatusFailed); err != nil && !errors.Is(err, repository.ErrNotFound) {
		p.Log.Warn("could not mark session failed", "session_id", sessionID, "error", err)
	}
}

func loadArtifact[T any](ctx context.Context, repo *repository.Store, sessionID, kind string) (*T, error) {
	artifact, err := repo.LatestArtifact(ctx, sessionID, kind)
	if err != nil {
		return nil, err
	}
	var value T
	if err := json.Unmarshal(artifact.Payload, &value); err != nil {
		return nil, fmt.Errorf("decode %s artifact: %w", kind, err)
	}
	return &value, nil
}

func sessionTitle(sess *repository.Session) string {
	title := strings.TrimSuffix(sess.Title, filepath.Ext(sess.Title))
	if title == "" {
		title = "课程材料"
	}
	return title
}
