package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/txxxxz/autonote/internal/export"
	"github.com/txxxxz/autonote/internal/notes"
	"github.com/txxxxz/autonote/internal/outline"
	"github.com/txxxxz/autonote/internal/repository"
	"github.com/txxxxz/autonote/internal/templates"
)

// handleBuildCards derives knowledge cards from the generated notes and
// caches them as an artifact.
func (s *Server) handleBuildCards(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	doc, err := loadArtifact[notes.NoteDoc](r.Context(), s.repo, sessionID, repository.KindNote)
	if errors.Is(err, repository.ErrNotFound) {
		jsonError(w, "notes not generated yet", http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cards := templates.BuildCards(doc)
	if _, err := s.repo.SaveArtifact(r.Context(), sessionID, repository.KindCards, cards); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cards)
}

func (s *Server) handleGetCards(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, repository.KindCards, "cards not generated yet")
}

type mockRequest struct {
	Mode       string `json:"mode"`
	Size       int    `json:"size"`
	Difficulty string `json:"difficulty"`
}

// handleBuildMock assembles a mock exam paper from the generated notes.
func (s *Server) handleBuildMock(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req mockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := loadArtifact[notes.NoteDoc](r.Context(), s.repo, sessionID, repository.KindNote)
	if errors.Is(err, repository.ErrNotFound) {
		jsonError(w, "notes not generated yet", http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	paper := templates.BuildMockExam(doc, req.Mode, req.Size, req.Difficulty)
	if _, err := s.repo.SaveArtifact(r.Context(), sessionID, repository.KindMock, paper); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(paper)
}

func (s *Server) handleGetMock(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, repository.KindMock, "mock exam not generated yet")
}

// handleBuildMindmap projects the outline tree into a node/edge graph.
func (s *Server) handleBuildMindmap(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	tree, err := loadArtifact[outline.Tree](r.Context(), s.repo, sessionID, repository.KindOutline)
	if errors.Is(err, repository.ErrNotFound) {
		jsonError(w, "outline not generated yet", http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	graph := templates.BuildMindmap(tree)
	if _, err := s.repo.SaveArtifact(r.Context(), sessionID, repository.KindMindmap, graph); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(graph)
}

func (s *Server) handleGetMindmap(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, repository.KindMindmap, "mindmap not generated yet")
}

// serveArtifact writes the latest cached artifact of a kind as-is.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, kind, missing string) {
	sessionID := chi.URLParam(r, "sessionID")
	artifact, err := s.repo.LatestArtifact(r.Context(), sessionID, kind)
	if errors.Is(err, repository.ErrNotFound) {
		jsonError(w, missing, http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(artifact.Payload)
}

// handleExport renders the requested artifact to a Markdown file under
// the session's export directory.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	kind := chi.URLParam(r, "kind")

	var (
		result *export.Result
		err    error
	)
	switch kind {
	case "notes":
		var doc *notes.NoteDoc
		if doc, err = loadArtifact[notes.NoteDoc](r.Context(), s.repo, sessionID, repository.KindNote); err == nil {
			result, err = s.exports.Notes(sessionID, doc)
		}
	case "cards":
		var cards *templates.KnowledgeCards
		if cards, err = loadArtifact[templates.KnowledgeCards](r.Context(), s.repo, sessionID, repository.KindCards); err == nil {
			result, err = s.exports.Cards(sessionID, cards)
		}
	case "mock":
		var paper *templates.MockPaper
		if paper, err = loadArtifact[templates.MockPaper](r.Context(), s.repo, sessionID, repository.KindMock); err == nil {
			result, err = s.exports.Mock(sessionID, paper)
		}
	case "mindmap":
		var graph *templates.MindmapGraph
		if graph, err = loadArtifact[templates.MindmapGraph](r.Context(), s.repo, sessionID, repository.KindMindmap); err == nil {
			result, err = s.exports.Mindmap(sessionID, graph)
		}
	default:
		jsonError(w, "unknown export kind: "+kind, http.StatusBadRequest)
		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		jsonError(w, kind+" not generated yet", http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleDownload serves a previously exported file.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	kind := chi.URLParam(r, "kind")
	switch kind {
	case "notes", "cards", "mock", "mindmap":
	default:
		jsonError(w, "unknown export kind: "+kind, http.StatusBadRequest)
		return
	}

	filename := kind + ".md"
	path := filepath.Join(s.exports.Root, sessionID, filename)
	if _, err := os.Stat(path); err != nil {
		jsonError(w, "export not found; run the export first", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, path)
}
