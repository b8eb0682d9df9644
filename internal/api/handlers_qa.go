package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/txxxxz/autonote/internal/notes"
	"github.com/txxxxz/autonote/internal/qa"
	"github.com/txxxxz/autonote/internal/repository"
	"github.com/txxxxz/autonote/internal/templates"
)

type askRequest struct {
	Question string `json:"question"`
	Scope    string `json:"scope"`
}

// handleAsk answers a question scoped to the session's generated
// materials. Missing artifacts narrow the scope instead of failing.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}
	switch req.Scope {
	case "notes", "cards", "mock":
	case "":
		req.Scope = "notes"
	default:
		jsonError(w, "unknown scope: "+req.Scope, http.StatusBadRequest)
		return
	}

	if _, err := s.repo.GetSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			jsonError(w, "session not found", http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	materials := qa.Materials{}
	if doc, err := loadArtifact[notes.NoteDoc](r.Context(), s.repo, sessionID, repository.KindNote); err == nil {
		materials.Notes = doc
	}
	if cards, err := loadArtifact[templates.KnowledgeCards](r.Context(), s.repo, sessionID, repository.KindCards); err == nil {
		materials.Cards = cards
	}
	if paper, err := loadArtifact[templates.MockPaper](r.Context(), s.repo, sessionID, repository.KindMock); err == nil {
		materials.Mock = paper
	}

	resp, err := s.qa.Ask(r.Context(), req.Question, req.Scope, materials)
	if err != nil {
		jsonError(w, "qa failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
